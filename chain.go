package vfx

import (
	"fmt"

	"github.com/gogpu/vfx/render"
)

// ChainID identifies one render chain within its Context. Ids are
// assigned by a counter and never reused, so a stale id can only miss,
// never alias a newer chain.
type ChainID uint32

// Chain is one offscreen rendering target size. Every node paints once
// per chain, into sized resources private to that chain; chains share
// node definitions but never textures.
type Chain struct {
	id     ChainID
	width  uint32
	height uint32

	// noise is this chain's random texture, regenerated at creation.
	noise *render.TextureRef

	// blank is a retained reference to the context-wide blank texture.
	blank *render.TextureRef
}

// newChain builds the chain-scoped resources.
func newChain(dev render.Device, id ChainID, width, height uint32, blank *render.TextureRef) (*Chain, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("vfx: chain size %dx%d invalid", width, height)
	}
	noise, err := render.NewNoiseTexture(dev, width, height)
	if err != nil {
		return nil, fmt.Errorf("chain noise: %w", err)
	}
	return &Chain{
		id:     id,
		width:  width,
		height: height,
		noise:  noise,
		blank:  blank.Retain(),
	}, nil
}

// ID returns the chain id.
func (c *Chain) ID() ChainID { return c.id }

// Width returns the chain resolution width in pixels.
func (c *Chain) Width() uint32 { return c.width }

// Height returns the chain resolution height in pixels.
func (c *Chain) Height() uint32 { return c.height }

// release drops the chain-scoped resources.
func (c *Chain) release() {
	c.noise.Release()
	c.blank.Release()
}
