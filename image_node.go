package vfx

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the supported image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/vfx/internal/work"
	"github.com/gogpu/vfx/render"
)

// imagePaintState is one image's sized state for one chain: the source
// scaled to chain resolution and uploaded once.
type imagePaintState struct {
	tex *render.TextureRef
}

// imageNode feeds a decoded still image into the graph.
//
// Lifecycle mirrors effectNode with decoding in place of compilation:
// a name change abandons any in-flight load and submits a fetch plus
// decode to the worker pool. Once decoded, the image is scaled to each
// chain's resolution and uploaded; paint just returns the uploaded
// texture and records no commands.
type imageNode struct {
	ctx *Context

	state NodeState
	err   error

	current string
	dirty   bool

	load *work.Handle[*image.RGBA]

	img    *image.RGBA
	chains map[ChainID]*imagePaintState
}

func newImageNode(ctx *Context) *imageNode {
	return &imageNode{
		ctx:    ctx,
		chains: make(map[ChainID]*imagePaintState),
	}
}

func (n *imageNode) status() NodeStatus {
	return NodeStatus{Kind: KindImage, State: n.state, Err: n.err}
}

func (n *imageNode) markDirty() { n.dirty = true }

func (n *imageNode) usesSource(name string) bool {
	return name != "" && name == n.current
}

func (n *imageNode) update(props NodeProps) error {
	p := props.(*ImageProps)

	if n.dirty || p.Name != n.current {
		n.submitLoad(p.Name)
	}

	if n.load != nil && !n.load.Alive() {
		img, err := n.load.Join()
		n.load = nil
		if err != nil {
			n.state, n.err = StateError, err
			Logger().Debug("image load failed",
				"image", n.current, "error", err)
		} else {
			n.img = img
			n.state, n.err = StateReady, nil
			Logger().Debug("image ready", "image", n.current,
				"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
		}
	}
	return nil
}

// submitLoad abandons any outstanding job, drops the decoded image and
// its uploads, and queues a fetch plus decode for the new name.
func (n *imageNode) submitLoad(name string) {
	n.discardImage()
	n.load = nil
	n.current = name
	n.dirty = false
	n.state, n.err = StateCompiling, nil

	lib := n.ctx.library
	n.load = work.Spawn(n.ctx.pool, func() (*image.RGBA, error) {
		data, err := lib.ImageData(name)
		if err != nil {
			return nil, err
		}
		src, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", name, err)
		}
		b := src.Bounds()
		rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
		return rgba, nil
	})
}

// discardImage drops the decoded pixels and every per-chain upload;
// the paint states stay registered so ensureChain re-uploads.
func (n *imageNode) discardImage() {
	n.img = nil
	for _, ps := range n.chains {
		if ps.tex != nil {
			ps.tex.Release()
			ps.tex = nil
		}
	}
}

func (n *imageNode) ensureChain(c *Chain) error {
	ps := n.chains[c.id]
	if ps == nil {
		ps = &imagePaintState{}
		n.chains[c.id] = ps
	}
	if n.state != StateReady || n.img == nil || ps.tex != nil {
		return nil
	}

	// Scale to chain resolution and upload once.
	scaled := image.NewRGBA(image.Rect(0, 0, int(c.width), int(c.height)))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), n.img, n.img.Bounds(), draw.Src, nil)

	tex, err := render.NewTexture(n.ctx.dev, c.width, c.height,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst,
		"image_"+n.current)
	if err != nil {
		return fmt.Errorf("image %q: %w", n.current, err)
	}
	n.ctx.dev.WriteTexture(tex.Texture(), scaled.Pix)
	ps.tex = tex
	return nil
}

func (n *imageNode) dropChain(id ChainID) {
	ps := n.chains[id]
	if ps == nil {
		return
	}
	if ps.tex != nil {
		ps.tex.Release()
	}
	delete(n.chains, id)
}

func (n *imageNode) paint(c *Chain, enc render.CommandEncoder, inputs []*render.TextureRef) (*render.TextureRef, error) {
	ps := n.chains[c.id]
	if n.state != StateReady || ps == nil || ps.tex == nil {
		return c.blank, nil
	}
	return ps.tex, nil
}

func (n *imageNode) destroy() {
	for id := range n.chains {
		n.dropChain(id)
	}
	n.img = nil
	n.load = nil
}
