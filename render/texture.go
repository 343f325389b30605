// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// PixelFormat is the pixel format used for every engine texture and
// render target.
const PixelFormat = gputypes.TextureFormatRGBA8Unorm

// TextureRef is a reference-counted bundle of a texture, its default
// sampling view and a clamp-to-edge linear sampler.
//
// A new ref starts with count 1. Retain increments the count; Release
// decrements it and destroys the GPU resources exactly once when the
// count reaches zero. Using a ref after its count reached zero is a
// programming error and panics.
//
// Thread safety: TextureRef is safe for concurrent use.
type TextureRef struct {
	dev     Device
	texture TextureID
	view    TextureViewID
	sampler SamplerID
	width   uint32
	height  uint32
	refs    atomic.Int32
}

// NewTexture creates a texture of the given size with its view and
// sampler. The texture uses PixelFormat.
func NewTexture(dev Device, width, height uint32, usage gputypes.TextureUsage, label string) (*TextureRef, error) {
	tex, err := dev.CreateTexture(&TextureDescriptor{
		Label:  label,
		Width:  width,
		Height: height,
		Format: PixelFormat,
		Usage:  usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", label, err)
	}

	view, err := dev.CreateTextureView(tex)
	if err != nil {
		dev.DestroyTexture(tex)
		return nil, fmt.Errorf("create view for %q: %w", label, err)
	}

	sampler, err := dev.CreateSampler(&SamplerDescriptor{
		Label:       label,
		AddressMode: gputypes.AddressModeClampToEdge,
		Filter:      gputypes.FilterModeLinear,
	})
	if err != nil {
		dev.DestroyTextureView(view)
		dev.DestroyTexture(tex)
		return nil, fmt.Errorf("create sampler for %q: %w", label, err)
	}

	t := &TextureRef{
		dev:     dev,
		texture: tex,
		view:    view,
		sampler: sampler,
		width:   width,
		height:  height,
	}
	t.refs.Store(1)
	return t, nil
}

// NewBlankTexture creates the shared 1x1 texture holding a single
// transparent black texel. Nodes that have nothing to show return it.
func NewBlankTexture(dev Device) (*TextureRef, error) {
	t, err := NewTexture(dev, 1, 1,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst,
		"blank_texture")
	if err != nil {
		return nil, err
	}
	dev.WriteTexture(t.texture, []byte{0, 0, 0, 0})
	return t, nil
}

// NewNoiseTexture creates a texture filled with uniform random bytes.
// Each chain gets its own noise, regenerated at chain creation.
func NewNoiseTexture(dev Device, width, height uint32) (*TextureRef, error) {
	t, err := NewTexture(dev, width, height,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst,
		"noise_texture")
	if err != nil {
		return nil, err
	}

	data := make([]byte, int(width)*int(height)*4)
	for i := 0; i+4 <= len(data); i += 4 {
		binary.LittleEndian.PutUint32(data[i:], rand.Uint32())
	}
	dev.WriteTexture(t.texture, data)
	return t, nil
}

// NewOutputTexture creates a render target at chain resolution that
// can also be sampled by downstream nodes.
func NewOutputTexture(dev Device, width, height uint32, label string) (*TextureRef, error) {
	return NewTexture(dev, width, height,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopySrc,
		label)
}

// Texture returns the texture ID.
func (t *TextureRef) Texture() TextureID { return t.texture }

// View returns the default view ID.
func (t *TextureRef) View() TextureViewID { return t.view }

// Sampler returns the sampler ID.
func (t *TextureRef) Sampler() SamplerID { return t.sampler }

// Width returns the texture width in pixels.
func (t *TextureRef) Width() uint32 { return t.width }

// Height returns the texture height in pixels.
func (t *TextureRef) Height() uint32 { return t.height }

// Retain increments the reference count and returns t for chaining.
func (t *TextureRef) Retain() *TextureRef {
	if t.refs.Add(1) <= 1 {
		panic("render: Retain on a released TextureRef")
	}
	return t
}

// Release decrements the reference count, destroying the texture, view
// and sampler when it reaches zero.
func (t *TextureRef) Release() {
	n := t.refs.Add(-1)
	if n < 0 {
		panic("render: Release on a released TextureRef")
	}
	if n > 0 {
		return
	}
	t.dev.DestroySampler(t.sampler)
	t.dev.DestroyTextureView(t.view)
	t.dev.DestroyTexture(t.texture)
}
