package vfx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vfx/internal/work"
	"github.com/gogpu/vfx/render"
)

const (
	// updateUniformSize is the byte size of the UpdateUniforms block:
	// iAudio vec4 + five f32 scalars, padded to the WGSL struct size.
	updateUniformSize = 48

	// paintUniformSize is the byte size of the PaintUniforms block:
	// iResolution vec2 + iFPS, padded to the WGSL struct size.
	paintUniformSize = 16

	// integralPeriod wraps the intensity integral so the float keeps
	// fractional precision over long sessions.
	integralPeriod = 1024

	// defaultFPS seeds iFPS until the clock has produced a usable dt.
	defaultFPS = 60.0
)

// compileTarget identifies what a compile job builds: the shader
// bindings depend on the input count, so changing either re-triggers
// compilation.
type compileTarget struct {
	name   string
	inputs int
}

// effectPayload is everything built from one successful compile. It is
// discarded wholesale when the target changes.
type effectPayload struct {
	module       render.ShaderModuleID
	updateLayout render.BindGroupLayoutID
	paintLayout  render.BindGroupLayoutID
	pipeLayout   render.PipelineLayoutID
	pipeline     render.RenderPipelineID
	updateBuf    render.BufferID
	sampler      render.SamplerID
	updateGroup  render.BindGroupID
}

// destroy releases the payload's resources, groups and pipelines
// before the layouts and module they were built from.
func (p *effectPayload) destroy(dev render.Device) {
	dev.DestroyBindGroup(p.updateGroup)
	dev.DestroyRenderPipeline(p.pipeline)
	dev.DestroyPipelineLayout(p.pipeLayout)
	dev.DestroyBindGroupLayout(p.paintLayout)
	dev.DestroyBindGroupLayout(p.updateLayout)
	dev.DestroyShaderModule(p.module)
	dev.DestroyBuffer(p.updateBuf)
	dev.DestroySampler(p.sampler)
	*p = effectPayload{}
}

// effectPaintState is one effect's sized state for one chain: the
// output render target, the per-chain uniform buffer, and the bind
// group from the previous paint, retired on the next one.
type effectPaintState struct {
	output    *render.TextureRef
	paintBuf  render.BufferID
	lastGroup render.BindGroupID
}

// effectNode runs a WGSL fragment shader over its inputs.
//
// Lifecycle: a change of effect name or input count abandons any
// in-flight compile, discards the built payload and submits a fresh
// compile job to the worker pool. The job fetches the source through
// the library, prepends the generated preamble and compiles to
// SPIR-V. Updates poll the outstanding job without blocking; paints
// return the blank texture until the payload is built.
type effectNode struct {
	ctx *Context

	state NodeState
	err   error

	// current is the target of the last submitted compile; dirty
	// forces a resubmit even when the target is unchanged.
	current compileTarget
	dirty   bool

	compile *work.Handle[[]uint32]

	intensity float64
	frequency float64
	integral  float64

	payload effectPayload
	chains  map[ChainID]*effectPaintState
}

func newEffectNode(ctx *Context) *effectNode {
	return &effectNode{
		ctx:    ctx,
		chains: make(map[ChainID]*effectPaintState),
	}
}

func (n *effectNode) status() NodeStatus {
	return NodeStatus{Kind: KindEffect, State: n.state, Err: n.err}
}

func (n *effectNode) markDirty() { n.dirty = true }

func (n *effectNode) usesSource(name string) bool {
	return name != "" && name == n.current.name
}

func (n *effectNode) update(props NodeProps) error {
	p := props.(*EffectProps)

	// Intensity and frequency land every update, whatever the state.
	n.intensity = p.Intensity
	n.frequency = p.Frequency
	n.integral = math.Mod(n.integral+p.Intensity*n.ctx.dt, integralPeriod)

	target := compileTarget{name: p.Name, inputs: p.InputCount()}
	if n.dirty || target != n.current {
		n.submitCompile(target)
	}

	if n.compile != nil && !n.compile.Alive() {
		words, err := n.compile.Join()
		n.compile = nil
		switch {
		case errors.Is(err, work.ErrAborted):
			n.state, n.err = StateError, ErrCompileAborted
		case err != nil:
			n.state, n.err = StateError, err
			Logger().Debug("effect compile failed",
				"effect", n.current.name, "error", err)
		default:
			if err := n.buildPayload(words); err != nil {
				return fmt.Errorf("effect %q: %w", n.current.name, err)
			}
			n.state, n.err = StateReady, nil
			Logger().Debug("effect ready", "effect", n.current.name)
		}
	}

	if n.state == StateReady {
		n.writeUpdateUniforms()
	}
	return nil
}

// submitCompile abandons any outstanding job, drops the built payload
// and queues a compile for the new target.
func (n *effectNode) submitCompile(target compileTarget) {
	n.discardPayload()
	n.compile = nil
	n.current = target
	n.dirty = false
	n.state, n.err = StateCompiling, nil

	name := target.name
	preamble := effectPreamble(target.inputs)
	lib, comp := n.ctx.library, n.ctx.compiler
	n.compile = work.Spawn(n.ctx.pool, func() ([]uint32, error) {
		src, err := lib.Source(name)
		if err != nil {
			return nil, err
		}
		return comp.Compile(preamble + src)
	})
}

// buildPayload turns compiled SPIR-V into the pipeline and the static
// update-side bindings.
func (n *effectNode) buildPayload(words []uint32) error {
	dev := n.ctx.dev
	label := "effect_" + n.current.name
	var p effectPayload
	var err error

	p.module, err = dev.CreateShaderModule(&render.ShaderModuleDescriptor{
		Label: label + "_shader",
		SPIRV: words,
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	// Group 0: per-node uniforms and the shared sampler, written
	// during update and bound once.
	p.updateLayout, err = dev.CreateBindGroupLayout(&render.BindGroupLayoutDescriptor{
		Label: label + "_update_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.destroy(dev)
		return fmt.Errorf("create update layout: %w", err)
	}

	// Group 1: per-chain uniforms, noise, then one texture per input
	// port, rebuilt every paint.
	paintEntries := make([]gputypes.BindGroupLayoutEntry, 0, paintInputBinding+n.current.inputs)
	paintEntries = append(paintEntries,
		gputypes.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		gputypes.BindGroupLayoutEntry{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
	)
	for i := range n.current.inputs {
		paintEntries = append(paintEntries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(paintInputBinding + i),
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	p.paintLayout, err = dev.CreateBindGroupLayout(&render.BindGroupLayoutDescriptor{
		Label:   label + "_paint_layout",
		Entries: paintEntries,
	})
	if err != nil {
		p.destroy(dev)
		return fmt.Errorf("create paint layout: %w", err)
	}

	p.pipeLayout, err = dev.CreatePipelineLayout(&render.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []render.BindGroupLayoutID{p.updateLayout, p.paintLayout},
	})
	if err != nil {
		p.destroy(dev)
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	p.pipeline, err = dev.CreateRenderPipeline(&render.RenderPipelineDescriptor{
		Label:          label + "_pipeline",
		Layout:         p.pipeLayout,
		VertexModule:   p.module,
		VertexEntry:    "vs_main",
		FragmentModule: p.module,
		FragmentEntry:  "fs_main",
		Topology:       gputypes.PrimitiveTopologyTriangleStrip,
		TargetFormat:   render.PixelFormat,
	})
	if err != nil {
		p.destroy(dev)
		return fmt.Errorf("create pipeline: %w", err)
	}

	p.updateBuf, err = dev.CreateBuffer(&render.BufferDescriptor{
		Label: label + "_update_uniforms",
		Size:  updateUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		p.destroy(dev)
		return fmt.Errorf("create update uniforms: %w", err)
	}

	p.sampler, err = dev.CreateSampler(&render.SamplerDescriptor{
		Label:       label + "_sampler",
		AddressMode: gputypes.AddressModeClampToEdge,
		Filter:      gputypes.FilterModeLinear,
	})
	if err != nil {
		p.destroy(dev)
		return fmt.Errorf("create sampler: %w", err)
	}

	p.updateGroup, err = dev.CreateBindGroup(&render.BindGroupDescriptor{
		Label:  label + "_update_group",
		Layout: p.updateLayout,
		Entries: []render.BindGroupEntry{
			{Binding: 0, Buffer: p.updateBuf},
			{Binding: 1, Sampler: p.sampler},
		},
	})
	if err != nil {
		p.destroy(dev)
		return fmt.Errorf("create update group: %w", err)
	}

	n.payload = p
	return nil
}

// discardPayload drops the built pipeline and every bind group created
// from its layouts.
func (n *effectNode) discardPayload() {
	dev := n.ctx.dev
	for _, ps := range n.chains {
		if ps.lastGroup != render.InvalidID {
			dev.DestroyBindGroup(ps.lastGroup)
			ps.lastGroup = render.InvalidID
		}
	}
	n.payload.destroy(dev)
}

// writeUpdateUniforms refreshes the chain-agnostic uniform block.
func (n *effectNode) writeUpdateUniforms() {
	var buf [updateUniformSize]byte
	le := binary.LittleEndian
	for i, a := range n.ctx.audio {
		le.PutUint32(buf[i*4:], math.Float32bits(float32(a)))
	}
	le.PutUint32(buf[16:], math.Float32bits(float32(n.ctx.dt)))
	le.PutUint32(buf[20:], math.Float32bits(float32(n.ctx.time)))
	le.PutUint32(buf[24:], math.Float32bits(float32(n.frequency)))
	le.PutUint32(buf[28:], math.Float32bits(float32(n.intensity)))
	le.PutUint32(buf[32:], math.Float32bits(float32(n.integral)))
	n.ctx.dev.WriteBuffer(n.payload.updateBuf, 0, buf[:])
}

func (n *effectNode) ensureChain(c *Chain) error {
	if _, ok := n.chains[c.id]; ok {
		return nil
	}
	out, err := render.NewOutputTexture(n.ctx.dev, c.width, c.height, "effect_output")
	if err != nil {
		return err
	}
	buf, err := n.ctx.dev.CreateBuffer(&render.BufferDescriptor{
		Label: "effect_paint_uniforms",
		Size:  paintUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		out.Release()
		return fmt.Errorf("create paint uniforms: %w", err)
	}
	n.chains[c.id] = &effectPaintState{output: out, paintBuf: buf}
	return nil
}

func (n *effectNode) dropChain(id ChainID) {
	ps := n.chains[id]
	if ps == nil {
		return
	}
	dev := n.ctx.dev
	if ps.lastGroup != render.InvalidID {
		dev.DestroyBindGroup(ps.lastGroup)
	}
	dev.DestroyBuffer(ps.paintBuf)
	ps.output.Release()
	delete(n.chains, id)
}

func (n *effectNode) paint(c *Chain, enc render.CommandEncoder, inputs []*render.TextureRef) (*render.TextureRef, error) {
	ps := n.chains[c.id]
	if n.state != StateReady || ps == nil {
		return c.blank, nil
	}
	dev := n.ctx.dev

	// Per-chain uniforms: resolution and the frame rate implied by dt.
	var ub [paintUniformSize]byte
	le := binary.LittleEndian
	le.PutUint32(ub[0:], math.Float32bits(float32(c.width)))
	le.PutUint32(ub[4:], math.Float32bits(float32(c.height)))
	fps := defaultFPS
	if n.ctx.dt > 0 {
		fps = 1 / n.ctx.dt
	}
	le.PutUint32(ub[8:], math.Float32bits(float32(fps)))
	dev.WriteBuffer(ps.paintBuf, 0, ub[:])

	// One entry per pipeline input port. The resolved inputs may cover
	// fewer ports while a plan refresh is pending; unmatched ports
	// sample the blank texture.
	entries := make([]render.BindGroupEntry, 0, paintInputBinding+n.current.inputs)
	entries = append(entries,
		render.BindGroupEntry{Binding: 0, Buffer: ps.paintBuf},
		render.BindGroupEntry{Binding: 1, TextureView: c.noise.View()},
	)
	for i := range n.current.inputs {
		in := c.blank
		if i < len(inputs) && inputs[i] != nil {
			in = inputs[i]
		}
		entries = append(entries, render.BindGroupEntry{
			Binding:     uint32(paintInputBinding + i),
			TextureView: in.View(),
		})
	}
	group, err := dev.CreateBindGroup(&render.BindGroupDescriptor{
		Label:   "effect_" + n.current.name + "_paint_group",
		Layout:  n.payload.paintLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("effect %q paint group: %w", n.current.name, err)
	}

	// The previous frame's group has been submitted; retire it now.
	if ps.lastGroup != render.InvalidID {
		dev.DestroyBindGroup(ps.lastGroup)
	}
	ps.lastGroup = group

	rp := enc.BeginRenderPass(&render.RenderPassDescriptor{
		Label:      "effect_" + n.current.name,
		View:       ps.output.View(),
		LoadOp:     gputypes.LoadOpClear,
		ClearValue: gputypes.Color{},
	})
	rp.SetPipeline(n.payload.pipeline)
	rp.SetBindGroup(0, n.payload.updateGroup)
	rp.SetBindGroup(1, group)
	rp.Draw(4, 1)
	rp.End()

	return ps.output, nil
}

func (n *effectNode) destroy() {
	for id := range n.chains {
		n.dropChain(id)
	}
	n.discardPayload()
	n.compile = nil
}
