// Package software is a CPU reference implementation of render.Device.
//
// It tracks every resource in memory, validates the same invariants a
// GPU backend would, and replays submitted render passes with
// deterministic fills so tests can assert on pixels and on the command
// log without any GPU. It registers itself at low priority as the
// fallback backend.
package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vfx/render"
)

// Name is the backend identifier in the render registry.
const Name = "software"

func init() {
	render.Register(Name, 10, nil, func() (render.Device, error) {
		return New(), nil
	})
}

// DrawCall is one recorded draw within a render pass.
type DrawCall struct {
	Pipeline      render.RenderPipelineID
	BindGroups    map[uint32]render.BindGroupID
	VertexCount   uint32
	InstanceCount uint32
}

// PassRecord is one recorded render pass.
type PassRecord struct {
	Label  string
	Target render.TextureViewID
	LoadOp gputypes.LoadOp
	Clear  gputypes.Color
	Draws  []DrawCall
}

type texture struct {
	label  string
	width  uint32
	height uint32
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage
	pixels []byte
}

type buffer struct {
	label string
	data  []byte
	usage gputypes.BufferUsage
}

type shaderModule struct {
	label string
	wgsl  string
	spirv []uint32
}

// Device implements render.Device entirely on the CPU.
//
// Thread safety: Device is safe for concurrent use. All resource
// operations are protected by a mutex.
type Device struct {
	mu sync.RWMutex

	// ID generation. 0 is render.InvalidID.
	nextID atomic.Uint64

	textures         map[render.TextureID]*texture
	views            map[render.TextureViewID]render.TextureID
	samplers         map[render.SamplerID]render.SamplerDescriptor
	buffers          map[render.BufferID]*buffer
	shaderModules    map[render.ShaderModuleID]*shaderModule
	bindGroupLayouts map[render.BindGroupLayoutID][]gputypes.BindGroupLayoutEntry
	pipelineLayouts  map[render.PipelineLayoutID][]render.BindGroupLayoutID
	renderPipelines  map[render.RenderPipelineID]render.RenderPipelineDescriptor
	bindGroups       map[render.BindGroupID]render.BindGroupDescriptor

	// submitted accumulates every pass executed by Submit, in order.
	submitted []PassRecord
}

var _ render.Device = (*Device)(nil)

// New creates an empty software device.
func New() *Device {
	d := &Device{
		textures:         make(map[render.TextureID]*texture),
		views:            make(map[render.TextureViewID]render.TextureID),
		samplers:         make(map[render.SamplerID]render.SamplerDescriptor),
		buffers:          make(map[render.BufferID]*buffer),
		shaderModules:    make(map[render.ShaderModuleID]*shaderModule),
		bindGroupLayouts: make(map[render.BindGroupLayoutID][]gputypes.BindGroupLayoutEntry),
		pipelineLayouts:  make(map[render.PipelineLayoutID][]render.BindGroupLayoutID),
		renderPipelines:  make(map[render.RenderPipelineID]render.RenderPipelineDescriptor),
		bindGroups:       make(map[render.BindGroupID]render.BindGroupDescriptor),
	}
	d.nextID.Store(1)
	return d
}

// Name identifies the backend.
func (d *Device) Name() string { return Name }

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// === Textures ===

// CreateTexture creates a 2D texture backed by a pixel slice.
func (d *Device) CreateTexture(desc *render.TextureDescriptor) (render.TextureID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return render.InvalidID, fmt.Errorf("software: texture dimensions must be positive, got %dx%d", desc.Width, desc.Height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := render.TextureID(d.newID())
	d.textures[id] = &texture{
		label:  desc.Label,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		usage:  desc.Usage,
		pixels: make([]byte, int(desc.Width)*int(desc.Height)*4),
	}
	return id, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id render.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, id)
}

// WriteTexture copies pixel data into a texture.
func (d *Device) WriteTexture(id render.TextureID, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return
	}
	copy(tex.pixels, data)
}

// ReadTexture returns a copy of the texture's pixels.
func (d *Device) ReadTexture(id render.TextureID) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	tex, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("software: texture %d not found", id)
	}
	out := make([]byte, len(tex.pixels))
	copy(out, tex.pixels)
	return out, nil
}

// CreateTextureView creates a full view of a texture.
func (d *Device) CreateTextureView(tex render.TextureID) (render.TextureViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[tex]; !ok {
		return render.InvalidID, fmt.Errorf("software: texture %d not found", tex)
	}
	id := render.TextureViewID(d.newID())
	d.views[id] = tex
	return id, nil
}

// DestroyTextureView releases a texture view.
func (d *Device) DestroyTextureView(id render.TextureViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.views, id)
}

// === Samplers ===

// CreateSampler creates a sampler.
func (d *Device) CreateSampler(desc *render.SamplerDescriptor) (render.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := render.SamplerID(d.newID())
	d.samplers[id] = *desc
	return id, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(id render.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.samplers, id)
}

// === Buffers ===

// CreateBuffer creates a buffer.
func (d *Device) CreateBuffer(desc *render.BufferDescriptor) (render.BufferID, error) {
	if desc.Size == 0 {
		return render.InvalidID, fmt.Errorf("software: buffer size must be positive")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := render.BufferID(d.newID())
	d.buffers[id] = &buffer{
		label: desc.Label,
		data:  make([]byte, desc.Size),
		usage: desc.Usage,
	}
	return id, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id render.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

// WriteBuffer writes data into a buffer at the given offset.
// Writes past the end of the buffer are clipped.
func (d *Device) WriteBuffer(id render.BufferID, offset uint64, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[id]
	if !ok {
		return
	}
	if offset >= uint64(len(buf.data)) {
		return
	}
	copy(buf.data[offset:], data)
}

// === Shader modules ===

// CreateShaderModule records a shader module. The software device does
// not execute shaders; the module only needs to exist.
func (d *Device) CreateShaderModule(desc *render.ShaderModuleDescriptor) (render.ShaderModuleID, error) {
	if len(desc.SPIRV) == 0 && desc.WGSL == "" {
		return render.InvalidID, fmt.Errorf("software: empty shader module %q", desc.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := render.ShaderModuleID(d.newID())
	d.shaderModules[id] = &shaderModule{label: desc.Label, wgsl: desc.WGSL, spirv: desc.SPIRV}
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id render.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaderModules, id)
}

// === Pipelines ===

// CreateBindGroupLayout creates a bind group layout.
func (d *Device) CreateBindGroupLayout(desc *render.BindGroupLayoutDescriptor) (render.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := render.BindGroupLayoutID(d.newID())
	d.bindGroupLayouts[id] = append([]gputypes.BindGroupLayoutEntry(nil), desc.Entries...)
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (d *Device) DestroyBindGroupLayout(id render.BindGroupLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindGroupLayouts, id)
}

// CreatePipelineLayout creates a pipeline layout.
func (d *Device) CreatePipelineLayout(desc *render.PipelineLayoutDescriptor) (render.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, l := range desc.BindGroupLayouts {
		if _, ok := d.bindGroupLayouts[l]; !ok {
			return render.InvalidID, fmt.Errorf("software: bind group layout %d not found", l)
		}
	}
	id := render.PipelineLayoutID(d.newID())
	d.pipelineLayouts[id] = append([]render.BindGroupLayoutID(nil), desc.BindGroupLayouts...)
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (d *Device) DestroyPipelineLayout(id render.PipelineLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelineLayouts, id)
}

// CreateRenderPipeline creates a render pipeline.
func (d *Device) CreateRenderPipeline(desc *render.RenderPipelineDescriptor) (render.RenderPipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.pipelineLayouts[desc.Layout]; !ok {
		return render.InvalidID, fmt.Errorf("software: pipeline layout %d not found", desc.Layout)
	}
	if _, ok := d.shaderModules[desc.VertexModule]; !ok {
		return render.InvalidID, fmt.Errorf("software: vertex module %d not found", desc.VertexModule)
	}
	if _, ok := d.shaderModules[desc.FragmentModule]; !ok {
		return render.InvalidID, fmt.Errorf("software: fragment module %d not found", desc.FragmentModule)
	}
	id := render.RenderPipelineID(d.newID())
	d.renderPipelines[id] = *desc
	return id, nil
}

// DestroyRenderPipeline releases a render pipeline.
func (d *Device) DestroyRenderPipeline(id render.RenderPipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.renderPipelines, id)
}

// CreateBindGroup creates a bind group, validating that every
// referenced resource exists.
func (d *Device) CreateBindGroup(desc *render.BindGroupDescriptor) (render.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.bindGroupLayouts[desc.Layout]; !ok {
		return render.InvalidID, fmt.Errorf("software: bind group layout %d not found", desc.Layout)
	}
	for _, e := range desc.Entries {
		switch {
		case e.Buffer != render.InvalidID:
			if _, ok := d.buffers[e.Buffer]; !ok {
				return render.InvalidID, fmt.Errorf("software: buffer %d not found at binding %d", e.Buffer, e.Binding)
			}
		case e.TextureView != render.InvalidID:
			if _, ok := d.views[e.TextureView]; !ok {
				return render.InvalidID, fmt.Errorf("software: texture view %d not found at binding %d", e.TextureView, e.Binding)
			}
		case e.Sampler != render.InvalidID:
			if _, ok := d.samplers[e.Sampler]; !ok {
				return render.InvalidID, fmt.Errorf("software: sampler %d not found at binding %d", e.Sampler, e.Binding)
			}
		default:
			return render.InvalidID, fmt.Errorf("software: binding %d has no resource", e.Binding)
		}
	}

	id := render.BindGroupID(d.newID())
	stored := *desc
	stored.Entries = append([]render.BindGroupEntry(nil), desc.Entries...)
	d.bindGroups[id] = stored
	return id, nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id render.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindGroups, id)
}

// === Command recording ===

// CreateCommandEncoder begins recording a new command buffer.
func (d *Device) CreateCommandEncoder(label string) (render.CommandEncoder, error) {
	return &commandEncoder{dev: d, label: label}, nil
}

// Submit replays finished command buffers: clears and deterministic
// draw fills are applied to the target textures, and every pass is
// appended to the device's command log.
func (d *Device) Submit(buffers ...render.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, b := range buffers {
		cb, ok := b.(*commandBuffer)
		if !ok {
			return fmt.Errorf("software: foreign command buffer %T", b)
		}
		for _, pass := range cb.passes {
			d.replayPass(pass)
			d.submitted = append(d.submitted, pass)
		}
	}
	return nil
}

// WaitIdle is a no-op: Submit completes synchronously.
func (d *Device) WaitIdle() {}

// Destroy releases every tracked resource and clears the command log.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	clear(d.textures)
	clear(d.views)
	clear(d.samplers)
	clear(d.buffers)
	clear(d.shaderModules)
	clear(d.bindGroupLayouts)
	clear(d.pipelineLayouts)
	clear(d.renderPipelines)
	clear(d.bindGroups)
	d.submitted = nil
}

// replayPass applies a recorded pass to its target texture.
// Must be called with mu held.
func (d *Device) replayPass(pass PassRecord) {
	tid, ok := d.views[pass.Target]
	if !ok {
		return
	}
	tex, ok := d.textures[tid]
	if !ok {
		return
	}

	if pass.LoadOp == gputypes.LoadOpClear {
		texel := [4]byte{
			colorByte(pass.Clear.R),
			colorByte(pass.Clear.G),
			colorByte(pass.Clear.B),
			colorByte(pass.Clear.A),
		}
		for i := 0; i+4 <= len(tex.pixels); i += 4 {
			copy(tex.pixels[i:], texel[:])
		}
	}

	// Draws fill the whole target with a pattern derived from the
	// pipeline ID, so distinct pipelines produce distinct pixels.
	for _, draw := range pass.Draws {
		texel := fillPattern(draw.Pipeline)
		for i := 0; i+4 <= len(tex.pixels); i += 4 {
			copy(tex.pixels[i:], texel[:])
		}
	}
}

func colorByte(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v*255 + 0.5)
	}
}

// fillPattern is the deterministic texel a draw with the given
// pipeline produces.
func fillPattern(p render.RenderPipelineID) [4]byte {
	return [4]byte{byte(p), byte(p >> 8), 0x5A, 0xFF}
}

// === Test inspection ===

// SubmittedPasses returns a copy of the device's command log.
func (d *Device) SubmittedPasses() []PassRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]PassRecord(nil), d.submitted...)
}

// ResetLog clears the command log without touching resources.
func (d *Device) ResetLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitted = nil
}

// ResourceCounts reports how many live resources of each kind the
// device tracks, keyed by kind name.
func (d *Device) ResourceCounts() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return map[string]int{
		"textures":           len(d.textures),
		"views":              len(d.views),
		"samplers":           len(d.samplers),
		"buffers":            len(d.buffers),
		"shader_modules":     len(d.shaderModules),
		"bind_group_layouts": len(d.bindGroupLayouts),
		"pipeline_layouts":   len(d.pipelineLayouts),
		"render_pipelines":   len(d.renderPipelines),
		"bind_groups":        len(d.bindGroups),
	}
}

// BufferData returns a copy of a buffer's contents, for tests that
// assert on uniform uploads.
func (d *Device) BufferData(id render.BufferID) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	buf, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("software: buffer %d not found", id)
	}
	out := make([]byte, len(buf.data))
	copy(out, buf.data)
	return out, nil
}

// BindGroup returns a copy of a bind group's descriptor, for tests
// that assert on resolved bindings.
func (d *Device) BindGroup(id render.BindGroupID) (render.BindGroupDescriptor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	g, ok := d.bindGroups[id]
	if !ok {
		return render.BindGroupDescriptor{}, fmt.Errorf("software: bind group %d not found", id)
	}
	g.Entries = append([]render.BindGroupEntry(nil), g.Entries...)
	return g, nil
}

// === Encoder ===

// commandEncoder records passes for one command buffer.
// It is not safe for concurrent use; one goroutine records at a time.
type commandEncoder struct {
	dev      *Device
	label    string
	passes   []PassRecord
	active   bool
	finished bool
}

var _ render.CommandEncoder = (*commandEncoder)(nil)

// BeginRenderPass begins recording a render pass.
func (e *commandEncoder) BeginRenderPass(desc *render.RenderPassDescriptor) render.RenderPassEncoder {
	e.passes = append(e.passes, PassRecord{
		Label:  desc.Label,
		Target: desc.View,
		LoadOp: desc.LoadOp,
		Clear:  desc.ClearValue,
	})
	e.active = true
	return &passEncoder{enc: e, idx: len(e.passes) - 1}
}

// Finish ends recording and returns the command buffer.
func (e *commandEncoder) Finish() (render.CommandBuffer, error) {
	if e.finished {
		return nil, fmt.Errorf("software: encoder %q already finished", e.label)
	}
	if e.active {
		return nil, fmt.Errorf("software: encoder %q finished with an open render pass", e.label)
	}
	e.finished = true
	return &commandBuffer{passes: e.passes}, nil
}

type commandBuffer struct {
	passes []PassRecord
}

// passEncoder records draws into one pass of its parent encoder.
type passEncoder struct {
	enc        *commandEncoder
	idx        int
	pipeline   render.RenderPipelineID
	bindGroups map[uint32]render.BindGroupID
	ended      bool
}

var _ render.RenderPassEncoder = (*passEncoder)(nil)

// SetPipeline sets the active render pipeline.
func (p *passEncoder) SetPipeline(id render.RenderPipelineID) {
	p.pipeline = id
}

// SetBindGroup sets a bind group at the specified slot.
func (p *passEncoder) SetBindGroup(index uint32, group render.BindGroupID) {
	if p.bindGroups == nil {
		p.bindGroups = make(map[uint32]render.BindGroupID)
	}
	p.bindGroups[index] = group
}

// Draw records a draw call with the current pipeline and bind groups.
func (p *passEncoder) Draw(vertexCount, instanceCount uint32) {
	if p.ended {
		return
	}
	groups := make(map[uint32]render.BindGroupID, len(p.bindGroups))
	for k, v := range p.bindGroups {
		groups[k] = v
	}
	pass := &p.enc.passes[p.idx]
	pass.Draws = append(pass.Draws, DrawCall{
		Pipeline:      p.pipeline,
		BindGroups:    groups,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
	})
}

// End finishes the render pass.
func (p *passEncoder) End() {
	p.ended = true
	p.enc.active = false
}
