// Package native implements render.Device on the gogpu/wgpu HAL layer.
//
// The device does not create its own GPU instance. It wraps a hal.Device
// and hal.Queue handed over by the host, typically extracted from a
// gpucontext.DeviceProvider via FromProvider.
package native

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vfx/render"
)

// Name is the backend identifier in the render registry.
const Name = "native"

// gpuWaitTimeout bounds fence waits after submission.
const gpuWaitTimeout = 5 * time.Second

// textureEntry tracks a HAL texture together with the metadata needed
// for writes, views, and readback.
type textureEntry struct {
	tex    hal.Texture
	width  uint32
	height uint32
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage
}

// Device implements render.Device using gogpu/wgpu/hal directly.
//
// Thread Safety: Device is safe for concurrent use from multiple goroutines.
// All resource operations are protected by a mutex.
type Device struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue

	// ID generation
	nextID atomic.Uint64

	// Resource tracking maps render IDs to hal resources
	textures         map[render.TextureID]*textureEntry
	views            map[render.TextureViewID]hal.TextureView
	samplers         map[render.SamplerID]hal.Sampler
	buffers          map[render.BufferID]hal.Buffer
	shaderModules    map[render.ShaderModuleID]hal.ShaderModule
	bindGroupLayouts map[render.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[render.PipelineLayoutID]hal.PipelineLayout
	renderPipelines  map[render.RenderPipelineID]hal.RenderPipeline
	bindGroups       map[render.BindGroupID]hal.BindGroup
}

var _ render.Device = (*Device)(nil)

// NewDevice wraps an existing HAL device and queue. The caller retains
// ownership of both; Destroy releases tracked resources but not the
// underlying device.
func NewDevice(device hal.Device, queue hal.Queue) *Device {
	d := &Device{
		device:           device,
		queue:            queue,
		textures:         make(map[render.TextureID]*textureEntry),
		views:            make(map[render.TextureViewID]hal.TextureView),
		samplers:         make(map[render.SamplerID]hal.Sampler),
		buffers:          make(map[render.BufferID]hal.Buffer),
		shaderModules:    make(map[render.ShaderModuleID]hal.ShaderModule),
		bindGroupLayouts: make(map[render.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[render.PipelineLayoutID]hal.PipelineLayout),
		renderPipelines:  make(map[render.RenderPipelineID]hal.RenderPipeline),
		bindGroups:       make(map[render.BindGroupID]hal.BindGroup),
	}
	d.nextID.Store(1)
	return d
}

// Name identifies the backend.
func (d *Device) Name() string { return Name }

// newID generates a unique resource ID.
func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// === Textures ===

// CreateTexture creates a 2D GPU texture.
func (d *Device) CreateTexture(desc *render.TextureDescriptor) (render.TextureID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return render.InvalidID, fmt.Errorf("native: texture dimensions must be positive, got %dx%d", desc.Width, desc.Height)
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create texture: %w", err)
	}

	id := render.TextureID(d.newID())

	d.mu.Lock()
	d.textures[id] = &textureEntry{
		tex:    tex,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		usage:  desc.Usage,
	}
	d.mu.Unlock()

	return id, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id render.TextureID) {
	d.mu.Lock()
	entry, ok := d.textures[id]
	if ok {
		delete(d.textures, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyTexture(entry.tex)
	}
}

// WriteTexture uploads tightly packed RGBA pixel data to a texture.
func (d *Device) WriteTexture(id render.TextureID, data []byte) {
	d.mu.RLock()
	entry, ok := d.textures[id]
	d.mu.RUnlock()

	if !ok || len(data) == 0 {
		return
	}

	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  entry.tex,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  entry.width * 4,
			RowsPerImage: entry.height,
		},
		&hal.Extent3D{Width: entry.width, Height: entry.height, DepthOrArrayLayers: 1},
	)
}

// ReadTexture copies a texture to a staging buffer and reads the pixels
// back to the CPU. The returned data is tightly packed RGBA.
func (d *Device) ReadTexture(id render.TextureID) ([]byte, error) {
	d.mu.RLock()
	entry, ok := d.textures[id]
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("native: texture %d not found", id)
	}

	w, h := entry.width, entry.height

	// WebGPU (and DX12) requires BytesPerRow aligned to 256 bytes.
	bytesPerRow := w * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "readback_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(stagingBuf)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	// Render targets sit in attachment layout after a pass; copies need
	// the transfer-source layout. No-op on Metal, GLES, and software.
	fromAttachment := entry.usage&gputypes.TextureUsageRenderAttachment != 0
	if fromAttachment {
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: entry.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
	}

	encoder.CopyTextureToBuffer(entry.tex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: entry.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})

	if fromAttachment {
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: entry.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return nil, fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	if alignedBytesPerRow == bytesPerRow {
		return readback[:uint64(bytesPerRow)*uint64(h)], nil
	}

	// Strip per-row padding from the aligned readback data.
	tight := make([]byte, uint64(bytesPerRow)*uint64(h))
	for row := uint32(0); row < h; row++ {
		srcOff := int(row) * int(alignedBytesPerRow)
		dstOff := int(row) * int(bytesPerRow)
		copy(tight[dstOff:dstOff+int(bytesPerRow)], readback[srcOff:srcOff+int(bytesPerRow)])
	}
	return tight, nil
}

// CreateTextureView creates a full 2D view of a texture.
func (d *Device) CreateTextureView(tex render.TextureID) (render.TextureViewID, error) {
	d.mu.RLock()
	entry, ok := d.textures[tex]
	d.mu.RUnlock()

	if !ok {
		return render.InvalidID, fmt.Errorf("native: texture %d not found", tex)
	}

	view, err := d.device.CreateTextureView(entry.tex, &hal.TextureViewDescriptor{
		Format:        entry.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create texture view: %w", err)
	}

	id := render.TextureViewID(d.newID())

	d.mu.Lock()
	d.views[id] = view
	d.mu.Unlock()

	return id, nil
}

// DestroyTextureView releases a texture view.
func (d *Device) DestroyTextureView(id render.TextureViewID) {
	d.mu.Lock()
	view, ok := d.views[id]
	if ok {
		delete(d.views, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyTextureView(view)
	}
}

// === Samplers ===

// CreateSampler creates a sampler.
func (d *Device) CreateSampler(desc *render.SamplerDescriptor) (render.SamplerID, error) {
	sampler, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: desc.AddressMode,
		AddressModeV: desc.AddressMode,
		AddressModeW: desc.AddressMode,
		MagFilter:    desc.Filter,
		MinFilter:    desc.Filter,
		MipmapFilter: desc.Filter,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create sampler: %w", err)
	}

	id := render.SamplerID(d.newID())

	d.mu.Lock()
	d.samplers[id] = sampler
	d.mu.Unlock()

	return id, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(id render.SamplerID) {
	d.mu.Lock()
	sampler, ok := d.samplers[id]
	if ok {
		delete(d.samplers, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroySampler(sampler)
	}
}

// === Buffers ===

// CreateBuffer creates a GPU buffer.
func (d *Device) CreateBuffer(desc *render.BufferDescriptor) (render.BufferID, error) {
	if desc.Size == 0 {
		return render.InvalidID, fmt.Errorf("native: buffer size must be positive")
	}

	buffer, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create buffer: %w", err)
	}

	id := render.BufferID(d.newID())

	d.mu.Lock()
	d.buffers[id] = buffer
	d.mu.Unlock()

	return id, nil
}

// DestroyBuffer releases a GPU buffer.
func (d *Device) DestroyBuffer(id render.BufferID) {
	d.mu.Lock()
	buffer, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyBuffer(buffer)
	}
}

// WriteBuffer writes data to a buffer.
func (d *Device) WriteBuffer(id render.BufferID, offset uint64, data []byte) {
	d.mu.RLock()
	buffer, ok := d.buffers[id]
	d.mu.RUnlock()

	if ok && len(data) > 0 {
		d.queue.WriteBuffer(buffer, offset, data)
	}
}

// === Shader modules ===

// CreateShaderModule creates a shader module. SPIR-V bytecode is
// preferred when both sources are present.
func (d *Device) CreateShaderModule(desc *render.ShaderModuleDescriptor) (render.ShaderModuleID, error) {
	var source hal.ShaderSource
	switch {
	case len(desc.SPIRV) > 0:
		source = hal.ShaderSource{SPIRV: desc.SPIRV}
	case desc.WGSL != "":
		source = hal.ShaderSource{WGSL: desc.WGSL}
	default:
		return render.InvalidID, fmt.Errorf("native: empty shader module %q", desc.Label)
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: source,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create shader module: %w", err)
	}

	id := render.ShaderModuleID(d.newID())

	d.mu.Lock()
	d.shaderModules[id] = module
	d.mu.Unlock()

	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id render.ShaderModuleID) {
	d.mu.Lock()
	module, ok := d.shaderModules[id]
	if ok {
		delete(d.shaderModules, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyShaderModule(module)
	}
}

// === Pipelines ===

// CreateBindGroupLayout creates a bind group layout.
func (d *Device) CreateBindGroupLayout(desc *render.BindGroupLayoutDescriptor) (render.BindGroupLayoutID, error) {
	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: desc.Entries,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create bind group layout: %w", err)
	}

	id := render.BindGroupLayoutID(d.newID())

	d.mu.Lock()
	d.bindGroupLayouts[id] = layout
	d.mu.Unlock()

	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (d *Device) DestroyBindGroupLayout(id render.BindGroupLayoutID) {
	d.mu.Lock()
	layout, ok := d.bindGroupLayouts[id]
	if ok {
		delete(d.bindGroupLayouts, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyBindGroupLayout(layout)
	}
}

// CreatePipelineLayout creates a pipeline layout from bind group layouts.
func (d *Device) CreatePipelineLayout(desc *render.PipelineLayoutDescriptor) (render.PipelineLayoutID, error) {
	d.mu.RLock()
	halLayouts := make([]hal.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, lid := range desc.BindGroupLayouts {
		layout, ok := d.bindGroupLayouts[lid]
		if !ok {
			d.mu.RUnlock()
			return render.InvalidID, fmt.Errorf("native: bind group layout %d not found", lid)
		}
		halLayouts[i] = layout
	}
	d.mu.RUnlock()

	pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	id := render.PipelineLayoutID(d.newID())

	d.mu.Lock()
	d.pipelineLayouts[id] = pipelineLayout
	d.mu.Unlock()

	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (d *Device) DestroyPipelineLayout(id render.PipelineLayoutID) {
	d.mu.Lock()
	layout, ok := d.pipelineLayouts[id]
	if ok {
		delete(d.pipelineLayouts, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyPipelineLayout(layout)
	}
}

// CreateRenderPipeline creates a render pipeline. The pipeline draws
// without vertex buffers and writes the target with no blending.
func (d *Device) CreateRenderPipeline(desc *render.RenderPipelineDescriptor) (render.RenderPipelineID, error) {
	d.mu.RLock()
	layout, ok := d.pipelineLayouts[desc.Layout]
	if !ok {
		d.mu.RUnlock()
		return render.InvalidID, fmt.Errorf("native: pipeline layout %d not found", desc.Layout)
	}
	vertModule, ok := d.shaderModules[desc.VertexModule]
	if !ok {
		d.mu.RUnlock()
		return render.InvalidID, fmt.Errorf("native: vertex module %d not found", desc.VertexModule)
	}
	fragModule, ok := d.shaderModules[desc.FragmentModule]
	if !ok {
		d.mu.RUnlock()
		return render.InvalidID, fmt.Errorf("native: fragment module %d not found", desc.FragmentModule)
	}
	d.mu.RUnlock()

	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vertModule,
			EntryPoint: desc.VertexEntry,
		},
		Fragment: &hal.FragmentState{
			Module:     fragModule,
			EntryPoint: desc.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    desc.TargetFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create render pipeline: %w", err)
	}

	id := render.RenderPipelineID(d.newID())

	d.mu.Lock()
	d.renderPipelines[id] = pipeline
	d.mu.Unlock()

	return id, nil
}

// DestroyRenderPipeline releases a render pipeline.
func (d *Device) DestroyRenderPipeline(id render.RenderPipelineID) {
	d.mu.Lock()
	pipeline, ok := d.renderPipelines[id]
	if ok {
		delete(d.renderPipelines, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyRenderPipeline(pipeline)
	}
}

// CreateBindGroup creates a bind group.
func (d *Device) CreateBindGroup(desc *render.BindGroupDescriptor) (render.BindGroupID, error) {
	d.mu.RLock()
	layout, ok := d.bindGroupLayouts[desc.Layout]
	if !ok {
		d.mu.RUnlock()
		return render.InvalidID, fmt.Errorf("native: bind group layout %d not found", desc.Layout)
	}

	entries := make([]gputypes.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		converted, err := d.convertBindGroupEntry(e)
		if err != nil {
			d.mu.RUnlock()
			return render.InvalidID, err
		}
		entries[i] = converted
	}
	d.mu.RUnlock()

	bindGroup, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return render.InvalidID, fmt.Errorf("failed to create bind group: %w", err)
	}

	id := render.BindGroupID(d.newID())

	d.mu.Lock()
	d.bindGroups[id] = bindGroup
	d.mu.Unlock()

	return id, nil
}

// convertBindGroupEntry converts a render.BindGroupEntry to a
// gputypes.BindGroupEntry. Must be called with mu held.
func (d *Device) convertBindGroupEntry(entry render.BindGroupEntry) (gputypes.BindGroupEntry, error) {
	result := gputypes.BindGroupEntry{
		Binding: entry.Binding,
	}

	// Determine resource type based on which ID is non-zero
	switch {
	case entry.Buffer != render.InvalidID:
		buffer, ok := d.buffers[entry.Buffer]
		if !ok {
			return result, fmt.Errorf("native: buffer %d not found", entry.Buffer)
		}
		result.Resource = gputypes.BufferBinding{
			Buffer: buffer.NativeHandle(),
			Offset: entry.Offset,
			Size:   entry.Size,
		}
	case entry.TextureView != render.InvalidID:
		if _, ok := d.views[entry.TextureView]; !ok {
			return result, fmt.Errorf("native: texture view %d not found", entry.TextureView)
		}
		result.Resource = gputypes.TextureViewBinding{
			TextureView: uintptr(uint64(entry.TextureView)),
		}
	case entry.Sampler != render.InvalidID:
		if _, ok := d.samplers[entry.Sampler]; !ok {
			return result, fmt.Errorf("native: sampler %d not found", entry.Sampler)
		}
		result.Resource = gputypes.SamplerBinding{
			Sampler: uintptr(uint64(entry.Sampler)),
		}
	default:
		return result, fmt.Errorf("native: binding %d has no resource", entry.Binding)
	}

	return result, nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id render.BindGroupID) {
	d.mu.Lock()
	group, ok := d.bindGroups[id]
	if ok {
		delete(d.bindGroups, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyBindGroup(group)
	}
}

// === Submission ===

// Submit sends finished command buffers to the queue and waits for the
// GPU to complete them.
func (d *Device) Submit(buffers ...render.CommandBuffer) error {
	if len(buffers) == 0 {
		return nil
	}

	halBuffers := make([]hal.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb, ok := b.(*commandBuffer)
		if !ok {
			return fmt.Errorf("native: foreign command buffer %T", b)
		}
		halBuffers = append(halBuffers, cb.buf)
	}

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(halBuffers, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, gpuWaitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}

	for _, hb := range halBuffers {
		d.device.FreeCommandBuffer(hb)
	}
	return nil
}

// WaitIdle blocks until the queue has drained.
func (d *Device) WaitIdle() {
	fence, err := d.device.CreateFence()
	if err != nil {
		return
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(nil, fence, 1); err != nil {
		return
	}
	_, _ = d.device.Wait(fence, 1, gpuWaitTimeout)
}

// Destroy releases every tracked resource. The wrapped HAL device and
// queue stay alive; they belong to the host.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, group := range d.bindGroups {
		d.device.DestroyBindGroup(group)
		delete(d.bindGroups, id)
	}
	for id, pipeline := range d.renderPipelines {
		d.device.DestroyRenderPipeline(pipeline)
		delete(d.renderPipelines, id)
	}
	for id, layout := range d.pipelineLayouts {
		d.device.DestroyPipelineLayout(layout)
		delete(d.pipelineLayouts, id)
	}
	for id, layout := range d.bindGroupLayouts {
		d.device.DestroyBindGroupLayout(layout)
		delete(d.bindGroupLayouts, id)
	}
	for id, module := range d.shaderModules {
		d.device.DestroyShaderModule(module)
		delete(d.shaderModules, id)
	}
	for id, buffer := range d.buffers {
		d.device.DestroyBuffer(buffer)
		delete(d.buffers, id)
	}
	for id, sampler := range d.samplers {
		d.device.DestroySampler(sampler)
		delete(d.samplers, id)
	}
	// Views before their textures.
	for id, view := range d.views {
		d.device.DestroyTextureView(view)
		delete(d.views, id)
	}
	for id, entry := range d.textures {
		d.device.DestroyTexture(entry.tex)
		delete(d.textures, id)
	}
}

// lookupView resolves a view ID for command recording.
func (d *Device) lookupView(id render.TextureViewID) (hal.TextureView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	view, ok := d.views[id]
	return view, ok
}

// lookupRenderPipeline resolves a pipeline ID for command recording.
func (d *Device) lookupRenderPipeline(id render.RenderPipelineID) (hal.RenderPipeline, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pipeline, ok := d.renderPipelines[id]
	return pipeline, ok
}

// lookupBindGroup resolves a bind group ID for command recording.
func (d *Device) lookupBindGroup(id render.BindGroupID) (hal.BindGroup, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	group, ok := d.bindGroups[id]
	return group, ok
}
