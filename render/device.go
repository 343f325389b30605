// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"
)

// InvalidID is the zero value shared by all resource ID types.
// Create methods never return it for a live resource.
const InvalidID = 0

// Resource IDs issued by a Device.
//
// IDs are opaque, unique within their device, and become invalid after
// the resource is destroyed. Destroyed IDs are never reused.
type (
	// TextureID identifies a texture.
	TextureID uint64

	// TextureViewID identifies a view into a texture.
	TextureViewID uint64

	// SamplerID identifies a sampler.
	SamplerID uint64

	// BufferID identifies a buffer.
	BufferID uint64

	// ShaderModuleID identifies a compiled shader module.
	ShaderModuleID uint64

	// BindGroupLayoutID identifies a bind group layout.
	BindGroupLayoutID uint64

	// PipelineLayoutID identifies a pipeline layout.
	PipelineLayoutID uint64

	// RenderPipelineID identifies a render pipeline.
	RenderPipelineID uint64

	// BindGroupID identifies a bind group.
	BindGroupID uint64
)

// TextureDescriptor describes parameters for creating a 2D texture.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage
}

// BufferDescriptor describes parameters for creating a buffer.
type BufferDescriptor struct {
	// Label is an optional debug label for the buffer.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage
}

// SamplerDescriptor describes parameters for creating a sampler.
// The same address mode and filter apply to every axis.
type SamplerDescriptor struct {
	// Label is an optional debug label for the sampler.
	Label string

	// AddressMode controls sampling outside [0, 1] coordinates.
	AddressMode gputypes.AddressMode

	// Filter is used for magnification, minification and mip selection.
	Filter gputypes.FilterMode
}

// ShaderModuleDescriptor describes a shader module.
// SPIRV is used when non-empty; otherwise WGSL source is passed to the
// backend as-is.
type ShaderModuleDescriptor struct {
	// Label is an optional debug label for the module.
	Label string

	// WGSL is shader source text.
	WGSL string

	// SPIRV is pre-compiled bytecode as words.
	SPIRV []uint32
}

// BindGroupLayoutDescriptor describes the binding structure of one
// bind group slot.
type BindGroupLayoutDescriptor struct {
	// Label is an optional debug label for the layout.
	Label string

	// Entries describe each binding index.
	Entries []gputypes.BindGroupLayoutEntry
}

// PipelineLayoutDescriptor combines bind group layouts into a pipeline
// layout. Slot i of the pipeline uses BindGroupLayouts[i].
type PipelineLayoutDescriptor struct {
	// Label is an optional debug label for the layout.
	Label string

	// BindGroupLayouts are the layouts for each bind group slot.
	BindGroupLayouts []BindGroupLayoutID
}

// BindGroupEntry binds one resource to one binding index.
// Exactly one of Buffer, TextureView or Sampler is set; the device
// dispatches on whichever ID is non-zero.
type BindGroupEntry struct {
	// Binding is the binding index within the group.
	Binding uint32

	// Buffer, with Offset and Size, binds a buffer range.
	// Size 0 means the remainder of the buffer.
	Buffer BufferID
	Offset uint64
	Size   uint64

	// TextureView binds a sampled texture.
	TextureView TextureViewID

	// Sampler binds a filtering sampler.
	Sampler SamplerID
}

// BindGroupDescriptor describes a bind group: concrete resources
// attached to a layout.
type BindGroupDescriptor struct {
	// Label is an optional debug label for the group.
	Label string

	// Layout is the bind group layout this group conforms to.
	Layout BindGroupLayoutID

	// Entries are the resource bindings.
	Entries []BindGroupEntry
}

// RenderPipelineDescriptor describes a render pipeline with a single
// color target and no vertex buffers; vertex positions are generated in
// the vertex stage.
type RenderPipelineDescriptor struct {
	// Label is an optional debug label for the pipeline.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// VertexModule and VertexEntry name the vertex stage.
	VertexModule ShaderModuleID
	VertexEntry  string

	// FragmentModule and FragmentEntry name the fragment stage.
	FragmentModule ShaderModuleID
	FragmentEntry  string

	// Topology is the primitive topology.
	Topology gputypes.PrimitiveTopology

	// TargetFormat is the color target pixel format. It must match the
	// format of any texture the pipeline renders into.
	TargetFormat gputypes.TextureFormat
}

// RenderPassDescriptor describes a render pass with a single color
// attachment and no depth-stencil.
type RenderPassDescriptor struct {
	// Label is an optional debug label for the pass.
	Label string

	// View is the color attachment.
	View TextureViewID

	// LoadOp determines whether the attachment is cleared or loaded.
	LoadOp gputypes.LoadOp

	// ClearValue is used when LoadOp is LoadOpClear.
	ClearValue gputypes.Color
}

// Device abstracts a GPU device for the engine.
//
// Resource lifecycle:
//   - Resources are created via Create* methods and destroyed via the
//     matching Destroy* methods.
//   - Destroying a resource still referenced by queued commands is
//     undefined behavior; destroy after Submit has returned.
//   - Destroy* on an unknown ID is a no-op.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// Name identifies the backend, e.g. "native" or "software".
	Name() string

	// CreateTexture creates a 2D texture.
	CreateTexture(desc *TextureDescriptor) (TextureID, error)

	// DestroyTexture releases a texture.
	DestroyTexture(id TextureID)

	// WriteTexture uploads pixel data covering the whole texture.
	// len(data) must equal width*height*bytes-per-pixel.
	WriteTexture(id TextureID, data []byte)

	// ReadTexture reads back the whole texture as tightly packed pixels.
	// Backends without readback support return an error.
	ReadTexture(id TextureID) ([]byte, error)

	// CreateTextureView creates a full view of a texture.
	CreateTextureView(tex TextureID) (TextureViewID, error)

	// DestroyTextureView releases a texture view.
	DestroyTextureView(id TextureViewID)

	// CreateSampler creates a sampler.
	CreateSampler(desc *SamplerDescriptor) (SamplerID, error)

	// DestroySampler releases a sampler.
	DestroySampler(id SamplerID)

	// CreateBuffer creates a buffer.
	CreateBuffer(desc *BufferDescriptor) (BufferID, error)

	// DestroyBuffer releases a buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data into a buffer at the given offset.
	WriteBuffer(id BufferID, offset uint64, data []byte)

	// CreateShaderModule creates a shader module.
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout creates a pipeline layout.
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateRenderPipeline creates a render pipeline.
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipelineID, error)

	// DestroyRenderPipeline releases a render pipeline.
	DestroyRenderPipeline(id RenderPipelineID)

	// CreateBindGroup creates a bind group.
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// CreateCommandEncoder begins recording a new command buffer.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit executes finished command buffers and waits for completion.
	Submit(buffers ...CommandBuffer) error

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle()

	// Destroy releases the device and every resource it still tracks.
	Destroy()
}

// CommandEncoder records render passes into a command buffer.
// Encoders are single-use: after Finish they cannot be reused.
type CommandEncoder interface {
	// BeginRenderPass begins a render pass. The returned encoder must
	// be ended before beginning another pass or calling Finish.
	BeginRenderPass(desc *RenderPassDescriptor) RenderPassEncoder

	// Finish ends recording and returns the command buffer for Submit.
	Finish() (CommandBuffer, error)
}

// RenderPassEncoder records draw commands within one render pass.
type RenderPassEncoder interface {
	// SetPipeline sets the active render pipeline.
	SetPipeline(id RenderPipelineID)

	// SetBindGroup sets a bind group at the specified slot.
	SetBindGroup(index uint32, group BindGroupID)

	// Draw draws primitives from generated vertices.
	Draw(vertexCount, instanceCount uint32)

	// End finishes the render pass.
	End()
}

// CommandBuffer is an opaque recorded command stream produced by
// CommandEncoder.Finish and consumed by Device.Submit.
type CommandBuffer interface{}
