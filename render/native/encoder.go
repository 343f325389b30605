package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vfx/render"
)

// CreateCommandEncoder begins recording a new command buffer.
func (d *Device) CreateCommandEncoder(label string) (render.CommandEncoder, error) {
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: label,
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	return &commandEncoder{dev: d, enc: enc, label: label}, nil
}

// commandEncoder wraps a hal.CommandEncoder for one command buffer.
// It is not safe for concurrent use.
type commandEncoder struct {
	dev      *Device
	enc      hal.CommandEncoder
	label    string
	finished bool
}

var _ render.CommandEncoder = (*commandEncoder)(nil)

// BeginRenderPass starts a render pass targeting a single color
// attachment. An unknown target view yields an inert pass encoder.
func (e *commandEncoder) BeginRenderPass(desc *render.RenderPassDescriptor) render.RenderPassEncoder {
	view, ok := e.dev.lookupView(desc.View)
	if !ok {
		return &renderPass{dev: e.dev}
	}

	rp := e.enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     desc.LoadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: desc.ClearValue,
		}},
	})
	return &renderPass{dev: e.dev, rp: rp}
}

// Finish completes recording and returns the command buffer.
func (e *commandEncoder) Finish() (render.CommandBuffer, error) {
	if e.finished {
		return nil, fmt.Errorf("native: encoder %q already finished", e.label)
	}
	e.finished = true

	buf, err := e.enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return &commandBuffer{buf: buf}, nil
}

// commandBuffer holds a finished hal command buffer until submission.
type commandBuffer struct {
	buf hal.CommandBuffer
}

// renderPass records draw commands into a hal render pass.
type renderPass struct {
	dev   *Device
	rp    hal.RenderPassEncoder
	ended bool
}

var _ render.RenderPassEncoder = (*renderPass)(nil)

// SetPipeline binds a render pipeline for subsequent draw calls.
func (p *renderPass) SetPipeline(id render.RenderPipelineID) {
	if p.ended || p.rp == nil {
		return
	}
	if pipeline, ok := p.dev.lookupRenderPipeline(id); ok {
		p.rp.SetPipeline(pipeline)
	}
}

// SetBindGroup binds a bind group at the specified slot.
func (p *renderPass) SetBindGroup(index uint32, group render.BindGroupID) {
	if p.ended || p.rp == nil {
		return
	}
	if bindGroup, ok := p.dev.lookupBindGroup(group); ok {
		p.rp.SetBindGroup(index, bindGroup, nil)
	}
}

// Draw draws instanced primitives without vertex buffers.
func (p *renderPass) Draw(vertexCount, instanceCount uint32) {
	if p.ended || p.rp == nil {
		return
	}
	p.rp.Draw(vertexCount, instanceCount, 0, 0)
}

// End ends the render pass.
func (p *renderPass) End() {
	if p.ended {
		return
	}
	p.ended = true
	if p.rp != nil {
		p.rp.End()
	}
}
