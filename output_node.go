package vfx

import (
	"github.com/gogpu/vfx/render"
)

// outputNode marks where frames leave the graph. It passes its single
// input through unchanged and records no commands; the driver presents
// the passed-through texture to sinks when the output is visible.
// Window and swapchain management stay with the host.
type outputNode struct {
	visible bool
	started bool
}

func newOutputNode(*Context) *outputNode { return &outputNode{} }

func (n *outputNode) status() NodeStatus {
	state := StateUninitialized
	if n.started {
		state = StateReady
	}
	return NodeStatus{Kind: KindOutput, State: state}
}

func (n *outputNode) update(props NodeProps) error {
	p := props.(*OutputProps)
	n.visible = p.Visible
	n.started = true
	return nil
}

func (n *outputNode) ensureChain(*Chain) error { return nil }

func (n *outputNode) dropChain(ChainID) {}

func (n *outputNode) paint(c *Chain, enc render.CommandEncoder, inputs []*render.TextureRef) (*render.TextureRef, error) {
	if len(inputs) > 0 && inputs[0] != nil {
		return inputs[0], nil
	}
	return c.blank, nil
}

func (n *outputNode) markDirty() {}

func (n *outputNode) usesSource(string) bool { return false }

func (n *outputNode) destroy() {}
