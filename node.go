package vfx

import (
	"github.com/gogpu/vfx/render"
)

// NodeState is the lifecycle state of a runtime node.
//
// Nodes move Uninitialized -> Compiling -> Ready on success, or to
// Error on a failed fetch, compile or decode. A name change from any
// state discards the built payload and re-enters Compiling; nothing
// ever transitions out of Error except a property change.
type NodeState int

const (
	// StateUninitialized means the node has never been given work.
	StateUninitialized NodeState = iota

	// StateCompiling means background work (shader compilation or
	// image decoding) is outstanding.
	StateCompiling

	// StateReady means the node can paint.
	StateReady

	// StateError means the last attempt failed; see NodeStatus.Err.
	StateError
)

// String returns a short lowercase name for the state.
func (s NodeState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCompiling:
		return "compiling"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Node kind tags, used as the "type" discriminator in snapshot JSON.
const (
	KindEffect = "EffectNode"
	KindImage  = "ImageNode"
	KindOutput = "ScreenOutputNode"
)

// NodeProps describes one node's editor-owned properties. The engine
// reads them during Update and never mutates them.
//
// The set of implementations is closed: *EffectProps, *ImageProps and
// *OutputProps. Snapshot JSON discriminates them by a "type" tag.
type NodeProps interface {
	// Kind returns the type tag for this property set.
	Kind() string

	// InputCount returns the number of input ports the node exposes.
	InputCount() int

	isNodeProps()
}

// EffectProps configures a shader effect node.
type EffectProps struct {
	// Name is the effect name, resolved to WGSL source through the
	// library.
	Name string `json:"name"`

	// Inputs is the number of input ports the effect consumes.
	// Values below 1 are treated as 1; every effect has at least one
	// input port.
	Inputs int `json:"input_count"`

	// Intensity is the effect strength, normally in [0, 1].
	Intensity float64 `json:"intensity"`

	// Frequency is the time multiplier driving periodic animation.
	Frequency float64 `json:"frequency"`
}

// Kind returns KindEffect.
func (*EffectProps) Kind() string { return KindEffect }

// InputCount returns the number of input ports, at least 1.
func (p *EffectProps) InputCount() int {
	if p.Inputs < 1 {
		return 1
	}
	return p.Inputs
}

func (*EffectProps) isNodeProps() {}

// ImageProps configures an image source node.
type ImageProps struct {
	// Name is the image file name, including its extension, resolved
	// through the library.
	Name string `json:"name"`
}

// Kind returns KindImage.
func (*ImageProps) Kind() string { return KindImage }

// InputCount returns 0; image nodes are sources.
func (*ImageProps) InputCount() int { return 0 }

func (*ImageProps) isNodeProps() {}

// OutputProps configures a screen output node.
type OutputProps struct {
	// Visible controls whether the driver presents this output to its
	// sinks.
	Visible bool `json:"visible"`
}

// Kind returns KindOutput.
func (*OutputProps) Kind() string { return KindOutput }

// InputCount returns 1; an output shows exactly one upstream node.
func (*OutputProps) InputCount() int { return 1 }

func (*OutputProps) isNodeProps() {}

// NodeStatus is a read-only view of one runtime node for editors and
// diagnostics.
type NodeStatus struct {
	// Kind is the node's type tag (KindEffect, KindImage, KindOutput).
	Kind string

	// State is the lifecycle state.
	State NodeState

	// Err is the failure in StateError, nil otherwise.
	Err error
}

// node is the runtime counterpart of one graph node. Implementations
// are owned by the Context and called with its lock held, always from
// the scheduling goroutine.
type node interface {
	// status reports kind, state and error.
	status() NodeStatus

	// update reconciles the node with its editor props and polls any
	// outstanding background work. It never blocks. Errors are GPU
	// resource failures and abort the frame; fetch and compile
	// failures land in the node state instead.
	update(props NodeProps) error

	// ensureChain creates the node's per-chain paint state if missing.
	ensureChain(c *Chain) error

	// dropChain releases the node's paint state for one chain.
	dropChain(id ChainID)

	// paint renders the node for one chain, given the resolved input
	// textures (nil entries mean unconnected ports). It returns the
	// node's output texture, or the shared blank texture when it has
	// nothing to show. It never mutates lifecycle state.
	paint(c *Chain, enc render.CommandEncoder, inputs []*render.TextureRef) (*render.TextureRef, error)

	// markDirty forces the next update to rebuild from sources even
	// if the name is unchanged.
	markDirty()

	// usesSource reports whether the node builds from the named
	// library entry.
	usesSource(name string) bool

	// destroy releases everything the node holds.
	destroy()
}
