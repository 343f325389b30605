package vfx

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/vfx/graph"
	"github.com/gogpu/vfx/internal/work"
	"github.com/gogpu/vfx/render"
	"github.com/gogpu/vfx/render/native"

	// Link the CPU fallback backend into every engine build.
	_ "github.com/gogpu/vfx/render/software"
)

// Context is the engine core: the runtime node table, the render
// chains, and the device they render on.
//
// Update, Paint and the chain accessors belong on one scheduling
// goroutine (the Driver enforces this with a warning); NodeStatus and
// NodeStatuses may be called from anywhere. A Context must be released
// with Close.
type Context struct {
	mu sync.Mutex

	dev     render.Device
	ownsDev bool

	pool     *work.Pool
	library  ContentSource
	compiler Compiler

	time  float64
	dt    float64
	audio [4]float64

	// blank is the shared 1x1 transparent texture standing in for
	// every missing input and not-ready output.
	blank *render.TextureRef

	nodes map[graph.NodeID]node

	chains    map[ChainID]*Chain
	lastChain ChainID

	// lastGraph and plan cache the schedule across frames with an
	// unchanged graph.
	lastGraph *graph.Graph
	plan      *graph.Plan

	closed bool
}

// New creates an engine context.
//
// Without options the best available registered backend is selected,
// effects come from the embedded stock library, and shaders compile
// through naga.
func New(opts ...ContextOption) (*Context, error) {
	var o contextOptions
	for _, opt := range opts {
		opt(&o)
	}

	dev := o.device
	ownsDev := false
	var err error
	switch {
	case dev != nil:
	case o.provider != nil:
		dev, err = native.FromProvider(o.provider)
		if err != nil {
			return nil, fmt.Errorf("vfx: %w", err)
		}
		ownsDev = true
	default:
		dev, err = render.NewDefaultDevice()
		if err != nil {
			return nil, fmt.Errorf("vfx: %w", err)
		}
		ownsDev = true
	}

	blank, err := render.NewBlankTexture(dev)
	if err != nil {
		if ownsDev {
			dev.Destroy()
		}
		return nil, fmt.Errorf("vfx: %w", err)
	}

	lib := o.library
	if lib == nil {
		lib = NewLibrary("")
	}
	comp := o.compiler
	if comp == nil {
		comp = NagaCompiler{}
	}

	Logger().Info("engine context created", "backend", dev.Name())
	return &Context{
		dev:      dev,
		ownsDev:  ownsDev,
		pool:     work.NewPool(o.workers),
		library:  lib,
		compiler: comp,
		blank:    blank,
		nodes:    make(map[graph.NodeID]node),
		chains:   make(map[ChainID]*Chain),
	}, nil
}

// Device returns the device the context renders on.
func (c *Context) Device() render.Device { return c.dev }

// AddChain creates a render chain at the given resolution and returns
// its id.
func (c *Context) AddChain(width, height uint32) (ChainID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.lastChain + 1
	ch, err := newChain(c.dev, id, width, height, c.blank)
	if err != nil {
		return 0, err
	}
	c.lastChain = id
	c.chains[id] = ch
	Logger().Info("chain added", "chain", id, "width", width, "height", height)
	return id, nil
}

// RemoveChain releases a chain and every node's paint state for it.
// Removing an unknown id is a no-op.
func (c *Context) RemoveChain(id ChainID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.chains[id]
	if ch == nil {
		return
	}
	for _, n := range c.nodes {
		n.dropChain(id)
	}
	ch.release()
	delete(c.chains, id)
}

// Chain returns the chain with the given id, or nil.
func (c *Context) Chain(id ChainID) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chains[id]
}

// Chains returns the ids of all chains in ascending order.
func (c *Context) Chains() []ChainID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]ChainID, 0, len(c.chains))
	for id := range c.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Update reconciles the engine with one editor snapshot: it normalizes
// a private copy of the graph, creates and destroys runtime nodes to
// match the node set, merges the clock, updates every node without
// blocking, refreshes the execution plan when the graph changed, and
// ensures per-chain paint state exists.
//
// The snapshot itself is never mutated. Errors are GPU resource
// failures and abort the frame; fetch and compile failures land in
// node states instead (see NodeStatus).
func (c *Context) Update(snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 1. Normalize a private copy. Nodes the editor has not described
	// yet cannot run; they leave the working graph along with their
	// edges, and Fix drops dangling, duplicate and out-of-range edges.
	g := snap.Graph.Clone()
	dropUndescribed(g, snap)
	inputCount := func(id graph.NodeID) int {
		if p, ok := snap.NodeProps[id]; ok {
			return p.InputCount()
		}
		return 0
	}
	if dropped := g.Fix(inputCount); dropped > 0 {
		Logger().Debug("dropped malformed edges", "count", dropped)
	}

	// 2. Reconcile the runtime node table with the node set.
	seen := make(map[graph.NodeID]bool, len(g.Nodes))
	for _, id := range g.Nodes {
		props := snap.NodeProps[id]
		seen[id] = true
		if n, ok := c.nodes[id]; ok {
			if n.status().Kind == props.Kind() {
				continue
			}
			// Same identity, new kind: rebuild from scratch.
			n.destroy()
			delete(c.nodes, id)
		}
		c.nodes[id] = c.newNode(props)
		Logger().Debug("node created", "node", id, "kind", props.Kind())
	}
	for id, n := range c.nodes {
		if !seen[id] {
			n.destroy()
			delete(c.nodes, id)
			Logger().Debug("node removed", "node", id)
		}
	}

	// 3. Merge the clock and update every node, in node-list order.
	c.time, c.dt, c.audio = snap.Time, snap.Dt, snap.Audio
	for _, id := range g.Nodes {
		if err := c.nodes[id].update(snap.NodeProps[id]); err != nil {
			return fmt.Errorf("update node %v: %w", id, err)
		}
	}

	// 4. Refresh the plan only when the normalized graph changed.
	if c.lastGraph == nil || !c.lastGraph.Equal(g) {
		c.plan = graph.Schedule(g, inputCount)
		c.lastGraph = g
		Logger().Debug("plan recomputed",
			"nodes", len(g.Nodes), "edges", len(g.Edges))
	}

	// 5. Ensure per-chain paint state.
	for _, id := range g.Nodes {
		n := c.nodes[id]
		for _, ch := range c.chains {
			if err := n.ensureChain(ch); err != nil {
				return fmt.Errorf("node %v chain %d: %w", id, ch.id, err)
			}
		}
	}
	return nil
}

// dropUndescribed removes graph nodes that have no properties entry.
func dropUndescribed(g *graph.Graph, snap *Snapshot) {
	var missing []graph.NodeID
	for _, id := range g.Nodes {
		if _, ok := snap.NodeProps[id]; !ok {
			missing = append(missing, id)
		}
	}
	for _, id := range missing {
		g.RemoveNode(id)
		Logger().Debug("dropped undescribed node", "node", id)
	}
}

// newNode builds the runtime node for one property kind.
func (c *Context) newNode(props NodeProps) node {
	switch props.(type) {
	case *EffectProps:
		return newEffectNode(c)
	case *ImageProps:
		return newImageNode(c)
	default:
		return newOutputNode(c)
	}
}

// Paint renders one full frame of the chain: every node in plan order,
// each fed the output textures of its resolved upstream nodes, with
// the blank texture standing in for unconnected ports and not-ready
// nodes.
//
// The returned map gives each node's output texture. The textures are
// borrowed: they stay valid until the same chain's next Paint, and
// sinks that keep one longer must Retain it.
func (c *Context) Paint(enc render.CommandEncoder, id ChainID) (map[graph.NodeID]*render.TextureRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.chains[id]
	if ch == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, id)
	}
	results := make(map[graph.NodeID]*render.TextureRef)
	if c.plan == nil {
		return results, nil
	}

	for _, nid := range c.plan.Order {
		n := c.nodes[nid]
		if n == nil {
			continue
		}
		ups := c.plan.Inputs[nid]
		inputs := make([]*render.TextureRef, len(ups))
		for i, up := range ups {
			if !up.IsZero() {
				inputs[i] = results[up]
			}
		}
		tex, err := n.paint(ch, enc, inputs)
		if err != nil {
			return nil, fmt.Errorf("paint node %v: %w", nid, err)
		}
		results[nid] = tex
	}
	return results, nil
}

// NodeStatus reports the runtime state of one node. The second result
// is false for nodes Update has not seen.
func (c *Context) NodeStatus(id graph.NodeID) (NodeStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return NodeStatus{}, false
	}
	return n.status(), true
}

// NodeStatuses reports the runtime state of every node.
func (c *Context) NodeStatuses() map[graph.NodeID]NodeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[graph.NodeID]NodeStatus, len(c.nodes))
	for id, n := range c.nodes {
		out[id] = n.status()
	}
	return out
}

// InvalidateEffect marks every node built from the named library entry
// dirty, forcing a rebuild on the next Update. The driver feeds it
// from library change events; hosts can call it directly.
func (c *Context) InvalidateEffect(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	invalidated := 0
	for _, n := range c.nodes {
		if n.usesSource(name) {
			n.markDirty()
			invalidated++
		}
	}
	if invalidated > 0 {
		Logger().Debug("invalidated", "name", name, "nodes", invalidated)
	}
}

// Close releases every chain, node and shared resource, stops the
// worker pool, and destroys the device if the context created it.
// Close is safe to call multiple times.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true

	c.pool.Close()
	for id, n := range c.nodes {
		n.destroy()
		delete(c.nodes, id)
	}
	for id, ch := range c.chains {
		ch.release()
		delete(c.chains, id)
	}
	c.blank.Release()
	c.plan, c.lastGraph = nil, nil

	if c.ownsDev {
		c.dev.Destroy()
	} else {
		c.dev.WaitIdle()
	}
}
