package vfx

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/vfx/graph"
	"github.com/gogpu/vfx/render/software"
)

// stubCompiler returns canned SPIR-V words without invoking naga. It
// counts calls, can fail on demand, and can block behind a gate so
// tests control when a compile finishes.
type stubCompiler struct {
	mu      sync.Mutex
	calls   int
	failOn  string // sources containing this substring fail
	failErr error
	gate    *gate
	entered chan struct{} // receives one signal per Compile entry
}

func (c *stubCompiler) Compile(source string) ([]uint32, error) {
	c.mu.Lock()
	c.calls++
	failOn, failErr := c.failOn, c.failErr
	g, entered := c.gate, c.entered
	c.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if g != nil {
		<-g.ch
	}
	if failOn != "" && strings.Contains(source, failOn) {
		return nil, failErr
	}
	return []uint32{0x07230203, uint32(len(source))}, nil
}

func (c *stubCompiler) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// gate blocks gated compiles until released. release is safe to call
// more than once, so tests can register it as a cleanup.
type gate struct {
	ch   chan struct{}
	once sync.Once
}

func newGate() *gate { return &gate{ch: make(chan struct{})} }

func (g *gate) release() { g.once.Do(func() { close(g.ch) }) }

// stubLibrary serves canned effect sources and image bytes, and
// reports scripted change events like a watching Library.
type stubLibrary struct {
	mu      sync.Mutex
	sources map[string]string
	images  map[string][]byte
	changed []string
}

func newStubLibrary() *stubLibrary {
	return &stubLibrary{
		sources: map[string]string{
			"test":   "@fragment fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> { return vec4<f32>(1.0); }",
			"purple": "@fragment fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> { return chain_color(); }",
		},
		images: map[string][]byte{},
	}
}

func (l *stubLibrary) Source(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	src, ok := l.sources[name]
	if !ok {
		return "", fmt.Errorf("effect %q: %w", name, ErrNotFound)
	}
	return src, nil
}

func (l *stubLibrary) ImageData(name string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.images[name]
	if !ok {
		return nil, fmt.Errorf("image %q: %w", name, ErrNotFound)
	}
	return data, nil
}

func (l *stubLibrary) setSource(name, src string) {
	l.mu.Lock()
	l.sources[name] = src
	l.mu.Unlock()
}

func (l *stubLibrary) setImage(name string, data []byte) {
	l.mu.Lock()
	l.images[name] = data
	l.mu.Unlock()
}

func (l *stubLibrary) markChanged(names ...string) {
	l.mu.Lock()
	l.changed = append(l.changed, names...)
	l.mu.Unlock()
}

func (l *stubLibrary) Changed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.changed
	l.changed = nil
	return out
}

// testRig bundles a context on a software device with the stub
// compiler and library wired in.
type testRig struct {
	ctx  *Context
	dev  *software.Device
	comp *stubCompiler
	lib  *stubLibrary
}

func newTestRig(t *testing.T, opts ...ContextOption) *testRig {
	t.Helper()
	rig := &testRig{
		dev:  software.New(),
		comp: &stubCompiler{},
		lib:  newStubLibrary(),
	}
	base := []ContextOption{
		WithDevice(rig.dev),
		WithCompiler(rig.comp),
		WithLibrary(rig.lib),
	}
	ctx, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	rig.ctx = ctx
	t.Cleanup(ctx.Close)
	return rig
}

// effectSnapshot builds a single-node document around one effect.
func effectSnapshot(name string) (*Snapshot, graph.NodeID) {
	id := graph.NewNodeID()
	var g graph.Graph
	g.AddNode(id)
	return &Snapshot{
		Graph: g,
		NodeProps: map[graph.NodeID]NodeProps{
			id: &EffectProps{Name: name, Intensity: 1, Frequency: 1},
		},
		Dt: 0.016,
	}, id
}

// chainSnapshot builds a linear document: count effects connected in
// series, returned in upstream-to-downstream order.
func chainSnapshot(name string, count int) (*Snapshot, []graph.NodeID) {
	var g graph.Graph
	props := make(map[graph.NodeID]NodeProps, count)
	ids := make([]graph.NodeID, count)
	for i := range ids {
		ids[i] = graph.NewNodeID()
		g.AddNode(ids[i])
		props[ids[i]] = &EffectProps{Name: name, Intensity: 1, Frequency: 1}
		if i > 0 {
			g.AddEdge(graph.Edge{From: ids[i-1], To: ids[i], Input: 0})
		}
	}
	return &Snapshot{Graph: g, NodeProps: props, Dt: 0.016}, ids
}

// waitState re-runs Update until the node reaches the wanted state.
// Background work lands on a later Update, so one call is rarely
// enough.
func waitState(t *testing.T, ctx *Context, snap *Snapshot, id graph.NodeID, want NodeState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := ctx.Update(snap); err != nil {
			t.Fatalf("Update() = %v", err)
		}
		st, ok := ctx.NodeStatus(id)
		if !ok {
			t.Fatalf("NodeStatus(%v): node not tracked", id)
		}
		if st.State == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("node %v stuck in %v (err %v), want %v", id, st.State, st.Err, want)
		}
		time.Sleep(time.Millisecond)
	}
}

// ====================================================================
// Construction
// ====================================================================

func TestNewDefaultsToRegisteredBackend(t *testing.T) {
	ctx, err := New(WithCompiler(&stubCompiler{}), WithLibrary(newStubLibrary()))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer ctx.Close()

	// No native provider is installed under test, so the registry must
	// fall back to the software device.
	if got := ctx.Device().Name(); got != software.Name {
		t.Errorf("Device().Name() = %q, want %q", got, software.Name)
	}
}

func TestNewWithDevice(t *testing.T) {
	dev := software.New()
	ctx, err := New(WithDevice(dev))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer ctx.Close()

	if ctx.Device() != dev {
		t.Error("Device() did not return the injected device")
	}
}

func TestCloseIdempotent(t *testing.T) {
	rig := newTestRig(t)
	rig.ctx.Close()
	rig.ctx.Close()
}
