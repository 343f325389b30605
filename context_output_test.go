package vfx

import (
	"testing"

	"github.com/gogpu/vfx/graph"
)

func TestOutputPassesThroughInput(t *testing.T) {
	rig := newTestRig(t)
	chain, _ := rig.ctx.AddChain(8, 8)

	fx := graph.NewNodeID()
	out := graph.NewNodeID()
	var g graph.Graph
	g.AddNode(fx)
	g.AddNode(out)
	g.AddEdge(graph.Edge{From: fx, To: out, Input: 0})
	snap := &Snapshot{
		Graph: g,
		NodeProps: map[graph.NodeID]NodeProps{
			fx:  &EffectProps{Name: "test", Intensity: 1},
			out: &OutputProps{Visible: true},
		},
		Dt: 0.016,
	}
	waitState(t, rig.ctx, snap, fx, StateReady)

	results := paintFrame(t, rig, chain)
	if results[out] != results[fx] {
		t.Error("output did not pass its upstream texture through")
	}
}

func TestOutputWithoutInputPaintsBlank(t *testing.T) {
	rig := newTestRig(t)
	chain, _ := rig.ctx.AddChain(8, 8)

	id := graph.NewNodeID()
	var g graph.Graph
	g.AddNode(id)
	snap := &Snapshot{
		Graph:     g,
		NodeProps: map[graph.NodeID]NodeProps{id: &OutputProps{Visible: true}},
		Dt:        0.016,
	}
	if err := rig.ctx.Update(snap); err != nil {
		t.Fatalf("Update() = %v", err)
	}

	results := paintFrame(t, rig, chain)
	tex := results[id]
	if tex == nil {
		t.Fatal("no result for the output node")
	}
	if tex.Width() != 1 || tex.Height() != 1 {
		t.Errorf("unconnected output is %dx%d, want the 1x1 blank", tex.Width(), tex.Height())
	}
}

func TestOutputStatus(t *testing.T) {
	rig := newTestRig(t)
	snap, id := effectSnapshot("test")
	snap.NodeProps[id] = &OutputProps{Visible: false}

	if err := rig.ctx.Update(snap); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	st, ok := rig.ctx.NodeStatus(id)
	if !ok {
		t.Fatal("output node not tracked")
	}
	if st.Kind != KindOutput {
		t.Errorf("Kind = %q, want %q", st.Kind, KindOutput)
	}
	if st.State != StateReady {
		t.Errorf("State = %v, want ready; outputs have no background work", st.State)
	}
	if st.Err != nil {
		t.Errorf("Err = %v, want nil", st.Err)
	}
}
