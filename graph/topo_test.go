package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func one(NodeID) int { return 1 }

// checkPlan verifies the structural contract every schedule must hold:
// each node appears exactly once, and every resolved input was emitted
// before the node that consumes it.
func checkPlan(t *testing.T, g *Graph, p *Plan) {
	t.Helper()

	seen := make(map[NodeID]int, len(p.Order))
	for i, n := range p.Order {
		if j, dup := seen[n]; dup {
			t.Fatalf("node %v emitted at both %d and %d", n, j, i)
		}
		seen[n] = i
	}
	want := make(map[NodeID]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		want[n] = true
	}
	if len(seen) != len(want) {
		t.Fatalf("schedule emitted %d nodes, graph has %d", len(seen), len(want))
	}

	for n, inputs := range p.Inputs {
		for port, up := range inputs {
			if up.IsZero() {
				continue
			}
			upAt, ok := seen[up]
			if !ok {
				t.Fatalf("node %v input %d references unscheduled %v", n, port, up)
			}
			if upAt >= seen[n] {
				t.Errorf("node %v input %d upstream %v emitted at %d, after %d", n, port, up, upAt, seen[n])
			}
		}
	}
}

func TestScheduleChain(t *testing.T) {
	a, b, c := nid(1), nid(2), nid(3)
	g := &Graph{
		Nodes: []NodeID{a, b, c},
		Edges: []Edge{
			{From: a, To: b, Input: 0},
			{From: b, To: c, Input: 0},
		},
	}

	p := Schedule(g, one)
	checkPlan(t, g, p)

	if diff := cmp.Diff([]NodeID{a, b, c}, p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NodeID{a}, p.Start); diff != "" {
		t.Errorf("start nodes mismatch (-want +got):\n%s", diff)
	}
	if got := p.Inputs[b][0]; got != a {
		t.Errorf("Inputs[b][0] = %v, want %v", got, a)
	}
	if got := p.Inputs[c][0]; got != b {
		t.Errorf("Inputs[c][0] = %v, want %v", got, b)
	}
	if !p.Inputs[a][0].IsZero() {
		t.Errorf("Inputs[a][0] = %v, want unconnected", p.Inputs[a][0])
	}
}

func TestScheduleTieBreakFollowsNodeList(t *testing.T) {
	a, b, c := nid(1), nid(2), nid(3)
	g := &Graph{Nodes: []NodeID{c, b, a}}

	p := Schedule(g, one)
	checkPlan(t, g, p)

	if diff := cmp.Diff([]NodeID{c, b, a}, p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NodeID{c, b, a}, p.Start); diff != "" {
		t.Errorf("start nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduleDiamond(t *testing.T) {
	a, b, c, d := nid(1), nid(2), nid(3), nid(4)
	g := &Graph{
		Nodes: []NodeID{a, b, c, d},
		Edges: []Edge{
			{From: a, To: b, Input: 0},
			{From: a, To: c, Input: 0},
			{From: b, To: d, Input: 0},
			{From: c, To: d, Input: 1},
		},
	}
	counts := map[NodeID]int{a: 1, b: 1, c: 1, d: 2}
	inputCount := func(n NodeID) int { return counts[n] }

	p := Schedule(g, inputCount)
	checkPlan(t, g, p)

	if diff := cmp.Diff([]NodeID{a, b, c, d}, p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]NodeID{b, c}, p.Inputs[d]); diff != "" {
		t.Errorf("Inputs[d] mismatch (-want +got):\n%s", diff)
	}

	// Same graph, same answer: the schedule is a pure function of its input.
	again := Schedule(g, inputCount)
	if diff := cmp.Diff(p, again); diff != "" {
		t.Errorf("repeated schedule differs (-first +second):\n%s", diff)
	}
}

func TestScheduleCycleTerminates(t *testing.T) {
	a, b := nid(1), nid(2)
	g := &Graph{
		Nodes: []NodeID{a, b},
		Edges: []Edge{
			{From: a, To: b, Input: 0},
			{From: b, To: a, Input: 0},
		},
	}

	p := Schedule(g, one)
	checkPlan(t, g, p)

	// The earliest node in the cycle is emitted first with its unmet
	// input severed; its partner keeps the real connection.
	if diff := cmp.Diff([]NodeID{a, b}, p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if !p.Inputs[a][0].IsZero() {
		t.Errorf("Inputs[a][0] = %v, want severed", p.Inputs[a][0])
	}
	if got := p.Inputs[b][0]; got != a {
		t.Errorf("Inputs[b][0] = %v, want %v", got, a)
	}
	if len(p.Start) != 0 {
		t.Errorf("Start = %v, want none for a pure cycle", p.Start)
	}
}

func TestScheduleCycleWithFreeNode(t *testing.T) {
	a, b, c := nid(1), nid(2), nid(3)
	g := &Graph{
		Nodes: []NodeID{a, b, c},
		Edges: []Edge{
			{From: a, To: b, Input: 0},
			{From: b, To: a, Input: 0},
		},
	}

	p := Schedule(g, one)
	checkPlan(t, g, p)

	// c has no inputs and is ready immediately; the cycle is broken only
	// once no ready node remains.
	if diff := cmp.Diff([]NodeID{c, a, b}, p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduleSelfLoop(t *testing.T) {
	a := nid(1)
	g := &Graph{
		Nodes: []NodeID{a},
		Edges: []Edge{{From: a, To: a, Input: 0}},
	}

	p := Schedule(g, one)
	checkPlan(t, g, p)

	if len(p.Order) != 1 || p.Order[0] != a {
		t.Fatalf("Order = %v, want [a]", p.Order)
	}
	if !p.Inputs[a][0].IsZero() {
		t.Errorf("Inputs[a][0] = %v, want severed", p.Inputs[a][0])
	}
}

func TestScheduleInputTableLengths(t *testing.T) {
	a, b := nid(1), nid(2)
	g := &Graph{Nodes: []NodeID{a, b}}
	counts := map[NodeID]int{a: 0, b: 3}

	p := Schedule(g, func(n NodeID) int { return counts[n] })
	checkPlan(t, g, p)

	// Every node gets at least one input slot so downstream code can
	// always read port zero.
	if got := len(p.Inputs[a]); got != 1 {
		t.Errorf("len(Inputs[a]) = %d, want 1", got)
	}
	if got := len(p.Inputs[b]); got != 3 {
		t.Errorf("len(Inputs[b]) = %d, want 3", got)
	}
}

func TestScheduleIgnoresMalformedEdges(t *testing.T) {
	a, b := nid(1), nid(2)
	ghost := nid(9)
	g := &Graph{
		Nodes: []NodeID{a, b},
		Edges: []Edge{
			{From: ghost, To: b, Input: 0}, // unknown upstream
			{From: a, To: ghost, Input: 0}, // unknown downstream
			{From: a, To: b, Input: 5},     // out of range
			{From: a, To: b, Input: -1},
		},
	}

	p := Schedule(g, one)
	checkPlan(t, g, p)

	if diff := cmp.Diff([]NodeID{a, b}, p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if !p.Inputs[b][0].IsZero() {
		t.Errorf("Inputs[b][0] = %v, want unconnected", p.Inputs[b][0])
	}
}

func TestScheduleDuplicateNodeEntries(t *testing.T) {
	a, b := nid(1), nid(2)
	g := &Graph{
		Nodes: []NodeID{a, a, b, a},
		Edges: []Edge{{From: a, To: b, Input: 0}},
	}

	p := Schedule(g, one)

	if diff := cmp.Diff([]NodeID{a, b}, p.Order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestScheduleLargeLayered(t *testing.T) {
	// Four layers of four nodes, each consuming the node directly above,
	// listed in scrambled order. The schedule must respect depth while
	// breaking ties by list position.
	var nodes []NodeID
	var edges []Edge
	var layer [4][4]NodeID
	next := byte(1)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			layer[i][j] = nid(next)
			next++
			if i > 0 {
				edges = append(edges, Edge{From: layer[i-1][j], To: layer[i][j], Input: 0})
			}
		}
	}
	// Interleave layers in the node list: row 3, 1, 0, 2.
	for _, i := range []int{3, 1, 0, 2} {
		nodes = append(nodes, layer[i][:]...)
	}
	g := &Graph{Nodes: nodes, Edges: edges}

	p := Schedule(g, one)
	checkPlan(t, g, p)

	if len(p.Start) != 4 {
		t.Errorf("got %d start nodes, want 4", len(p.Start))
	}
}
