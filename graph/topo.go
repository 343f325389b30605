package graph

// Plan is the output of Schedule: a deterministic execution order over the
// graph plus the resolved upstream wiring for every node.
type Plan struct {
	// Order lists every node exactly once, each node appearing after all
	// nodes that feed one of its inputs (severed cycle edges excepted).
	Order []NodeID

	// Inputs maps each node to its per-port upstream node. The slice has
	// length max(1, inputCount(node)); entry i is the node feeding port i,
	// or the zero NodeID when the port is unconnected or the edge was
	// severed to break a cycle.
	Inputs map[NodeID][]NodeID

	// Start lists the nodes with no incoming edge, in node-list order.
	Start []NodeID
}

// Schedule computes an execution plan for g.
//
// Determinism: when several nodes are ready, the one earliest in the node
// list is emitted first, so an unchanged topology always yields the same
// order across runs.
//
// Cycles never deadlock the scheduler. When no node is ready but nodes
// remain, the earliest remaining node is emitted anyway and its
// not-yet-emitted upstream ports are severed (reported as zero NodeIDs in
// Inputs). Every node appears in Order exactly once on any input.
//
// Schedule does not mutate g, but it assumes Fix has already removed
// malformed edges; any still-dangling or out-of-range edge is skipped.
func Schedule(g *Graph, inputCount func(NodeID) int) *Plan {
	plan := &Plan{
		Order:  make([]NodeID, 0, len(g.Nodes)),
		Inputs: make(map[NodeID][]NodeID, len(g.Nodes)),
	}

	// Duplicate node entries would stall the emission loop; schedule each
	// identity once, keeping its first position.
	nodes := make([]NodeID, 0, len(g.Nodes))
	present := make(map[NodeID]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if present[n] {
			continue
		}
		present[n] = true
		nodes = append(nodes, n)
		ports := inputCount(n)
		if ports < 1 {
			ports = 1
		}
		plan.Inputs[n] = make([]NodeID, ports)
	}

	for _, e := range g.Edges {
		if !present[e.From] || !present[e.To] {
			continue
		}
		ports := plan.Inputs[e.To]
		if e.Input < 0 || e.Input >= len(ports) {
			continue
		}
		ports[e.Input] = e.From
	}

	// Start nodes: no incoming edge at all.
	for _, n := range nodes {
		incoming := false
		for _, up := range plan.Inputs[n] {
			if !up.IsZero() {
				incoming = true
				break
			}
		}
		if !incoming {
			plan.Start = append(plan.Start, n)
		}
	}

	emitted := make(map[NodeID]bool, len(nodes))
	for len(plan.Order) < len(nodes) {
		progressed := false
		for _, n := range nodes {
			if emitted[n] {
				continue
			}
			ready := true
			for _, up := range plan.Inputs[n] {
				if !up.IsZero() && !emitted[up] {
					ready = false
					break
				}
			}
			if ready {
				emitted[n] = true
				plan.Order = append(plan.Order, n)
				progressed = true
				break
			}
		}
		if progressed {
			continue
		}

		// Every remaining node waits on another remaining node: a cycle.
		// Emit the earliest remaining node with its unmet inputs severed.
		for _, n := range nodes {
			if emitted[n] {
				continue
			}
			ports := plan.Inputs[n]
			for i, up := range ports {
				if !up.IsZero() && !emitted[up] {
					ports[i] = NodeID{}
				}
			}
			emitted[n] = true
			plan.Order = append(plan.Order, n)
			break
		}
	}

	return plan
}
