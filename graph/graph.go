// Package graph defines the video node graph model and its scheduler.
//
// A Graph is a set of node identities plus directed edges wiring node
// outputs to numbered input ports. The graph is owned and mutated by an
// external editor; the engine treats it as data, normalizes a private
// copy before scheduling (Fix), and derives a deterministic execution
// plan from it (Schedule).
package graph

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// nodeIDPrefix is the canonical text prefix for serialized node ids.
const nodeIDPrefix = "node_"

// nodeIDEncoding encodes the 16 raw id bytes as 22 unpadded base64 chars.
var nodeIDEncoding = base64.RawStdEncoding

// ErrBadNodeID is returned when parsing a malformed node id string.
var ErrBadNodeID = errors.New("graph: malformed node id")

// NodeID is a process-unique identifier for one node in the graph.
// It is stable for the node's lifetime and used as a map key everywhere
// (edges, property tables, paint-state tables).
//
// The zero value is reserved to mean "no node" (an unconnected input port);
// see IsZero.
type NodeID [16]byte

// NewNodeID returns a fresh random NodeID.
func NewNodeID() NodeID {
	var id NodeID
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(fmt.Sprintf("graph: reading random id: %v", err))
	}
	return id
}

// IsZero reports whether id is the reserved "no node" value.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// String returns the canonical text form "node_<base64>".
func (id NodeID) String() string {
	return nodeIDPrefix + nodeIDEncoding.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
// NodeIDs serialize as "node_<base64>" so they can be used both as JSON
// string values and as JSON object keys.
func (id NodeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) < len(nodeIDPrefix) || s[:len(nodeIDPrefix)] != nodeIDPrefix {
		return fmt.Errorf("%w: %q", ErrBadNodeID, s)
	}
	raw, err := nodeIDEncoding.DecodeString(s[len(nodeIDPrefix):])
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrBadNodeID, s, err)
	}
	if len(raw) != len(id) {
		return fmt.Errorf("%w: %q: want %d bytes, got %d", ErrBadNodeID, s, len(id), len(raw))
	}
	copy(id[:], raw)
	return nil
}

// Edge wires the output of From to input port Input of To.
// At most one edge may target a given (To, Input) pair; a node's output
// may fan out to any number of downstream inputs.
type Edge struct {
	From  NodeID `json:"from"`
	To    NodeID `json:"to"`
	Input int    `json:"input"`
}

// Graph is the DAG of node identities and their wiring.
//
// Node order is semantically irrelevant but preserved: it is the
// deterministic tie-break authority for scheduling. The edge list may be
// malformed or cyclic at any time (it is mutated live by an editor);
// Fix and Schedule tolerate that.
type Graph struct {
	Nodes []NodeID `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// HasNode reports whether id is in the node set.
func (g *Graph) HasNode(id NodeID) bool {
	for _, n := range g.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// AddNode appends id to the node list if not already present.
func (g *Graph) AddNode(id NodeID) {
	if g.HasNode(id) {
		return
	}
	g.Nodes = append(g.Nodes, id)
}

// RemoveNode removes id and every edge touching it.
func (g *Graph) RemoveNode(id NodeID) {
	nodes := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n != id {
			nodes = append(nodes, n)
		}
	}
	g.Nodes = nodes

	edges := g.Edges[:0]
	for _, e := range g.Edges {
		if e.From != id && e.To != id {
			edges = append(edges, e)
		}
	}
	g.Edges = edges
}

// AddEdge appends e, replacing any existing edge with the same (To, Input).
// An input port has at most one source; the newest binding wins.
func (g *Graph) AddEdge(e Edge) {
	for i, old := range g.Edges {
		if old.To == e.To && old.Input == e.Input {
			g.Edges[i] = e
			return
		}
	}
	g.Edges = append(g.Edges, e)
}

// RemoveEdge removes the edge targeting (to, input), if any.
func (g *Graph) RemoveEdge(to NodeID, input int) {
	for i, e := range g.Edges {
		if e.To == to && e.Input == input {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	c := &Graph{}
	if g.Nodes != nil {
		c.Nodes = make([]NodeID, len(g.Nodes))
		copy(c.Nodes, g.Nodes)
	}
	if g.Edges != nil {
		c.Edges = make([]Edge, len(g.Edges))
		copy(c.Edges, g.Edges)
	}
	return c
}

// Equal reports whether g and other have identical node lists and edge
// lists, including ordering. Schedulers use it to decide whether a cached
// plan is still valid.
func (g *Graph) Equal(other *Graph) bool {
	if g == other {
		return true
	}
	if g == nil || other == nil {
		return false
	}
	if len(g.Nodes) != len(other.Nodes) || len(g.Edges) != len(other.Edges) {
		return false
	}
	for i, n := range g.Nodes {
		if other.Nodes[i] != n {
			return false
		}
	}
	for i, e := range g.Edges {
		if other.Edges[i] != e {
			return false
		}
	}
	return true
}

// Fix normalizes the graph in place, dropping malformed edges:
//
//   - edges whose From or To is not in the node set (dangling)
//   - edges with a negative input port
//   - edges whose input port is >= inputCount(To)
//   - all but the last edge targeting a given (To, Input) pair
//
// inputCount reports the number of input ports a node exposes; it is
// derived from the externally owned node properties. Fix returns the
// number of edges dropped.
//
// The graph is mutated live by an interactive editor, so malformed edges
// are an expected condition, not an error: they are removed silently and
// rendering continues.
func (g *Graph) Fix(inputCount func(NodeID) int) int {
	present := make(map[NodeID]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		present[n] = true
	}

	// Last edge per (to, input) wins, matching AddEdge's replacement rule.
	last := make(map[Edge]int, len(g.Edges))
	for i, e := range g.Edges {
		last[Edge{To: e.To, Input: e.Input}] = i
	}

	dropped := 0
	kept := g.Edges[:0]
	for i, e := range g.Edges {
		ok := present[e.From] && present[e.To] &&
			e.Input >= 0 && e.Input < inputCount(e.To) &&
			last[Edge{To: e.To, Input: e.Input}] == i
		if ok {
			kept = append(kept, e)
		} else {
			dropped++
		}
	}
	g.Edges = kept
	return dropped
}
