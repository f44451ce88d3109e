// Package graph holds the typed property graph of financial entities and the
// network-level risk analyses that run over it.
package graph

import (
	"fmt"
	"sort"
)

// Graph is an arena of typed nodes with indexed directed edge lists.
//
// The arena position of a node is internal; callers address nodes only by
// their business id. Graph is not safe for concurrent mutation, Store
// implementations serialize access.
type Graph struct {
	nodes   []*Node
	index   map[string]int
	byLabel map[Label][]int

	edges []*Edge
	out   [][]int
	in    [][]int

	schema map[schemaKey]bool

	dirtyNodes map[string]struct{}
	newEdges   []int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		index:      make(map[string]int),
		byLabel:    make(map[Label][]int),
		dirtyNodes: make(map[string]struct{}),
	}
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node with the given business id
func (g *Graph) Node(id string) (*Node, bool) {
	idx, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// Nodes returns the nodes with the given label in insertion order.
// With no label, all nodes are returned.
func (g *Graph) Nodes(label Label) []*Node {
	if label == "" {
		out := make([]*Node, len(g.nodes))
		copy(out, g.nodes)
		return out
	}
	idxs := g.byLabel[label]
	out := make([]*Node, len(idxs))
	for i, idx := range idxs {
		out[i] = g.nodes[idx]
	}
	return out
}

// AddNode adds a node. The id must be unique across all labels.
func (g *Graph) AddNode(label Label, id string, props Properties) (*Node, error) {
	if id == "" || label == "" {
		return nil, fmt.Errorf("%w: id and label are required", ErrInvalidNode)
	}
	if _, exists := g.index[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	if props == nil {
		props = Properties{}
	}

	n := &Node{ID: id, Label: label, Props: props.clone()}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.index[id] = idx
	g.byLabel[label] = append(g.byLabel[label], idx)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.dirtyNodes[id] = struct{}{}
	return n, nil
}

// UpsertNode creates the node or merges props into the existing one
func (g *Graph) UpsertNode(label Label, id string, props Properties) (*Node, bool, error) {
	if n, ok := g.Node(id); ok {
		if n.Label != label {
			return nil, false, fmt.Errorf("%w: %s is %s, not %s", ErrLabelMismatch, id, n.Label, label)
		}
		for k, v := range props {
			n.Props[k] = v
		}
		g.dirtyNodes[id] = struct{}{}
		return n, false, nil
	}
	n, err := g.AddNode(label, id, props)
	return n, err == nil, err
}

// SetProperty sets one property on an existing node
func (g *Graph) SetProperty(id, key string, value any) error {
	n, ok := g.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n.Props[key] = value
	g.dirtyNodes[id] = struct{}{}
	return nil
}

// AddEdge adds a directed relationship between two existing nodes
func (g *Graph) AddEdge(from, to string, relType RelType, props Properties) (*Edge, error) {
	fromIdx, ok := g.index[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	toIdx, ok := g.index[to]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if err := g.checkSchema(g.nodes[fromIdx].Label, relType, g.nodes[toIdx].Label); err != nil {
		return nil, err
	}
	if props == nil {
		props = Properties{}
	}

	e := &Edge{Seq: len(g.edges), Type: relType, From: from, To: to, Props: props.clone()}
	g.edges = append(g.edges, e)
	g.out[fromIdx] = append(g.out[fromIdx], e.Seq)
	g.in[toIdx] = append(g.in[toIdx], e.Seq)
	g.newEdges = append(g.newEdges, e.Seq)
	return e, nil
}

// HasEdge reports whether a relationship of the type already links from to to
func (g *Graph) HasEdge(from, to string, relType RelType) bool {
	for _, e := range g.Out(from, relType) {
		if e.To == to {
			return true
		}
	}
	return false
}

// Out returns the outgoing edges of id, filtered by type when types are given
func (g *Graph) Out(id string, types ...RelType) []*Edge {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.filterEdges(g.out[idx], types)
}

// In returns the incoming edges of id, filtered by type when types are given
func (g *Graph) In(id string, types ...RelType) []*Edge {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.filterEdges(g.in[idx], types)
}

// Edges returns all edges of the given types in creation order
func (g *Graph) Edges(types ...RelType) []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if matchesType(e.Type, types) {
			out = append(out, e)
		}
	}
	return out
}

// Degree returns the number of edges touching id
func (g *Graph) Degree(id string) int {
	idx, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.out[idx]) + len(g.in[idx])
}

// Neighbors returns the distinct ids adjacent to id in either direction,
// sorted for deterministic traversal.
func (g *Graph) Neighbors(id string, types ...RelType) []string {
	seen := make(map[string]bool)
	for _, e := range g.Out(id, types...) {
		seen[e.To] = true
	}
	for _, e := range g.In(id, types...) {
		seen[e.From] = true
	}
	delete(seen, id)
	return sortedKeys(seen)
}

// TakeChanges returns the nodes and edges touched since the last call and
// resets the change set. Persistent stores write these through.
func (g *Graph) TakeChanges() ([]*Node, []*Edge) {
	nodes := make([]*Node, 0, len(g.dirtyNodes))
	for id := range g.dirtyNodes {
		if n, ok := g.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := make([]*Edge, len(g.newEdges))
	for i, seq := range g.newEdges {
		edges[i] = g.edges[seq]
	}

	g.dirtyNodes = make(map[string]struct{})
	g.newEdges = nil
	return nodes, edges
}

func (g *Graph) filterEdges(seqs []int, types []RelType) []*Edge {
	out := make([]*Edge, 0, len(seqs))
	for _, seq := range seqs {
		e := g.edges[seq]
		if matchesType(e.Type, types) {
			out = append(out, e)
		}
	}
	return out
}

func matchesType(t RelType, types []RelType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
