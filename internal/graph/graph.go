package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeOutOfRange is returned when an edge references an unknown node index.
	ErrNodeOutOfRange = errors.New("node index out of range")

	// ErrNotCanonical is returned when an edge's Node1 is not lower than Node2.
	ErrNotCanonical = errors.New("edge endpoints not in canonical order")
)

// Graph is a rank-weighted co-expression network over a fixed set of genes.
//
// Each edge is stored exactly once, in the local list of its lower-indexed
// endpoint. Listing every edge is therefore a concatenation of local lists,
// while listing the neighbors of an arbitrary node needs the symmetric
// index returned by Adjacency.
//
// Edges are never updated or removed once pushed. A Graph is built by a
// single goroutine and is not safe for concurrent mutation.
type Graph[W Weight] struct {
	nodes []Node
	local [][]Edge[W]
	count int
}

// New creates a graph with one node per name. Node i is names[i].
func New[W Weight](names []string) *Graph[W] {
	nodes := make([]Node, len(names))
	for i, name := range names {
		nodes[i] = Node{Index: i, Name: name}
	}
	return &Graph[W]{
		nodes: nodes,
		local: make([][]Edge[W], len(names)),
	}
}

// Push stores e at e.Node1.
func (g *Graph[W]) Push(e Edge[W]) error {
	if e.Node1 < 0 || e.Node2 >= len(g.nodes) {
		return fmt.Errorf("edge (%d, %d) with %d nodes: %w", e.Node1, e.Node2, len(g.nodes), ErrNodeOutOfRange)
	}
	if e.Node1 >= e.Node2 {
		return fmt.Errorf("edge (%d, %d): %w", e.Node1, e.Node2, ErrNotCanonical)
	}

	g.local[e.Node1] = append(g.local[e.Node1], e)
	g.count++
	return nil
}

// Nodes returns the graph's nodes in index order.
func (g *Graph[W]) Nodes() []Node {
	return g.nodes
}

// NodeCount returns the number of nodes.
func (g *Graph[W]) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges without list materialization.
func (g *Graph[W]) EdgeCount() int {
	return g.count
}

// Edges returns all edges, in node-index order and then insertion order.
func (g *Graph[W]) Edges() []Edge[W] {
	out := make([]Edge[W], 0, g.count)
	for _, edges := range g.local {
		out = append(out, edges...)
	}
	return out
}

// NodeNames returns the gene names of e's endpoints. It panics if e
// references an index outside the graph, which Push never allows.
func (g *Graph[W]) NodeNames(e Edge[W]) (string, string) {
	return g.nodes[e.Node1].Name, g.nodes[e.Node2].Name
}

// Adjacency builds a symmetric index from node index to every incident
// edge, regardless of which endpoint stores it. The index is derived and
// can be rebuilt at any time.
func (g *Graph[W]) Adjacency() map[int][]Edge[W] {
	adj := make(map[int][]Edge[W], len(g.nodes))
	for _, edges := range g.local {
		for _, e := range edges {
			adj[e.Node1] = append(adj[e.Node1], e)
			adj[e.Node2] = append(adj[e.Node2], e)
		}
	}
	return adj
}

// Summary describes the shape of a built network.
type Summary struct {
	Nodes int
	Edges int

	// Isolated counts genes left without any edge by the cutoffs.
	Isolated int

	// MaxDegree is the largest number of edges touching a single gene,
	// and Hub the first gene (by index) with that degree.
	MaxDegree int
	Hub       string
}

// Stats summarizes g from its symmetric adjacency.
func (g *Graph[W]) Stats() Summary {
	adj := g.Adjacency()
	s := Summary{
		Nodes:    len(g.nodes),
		Edges:    g.count,
		Isolated: len(g.nodes) - len(adj),
	}
	for i, n := range g.nodes {
		if d := len(adj[i]); d > s.MaxDegree {
			s.MaxDegree = d
			s.Hub = n.Name
		}
	}
	return s
}
