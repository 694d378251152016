package query

import (
	"context"
	"sort"

	"github.com/Benny93/corrnet-go/internal/parsers"
)

// Adjacency is an in-memory symmetric index of a network: every record is
// listed under both of its endpoints. It is not safe for concurrent writes.
type Adjacency struct {
	edges map[string][]parsers.Record
	count int
}

// NewAdjacency returns an empty index.
func NewAdjacency() *Adjacency {
	return &Adjacency{edges: make(map[string][]parsers.Record)}
}

// Add indexes r under both endpoints.
func (a *Adjacency) Add(r parsers.Record) {
	a.edges[r.Gene1] = append(a.edges[r.Gene1], r)
	if r.Gene2 != r.Gene1 {
		a.edges[r.Gene2] = append(a.edges[r.Gene2], r)
	}
	a.count++
}

// Neighbors implements Source. Edges are returned in insertion order.
func (a *Adjacency) Neighbors(_ context.Context, gene string) ([]parsers.Record, error) {
	edges, ok := a.edges[gene]
	if !ok {
		return nil, ErrUnknownGene
	}
	return edges, nil
}

// Genes returns every indexed gene, sorted.
func (a *Adjacency) Genes() []string {
	out := make([]string, 0, len(a.edges))
	for g := range a.edges {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// NodeCount returns the number of genes with at least one edge.
func (a *Adjacency) NodeCount() int {
	return len(a.edges)
}

// EdgeCount returns the number of records added.
func (a *Adjacency) EdgeCount() int {
	return a.count
}
