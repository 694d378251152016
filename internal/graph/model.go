// Package graph provides the co-expression network model for corrnet.
//
// It defines the node and edge types of a rank-weighted network built from
// a correlation matrix, and the Graph that holds them.
package graph

import (
	"fmt"
	"strings"
)

// Method identifies how an edge's rank weight was reconciled.
type Method string

const (
	// MethodHRR weights edges by the highest reciprocal rank.
	MethodHRR Method = "hrr"
	// MethodMR weights edges by the mutual rank.
	MethodMR Method = "mr"
)

// ParseMethod parses a method name, case-insensitively. Empty selects HRR.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(s)) {
	case "", MethodHRR:
		return MethodHRR, nil
	case MethodMR:
		return MethodMR, nil
	default:
		return "", fmt.Errorf("unknown method %q (want HRR or MR)", s)
	}
}

// Weight is the type of an edge's rank: int for HRR, float64 for MR.
type Weight interface {
	~int | ~float64
}

// Node is a named gene with a stable index matching its row and column in
// the correlation and rank matrices.
type Node struct {
	// Index is the row/column position of the gene.
	Index int

	// Name is the gene identifier.
	Name string
}

// Edge is an undirected gene pair. Node1 is always lower than Node2.
type Edge[W Weight] struct {
	// Node1 is the lower-indexed endpoint; the edge is stored at this node.
	Node1 int

	// Node2 is the higher-indexed endpoint.
	Node2 int

	// Corr is the signed Pearson correlation of the pair.
	Corr float64

	// Rank is the reconciled rank weight (HRR or MR).
	Rank W
}

// NewEdge builds an edge with its endpoints in canonical order.
func NewEdge[W Weight](a, b int, corr float64, rank W) Edge[W] {
	if a > b {
		a, b = b, a
	}
	return Edge[W]{Node1: a, Node2: b, Corr: corr, Rank: rank}
}
