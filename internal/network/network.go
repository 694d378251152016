// Package network builds rank-weighted co-expression networks from a
// correlation matrix and its rank matrix.
//
// Two policies reconcile the asymmetric directional ranks of a gene pair:
// HRR keeps the worse of the two ranks, MR takes their geometric mean.
// Both iterate pairs in canonical (i, j), i < j order so the resulting edge
// list is deterministic.
package network

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Benny93/corrnet-go/internal/graph"
	"github.com/Benny93/corrnet-go/internal/rank"
)

// ErrShapeMismatch is returned when names, correlation and rank matrices disagree in size.
var ErrShapeMismatch = errors.New("names, correlation and rank matrix sizes differ")

// Cutoffs filters candidate edges. A nil field disables that filter.
type Cutoffs[W graph.Weight] struct {
	// Rank is the largest reconciled rank kept.
	Rank *W

	// PCC is the smallest |corr| kept.
	PCC *float64
}

// Stats counts what happened to every candidate pair during a build.
type Stats struct {
	Pairs       int
	SkippedPCC  int
	SkippedRank int
	Edges       int
}

// BuildHRR builds a network weighted by the highest reciprocal rank.
func BuildHRR(names []string, corr mat.Symmetric, rk *rank.Matrix, c Cutoffs[int]) (*graph.Graph[int], Stats, error) {
	return build(names, corr, rk, c, rank.HRR)
}

// BuildMR builds a network weighted by the mutual rank.
func BuildMR(names []string, corr mat.Symmetric, rk *rank.Matrix, c Cutoffs[float64]) (*graph.Graph[float64], Stats, error) {
	return build(names, corr, rk, c, rank.MR)
}

// build runs the pairwise loop shared by both policies. The pcc filter is
// applied before reconciling ranks so cheap rejections skip the rank lookup.
func build[W graph.Weight](
	names []string,
	corr mat.Symmetric,
	rk *rank.Matrix,
	c Cutoffs[W],
	reconcile func(a, b int) W,
) (*graph.Graph[W], Stats, error) {
	n := len(names)
	if corr.SymmetricDim() != n || rk.Dims() != n {
		return nil, Stats{}, fmt.Errorf("%d names, %d correlation rows, %d rank rows: %w",
			n, corr.SymmetricDim(), rk.Dims(), ErrShapeMismatch)
	}

	g := graph.New[W](names)
	var stats Stats

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			stats.Pairs++
			pcc := corr.At(i, j)

			if c.PCC != nil && math.Abs(pcc) < *c.PCC {
				stats.SkippedPCC++
				continue
			}

			w := reconcile(rk.At(i, j), rk.At(j, i))
			if c.Rank != nil && w > *c.Rank {
				stats.SkippedRank++
				continue
			}

			if err := g.Push(graph.NewEdge(i, j, pcc, w)); err != nil {
				return nil, stats, fmt.Errorf("pushing edge %s-%s: %w", names[i], names[j], err)
			}
			stats.Edges++
		}
	}

	return g, stats, nil
}
