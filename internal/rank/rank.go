// Package rank converts correlation matrices into row-local rank matrices
// and reconciles the two directional ranks of a gene pair into a single
// undirected weight.
//
// A rank matrix is not symmetric: row i ranks every partner of gene i by
// association strength, with rank 0 for the strongest partner (the gene
// itself, since its self-correlation is 1).
package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ErrNotSquare is returned when a matrix that must be square is not.
var ErrNotSquare = errors.New("matrix is not square")

// Policy selects the value a row is ranked by.
type Policy string

const (
	// PolicyAbs ranks by |corr|, so strong anti-correlation counts as strong.
	PolicyAbs Policy = "abs"
	// PolicySigned ranks by the raw signed correlation.
	PolicySigned Policy = "signed"
)

// ParsePolicy parses a policy name. The empty string selects PolicyAbs.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAbs:
		return PolicyAbs, nil
	case PolicySigned:
		return PolicySigned, nil
	default:
		return "", fmt.Errorf("unknown rank policy %q (want abs or signed)", s)
	}
}

// Matrix is a dense N×N matrix of ranks. Row i is a permutation of 0..N-1.
type Matrix struct {
	n    int
	data []int
}

// NewMatrix wraps row-major rank data of an n×n matrix.
func NewMatrix(n int, data []int) (*Matrix, error) {
	if len(data) != n*n {
		return nil, fmt.Errorf("rank data has %d values, want %d: %w", len(data), n*n, ErrNotSquare)
	}
	return &Matrix{n: n, data: data}, nil
}

// Dims returns the matrix dimension.
func (m *Matrix) Dims() int {
	return m.n
}

// At returns the rank of column j within row i.
func (m *Matrix) At(i, j int) int {
	return m.data[i*m.n+j]
}

// Row returns row i. The returned slice aliases the matrix and must not be modified.
func (m *Matrix) Row(i int) []int {
	return m.data[i*m.n : (i+1)*m.n]
}

// OrderedIndex returns names ordered from the strongest to the weakest
// partner of row i. The row's own entry (rank 0) comes first.
func (m *Matrix) OrderedIndex(i int, names []string) []string {
	row := m.Row(i)
	idx := make([]int, m.n)
	for j := range idx {
		idx[j] = j
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return row[idx[a]] < row[idx[b]]
	})

	out := make([]string, len(idx))
	for k, j := range idx {
		out[k] = names[j]
	}
	return out
}

// Options tunes Construct.
type Options struct {
	Policy  Policy
	Workers int
}

// Construct builds the rank matrix of corr. Each row is ranked on its own;
// rows are computed concurrently.
func Construct(ctx context.Context, corr mat.Matrix, opts Options) (*Matrix, error) {
	r, c := corr.Dims()
	if r != c {
		return nil, fmt.Errorf("correlation matrix is %dx%d: %w", r, c, ErrNotSquare)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := &Matrix{n: r, data: make([]int, r*r)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < r; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values := make([]float64, r)
			for j := range values {
				values[j] = corr.At(i, j)
			}
			rankRow(values, opts.Policy, out.data[i*r:(i+1)*r])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ranking rows: %w", err)
	}

	return out, nil
}

// rankRow writes into dst the rank of every value: n - pos - 1, where pos is
// the value's position in a stable ascending sort. The largest value gets 0.
// Ties are split by column order, never averaged.
func rankRow(values []float64, policy Policy, dst []int) {
	n := len(values)
	keys := make([]float64, n)
	for j, v := range values {
		if policy == PolicySigned {
			keys[j] = v
		} else {
			keys[j] = math.Abs(v)
		}
	}

	order := make([]int, n)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] < keys[order[b]]
	})

	for pos, j := range order {
		dst[j] = n - pos - 1
	}
}

// HRR is the highest reciprocal rank: the worse of the two directional ranks.
func HRR(a, b int) int {
	return max(a, b)
}

// MR is the mutual rank: the geometric mean of the two directional ranks.
func MR(a, b int) float64 {
	return math.Sqrt(float64(a) * float64(b))
}
