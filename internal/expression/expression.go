// Package expression holds gene expression matrices and computes the
// pairwise Pearson correlation between genes.
package expression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrEmpty is returned when no gene rows remain.
	ErrEmpty = errors.New("expression matrix has no rows")

	// ErrBadDDOF is returned for a variance denominator other than 0 or 1.
	ErrBadDDOF = errors.New("ddof must be 0 (population) or 1 (sample)")
)

// Matrix is a genes × samples expression matrix.
type Matrix struct {
	Genes   []string
	Samples []string
	Data    *mat.Dense
}

// New builds a Matrix from per-gene rows, all of the same length.
func New(genes, samples []string, rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	if len(genes) != len(rows) {
		return nil, fmt.Errorf("%d gene ids for %d rows", len(genes), len(rows))
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %s has %d samples, want %d", genes[i], len(row), cols)
		}
		data = append(data, row...)
	}

	return &Matrix{
		Genes:   genes,
		Samples: samples,
		Data:    mat.NewDense(len(rows), cols, data),
	}, nil
}

// FilterDegenerate drops genes whose standard deviation is zero, since
// their correlation with anything is undefined. ddof selects the variance
// denominator (n - ddof); rows too short for it are dropped as well.
// It returns the filtered matrix and the dropped gene ids.
func FilterDegenerate(m *Matrix, ddof int) (*Matrix, []string, error) {
	if ddof != 0 && ddof != 1 {
		return nil, nil, ErrBadDDOF
	}

	rows, cols := m.Data.Dims()
	var (
		keptGenes []string
		keptRows  [][]float64
		dropped   []string
	)
	for i := 0; i < rows; i++ {
		row := mat.Row(nil, i, m.Data)
		if isDegenerate(row, ddof) {
			dropped = append(dropped, m.Genes[i])
			continue
		}
		keptGenes = append(keptGenes, m.Genes[i])
		keptRows = append(keptRows, row)
	}

	if len(keptRows) == 0 {
		return nil, dropped, fmt.Errorf("all %d genes have zero variance over %d samples: %w", rows, cols, ErrEmpty)
	}

	out, err := New(keptGenes, m.Samples, keptRows)
	if err != nil {
		return nil, nil, err
	}
	return out, dropped, nil
}

func isDegenerate(row []float64, ddof int) bool {
	if len(row)-ddof <= 0 {
		return true
	}
	// A constant row is exactly degenerate; the variance check catches
	// rounding that leaves a non-constant row with no spread.
	if floats.Max(row) == floats.Min(row) {
		return true
	}

	var variance float64
	if ddof == 0 {
		variance = stat.PopVariance(row, nil)
	} else {
		variance = stat.Variance(row, nil)
	}
	return variance == 0 || math.IsNaN(variance)
}

// Log2 replaces every value v with log2(v + pseudocount). Rows are
// transformed concurrently.
func Log2(ctx context.Context, m *Matrix, pseudocount float64, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rows, _ := m.Data.Dims()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < rows; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// RawRowView aliases disjoint memory per row.
			row := m.Data.RawRowView(i)
			floats.AddConst(pseudocount, row)
			for j, v := range row {
				row[j] = math.Log2(v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("log2 transform: %w", err)
	}
	return nil
}

// Correlation computes the gene × gene Pearson correlation matrix of rows.
// Undefined coefficients (a row without variance) are reported as 0 and
// counted in the returned int.
func Correlation(rows mat.Matrix) (*mat.SymDense, int) {
	var corr mat.SymDense
	// Variables are columns for gonum, so correlate the transposed matrix.
	stat.CorrelationMatrix(&corr, rows.T(), nil)

	n := corr.SymmetricDim()
	undefined := 0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if math.IsNaN(corr.At(i, j)) {
				corr.SetSym(i, j, 0)
				undefined++
			}
		}
	}
	return &corr, undefined
}
