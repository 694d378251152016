package rank

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestConstruct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("ThreeGenes", func(t *testing.T) {
		t.Parallel()
		corr := mat.NewSymDense(3, []float64{
			1.0, 0.9, 0.3,
			0.9, 1.0, 0.5,
			0.3, 0.5, 1.0,
		})

		m, err := Construct(ctx, corr, Options{Policy: PolicyAbs})
		require.NoError(t, err)

		assert.Equal(t, []int{0, 1, 2}, m.Row(0))
		assert.Equal(t, []int{1, 0, 2}, m.Row(1))
		assert.Equal(t, []int{2, 1, 0}, m.Row(2))
	})

	t.Run("NotSquare", func(t *testing.T) {
		t.Parallel()
		_, err := Construct(ctx, mat.NewDense(2, 3, nil), Options{})
		assert.ErrorIs(t, err, ErrNotSquare)
	})

	t.Run("AbsTreatsNegativeAsStrong", func(t *testing.T) {
		t.Parallel()
		corr := mat.NewSymDense(3, []float64{
			1.0, -0.9, 0.2,
			-0.9, 1.0, 0.1,
			0.2, 0.1, 1.0,
		})

		abs, err := Construct(ctx, corr, Options{Policy: PolicyAbs})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, abs.Row(0))

		signed, err := Construct(ctx, corr, Options{Policy: PolicySigned})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2, 1}, signed.Row(0))
	})

	t.Run("TiesSplitBySortPosition", func(t *testing.T) {
		t.Parallel()
		corr := mat.NewDense(4, 4, []float64{
			1.0, 0.5, 0.5, 0.1,
			0.5, 1.0, 0.2, 0.3,
			0.5, 0.2, 1.0, 0.4,
			0.1, 0.3, 0.4, 1.0,
		})

		m, err := Construct(ctx, corr, Options{})
		require.NoError(t, err)

		// Stable ascending sort of row 0: 0.1(3), 0.5(1), 0.5(2), 1.0(0).
		assert.Equal(t, []int{0, 2, 1, 3}, m.Row(0))
	})

	t.Run("RowsArePermutations", func(t *testing.T) {
		t.Parallel()
		const n = 25
		rng := rand.New(rand.NewSource(7))
		corr := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			corr.SetSym(i, i, 1)
			for j := i + 1; j < n; j++ {
				corr.SetSym(i, j, rng.Float64()*1.8-0.9)
			}
		}

		m, err := Construct(ctx, corr, Options{Workers: 3})
		require.NoError(t, err)

		for i := 0; i < n; i++ {
			row := append([]int(nil), m.Row(i)...)
			assert.Equal(t, 0, row[i], "diagonal must rank first in row %d", i)
			sort.Ints(row)
			for k, v := range row {
				require.Equal(t, k, v, "row %d is not a permutation", i)
			}
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		t.Parallel()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Construct(cctx, mat.NewSymDense(3, nil), Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, HRR(0, 1))
	assert.Equal(t, 5, HRR(5, 1))
	assert.Equal(t, 3, HRR(3, 3))

	assert.InDelta(t, math.Sqrt(2), MR(1, 2), 1e-12)
	assert.Equal(t, 0.0, MR(0, 9))
	assert.Equal(t, 4.0, MR(2, 8))
}

func TestMatrix_OrderedIndex(t *testing.T) {
	t.Parallel()

	m, err := NewMatrix(3, []int{
		0, 2, 1,
		1, 0, 2,
		2, 1, 0,
	})
	require.NoError(t, err)

	names := []string{"a", "b", "c"}
	assert.Equal(t, []string{"a", "c", "b"}, m.OrderedIndex(0, names))
	assert.Equal(t, []string{"c", "b", "a"}, m.OrderedIndex(2, names))
}

func TestNewMatrix_BadLength(t *testing.T) {
	t.Parallel()

	_, err := NewMatrix(2, []int{0, 1, 1})
	assert.ErrorIs(t, err, ErrNotSquare)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbs, p)

	p, err = ParsePolicy("signed")
	require.NoError(t, err)
	assert.Equal(t, PolicySigned, p)

	_, err = ParsePolicy("average")
	assert.Error(t, err)
}
