package similarity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosmix(t *testing.T) {
	t.Parallel()

	t.Run("PartialOverlap", func(t *testing.T) {
		t.Parallel()
		l := []int{0, 1, 2, 5, 6}
		rl := []int{1, 2, 3, 4, 6}

		assert.Equal(t, 1.0/3.0, Cosmix(l, rl, 2))
		assert.Equal(t, 0.5, Cosmix(l, rl, 3))
		assert.Equal(t, 5.0/10.0, Cosmix(l, rl, 4))
		assert.Equal(t, 8.0/15.0, Cosmix(l, rl, 5))
	})

	t.Run("Identical", func(t *testing.T) {
		t.Parallel()
		l := []string{"a", "b", "c", "d", "e"}

		for k := 1; k <= len(l); k++ {
			assert.Equal(t, 1.0, Cosmix(l, l, k))
		}
	})

	t.Run("SamePrefixSets", func(t *testing.T) {
		t.Parallel()
		// Pairwise swaps keep prefix sets equal at even depths only.
		l := []int{1, 2, 3, 4}
		rl := []int{2, 1, 4, 3}

		assert.Equal(t, (0.0+2+2+4)/10, Cosmix(l, rl, 4))
	})

	t.Run("Disjoint", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, Cosmix([]int{1, 2, 3}, []int{4, 5, 6}, 3))
	})

	t.Run("ZeroK", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, Cosmix([]int{1}, []int{1}, 0))
	})

	t.Run("KTooLarge", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { Cosmix([]int{1, 2}, []int{1, 2, 3}, 3) })
		assert.Panics(t, func() { Cosmix([]int{1, 2, 3}, []int{1, 2}, 3) })
	})

	t.Run("Bounded", func(t *testing.T) {
		t.Parallel()
		rng := rand.New(rand.NewSource(5))
		for trial := 0; trial < 200; trial++ {
			n := 1 + rng.Intn(30)
			l := rng.Perm(n)
			rl := rng.Perm(n)
			k := rng.Intn(n + 1)

			score := Cosmix(l, rl, k)
			require.GreaterOrEqual(t, score, 0.0)
			require.LessOrEqual(t, score, 1.0)
		}
	})
}

func TestMedian(t *testing.T) {
	t.Parallel()

	odd := []float64{1, 1, 2, 4, 5, 8, 9, 10, 11}
	m, err := Median(odd)
	require.NoError(t, err)
	assert.Equal(t, 5.0, m)

	even := []float64{14, 1, 1, 2, 4, 5, 8, 9, 10, 11}
	m, err = Median(even)
	require.NoError(t, err)
	assert.Equal(t, 6.5, m)
	assert.Equal(t, 14.0, even[0], "input must not be reordered")

	m, err = Median([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m)

	_, err = Median(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}
