package network

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Benny93/corrnet-go/internal/graph"
	"github.com/Benny93/corrnet-go/internal/rank"
)

func threeGeneFixture(t *testing.T) ([]string, *mat.SymDense, *rank.Matrix) {
	t.Helper()

	names := []string{"gene_1", "gene_2", "gene_3"}
	corr := mat.NewSymDense(3, []float64{
		1.0, 0.9, 0.3,
		0.9, 1.0, 0.5,
		0.3, 0.5, 1.0,
	})
	rk, err := rank.Construct(context.Background(), corr, rank.Options{})
	require.NoError(t, err)

	return names, corr, rk
}

func randomFixture(t *testing.T, n int, seed int64) ([]string, *mat.SymDense, *rank.Matrix) {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	names := make([]string, n)
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		names[i] = string(rune('A' + i))
		corr.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			corr.SetSym(i, j, rng.Float64()*2-1)
		}
	}
	rk, err := rank.Construct(context.Background(), corr, rank.Options{})
	require.NoError(t, err)

	return names, corr, rk
}

func ptr[T any](v T) *T { return &v }

func TestBuildHRR(t *testing.T) {
	t.Parallel()

	t.Run("NoCutoffs", func(t *testing.T) {
		t.Parallel()
		names, corr, rk := threeGeneFixture(t)

		g, stats, err := BuildHRR(names, corr, rk, Cutoffs[int]{})
		require.NoError(t, err)

		assert.Equal(t, []graph.Edge[int]{
			{Node1: 0, Node2: 1, Corr: 0.9, Rank: 1},
			{Node1: 0, Node2: 2, Corr: 0.3, Rank: 2},
			{Node1: 1, Node2: 2, Corr: 0.5, Rank: 2},
		}, g.Edges())
		assert.Equal(t, Stats{Pairs: 3, Edges: 3}, stats)
	})

	t.Run("RankCutoff", func(t *testing.T) {
		t.Parallel()
		names, corr, rk := threeGeneFixture(t)

		g, stats, err := BuildHRR(names, corr, rk, Cutoffs[int]{Rank: ptr(1)})
		require.NoError(t, err)

		require.Equal(t, 1, g.EdgeCount())
		a, b := g.NodeNames(g.Edges()[0])
		assert.Equal(t, "gene_1", a)
		assert.Equal(t, "gene_2", b)
		assert.Equal(t, 2, stats.SkippedRank)
	})

	t.Run("PCCCutoffUsesMagnitude", func(t *testing.T) {
		t.Parallel()
		names := []string{"a", "b", "c"}
		corr := mat.NewSymDense(3, []float64{
			1.0, -0.8, 0.1,
			-0.8, 1.0, 0.2,
			0.1, 0.2, 1.0,
		})
		rk, err := rank.Construct(context.Background(), corr, rank.Options{})
		require.NoError(t, err)

		g, stats, err := BuildHRR(names, corr, rk, Cutoffs[int]{PCC: ptr(0.5)})
		require.NoError(t, err)

		require.Equal(t, 1, g.EdgeCount())
		assert.Equal(t, -0.8, g.Edges()[0].Corr)
		assert.Equal(t, 2, stats.SkippedPCC)
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		t.Parallel()
		_, corr, rk := threeGeneFixture(t)

		_, _, err := BuildHRR([]string{"a", "b"}, corr, rk, Cutoffs[int]{})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		names, corr, rk := randomFixture(t, 12, 42)
		c := Cutoffs[int]{Rank: ptr(5), PCC: ptr(0.2)}

		g1, _, err := BuildHRR(names, corr, rk, c)
		require.NoError(t, err)
		g2, _, err := BuildHRR(names, corr, rk, c)
		require.NoError(t, err)

		assert.Equal(t, g1.Edges(), g2.Edges())
	})

	t.Run("MatchesEveryPairRule", func(t *testing.T) {
		t.Parallel()
		names, corr, rk := randomFixture(t, 10, 3)

		g, _, err := BuildHRR(names, corr, rk, Cutoffs[int]{Rank: ptr(4)})
		require.NoError(t, err)

		// Pair-iteration order must not matter: build the expected set in
		// reverse order and compare as sets.
		want := map[[2]int]int{}
		for j := len(names) - 1; j >= 0; j-- {
			for i := j - 1; i >= 0; i-- {
				h := max(rk.At(i, j), rk.At(j, i))
				if h <= 4 {
					want[[2]int{i, j}] = h
				}
			}
		}
		got := map[[2]int]int{}
		for _, e := range g.Edges() {
			got[[2]int{e.Node1, e.Node2}] = e.Rank
		}
		assert.Equal(t, want, got)
	})
}

func TestBuildHRR_PCCCutoffIsMonotone(t *testing.T) {
	t.Parallel()

	names, corr, rk := randomFixture(t, 15, 11)

	prev := -1
	for _, cutoff := range []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1.0} {
		_, stats, err := BuildHRR(names, corr, rk, Cutoffs[int]{PCC: ptr(cutoff)})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.SkippedPCC, prev, "cutoff %v", cutoff)
		prev = stats.SkippedPCC
	}
}

func TestBuildMR(t *testing.T) {
	t.Parallel()

	t.Run("NoCutoffs", func(t *testing.T) {
		t.Parallel()
		names, corr, rk := threeGeneFixture(t)

		g, _, err := BuildMR(names, corr, rk, Cutoffs[float64]{})
		require.NoError(t, err)

		edges := g.Edges()
		require.Len(t, edges, 3)
		assert.Equal(t, 1.0, edges[0].Rank)
		assert.Equal(t, 2.0, edges[1].Rank)
		assert.InDelta(t, math.Sqrt(2), edges[2].Rank, 1e-12)
	})

	t.Run("RankCutoff", func(t *testing.T) {
		t.Parallel()
		names, corr, rk := threeGeneFixture(t)

		g, stats, err := BuildMR(names, corr, rk, Cutoffs[float64]{Rank: ptr(1.5)})
		require.NoError(t, err)

		assert.Equal(t, 2, g.EdgeCount())
		assert.Equal(t, 1, stats.SkippedRank)
	})
}
