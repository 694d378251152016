package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	g := New[int]([]string{"g1", "g2", "g3"})

	assert.NotNil(t, g)
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, Node{Index: 1, Name: "g2"}, g.Nodes()[1])
	assert.Empty(t, g.Edges())
}

func TestGraph_Push(t *testing.T) {
	t.Parallel()

	t.Run("StoresAtLowerEndpoint", func(t *testing.T) {
		t.Parallel()
		g := New[int]([]string{"a", "b", "c"})

		require.NoError(t, g.Push(Edge[int]{Node1: 1, Node2: 2, Corr: 0.5, Rank: 1}))
		require.NoError(t, g.Push(Edge[int]{Node1: 0, Node2: 2, Corr: 0.3, Rank: 2}))

		assert.Equal(t, 2, g.EdgeCount())
		assert.Equal(t, []Edge[int]{
			{Node1: 0, Node2: 2, Corr: 0.3, Rank: 2},
			{Node1: 1, Node2: 2, Corr: 0.5, Rank: 1},
		}, g.Edges())
	})

	t.Run("OutOfRange", func(t *testing.T) {
		t.Parallel()
		g := New[int]([]string{"a", "b"})

		err := g.Push(Edge[int]{Node1: 0, Node2: 5})
		assert.ErrorIs(t, err, ErrNodeOutOfRange)
		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("NotCanonical", func(t *testing.T) {
		t.Parallel()
		g := New[float64]([]string{"a", "b"})

		assert.ErrorIs(t, g.Push(Edge[float64]{Node1: 1, Node2: 0}), ErrNotCanonical)
		assert.ErrorIs(t, g.Push(Edge[float64]{Node1: 1, Node2: 1}), ErrNotCanonical)
	})
}

func TestGraph_Edges(t *testing.T) {
	t.Parallel()

	g := New[float64]([]string{"a", "b", "c", "d"})
	require.NoError(t, g.Push(NewEdge(2, 3, 0.1, 3.0)))
	require.NoError(t, g.Push(NewEdge(1, 0, 0.9, 1.0)))
	require.NoError(t, g.Push(NewEdge(0, 3, 0.4, 2.0)))

	edges := g.Edges()
	require.Len(t, edges, 3)

	// Node-index order, then insertion order.
	assert.Equal(t, Edge[float64]{Node1: 0, Node2: 1, Corr: 0.9, Rank: 1.0}, edges[0])
	assert.Equal(t, Edge[float64]{Node1: 0, Node2: 3, Corr: 0.4, Rank: 2.0}, edges[1])
	assert.Equal(t, Edge[float64]{Node1: 2, Node2: 3, Corr: 0.1, Rank: 3.0}, edges[2])
}

func TestGraph_NodeNames(t *testing.T) {
	t.Parallel()

	g := New[int]([]string{"AT1G01010", "AT1G01020"})
	e := NewEdge(1, 0, 0.7, 4)

	a, b := g.NodeNames(e)
	assert.Equal(t, "AT1G01010", a)
	assert.Equal(t, "AT1G01020", b)

	assert.Panics(t, func() {
		g.NodeNames(Edge[int]{Node1: 0, Node2: 9})
	})
}

func TestGraph_Adjacency(t *testing.T) {
	t.Parallel()

	g := New[int]([]string{"a", "b", "c"})
	require.NoError(t, g.Push(NewEdge(0, 1, 0.9, 1)))
	require.NoError(t, g.Push(NewEdge(1, 2, 0.5, 2)))

	adj := g.Adjacency()

	// Node 2 never stores an edge, but the symmetric index still reaches it.
	require.Len(t, adj[2], 1)
	assert.Equal(t, Edge[int]{Node1: 1, Node2: 2, Corr: 0.5, Rank: 2}, adj[2][0])
	assert.Len(t, adj[1], 2)
	assert.Len(t, adj[0], 1)
}

func TestGraph_Stats(t *testing.T) {
	t.Parallel()

	g := New[int]([]string{"a", "b", "c", "d"})
	require.NoError(t, g.Push(NewEdge(0, 1, 0.9, 1)))
	require.NoError(t, g.Push(NewEdge(1, 2, 0.5, 2)))

	assert.Equal(t, Summary{Nodes: 4, Edges: 2, Isolated: 1, MaxDegree: 2, Hub: "b"}, g.Stats())

	empty := New[float64]([]string{"x", "y"})
	assert.Equal(t, Summary{Nodes: 2, Isolated: 2}, empty.Stats())
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Method
		err  bool
	}{
		{"", MethodHRR, false},
		{"HRR", MethodHRR, false},
		{"mr", MethodMR, false},
		{"MR", MethodMR, false},
		{"pcc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMethod(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
