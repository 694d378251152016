package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/corrnet-go/internal/parsers"
)

const triangle = `gene_1,gene_2,corr,rank
A,B,0.9,1
B,C,0.8,2
A,C,-0.7,3
C,D,0.6,40
`

func loadTriangle(t *testing.T) *Adjacency {
	t.Helper()
	a := NewAdjacency()
	err := parsers.ScanEdges(strings.NewReader(triangle), "net.csv", parsers.Filter{}, func(r parsers.Record, _ float64) error {
		a.Add(r)
		return nil
	})
	require.NoError(t, err)
	return a
}

func pairs(records []parsers.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Gene1 + r.Gene2
	}
	return out
}

func TestAdjacency(t *testing.T) {
	t.Parallel()

	a := loadTriangle(t)
	assert.Equal(t, 4, a.NodeCount())
	assert.Equal(t, 4, a.EdgeCount())
	assert.Equal(t, []string{"A", "B", "C", "D"}, a.Genes())

	// D only appears as gene_2 but is still reachable.
	d, err := a.Neighbors(context.Background(), "D")
	require.NoError(t, err)
	assert.Equal(t, []string{"CD"}, pairs(d))

	_, err = a.Neighbors(context.Background(), "Z")
	assert.ErrorIs(t, err, ErrUnknownGene)
}

func TestSearch_DepthZeroAndOne(t *testing.T) {
	t.Parallel()

	a := loadTriangle(t)
	ctx := context.Background()

	got, err := Search(ctx, a, "A", 0, ModeWalk)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Search(ctx, a, "A", 1, ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB", "AC"}, pairs(got))
	for _, r := range got {
		assert.True(t, r.Gene1 == "A" || r.Gene2 == "A")
	}

	got, err = Search(ctx, a, "C", 1, ModeSimplePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"BC", "AC", "CD"}, pairs(got))
}

func TestSearch_Walk(t *testing.T) {
	t.Parallel()

	a := loadTriangle(t)
	got, err := Search(context.Background(), a, "A", 2, ModeWalk)
	require.NoError(t, err)

	// A→B→A is followed, so AB is reported twice.
	assert.Equal(t, []string{"AB", "AB", "BC", "AC", "BC", "AC", "CD"}, pairs(got))
	assert.Equal(t, []string{"AB", "BC", "AC", "CD"}, pairs(Unique(got)))
}

func TestSearch_SimplePath(t *testing.T) {
	t.Parallel()

	a := loadTriangle(t)
	got, err := Search(context.Background(), a, "A", 2, ModeSimplePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB", "BC", "AC", "BC", "CD"}, pairs(got))

	deep, err := Search(context.Background(), a, "A", 10, ModeSimplePath)
	require.NoError(t, err)
	assert.NotEmpty(t, deep)
}

func TestSearch_Cutoffs(t *testing.T) {
	t.Parallel()

	a := loadTriangle(t)
	rank := 2.0
	got, err := Search(context.Background(), Filtered(a, parsers.Filter{Rank: &rank}), "C", 1, ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, []string{"BC"}, pairs(got))

	pcc := 0.0
	got, err = Search(context.Background(), Filtered(a, parsers.Filter{PCC: &pcc}), "A", 1, ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB"}, pairs(got), "negative corr fails a signed cutoff")

	got, err = Search(context.Background(), Filtered(a, parsers.Filter{PCC: &pcc, AbsPCC: true}), "A", 1, ModeWalk)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB", "AC"}, pairs(got))
}

func TestSearch_Errors(t *testing.T) {
	t.Parallel()

	a := loadTriangle(t)

	_, err := Search(context.Background(), a, "Z", 1, ModeWalk)
	assert.ErrorIs(t, err, ErrUnknownGene)

	_, err = Search(context.Background(), a, "A", -1, ModeWalk)
	assert.ErrorIs(t, err, ErrNegativeDepth)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Search(ctx, a, "A", 3, ModeWalk)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeWalk, m)

	m, err = ParseMode("simple-path")
	require.NoError(t, err)
	assert.Equal(t, ModeSimplePath, m)

	_, err = ParseMode("bfs")
	assert.Error(t, err)
}
