package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/corrnet-go/internal/parsers"
)

func TestFiltered(t *testing.T) {
	t.Parallel()

	a := loadTriangle(t)
	ctx := context.Background()

	t.Run("NoCutoffsIsIdentity", func(t *testing.T) {
		assert.Same(t, a, Filtered(a, parsers.Filter{AbsPCC: true}))
	})

	t.Run("RankCutoff", func(t *testing.T) {
		rank := 2.0
		got, err := Search(ctx, Filtered(a, parsers.Filter{Rank: &rank}), "C", 1, ModeWalk)
		require.NoError(t, err)
		assert.Equal(t, []string{"BC"}, pairs(got))
	})

	t.Run("GeneWithNoPassingEdges", func(t *testing.T) {
		rank := 5.0
		got, err := Search(ctx, Filtered(a, parsers.Filter{Rank: &rank}), "D", 2, ModeWalk)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("UnknownGene", func(t *testing.T) {
		pcc := 0.5
		_, err := Search(ctx, Filtered(a, parsers.Filter{PCC: &pcc}), "Z", 1, ModeWalk)
		assert.ErrorIs(t, err, ErrUnknownGene)
	})
}
