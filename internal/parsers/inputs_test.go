package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadExpression(t *testing.T) {
	t.Parallel()

	t.Run("Valid", func(t *testing.T) {
		t.Parallel()
		in := "gene,s1,s2,s3\ng1,1,2,3\ng2, 4.5,5,6\n"

		tab, err := ReadExpression(strings.NewReader(in), "exp.csv")
		require.NoError(t, err)

		assert.Equal(t, []string{"g1", "g2"}, tab.Genes)
		assert.Equal(t, []string{"s1", "s2", "s3"}, tab.Samples)
		assert.Equal(t, [][]float64{{1, 2, 3}, {4.5, 5, 6}}, tab.Values)
	})

	t.Run("BadNumber", func(t *testing.T) {
		t.Parallel()
		in := "gene,s1,s2\ng1,1,2\ng2,3,NA?\n"

		_, err := ReadExpression(strings.NewReader(in), "exp.csv")
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 3, pe.Line)
		assert.Equal(t, 3, pe.Column)
	})

	t.Run("Ragged", func(t *testing.T) {
		t.Parallel()
		in := "gene,s1,s2\ng1,1\n"

		_, err := ReadExpression(strings.NewReader(in), "exp.csv")
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("NoRows", func(t *testing.T) {
		t.Parallel()
		_, err := ReadExpression(strings.NewReader("gene,s1\n"), "exp.csv")
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestReadGeneList(t *testing.T) {
	t.Parallel()

	in := "gene_id,comment\nAT1G01010,x\n\nAT1G01020\n AT1G01030 \n"

	set, err := ReadGeneList(strings.NewReader(in), "genes.csv")
	require.NoError(t, err)

	assert.Len(t, set, 3)
	assert.Contains(t, set, "AT1G01010")
	assert.Contains(t, set, "AT1G01030")
}

func TestReadFASTA(t *testing.T) {
	t.Parallel()

	t.Run("MultiLine", func(t *testing.T) {
		t.Parallel()
		in := ">g1 first gene\nATGCAG\nCCCTGA\n\n>g2\tsecond\r\natgaaa\n"

		seqs, err := ReadFASTA(strings.NewReader(in), "s.fa")
		require.NoError(t, err)

		require.Len(t, seqs, 2)
		assert.Equal(t, Sequence{ID: "g1", Description: "first gene", Seq: "ATGCAGCCCTGA"}, seqs[0])
		assert.Equal(t, Sequence{ID: "g2", Description: "second", Seq: "atgaaa"}, seqs[1])
	})

	t.Run("EmptyRecord", func(t *testing.T) {
		t.Parallel()
		in := "\n\n>g1\n>g2 kept\nATG\n"

		seqs, err := ReadFASTA(strings.NewReader(in), "s.fa")
		require.NoError(t, err)

		assert.Equal(t, []Sequence{
			{ID: "g1"},
			{ID: "g2", Description: "kept", Seq: "ATG"},
		}, seqs)
	})

	t.Run("DataBeforeHeader", func(t *testing.T) {
		t.Parallel()
		_, err := ReadFASTA(strings.NewReader("ATG\n>g1\nATG\n"), "s.fa")
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		seqs, err := ReadFASTA(strings.NewReader(""), "s.fa")
		require.NoError(t, err)
		assert.Empty(t, seqs)
	})
}
