package parsers

import (
	"bytes"
	"compress/gzip"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/corrnet-go/internal/graph"
)

func ptr[T any](v T) *T { return &v }

func TestWriteGraph_RoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("HRR", func(t *testing.T) {
		t.Parallel()
		g := graph.New[int]([]string{"g1", "g2", "g3"})
		require.NoError(t, g.Push(graph.NewEdge(0, 1, 0.9, 1)))
		require.NoError(t, g.Push(graph.NewEdge(1, 2, -0.123456789012345, 12)))

		var buf bytes.Buffer
		require.NoError(t, WriteGraph(&buf, g))

		assert.True(t, strings.HasPrefix(buf.String(), "gene_1,gene_2,corr,rank\n"))
		assert.Contains(t, buf.String(), "g2,g3,-0.123456789012345,12\n")

		var got []Record
		err := ScanEdges(&buf, "mem", Filter{}, func(r Record, _ float64) error {
			got = append(got, r)
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, []Record{
			{Gene1: "g1", Gene2: "g2", Corr: 0.9, Rank: "1"},
			{Gene1: "g2", Gene2: "g3", Corr: -0.123456789012345, Rank: "12"},
		}, got)
	})

	t.Run("MR", func(t *testing.T) {
		t.Parallel()
		g := graph.New[float64]([]string{"a", "b"})
		require.NoError(t, g.Push(graph.NewEdge(0, 1, 1.0/3.0, math.Sqrt(2))))

		var buf bytes.Buffer
		require.NoError(t, WriteGraph(&buf, g))

		var got []Record
		require.NoError(t, ScanEdges(&buf, "mem", Filter{}, func(r Record, rank float64) error {
			assert.Equal(t, math.Sqrt(2), rank)
			got = append(got, r)
			return nil
		}))
		require.Len(t, got, 1)
		assert.Equal(t, 1.0/3.0, got[0].Corr)
	})
}

func TestFormatRank(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2000000", FormatRank(2000000))
	assert.Equal(t, "3", FormatRank(3.0))
	assert.Equal(t, "1.5", FormatRank(1.5))
}

func TestFilter_Keep(t *testing.T) {
	t.Parallel()

	rec := Record{Gene1: "a", Gene2: "b", Corr: -0.8, Rank: "5"}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"NoCutoffs", Filter{}, true},
		{"SignedPCCRejectsNegative", Filter{PCC: ptr(0.5)}, false},
		{"AbsPCCKeepsNegative", Filter{PCC: ptr(0.5), AbsPCC: true}, true},
		{"RankEqualKept", Filter{Rank: ptr(5.0)}, true},
		{"RankAboveRejected", Filter{Rank: ptr(4.9)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.filter.Keep(rec, 5))
		})
	}
}

func TestNewEdgeReader_Errors(t *testing.T) {
	t.Parallel()

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		_, err := NewEdgeReader(strings.NewReader(""), "x.csv")
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("WrongHeader", func(t *testing.T) {
		t.Parallel()
		_, err := NewEdgeReader(strings.NewReader("a,b,c,d\n"), "x.csv")
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 1, pe.Column)
	})

	t.Run("BadCorr", func(t *testing.T) {
		t.Parallel()
		er, err := NewEdgeReader(strings.NewReader("gene_1,gene_2,corr,rank\na,b,high,1\n"), "x.csv")
		require.NoError(t, err)

		_, err = er.Next()
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 2, pe.Line)
		assert.Equal(t, 3, pe.Column)
		assert.Contains(t, pe.Error(), "x.csv:2: field 3")
	})

	t.Run("Ragged", func(t *testing.T) {
		t.Parallel()
		er, err := NewEdgeReader(strings.NewReader("gene_1,gene_2,corr,rank\na,b,0.5\n"), "x.csv")
		require.NoError(t, err)

		_, err = er.Next()
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestReadEdgeList_Gzip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "net.csv.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte("gene_1,gene_2,corr,rank\na,b,0.9,1\nb,c,0.2,7.5\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	recs, err := ReadEdgeList(path, Filter{Rank: ptr(5.0)})
	require.NoError(t, err)
	assert.Equal(t, []Record{{Gene1: "a", Gene2: "b", Corr: 0.9, Rank: "1"}}, recs)
}

func TestCreate_Atomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("CommitGzip", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv.gz")
		f, err := Create(path)
		require.NoError(t, err)
		_, err = f.Write([]byte("gene_1,gene_2,corr,rank\nx,y,0.5,2\n"))
		require.NoError(t, err)
		require.NoError(t, f.Commit())

		recs, err := ReadEdgeList(path, Filter{})
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("AbortLeavesNothing", func(t *testing.T) {
		path := filepath.Join(dir, "aborted.csv")
		f, err := Create(path)
		require.NoError(t, err)
		_, err = f.Write([]byte("partial"))
		require.NoError(t, err)
		f.Abort()

		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}
