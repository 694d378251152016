package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/Benny93/corrnet-go/internal/graph"
)

// EdgeListHeader is the header row of the network interchange CSV.
var EdgeListHeader = []string{"gene_1", "gene_2", "corr", "rank"}

// Record is one edge of a persisted network.
//
// Rank is kept as its decimal string: HRR networks write integers, MR
// networks write floats, and readers must not assume either.
type Record struct {
	Gene1 string  `json:"gene_1"`
	Gene2 string  `json:"gene_2"`
	Corr  float64 `json:"corr"`
	Rank  string  `json:"rank"`
}

// RankValue parses the rank as a float.
func (r Record) RankValue() (float64, error) {
	v, err := strconv.ParseFloat(r.Rank, 64)
	if err != nil {
		return 0, fmt.Errorf("rank %q: %w", r.Rank, err)
	}
	return v, nil
}

// Other returns the endpoint that is not gene. If gene is not an endpoint,
// Gene1 is returned.
func (r Record) Other(gene string) string {
	if r.Gene1 == gene {
		return r.Gene2
	}
	return r.Gene1
}

// Filter keeps records passing read-time cutoffs. A nil cutoff is disabled.
//
// PCC compares the signed correlation (corr >= PCC) unless AbsPCC is set,
// in which case it compares |corr| the way network construction does.
type Filter struct {
	PCC    *float64
	Rank   *float64
	AbsPCC bool
}

// Keep reports whether r passes the filter. rank is r's parsed rank.
func (f Filter) Keep(r Record, rank float64) bool {
	if f.PCC != nil {
		corr := r.Corr
		if f.AbsPCC {
			corr = math.Abs(corr)
		}
		if corr < *f.PCC {
			return false
		}
	}
	if f.Rank != nil && rank > *f.Rank {
		return false
	}
	return true
}

// EdgeReader streams records from a network CSV.
type EdgeReader struct {
	csv  *csv.Reader
	path string
	line int
}

// NewEdgeReader validates the header of r and returns a reader positioned
// on the first record. path is used only in error messages.
func NewEdgeReader(r io.Reader, path string) (*EdgeReader, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Path: path, Line: 1, Err: errors.New("missing header")}
	}
	if err != nil {
		return nil, &ParseError{Path: path, Line: 1, Err: err}
	}
	if len(header) != len(EdgeListHeader) {
		return nil, &ParseError{Path: path, Line: 1, Err: fmt.Errorf("header has %d columns, want %v", len(header), EdgeListHeader)}
	}
	for i, name := range EdgeListHeader {
		if header[i] != name {
			return nil, &ParseError{Path: path, Line: 1, Column: i + 1, Err: fmt.Errorf("header %q, want %q", header[i], name)}
		}
	}

	cr.FieldsPerRecord = len(EdgeListHeader)
	return &EdgeReader{csv: cr, path: path, line: 1}, nil
}

// Next returns the next record, or io.EOF when the input is exhausted.
func (er *EdgeReader) Next() (Record, error) {
	fields, err := er.csv.Read()
	if err == io.EOF {
		return Record{}, io.EOF
	}
	er.line++
	if err != nil {
		return Record{}, &ParseError{Path: er.path, Line: er.line, Err: err}
	}

	corr, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Record{}, &ParseError{Path: er.path, Line: er.line, Column: 3, Err: err}
	}
	if _, err := strconv.ParseFloat(fields[3], 64); err != nil {
		return Record{}, &ParseError{Path: er.path, Line: er.line, Column: 4, Err: err}
	}

	return Record{Gene1: fields[0], Gene2: fields[1], Corr: corr, Rank: fields[3]}, nil
}

// ReadEdgeList reads every record of the network at path that passes f.
func ReadEdgeList(path string, f Filter) ([]Record, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var out []Record
	err = ScanEdges(rc, path, f, func(r Record, _ float64) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScanEdges calls fn for every record of r passing f, with its parsed rank.
func ScanEdges(r io.Reader, path string, f Filter, fn func(Record, float64) error) error {
	er, err := NewEdgeReader(r, path)
	if err != nil {
		return err
	}

	for {
		rec, err := er.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		rank, err := rec.RankValue()
		if err != nil {
			return &ParseError{Path: path, Line: er.line, Column: 4, Err: err}
		}
		if !f.Keep(rec, rank) {
			continue
		}
		if err := fn(rec, rank); err != nil {
			return err
		}
	}
}

// EdgeWriter writes records in the network interchange format.
type EdgeWriter struct {
	csv *csv.Writer
}

// NewEdgeWriter writes the header to w and returns a writer for records.
func NewEdgeWriter(w io.Writer) (*EdgeWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(EdgeListHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &EdgeWriter{csv: cw}, nil
}

// Write writes one record.
func (ew *EdgeWriter) Write(r Record) error {
	return ew.csv.Write([]string{r.Gene1, r.Gene2, FormatCorr(r.Corr), r.Rank})
}

// Flush flushes buffered records and reports any write error.
func (ew *EdgeWriter) Flush() error {
	ew.csv.Flush()
	return ew.csv.Error()
}

// FormatCorr formats a correlation so that parsing it back is exact.
func FormatCorr(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatRank formats an HRR rank as an integer and an MR rank as the
// shortest exact decimal.
func FormatRank[W graph.Weight](w W) string {
	if v, ok := any(w).(int); ok {
		return strconv.Itoa(v)
	}
	return strconv.FormatFloat(float64(w), 'f', -1, 64)
}

// EdgeRecord converts a graph edge into its interchange record.
func EdgeRecord[W graph.Weight](g *graph.Graph[W], e graph.Edge[W]) Record {
	a, b := g.NodeNames(e)
	return Record{Gene1: a, Gene2: b, Corr: e.Corr, Rank: FormatRank(e.Rank)}
}

// WriteGraph writes every edge of g, in g.Edges order.
func WriteGraph[W graph.Weight](w io.Writer, g *graph.Graph[W]) error {
	ew, err := NewEdgeWriter(w)
	if err != nil {
		return err
	}
	for _, e := range g.Edges() {
		if err := ew.Write(EdgeRecord(g, e)); err != nil {
			return fmt.Errorf("writing edge: %w", err)
		}
	}
	return ew.Flush()
}
