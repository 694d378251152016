package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ExpressionTable is a parsed expression matrix: one row per gene, one
// column per sample.
type ExpressionTable struct {
	Genes   []string
	Samples []string
	Values  [][]float64
}

// ReadExpression parses an expression CSV with a header row and a leading
// identifier column. Every remaining field must be a number and every row
// must have as many fields as the header.
func ReadExpression(r io.Reader, path string) (*ExpressionTable, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Path: path, Line: 1, Err: errors.New("missing header")}
	}
	if err != nil {
		return nil, &ParseError{Path: path, Line: 1, Err: err}
	}
	if len(header) < 2 {
		return nil, &ParseError{Path: path, Line: 1, Err: errors.New("need an id column and at least one sample column")}
	}

	// The csv reader enforces the header's width on every row.
	cr.FieldsPerRecord = len(header)

	t := &ExpressionTable{Samples: append([]string(nil), header[1:]...)}
	line := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &ParseError{Path: path, Line: line, Err: err}
		}

		row := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, &ParseError{Path: path, Line: line, Column: i + 2, Err: err}
			}
			row[i] = v
		}

		t.Genes = append(t.Genes, fields[0])
		t.Values = append(t.Values, row)
	}

	if len(t.Genes) == 0 {
		return nil, &ParseError{Path: path, Line: line, Err: errors.New("no expression rows")}
	}
	return t, nil
}

// ReadExpressionFile opens path (gzip-aware) and parses it.
func ReadExpressionFile(path string) (*ExpressionTable, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	t, err := ReadExpression(rc, path)
	if err != nil {
		return nil, fmt.Errorf("reading expression matrix: %w", err)
	}
	return t, nil
}
