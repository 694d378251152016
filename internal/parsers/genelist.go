package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadGeneList reads the first column of a header-bearing CSV into a set.
// Extra columns are ignored; blank identifiers are skipped.
func ReadGeneList(r io.Reader, path string) (map[string]struct{}, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil && err != io.EOF {
		return nil, &ParseError{Path: path, Line: 1, Err: err}
	}

	set := make(map[string]struct{})
	line := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return set, nil
		}
		line++
		if err != nil {
			return nil, &ParseError{Path: path, Line: line, Err: err}
		}

		id := strings.TrimSpace(fields[0])
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
}

// ReadGeneListFile opens path (gzip-aware) and reads its gene set.
func ReadGeneListFile(path string) (map[string]struct{}, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	set, err := ReadGeneList(rc, path)
	if err != nil {
		return nil, fmt.Errorf("reading gene list: %w", err)
	}
	return set, nil
}
