package parsers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// Sequence is one FASTA record.
type Sequence struct {
	// ID is the first whitespace-delimited token of the header line.
	ID string

	// Description is the rest of the header line, if any.
	Description string

	// Seq is the concatenated sequence with line breaks removed. Letter
	// case is kept as written.
	Seq string
}

// ReadFASTA parses every record of a FASTA stream.
func ReadFASTA(r io.Reader, path string) ([]Sequence, error) {
	br := bufio.NewReader(r)
	line, err := checkFirstHeader(br)
	if err != nil {
		return nil, &ParseError{Path: path, Line: line, Err: err}
	}

	sc := seqio.NewScanner(fasta.NewReader(br, linear.NewSeq("", nil, alphabet.DNAgapped)))

	var out []Sequence
	for sc.Next() {
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return nil, &ParseError{Path: path, Line: len(out) + 1, Err: fmt.Errorf("%w: unexpected record type %T", ErrMalformed, sc.Seq())}
		}

		id, desc := splitHeader(s.Name(), s.Description())
		rec := Sequence{ID: id, Description: desc, Seq: lettersString(s.Seq)}
		if rec.ID == "" {
			return nil, &ParseError{Path: path, Line: len(out) + 1, Err: fmt.Errorf("%w: empty record id", ErrMalformed)}
		}
		out = append(out, rec)
	}
	if err := sc.Error(); err != nil {
		return nil, &ParseError{Path: path, Line: len(out) + 1, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	return out, nil
}

// checkFirstHeader skips leading blank lines and fails if the first content
// line is not a record header. It returns the line number it stopped at.
func checkFirstHeader(br *bufio.Reader) (int, error) {
	for line := 1; ; line++ {
		b, err := br.Peek(1)
		if errors.Is(err, io.EOF) {
			return line, nil
		}
		if err != nil {
			return line, err
		}
		switch b[0] {
		case '>':
			return line, nil
		case '\n', '\r':
			if _, err := br.ReadByte(); err != nil {
				return line, err
			}
			if b[0] == '\r' {
				line--
			}
		default:
			return line, fmt.Errorf("%w: sequence data before first header", ErrMalformed)
		}
	}
}

// splitHeader splits a header at its first space or tab, whichever of the
// two the reader broke it at.
func splitHeader(name, desc string) (string, string) {
	header := strings.TrimSpace(name + " " + desc)
	if i := strings.IndexAny(header, " \t"); i >= 0 {
		return header[:i], strings.TrimSpace(header[i+1:])
	}
	return header, ""
}

// lettersString joins sequence letters, dropping any stray carriage returns
// or blanks left from the input lines.
func lettersString(ls alphabet.Letters) string {
	b := make([]byte, 0, len(ls))
	for _, l := range ls {
		b = append(b, byte(l))
	}
	return string(bytes.Join(bytes.Fields(b), nil))
}

// ReadFASTAFile opens path (gzip-aware) and parses its records.
func ReadFASTAFile(path string) ([]Sequence, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	seqs, err := ReadFASTA(rc, path)
	if err != nil {
		return nil, fmt.Errorf("reading fasta: %w", err)
	}
	return seqs, nil
}
