// Package parsers reads and writes the file formats corrnet exchanges with
// other tools: the network edge-list CSV, expression matrices, gene lists
// and FASTA sequences. Any input or output path ending in ".gz" is
// transparently gzip-compressed.
package parsers

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrMalformed marks input that cannot be parsed.
var ErrMalformed = errors.New("malformed input")

// ParseError locates a malformed field in an input file.
type ParseError struct {
	// Path is the input file, if known.
	Path string

	// Line is the 1-based line or record number.
	Line int

	// Column is the 1-based field number, or 0 for whole-record problems.
	Column int

	// Err is the underlying problem.
	Err error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "input"
	}
	if e.Column > 0 {
		return fmt.Sprintf("%s:%d: field %d: %v", loc, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s:%d: %v", loc, e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}

// IsGzip reports whether path should be treated as gzip-compressed.
func IsGzip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gz")
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Open opens path for reading, decompressing it when it ends in ".gz".
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	if !IsGzip(path) {
		return &readCloser{Reader: bufio.NewReader(f), closers: []io.Closer{f}}, nil
	}

	// MultiReader mode is on by default, so concatenated members are read
	// as one stream.
	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
	}
	return &readCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
}

// AtomicFile is an output file that only appears at its final path once
// Commit succeeds. A run that fails part-way leaves no partial artifact.
type AtomicFile struct {
	io.Writer

	path string
	tmp  *os.File
	buf  *bufio.Writer
	gz   *gzip.Writer
	done bool
}

// Create starts writing path through a temporary file in the same
// directory. Output is gzip-compressed when path ends in ".gz".
func Create(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating output for %s: %w", path, err)
	}

	a := &AtomicFile{path: path, tmp: tmp, buf: bufio.NewWriter(tmp)}
	a.Writer = a.buf
	if IsGzip(path) {
		a.gz = gzip.NewWriter(a.buf)
		a.Writer = a.gz
	}
	return a, nil
}

// Commit flushes all layers and renames the temporary file into place.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	a.done = true

	if a.gz != nil {
		if err := a.gz.Close(); err != nil {
			return a.fail(fmt.Errorf("closing gzip stream: %w", err))
		}
	}
	if err := a.buf.Flush(); err != nil {
		return a.fail(fmt.Errorf("flushing %s: %w", a.path, err))
	}
	if err := a.tmp.Close(); err != nil {
		_ = os.Remove(a.tmp.Name())
		return fmt.Errorf("closing %s: %w", a.path, err)
	}
	if err := os.Rename(a.tmp.Name(), a.path); err != nil {
		_ = os.Remove(a.tmp.Name())
		return fmt.Errorf("renaming output into %s: %w", a.path, err)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	_ = a.tmp.Close()
	_ = os.Remove(a.tmp.Name())
}

func (a *AtomicFile) fail(err error) error {
	_ = a.tmp.Close()
	_ = os.Remove(a.tmp.Name())
	return err
}
