// Package pipeline runs corrnet's end-to-end jobs: building networks from
// expression data, filtering and merging persisted networks, scoring a
// network against codon usage and indexing networks for queries.
//
// Every run reads its inputs up front and writes its output through
// parsers.Create, so a failed run leaves no partial artifact behind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/Benny93/corrnet-go/internal/logging"
	"github.com/Benny93/corrnet-go/internal/metrics"
	"github.com/Benny93/corrnet-go/internal/parsers"
)

// ErrNoInput is returned when a required input path is empty.
var ErrNoInput = errors.New("no input path")

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Common holds the settings shared by every run.
type Common struct {
	// Workers bounds parallel stages. Zero uses GOMAXPROCS.
	Workers int

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger

	// Progress, when set, is told when each phase starts and ends.
	Progress ProgressCallback
}

func (c Common) workers() int {
	if c.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Workers
}

func (c Common) logger() *slog.Logger {
	return logging.OrDiscard(c.Logger)
}

// phase reports the start of name and returns the func that reports its end
// and records its duration.
func (c Common) phase(name string) func() {
	if c.Progress != nil {
		c.Progress(name, 0.0)
	}
	done := metrics.Time(name)
	return func() {
		done()
		if c.Progress != nil {
			c.Progress(name, 1.0)
		}
	}
}

// writeOutput streams through write into path, committing only on success.
func writeOutput(path string, write func(w *parsers.AtomicFile) error) error {
	out, err := parsers.Create(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Abort()
		return err
	}
	if err := out.Commit(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled: %w", err)
	}
	return nil
}
