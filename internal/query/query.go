// Package query explores a persisted co-expression network outward from a
// gene, up to a depth limit.
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/Benny93/corrnet-go/internal/parsers"
)

var (
	// ErrUnknownGene is returned when the query gene has no edges.
	ErrUnknownGene = errors.New("gene not in network")

	// ErrNegativeDepth is returned for a depth below zero.
	ErrNegativeDepth = errors.New("depth must not be negative")
)

// Mode selects how revisits are handled during the search.
type Mode string

const (
	// ModeWalk follows every edge at every step. A node may be entered
	// again (A→B→A), so the same edge can be reported more than once;
	// only the depth bounds the work.
	ModeWalk Mode = "walk"

	// ModeSimplePath never re-enters a node already on the current path.
	ModeSimplePath Mode = "simple-path"
)

// ParseMode parses a mode name. The empty string selects ModeWalk.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeWalk:
		return ModeWalk, nil
	case ModeSimplePath:
		return ModeSimplePath, nil
	default:
		return "", fmt.Errorf("unknown query mode %q (want walk or simple-path)", s)
	}
}

// Source lists the edges touching a gene, whichever endpoint it is.
// Implementations return ErrUnknownGene for a gene without edges.
type Source interface {
	Neighbors(ctx context.Context, gene string) ([]parsers.Record, error)
}

// Search returns one record per edge traversed from gene within depth
// steps. Depth 0 yields nothing; depth 1 yields every edge touching gene.
// Records come in depth-first order.
func Search(ctx context.Context, src Source, gene string, depth int, mode Mode) ([]parsers.Record, error) {
	if depth < 0 {
		return nil, ErrNegativeDepth
	}
	if depth == 0 {
		return nil, nil
	}

	root, err := src.Neighbors(ctx, gene)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", gene, err)
	}

	s := &searcher{src: src, mode: mode}
	if mode == ModeSimplePath {
		s.onPath = map[string]bool{gene: true}
	}
	if err := s.expand(ctx, gene, root, depth); err != nil {
		return nil, err
	}
	return s.out, nil
}

type searcher struct {
	src    Source
	mode   Mode
	onPath map[string]bool
	out    []parsers.Record
}

func (s *searcher) expand(ctx context.Context, gene string, edges []parsers.Record, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, e := range edges {
		next := e.Other(gene)
		if s.onPath != nil && s.onPath[next] {
			continue
		}
		s.out = append(s.out, e)
		if depth == 1 {
			continue
		}

		nextEdges, err := s.src.Neighbors(ctx, next)
		if errors.Is(err, ErrUnknownGene) {
			continue
		}
		if err != nil {
			return fmt.Errorf("neighbors of %s: %w", next, err)
		}

		if s.onPath != nil {
			s.onPath[next] = true
		}
		err = s.expand(ctx, next, nextEdges, depth-1)
		if s.onPath != nil {
			delete(s.onPath, next)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Unique drops repeated edges, keeping the first occurrence of every
// unordered gene pair.
func Unique(records []parsers.Record) []parsers.Record {
	type pair struct{ a, b string }
	seen := make(map[pair]bool, len(records))

	out := make([]parsers.Record, 0, len(records))
	for _, r := range records {
		p := pair{r.Gene1, r.Gene2}
		if p.b < p.a {
			p.a, p.b = p.b, p.a
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, r)
	}
	return out
}
