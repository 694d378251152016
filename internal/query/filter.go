package query

import (
	"context"

	"github.com/Benny93/corrnet-go/internal/parsers"
)

// Filtered wraps src so that only edges passing f are visible. A gene whose
// edges all fail f is still known to src and yields an empty list.
func Filtered(src Source, f parsers.Filter) Source {
	if f.PCC == nil && f.Rank == nil {
		return src
	}
	return &filtered{src: src, f: f}
}

type filtered struct {
	src Source
	f   parsers.Filter
}

func (s *filtered) Neighbors(ctx context.Context, gene string) ([]parsers.Record, error) {
	edges, err := s.src.Neighbors(ctx, gene)
	if err != nil {
		return nil, err
	}

	out := make([]parsers.Record, 0, len(edges))
	for _, e := range edges {
		rank, err := e.RankValue()
		if err != nil {
			return nil, err
		}
		if s.f.Keep(e, rank) {
			out = append(out, e)
		}
	}
	return out, nil
}
