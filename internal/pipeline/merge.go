package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"

	"github.com/Benny93/corrnet-go/internal/graph"
	"github.com/Benny93/corrnet-go/internal/parsers"
)

// DefaultMergeOutput is the output path of Merge when none is given.
const DefaultMergeOutput = "merge_graph.csv.gz"

// DefaultMaxRank is the priority network's rank limit when none is given.
const DefaultMaxRank = 2000

// MergeHeader is the header row of a merged network.
var MergeHeader = []string{"gene_1", "gene_2", "corr", "hrr_rank", "mr_rank"}

// MergeOptions configures Merge.
type MergeOptions struct {
	Common

	HRR    string
	MR     string
	Output string

	// Priority selects the network whose edges are kept when their rank is
	// at most MaxRank; the other network only contributes its rank.
	// A nil MaxRank selects DefaultMaxRank.
	Priority graph.Method
	MaxRank  *float64
}

// MergeResult summarizes a Merge run.
type MergeResult struct {
	Output   string
	Priority int
	Other    int
	Merged   int
}

type mergeEntry struct {
	rec  parsers.Record
	rank string
}

// Merge joins an HRR and an MR network built from the same data on the
// unordered gene pair. Rows follow the priority network's order and take
// its gene order and correlation.
func Merge(ctx context.Context, opts MergeOptions) (*MergeResult, error) {
	log := opts.logger()
	if opts.HRR == "" || opts.MR == "" {
		return nil, ErrNoInput
	}
	out := opts.Output
	if out == "" {
		out = DefaultMergeOutput
	}
	priority := opts.Priority
	if priority == "" {
		priority = graph.MethodHRR
	}

	primaryPath, otherPath := opts.HRR, opts.MR
	if priority == graph.MethodMR {
		primaryPath, otherPath = opts.MR, opts.HRR
	}

	maxRank := float64(DefaultMaxRank)
	if opts.MaxRank != nil {
		maxRank = *opts.MaxRank
	}
	done := opts.phase("read networks")
	primary, err := parsers.ReadEdgeList(primaryPath, parsers.Filter{Rank: &maxRank})
	if err != nil {
		return nil, err
	}
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	others := make(map[[2]string]string)
	err = scanFile(otherPath, func(r parsers.Record) {
		others[unorderedPair(r.Gene1, r.Gene2)] = r.Rank
	})
	if err != nil {
		return nil, err
	}
	done()

	res := &MergeResult{Output: out, Priority: len(primary), Other: len(others)}
	done = opts.phase("merge")
	err = writeOutput(out, func(w *parsers.AtomicFile) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(MergeHeader); err != nil {
			return err
		}
		for _, rec := range primary {
			otherRank, ok := others[unorderedPair(rec.Gene1, rec.Gene2)]
			if !ok {
				continue
			}
			hrr, mr := rec.Rank, otherRank
			if priority == graph.MethodMR {
				hrr, mr = otherRank, rec.Rank
			}
			if err := cw.Write([]string{rec.Gene1, rec.Gene2, parsers.FormatCorr(rec.Corr), hrr, mr}); err != nil {
				return err
			}
			res.Merged++
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	done()

	log.Info("merged networks", "priority", priority, "max_rank", maxRank, "kept", res.Priority, "merged", res.Merged, "output", out)
	return res, nil
}

func unorderedPair(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

func scanFile(path string, fn func(parsers.Record)) error {
	in, err := parsers.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	return parsers.ScanEdges(in, path, parsers.Filter{}, func(r parsers.Record, _ float64) error {
		fn(r)
		return nil
	})
}
