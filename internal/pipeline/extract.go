package pipeline

import (
	"context"
	"fmt"

	"github.com/Benny93/corrnet-go/internal/parsers"
)

// DefaultExtractOutput is the output path of Extract when none is given.
const DefaultExtractOutput = "extracted_network.csv"

// GeneFilterMode selects how a gene list restricts edges.
type GeneFilterMode string

const (
	// GeneFilterBoth keeps an edge only if both endpoints are listed.
	GeneFilterBoth GeneFilterMode = "both"

	// GeneFilterAny keeps an edge if at least one endpoint is listed.
	GeneFilterAny GeneFilterMode = "any"
)

// ParseGeneFilterMode parses a mode name. The empty string selects GeneFilterBoth.
func ParseGeneFilterMode(s string) (GeneFilterMode, error) {
	switch GeneFilterMode(s) {
	case "", GeneFilterBoth:
		return GeneFilterBoth, nil
	case GeneFilterAny:
		return GeneFilterAny, nil
	default:
		return "", fmt.Errorf("unknown gene filter mode %q (want both or any)", s)
	}
}

// ExtractOptions configures Extract.
type ExtractOptions struct {
	Common

	Input  string
	Output string

	// GeneList, when set, is a CSV whose first column lists the genes to keep.
	GeneList string
	Mode     GeneFilterMode

	Filter parsers.Filter
}

// ExtractResult summarizes an Extract run.
type ExtractResult struct {
	Output string
	Genes  int
	Read   int
	Kept   int
}

// Extract writes the subnetwork of Input passing the gene list and the
// read-time cutoffs.
func Extract(ctx context.Context, opts ExtractOptions) (*ExtractResult, error) {
	log := opts.logger()
	if opts.Input == "" {
		return nil, ErrNoInput
	}
	out := opts.Output
	if out == "" {
		out = DefaultExtractOutput
	}

	var genes map[string]struct{}
	if opts.GeneList != "" {
		var err error
		genes, err = parsers.ReadGeneListFile(opts.GeneList)
		if err != nil {
			return nil, err
		}
		log.Info("read gene list", "path", opts.GeneList, "genes", len(genes))
	}
	keepGenes := geneFilter(genes, opts.Mode)

	in, err := parsers.Open(opts.Input)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	res := &ExtractResult{Output: out, Genes: len(genes)}
	done := opts.phase("extract")
	err = writeOutput(out, func(w *parsers.AtomicFile) error {
		ew, err := parsers.NewEdgeWriter(w)
		if err != nil {
			return err
		}

		// Cutoffs are applied by ScanEdges; count every record read first.
		all := parsers.Filter{}
		err = parsers.ScanEdges(in, opts.Input, all, func(rec parsers.Record, rank float64) error {
			res.Read++
			if res.Read%65536 == 0 {
				if err := checkCtx(ctx); err != nil {
					return err
				}
			}
			if !keepGenes(rec) || !opts.Filter.Keep(rec, rank) {
				return nil
			}
			res.Kept++
			return ew.Write(rec)
		})
		if err != nil {
			return err
		}
		return ew.Flush()
	})
	if err != nil {
		return nil, err
	}
	done()

	log.Info("extracted network", "read", res.Read, "kept", res.Kept, "output", out)
	return res, nil
}

// geneFilter returns the edge predicate of a gene set. A nil set keeps
// every edge.
func geneFilter(genes map[string]struct{}, mode GeneFilterMode) func(parsers.Record) bool {
	if genes == nil {
		return func(parsers.Record) bool { return true }
	}
	return func(r parsers.Record) bool {
		_, ok1 := genes[r.Gene1]
		_, ok2 := genes[r.Gene2]
		if mode == GeneFilterAny {
			return ok1 || ok2
		}
		return ok1 && ok2
	}
}
