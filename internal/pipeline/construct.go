package pipeline

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Benny93/corrnet-go/internal/expression"
	"github.com/Benny93/corrnet-go/internal/graph"
	"github.com/Benny93/corrnet-go/internal/metrics"
	"github.com/Benny93/corrnet-go/internal/network"
	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/rank"
)

// Default output paths of Construct, by method.
const (
	DefaultHRROutput = "hrr_based_network.csv"
	DefaultMROutput  = "mr_based_network.csv"
)

// ConstructOptions configures Construct.
type ConstructOptions struct {
	Common

	// Input is the expression CSV (genes × samples), optionally gzipped.
	Input string

	// Output is the network CSV. Empty selects the method's default path.
	Output string

	Method graph.Method
	Policy rank.Policy

	// Log2 transforms every value to log2(v + Pseudocount) first.
	Log2        bool
	Pseudocount float64

	// DDOF is the variance denominator offset of the zero-variance filter.
	DDOF int

	// RankCutoff keeps edges whose reconciled rank is at most this value.
	// For HRR it is truncated to an integer.
	RankCutoff *float64

	// PCCCutoff keeps pairs with |corr| at least this value.
	PCCCutoff *float64
}

// ConstructResult summarizes a Construct run.
type ConstructResult struct {
	Output    string
	Genes     int
	Samples   int
	Dropped   []string
	Undefined int
	Stats     network.Stats

	// Graph describes the written network.
	Graph graph.Summary
}

// Construct builds a co-expression network from an expression matrix:
// correlation, rank matrix, then the HRR or MR edge policy.
func Construct(ctx context.Context, opts ConstructOptions) (*ConstructResult, error) {
	log := opts.logger()
	if opts.Input == "" {
		return nil, ErrNoInput
	}

	method := opts.Method
	if method == "" {
		method = graph.MethodHRR
	}
	out := opts.Output
	if out == "" {
		out = DefaultHRROutput
		if method == graph.MethodMR {
			out = DefaultMROutput
		}
	}

	done := opts.phase("read expression")
	tab, err := parsers.ReadExpressionFile(opts.Input)
	if err != nil {
		return nil, err
	}
	m, err := expression.New(tab.Genes, tab.Samples, tab.Values)
	if err != nil {
		return nil, fmt.Errorf("expression matrix: %w", err)
	}
	done()
	log.Info("read expression", "path", opts.Input, "genes", len(tab.Genes), "samples", len(tab.Samples))

	if opts.Log2 {
		done = opts.phase("log2 transform")
		if err := expression.Log2(ctx, m, opts.Pseudocount, opts.workers()); err != nil {
			return nil, err
		}
		done()
	}

	m, dropped, err := expression.FilterDegenerate(m, opts.DDOF)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		metrics.GenesDropped.WithLabelValues("variance").Add(float64(len(dropped)))
		log.Warn("dropped genes without variance", "count", len(dropped))
		log.Debug("dropped genes", "genes", dropped)
	}

	done = opts.phase("correlation")
	corr, undefined := expression.Correlation(m.Data)
	done()
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	done = opts.phase("rank matrix")
	rk, err := rank.Construct(ctx, corr, rank.Options{Policy: opts.Policy, Workers: opts.workers()})
	if err != nil {
		return nil, err
	}
	done()

	_, samples := m.Data.Dims()
	res := &ConstructResult{
		Output:    out,
		Genes:     len(m.Genes),
		Samples:   samples,
		Dropped:   dropped,
		Undefined: undefined,
	}

	done = opts.phase("build network")
	switch method {
	case graph.MethodHRR:
		c := network.Cutoffs[int]{PCC: opts.PCCCutoff}
		if opts.RankCutoff != nil {
			r := int(math.Floor(*opts.RankCutoff))
			c.Rank = &r
		}
		res.Stats, res.Graph, err = buildAndWrite(out, m.Genes, corr, rk, c, network.BuildHRR)
	case graph.MethodMR:
		c := network.Cutoffs[float64]{PCC: opts.PCCCutoff, Rank: opts.RankCutoff}
		res.Stats, res.Graph, err = buildAndWrite(out, m.Genes, corr, rk, c, network.BuildMR)
	default:
		return nil, fmt.Errorf("unknown method %q", method)
	}
	if err != nil {
		return nil, err
	}
	done()

	metrics.EdgesBuilt.WithLabelValues(string(method)).Add(float64(res.Stats.Edges))
	metrics.PairsSkipped.WithLabelValues("pcc").Add(float64(res.Stats.SkippedPCC))
	metrics.PairsSkipped.WithLabelValues("rank").Add(float64(res.Stats.SkippedRank))
	log.Info("built network",
		"method", method,
		"pairs", res.Stats.Pairs,
		"edges", res.Stats.Edges,
		"skipped_pcc", res.Stats.SkippedPCC,
		"skipped_rank", res.Stats.SkippedRank,
		"isolated", res.Graph.Isolated,
		"max_degree", res.Graph.MaxDegree,
		"hub", res.Graph.Hub,
		"output", out,
	)
	return res, nil
}

type builder[W graph.Weight] func([]string, mat.Symmetric, *rank.Matrix, network.Cutoffs[W]) (*graph.Graph[W], network.Stats, error)

func buildAndWrite[W graph.Weight](
	out string,
	names []string,
	corr mat.Symmetric,
	rk *rank.Matrix,
	c network.Cutoffs[W],
	build builder[W],
) (network.Stats, graph.Summary, error) {
	g, stats, err := build(names, corr, rk, c)
	if err != nil {
		return stats, graph.Summary{}, err
	}
	err = writeOutput(out, func(w *parsers.AtomicFile) error {
		return parsers.WriteGraph(w, g)
	})
	return stats, g.Stats(), err
}
