package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Benny93/corrnet-go/internal/codon"
	"github.com/Benny93/corrnet-go/internal/metrics"
	"github.com/Benny93/corrnet-go/internal/parsers"
	"github.com/Benny93/corrnet-go/internal/rank"
	"github.com/Benny93/corrnet-go/internal/similarity"
)

// CodonOptions configures CodonScore.
type CodonOptions struct {
	Common

	// Network is the edge list to score.
	Network string

	// FASTA holds the coding sequences, optionally gzipped.
	FASTA string

	// Percent of min(network genes, sequences) used as the prefix length k.
	Percent float64

	Policy rank.Policy
	Filter parsers.Filter

	// ExcludeSelf drops each gene from its own codon usage order. By
	// default the gene leads that order, as rank 0 of its row.
	ExcludeSelf bool
}

// CodonResult summarizes a CodonScore run.
type CodonResult struct {
	// Score is the median per-gene cosmix score.
	Score float64

	K             int
	NetworkGenes  int
	Sequences     int
	Scored        int
	MissingInNet  int
	ShorterThanK  int
	UndefinedCorr int
}

type partner struct {
	gene string
	rank float64
}

// CodonScore measures how well a network agrees with codon usage. For each
// sequenced gene with edges, its partners ordered by edge rank are compared
// with its codon usage rank row, over the first k entries. The score is the
// median over genes. Genes with fewer than k partners are skipped and
// counted in ShorterThanK; the run only fails when no gene can be scored.
func CodonScore(ctx context.Context, opts CodonOptions) (*CodonResult, error) {
	log := opts.logger()
	if opts.Network == "" || opts.FASTA == "" {
		return nil, ErrNoInput
	}
	if opts.Percent <= 0 || opts.Percent > 1 {
		return nil, fmt.Errorf("percent must be in (0, 1], got %g", opts.Percent)
	}

	done := opts.phase("read fasta")
	seqs, err := parsers.ReadFASTAFile(opts.FASTA)
	if err != nil {
		return nil, err
	}
	done()

	ids := make([]string, len(seqs))
	raw := make([]string, len(seqs))
	for i, s := range seqs {
		ids[i] = s.ID
		raw[i] = s.Seq
	}

	done = opts.phase("codon rank matrix")
	rk, undefined, err := codon.RankMatrix(ctx, raw, rank.Options{Policy: opts.Policy, Workers: opts.workers()})
	if err != nil {
		return nil, fmt.Errorf("codon usage of %s: %w", opts.FASTA, err)
	}
	done()

	done = opts.phase("read network")
	partners, err := readPartners(opts.Network, opts.Filter)
	if err != nil {
		return nil, err
	}
	done()

	k := int(math.Floor(float64(min(len(partners), len(ids))) * opts.Percent))
	res := &CodonResult{
		K:             k,
		NetworkGenes:  len(partners),
		Sequences:     len(ids),
		UndefinedCorr: undefined,
	}
	log.Info("scoring codon usage", "network_genes", len(partners), "sequences", len(ids), "k", k)
	if k == 0 {
		log.Warn("prefix length k is 0, every score will be 0", "percent", opts.Percent)
	}

	done = opts.phase("cosmix")
	scores := make([]float64, len(ids))
	status := make([]scoreStatus, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			// partners is read-only here; each gene sorts its own copy.
			ps, ok := partners[id]
			if !ok {
				status[i] = statusMissing
				return nil
			}
			byRank := orderPartners(ps)
			byCodon := codonOrder(rk, i, ids, opts.ExcludeSelf)
			if len(byRank) < k || len(byCodon) < k {
				status[i] = statusShort
				return nil
			}

			scores[i] = similarity.Cosmix(byRank, byCodon, k)
			status[i] = statusScored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("cosmix: %w", err)
	}
	done()

	values := make([]float64, 0, len(ids))
	for i, st := range status {
		switch st {
		case statusScored:
			values = append(values, scores[i])
		case statusMissing:
			res.MissingInNet++
		case statusShort:
			res.ShorterThanK++
		}
	}
	res.Scored = len(values)

	metrics.CosmixScores.Add(float64(res.Scored))
	metrics.GenesDropped.WithLabelValues("codon_missing").Add(float64(res.MissingInNet))
	metrics.GenesDropped.WithLabelValues("codon_short").Add(float64(res.ShorterThanK))
	if res.MissingInNet > 0 || res.ShorterThanK > 0 {
		log.Warn("genes skipped", "not_in_network", res.MissingInNet, "fewer_than_k", res.ShorterThanK)
	}

	res.Score, err = similarity.Median(values)
	if err != nil {
		return nil, fmt.Errorf("no gene could be scored: %w", err)
	}
	return res, nil
}

type scoreStatus uint8

const (
	statusMissing scoreStatus = iota
	statusShort
	statusScored
)

// readPartners lists, for every gene of the network, its partners with the
// rank of the connecting edge.
func readPartners(path string, f parsers.Filter) (map[string][]partner, error) {
	in, err := parsers.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	out := make(map[string][]partner)
	err = parsers.ScanEdges(in, path, f, func(r parsers.Record, rank float64) error {
		out[r.Gene1] = append(out[r.Gene1], partner{gene: r.Gene2, rank: rank})
		out[r.Gene2] = append(out[r.Gene2], partner{gene: r.Gene1, rank: rank})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// orderPartners returns partner names by ascending rank. Equal ranks keep
// file order.
func orderPartners(ps []partner) []string {
	sorted := make([]partner, len(ps))
	copy(sorted, ps)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].rank < sorted[b].rank
	})

	out := make([]string, len(sorted))
	for i, p := range sorted {
		out[i] = p.gene
	}
	return out
}

// codonOrder returns every gene ordered by codon usage similarity to gene
// i, strongest first. Gene i itself comes first unless excludeSelf is set.
func codonOrder(rk *rank.Matrix, i int, ids []string, excludeSelf bool) []string {
	ordered := rk.OrderedIndex(i, ids)
	if !excludeSelf {
		return ordered
	}
	out := ordered[:0]
	for _, id := range ordered {
		if id != ids[i] {
			out = append(out, id)
		}
	}
	return out
}
