// Package codon derives codon usage vectors from coding sequences and ranks
// genes by the similarity of their codon usage. The result is a signal
// independent of expression data, used to validate co-expression rankings.
package codon

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/Benny93/corrnet-go/internal/expression"
	"github.com/Benny93/corrnet-go/internal/rank"
)

// Size is the number of sense (non-stop) codons.
const Size = 61

// ErrNoSequences is returned when there is nothing to rank.
var ErrNoSequences = errors.New("no sequences")

var stopCodons = map[string]bool{"TAA": true, "TAG": true, "TGA": true}

// codons lists the sense codons in lexical order; index maps each to its slot.
var codons, index = buildTable()

func buildTable() ([]string, map[string]int) {
	const nuc = "ACGT"
	list := make([]string, 0, Size)
	for _, a := range nuc {
		for _, b := range nuc {
			for _, c := range nuc {
				cd := string([]rune{a, b, c})
				if !stopCodons[cd] {
					list = append(list, cd)
				}
			}
		}
	}
	sort.Strings(list)

	idx := make(map[string]int, len(list))
	for i, cd := range list {
		idx[cd] = i
	}
	return list, idx
}

// Vector counts the sense codons of seq read in frame from position 0.
// A trailing partial codon, stop codons and codons containing anything
// other than A, C, G or T are not counted. Case is ignored.
func Vector(seq string) []float64 {
	v := make([]float64, Size)
	seq = strings.ToUpper(seq)
	for i := 0; i+3 <= len(seq); i += 3 {
		if slot, ok := index[seq[i:i+3]]; ok {
			v[slot]++
		}
	}
	return v
}

// Matrix builds the genes × codons usage matrix of seqs.
func Matrix(seqs []string) (*mat.Dense, error) {
	if len(seqs) == 0 {
		return nil, ErrNoSequences
	}

	m := mat.NewDense(len(seqs), Size, nil)
	for i, s := range seqs {
		m.SetRow(i, Vector(s))
	}
	return m, nil
}

// RankMatrix correlates the codon usage of every pair of sequences and
// ranks each row. It returns the number of undefined coefficients (genes
// without any countable codon variation) alongside the ranks.
func RankMatrix(ctx context.Context, seqs []string, opts rank.Options) (*rank.Matrix, int, error) {
	m, err := Matrix(seqs)
	if err != nil {
		return nil, 0, err
	}

	corr, undefined := expression.Correlation(m)
	rk, err := rank.Construct(ctx, corr, opts)
	if err != nil {
		return nil, undefined, err
	}
	return rk, undefined, nil
}
