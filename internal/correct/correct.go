// Package correct adjusts p-values for multiple testing.
package correct

import (
	"math"
	"sort"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

// Corrector adjusts a family of p-values. The result is index-aligned with
// the input.
type Corrector interface {
	Correct(p []float64) []float64
	Name() string
}

// Corrector names.
const (
	NameBH         = "fdr_bh"
	NameBonferroni = "bonferroni"
	NameSidak      = "sidak"
)

var (
	_ Corrector = BenjaminiHochberg{}
	_ Corrector = Bonferroni{}
	_ Corrector = Sidak{}
)

// ByName returns the corrector registered under name.
func ByName(name string) (Corrector, error) {
	switch name {
	case NameBH, "fdr", "bh", "":
		return BenjaminiHochberg{}, nil
	case NameBonferroni:
		return Bonferroni{}, nil
	case NameSidak:
		return Sidak{}, nil
	default:
		return nil, gsea.Configuration("unknown correction %q (want %s, %s or %s)",
			name, NameBH, NameBonferroni, NameSidak)
	}
}

// BenjaminiHochberg controls the false discovery rate with the step-up
// procedure.
type BenjaminiHochberg struct{}

func (BenjaminiHochberg) Name() string { return NameBH }

func (BenjaminiHochberg) Correct(pvals []float64) []float64 {
	n := len(pvals)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return pvals[idx[i]] < pvals[idx[j]]
	})

	q := make([]float64, n)
	minQ := 1.0
	for i := n - 1; i >= 0; i-- {
		orig := idx[i]
		adjusted := min(pvals[orig]*float64(n)/float64(i+1), 1)
		if adjusted < minQ {
			minQ = adjusted
		} else {
			adjusted = minQ
		}
		q[orig] = adjusted
	}
	return q
}

// Bonferroni multiplies each p-value by the family size.
type Bonferroni struct{}

func (Bonferroni) Name() string { return NameBonferroni }

func (Bonferroni) Correct(pvals []float64) []float64 {
	out := make([]float64, len(pvals))
	m := float64(len(pvals))
	for i, p := range pvals {
		out[i] = min(p*m, 1)
	}
	return out
}

// Sidak computes the family-wise error rate 1 - (1 - p)^m.
type Sidak struct{}

func (Sidak) Name() string { return NameSidak }

func (Sidak) Correct(pvals []float64) []float64 {
	out := make([]float64, len(pvals))
	m := float64(len(pvals))
	for i, p := range pvals {
		if p >= 1 {
			out[i] = 1
			continue
		}
		out[i] = min(-math.Expm1(m*math.Log1p(-p)), 1)
	}
	return out
}
