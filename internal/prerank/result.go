package prerank

import (
	"cmp"
	"math"
	"slices"

	"github.com/maayanlab/turbogsea/internal/correct"
	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/gsea"
)

// SortKey orders the result table.
type SortKey string

const (
	SortPValue SortKey = "pvalue"
	SortFDR    SortKey = "fdr"
	SortES     SortKey = "es"
	SortNES    SortKey = "nes"
	SortName   SortKey = "name"
)

// ParseSortKey validates a sort key name. Empty means SortPValue.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case "":
		return SortPValue, nil
	case SortPValue, SortFDR, SortES, SortNES, SortName:
		return k, nil
	default:
		return "", gsea.Configuration("unknown sort key %q (want pvalue, fdr, es, nes or name)", s)
	}
}

// Scored is one gene set after scoring and before correction.
type Scored struct {
	Name        string
	Size        int
	ES          float64
	NES         float64
	PValue      float64
	Position    int
	LeadingEdge []string
	Method      gammafit.Method
}

// EnrichmentResult is one row of the result table.
type EnrichmentResult struct {
	Term   string
	ES     float64
	NES    float64
	PValue float64
	// FDR is the p-value adjusted by the configured corrector.
	FDR float64
	// FWER is the Sidak family-wise error rate.
	FWER        float64
	Size        int
	Position    int
	LeadingEdge []string
	Method      gammafit.Method
}

// Aggregate corrects p-values across all scored sets and orders the table
// by key. Ties are broken by |ES| descending, then by name.
func Aggregate(scored []Scored, c correct.Corrector, key SortKey) []EnrichmentResult {
	p := make([]float64, len(scored))
	for i, s := range scored {
		p[i] = s.PValue
	}
	q := c.Correct(p)
	fwer := correct.Sidak{}.Correct(p)

	out := make([]EnrichmentResult, len(scored))
	for i, s := range scored {
		out[i] = EnrichmentResult{
			Term:        s.Name,
			ES:          s.ES,
			NES:         s.NES,
			PValue:      s.PValue,
			FDR:         q[i],
			FWER:        fwer[i],
			Size:        s.Size,
			Position:    s.Position,
			LeadingEdge: s.LeadingEdge,
			Method:      s.Method,
		}
	}

	slices.SortStableFunc(out, func(a, b EnrichmentResult) int {
		if c := compareKey(a, b, key); c != 0 {
			return c
		}
		if c := cmp.Compare(math.Abs(b.ES), math.Abs(a.ES)); c != 0 {
			return c
		}
		return cmp.Compare(a.Term, b.Term)
	})
	return out
}

func compareKey(a, b EnrichmentResult, key SortKey) int {
	switch key {
	case SortFDR:
		return cmp.Compare(a.FDR, b.FDR)
	case SortES:
		return cmp.Compare(math.Abs(b.ES), math.Abs(a.ES))
	case SortNES:
		return cmp.Compare(math.Abs(b.NES), math.Abs(a.NES))
	case SortName:
		return cmp.Compare(a.Term, b.Term)
	default:
		return cmp.Compare(a.PValue, b.PValue)
	}
}
