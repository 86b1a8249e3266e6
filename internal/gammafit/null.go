package gammafit

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

// DefaultMinSamples is the smallest same-sign sample a gamma tail is fitted to.
const DefaultMinSamples = 10

// Method records how a p-value was obtained.
type Method string

const (
	MethodGamma     Method = "gamma"
	MethodEmpirical Method = "empirical"
)

// Side names a half of the null distribution.
type Side string

const (
	Positive Side = "positive"
	Negative Side = "negative"
)

// Tail is the fit of one sign of the null distribution. Values are absolute
// enrichment scores.
type Tail struct {
	Params    Params
	Converged bool
	N         int
	Mean      float64

	sorted []float64
}

// Exceeding counts the null values at or above x.
func (t Tail) Exceeding(x float64) int {
	i := sort.SearchFloat64s(t.sorted, x)
	return len(t.sorted) - i
}

// Empirical returns (#{null >= x} + 1) / (n + 1).
func (t Tail) Empirical(x float64) float64 {
	return float64(t.Exceeding(x)+1) / float64(t.N+1)
}

// NullFit is the fitted null distribution for one gene-set size.
type NullFit struct {
	Size             int
	Positive         Tail
	Negative         Tail
	PositiveFraction float64
	// Sample is the signed null sample the tails were fitted to.
	Sample []float64

	fitter DistributionFitter
}

// FitError is a tail that fell back to empirical p-values. It wraps
// gsea.ErrFitFailure.
type FitError struct {
	Size int
	Side Side
	Err  error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("size %d %s tail: %v", e.Size, e.Side, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// FitNull splits a signed null sample by sign and fits each side. Sides that
// cannot be fitted keep Converged=false and are reported as *FitError; their
// p-values fall back to the empirical estimate.
func FitNull(size int, sample []float64, fitter DistributionFitter, minSamples int) (NullFit, []error) {
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	var pos, neg []float64
	for _, v := range sample {
		switch {
		case v > 0:
			pos = append(pos, v)
		case v < 0:
			neg = append(neg, -v)
		}
	}

	nf := NullFit{
		Size:   size,
		Sample: sample,
		fitter: fitter,
	}
	if len(sample) > 0 {
		nf.PositiveFraction = float64(len(pos)) / float64(len(sample))
	}

	var errs []error
	var err error
	if nf.Positive, err = fitTail(pos, fitter, minSamples); err != nil {
		errs = append(errs, &FitError{Size: size, Side: Positive, Err: err})
	}
	if nf.Negative, err = fitTail(neg, fitter, minSamples); err != nil {
		errs = append(errs, &FitError{Size: size, Side: Negative, Err: err})
	}
	return nf, errs
}

func fitTail(values []float64, fitter DistributionFitter, minSamples int) (Tail, error) {
	slices.Sort(values)
	t := Tail{N: len(values), sorted: values}
	if len(values) > 0 {
		var sum float64
		for _, v := range values {
			sum += v
		}
		t.Mean = sum / float64(len(values))
	}
	if len(values) < minSamples {
		return t, gsea.FitFailure("%d null values, need %d", len(values), minSamples)
	}
	p, err := fitter.Fit(values)
	if err != nil {
		return t, err
	}
	t.Params = p
	t.Converged = true
	return t, nil
}

// WithParams returns a copy of nf describing another size, with the gamma
// parameters of converged tails replaced. The null sample and any empirical
// fallback are kept.
func (nf NullFit) WithParams(size int, pos, neg Params) NullFit {
	out := nf
	out.Size = size
	out.Positive = nf.Positive.withParams(pos)
	out.Negative = nf.Negative.withParams(neg)
	return out
}

func (t Tail) withParams(p Params) Tail {
	if !t.Converged || !p.Valid() {
		return t
	}
	t.Params = p
	t.Mean = p.Shape * p.Scale
	return t
}

// Fitter returns the fitter the tails were fitted with.
func (nf NullFit) Fitter() DistributionFitter { return nf.fitter }

func (nf NullFit) tail(es float64) Tail {
	if es >= 0 {
		return nf.Positive
	}
	return nf.Negative
}

// PValue returns the probability of a null score at least as extreme as es
// on the same side of zero.
func (nf NullFit) PValue(es float64) (float64, Method) {
	t := nf.tail(es)
	x := math.Abs(es)
	if t.Converged && nf.fitter != nil {
		p := nf.fitter.TailProbability(t.Params, x)
		if !math.IsNaN(p) {
			return clamp(p), MethodGamma
		}
	}
	return clamp(t.Empirical(x)), MethodEmpirical
}

// Normalize divides es by the mean null magnitude on its side. It returns 0
// when that side of the null is empty.
func (nf NullFit) Normalize(es float64) float64 {
	t := nf.tail(es)
	if t.N == 0 || t.Mean == 0 {
		return 0
	}
	return es / t.Mean
}

func clamp(p float64) float64 {
	switch {
	case p < math.SmallestNonzeroFloat64:
		return math.SmallestNonzeroFloat64
	case p > 1:
		return 1
	default:
		return p
	}
}
