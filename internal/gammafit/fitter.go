// Package gammafit approximates the tails of enrichment null distributions
// with gamma distributions.
package gammafit

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

// Params are the parameters of a gamma distribution.
type Params struct {
	Shape float64
	Scale float64
}

// Distribution returns the gonum distribution for p.
func (p Params) Distribution() distuv.Gamma {
	return distuv.Gamma{Alpha: p.Shape, Beta: 1 / p.Scale}
}

// Valid reports whether both parameters are finite and positive.
func (p Params) Valid() bool {
	return p.Shape > 0 && p.Scale > 0 && !math.IsInf(p.Shape, 0) && !math.IsInf(p.Scale, 0)
}

// DistributionFitter fits a distribution to positive samples and evaluates
// its upper tail.
type DistributionFitter interface {
	Fit(sample []float64) (Params, error)
	TailProbability(p Params, x float64) float64
	Name() string
}

// Fitter names.
const (
	NameMLE     = "mle"
	NameMoments = "moments"
)

// ByName returns the fitter registered under name.
func ByName(name string) (DistributionFitter, error) {
	switch name {
	case NameMLE, "":
		return MLE{}, nil
	case NameMoments:
		return Moments{}, nil
	default:
		return nil, gsea.Configuration("unknown fitter %q (want %s or %s)", name, NameMLE, NameMoments)
	}
}

// MLE fits gamma parameters by maximum likelihood.
type MLE struct {
	// MaxIter bounds the Newton iterations; 0 means 100.
	MaxIter int
	// Tol is the relative shape tolerance; 0 means 1e-10.
	Tol float64
}

var (
	_ DistributionFitter = MLE{}
	_ DistributionFitter = Moments{}
)

func (MLE) Name() string { return NameMLE }

// Fit solves log(k) - digamma(k) = log(mean) - mean(log x) for the shape k
// by Newton iteration; the scale follows as mean/k.
func (f MLE) Fit(sample []float64) (Params, error) {
	if err := checkSample(sample); err != nil {
		return Params{}, err
	}
	maxIter, tol := f.MaxIter, f.Tol
	if maxIter <= 0 {
		maxIter = 100
	}
	if tol <= 0 {
		tol = 1e-10
	}

	var sum, sumLog float64
	for _, x := range sample {
		sum += x
		sumLog += math.Log(x)
	}
	n := float64(len(sample))
	mean := sum / n
	s := math.Log(mean) - sumLog/n
	if !(s > 1e-12) || math.IsInf(s, 0) {
		return Params{}, gsea.FitFailure("degenerate sample (log-mean gap %g)", s)
	}

	// Minka's closed-form starting point.
	k := (3 - s + math.Sqrt((s-3)*(s-3)+24*s)) / (12 * s)
	for range maxIter {
		g := math.Log(k) - mathext.Digamma(k) - s
		dg := 1/k - trigamma(k)
		next := k - g/dg
		if next <= 0 {
			next = k / 2
		}
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return Params{}, gsea.FitFailure("shape iteration diverged at %g", k)
		}
		if math.Abs(next-k) <= tol*k {
			p := Params{Shape: next, Scale: mean / next}
			if !p.Valid() {
				return Params{}, gsea.FitFailure("invalid parameters %+v", p)
			}
			return p, nil
		}
		k = next
	}
	return Params{}, gsea.FitFailure("shape did not converge in %d iterations", maxIter)
}

func (MLE) TailProbability(p Params, x float64) float64 {
	return p.Distribution().Survival(x)
}

// Moments fits gamma parameters by matching mean and variance.
type Moments struct{}

func (Moments) Name() string { return NameMoments }

func (Moments) Fit(sample []float64) (Params, error) {
	if err := checkSample(sample); err != nil {
		return Params{}, err
	}
	mean, variance := stat.MeanVariance(sample, nil)
	if !(variance > 1e-15*mean*mean) {
		return Params{}, gsea.FitFailure("zero variance sample")
	}
	p := Params{Shape: mean * mean / variance, Scale: variance / mean}
	if !p.Valid() {
		return Params{}, gsea.FitFailure("invalid parameters %+v", p)
	}
	return p, nil
}

func (Moments) TailProbability(p Params, x float64) float64 {
	return p.Distribution().Survival(x)
}

func checkSample(sample []float64) error {
	if len(sample) < 2 {
		return gsea.FitFailure("need at least 2 values, have %d", len(sample))
	}
	for _, x := range sample {
		if !(x > 0) || math.IsInf(x, 0) {
			return gsea.FitFailure("non-positive or non-finite value %g", x)
		}
	}
	return nil
}

// trigamma evaluates the derivative of the digamma function using the
// recurrence up to x >= 10 and the asymptotic series beyond.
func trigamma(x float64) float64 {
	var acc float64
	for x < 10 {
		acc += 1 / (x * x)
		x++
	}
	x2 := 1 / (x * x)
	series := 1/x + x2/2 + x2/x*(1.0/6-x2*(1.0/30-x2*(1.0/42-x2*(1.0/30-x2*5/66))))
	return acc + series
}
