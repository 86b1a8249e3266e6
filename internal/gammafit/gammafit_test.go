package gammafit

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/maayanlab/turbogsea/internal/enrich"
	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/rank"
)

// quantileSample returns n evenly spaced quantiles of a gamma distribution.
func quantileSample(shape, scale float64, n int) []float64 {
	g := Params{Shape: shape, Scale: scale}.Distribution()
	out := make([]float64, n)
	for i := range out {
		out[i] = g.Quantile((float64(i) + 0.5) / float64(n))
	}
	return out
}

func TestFitters_RecoverParameters(t *testing.T) {
	sample := quantileSample(3, 0.05, 4000)

	for _, f := range []DistributionFitter{MLE{}, Moments{}} {
		t.Run(f.Name(), func(t *testing.T) {
			p, err := f.Fit(sample)
			require.NoError(t, err)
			assert.InEpsilon(t, 3, p.Shape, 0.03)
			assert.InEpsilon(t, 0.05, p.Scale, 0.03)
			assert.InDelta(t, 0.15, p.Shape*p.Scale, 1e-3, "mean is preserved")
		})
	}
}

func TestFitters_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		sample []float64
	}{
		{"empty", nil},
		{"single", []float64{0.4}},
		{"constant", []float64{0.4, 0.4, 0.4, 0.4}},
		{"zero", []float64{0.1, 0, 0.3}},
		{"negative", []float64{0.1, -0.2, 0.3}},
		{"infinite", []float64{0.1, math.Inf(1), 0.3}},
	}
	for _, f := range []DistributionFitter{MLE{}, Moments{}} {
		for _, tt := range tests {
			t.Run(f.Name()+"/"+tt.name, func(t *testing.T) {
				_, err := f.Fit(tt.sample)
				assert.ErrorIs(t, err, gsea.ErrFitFailure)
			})
		}
	}
}

func TestByName(t *testing.T) {
	f, err := ByName("mle")
	require.NoError(t, err)
	assert.Equal(t, NameMLE, f.Name())

	f, err = ByName("")
	require.NoError(t, err)
	assert.Equal(t, NameMLE, f.Name(), "default fitter")

	f, err = ByName("moments")
	require.NoError(t, err)
	assert.Equal(t, NameMoments, f.Name())

	_, err = ByName("kde")
	assert.ErrorIs(t, err, gsea.ErrConfiguration)
}

func TestTrigamma(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0.5, math.Pi * math.Pi / 2},
		{1, math.Pi * math.Pi / 6},
		{2, math.Pi*math.Pi/6 - 1},
		{3, math.Pi*math.Pi/6 - 1 - 0.25},
		{10, math.Pi*math.Pi/6 - 1.5397677311665408},
		{100, 0.010050166663333571},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, trigamma(tt.x), 1e-12, "trigamma(%g)", tt.x)
	}
}

// nullSample draws signed enrichment scores of random sets against a
// linear 10..-10 ranking of 1000 genes.
func nullSample(t *testing.T, size, count int) []float64 {
	t.Helper()
	entries := make([]rank.Entry, 1000)
	for i := range entries {
		entries[i] = rank.Entry{Gene: fmt.Sprintf("G%d", i), Score: 10 - 20*float64(i)/999}
	}
	r, err := rank.New(entries)
	require.NoError(t, err)
	s := enrich.NewScorer(r, 1)

	src := rand.NewPCG(42, uint64(size))
	hits := make([]int, size)
	out := make([]float64, count)
	for i := range out {
		sampleuv.WithoutReplacement(hits, r.Len(), src)
		slices.Sort(hits)
		out[i], _ = s.ES(hits)
	}
	return out
}

func TestFitNull_TailMatchesEmpirical(t *testing.T) {
	sample := nullSample(t, 20, 5000)

	nf, errs := FitNull(20, sample, MLE{}, DefaultMinSamples)
	require.Empty(t, errs)
	require.True(t, nf.Positive.Converged)
	require.True(t, nf.Negative.Converged)
	assert.InDelta(t, 0.5, nf.PositiveFraction, 0.05)

	for _, side := range []struct {
		name string
		tail Tail
		sign float64
	}{
		{"positive", nf.Positive, 1},
		{"negative", nf.Negative, -1},
	} {
		for _, q := range []float64{0.8, 0.95} {
			t.Run(fmt.Sprintf("%s/q%.2f", side.name, q), func(t *testing.T) {
				x := side.tail.sorted[int(q*float64(side.tail.N))]
				empirical := float64(side.tail.Exceeding(x)) / float64(side.tail.N)

				p, method := nf.PValue(side.sign * x)
				assert.Equal(t, MethodGamma, method)
				assert.InDelta(t, empirical, p, 0.02)
			})
		}
	}
}

func TestFitNull_EmpiricalFallback(t *testing.T) {
	sample := quantileSample(4, 0.1, 200)
	// A handful of negatives is too few to fit.
	sample = append(sample, -0.1, -0.2, -0.3, -0.4)

	nf, errs := FitNull(30, sample, MLE{}, DefaultMinSamples)
	require.Len(t, errs, 1)

	var fe *FitError
	require.True(t, errors.As(errs[0], &fe))
	assert.Equal(t, Negative, fe.Side)
	assert.Equal(t, 30, fe.Size)
	assert.ErrorIs(t, errs[0], gsea.ErrFitFailure)

	assert.True(t, nf.Positive.Converged)
	assert.False(t, nf.Negative.Converged)
	assert.Equal(t, 4, nf.Negative.N)

	p, method := nf.PValue(-0.25)
	assert.Equal(t, MethodEmpirical, method)
	assert.InDelta(t, 3.0/5.0, p, 1e-12, "two of four null values reach 0.25")

	p, method = nf.PValue(-10)
	assert.Equal(t, MethodEmpirical, method)
	assert.InDelta(t, 1.0/5.0, p, 1e-12)

	_, method = nf.PValue(0.5)
	assert.Equal(t, MethodGamma, method)
}

func TestNullFit_PValueBounds(t *testing.T) {
	sample := quantileSample(4, 0.1, 500)
	for _, v := range quantileSample(4, 0.1, 500) {
		sample = append(sample, -v)
	}
	nf, errs := FitNull(15, sample, MLE{}, DefaultMinSamples)
	require.Empty(t, errs)

	p, _ := nf.PValue(1e6)
	assert.Greater(t, p, 0.0)

	p, _ = nf.PValue(0)
	assert.LessOrEqual(t, p, 1.0)
	assert.InDelta(t, 1.0, p, 1e-9)

	pPos, _ := nf.PValue(0.8)
	pNeg, _ := nf.PValue(-0.8)
	assert.InDelta(t, pPos, pNeg, 1e-6, "symmetric null gives symmetric p-values")
}

func TestNullFit_Normalize(t *testing.T) {
	nf, _ := FitNull(10, []float64{0.2, 0.4, -0.5, -0.5}, Moments{}, 1)

	assert.InDelta(t, 0.9/0.3, nf.Normalize(0.9), 1e-12)
	assert.InDelta(t, -1.0/0.5, nf.Normalize(-1.0), 1e-12)

	empty, _ := FitNull(10, []float64{0.2, 0.4}, Moments{}, 1)
	assert.Equal(t, 0.0, empty.Normalize(-0.3))
}

func TestParams_Distribution(t *testing.T) {
	p := Params{Shape: 2, Scale: 0.5}
	d := p.Distribution()
	assert.Equal(t, distuv.Gamma{Alpha: 2, Beta: 2}, d)
	assert.InDelta(t, 2*math.Exp(-1), d.Survival(0.5), 1e-12)
}
