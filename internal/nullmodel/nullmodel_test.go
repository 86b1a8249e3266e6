package nullmodel

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maayanlab/turbogsea/internal/enrich"
	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/rank"
)

func symmetricScorer(t *testing.T, n int) *enrich.Scorer {
	t.Helper()
	entries := make([]rank.Entry, n)
	for i := range entries {
		entries[i] = rank.Entry{
			Gene:  fmt.Sprintf("GENE%04d", i),
			Score: 10 - 20*float64(i)/float64(n-1),
		}
	}
	r, err := rank.New(entries)
	require.NoError(t, err)
	return enrich.NewScorer(r, 1)
}

func TestNew_Config(t *testing.T) {
	s := symmetricScorer(t, 50)

	_, err := New(s, Config{Permutations: 0})
	assert.ErrorIs(t, err, gsea.ErrConfiguration)

	_, err = New(s, Config{Permutations: -5})
	assert.ErrorIs(t, err, gsea.ErrConfiguration)

	_, err = New(s, Config{Permutations: 10, Workers: -1})
	assert.ErrorIs(t, err, gsea.ErrConfiguration)

	e, err := New(s, Config{Permutations: 10})
	require.NoError(t, err)
	assert.Positive(t, e.Config().Workers, "zero workers means NumCPU")
}

func TestSample_MeanNearZero(t *testing.T) {
	e, err := New(symmetricScorer(t, 1000), Config{Permutations: 4000, Seed: 1})
	require.NoError(t, err)

	sample, err := e.Sample(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, sample, 4000)

	sum, err := Summarize(sample)
	require.NoError(t, err)
	assert.InDelta(t, 0, sum.Mean, 0.02)
	assert.InDelta(t, 0.5, sum.PositiveFraction, 0.05)
	assert.Positive(t, sum.StdDev)
	assert.Greater(t, sum.P95, sum.Median)
}

func TestSample_InvalidSize(t *testing.T) {
	e, err := New(symmetricScorer(t, 30), Config{Permutations: 10})
	require.NoError(t, err)

	for _, size := range []int{0, 1, 30, 31} {
		_, err := e.Sample(context.Background(), size)
		assert.ErrorIs(t, err, gsea.ErrInvalidInput, "size %d", size)
	}
}

func TestSample_CachedPerSize(t *testing.T) {
	e, err := New(symmetricScorer(t, 200), Config{Permutations: 50})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := e.Sample(ctx, 15)
	require.NoError(t, err)
	second, err := e.Sample(ctx, 15)
	require.NoError(t, err)
	assert.Same(t, &first[0], &second[0], "second call is served from the cache")
	assert.Equal(t, 1, e.Len())

	e.Reset()
	assert.Equal(t, 0, e.Len())
	_, ok := e.Cached(15)
	assert.False(t, ok)

	third, err := e.Sample(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, first, third, "redrawing with the same seed is reproducible")
}

func TestSample_Primed(t *testing.T) {
	e, err := New(symmetricScorer(t, 200), Config{Permutations: 50})
	require.NoError(t, err)

	primed := []float64{0.1, -0.2, 0.3}
	e.Prime(17, primed)

	got, err := e.Sample(context.Background(), 17)
	require.NoError(t, err)
	assert.Equal(t, primed, got)
}

func TestSample_Cancelled(t *testing.T) {
	e, err := New(symmetricScorer(t, 200), Config{Permutations: 1000})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Sample(ctx, 20)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, e.Len())
}

func TestSampleAll_DeterministicAcrossWorkers(t *testing.T) {
	sizes := []int{15, 20, 15, 40, 33, 20}
	ctx := context.Background()

	run := func(workers int, seed uint64) map[int][]float64 {
		e, err := New(symmetricScorer(t, 500), Config{Permutations: 200, Seed: seed, Workers: workers})
		require.NoError(t, err)
		out, err := e.SampleAll(ctx, sizes)
		require.NoError(t, err)
		return out
	}

	one := run(1, 7)
	many := run(8, 7)
	require.Len(t, one, 4)
	assert.Equal(t, one, many)

	other := run(8, 8)
	assert.NotEqual(t, one[20], other[20], "a different seed draws different sets")
}

func TestAnchors(t *testing.T) {
	a := Anchors(15, 500, 12)
	require.NotEmpty(t, a)
	assert.Equal(t, 15, a[0])
	assert.Equal(t, 500, a[len(a)-1])
	assert.LessOrEqual(t, len(a), 12)
	for i := 1; i < len(a); i++ {
		assert.Greater(t, a[i], a[i-1])
	}

	assert.Equal(t, []int{10}, Anchors(10, 10, 5))
	assert.Equal(t, []int{2, 3, 4}, Anchors(1, 4, 10))
}

func TestLowess_Linear(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 2*v + 1
	}
	assert.InDelta(t, 7.6, Lowess(x, y, 3.3, DefaultSpan), 1e-9)
	assert.InDelta(t, 13, Lowess(x, y, 6, DefaultSpan), 1e-9)

	assert.Equal(t, 4.0, Lowess([]float64{1}, []float64{4}, 2, DefaultSpan))
	assert.InDelta(t, 2.0, Lowess([]float64{1, 1, 1}, []float64{1, 2, 3}, 1, DefaultSpan), 1e-9)
}

func TestInterpolate(t *testing.T) {
	e, err := New(symmetricScorer(t, 1000), Config{Permutations: 1500, Seed: 3})
	require.NoError(t, err)

	anchorSizes := []int{10, 20, 40, 80}
	samples, err := e.SampleAll(context.Background(), anchorSizes)
	require.NoError(t, err)

	var fits []gammafit.NullFit
	for _, size := range anchorSizes {
		nf, errs := gammafit.FitNull(size, samples[size], gammafit.MLE{}, gammafit.DefaultMinSamples)
		require.Empty(t, errs)
		fits = append(fits, nf)
	}

	exact := Interpolate(fits, 40)
	assert.Equal(t, fits[2].Positive.Params, exact.Positive.Params)

	mid := Interpolate(fits, 30)
	assert.Equal(t, 30, mid.Size)
	assert.True(t, mid.Positive.Converged)
	assert.Less(t, mid.Positive.Mean, fits[1].Positive.Mean)
	assert.Greater(t, mid.Positive.Mean, fits[2].Positive.Mean)
	assert.Less(t, mid.Negative.Mean, fits[1].Negative.Mean)
	assert.Greater(t, mid.Negative.Mean, fits[2].Negative.Mean)
}
