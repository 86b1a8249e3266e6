package correct

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

func TestBenjaminiHochberg_Known(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03, 0.005}
	q := BenjaminiHochberg{}.Correct(p)

	// Sorted: 0.005, 0.01, 0.03, 0.04 -> 0.02, 0.02, 0.04, 0.04.
	assert.InDeltaSlice(t, []float64{0.02, 0.04, 0.04, 0.02}, q, 1e-12)
}

func TestBenjaminiHochberg_MonotoneInP(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p := make([]float64, 500)
	for i := range p {
		p[i] = rng.Float64() * rng.Float64()
	}
	q := BenjaminiHochberg{}.Correct(p)

	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	for i := 1; i < len(idx); i++ {
		assert.GreaterOrEqual(t, q[idx[i]], q[idx[i-1]])
	}
	for i := range p {
		assert.GreaterOrEqual(t, q[i], p[i])
		assert.LessOrEqual(t, q[i], 1.0)
	}
}

func TestBonferroniAndSidak(t *testing.T) {
	p := []float64{0.001, 0.2, 0.9}

	assert.InDeltaSlice(t, []float64{0.003, 0.6, 1}, Bonferroni{}.Correct(p), 1e-12)

	s := Sidak{}.Correct(p)
	assert.InDelta(t, 1-0.999*0.999*0.999, s[0], 1e-12)
	assert.InDelta(t, 1-0.8*0.8*0.8, s[1], 1e-12)
	assert.InDelta(t, 1-0.1*0.1*0.1, s[2], 1e-12)
	assert.Equal(t, []float64{1}, Sidak{}.Correct([]float64{1}))
}

func TestEmpty(t *testing.T) {
	for _, c := range []Corrector{BenjaminiHochberg{}, Bonferroni{}, Sidak{}} {
		assert.Empty(t, c.Correct(nil), c.Name())
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", NameBH},
		{"fdr_bh", NameBH},
		{"bh", NameBH},
		{"bonferroni", NameBonferroni},
		{"sidak", NameSidak},
	}
	for _, tt := range tests {
		c, err := ByName(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, c.Name())
	}

	_, err := ByName("holm")
	assert.ErrorIs(t, err, gsea.ErrConfiguration)
}
