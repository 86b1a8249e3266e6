package rank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

func TestNew_SortsDescending(t *testing.T) {
	r, err := New([]Entry{
		{Gene: "B", Score: -1},
		{Gene: "A", Score: 2.5},
		{Gene: "C", Score: 0.3},
	})
	require.NoError(t, err)

	require.Equal(t, 3, r.Len())
	assert.Equal(t, "A", r.Gene(0))
	assert.Equal(t, "C", r.Gene(1))
	assert.Equal(t, "B", r.Gene(2))

	pos, ok := r.Position("B")
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	_, ok = r.Position("missing")
	assert.False(t, ok)
}

func TestNew_TiesBrokenByGene(t *testing.T) {
	r, err := New([]Entry{
		{Gene: "Z", Score: 1},
		{Gene: "A", Score: 1},
		{Gene: "M", Score: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "M", "Z"}, []string{r.Gene(0), r.Gene(1), r.Gene(2)})
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"empty", nil},
		{"duplicate", []Entry{{Gene: "A", Score: 1}, {Gene: "A", Score: 2}}},
		{"nan", []Entry{{Gene: "A", Score: math.NaN()}}},
		{"inf", []Entry{{Gene: "A", Score: math.Inf(1)}}},
		{"blank gene", []Entry{{Gene: "", Score: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.entries)
			assert.ErrorIs(t, err, gsea.ErrInvalidInput)
		})
	}
}

func TestPositions_DropsUnknownAndSorts(t *testing.T) {
	r, err := New([]Entry{{Gene: "A", Score: 3}, {Gene: "B", Score: 2}, {Gene: "C", Score: 1}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, r.Positions([]string{"C", "X", "A"}))
}

func TestWeights(t *testing.T) {
	r, err := New([]Entry{{Gene: "A", Score: 4}, {Gene: "B", Score: -2}})
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1}, r.Weights(0))
	assert.Equal(t, []float64{4, 2}, r.Weights(1))
	assert.InDeltaSlice(t, []float64{16, 4}, r.Weights(2), 1e-12)
}

func TestFingerprint(t *testing.T) {
	a, err := New([]Entry{{Gene: "A", Score: 1}, {Gene: "B", Score: 2}})
	require.NoError(t, err)
	b, err := New([]Entry{{Gene: "B", Score: 2}, {Gene: "A", Score: 1}})
	require.NoError(t, err)
	c, err := New([]Entry{{Gene: "A", Score: 1}, {Gene: "B", Score: 2.5}})
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "input order must not matter")
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.FingerprintHex(), 16)
}
