package rank

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

func TestParse_TabWithHeader(t *testing.T) {
	input := "gene\tscore\nTP53\t3.2\nKRAS\t-1.5\n# comment\n\nEGFR\t0.7\n"

	r, err := Parse(strings.NewReader(input), DuplicatesError)
	require.NoError(t, err)

	require.Equal(t, 3, r.Len())
	assert.Equal(t, "TP53", r.Gene(0))
	assert.Equal(t, "EGFR", r.Gene(1))
	assert.Equal(t, "KRAS", r.Gene(2))
	assert.Equal(t, -1.5, r.Score(2))
}

func TestParse_Comma(t *testing.T) {
	input := "TP53,3.2\nKRAS,-1.5\nEGFR,0.7\nMYC,1.1\n"

	r, err := Parse(strings.NewReader(input), DuplicatesError)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, "MYC", r.Gene(1))
}

func TestParse_CRLF(t *testing.T) {
	input := "TP53\t3.2\r\nKRAS\t-1.5\r\n"

	r, err := Parse(strings.NewReader(input), DuplicatesError)
	require.NoError(t, err)
	assert.Equal(t, -1.5, r.Score(1))
}

func TestParse_InvalidScore(t *testing.T) {
	input := "TP53\t3.2\nKRAS\tabc\n"

	_, err := Parse(strings.NewReader(input), DuplicatesError)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.ErrorIs(t, err, gsea.ErrInvalidInput)
}

func TestParse_NonFinite(t *testing.T) {
	_, err := Parse(strings.NewReader("A\t1\nB\tNaN\n"), DuplicatesError)
	assert.ErrorIs(t, err, gsea.ErrInvalidInput)
}

func TestParse_MissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("A\t1\nB\n"), DuplicatesError)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Message, "expected 2 columns")
}

func TestParse_Duplicates(t *testing.T) {
	input := "A\t1\nB\t2\nA\t-5\n"

	_, err := Parse(strings.NewReader(input), DuplicatesError)
	assert.ErrorIs(t, err, gsea.ErrInvalidInput)

	r, err := Parse(strings.NewReader(input), DuplicatesFirst)
	require.NoError(t, err)
	pos, _ := r.Position("A")
	assert.Equal(t, 1.0, r.Score(pos))

	r, err = Parse(strings.NewReader(input), DuplicatesMaxAbs)
	require.NoError(t, err)
	pos, _ = r.Position("A")
	assert.Equal(t, -5.0, r.Score(pos))
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := ParseDuplicatePolicy("MAX")
	require.NoError(t, err)
	assert.Equal(t, DuplicatesMaxAbs, p)

	p, err = ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DuplicatesError, p)

	_, err = ParseDuplicatePolicy("average")
	assert.ErrorIs(t, err, gsea.ErrConfiguration)
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		head string
		want rune
	}{
		{"tab", "TP53\t3.2\nKRAS\t-1.5\nEGFR\t0.7\n", '\t'},
		{"comma", "TP53,3.2\nKRAS,-1.5\nEGFR,0.7\n", ','},
		{"semicolon", "TP53;3.2\nKRAS;-1.5\nEGFR;0.7\n", ';'},
		{"empty", "", '\t'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter([]byte(tt.head)))
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranks.rnk")
	require.NoError(t, os.WriteFile(path, []byte("A\t2\nB\t1\n"), 0644))

	r, err := Load(path, DuplicatesError)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.rnk"), DuplicatesError)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
