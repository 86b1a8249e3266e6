package prerank

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2000, cfg.Permutations)
	assert.Equal(t, 1.0, cfg.Weight)
	assert.Equal(t, 15, cfg.MinSize)
	assert.Equal(t, 500, cfg.MaxSize)
	assert.Equal(t, "mle", cfg.Fitter)
	assert.Equal(t, "fdr_bh", cfg.Correction)
	assert.Equal(t, "pvalue", cfg.Sort)
	assert.Equal(t, StrategyExact, cfg.Strategy)
	assert.Equal(t, 10, cfg.MinSamples)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero permutations", func(c *Config) { c.Permutations = 0 }},
		{"negative permutations", func(c *Config) { c.Permutations = -100 }},
		{"permutations below min samples", func(c *Config) { c.Permutations = 5 }},
		{"zero min samples", func(c *Config) { c.MinSamples = 0 }},
		{"negative weight", func(c *Config) { c.Weight = -1 }},
		{"nan weight", func(c *Config) { c.Weight = math.NaN() }},
		{"min size below two", func(c *Config) { c.MinSize = 1 }},
		{"max below min", func(c *Config) { c.MinSize = 50; c.MaxSize = 20 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"unknown fitter", func(c *Config) { c.Fitter = "kde" }},
		{"unknown correction", func(c *Config) { c.Correction = "holm" }},
		{"unknown sort", func(c *Config) { c.Sort = "size" }},
		{"unknown strategy", func(c *Config) { c.Strategy = "magic" }},
		{"too few anchors", func(c *Config) { c.Strategy = StrategyAnchored; c.Anchors = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), gsea.ErrConfiguration)

			_, err := NewAnalyzer(cfg)
			assert.ErrorIs(t, err, gsea.ErrConfiguration)
		})
	}
}

func TestConfig_ValidVariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weight = 0
	cfg.Fitter = "moments"
	cfg.Correction = "bonferroni"
	cfg.Sort = "nes"
	cfg.Strategy = StrategyAnchored
	cfg.Workers = 3
	require.NoError(t, cfg.Validate())

	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, a.Config())
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortPValue, k)

	for _, s := range []string{"pvalue", "fdr", "es", "nes", "name"} {
		k, err := ParseSortKey(s)
		require.NoError(t, err)
		assert.Equal(t, SortKey(s), k)
	}
}
