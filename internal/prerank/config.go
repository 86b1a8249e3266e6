// Package prerank runs prerank gene set enrichment analysis: it scores every
// gene set against a ranking, estimates significance from gamma-approximated
// null distributions and aggregates corrected results.
package prerank

import (
	"math"

	"github.com/maayanlab/turbogsea/internal/correct"
	"github.com/maayanlab/turbogsea/internal/enrich"
	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/nullmodel"
)

// Null sampling strategies.
const (
	// StrategyExact samples and fits every distinct gene-set size.
	StrategyExact = "exact"
	// StrategyAnchored samples a geometric grid of sizes and interpolates
	// gamma parameters for the sizes in between.
	StrategyAnchored = "anchored"
)

// Config holds analysis parameters.
type Config struct {
	Permutations int     `yaml:"permutations"`
	Weight       float64 `yaml:"weight"`
	MinSize      int     `yaml:"min_size"`
	MaxSize      int     `yaml:"max_size"`
	Seed         uint64  `yaml:"seed"`
	Workers      int     `yaml:"workers"`
	Fitter       string  `yaml:"fitter"`
	Correction   string  `yaml:"correction"`
	Sort         string  `yaml:"sort"`
	Strategy     string  `yaml:"strategy"`
	Anchors      int     `yaml:"anchors"`
	MinSamples   int     `yaml:"min_samples"`
}

// DefaultConfig returns the standard prerank settings.
func DefaultConfig() Config {
	return Config{
		Permutations: nullmodel.DefaultPermutations,
		Weight:       1,
		MinSize:      15,
		MaxSize:      500,
		Fitter:       gammafit.NameMLE,
		Correction:   correct.NameBH,
		Sort:         string(SortPValue),
		Strategy:     StrategyExact,
		Anchors:      nullmodel.DefaultAnchors,
		MinSamples:   gammafit.DefaultMinSamples,
	}
}

// Validate reports the first invalid parameter as a gsea.ErrConfiguration.
func (c Config) Validate() error {
	switch {
	case c.Permutations <= 0:
		return gsea.Configuration("permutations must be positive, got %d", c.Permutations)
	case c.MinSamples < 1:
		return gsea.Configuration("min_samples must be at least 1, got %d", c.MinSamples)
	case c.Permutations < c.MinSamples:
		return gsea.Configuration("permutations (%d) below the minimum null sample size (%d)", c.Permutations, c.MinSamples)
	case math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) || c.Weight < 0:
		return gsea.Configuration("weight must be a non-negative number, got %g", c.Weight)
	case c.MinSize < enrich.MinHits:
		return gsea.Configuration("min_size must be at least %d, got %d", enrich.MinHits, c.MinSize)
	case c.MaxSize < c.MinSize:
		return gsea.Configuration("max_size (%d) below min_size (%d)", c.MaxSize, c.MinSize)
	case c.Workers < 0:
		return gsea.Configuration("workers must not be negative, got %d", c.Workers)
	}
	if _, err := gammafit.ByName(c.Fitter); err != nil {
		return err
	}
	if _, err := correct.ByName(c.Correction); err != nil {
		return err
	}
	if _, err := ParseSortKey(c.Sort); err != nil {
		return err
	}
	switch c.Strategy {
	case StrategyExact, "":
	case StrategyAnchored:
		if c.Anchors < 3 {
			return gsea.Configuration("anchored strategy needs at least 3 anchors, got %d", c.Anchors)
		}
	default:
		return gsea.Configuration("unknown strategy %q (want %s or %s)", c.Strategy, StrategyExact, StrategyAnchored)
	}
	return nil
}
