package prerank

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/gsea"
)

// DefaultFitCacheSize is the default number of null fits kept in memory.
const DefaultFitCacheSize = 256

// SampleKey identifies null samples that can be reused: same ranking, same
// weighting and the same sampling parameters.
type SampleKey struct {
	Fingerprint  string
	Weight       float64
	Permutations int
	Seed         uint64
}

// FitKey identifies one fitted size bucket.
type FitKey struct {
	SampleKey
	Size       int
	Fitter     string
	MinSamples int
}

// FitCache keeps null fits across runs in one process, e.g. when the same
// ranking is tested against several gene set libraries.
type FitCache struct {
	cache *lru.Cache[FitKey, gammafit.NullFit]
}

// NewFitCache creates a cache holding up to capacity fits.
func NewFitCache(capacity int) (*FitCache, error) {
	if capacity <= 0 {
		return nil, gsea.Configuration("fit cache size must be positive, got %d", capacity)
	}
	c, err := lru.New[FitKey, gammafit.NullFit](capacity)
	if err != nil {
		return nil, err
	}
	return &FitCache{cache: c}, nil
}

// Get returns a cached fit.
func (c *FitCache) Get(key FitKey) (gammafit.NullFit, bool) {
	return c.cache.Get(key)
}

// Add stores a fit, evicting the least recently used one when full.
func (c *FitCache) Add(key FitKey, nf gammafit.NullFit) bool {
	return c.cache.Add(key, nf)
}

// Len returns the number of cached fits.
func (c *FitCache) Len() int {
	return c.cache.Len()
}

// Purge drops every cached fit.
func (c *FitCache) Purge() {
	c.cache.Purge()
}

// SampleStore persists null samples between processes.
type SampleStore interface {
	// LoadSamples returns stored null samples for key, by size.
	LoadSamples(ctx context.Context, key SampleKey, sizes []int) (map[int][]float64, error)
	// SaveSamples stores freshly drawn fits under key.
	SaveSamples(ctx context.Context, key SampleKey, fits []gammafit.NullFit) error
}
