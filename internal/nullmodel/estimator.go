// Package nullmodel samples null enrichment score distributions per gene-set
// size.
package nullmodel

import (
	"context"
	"math/rand/v2"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/maayanlab/turbogsea/internal/enrich"
	"github.com/maayanlab/turbogsea/internal/gsea"
)

// DefaultPermutations is the default number of random sets per size.
const DefaultPermutations = 2000

// Config controls null sampling.
type Config struct {
	// Permutations is the number of random sets scored per size.
	Permutations int
	// Seed is the base seed. Each size bucket derives its own generator
	// from (Seed, size).
	Seed uint64
	// Workers bounds concurrent buckets. If 0, runtime.NumCPU() is used.
	Workers int
}

// Estimator draws and caches null samples. The cache lives until Reset.
type Estimator struct {
	scorer *enrich.Scorer
	cfg    Config
	logger *zap.Logger

	group singleflight.Group
	mu    sync.Mutex
	cache map[int][]float64
}

// New creates an estimator over scorer's ranking.
func New(scorer *enrich.Scorer, cfg Config) (*Estimator, error) {
	if cfg.Permutations <= 0 {
		return nil, gsea.Configuration("permutations must be positive, got %d", cfg.Permutations)
	}
	if cfg.Workers < 0 {
		return nil, gsea.Configuration("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Estimator{
		scorer: scorer,
		cfg:    cfg,
		logger: zap.NewNop(),
		cache:  make(map[int][]float64),
	}, nil
}

// SetLogger sets the logger for per-bucket debug messages.
func (e *Estimator) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Config returns the effective configuration.
func (e *Estimator) Config() Config { return e.cfg }

// Sample returns the null sample for sets of the given size, drawing it on
// first use. Concurrent callers asking for the same size share one draw.
func (e *Estimator) Sample(ctx context.Context, size int) ([]float64, error) {
	if size < enrich.MinHits || size >= e.scorer.Len() {
		return nil, gsea.InvalidInput("null size %d outside [%d, %d)", size, enrich.MinHits, e.scorer.Len())
	}
	if s, ok := e.Cached(size); ok {
		return s, nil
	}

	v, err, _ := e.group.Do(strconv.Itoa(size), func() (any, error) {
		if s, ok := e.Cached(size); ok {
			return s, nil
		}
		s, err := e.draw(ctx, size)
		if err != nil {
			return nil, err
		}
		e.Prime(size, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float64), nil
}

// SampleAll draws every distinct size in parallel, one bucket per task.
func (e *Estimator) SampleAll(ctx context.Context, sizes []int) (map[int][]float64, error) {
	distinct := slices.Clone(sizes)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	var mu sync.Mutex
	out := make(map[int][]float64, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for _, size := range distinct {
		g.Go(func() error {
			s, err := e.Sample(gctx, size)
			if err != nil {
				return err
			}
			mu.Lock()
			out[size] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Cached returns a previously drawn or primed sample.
func (e *Estimator) Cached(size int) ([]float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.cache[size]
	return s, ok
}

// Prime stores a sample obtained elsewhere, e.g. from a persistent fit store.
func (e *Estimator) Prime(size int, sample []float64) {
	e.mu.Lock()
	e.cache[size] = sample
	e.mu.Unlock()
}

// Len returns the number of cached sizes.
func (e *Estimator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// Reset drops all cached samples.
func (e *Estimator) Reset() {
	e.mu.Lock()
	clear(e.cache)
	e.mu.Unlock()
}

func (e *Estimator) draw(ctx context.Context, size int) ([]float64, error) {
	src := rand.NewPCG(e.cfg.Seed, uint64(size))
	n := e.scorer.Len()
	hits := make([]int, size)
	out := make([]float64, e.cfg.Permutations)

	for i := range out {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		sampleuv.WithoutReplacement(hits, n, src)
		slices.Sort(hits)
		out[i], _ = e.scorer.ES(hits)
	}

	e.logger.Debug("null bucket sampled",
		zap.Int("size", size),
		zap.Int("permutations", len(out)))
	return out, nil
}
