package prerank

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/maayanlab/turbogsea/internal/correct"
	"github.com/maayanlab/turbogsea/internal/enrich"
	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/geneset"
	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/nullmodel"
	"github.com/maayanlab/turbogsea/internal/rank"
	"github.com/maayanlab/turbogsea/internal/stats"
)

// Report is the outcome of one prerank run.
type Report struct {
	Results []EnrichmentResult
	// Skipped lists gene sets excluded by size or rejected while scoring.
	Skipped []geneset.Rejected
	// Fits holds the null fit used for each gene-set size.
	Fits        map[int]gammafit.NullFit
	Fingerprint string
	Genes       int
	GeneSets    int
	Config      Config
	Started     time.Time
	Elapsed     time.Duration
}

// Analyzer runs prerank analyses with a fixed configuration.
type Analyzer struct {
	cfg       Config
	fitter    gammafit.DistributionFitter
	corrector correct.Corrector
	sortKey   SortKey

	logger *zap.Logger
	stats  stats.Collector
	cache  *FitCache
	store  SampleStore
}

// NewAnalyzer validates cfg and resolves its named components. Invalid
// settings are reported as gsea.ErrConfiguration.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fitter, err := gammafit.ByName(cfg.Fitter)
	if err != nil {
		return nil, err
	}
	corrector, err := correct.ByName(cfg.Correction)
	if err != nil {
		return nil, err
	}
	key, err := ParseSortKey(cfg.Sort)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		cfg:       cfg,
		fitter:    fitter,
		corrector: corrector,
		sortKey:   key,
		logger:    zap.NewNop(),
		stats:     stats.NewNoop(),
	}, nil
}

// SetLogger sets the logger for warning and info messages.
func (a *Analyzer) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetStats sets the metrics collector.
func (a *Analyzer) SetStats(c stats.Collector) {
	a.stats = c
}

// SetFitCache enables reuse of null fits across runs in this process.
func (a *Analyzer) SetFitCache(c *FitCache) {
	a.cache = c
}

// SetSampleStore enables reuse of null samples across processes.
func (a *Analyzer) SetSampleStore(s SampleStore) {
	a.store = s
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Run scores every gene set of c against r. Gene sets that cannot be scored
// are listed in Report.Skipped; the rest of the batch continues.
func (a *Analyzer) Run(ctx context.Context, r *rank.Ranking, c *geneset.Collection) (*Report, error) {
	if r == nil || c == nil {
		return nil, gsea.InvalidInput("ranking and gene set collection are required")
	}
	started := time.Now()
	report := &Report{
		Fingerprint: r.FingerprintHex(),
		Genes:       r.Len(),
		GeneSets:    c.Len(),
		Config:      a.cfg,
		Started:     started,
	}

	a.logger.Info("prerank started",
		zap.Int("genes", r.Len()),
		zap.Int("gene_sets", c.Len()),
		zap.Int("permutations", a.cfg.Permutations),
		zap.String("fitter", a.fitter.Name()),
		zap.String("strategy", a.strategy()))

	candidates, rejected := a.selectCandidates(r, c)
	report.Skipped = rejected
	for _, rj := range rejected {
		a.logger.Debug("gene set skipped", zap.String("name", rj.Name), zap.Error(rj.Reason))
	}
	if len(rejected) > 0 {
		a.logger.Warn("gene sets outside size bounds skipped",
			zap.Int("skipped", len(rejected)),
			zap.Int("min_size", a.cfg.MinSize),
			zap.Int("max_size", a.cfg.MaxSize))
	}
	if len(candidates) == 0 {
		a.logger.Warn("no gene sets left to score")
		a.finish(report)
		return report, nil
	}

	scorer := enrich.NewScorer(r, a.cfg.Weight)

	sizes := make([]int, len(candidates))
	for i, cand := range candidates {
		sizes[i] = len(cand.Hits)
	}
	slices.Sort(sizes)
	sizes = slices.Compact(sizes)

	nullStart := time.Now()
	fits, err := a.nullFits(ctx, scorer, report.Fingerprint, sizes)
	if err != nil {
		return nil, err
	}
	a.stats.ObserveHistogram(stats.MetricNullSeconds, time.Since(nullStart).Seconds())
	report.Fits = fits

	scored, skipped, err := a.scoreAll(ctx, &scoring{scorer: scorer, fits: fits}, candidates)
	if err != nil {
		return nil, err
	}
	report.Skipped = append(report.Skipped, skipped...)
	report.Results = Aggregate(scored, a.corrector, a.sortKey)

	a.finish(report)
	return report, nil
}

func (a *Analyzer) finish(report *Report) {
	report.Elapsed = time.Since(report.Started)
	a.stats.IncCounter(stats.MetricSetsScored, int64(len(report.Results)))
	a.stats.IncCounter(stats.MetricSetsSkipped, int64(len(report.Skipped)))
	a.stats.ObserveHistogram(stats.MetricRunSeconds, report.Elapsed.Seconds())
	a.logger.Info("prerank finished",
		zap.Int("scored", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Duration("elapsed", report.Elapsed))
}

func (a *Analyzer) strategy() string {
	if a.cfg.Strategy == "" {
		return StrategyExact
	}
	return a.cfg.Strategy
}

// selectCandidates applies the size bounds. A set covering the whole ranking
// has no misses and cannot be scored.
func (a *Analyzer) selectCandidates(r *rank.Ranking, c *geneset.Collection) ([]geneset.Candidate, []geneset.Rejected) {
	kept, rejected := c.Select(r, a.cfg.MinSize, a.cfg.MaxSize)
	out := kept[:0]
	for _, cand := range kept {
		if len(cand.Hits) >= r.Len() {
			rejected = append(rejected, geneset.Rejected{
				Name:   cand.Set.Name(),
				Reason: gsea.InvalidInput("gene set covers all %d ranked genes", r.Len()),
			})
			continue
		}
		out = append(out, cand)
	}
	return out, rejected
}

// nullFits returns a fit for every size, drawing only what neither the fit
// cache nor the sample store can provide.
func (a *Analyzer) nullFits(ctx context.Context, scorer *enrich.Scorer, fingerprint string, sizes []int) (map[int]gammafit.NullFit, error) {
	base := SampleKey{
		Fingerprint:  fingerprint,
		Weight:       a.cfg.Weight,
		Permutations: a.cfg.Permutations,
		Seed:         a.cfg.Seed,
	}

	targets := sizes
	anchored := a.strategy() == StrategyAnchored && len(sizes) > a.cfg.Anchors
	if anchored {
		targets = nullmodel.Anchors(sizes[0], sizes[len(sizes)-1], a.cfg.Anchors)
	}

	fitted := make(map[int]gammafit.NullFit, len(targets))
	var missing []int
	for _, size := range targets {
		if a.cache != nil {
			if nf, ok := a.cache.Get(a.fitKey(base, size)); ok {
				a.stats.IncCounter(stats.MetricFitCacheHits, 1)
				fitted[size] = nf
				continue
			}
			a.stats.IncCounter(stats.MetricFitCacheMisses, 1)
		}
		missing = append(missing, size)
	}

	if len(missing) > 0 {
		if err := a.drawFits(ctx, scorer, base, missing, fitted); err != nil {
			return nil, err
		}
	}
	if a.cache != nil {
		a.stats.SetGauge(stats.MetricFitCacheSize, int64(a.cache.Len()))
	}

	if !anchored {
		return fitted, nil
	}
	anchorFits := make([]gammafit.NullFit, 0, len(targets))
	for _, size := range targets {
		anchorFits = append(anchorFits, fitted[size])
	}
	out := make(map[int]gammafit.NullFit, len(sizes))
	for _, size := range sizes {
		out[size] = nullmodel.Interpolate(anchorFits, size)
	}
	a.logger.Debug("null fits interpolated",
		zap.Int("anchors", len(targets)),
		zap.Int("sizes", len(sizes)))
	return out, nil
}

func (a *Analyzer) drawFits(ctx context.Context, scorer *enrich.Scorer, base SampleKey, sizes []int, fitted map[int]gammafit.NullFit) error {
	est, err := nullmodel.New(scorer, nullmodel.Config{
		Permutations: a.cfg.Permutations,
		Seed:         a.cfg.Seed,
		Workers:      a.cfg.Workers,
	})
	if err != nil {
		return err
	}
	est.SetLogger(a.logger)
	defer est.Reset()

	primed := make(map[int]bool)
	if a.store != nil {
		stored, err := a.store.LoadSamples(ctx, base, sizes)
		if err != nil {
			a.logger.Warn("loading stored null samples failed", zap.Error(err))
		}
		for size, sample := range stored {
			if len(sample) != a.cfg.Permutations {
				continue
			}
			est.Prime(size, sample)
			primed[size] = true
		}
		if len(primed) > 0 {
			a.logger.Debug("null samples loaded from store", zap.Int("sizes", len(primed)))
		}
	}

	samples, err := est.SampleAll(ctx, sizes)
	if err != nil {
		return err
	}

	var fresh []gammafit.NullFit
	for _, size := range sizes {
		nf, errs := gammafit.FitNull(size, samples[size], a.fitter, a.cfg.MinSamples)
		for _, err := range errs {
			var fe *gammafit.FitError
			if errors.As(err, &fe) {
				a.logger.Warn("gamma fit failed, using empirical p-values",
					zap.Int("size", fe.Size),
					zap.String("side", string(fe.Side)),
					zap.Error(fe.Err))
			}
			a.stats.IncCounter(stats.MetricFitFallbacks, 1)
		}
		if a.logger.Core().Enabled(zap.DebugLevel) {
			a.logDebugFit(nf)
		}
		fitted[size] = nf
		if a.cache != nil {
			a.cache.Add(a.fitKey(base, size), nf)
		}
		if !primed[size] {
			fresh = append(fresh, nf)
			a.stats.IncCounter(stats.MetricNullScores, int64(len(nf.Sample)))
		}
	}
	a.stats.IncCounter(stats.MetricNullBuckets, int64(len(fresh)))

	if a.store != nil && len(fresh) > 0 {
		if err := a.store.SaveSamples(ctx, base, fresh); err != nil {
			a.logger.Warn("saving null samples failed", zap.Error(err))
		}
	}
	return nil
}

func (a *Analyzer) logDebugFit(nf gammafit.NullFit) {
	sum, err := nullmodel.Summarize(nf.Sample)
	if err != nil {
		return
	}
	a.logger.Debug("null fitted",
		zap.Int("size", nf.Size),
		zap.Float64("mean", sum.Mean),
		zap.Float64("sd", sum.StdDev),
		zap.Float64("p95", sum.P95),
		zap.Float64("positive_fraction", sum.PositiveFraction),
		zap.Float64("positive_shape", nf.Positive.Params.Shape),
		zap.Float64("negative_shape", nf.Negative.Params.Shape))
}

func (a *Analyzer) fitKey(base SampleKey, size int) FitKey {
	return FitKey{
		SampleKey:  base,
		Size:       size,
		Fitter:     a.fitter.Name(),
		MinSamples: a.cfg.MinSamples,
	}
}

// scoreAll scores candidates on the worker pool and collects them in input
// order so the output does not depend on scheduling.
func (a *Analyzer) scoreAll(ctx context.Context, s *scoring, candidates []geneset.Candidate) ([]Scored, []geneset.Rejected, error) {
	items := make(chan WorkItem, 2*max(a.cfg.Workers, 1))
	go func() {
		defer close(items)
		for i, cand := range candidates {
			select {
			case items <- WorkItem{Seq: i, Candidate: cand}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		scored  []Scored
		skipped []geneset.Rejected
	)
	err := OrderedCollect(s.parallelScore(items, a.cfg.Workers), func(r WorkResult) error {
		if r.Err != nil {
			if !errors.Is(r.Err, gsea.ErrInvalidInput) && !errors.Is(r.Err, gsea.ErrFitFailure) {
				return r.Err
			}
			a.logger.Warn("gene set skipped", zap.String("name", r.Name), zap.Error(r.Err))
			skipped = append(skipped, geneset.Rejected{Name: r.Name, Reason: r.Err})
			return nil
		}
		scored = append(scored, r.Scored)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return scored, skipped, nil
}
