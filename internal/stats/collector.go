// Package stats provides a unified interface for collecting run metrics.
package stats

// Metric names.
const (
	// Analysis metrics.
	MetricSetsScored  = "turbogsea_gene_sets_scored_total"
	MetricSetsSkipped = "turbogsea_gene_sets_skipped_total"
	MetricRunSeconds  = "turbogsea_run_seconds"

	// Null model metrics.
	MetricNullBuckets  = "turbogsea_null_buckets_total"
	MetricNullScores   = "turbogsea_null_scores_total"
	MetricNullSeconds  = "turbogsea_null_seconds"
	MetricFitFallbacks = "turbogsea_fit_fallbacks_total"

	// Fit cache metrics.
	MetricFitCacheHits   = "turbogsea_fit_cache_hits_total"
	MetricFitCacheMisses = "turbogsea_fit_cache_misses_total"
	MetricFitCacheSize   = "turbogsea_fit_cache_size"
)

// Help describes each metric for exporters that need it.
var Help = map[string]string{
	MetricSetsScored:     "Gene sets scored.",
	MetricSetsSkipped:    "Gene sets skipped before or during scoring.",
	MetricRunSeconds:     "Wall time of a prerank run.",
	MetricNullBuckets:    "Null size buckets sampled.",
	MetricNullScores:     "Null enrichment scores computed.",
	MetricNullSeconds:    "Wall time of null sampling and fitting.",
	MetricFitFallbacks:   "Null tails that fell back to empirical p-values.",
	MetricFitCacheHits:   "Null fits served from the in-process cache.",
	MetricFitCacheMisses: "Null fits not found in the in-process cache.",
	MetricFitCacheSize:   "Entries in the in-process fit cache.",
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
