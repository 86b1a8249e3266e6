package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/maayanlab/turbogsea/internal/duckdb"
	"github.com/maayanlab/turbogsea/internal/fileio"
	"github.com/maayanlab/turbogsea/internal/geneset"
	"github.com/maayanlab/turbogsea/internal/output"
	"github.com/maayanlab/turbogsea/internal/prerank"
	"github.com/maayanlab/turbogsea/internal/rank"
	"github.com/maayanlab/turbogsea/internal/stats"
	statslogger "github.com/maayanlab/turbogsea/internal/stats/logger"
	promstats "github.com/maayanlab/turbogsea/internal/stats/prometheus"
)

type prerankOptions struct {
	rankFile    string
	geneSetFile string
	outputFile  string
	format      string
	metricsFile string
}

// configFlags maps command flags onto configuration keys.
var configFlags = map[string]string{
	"permutations":   "permutations",
	"weight":         "weight",
	"min-size":       "min_size",
	"max-size":       "max_size",
	"seed":           "seed",
	"workers":        "workers",
	"fitter":         "fitter",
	"correction":     "correction",
	"sort":           "sort",
	"strategy":       "strategy",
	"anchors":        "anchors",
	"min-samples":    "min_samples",
	"duplicates":     "duplicates",
	"db":             "db",
	"fit-cache-size": "fit_cache_size",
}

func newPrerankCmd(a *app) *cobra.Command {
	var opts prerankOptions

	cmd := &cobra.Command{
		Use:   "prerank -r <ranks> -g <gene-sets> [flags]",
		Short: "Run prerank enrichment of gene sets against a ranked gene list",
		Example: `  turbogsea prerank -r ranks.rnk -g h.all.gmt
  turbogsea prerank -r ranks.rnk.gz -g c2.gmt -o results.csv --permutations 5000
  turbogsea prerank -r ranks.rnk -g h.all.gmt --db runs.duckdb --metrics-file prerank.prom
  cat ranks.rnk | turbogsea prerank -r - -g h.all.gmt`,
		Args: exactArgs(0),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := requiredFlags(cmd); err != nil {
				return err
			}
			return bindFlags(a, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPrerank(cmd.Context(), opts)
		},
	}

	d := prerank.DefaultConfig()
	f := cmd.Flags()
	f.StringVarP(&opts.rankFile, "ranks", "r", "", "ranked gene list, two columns (use '-' for stdin)")
	f.StringVarP(&opts.geneSetFile, "gene-sets", "g", "", "gene set library in GMT format")
	f.StringVarP(&opts.outputFile, "output", "o", "", "output file (default: stdout)")
	f.StringVar(&opts.format, "format", "", "output format: tsv or csv (default: from output extension)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	f.Int("permutations", d.Permutations, "null samples per gene-set size")
	f.Float64("weight", d.Weight, "exponent applied to ranking scores")
	f.Int("min-size", d.MinSize, "smallest gene-set overlap to score")
	f.Int("max-size", d.MaxSize, "largest gene-set overlap to score")
	f.Uint64("seed", d.Seed, "random seed for null sampling")
	f.Int("workers", d.Workers, "parallel workers (0 = all CPUs)")
	f.String("fitter", d.Fitter, "null distribution fitter: mle or moments")
	f.String("correction", d.Correction, "multiple-testing correction: fdr_bh, bonferroni or sidak")
	f.String("sort", d.Sort, "result order: pvalue, fdr, es, nes or name")
	f.String("strategy", d.Strategy, "null strategy: exact or anchored")
	f.Int("anchors", d.Anchors, "anchor sizes for the anchored strategy")
	f.Int("min-samples", d.MinSamples, "null values per side needed for a gamma fit")
	f.String("duplicates", "error", "duplicate genes in the ranking: error, first or max")
	f.String("db", "", "DuckDB database for runs and null samples")
	f.Int("fit-cache-size", prerank.DefaultFitCacheSize, "null fits kept in memory")

	cmd.MarkFlagRequired("ranks")
	cmd.MarkFlagRequired("gene-sets")

	return cmd
}

func bindFlags(a *app, flags *pflag.FlagSet) error {
	for name, key := range configFlags {
		if flag := flags.Lookup(name); flag != nil {
			if err := a.v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}
	return nil
}

func (a *app) runPrerank(ctx context.Context, opts prerankOptions) error {
	cfg := analysisConfig(a.v)
	analyzer, err := prerank.NewAnalyzer(cfg)
	if err != nil {
		return err
	}
	policy, err := rank.ParseDuplicatePolicy(a.v.GetString("duplicates"))
	if err != nil {
		return err
	}
	format := opts.format
	if format == "" {
		format = output.FormatForPath(opts.outputFile)
	}
	if _, err := output.NewWriter(format, io.Discard); err != nil {
		return err
	}

	ranking, err := rank.Load(opts.rankFile, policy)
	if err != nil {
		return err
	}
	collection, err := geneset.LoadGMT(opts.geneSetFile)
	if err != nil {
		return err
	}
	a.logger.Info("inputs loaded",
		zap.Int("genes", ranking.Len()),
		zap.Int("gene_sets", collection.Len()))

	analyzer.SetLogger(a.logger)

	var registry *prometheus.Registry
	var collector stats.Collector = stats.NewNoop()
	switch {
	case opts.metricsFile != "":
		registry = prometheus.NewRegistry()
		collector = promstats.New(registry)
	case a.verbose:
		collector = statslogger.New(a.logger)
	}
	analyzer.SetStats(collector)

	fitCache, err := prerank.NewFitCache(a.v.GetInt("fit_cache_size"))
	if err != nil {
		return err
	}
	analyzer.SetFitCache(fitCache)

	var store *duckdb.Store
	if path := a.v.GetString("db"); path != "" {
		store, err = duckdb.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()
		analyzer.SetSampleStore(store)
	}

	report, err := analyzer.Run(ctx, ranking, collection)
	if err != nil {
		return err
	}

	if err := a.writeResults(opts.outputFile, format, report.Results); err != nil {
		return err
	}

	if store != nil {
		rankInfo, err := duckdb.StatFile(opts.rankFile)
		if err != nil {
			return err
		}
		setInfo, err := duckdb.StatFile(opts.geneSetFile)
		if err != nil {
			return err
		}
		id, err := store.SaveRun(ctx, report, rankInfo, setInfo)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		a.logger.Info("run saved", zap.String("run_id", id), zap.String("db", store.Path()))
	}

	if registry != nil {
		if err := promstats.WriteFile(opts.metricsFile, registry); err != nil {
			return err
		}
	}

	a.logger.Info("done",
		zap.Int("results", len(report.Results)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Duration("elapsed", report.Elapsed.Round(time.Millisecond)))
	return nil
}

func (a *app) writeResults(path, format string, results []prerank.EnrichmentResult) error {
	var out io.WriteCloser
	if path == "" || path == "-" {
		out = nopCloser{a.stdout}
	} else {
		var err error
		out, err = fileio.Create(path)
		if err != nil {
			return err
		}
	}

	w, err := output.NewWriter(format, out)
	if err != nil {
		out.Close()
		return err
	}
	if err := output.WriteAll(w, results); err != nil {
		out.Close()
		return fmt.Errorf("writing results: %w", err)
	}
	return out.Close()
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
