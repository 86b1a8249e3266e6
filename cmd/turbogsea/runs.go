package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/maayanlab/turbogsea/internal/duckdb"
	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/output"
	"github.com/maayanlab/turbogsea/internal/prerank"
)

// addDBFlag adds --db bound to the "db" config key.
func addDBFlag(a *app, cmd *cobra.Command) {
	cmd.PersistentFlags().String("db", "", "DuckDB database with stored runs")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return a.v.BindPFlag("db", cmd.Flag("db"))
	}
}

// openStore opens the configured database, which must already exist.
func (a *app) openStore() (*duckdb.Store, error) {
	path := a.v.GetString("db")
	if path == "" {
		return nil, gsea.Configuration("no database configured (use --db or set db in the config file)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return duckdb.Open(path)
}

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored prerank runs",
		Example: `  turbogsea runs list --db runs.duckdb
  turbogsea runs show 3f2a... --db runs.duckdb
  turbogsea runs search HALLMARK_APOPTOSIS --db runs.duckdb`,
	}
	addDBFlag(a, cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd.Context())
		},
	})

	var term string
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the result table of a run",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShow(cmd.Context(), args[0], term)
		},
	}
	show.Flags().StringVar(&term, "term", "", "only print this gene set")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "search <term>",
		Short: "Show a gene set's results across all runs",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDelete(cmd.Context(), args[0])
		},
	})

	return cmd
}

func (a *app) runList(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.stdout, "No runs stored.")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tGENES\tSCORED\tSKIPPED\tPERMUTATIONS\tRANKS\tGENE SETS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.Started.Local().Format(time.DateTime), r.Genes, r.Scored, r.Skipped,
			r.Config.Permutations, r.RankFile.Path, r.GeneSetFile.Path)
	}
	return tw.Flush()
}

func (a *app) runShow(ctx context.Context, id, term string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	results, err := store.RunResults(ctx, id)
	if err != nil {
		return err
	}
	if term != "" {
		results = filterTerm(results, term)
	}

	fmt.Fprintf(a.stdout, "# run %s started %s (%s)\n", run.ID, run.Started.Local().Format(time.DateTime), run.Elapsed)
	fmt.Fprintf(a.stdout, "# ranks %s, gene sets %s, %d permutations, seed %d\n",
		run.RankFile.Path, run.GeneSetFile.Path, run.Config.Permutations, run.Config.Seed)
	return output.WriteAll(output.NewTabWriter(a.stdout), results)
}

func (a *app) runSearch(ctx context.Context, term string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := store.SearchByTerm(ctx, term)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintf(a.stdout, "No results for %s.\n", term)
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tES\tNES\tPVAL\tFDR\tSIZE")
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.3g\t%.3g\t%d\n",
			h.RunID, h.Result.ES, h.Result.NES, h.Result.PValue, h.Result.FDR, h.Result.Size)
	}
	return tw.Flush()
}

func (a *app) runDelete(ctx context.Context, id string) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted run %s\n", id)
	return nil
}

func filterTerm(results []prerank.EnrichmentResult, term string) []prerank.EnrichmentResult {
	var out []prerank.EnrichmentResult
	for _, r := range results {
		if r.Term == term {
			out = append(out, r)
		}
	}
	return out
}
