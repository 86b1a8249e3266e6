package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage stored null samples",
		Long:  "Null samples are stored per ranking, weight, permutation count and seed, and reused by later runs on the same ranking.",
		Example: `  turbogsea cache list --db runs.duckdb
  turbogsea cache clear --db runs.duckdb`,
	}
	addDBFlag(a, cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored null fits",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCacheList(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every stored null sample",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCacheClear(cmd.Context())
		},
	})

	return cmd
}

func (a *app) runCacheList(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	fits, err := store.ListFits(ctx)
	if err != nil {
		return err
	}
	if len(fits) == 0 {
		fmt.Fprintln(a.stdout, "No null samples stored.")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANKING\tSIZE\tPERMUTATIONS\tPOS SHAPE\tPOS SCALE\tNEG SHAPE\tNEG SCALE")
	for _, f := range fits {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4g\t%.4g\t%.4g\t%.4g\n",
			f.Fingerprint, f.Size, f.Permutations,
			f.Positive.Shape, f.Positive.Scale, f.Negative.Shape, f.Negative.Scale)
	}
	return tw.Flush()
}

func (a *app) runCacheClear(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.ClearFits(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Removed %d null samples from %s\n", n, store.Path())
	return nil
}
