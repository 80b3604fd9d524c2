package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fastprodman/progression/internal/services/ranking"
)

type listOptions struct {
	ScoreType string
	Country   string
	Start     int
	Count     int
}

func newLeaderboardCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Read leaderboards straight from the ledger",
	}

	lo := &listOptions{}

	list := &cobra.Command{
		Use:   "list",
		Short: "Rank all players by a score type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := opts.store(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			index := ranking.New(slog.New(slog.DiscardHandler))

			_, err = index.Rebuild(cmd.Context(), store)
			if err != nil {
				return fmt.Errorf("load scores: %w", err)
			}

			entries, err := index.List(lo.ScoreType, lo.Country, lo.Start, lo.Count)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tPLAYER\tNAME\tVALUE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", e.Rank, e.Player, e.DisplayName, e.Value)
			}

			return tw.Flush()
		},
	}
	list.Flags().StringVar(&lo.ScoreType, "type", "crowns", "score type")
	list.Flags().StringVar(&lo.Country, "country", ranking.Global, "ISO country code or global")
	list.Flags().IntVar(&lo.Start, "start", 0, "zero-based rank offset")
	list.Flags().IntVar(&lo.Count, "count", 50, "number of entries")

	cmd.AddCommand(list)

	return cmd
}
