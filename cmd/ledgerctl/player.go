package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

func newPlayerCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Inspect player records",
	}

	get := &cobra.Command{
		Use:   "get <player-id>",
		Short: "Print a player's ledger record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := opts.store(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			rec, err := store.Get(cmd.Context(), ledger.PlayerID(args[0]))
			if err != nil {
				return fmt.Errorf("get player: %w", err)
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rec)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "id:       %s\n", rec.ID)
			fmt.Fprintf(w, "name:     %s\n", rec.DisplayName)
			fmt.Fprintf(w, "country:  %s\n", rec.Country)
			fmt.Fprintf(w, "version:  %d\n", rec.Version)
			printCounters(cmd, "currency", rec.State.Currencies)
			printCounters(cmd, "score", rec.State.Scores)
			printCounters(cmd, "item", rec.State.Items)

			bp := rec.State.BattlePass
			fmt.Fprintf(w, "pass:     tier %d, xp %d, premium %t, completed %t\n", bp.Tier, bp.XP, bp.Premium, bp.Completed)

			return nil
		},
	}

	cmd.AddCommand(get)

	return cmd
}

func printCounters(cmd *cobra.Command, label string, m map[string]int64) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s=%d\n", label+":", k, m[k])
	}
}
