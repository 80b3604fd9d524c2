package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastprodman/progression/internal/catalog"
)

type catalogSummary struct {
	Valid      bool     `json:"valid"`
	Error      string   `json:"error,omitempty"`
	Currencies int      `json:"currencies"`
	ScoreTypes []string `json:"scoreTypes"`
	StoreItems int      `json:"storeItems"`
	Pools      int      `json:"pools"`
	Missions   int      `json:"missions"`
	PassTiers  int64    `json:"passTiers"`
}

func newCatalogCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect game catalog files",
	}

	var file string

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a catalog file (the embedded default when --file is empty)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(file)
			if err != nil {
				if opts.Format == "json" {
					_ = writeJSON(cmd.OutOrStdout(), catalogSummary{Error: err.Error()})
				}
				return err
			}

			sum := catalogSummary{
				Valid:      true,
				Currencies: len(cat.Currencies),
				ScoreTypes: cat.ScoreTypes,
				StoreItems: len(cat.StoreItems),
				Pools:      len(cat.RewardPools),
				Missions:   len(cat.Missions),
				PassTiers:  cat.BattlePass.MaxTier(),
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), sum)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"catalog valid: %d currencies, score types %v, %d store items, %d pools, %d missions, %d pass tiers\n",
				sum.Currencies, sum.ScoreTypes, sum.StoreItems, sum.Pools, sum.Missions, sum.PassTiers)
			return err
		},
	}
	validate.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")

	cmd.AddCommand(validate)

	return cmd
}
