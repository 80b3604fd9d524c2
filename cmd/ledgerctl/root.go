package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/fastprodman/progression/internal/config"
	"github.com/fastprodman/progression/internal/infra/pgutils"
	"github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/repos/ledger/postgres"
	"github.com/fastprodman/progression/pkg/envconf"
)

var validFormats = []string{"text", "json"}

// opener connects to the ledger store. The returned func releases it.
type opener func(ctx context.Context, dsn string) (ledger.Store, func(), error)

type rootOptions struct {
	Format string
	DSN    string
	open   opener
}

func newRootCommand(open opener) *cobra.Command {
	opts := &rootOptions{open: open}

	cmd := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Operator tooling for the progression ledger",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "Postgres DSN (defaults to PG_DSN)")

	cmd.AddCommand(newCatalogCommand(opts))
	cmd.AddCommand(newLeaderboardCommand(opts))
	cmd.AddCommand(newPlayerCommand(opts))

	return cmd
}

func (o *rootOptions) store(ctx context.Context) (ledger.Store, func(), error) {
	dsn := o.DSN
	if dsn == "" {
		var pg config.PostgresConfig

		err := envconf.Load(&pg)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		dsn = pg.DSN
	}
	if dsn == "" {
		return nil, nil, fmt.Errorf("no DSN: pass --dsn or set PG_DSN")
	}

	return o.open(ctx, dsn)
}

func openPostgres(ctx context.Context, dsn string) (ledger.Store, func(), error) {
	db, err := pgutils.OpenDB(ctx, config.PostgresConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 2})
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}

	return postgres.New(db), func() { _ = db.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
