package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

const scanBatch = 500

// Scan visits every player in id order using keyset pagination, so no cursor
// stays open while fn runs.
func (r *ledgerRepo) Scan(ctx context.Context, fn func(ledger.PlayerRecord) error) error {
	after := ""

	for {
		batch, err := r.scanPage(ctx, after)
		if err != nil {
			return classify(err)
		}

		for _, rec := range batch {
			err = fn(rec)
			if err != nil {
				return err
			}
		}

		if len(batch) < scanBatch {
			return nil
		}

		after = string(batch[len(batch)-1].ID)
	}
}

func (r *ledgerRepo) scanPage(ctx context.Context, after string) ([]ledger.PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE id > $1
		ORDER BY id
		LIMIT $2
	`, after, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("scan players: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.PlayerRecord, 0, scanBatch)
	for rows.Next() {
		rec, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}

	return out, nil
}

func (r *ledgerRepo) PurgeReceipts(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM receipts
		WHERE created_at < $1
	`, before.UTC())
	if err != nil {
		return 0, classify(fmt.Errorf("purge receipts: %w", err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}
