package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *ledgerRepo) Receipt(ctx context.Context, id ledger.PlayerID, key string) (ledger.Receipt, error) {
	rcpt, err := receipt(ctx, r.db, id, key)
	if err != nil {
		return ledger.Receipt{}, classify(err)
	}

	return rcpt, nil
}

func receipt(ctx context.Context, q querier, id ledger.PlayerID, key string) (ledger.Receipt, error) {
	var (
		rcpt    = ledger.Receipt{Key: key}
		outcome []byte
	)

	err := q.QueryRowContext(ctx, `
		SELECT version, outcome, created_at
		FROM receipts
		WHERE player_id = $1 AND idempotency_key = $2
	`, string(id), key).Scan(&rcpt.Version, &outcome, &rcpt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Receipt{}, ledger.ErrReceiptNotFound
		}

		return ledger.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}

	rcpt.Outcome = json.RawMessage(outcome)

	return rcpt, nil
}

func insertReceipt(ctx context.Context, tx *sql.Tx, id ledger.PlayerID, key string, version int64, outcome json.RawMessage) error {
	var arg any
	if len(outcome) > 0 {
		arg = []byte(outcome)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO receipts (player_id, idempotency_key, version, outcome)
		VALUES ($1, $2, $3, $4::jsonb)
	`, string(id), key, version, arg)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	return nil
}
