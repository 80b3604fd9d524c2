package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

const playerColumns = `id, display_name, country_code, version, state, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ledgerRepo) Get(ctx context.Context, id ledger.PlayerID) (ledger.PlayerRecord, error) {
	rec, err := scanPlayer(r.db.QueryRowContext(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE id = $1
	`, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.PlayerRecord{}, fmt.Errorf("player %s: %w", id, ledger.ErrNotFound)
		}

		return ledger.PlayerRecord{}, classify(fmt.Errorf("get player: %w", err))
	}

	return rec, nil
}

// lockPlayer reads the player row and holds its lock until tx ends.
func lockPlayer(ctx context.Context, tx *sql.Tx, id ledger.PlayerID) (ledger.PlayerRecord, error) {
	rec, err := scanPlayer(tx.QueryRowContext(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE id = $1
		FOR UPDATE
	`, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.PlayerRecord{}, fmt.Errorf("player %s: %w", id, ledger.ErrNotFound)
		}

		return ledger.PlayerRecord{}, fmt.Errorf("lock player: %w", err)
	}

	return rec, nil
}

func scanPlayer(row rowScanner) (ledger.PlayerRecord, error) {
	var (
		rec ledger.PlayerRecord
		id  string
		raw []byte
	)

	err := row.Scan(&id, &rec.DisplayName, &rec.Country, &rec.Version, &raw, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return ledger.PlayerRecord{}, err
	}

	rec.ID = ledger.PlayerID(id)

	err = json.Unmarshal(raw, &rec.State)
	if err != nil {
		return ledger.PlayerRecord{}, fmt.Errorf("decode state of %s: %w", id, err)
	}
	rec.State.Normalize()

	return rec, nil
}
