package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fastprodman/progression/internal/infra/pgutils"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

// Apply runs the full commit in a single DB transaction:
//
// 1) Lock the player row (FOR UPDATE).
// 2) Replay the stored outcome if key was already committed.
// 3) Check the expected version and apply the delta in memory.
// 4) Write state, bump version, mirror touched scores.
// 5) Insert the receipt for key.
func (r *ledgerRepo) Apply(ctx context.Context, id ledger.PlayerID, delta ledger.Delta, key string) (ledger.Commit, error) {
	var out ledger.Commit

	err := pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// 1) Lock player row
		rec, err := lockPlayer(ctx, tx, id)
		if err != nil {
			return err
		}

		// 2) Replay
		if key != "" {
			rcpt, err := receipt(ctx, tx, id, key)
			switch {
			case err == nil:
				out = ledger.Commit{Record: rec, Outcome: rcpt.Outcome, Replayed: true}
				return nil
			case !errors.Is(err, ledger.ErrReceiptNotFound):
				return err
			}
		}

		// 3) Version check + pure application
		if delta.ExpectedVersion != 0 && delta.ExpectedVersion != rec.Version {
			return fmt.Errorf("player %s at version %d, expected %d: %w",
				id, rec.Version, delta.ExpectedVersion, ledger.ErrConflict)
		}

		next, err := ledger.ApplyDelta(rec.State, delta)
		if err != nil {
			return err
		}

		// 4) Persist
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode state: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE players
			SET state = $2::jsonb,
			    version = version + 1,
			    updated_at = $3
			WHERE id = $1
			RETURNING version, updated_at
		`, string(id), raw, r.now().UTC()).Scan(&rec.Version, &rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update player: %w", err)
		}
		rec.State = next

		for _, typ := range delta.ScoreTypes() {
			err = upsertScore(ctx, tx, id, typ, next.Scores[typ])
			if err != nil {
				return err
			}
		}

		// 5) Receipt
		if key != "" {
			err = insertReceipt(ctx, tx, id, key, rec.Version, delta.Outcome)
			if err != nil {
				return err
			}
		}

		out = ledger.Commit{Record: rec, Outcome: delta.Outcome}

		return nil
	})
	if err != nil {
		return ledger.Commit{}, classify(fmt.Errorf("apply delta: %w", err))
	}

	return out, nil
}

func upsertScore(ctx context.Context, tx *sql.Tx, id ledger.PlayerID, scoreType string, value int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO player_scores (player_id, score_type, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, score_type) DO UPDATE SET value = EXCLUDED.value
	`, string(id), scoreType, value)
	if err != nil {
		return fmt.Errorf("upsert score %s: %w", scoreType, err)
	}

	return nil
}
