package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

func (r *ledgerRepo) Resolve(ctx context.Context, deviceID string) (ledger.PlayerID, error) {
	var id string

	err := r.db.QueryRowContext(ctx, `
		SELECT player_id
		FROM devices
		WHERE device_id = $1
	`, strings.TrimSpace(deviceID)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("device %q: %w", deviceID, ledger.ErrNotFound)
		}

		return "", classify(fmt.Errorf("resolve device: %w", err))
	}

	return ledger.PlayerID(id), nil
}

// Revoke drops the device mapping; the player row stays.
func (r *ledgerRepo) Revoke(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM devices
		WHERE device_id = $1
	`, strings.TrimSpace(deviceID))
	if err != nil {
		return classify(fmt.Errorf("revoke device: %w", err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("device %q: %w", deviceID, ledger.ErrNotFound)
	}

	return nil
}
