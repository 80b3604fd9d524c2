package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fastprodman/progression/internal/infra/pgutils"
	"github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/google/uuid"
)

var errDeviceTaken = errors.New("device already linked")

// Create inserts a zeroed player and links the device to it. A device that
// is already linked returns the existing player.
func (r *ledgerRepo) Create(ctx context.Context, p ledger.NewPlayer) (ledger.PlayerRecord, error) {
	deviceID := strings.TrimSpace(p.DeviceID)
	if deviceID == "" {
		return ledger.PlayerRecord{}, fmt.Errorf("device id required: %w", ledger.ErrInvalidInput)
	}

	state, err := json.Marshal(ledger.NewState())
	if err != nil {
		return ledger.PlayerRecord{}, fmt.Errorf("encode state: %w", err)
	}

	id := uuid.NewString()

	var rec ledger.PlayerRecord
	err = pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		inserted, err := scanPlayer(tx.QueryRowContext(ctx, `
			INSERT INTO players (id, display_name, country_code, version, state)
			VALUES ($1, $2, $3, 1, $4::jsonb)
			RETURNING `+playerColumns,
			id, p.DisplayName, p.Country, state))
		if err != nil {
			return fmt.Errorf("insert player: %w", err)
		}
		rec = inserted

		res, err := tx.ExecContext(ctx, `
			INSERT INTO devices (device_id, player_id)
			VALUES ($1, $2)
			ON CONFLICT (device_id) DO NOTHING
		`, deviceID, id)
		if err != nil {
			return fmt.Errorf("link device: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return errDeviceTaken
		}

		return nil
	})
	if errors.Is(err, errDeviceTaken) {
		existing, rerr := r.Resolve(ctx, deviceID)
		if rerr != nil {
			return ledger.PlayerRecord{}, rerr
		}

		return r.Get(ctx, existing)
	}
	if err != nil {
		return ledger.PlayerRecord{}, classify(fmt.Errorf("create player: %w", err))
	}

	return rec, nil
}
