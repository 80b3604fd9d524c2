package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

// UpdateProfile stores collaborator-owned display fields. The version moves so
// that readers holding an older record can tell the profile changed; the
// state document is not touched.
func (r *ledgerRepo) UpdateProfile(ctx context.Context, id ledger.PlayerID, p ledger.Profile) (ledger.PlayerRecord, error) {
	rec, err := scanPlayer(r.db.QueryRowContext(ctx, `
		UPDATE players
		SET display_name = $2,
		    country_code = $3,
		    version = version + 1,
		    updated_at = $4
		WHERE id = $1
		RETURNING `+playerColumns,
		string(id), p.DisplayName, p.Country, r.now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.PlayerRecord{}, fmt.Errorf("player %s: %w", id, ledger.ErrNotFound)
		}

		return ledger.PlayerRecord{}, classify(fmt.Errorf("update profile: %w", err))
	}

	return rec, nil
}
