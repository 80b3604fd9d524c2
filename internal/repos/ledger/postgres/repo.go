package postgres

import (
	"database/sql"
	"time"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

var (
	_ ledger.Store            = (*ledgerRepo)(nil)
	_ ledger.IdentityResolver = (*ledgerRepo)(nil)
)

type ledgerRepo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db, now: time.Now}
}
