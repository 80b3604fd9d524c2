package postgres

import (
	"errors"
	"testing"

	"github.com/fastprodman/progression/internal/infra/pgtestutil"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

func TestLedger_Create_ResolveRevoke(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := t.Context()

	rec, err := repo.Create(ctx, ledger.NewPlayer{DeviceID: "dev-1", DisplayName: "alice", Country: "BR"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Version != 1 || rec.Country != "BR" || rec.DisplayName != "alice" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	again, err := repo.Create(ctx, ledger.NewPlayer{DeviceID: "dev-1", DisplayName: "other"})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.ID != rec.ID {
		t.Fatalf("device re-created a player: %s vs %s", again.ID, rec.ID)
	}

	id, err := repo.Resolve(ctx, "dev-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != rec.ID {
		t.Fatalf("resolve: want %s, got %s", rec.ID, id)
	}

	err = repo.Revoke(ctx, "dev-1")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, err = repo.Resolve(ctx, "dev-1")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("resolve after revoke: want ErrNotFound, got %v", err)
	}

	err = repo.Revoke(ctx, "dev-1")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("second revoke: want ErrNotFound, got %v", err)
	}
}

func TestLedger_Create_RequiresDevice(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	_, err := New(db).Create(t.Context(), ledger.NewPlayer{DeviceID: "  "})
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}
