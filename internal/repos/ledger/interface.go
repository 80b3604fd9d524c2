package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyClaimed    = errors.New("already claimed")
	ErrNotEligible       = errors.New("not eligible")
	ErrConflict          = errors.New("concurrent modification")
	ErrUnavailable       = errors.New("ledger unavailable")
	ErrReceiptNotFound   = errors.New("receipt not found")
)

// Store is the durable per-player ledger. Apply is atomic per player: every
// change in a Delta lands or none does. Writes for one player are serialized;
// writes for different players never wait on each other.
type Store interface {
	Create(ctx context.Context, p NewPlayer) (PlayerRecord, error)
	Get(ctx context.Context, id PlayerID) (PlayerRecord, error)
	Apply(ctx context.Context, id PlayerID, delta Delta, key string) (Commit, error)
	Receipt(ctx context.Context, id PlayerID, key string) (Receipt, error)
	UpdateProfile(ctx context.Context, id PlayerID, p Profile) (PlayerRecord, error)
	Scan(ctx context.Context, fn func(PlayerRecord) error) error
	PurgeReceipts(ctx context.Context, before time.Time) (int64, error)
}

// IdentityResolver maps device ids to stable player identities.
type IdentityResolver interface {
	Resolve(ctx context.Context, deviceID string) (PlayerID, error)
	Revoke(ctx context.Context, deviceID string) error
}
