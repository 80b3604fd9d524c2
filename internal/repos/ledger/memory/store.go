// Package memory is an in-process ledger.Store. Each player owns a slot with
// its own mutex, so concurrent writes for one player are serialized while
// writes for different players never contend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/google/uuid"
)

var (
	_ ledger.Store            = (*Store)(nil)
	_ ledger.IdentityResolver = (*Store)(nil)
)

type slot struct {
	mu       sync.Mutex
	rec      ledger.PlayerRecord
	receipts map[string]ledger.Receipt
}

type Store struct {
	players sync.Map // ledger.PlayerID -> *slot
	devices sync.Map // device id -> ledger.PlayerID
	now     func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

func (s *Store) Create(ctx context.Context, p ledger.NewPlayer) (ledger.PlayerRecord, error) {
	if err := ctx.Err(); err != nil {
		return ledger.PlayerRecord{}, fmt.Errorf("create player: %w", ledger.ErrUnavailable)
	}

	deviceID := strings.TrimSpace(p.DeviceID)
	if deviceID == "" {
		return ledger.PlayerRecord{}, fmt.Errorf("device id required: %w", ledger.ErrInvalidInput)
	}

	now := s.now().UTC()
	id := ledger.PlayerID(uuid.NewString())
	sl := &slot{
		rec: ledger.PlayerRecord{
			ID:          id,
			DisplayName: p.DisplayName,
			Country:     p.Country,
			Version:     1,
			State:       ledger.NewState(),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		receipts: map[string]ledger.Receipt{},
	}

	// Store the slot before publishing the device mapping so a resolved
	// identity always has a record behind it.
	s.players.Store(id, sl)

	if existing, loaded := s.devices.LoadOrStore(deviceID, id); loaded {
		s.players.Delete(id)
		return s.Get(ctx, existing.(ledger.PlayerID))
	}

	return sl.rec.Clone(), nil
}

func (s *Store) Get(ctx context.Context, id ledger.PlayerID) (ledger.PlayerRecord, error) {
	sl, err := s.slot(ctx, id)
	if err != nil {
		return ledger.PlayerRecord{}, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	return sl.rec.Clone(), nil
}

// Apply commits delta under the player's lock. A key that was already
// committed short-circuits to the stored outcome.
func (s *Store) Apply(ctx context.Context, id ledger.PlayerID, delta ledger.Delta, key string) (ledger.Commit, error) {
	sl, err := s.slot(ctx, id)
	if err != nil {
		return ledger.Commit{}, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	// Abandoned callers must not commit.
	if err := ctx.Err(); err != nil {
		return ledger.Commit{}, fmt.Errorf("apply %s: %v: %w", id, err, ledger.ErrUnavailable)
	}

	if key != "" {
		if r, ok := sl.receipts[key]; ok {
			return ledger.Commit{Record: sl.rec.Clone(), Outcome: r.Outcome, Replayed: true}, nil
		}
	}

	if delta.ExpectedVersion != 0 && delta.ExpectedVersion != sl.rec.Version {
		return ledger.Commit{}, fmt.Errorf("player %s at version %d, expected %d: %w",
			id, sl.rec.Version, delta.ExpectedVersion, ledger.ErrConflict)
	}

	next, err := ledger.ApplyDelta(sl.rec.State, delta)
	if err != nil {
		return ledger.Commit{}, fmt.Errorf("apply delta: %w", err)
	}

	now := s.now().UTC()
	sl.rec.State = next
	sl.rec.Version++
	sl.rec.UpdatedAt = now

	if key != "" {
		sl.receipts[key] = ledger.Receipt{
			Key:       key,
			Version:   sl.rec.Version,
			Outcome:   delta.Outcome,
			CreatedAt: now,
		}
	}

	return ledger.Commit{Record: sl.rec.Clone(), Outcome: delta.Outcome}, nil
}

func (s *Store) Receipt(ctx context.Context, id ledger.PlayerID, key string) (ledger.Receipt, error) {
	sl, err := s.slot(ctx, id)
	if err != nil {
		return ledger.Receipt{}, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	r, ok := sl.receipts[key]
	if !ok {
		return ledger.Receipt{}, ledger.ErrReceiptNotFound
	}

	return r, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id ledger.PlayerID, p ledger.Profile) (ledger.PlayerRecord, error) {
	sl, err := s.slot(ctx, id)
	if err != nil {
		return ledger.PlayerRecord{}, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.rec.DisplayName = p.DisplayName
	sl.rec.Country = p.Country
	sl.rec.Version++
	sl.rec.UpdatedAt = s.now().UTC()

	return sl.rec.Clone(), nil
}

// Scan visits every player in identity order.
func (s *Store) Scan(ctx context.Context, fn func(ledger.PlayerRecord) error) error {
	var slots []*slot
	s.players.Range(func(_, v any) bool {
		slots = append(slots, v.(*slot))
		return true
	})

	recs := make([]ledger.PlayerRecord, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		recs = append(recs, sl.rec.Clone())
		sl.mu.Unlock()
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) PurgeReceipts(_ context.Context, before time.Time) (int64, error) {
	var purged int64

	s.players.Range(func(_, v any) bool {
		sl := v.(*slot)
		sl.mu.Lock()
		for k, r := range sl.receipts {
			if r.CreatedAt.Before(before) {
				delete(sl.receipts, k)
				purged++
			}
		}
		sl.mu.Unlock()

		return true
	})

	return purged, nil
}

func (s *Store) Resolve(_ context.Context, deviceID string) (ledger.PlayerID, error) {
	v, ok := s.devices.Load(strings.TrimSpace(deviceID))
	if !ok {
		return "", fmt.Errorf("device %q: %w", deviceID, ledger.ErrNotFound)
	}

	return v.(ledger.PlayerID), nil
}

// Revoke forgets a device mapping. The player record itself is kept.
func (s *Store) Revoke(_ context.Context, deviceID string) error {
	if _, loaded := s.devices.LoadAndDelete(strings.TrimSpace(deviceID)); !loaded {
		return fmt.Errorf("device %q: %w", deviceID, ledger.ErrNotFound)
	}

	return nil
}

func (s *Store) slot(ctx context.Context, id ledger.PlayerID) (*slot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("player %s: %v: %w", id, err, ledger.ErrUnavailable)
	}

	v, ok := s.players.Load(id)
	if !ok {
		return nil, fmt.Errorf("player %s: %w", id, ledger.ErrNotFound)
	}

	return v.(*slot), nil
}
