package ledger

import (
	"context"
	"fmt"
	"strings"

	repo "github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/services/ranking"
)

const maxDisplayName = 64

// CreatePlayer registers a player on first contact. A device that is already
// linked yields the existing player.
func (s *LedgerService) CreatePlayer(ctx context.Context, p repo.NewPlayer) (repo.PlayerRecord, error) {
	prof, err := validProfile(repo.Profile{DisplayName: p.DisplayName, Country: p.Country})
	if err != nil {
		return repo.PlayerRecord{}, fmt.Errorf("create player: %w", err)
	}
	p.DisplayName, p.Country = prof.DisplayName, prof.Country

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	rec, err := s.store.Create(ctx, p)
	if err != nil {
		return repo.PlayerRecord{}, fmt.Errorf("create player: %w", unavailable(err))
	}

	if s.ranker != nil {
		s.ranker.SetProfile(rec.ID, rec.DisplayName, rec.Country, rec.Version)
	}

	return rec, nil
}

func (s *LedgerService) GetPlayer(ctx context.Context, id repo.PlayerID) (repo.PlayerRecord, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return repo.PlayerRecord{}, fmt.Errorf("get player: %w", unavailable(err))
	}

	return rec, nil
}

// UpdateProfile stores display name and country and moves the player's
// leaderboard entries to the new country.
func (s *LedgerService) UpdateProfile(ctx context.Context, id repo.PlayerID, p repo.Profile) (repo.PlayerRecord, error) {
	p, err := validProfile(p)
	if err != nil {
		return repo.PlayerRecord{}, fmt.Errorf("update profile: %w", err)
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	rec, err := s.store.UpdateProfile(ctx, id, p)
	if err != nil {
		return repo.PlayerRecord{}, fmt.Errorf("update profile: %w", unavailable(err))
	}

	if s.ranker != nil {
		s.ranker.SetProfile(rec.ID, rec.DisplayName, rec.Country, rec.Version)
	}

	return rec, nil
}

// ResolveIdentity maps a device id to the player it belongs to.
func (s *LedgerService) ResolveIdentity(ctx context.Context, deviceID string) (repo.PlayerID, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", fmt.Errorf("resolve identity: empty device id: %w", repo.ErrInvalidInput)
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	id, err := s.ids.Resolve(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", unavailable(err))
	}

	return id, nil
}

// RevokeDevice invalidates future lookups of a device. The player record stays.
func (s *LedgerService) RevokeDevice(ctx context.Context, deviceID string) error {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	err := s.ids.Revoke(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("revoke device: %w", unavailable(err))
	}

	return nil
}

func validProfile(p repo.Profile) (repo.Profile, error) {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if len([]rune(p.DisplayName)) > maxDisplayName {
		return repo.Profile{}, fmt.Errorf("display name longer than %d: %w", maxDisplayName, repo.ErrInvalidInput)
	}

	cc, err := ranking.CanonicalCountry(p.Country)
	if err != nil {
		return repo.Profile{}, err
	}
	p.Country = cc

	return p, nil
}
