package ledger

import (
	"context"
	"errors"
	"fmt"

	repo "github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/services/progress"
)

type MilestoneClaim struct {
	Player    repo.PlayerID
	Mission   string
	Milestone string
	Key       string
}

type MissionClaim struct {
	Player  repo.PlayerID
	Mission string
	Key     string
}

type PassClaim struct {
	Player repo.PlayerID
	Reward string
	Key    string
}

// claimPlan adapts a progress plan to a commit. A plan that reports the claim
// as already made becomes a no-op carrying the original grant.
func claimPlan(p progress.Plan, err error) (*repo.Delta, Result, error) {
	if errors.Is(err, repo.ErrAlreadyClaimed) {
		return nil, Result{Granted: p.Grant, AlreadyClaimed: true}, nil
	}
	if err != nil {
		return nil, Result{}, err
	}

	return &p.Delta, Result{Granted: p.Grant}, nil
}

func (s *LedgerService) ClaimMilestone(ctx context.Context, req MilestoneClaim) (Result, error) {
	return s.commit(ctx, "claim milestone", req.Player, req.Key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		return claimPlan(s.progress.ClaimMilestone(rec.State, req.Mission, req.Milestone))
	})
}

func (s *LedgerService) ClaimMission(ctx context.Context, req MissionClaim) (Result, error) {
	return s.commit(ctx, "claim mission", req.Player, req.Key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		return claimPlan(s.progress.ClaimMission(rec.State, req.Mission))
	})
}

// GrantPassXP advances the battle pass, possibly across several tiers.
func (s *LedgerService) GrantPassXP(ctx context.Context, id repo.PlayerID, xp int64, key string) (Result, error) {
	if xp <= 0 {
		return Result{}, fmt.Errorf("grant pass xp: %d: %w", xp, repo.ErrInvalidInput)
	}

	return s.commit(ctx, "grant pass xp", id, key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		u, err := s.progress.GrantXP(rec.State, xp)
		if err != nil {
			return nil, Result{}, err
		}

		return &repo.Delta{BattlePass: &u}, Result{}, nil
	})
}

func (s *LedgerService) PurchasePremium(ctx context.Context, id repo.PlayerID, key string) (Result, error) {
	return s.commit(ctx, "purchase premium", id, key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		return claimPlan(s.progress.PurchasePremium(rec.State))
	})
}

func (s *LedgerService) ClaimPassReward(ctx context.Context, req PassClaim) (Result, error) {
	return s.commit(ctx, "claim pass reward", req.Player, req.Key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		return claimPlan(s.progress.ClaimReward(rec.State, req.Reward))
	})
}

// CompletePass marks the pass completed once the last tier is reached.
// Completing again is a successful no-op.
func (s *LedgerService) CompletePass(ctx context.Context, id repo.PlayerID, key string) (Result, error) {
	return s.commit(ctx, "complete pass", id, key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		return claimPlan(s.progress.Complete(rec.State))
	})
}

func (s *LedgerService) Missions(ctx context.Context, id repo.PlayerID) ([]progress.MissionView, error) {
	rec, err := s.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.progress.Missions(rec.State), nil
}

func (s *LedgerService) BattlePass(ctx context.Context, id repo.PlayerID) (progress.PassView, error) {
	rec, err := s.GetPlayer(ctx, id)
	if err != nil {
		return progress.PassView{}, err
	}

	return s.progress.BattlePass(rec.State), nil
}
