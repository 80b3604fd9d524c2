package ledger

import (
	"context"
	"fmt"
	"math"

	repo "github.com/fastprodman/progression/internal/repos/ledger"
)

type ScoreRequest struct {
	Player    repo.PlayerID
	ScoreType string
	Amount    int64
	Key       string
}

type RoundRequest struct {
	Player repo.PlayerID
	Round  int
	Won    bool
	Key    string
}

// UpdateScore bumps a score counter by one.
func (s *LedgerService) UpdateScore(ctx context.Context, id repo.PlayerID, scoreType, key string) (Result, error) {
	return s.AddScore(ctx, ScoreRequest{Player: id, ScoreType: scoreType, Amount: 1, Key: key})
}

// AddScore increments a score counter by a non-negative amount.
func (s *LedgerService) AddScore(ctx context.Context, req ScoreRequest) (Result, error) {
	if !s.cat.IsScoreType(req.ScoreType) {
		return Result{}, fmt.Errorf("add score: unknown score type %q: %w", req.ScoreType, repo.ErrInvalidInput)
	}
	if req.Amount < 0 {
		return Result{}, fmt.Errorf("add score: negative amount %d: %w", req.Amount, repo.ErrInvalidInput)
	}

	return s.commit(ctx, "add score", req.Player, req.Key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		if cur := rec.State.Scores[req.ScoreType]; req.Amount > math.MaxInt64-cur {
			return nil, Result{}, fmt.Errorf("score %s at %d cannot take %d more without overflow: %w",
				req.ScoreType, cur, req.Amount, repo.ErrInvalidInput)
		}

		return &repo.Delta{Scores: map[string]int64{req.ScoreType: req.Amount}}, Result{}, nil
	})
}

// FinishRound credits a finished match round: battle pass xp for every round
// reached, the win score and bonus xp on a win, and mission objective
// progress, all in one commit.
func (s *LedgerService) FinishRound(ctx context.Context, req RoundRequest) (Result, error) {
	rules := s.cat.Rounds
	if req.Round < 1 || int64(req.Round) > rules.MaxRound {
		return Result{}, fmt.Errorf("finish round: round %d outside 1..%d: %w", req.Round, rules.MaxRound, repo.ErrInvalidInput)
	}

	return s.commit(ctx, "finish round", req.Player, req.Key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		d := &repo.Delta{
			Objectives: s.progress.RoundObjectives(rec.State, req.Won),
		}

		if req.Won && rules.WinAmount > 0 {
			d.Scores = map[string]int64{rules.WinScore: rules.WinAmount}
		}

		xp := int64(req.Round) * rules.XPPerRound
		if req.Won {
			xp += rules.WinXP
		}
		if xp > 0 && len(s.cat.BattlePass.Tiers) > 0 {
			u, err := s.progress.GrantXP(rec.State, xp)
			if err != nil {
				return nil, Result{}, err
			}
			d.BattlePass = &u
		}

		return d, Result{}, nil
	})
}
