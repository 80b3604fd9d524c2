package ledger

import (
	"context"
	"fmt"

	"github.com/fastprodman/progression/internal/catalog"
	repo "github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/services/rewards"
)

const maxQuantity = 100

type PurchaseRequest struct {
	Player   repo.PlayerID
	Item     string
	Quantity int64
	Key      string
}

type GiveRequest struct {
	Player   repo.PlayerID
	Currency string
	Amount   int64
	Key      string
}

type DrawRequest struct {
	Player repo.PlayerID
	// Kind restricts the pool kind; empty accepts any.
	Kind  string
	Pool  string
	Count int
	Key   string
}

// Purchase debits the item price and grants the item, quantity times.
func (s *LedgerService) Purchase(ctx context.Context, req PurchaseRequest) (Result, error) {
	item, ok := s.cat.StoreItem(req.Item)
	if !ok {
		return Result{}, fmt.Errorf("purchase: item %q: %w", req.Item, repo.ErrNotFound)
	}
	if req.Quantity < 1 || req.Quantity > maxQuantity {
		return Result{}, fmt.Errorf("purchase: quantity %d outside 1..%d: %w", req.Quantity, maxQuantity, repo.ErrInvalidInput)
	}

	return s.commit(ctx, "purchase", req.Player, req.Key, func(repo.PlayerRecord) (*repo.Delta, Result, error) {
		var (
			d   repo.Delta
			res Result
		)

		item.Price.Debit(&d, req.Quantity)
		for range req.Quantity {
			res.Granted.Add(item.Grant)
		}
		res.Granted.Credit(&d)

		return &d, res, nil
	})
}

// GiveCurrency credits a currency directly.
func (s *LedgerService) GiveCurrency(ctx context.Context, req GiveRequest) (Result, error) {
	if !s.cat.IsCurrency(req.Currency) {
		return Result{}, fmt.Errorf("give currency: %q: %w", req.Currency, repo.ErrNotFound)
	}
	if req.Amount <= 0 {
		return Result{}, fmt.Errorf("give currency: amount %d: %w", req.Amount, repo.ErrInvalidInput)
	}
	if limit := s.cat.GiveCurrencyMax; limit > 0 && req.Amount > limit {
		return Result{}, fmt.Errorf("give currency: amount %d above %d: %w", req.Amount, limit, repo.ErrInvalidInput)
	}

	return s.commit(ctx, "give currency", req.Player, req.Key, func(repo.PlayerRecord) (*repo.Delta, Result, error) {
		res := Result{Granted: catalog.Grant{Currencies: map[string]int64{req.Currency: req.Amount}}}

		var d repo.Delta
		res.Granted.Credit(&d)

		return &d, res, nil
	})
}

// Draw pays for and resolves Count draws from a pool. The debit, every grant
// and the final pity counter commit together.
func (s *LedgerService) Draw(ctx context.Context, req DrawRequest) (Result, error) {
	pool, ok := s.cat.Pool(req.Pool)
	if !ok || (req.Kind != "" && pool.Kind != req.Kind) {
		return Result{}, fmt.Errorf("draw: pool %q: %w", req.Pool, repo.ErrNotFound)
	}
	if req.Count < 1 || req.Count > rewards.MaxDraws {
		return Result{}, fmt.Errorf("draw: count %d outside 1..%d: %w", req.Count, rewards.MaxDraws, repo.ErrInvalidInput)
	}

	return s.commit(ctx, "draw", req.Player, req.Key, func(rec repo.PlayerRecord) (*repo.Delta, Result, error) {
		// Check funds before rolling so a broke player does not move the RNG.
		cost := pool.Cost.Amount * int64(req.Count)
		if rec.State.Currencies[pool.Cost.Currency] < cost {
			return nil, Result{}, fmt.Errorf("%s balance %d, cost %d: %w",
				pool.Cost.Currency, rec.State.Currencies[pool.Cost.Currency], cost, repo.ErrInsufficientFunds)
		}

		draws, pity, err := s.rewards.DrawN(pool.ID, rec.State.Pity[pool.ID], req.Count)
		if err != nil {
			return nil, Result{}, err
		}

		res := Result{Granted: rewards.Total(draws), Draws: draws}

		var d repo.Delta
		pool.Cost.Debit(&d, int64(req.Count))
		res.Granted.Credit(&d)
		d.Pity = map[string]int64{pool.ID: pity}

		return &d, res, nil
	})
}

// LuckySpin is a single draw from the configured lucky spin pool.
func (s *LedgerService) LuckySpin(ctx context.Context, id repo.PlayerID, key string) (Result, error) {
	if s.cat.LuckySpinPool == "" {
		return Result{}, fmt.Errorf("lucky spin: no pool configured: %w", repo.ErrNotFound)
	}

	return s.Draw(ctx, DrawRequest{
		Player: id,
		Kind:   catalog.PoolLuckySpin,
		Pool:   s.cat.LuckySpinPool,
		Count:  1,
		Key:    key,
	})
}
