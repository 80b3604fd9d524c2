package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/services/ranking"
)

// Rebuilder re-reads committed scores into the leaderboard.
type Rebuilder interface {
	Rebuild(ctx context.Context, src ranking.Scanner) (int, error)
}

// Purger drops idempotency receipts older than a cutoff.
type Purger interface {
	PurgeReceipts(ctx context.Context, before time.Time) (int64, error)
}

// ReconcileRanking re-applies every committed score to the index. Updates
// are version guarded, so a reconcile racing live writes never regresses a
// board.
func (s *Scheduler) ReconcileRanking(index Rebuilder, src ranking.Scanner, every time.Duration) Job {
	return Job{
		Name:  "ranking-reconcile",
		Every: every,
		Run: func(ctx context.Context) error {
			n, err := index.Rebuild(ctx, src)
			if err != nil {
				return fmt.Errorf("reconcile ranking: %w", err)
			}

			s.logger.Info("ranking reconciled", "players", n)
			return nil
		},
	}
}

// PurgeReceipts removes receipts older than ttl. Replays of a key older than
// ttl are then treated as new operations.
func (s *Scheduler) PurgeReceipts(store Purger, ttl, every time.Duration, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}

	return Job{
		Name:     "receipts-purge",
		Every:    every,
		Timeout:  time.Minute,
		RunFirst: true,
		Run: func(ctx context.Context) error {
			n, err := store.PurgeReceipts(ctx, now().Add(-ttl))
			if err != nil {
				return fmt.Errorf("purge receipts: %w", err)
			}

			if n > 0 {
				s.logger.Info("receipts purged", "count", n)
			}
			return nil
		},
	}
}

var (
	_ Purger    = ledger.Store(nil)
	_ Rebuilder = (*ranking.Index)(nil)
)
