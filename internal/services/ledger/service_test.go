package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/config"
	repo "github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/repos/ledger/memory"
	"github.com/fastprodman/progression/internal/services/ranking"
	"github.com/fastprodman/progression/internal/services/rewards"
)

type fixture struct {
	svc   *LedgerService
	store *memory.Store
	index *ranking.Index
}

func newFixture(t *testing.T, wrap func(repo.Store) repo.Store, cfg config.LedgerConfig) fixture {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	index := ranking.New(logger)

	var s repo.Store = store
	if wrap != nil {
		s = wrap(store)
	}

	svc := New(Deps{
		Store:      s,
		Identities: store,
		Catalog:    cat,
		Rewards:    rewards.NewSeeded(cat, 7),
		Ranker:     index,
		Config:     cfg,
		Logger:     logger,
	})

	return fixture{svc: svc, store: store, index: index}
}

func defaultConfig() config.LedgerConfig {
	return config.LedgerConfig{MaxRetries: 3, CallTimeout: 2 * time.Second}
}

func (f fixture) player(t *testing.T, country string) repo.PlayerID {
	t.Helper()

	rec, err := f.svc.CreatePlayer(t.Context(), repo.NewPlayer{
		DeviceID:    "dev-" + t.Name(),
		DisplayName: "player",
		Country:     country,
	})
	require.NoError(t, err)

	return rec.ID
}

func (f fixture) seed(t *testing.T, id repo.PlayerID, d repo.Delta) {
	t.Helper()

	_, err := f.store.Apply(t.Context(), id, d, "")
	require.NoError(t, err)
}

func (f fixture) state(t *testing.T, id repo.PlayerID) repo.State {
	t.Helper()

	rec, err := f.svc.GetPlayer(t.Context(), id)
	require.NoError(t, err)

	return rec.State
}

func TestUpdateScore_ReflectedInLeaderboard(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "BR")

	_, err := f.svc.AddScore(t.Context(), ScoreRequest{Player: id, ScoreType: "crowns", Amount: 4})
	require.NoError(t, err)

	res, err := f.svc.UpdateScore(t.Context(), id, "crowns", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"crowns": 5}, res.Scores)

	for _, country := range []string{"global", "BR"} {
		list, err := f.index.List("crowns", country, 0, 50)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, id, list[0].Player)
		assert.Equal(t, int64(5), list[0].Value)
	}
}

func TestUpdateScore_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())

	_, err := f.svc.UpdateScore(t.Context(), "missing", "crowns", "")
	require.ErrorIs(t, err, repo.ErrNotFound)

	id := f.player(t, "")
	_, err = f.svc.UpdateScore(t.Context(), id, "elo", "")
	require.ErrorIs(t, err, repo.ErrInvalidInput)

	_, err = f.svc.AddScore(t.Context(), ScoreRequest{Player: id, ScoreType: "crowns", Amount: -1})
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}

func TestAddScore_RejectsOverflow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")

	_, err := f.svc.AddScore(t.Context(), ScoreRequest{Player: id, ScoreType: "crowns", Amount: math.MaxInt64})
	require.NoError(t, err)

	_, err = f.svc.AddScore(t.Context(), ScoreRequest{Player: id, ScoreType: "crowns", Amount: 1})
	require.ErrorIs(t, err, repo.ErrInvalidInput)
	require.ErrorContains(t, err, "overflow")

	assert.Equal(t, int64(math.MaxInt64), f.state(t, id).Scores["crowns"])
}

func TestPurchase_InsufficientFundsLeavesBalance(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")
	f.seed(t, id, repo.Delta{Currencies: map[string]int64{"gems": 100}})

	_, err := f.svc.Purchase(t.Context(), PurchaseRequest{Player: id, Item: "skin_banana", Quantity: 1, Key: "k1"})
	require.ErrorIs(t, err, repo.ErrInsufficientFunds)

	st := f.state(t, id)
	assert.Equal(t, int64(100), st.Currencies["gems"])
	assert.Empty(t, st.Items)

	_, err = f.store.Receipt(t.Context(), id, "k1")
	require.ErrorIs(t, err, repo.ErrReceiptNotFound)
}

func TestPurchase(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")
	f.seed(t, id, repo.Delta{Currencies: map[string]int64{"gems": 200}})

	res, err := f.svc.Purchase(t.Context(), PurchaseRequest{Player: id, Item: "token_pack", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Balances["gems"])
	assert.Equal(t, int64(15), res.Balances["tokens"])
	assert.Equal(t, int64(15), res.Granted.Currencies["tokens"])

	_, err = f.svc.Purchase(t.Context(), PurchaseRequest{Player: id, Item: "nope", Quantity: 1})
	require.ErrorIs(t, err, repo.ErrNotFound)

	_, err = f.svc.Purchase(t.Context(), PurchaseRequest{Player: id, Item: "token_pack", Quantity: 0})
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}

func TestGiveCurrency_IdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")

	req := GiveRequest{Player: id, Currency: "gems", Amount: 25, Key: "give-1"}

	first, err := f.svc.GiveCurrency(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.svc.GiveCurrency(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Balances, second.Balances)
	assert.Equal(t, first.Granted, second.Granted)

	assert.Equal(t, int64(25), f.state(t, id).Currencies["gems"])

	_, err = f.svc.GiveCurrency(t.Context(), GiveRequest{Player: id, Currency: "gold", Amount: 1})
	require.ErrorIs(t, err, repo.ErrNotFound)

	_, err = f.svc.GiveCurrency(t.Context(), GiveRequest{Player: id, Currency: "gems", Amount: 0})
	require.ErrorIs(t, err, repo.ErrInvalidInput)

	_, err = f.svc.GiveCurrency(t.Context(), GiveRequest{Player: id, Currency: "gems", Amount: 100001})
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}

func TestClaimMilestone_SecondClaimReturnsOriginalGrant(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")

	for range 5 {
		_, err := f.svc.FinishRound(t.Context(), RoundRequest{Player: id, Round: 1})
		require.NoError(t, err)
	}

	req := MilestoneClaim{Player: id, Mission: "weekly_rounds", Milestone: "play_5"}

	first, err := f.svc.ClaimMilestone(t.Context(), req)
	require.NoError(t, err)
	assert.False(t, first.AlreadyClaimed)
	assert.Equal(t, int64(100), first.Granted.Currencies["coins"])

	second, err := f.svc.ClaimMilestone(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, second.AlreadyClaimed)
	assert.Equal(t, first.Granted, second.Granted)

	assert.Equal(t, int64(100), f.state(t, id).Currencies["coins"])

	_, err = f.svc.ClaimMilestone(t.Context(), MilestoneClaim{Player: id, Mission: "weekly_rounds", Milestone: "play_15"})
	require.ErrorIs(t, err, repo.ErrNotEligible)

	_, err = f.svc.ClaimMission(t.Context(), MissionClaim{Player: id, Mission: "weekly_rounds"})
	require.ErrorIs(t, err, repo.ErrNotEligible)
}

func TestFinishRound(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "US")

	res, err := f.svc.FinishRound(t.Context(), RoundRequest{Player: id, Round: 3, Won: true})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"crowns": 1}, res.Scores)
	require.NotNil(t, res.BattlePass)
	// 3 rounds * 20 xp + 100 for the win crosses the 100 xp first tier.
	assert.Equal(t, int64(1), res.BattlePass.Tier)
	assert.Equal(t, int64(60), res.BattlePass.XP)
	assert.Equal(t, int64(1), res.Objectives["weekly_wins/win_1"])
	assert.Equal(t, int64(1), res.Objectives["weekly_rounds/play_5"])

	list, err := f.index.List("crowns", "US", 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.FinishRound(t.Context(), RoundRequest{Player: id, Round: 0})
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}

func TestFinishRound_RejectsRoundsPastLast(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")
	before := f.state(t, id)

	for _, round := range []int{6, 1_000_000, math.MaxInt64 / 20} {
		_, err := f.svc.FinishRound(t.Context(), RoundRequest{Player: id, Round: round, Won: true})
		require.ErrorIs(t, err, repo.ErrInvalidInput, "round %d", round)
	}

	after := f.state(t, id)
	assert.Equal(t, before.BattlePass, after.BattlePass)
	assert.Equal(t, before.Scores, after.Scores)

	_, err := f.svc.FinishRound(t.Context(), RoundRequest{Player: id, Round: 5})
	require.NoError(t, err)
}

func TestBattlePass_MultiTierGrantUnlocksRewards(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")
	f.seed(t, id, repo.Delta{BattlePass: &repo.PassUpdate{Season: "s1", Tier: 9, XP: 950}})

	res, err := f.svc.GrantPassXP(t.Context(), id, 80, "xp-1")
	require.NoError(t, err)
	require.NotNil(t, res.BattlePass)
	assert.Equal(t, int64(10), res.BattlePass.Tier)
	assert.Equal(t, int64(30), res.BattlePass.XP)

	claim, err := f.svc.ClaimPassReward(t.Context(), PassClaim{Player: id, Reward: "t10_free"})
	require.NoError(t, err)
	assert.Equal(t, int64(50), claim.Balances["gems"])

	_, err = f.svc.ClaimPassReward(t.Context(), PassClaim{Player: id, Reward: "t10_premium"})
	require.ErrorIs(t, err, repo.ErrNotEligible)

	view, err := f.svc.BattlePass(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), view.Tier)
	assert.Equal(t, view.MaxTier, view.Tier)
}

func TestCompletePass(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")

	_, err := f.svc.CompletePass(t.Context(), id, "")
	require.ErrorIs(t, err, repo.ErrNotEligible)

	f.seed(t, id, repo.Delta{BattlePass: &repo.PassUpdate{Season: "s1", Tier: 10}})

	first, err := f.svc.CompletePass(t.Context(), id, "")
	require.NoError(t, err)
	assert.True(t, first.BattlePass.Completed)

	second, err := f.svc.CompletePass(t.Context(), id, "")
	require.NoError(t, err)
	assert.True(t, second.AlreadyClaimed)

	assert.Equal(t, int64(1), f.state(t, id).Items["crown_pass_s1"])
}

func TestPurchasePremium(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")

	_, err := f.svc.PurchasePremium(t.Context(), id, "")
	require.ErrorIs(t, err, repo.ErrInsufficientFunds)

	f.seed(t, id, repo.Delta{Currencies: map[string]int64{"gems": 1000}})

	res, err := f.svc.PurchasePremium(t.Context(), id, "")
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Balances["gems"])
	assert.True(t, res.BattlePass.Premium)

	again, err := f.svc.PurchasePremium(t.Context(), id, "")
	require.NoError(t, err)
	assert.True(t, again.AlreadyClaimed)
	assert.Equal(t, int64(50), f.state(t, id).Currencies["gems"])
}

func TestDraw(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")
	f.seed(t, id, repo.Delta{Currencies: map[string]int64{"gems": 300}})

	res, err := f.svc.Draw(t.Context(), DrawRequest{Player: id, Kind: catalog.PoolGacha, Pool: "gasha_standard", Count: 10})
	require.NoError(t, err)
	require.Len(t, res.Draws, 10)

	// Threshold 10: ten draws from a zero counter always include the top tier.
	top := 0
	for _, d := range res.Draws {
		if d.Tier == 3 {
			top++
		}
	}
	assert.GreaterOrEqual(t, top, 1)

	st := f.state(t, id)
	assert.Equal(t, int64(0), st.Currencies["gems"])
	assert.Less(t, st.Pity["gasha_standard"], int64(10))

	_, err = f.svc.Draw(t.Context(), DrawRequest{Player: id, Pool: "gasha_standard", Count: 1})
	require.ErrorIs(t, err, repo.ErrInsufficientFunds)

	_, err = f.svc.Draw(t.Context(), DrawRequest{Player: id, Kind: catalog.PoolLuckySpin, Pool: "gasha_standard", Count: 1})
	require.ErrorIs(t, err, repo.ErrNotFound)

	_, err = f.svc.Draw(t.Context(), DrawRequest{Player: id, Pool: "gasha_standard", Count: 0})
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}

func TestLuckySpin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")
	f.seed(t, id, repo.Delta{Currencies: map[string]int64{"tokens": 1}})

	res, err := f.svc.LuckySpin(t.Context(), id, "spin-1")
	require.NoError(t, err)
	require.Len(t, res.Draws, 1)
	assert.Equal(t, int64(0), res.Balances["tokens"])

	replay, err := f.svc.LuckySpin(t.Context(), id, "spin-1")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, res.Draws, replay.Draws)

	_, err = f.svc.LuckySpin(t.Context(), id, "spin-2")
	require.ErrorIs(t, err, repo.ErrInsufficientFunds)
}

func TestConcurrentWrites_NoLostUpdates(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, config.LedgerConfig{MaxRetries: 3, CallTimeout: 5 * time.Second})
	id := f.player(t, "")

	const workers = 40

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := f.svc.GiveCurrency(context.Background(), GiveRequest{
				Player: id, Currency: "coins", Amount: 1, Key: fmt.Sprintf("k-%d", i),
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, repo.ErrConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, succeeded.Load(), f.state(t, id).Currencies["coins"])
}

// conflictingStore fails the first n Apply calls with a conflict.
type conflictingStore struct {
	repo.Store
	n     int64
	calls atomic.Int64
}

func (s *conflictingStore) Apply(ctx context.Context, id repo.PlayerID, d repo.Delta, key string) (repo.Commit, error) {
	if s.calls.Add(1) <= s.n {
		return repo.Commit{}, repo.ErrConflict
	}

	return s.Store.Apply(ctx, id, d, key)
}

func TestCommit_RetriesConflicts(t *testing.T) {
	t.Parallel()

	var cs *conflictingStore
	f := newFixture(t, func(s repo.Store) repo.Store {
		cs = &conflictingStore{Store: s, n: 2}
		return cs
	}, defaultConfig())
	id := f.player(t, "")

	_, err := f.svc.UpdateScore(t.Context(), id, "crowns", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cs.calls.Load())
	assert.Equal(t, int64(1), f.state(t, id).Scores["crowns"])
}

func TestCommit_ConflictBudgetExhausted(t *testing.T) {
	t.Parallel()

	var cs *conflictingStore
	f := newFixture(t, func(s repo.Store) repo.Store {
		cs = &conflictingStore{Store: s, n: 100}
		return cs
	}, config.LedgerConfig{MaxRetries: 2, CallTimeout: time.Second})
	id := f.player(t, "")

	_, err := f.svc.UpdateScore(t.Context(), id, "crowns", "")
	require.ErrorIs(t, err, repo.ErrConflict)
	assert.Equal(t, int64(3), cs.calls.Load())
	assert.Equal(t, int64(0), f.state(t, id).Scores["crowns"])
}

// slowStore blocks Get until the caller gives up.
type slowStore struct {
	repo.Store
}

func (s slowStore) Get(ctx context.Context, _ repo.PlayerID) (repo.PlayerRecord, error) {
	<-ctx.Done()
	return repo.PlayerRecord{}, ctx.Err()
}

func TestCommit_TimeoutIsUnavailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(s repo.Store) repo.Store {
		return slowStore{Store: s}
	}, config.LedgerConfig{MaxRetries: 1, CallTimeout: 20 * time.Millisecond})
	id := f.player(t, "")

	_, err := f.svc.UpdateScore(t.Context(), id, "crowns", "")
	require.ErrorIs(t, err, repo.ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	rec, err := f.store.Get(t.Context(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.State.Scores["crowns"])
}

func TestCommit_KeyTooLong(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil, defaultConfig())
	id := f.player(t, "")

	_, err := f.svc.UpdateScore(t.Context(), id, "crowns", strings.Repeat("k", maxKeyLen+1))
	require.ErrorIs(t, err, repo.ErrInvalidInput)
}
