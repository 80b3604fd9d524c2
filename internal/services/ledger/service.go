// Package ledger is the transaction coordinator: the only component that
// commits multi-field changes to a player's record. Every write is planned
// against a fresh read, pre-checked, committed with an expected version and
// retried on conflict, then reported to the ranking index.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/config"
	repo "github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/services/progress"
	"github.com/fastprodman/progression/internal/services/ranking"
	"github.com/fastprodman/progression/internal/services/rewards"
)

const maxKeyLen = 128

// Ranker receives committed score values and profile changes.
type Ranker interface {
	Apply(u ranking.Update)
	SetProfile(id repo.PlayerID, displayName, country string, version int64)
}

type Deps struct {
	Store      repo.Store
	Identities repo.IdentityResolver
	Catalog    *catalog.Catalog
	Rewards    *rewards.Engine
	Ranker     Ranker
	Config     config.LedgerConfig
	Logger     *slog.Logger
}

type LedgerService struct {
	store    repo.Store
	ids      repo.IdentityResolver
	cat      *catalog.Catalog
	rewards  *rewards.Engine
	progress *progress.Machine
	ranker   Ranker
	cfg      config.LedgerConfig
	logger   *slog.Logger
}

func New(d Deps) *LedgerService {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LedgerService{
		store:    d.Store,
		ids:      d.Identities,
		cat:      d.Catalog,
		rewards:  d.Rewards,
		progress: progress.New(d.Catalog),
		ranker:   d.Ranker,
		cfg:      d.Config,
		logger:   logger,
	}
}

// Catalog exposes the static game data the service was built with.
func (s *LedgerService) Catalog() *catalog.Catalog {
	return s.cat
}

// planFunc turns the current record into a delta and the result to report.
// A nil delta means nothing has to be written.
type planFunc func(rec repo.PlayerRecord) (*repo.Delta, Result, error)

// commit runs the read, plan, apply cycle for one write. Conflicts caused by a
// concurrent commit on the same player are retried with a fresh read, up to
// the configured bound.
func (s *LedgerService) commit(ctx context.Context, op string, id repo.PlayerID, key string, plan planFunc) (Result, error) {
	if len(key) > maxKeyLen {
		return Result{}, fmt.Errorf("%s: idempotency key longer than %d: %w", op, maxKeyLen, repo.ErrInvalidInput)
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	if key != "" {
		res, ok, err := s.replay(ctx, id, key)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return res, nil
		}
	}

	attempts := max(s.cfg.MaxRetries, 0) + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, unavailable(err))
		}

		delta, res, err := plan(rec)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		if delta == nil {
			res.settle(rec.State, repo.Delta{})
			return res, nil
		}

		// Pre-check against the state we planned on. The store repeats
		// the same check atomically at commit.
		next, err := repo.ApplyDelta(rec.State, *delta)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		res.settle(next, *delta)

		delta.ExpectedVersion = rec.Version
		delta.Outcome, err = json.Marshal(res)
		if err != nil {
			return Result{}, fmt.Errorf("%s: encode outcome: %w", op, err)
		}

		c, err := s.store.Apply(ctx, id, *delta, key)
		if errors.Is(err, repo.ErrConflict) {
			s.logger.Warn("ledger conflict, retrying",
				"op", op, "player_id", id, "attempt", attempt, "error", err)
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, unavailable(err))
		}

		if c.Replayed {
			res, err = decodeOutcome(c.Outcome)
			if err != nil {
				return Result{}, fmt.Errorf("%s: %w", op, err)
			}
			return res, nil
		}

		s.notify(c.Record, *delta)
		s.logger.Debug("ledger commit",
			"op", op, "player_id", id, "key", key, "version", c.Record.Version)

		return res, nil
	}

	return Result{}, fmt.Errorf("%s: gave up after %d attempts: %w", op, attempts, repo.ErrConflict)
}

func (s *LedgerService) replay(ctx context.Context, id repo.PlayerID, key string) (Result, bool, error) {
	r, err := s.store.Receipt(ctx, id, key)
	if errors.Is(err, repo.ErrReceiptNotFound) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, unavailable(err)
	}

	res, err := decodeOutcome(r.Outcome)
	if err != nil {
		return Result{}, false, err
	}

	return res, true, nil
}

// notify hands every score touched by a committed delta to the ranker.
func (s *LedgerService) notify(rec repo.PlayerRecord, d repo.Delta) {
	if s.ranker == nil {
		return
	}

	for _, typ := range d.ScoreTypes() {
		s.ranker.Apply(ranking.Update{
			Player:    rec.ID,
			ScoreType: typ,
			Value:     rec.State.Scores[typ],
			Version:   rec.Version,
		})
	}
}

func (s *LedgerService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

// unavailable marks timeouts and cancellations as retryable failures.
func unavailable(err error) error {
	if errors.Is(err, repo.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", repo.ErrUnavailable, err)
	}

	return err
}

func decodeOutcome(raw json.RawMessage) (Result, error) {
	var res Result
	if len(raw) > 0 {
		err := json.Unmarshal(raw, &res)
		if err != nil {
			return Result{}, fmt.Errorf("decode stored outcome: %w", err)
		}
	}
	res.Replayed = true

	return res, nil
}

// Result is what every write reports back. It is stored with the
// idempotency key and returned verbatim on replay.
type Result struct {
	Granted        catalog.Grant    `json:"granted"`
	Draws          []rewards.Result `json:"draws,omitempty"`
	Balances       map[string]int64 `json:"balances"`
	Scores         map[string]int64 `json:"scores,omitempty"`
	Objectives     map[string]int64 `json:"objectives,omitempty"`
	BattlePass     *PassState       `json:"battlePass,omitempty"`
	AlreadyClaimed bool             `json:"alreadyClaimed,omitempty"`
	Replayed       bool             `json:"replayed,omitempty"`
}

type PassState struct {
	Season    string `json:"season"`
	Tier      int64  `json:"tier"`
	XP        int64  `json:"xp"`
	Premium   bool   `json:"premium"`
	Completed bool   `json:"completed"`
}

// settle fills the post-commit view from the state a delta produces.
func (r *Result) settle(st repo.State, d repo.Delta) {
	r.Balances = maps.Clone(st.Currencies)

	if len(d.Scores) > 0 {
		r.Scores = make(map[string]int64, len(d.Scores))
		for typ := range d.Scores {
			r.Scores[typ] = st.Scores[typ]
		}
	}

	if len(d.Objectives) > 0 {
		r.Objectives = make(map[string]int64, len(d.Objectives))
		for _, o := range d.Objectives {
			r.Objectives[o.Mission+"/"+o.Milestone] = st.Mission(o.Mission).Objectives[o.Milestone]
		}
	}

	if d.BattlePass != nil {
		bp := st.BattlePass
		r.BattlePass = &PassState{
			Season:    bp.Season,
			Tier:      bp.Tier,
			XP:        bp.XP,
			Premium:   bp.Premium,
			Completed: bp.Completed,
		}
	}
}
