// Package rewards resolves draws against weighted reward pools, applying the
// pity rule that guarantees a highest-tier hit within a bounded number of
// draws.
package rewards

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

// MaxDraws bounds a single multi-draw request.
const MaxDraws = 100

type Engine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	tables map[string]*table
}

// Result is the outcome of one draw.
type Result struct {
	PoolID string        `json:"poolId"`
	Entry  string        `json:"entry"`
	Tier   int           `json:"tier"`
	Forced bool          `json:"forced,omitempty"`
	Grant  catalog.Grant `json:"grant"`
}

// New returns an engine backed by a cryptographically seeded generator.
func New(cat *catalog.Catalog) (*Engine, error) {
	rng, err := newCryptoRand()
	if err != nil {
		return nil, err
	}

	return newEngine(cat, rng), nil
}

// NewSeeded returns a reproducible engine. It must only be used in test mode.
func NewSeeded(cat *catalog.Catalog, seed uint64) *Engine {
	return newEngine(cat, newSeededRand(seed))
}

func newEngine(cat *catalog.Catalog, rng *rand.Rand) *Engine {
	e := &Engine{
		rng:    rng,
		tables: make(map[string]*table, len(cat.RewardPools)),
	}
	for _, p := range cat.RewardPools {
		e.tables[p.ID] = newTable(p)
	}

	return e
}

// Draw resolves one draw from poolID given the player's pity counter and
// returns the result with the updated counter.
func (e *Engine) Draw(poolID string, pity int64) (Result, int64, error) {
	res, next, err := e.DrawN(poolID, pity, 1)
	if err != nil {
		return Result{}, 0, err
	}

	return res[0], next, nil
}

// DrawN performs n draws in sequence, each one seeing the pity counter left
// by the previous draw. It returns the results and the final counter.
func (e *Engine) DrawN(poolID string, pity int64, n int) ([]Result, int64, error) {
	t, ok := e.tables[poolID]
	if !ok {
		return nil, 0, fmt.Errorf("pool %q: %w", poolID, ledger.ErrNotFound)
	}
	if n < 1 || n > MaxDraws {
		return nil, 0, fmt.Errorf("draw count %d outside 1..%d: %w", n, MaxDraws, ledger.ErrInvalidInput)
	}
	if pity < 0 {
		return nil, 0, fmt.Errorf("negative pity %d: %w", pity, ledger.ErrInvalidInput)
	}

	out := make([]Result, 0, n)

	e.mu.Lock()
	defer e.mu.Unlock()

	for range n {
		var r Result
		r, pity = e.drawOne(t, pity)
		out = append(out, r)
	}

	return out, pity, nil
}

func (e *Engine) drawOne(t *table, pity int64) (Result, int64) {
	threshold := t.pool.PityThreshold
	forced := threshold > 0 && pity+1 >= threshold

	var idx int
	if forced {
		idx = t.pickTop(e.rng.Int64N(t.topTotal))
	} else {
		idx = t.pick(e.rng.Int64N(t.total))
	}

	entry := t.pool.Entries[idx]

	next := pity + 1
	if entry.Tier == t.topTier {
		next = 0
	}

	return Result{
		PoolID: t.pool.ID,
		Entry:  entry.ID,
		Tier:   entry.Tier,
		Forced: forced,
		Grant:  entry.Grant,
	}, next
}

// Total sums the grants of a batch of results.
func Total(results []Result) catalog.Grant {
	var g catalog.Grant
	for _, r := range results {
		g.Add(r.Grant)
	}

	return g
}
