package rewards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

const testCatalog = `
currencies: [gems]
scoreTypes: [crowns]
rewardPools:
  - id: rare
    kind: gacha
    cost: {currency: gems, amount: 10}
    pityThreshold: 10
    entries:
      - {id: common, weight: 9998, tier: 0, grant: {currencies: {gems: 1}}}
      - {id: gold_a, weight: 1, tier: 5, grant: {items: {gold_a: 1}}}
      - {id: gold_b, weight: 1, tier: 5, grant: {items: {gold_b: 1}}}
  - id: flat
    kind: luckyspin
    cost: {currency: gems, amount: 1}
    entries:
      - {id: a, weight: 1, tier: 0}
      - {id: b, weight: 1, tier: 1}
`

func testEngine(t *testing.T, seed uint64) *Engine {
	t.Helper()

	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	return NewSeeded(cat, seed)
}

func TestTable_PickBoundaries(t *testing.T) {
	t.Parallel()

	tbl := newTable(catalog.Pool{Entries: []catalog.PoolEntry{
		{ID: "a", Weight: 1},
		{ID: "b", Weight: 2},
		{ID: "c", Weight: 3},
	}})
	require.Equal(t, int64(6), tbl.total)

	tests := []struct {
		r    int64
		want int
	}{
		{0, 0},
		{1, 1}, // exactly on a's upper bound belongs to b
		{2, 1},
		{3, 2},
		{5, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tbl.pick(tt.r), "r=%d", tt.r)
	}
}

func TestTable_PickTopSkipsLowerTiers(t *testing.T) {
	t.Parallel()

	tbl := newTable(catalog.Pool{Entries: []catalog.PoolEntry{
		{ID: "low", Weight: 100, Tier: 0},
		{ID: "top1", Weight: 1, Tier: 2},
		{ID: "mid", Weight: 50, Tier: 1},
		{ID: "top2", Weight: 3, Tier: 2},
	}})

	assert.Equal(t, int64(4), tbl.topTotal)
	assert.Equal(t, 1, tbl.pickTop(0))
	assert.Equal(t, 3, tbl.pickTop(1))
	assert.Equal(t, 3, tbl.pickTop(3))
}

func TestDrawN_PityWindow(t *testing.T) {
	t.Parallel()

	for _, seed := range []uint64{1, 2, 3, 42} {
		e := testEngine(t, seed)

		var (
			pity  int64
			tiers []int
		)
		for range 50 {
			res, next, err := e.DrawN("rare", pity, 20)
			require.NoError(t, err)
			pity = next

			for _, r := range res {
				tiers = append(tiers, r.Tier)
			}
		}

		const threshold = 10
		for start := 0; start+threshold <= len(tiers); start++ {
			assert.Contains(t, tiers[start:start+threshold], 5, "seed %d window at %d", seed, start)
		}
	}
}

func TestDraw_ForcedWhenThresholdReached(t *testing.T) {
	t.Parallel()

	e := testEngine(t, 7)

	res, next, err := e.Draw("rare", 9)
	require.NoError(t, err)

	assert.True(t, res.Forced)
	assert.Equal(t, 5, res.Tier)
	assert.Contains(t, []string{"gold_a", "gold_b"}, res.Entry)
	assert.Equal(t, int64(0), next)
}

func TestDraw_MissIncrementsPity(t *testing.T) {
	t.Parallel()

	e := testEngine(t, 7)

	res, next, err := e.Draw("rare", 3)
	require.NoError(t, err)
	require.False(t, res.Forced)

	if res.Tier == 5 {
		assert.Equal(t, int64(0), next)
	} else {
		assert.Equal(t, int64(4), next)
	}
}

func TestDraw_NoPityWithoutThreshold(t *testing.T) {
	t.Parallel()

	e := testEngine(t, 1)

	for range 100 {
		res, _, err := e.Draw("flat", 1000)
		require.NoError(t, err)
		assert.False(t, res.Forced)
	}
}

func TestNewSeeded_Reproducible(t *testing.T) {
	t.Parallel()

	a, _, err := testEngine(t, 99).DrawN("flat", 0, 32)
	require.NoError(t, err)
	b, _, err := testEngine(t, 99).DrawN("flat", 0, 32)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDrawN_Errors(t *testing.T) {
	t.Parallel()

	e := testEngine(t, 1)

	_, _, err := e.DrawN("nope", 0, 1)
	require.ErrorIs(t, err, ledger.ErrNotFound)

	_, _, err = e.DrawN("rare", 0, 0)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, _, err = e.DrawN("rare", 0, MaxDraws+1)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, _, err = e.DrawN("rare", -1, 1)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestNew_CryptoSeeded(t *testing.T) {
	t.Parallel()

	cat, err := catalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	e, err := New(cat)
	require.NoError(t, err)

	res, _, err := e.DrawN("rare", 0, 5)
	require.NoError(t, err)
	assert.Len(t, res, 5)
}

func TestTotal(t *testing.T) {
	t.Parallel()

	g := Total([]Result{
		{Grant: catalog.Grant{Currencies: map[string]int64{"gems": 1}}},
		{Grant: catalog.Grant{Items: map[string]int64{"gold_a": 1}}},
		{Grant: catalog.Grant{Currencies: map[string]int64{"gems": 1}}},
	})

	assert.Equal(t, map[string]int64{"gems": 2}, g.Currencies)
	assert.Equal(t, map[string]int64{"gold_a": 1}, g.Items)
}
