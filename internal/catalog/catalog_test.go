package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	c, err := Default()
	require.NoError(t, err)

	assert.True(t, c.IsCurrency("gems"))
	assert.False(t, c.IsCurrency("gold"))
	assert.True(t, c.IsScoreType("crowns"))

	item, ok := c.StoreItem("skin_banana")
	require.True(t, ok)
	assert.Equal(t, int64(150), item.Price.Amount)

	pool, ok := c.Pool("gasha_standard")
	require.True(t, ok)
	assert.Equal(t, 3, pool.HighestTier())
	assert.Equal(t, int64(10), pool.PityThreshold)

	m, ok := c.Mission("weekly_rounds")
	require.True(t, ok)
	ms, ok := m.Milestone("play_15")
	require.True(t, ok)
	assert.Equal(t, "play_5", ms.Requires)

	assert.Equal(t, int64(10), c.BattlePass.MaxTier())
	r, ok := c.BattlePass.Reward("t10_premium")
	require.True(t, ok)
	assert.True(t, r.Premium)
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	t.Parallel()

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "spin_daily", c.LuckySpinPool)
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join("testdata", "broken.yaml"))
	require.ErrorIs(t, err, ErrInvalidCatalog)

	for _, want := range []string{
		`store item skin: unknown price currency "gold"`,
		"weight must be > 0",
		`luckySpinPool "p" has kind "gacha"`,
		`requires "a" which is not an earlier milestone`,
		"tiers must be consecutive from 1",
		"rounds: maxRound must be > 0",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestParse_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("currencies: [gems]\nscoreTypes: [crowns]\ncurrencys: [x]\n"))
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestGrant_Add(t *testing.T) {
	t.Parallel()

	var g Grant
	assert.True(t, g.IsEmpty())

	g.Add(Grant{Currencies: map[string]int64{"gems": 10}})
	g.Add(Grant{Currencies: map[string]int64{"gems": 5}, Items: map[string]int64{"skin": 1}})

	assert.Equal(t, map[string]int64{"gems": 15}, g.Currencies)
	assert.Equal(t, map[string]int64{"skin": 1}, g.Items)
}

func TestGrantCreditAndPriceDebit(t *testing.T) {
	t.Parallel()

	var d ledger.Delta

	Price{Currency: "gems", Amount: 30}.Debit(&d, 3)
	Grant{Currencies: map[string]int64{"gems": 10, "coins": 5}, Items: map[string]int64{"skin": 1}}.Credit(&d)

	assert.Equal(t, map[string]int64{"gems": -80, "coins": 5}, d.Currencies)
	assert.Equal(t, map[string]int64{"skin": 1}, d.Items)

	var free ledger.Delta
	Price{Currency: "gems"}.Debit(&free, 5)
	assert.Nil(t, free.Currencies)
}
