// Package catalog holds the static game data the ledger works against:
// currencies, score types, store items, reward pools, missions and the
// battle pass track. It is read once at startup and never mutated.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

//go:embed default.yaml
var defaultCatalog []byte

const (
	PoolGacha     = "gacha"
	PoolLuckySpin = "luckyspin"
)

type Catalog struct {
	Currencies      []string    `yaml:"currencies"`
	ScoreTypes      []string    `yaml:"scoreTypes"`
	GiveCurrencyMax int64       `yaml:"giveCurrencyMax"`
	StoreItems      []StoreItem `yaml:"storeItems"`
	RewardPools     []Pool      `yaml:"rewardPools"`
	LuckySpinPool   string      `yaml:"luckySpinPool"`
	Missions        []Mission   `yaml:"missions"`
	BattlePass      BattlePass  `yaml:"battlePass"`
	Rounds          Rounds      `yaml:"rounds"`

	currencies map[string]struct{}
	scoreTypes map[string]struct{}
	items      map[string]StoreItem
	pools      map[string]Pool
	missions   map[string]Mission
}

// Price is an amount of a single currency.
type Price struct {
	Currency string `yaml:"currency"`
	Amount   int64  `yaml:"amount"`
}

// Grant is what a player receives from a purchase, draw or claim.
type Grant struct {
	Currencies map[string]int64 `yaml:"currencies,omitempty" json:"currencies,omitempty"`
	Items      map[string]int64 `yaml:"items,omitempty" json:"items,omitempty"`
}

type StoreItem struct {
	ID    string `yaml:"id"`
	Price Price  `yaml:"price"`
	Grant Grant  `yaml:"grant"`
}

type Pool struct {
	ID            string      `yaml:"id"`
	Kind          string      `yaml:"kind"`
	Cost          Price       `yaml:"cost"`
	PityThreshold int64       `yaml:"pityThreshold"`
	Entries       []PoolEntry `yaml:"entries"`
}

type PoolEntry struct {
	ID     string `yaml:"id"`
	Weight int64  `yaml:"weight"`
	Tier   int    `yaml:"tier"`
	Grant  Grant  `yaml:"grant"`
}

type Mission struct {
	ID         string      `yaml:"id"`
	Reward     Grant       `yaml:"reward"`
	Milestones []Milestone `yaml:"milestones"`
}

// Milestone is locked until the milestone named by Requires has been claimed.
type Milestone struct {
	ID       string `yaml:"id"`
	Target   int64  `yaml:"target"`
	Requires string `yaml:"requires,omitempty"`
	Reward   Grant  `yaml:"reward"`
}

type BattlePass struct {
	Season           string       `yaml:"season"`
	PremiumPrice     Price        `yaml:"premiumPrice"`
	Tiers            []PassTier   `yaml:"tiers"`
	Rewards          []PassReward `yaml:"rewards"`
	CompletionReward Grant        `yaml:"completionReward"`
}

// PassTier is the xp needed to advance from Tier-1 to Tier.
type PassTier struct {
	Tier int64 `yaml:"tier"`
	XP   int64 `yaml:"xp"`
}

type PassReward struct {
	ID      string `yaml:"id"`
	Tier    int64  `yaml:"tier"`
	Premium bool   `yaml:"premium"`
	Grant   Grant  `yaml:"grant"`
}

// Rounds describes what finishing a match round is worth.
type Rounds struct {
	// MaxRound is the last round number a match can report.
	MaxRound   int64            `yaml:"maxRound"`
	XPPerRound int64            `yaml:"xpPerRound"`
	WinXP      int64            `yaml:"winXP"`
	WinScore   string           `yaml:"winScore"`
	WinAmount  int64            `yaml:"winAmount"`
	Objectives []RoundObjective `yaml:"objectives"`
}

type RoundObjective struct {
	Mission   string `yaml:"mission"`
	Milestone string `yaml:"milestone"`
	Amount    int64  `yaml:"amount"`
	OnWin     bool   `yaml:"onWin"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	return c, nil
}

// Parse decodes and validates a YAML catalog. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w: %w", ErrInvalidCatalog, err)
	}

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Catalog) IsCurrency(name string) bool {
	_, ok := c.currencies[name]
	return ok
}

func (c *Catalog) IsScoreType(name string) bool {
	_, ok := c.scoreTypes[name]
	return ok
}

func (c *Catalog) StoreItem(id string) (StoreItem, bool) {
	it, ok := c.items[id]
	return it, ok
}

func (c *Catalog) Pool(id string) (Pool, bool) {
	p, ok := c.pools[id]
	return p, ok
}

func (c *Catalog) Mission(id string) (Mission, bool) {
	m, ok := c.missions[id]
	return m, ok
}

// MaxTier is the last tier of the battle pass track, 0 when it has none.
func (bp BattlePass) MaxTier() int64 {
	if len(bp.Tiers) == 0 {
		return 0
	}

	return bp.Tiers[len(bp.Tiers)-1].Tier
}

// Reward looks up a battle pass reward by id.
func (bp BattlePass) Reward(id string) (PassReward, bool) {
	for _, r := range bp.Rewards {
		if r.ID == id {
			return r, true
		}
	}

	return PassReward{}, false
}

// Milestone looks up a milestone by id.
func (m Mission) Milestone(id string) (Milestone, bool) {
	for _, ms := range m.Milestones {
		if ms.ID == id {
			return ms, true
		}
	}

	return Milestone{}, false
}

// HighestTier is the largest tier value among the pool entries.
func (p Pool) HighestTier() int {
	top := 0
	for i, e := range p.Entries {
		if i == 0 || e.Tier > top {
			top = e.Tier
		}
	}

	return top
}

// Add merges g into the receiver, allocating maps as needed.
func (g *Grant) Add(other Grant) {
	for k, v := range other.Currencies {
		if g.Currencies == nil {
			g.Currencies = map[string]int64{}
		}
		g.Currencies[k] += v
	}
	for k, v := range other.Items {
		if g.Items == nil {
			g.Items = map[string]int64{}
		}
		g.Items[k] += v
	}
}

func (g Grant) IsEmpty() bool {
	return len(g.Currencies) == 0 && len(g.Items) == 0
}
