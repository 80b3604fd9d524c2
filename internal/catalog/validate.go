package catalog

import (
	"errors"
	"fmt"
)

// Validate checks cross references and value ranges and builds the lookup
// indexes. Every problem found is reported, joined into one error.
func (c *Catalog) Validate() error {
	v := &validator{}

	c.currencies = v.names("currency", c.Currencies)
	c.scoreTypes = v.names("score type", c.ScoreTypes)

	if c.GiveCurrencyMax < 0 {
		v.fail("giveCurrencyMax must be >= 0, got %d", c.GiveCurrencyMax)
	}

	c.items = make(map[string]StoreItem, len(c.StoreItems))
	for _, it := range c.StoreItems {
		where := "store item " + it.ID
		if it.ID == "" {
			v.fail("store item with empty id")
		}
		if _, dup := c.items[it.ID]; dup {
			v.fail("%s: duplicate id", where)
		}
		c.items[it.ID] = it
		v.price(c, where, it.Price)
		v.grant(c, where, it.Grant)
	}

	c.pools = make(map[string]Pool, len(c.RewardPools))
	for _, p := range c.RewardPools {
		if _, dup := c.pools[p.ID]; dup {
			v.fail("pool %s: duplicate id", p.ID)
		}
		c.pools[p.ID] = p
		v.pool(c, p)
	}

	if c.LuckySpinPool != "" {
		p, ok := c.pools[c.LuckySpinPool]
		switch {
		case !ok:
			v.fail("luckySpinPool %q is not a reward pool", c.LuckySpinPool)
		case p.Kind != PoolLuckySpin:
			v.fail("luckySpinPool %q has kind %q", c.LuckySpinPool, p.Kind)
		}
	}

	c.missions = make(map[string]Mission, len(c.Missions))
	for _, m := range c.Missions {
		if _, dup := c.missions[m.ID]; dup {
			v.fail("mission %s: duplicate id", m.ID)
		}
		c.missions[m.ID] = m
		v.mission(c, m)
	}

	v.battlePass(c, c.BattlePass)
	v.rounds(c, c.Rounds)

	return v.err()
}

type validator struct {
	errs []error
}

func (v *validator) fail(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(v.errs...))
}

func (v *validator) names(kind string, list []string) map[string]struct{} {
	if len(list) == 0 {
		v.fail("at least one %s is required", kind)
	}

	out := make(map[string]struct{}, len(list))
	for _, n := range list {
		if n == "" {
			v.fail("empty %s name", kind)
			continue
		}
		if _, dup := out[n]; dup {
			v.fail("duplicate %s %q", kind, n)
		}
		out[n] = struct{}{}
	}

	return out
}

func (v *validator) price(c *Catalog, where string, p Price) {
	if _, ok := c.currencies[p.Currency]; !ok {
		v.fail("%s: unknown price currency %q", where, p.Currency)
	}
	if p.Amount < 0 {
		v.fail("%s: negative price %d", where, p.Amount)
	}
}

func (v *validator) grant(c *Catalog, where string, g Grant) {
	for cur, n := range g.Currencies {
		if _, ok := c.currencies[cur]; !ok {
			v.fail("%s: grants unknown currency %q", where, cur)
		}
		if n <= 0 {
			v.fail("%s: grant of %s must be > 0, got %d", where, cur, n)
		}
	}
	for item, n := range g.Items {
		if item == "" {
			v.fail("%s: grants item with empty id", where)
		}
		if n <= 0 {
			v.fail("%s: grant of item %s must be > 0, got %d", where, item, n)
		}
	}
}

func (v *validator) pool(c *Catalog, p Pool) {
	where := "pool " + p.ID
	if p.ID == "" {
		v.fail("pool with empty id")
	}
	if p.Kind != PoolGacha && p.Kind != PoolLuckySpin {
		v.fail("%s: unknown kind %q", where, p.Kind)
	}
	v.price(c, where, p.Cost)
	if p.PityThreshold < 0 {
		v.fail("%s: negative pityThreshold", where)
	}
	if len(p.Entries) == 0 {
		v.fail("%s: no entries", where)
	}

	seen := make(map[string]struct{}, len(p.Entries))
	for _, e := range p.Entries {
		ew := where + " entry " + e.ID
		if _, dup := seen[e.ID]; dup || e.ID == "" {
			v.fail("%s: empty or duplicate id", ew)
		}
		seen[e.ID] = struct{}{}
		if e.Weight <= 0 {
			v.fail("%s: weight must be > 0, got %d", ew, e.Weight)
		}
		if e.Tier < 0 {
			v.fail("%s: negative tier", ew)
		}
		v.grant(c, ew, e.Grant)
	}
}

func (v *validator) mission(c *Catalog, m Mission) {
	where := "mission " + m.ID
	if m.ID == "" {
		v.fail("mission with empty id")
	}
	if len(m.Milestones) == 0 {
		v.fail("%s: no milestones", where)
	}
	v.grant(c, where, m.Reward)

	// requires must point at an earlier milestone, which rules out cycles.
	seen := make(map[string]struct{}, len(m.Milestones))
	for _, ms := range m.Milestones {
		mw := where + " milestone " + ms.ID
		if _, dup := seen[ms.ID]; dup || ms.ID == "" {
			v.fail("%s: empty or duplicate id", mw)
		}
		if ms.Target <= 0 {
			v.fail("%s: target must be > 0, got %d", mw, ms.Target)
		}
		if ms.Requires != "" {
			if _, ok := seen[ms.Requires]; !ok {
				v.fail("%s: requires %q which is not an earlier milestone", mw, ms.Requires)
			}
		}
		seen[ms.ID] = struct{}{}
		v.grant(c, mw, ms.Reward)
	}
}

func (v *validator) battlePass(c *Catalog, bp BattlePass) {
	if len(bp.Tiers) == 0 {
		if len(bp.Rewards) > 0 {
			v.fail("battle pass: rewards without tiers")
		}
		return
	}

	if bp.Season == "" {
		v.fail("battle pass: season is required")
	}
	v.price(c, "battle pass premium", bp.PremiumPrice)

	for i, t := range bp.Tiers {
		if t.Tier != int64(i+1) {
			v.fail("battle pass: tiers must be consecutive from 1, got %d at position %d", t.Tier, i)
		}
		if t.XP <= 0 {
			v.fail("battle pass tier %d: xp must be > 0", t.Tier)
		}
	}

	maxTier := bp.MaxTier()
	seen := make(map[string]struct{}, len(bp.Rewards))
	for _, r := range bp.Rewards {
		where := "battle pass reward " + r.ID
		if _, dup := seen[r.ID]; dup || r.ID == "" {
			v.fail("%s: empty or duplicate id", where)
		}
		seen[r.ID] = struct{}{}
		if r.Tier < 0 || r.Tier > maxTier {
			v.fail("%s: tier %d outside 0..%d", where, r.Tier, maxTier)
		}
		v.grant(c, where, r.Grant)
	}

	v.grant(c, "battle pass completion", bp.CompletionReward)
}

func (v *validator) rounds(c *Catalog, r Rounds) {
	if r.MaxRound <= 0 {
		v.fail("rounds: maxRound must be > 0")
	}
	if r.XPPerRound < 0 || r.WinXP < 0 || r.WinAmount < 0 {
		v.fail("rounds: xp and win amounts must be >= 0")
	}
	if r.WinAmount > 0 {
		if _, ok := c.scoreTypes[r.WinScore]; !ok {
			v.fail("rounds: unknown winScore %q", r.WinScore)
		}
	}

	for _, o := range r.Objectives {
		m, ok := c.missions[o.Mission]
		if !ok {
			v.fail("rounds: objective references unknown mission %q", o.Mission)
			continue
		}
		if _, ok := m.Milestone(o.Milestone); !ok {
			v.fail("rounds: objective references unknown milestone %s/%s", o.Mission, o.Milestone)
		}
		if o.Amount <= 0 {
			v.fail("rounds: objective %s/%s amount must be > 0", o.Mission, o.Milestone)
		}
	}
}
