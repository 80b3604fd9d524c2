package progress

import (
	"fmt"
	"math"

	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

type PassRewardView struct {
	ID        string        `json:"id"`
	Tier      int64         `json:"tier"`
	Premium   bool          `json:"premium"`
	Claimed   bool          `json:"claimed"`
	Claimable bool          `json:"claimable"`
	Grant     catalog.Grant `json:"grant"`
}

type PassView struct {
	Season     string           `json:"season"`
	Tier       int64            `json:"tier"`
	XP         int64            `json:"xp"`
	NextTierXP int64            `json:"nextTierXp"`
	MaxTier    int64            `json:"maxTier"`
	Premium    bool             `json:"premium"`
	Completed  bool             `json:"completed"`
	Rewards    []PassRewardView `json:"rewards"`
}

// BattlePass describes the player's position on the track.
func (m *Machine) BattlePass(st ledger.State) PassView {
	bp := m.cat.BattlePass
	cur := st.BattlePass

	view := PassView{
		Season:     bp.Season,
		Tier:       cur.Tier,
		XP:         cur.XP,
		NextTierXP: m.tierXP(cur.Tier + 1),
		MaxTier:    bp.MaxTier(),
		Premium:    cur.Premium,
		Completed:  cur.Completed,
		Rewards:    make([]PassRewardView, 0, len(bp.Rewards)),
	}
	for _, r := range bp.Rewards {
		claimed := cur.Claimed[r.ID]
		view.Rewards = append(view.Rewards, PassRewardView{
			ID:        r.ID,
			Tier:      r.Tier,
			Premium:   r.Premium,
			Claimed:   claimed,
			Claimable: !claimed && eligible(cur, r),
			Grant:     r.Grant,
		})
	}

	return view
}

// GrantXP returns the pass position after adding xp. Several tiers may be
// crossed at once; the remainder carries into the next tier. At the last tier
// xp keeps accumulating.
func (m *Machine) GrantXP(st ledger.State, xp int64) (ledger.PassUpdate, error) {
	if xp < 0 {
		return ledger.PassUpdate{}, fmt.Errorf("xp grant %d: %w", xp, ledger.ErrInvalidInput)
	}
	if len(m.cat.BattlePass.Tiers) == 0 {
		return ledger.PassUpdate{}, fmt.Errorf("battle pass: %w", ledger.ErrNotFound)
	}

	u := m.current(st)
	if xp > math.MaxInt64-u.XP {
		return ledger.PassUpdate{}, fmt.Errorf("xp grant %d on %d overflows: %w", xp, u.XP, ledger.ErrInvalidInput)
	}
	u.XP += xp

	maxTier := m.cat.BattlePass.MaxTier()
	for u.Tier < maxTier {
		need := m.tierXP(u.Tier + 1)
		if u.XP < need {
			break
		}
		u.XP -= need
		u.Tier++
	}

	return u, nil
}

// PurchasePremium plans unlocking the premium track.
func (m *Machine) PurchasePremium(st ledger.State) (Plan, error) {
	if len(m.cat.BattlePass.Tiers) == 0 {
		return Plan{}, fmt.Errorf("battle pass: %w", ledger.ErrNotFound)
	}
	if st.BattlePass.Premium {
		return Plan{}, fmt.Errorf("battle pass premium: %w", ledger.ErrAlreadyClaimed)
	}

	var p Plan
	m.cat.BattlePass.PremiumPrice.Debit(&p.Delta, 1)

	u := m.current(st)
	u.Premium = true
	p.Delta.BattlePass = &u

	return p, nil
}

// ClaimReward plans the claim of a pass reward. The player's tier must have
// reached the reward tier, and premium rewards need the premium track.
func (m *Machine) ClaimReward(st ledger.State, rewardID string) (Plan, error) {
	r, ok := m.cat.BattlePass.Reward(rewardID)
	if !ok {
		return Plan{}, fmt.Errorf("battle pass reward %q: %w", rewardID, ledger.ErrNotFound)
	}

	cur := st.BattlePass
	switch {
	case cur.Claimed[r.ID]:
		return Plan{Grant: r.Grant}, fmt.Errorf("battle pass reward %s: %w", r.ID, ledger.ErrAlreadyClaimed)
	case cur.Tier < r.Tier:
		return Plan{}, fmt.Errorf("battle pass reward %s needs tier %d, at %d: %w", r.ID, r.Tier, cur.Tier, ledger.ErrNotEligible)
	case r.Premium && !cur.Premium:
		return Plan{}, fmt.Errorf("battle pass reward %s needs premium: %w", r.ID, ledger.ErrNotEligible)
	}

	p := newPlan(r.Grant)
	p.Delta.ClaimPassRewards = []string{r.ID}

	return p, nil
}

// Complete plans the one-time completion of the pass at the last tier.
// Completing twice yields ErrAlreadyClaimed, which callers treat as a no-op.
func (m *Machine) Complete(st ledger.State) (Plan, error) {
	bp := m.cat.BattlePass
	if len(bp.Tiers) == 0 {
		return Plan{}, fmt.Errorf("battle pass: %w", ledger.ErrNotFound)
	}
	if st.BattlePass.Completed {
		return Plan{Grant: bp.CompletionReward}, fmt.Errorf("battle pass completion: %w", ledger.ErrAlreadyClaimed)
	}
	if st.BattlePass.Tier < bp.MaxTier() {
		return Plan{}, fmt.Errorf("battle pass at tier %d of %d: %w", st.BattlePass.Tier, bp.MaxTier(), ledger.ErrNotEligible)
	}

	p := newPlan(bp.CompletionReward)

	u := m.current(st)
	u.Completed = true
	p.Delta.BattlePass = &u

	return p, nil
}

func (m *Machine) current(st ledger.State) ledger.PassUpdate {
	return ledger.PassUpdate{
		Season:    m.cat.BattlePass.Season,
		Tier:      st.BattlePass.Tier,
		XP:        st.BattlePass.XP,
		Premium:   st.BattlePass.Premium,
		Completed: st.BattlePass.Completed,
	}
}

// tierXP is the xp needed to reach tier from the one below, 0 past the end.
func (m *Machine) tierXP(tier int64) int64 {
	tiers := m.cat.BattlePass.Tiers
	if tier < 1 || tier > int64(len(tiers)) {
		return 0
	}

	return tiers[tier-1].XP
}

func eligible(cur ledger.BattlePassState, r catalog.PassReward) bool {
	return cur.Tier >= r.Tier && (!r.Premium || cur.Premium)
}
