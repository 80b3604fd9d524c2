package ledger

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Delta is a declarative set of changes committed as one unit.
//
// Currencies, Scores, Items and Objectives are increments (negative values
// debit). Claim* entries are set-additions that must not already be present.
// BattlePass and Pity overwrite the stored values. Outcome is stored with the
// idempotency key and handed back verbatim on replay.
type Delta struct {
	// ExpectedVersion, when non-zero, must equal the stored version at commit.
	ExpectedVersion int64

	Currencies       map[string]int64
	Scores           map[string]int64
	Items            map[string]int64
	Objectives       []ObjectiveIncrement
	ClaimMilestones  []MilestoneRef
	ClaimMissions    []string
	ClaimPassRewards []string
	BattlePass       *PassUpdate
	Pity             map[string]int64

	Outcome json.RawMessage
}

type ObjectiveIncrement struct {
	Mission   string
	Milestone string
	Amount    int64
}

type MilestoneRef struct {
	Mission   string
	Milestone string
}

type PassUpdate struct {
	Season    string
	Tier      int64
	XP        int64
	Premium   bool
	Completed bool
}

// Receipt is what a committed idempotency key remembers.
type Receipt struct {
	Key       string
	Version   int64
	Outcome   json.RawMessage
	CreatedAt time.Time
}

// Commit is the result of Store.Apply. Replayed is set when the key had
// already been committed and the delta was not applied again.
type Commit struct {
	Record   PlayerRecord
	Outcome  json.RawMessage
	Replayed bool
}

// ScoreTypes lists the score counters touched by d, sorted.
func (d Delta) ScoreTypes() []string {
	out := make([]string, 0, len(d.Scores))
	for k := range d.Scores {
		out = append(out, k)
	}
	slices.Sort(out)

	return out
}

// ApplyDelta returns st with d applied. st is never modified; on error the
// returned state is the zero value.
//
//nolint:gocognit,cyclop
func ApplyDelta(st State, d Delta) (State, error) {
	next := st.Clone()

	for cur, amount := range d.Currencies {
		v, ok := addInt(next.Currencies[cur], amount)
		if !ok {
			return State{}, fmt.Errorf("%s balance %d, change %d overflows: %w", cur, next.Currencies[cur], amount, ErrInvalidInput)
		}
		if v < 0 {
			return State{}, fmt.Errorf("%s balance %d, change %d: %w", cur, next.Currencies[cur], amount, ErrInsufficientFunds)
		}
		next.Currencies[cur] = v
	}

	for typ, amount := range d.Scores {
		v, ok := addInt(next.Scores[typ], amount)
		if !ok {
			return State{}, fmt.Errorf("score %s at %d, change %d overflows: %w", typ, next.Scores[typ], amount, ErrInvalidInput)
		}
		if v < 0 {
			return State{}, fmt.Errorf("score %s would become %d: %w", typ, v, ErrInvalidInput)
		}
		next.Scores[typ] = v
	}

	for item, amount := range d.Items {
		v, ok := addInt(next.Items[item], amount)
		if !ok {
			return State{}, fmt.Errorf("item %s at %d, change %d overflows: %w", item, next.Items[item], amount, ErrInvalidInput)
		}
		if v < 0 {
			return State{}, fmt.Errorf("item %s would become %d: %w", item, v, ErrInsufficientFunds)
		}
		if v == 0 {
			delete(next.Items, item)
			continue
		}
		next.Items[item] = v
	}

	for _, inc := range d.Objectives {
		if inc.Amount < 0 {
			return State{}, fmt.Errorf("objective %s/%s increment %d: %w", inc.Mission, inc.Milestone, inc.Amount, ErrInvalidInput)
		}
		mp := next.mission(inc.Mission)
		v, ok := addInt(mp.Objectives[inc.Milestone], inc.Amount)
		if !ok {
			return State{}, fmt.Errorf("objective %s/%s overflows: %w", inc.Mission, inc.Milestone, ErrInvalidInput)
		}
		mp.Objectives[inc.Milestone] = v
	}

	for _, ref := range d.ClaimMilestones {
		mp := next.mission(ref.Mission)
		if mp.Claimed[ref.Milestone] {
			return State{}, fmt.Errorf("milestone %s/%s: %w", ref.Mission, ref.Milestone, ErrAlreadyClaimed)
		}
		mp.Claimed[ref.Milestone] = true
	}

	for _, missionID := range d.ClaimMissions {
		mp := next.mission(missionID)
		if mp.RewardClaimed {
			return State{}, fmt.Errorf("mission %s: %w", missionID, ErrAlreadyClaimed)
		}
		mp.RewardClaimed = true
	}

	for _, rewardID := range d.ClaimPassRewards {
		if next.BattlePass.Claimed[rewardID] {
			return State{}, fmt.Errorf("battle pass reward %s: %w", rewardID, ErrAlreadyClaimed)
		}
		next.BattlePass.Claimed[rewardID] = true
	}

	if u := d.BattlePass; u != nil {
		bp := &next.BattlePass
		switch {
		case u.Tier < bp.Tier:
			return State{}, fmt.Errorf("battle pass tier %d -> %d: %w", bp.Tier, u.Tier, ErrInvalidInput)
		case u.XP < 0:
			return State{}, fmt.Errorf("battle pass xp %d: %w", u.XP, ErrInvalidInput)
		case bp.Premium && !u.Premium:
			return State{}, fmt.Errorf("battle pass premium cannot be revoked: %w", ErrInvalidInput)
		case bp.Completed && !u.Completed:
			return State{}, fmt.Errorf("battle pass completion cannot be revoked: %w", ErrInvalidInput)
		}
		bp.Season = u.Season
		bp.Tier = u.Tier
		bp.XP = u.XP
		bp.Premium = u.Premium
		bp.Completed = u.Completed
	}

	for pool, v := range d.Pity {
		if v < 0 {
			return State{}, fmt.Errorf("pity %s = %d: %w", pool, v, ErrInvalidInput)
		}
		next.Pity[pool] = v
	}

	return next, nil
}

// addInt reports false when a+b leaves the int64 range.
func addInt(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}

	return sum, true
}

func (s *State) mission(id string) *MissionProgress {
	mp, ok := s.Missions[id]
	if !ok || mp == nil {
		mp = &MissionProgress{Objectives: map[string]int64{}, Claimed: map[string]bool{}}
		s.Missions[id] = mp
	}

	return mp
}
