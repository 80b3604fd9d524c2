package progress

import (
	"fmt"

	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

type MilestoneStatus string

const (
	StatusLocked      MilestoneStatus = "locked"
	StatusInProgress  MilestoneStatus = "in-progress"
	StatusCompletable MilestoneStatus = "completable"
	StatusClaimed     MilestoneStatus = "claimed"
)

type MilestoneView struct {
	ID       string          `json:"id"`
	Status   MilestoneStatus `json:"status"`
	Progress int64           `json:"progress"`
	Target   int64           `json:"target"`
	Reward   catalog.Grant   `json:"reward"`
}

type MissionView struct {
	ID              string          `json:"id"`
	Milestones      []MilestoneView `json:"milestones"`
	Reward          catalog.Grant   `json:"reward"`
	RewardClaimable bool            `json:"rewardClaimable"`
	RewardClaimed   bool            `json:"rewardClaimed"`
}

// Status derives a milestone's state from stored progress.
func Status(mp ledger.MissionProgress, ms catalog.Milestone) MilestoneStatus {
	switch {
	case mp.Claimed[ms.ID]:
		return StatusClaimed
	case ms.Requires != "" && !mp.Claimed[ms.Requires]:
		return StatusLocked
	case mp.Objectives[ms.ID] >= ms.Target:
		return StatusCompletable
	default:
		return StatusInProgress
	}
}

// Missions lists every catalog mission with its milestone states.
func (m *Machine) Missions(st ledger.State) []MissionView {
	out := make([]MissionView, 0, len(m.cat.Missions))

	for _, mission := range m.cat.Missions {
		mp := st.Mission(mission.ID)

		view := MissionView{
			ID:            mission.ID,
			Milestones:    make([]MilestoneView, 0, len(mission.Milestones)),
			Reward:        mission.Reward,
			RewardClaimed: mp.RewardClaimed,
		}
		for _, ms := range mission.Milestones {
			view.Milestones = append(view.Milestones, MilestoneView{
				ID:       ms.ID,
				Status:   Status(mp, ms),
				Progress: min(mp.Objectives[ms.ID], ms.Target),
				Target:   ms.Target,
				Reward:   ms.Reward,
			})
		}
		view.RewardClaimable = !mp.RewardClaimed && allClaimed(mp, mission)

		out = append(out, view)
	}

	return out
}

// ClaimMilestone plans the claim of a completable milestone. A milestone that
// is already claimed yields ErrAlreadyClaimed with the original reward as the
// plan's grant.
func (m *Machine) ClaimMilestone(st ledger.State, missionID, milestoneID string) (Plan, error) {
	mission, ok := m.cat.Mission(missionID)
	if !ok {
		return Plan{}, fmt.Errorf("mission %q: %w", missionID, ledger.ErrNotFound)
	}
	ms, ok := mission.Milestone(milestoneID)
	if !ok {
		return Plan{}, fmt.Errorf("milestone %s/%s: %w", missionID, milestoneID, ledger.ErrNotFound)
	}

	switch Status(st.Mission(missionID), ms) {
	case StatusClaimed:
		return Plan{Grant: ms.Reward}, fmt.Errorf("milestone %s/%s: %w", missionID, milestoneID, ledger.ErrAlreadyClaimed)
	case StatusLocked:
		return Plan{}, fmt.Errorf("milestone %s/%s is locked by %s: %w", missionID, milestoneID, ms.Requires, ledger.ErrNotEligible)
	case StatusInProgress:
		return Plan{}, fmt.Errorf("milestone %s/%s target not met: %w", missionID, milestoneID, ledger.ErrNotEligible)
	case StatusCompletable:
	}

	p := newPlan(ms.Reward)
	p.Delta.ClaimMilestones = []ledger.MilestoneRef{{Mission: missionID, Milestone: milestoneID}}

	return p, nil
}

// ClaimMission plans the claim of the mission reward, which requires every
// milestone to be claimed first.
func (m *Machine) ClaimMission(st ledger.State, missionID string) (Plan, error) {
	mission, ok := m.cat.Mission(missionID)
	if !ok {
		return Plan{}, fmt.Errorf("mission %q: %w", missionID, ledger.ErrNotFound)
	}

	mp := st.Mission(missionID)
	if mp.RewardClaimed {
		return Plan{Grant: mission.Reward}, fmt.Errorf("mission %s: %w", missionID, ledger.ErrAlreadyClaimed)
	}
	if !allClaimed(mp, mission) {
		return Plan{}, fmt.Errorf("mission %s has unclaimed milestones: %w", missionID, ledger.ErrNotEligible)
	}

	p := newPlan(mission.Reward)
	p.Delta.ClaimMissions = []string{missionID}

	return p, nil
}

// RoundObjectives returns the objective increments earned by finishing a
// round. Claimed milestones no longer accumulate progress.
func (m *Machine) RoundObjectives(st ledger.State, won bool) []ledger.ObjectiveIncrement {
	var out []ledger.ObjectiveIncrement

	for _, o := range m.cat.Rounds.Objectives {
		if o.OnWin && !won {
			continue
		}
		if st.Mission(o.Mission).Claimed[o.Milestone] {
			continue
		}
		out = append(out, ledger.ObjectiveIncrement{Mission: o.Mission, Milestone: o.Milestone, Amount: o.Amount})
	}

	return out
}

func allClaimed(mp ledger.MissionProgress, mission catalog.Mission) bool {
	for _, ms := range mission.Milestones {
		if !mp.Claimed[ms.ID] {
			return false
		}
	}

	return true
}
