package ledger

import (
	"maps"
	"time"
)

type PlayerID string

// NewPlayer is handed over by the login collaborator on first contact.
type NewPlayer struct {
	DeviceID    string
	DisplayName string
	Country     string
}

// Profile fields are owned by the profile collaborator; the ledger only stores them.
type Profile struct {
	DisplayName string
	Country     string
}

type PlayerRecord struct {
	ID          PlayerID
	DisplayName string
	Country     string
	Version     int64
	State       State
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// State is the versioned, mutable part of a player record.
type State struct {
	Currencies map[string]int64            `json:"currencies"`
	Scores     map[string]int64            `json:"scores"`
	Items      map[string]int64            `json:"items"`
	Missions   map[string]*MissionProgress `json:"missions"`
	BattlePass BattlePassState             `json:"battlePass"`
	Pity       map[string]int64            `json:"pity"`
}

type MissionProgress struct {
	Objectives    map[string]int64 `json:"objectives"`
	Claimed       map[string]bool  `json:"claimed"`
	RewardClaimed bool             `json:"rewardClaimed"`
}

type BattlePassState struct {
	Season    string          `json:"season"`
	Tier      int64           `json:"tier"`
	XP        int64           `json:"xp"`
	Premium   bool            `json:"premium"`
	Claimed   map[string]bool `json:"claimed"`
	Completed bool            `json:"completed"`
}

// NewState returns a zero state with every map allocated.
func NewState() State {
	return State{
		Currencies: map[string]int64{},
		Scores:     map[string]int64{},
		Items:      map[string]int64{},
		Missions:   map[string]*MissionProgress{},
		BattlePass: BattlePassState{Claimed: map[string]bool{}},
		Pity:       map[string]int64{},
	}
}

// Normalize allocates nil maps, e.g. after decoding a sparse document.
func (s *State) Normalize() {
	if s.Currencies == nil {
		s.Currencies = map[string]int64{}
	}
	if s.Scores == nil {
		s.Scores = map[string]int64{}
	}
	if s.Items == nil {
		s.Items = map[string]int64{}
	}
	if s.Missions == nil {
		s.Missions = map[string]*MissionProgress{}
	}
	if s.BattlePass.Claimed == nil {
		s.BattlePass.Claimed = map[string]bool{}
	}
	if s.Pity == nil {
		s.Pity = map[string]int64{}
	}
	for id, mp := range s.Missions {
		if mp == nil {
			mp = &MissionProgress{}
			s.Missions[id] = mp
		}
		if mp.Objectives == nil {
			mp.Objectives = map[string]int64{}
		}
		if mp.Claimed == nil {
			mp.Claimed = map[string]bool{}
		}
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{
		Currencies: maps.Clone(s.Currencies),
		Scores:     maps.Clone(s.Scores),
		Items:      maps.Clone(s.Items),
		Missions:   make(map[string]*MissionProgress, len(s.Missions)),
		BattlePass: s.BattlePass,
		Pity:       maps.Clone(s.Pity),
	}
	out.BattlePass.Claimed = maps.Clone(s.BattlePass.Claimed)

	for id, mp := range s.Missions {
		if mp == nil {
			continue
		}
		out.Missions[id] = &MissionProgress{
			Objectives:    maps.Clone(mp.Objectives),
			Claimed:       maps.Clone(mp.Claimed),
			RewardClaimed: mp.RewardClaimed,
		}
	}

	out.Normalize()

	return out
}

// Clone returns a deep copy of the record.
func (r PlayerRecord) Clone() PlayerRecord {
	r.State = r.State.Clone()
	return r
}

// Mission returns the progress for missionID, or an empty value.
func (s State) Mission(missionID string) MissionProgress {
	mp, ok := s.Missions[missionID]
	if !ok || mp == nil {
		return MissionProgress{Objectives: map[string]int64{}, Claimed: map[string]bool{}}
	}

	return *mp
}
