// Package ranking keeps per (score type, country) leaderboards in memory.
// Writes are applied incrementally in O(log n); reads work on immutable
// snapshots and never take a lock.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

const (
	// MaxPage caps the number of entries a single List returns.
	MaxPage = 500
	// MaxStart caps the offset of a List. A page walks the snapshot from
	// the top, so one read visits at most MaxStart+MaxPage entries.
	MaxStart = 10_000
)

type Entry struct {
	Rank        int             `json:"rank"`
	Player      ledger.PlayerID `json:"playerId"`
	DisplayName string          `json:"displayName"`
	Value       int64           `json:"value"`
}

// Update carries a committed score value. Version is the ledger record
// version that produced it; older versions than the last seen are ignored.
type Update struct {
	Player    ledger.PlayerID
	ScoreType string
	Value     int64
	Version   int64
}

// Scanner walks every player record.
type Scanner interface {
	Scan(ctx context.Context, fn func(ledger.PlayerRecord) error) error
}

type boardKey struct {
	scoreType string
	country   string
}

type player struct {
	name    string
	country string
	// version guards scores, profileVersion guards name and country.
	version        int64
	profileVersion int64
	scores         map[string]int64
}

type Index struct {
	mu      sync.Mutex
	players map[ledger.PlayerID]*player
	boards  sync.Map // boardKey -> *board
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}

	return &Index{
		players: make(map[ledger.PlayerID]*player),
		logger:  logger,
	}
}

// List returns up to count entries starting at rank start+1. country may be
// empty or "global" for the aggregate board. A start past the end yields an
// empty slice; a start past MaxStart is rejected.
func (x *Index) List(scoreType, country string, start, count int) ([]Entry, error) {
	if start < 0 || count < 0 {
		return nil, fmt.Errorf("start %d, count %d: %w", start, count, ledger.ErrInvalidInput)
	}
	if start > MaxStart {
		return nil, fmt.Errorf("start %d past %d: %w", start, MaxStart, ledger.ErrInvalidInput)
	}

	cc, err := CanonicalCountry(country)
	if err != nil {
		return nil, err
	}

	v, ok := x.boards.Load(boardKey{scoreType: scoreType, country: cc})
	if !ok {
		return []Entry{}, nil
	}

	return v.(*board).page(start, min(count, MaxPage)), nil
}

// Apply records a committed score value.
func (x *Index) Apply(u Update) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.apply(u)
}

// SetProfile updates display name and country, moving the player's entries
// between country boards. version is the record version that carries the
// profile; an older one than the index has seen is ignored. An invalid
// country is treated as unset.
func (x *Index) SetProfile(id ledger.PlayerID, displayName, country string, version int64) {
	cc, err := CanonicalCountry(country)
	if err != nil {
		x.logger.Warn("ranking: ignoring invalid country", "player_id", id, "country", country)
		cc = ""
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.setProfile(id, displayName, cc, version)
}

// Sync brings the index in line with a full record. Scores and profile fields
// from a record older than what the index has already seen are skipped.
func (x *Index) Sync(rec ledger.PlayerRecord) {
	cc, err := CanonicalCountry(rec.Country)
	if err != nil {
		cc = ""
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.setProfile(rec.ID, rec.DisplayName, cc, rec.Version)
	for typ, v := range rec.State.Scores {
		x.apply(Update{Player: rec.ID, ScoreType: typ, Value: v, Version: rec.Version})
	}
}

// Rebuild loads every record from src. It is safe to run while updates are
// flowing; each record is synced under the version guard.
func (x *Index) Rebuild(ctx context.Context, src Scanner) (int, error) {
	n := 0

	err := src.Scan(ctx, func(rec ledger.PlayerRecord) error {
		x.Sync(rec)
		n++

		return nil
	})
	if err != nil {
		return n, fmt.Errorf("rebuild ranking: %w", err)
	}

	x.logger.Info("ranking rebuilt", "players", n)

	return n, nil
}

// Len reports the number of entries on a board.
func (x *Index) Len(scoreType, country string) int {
	cc, err := CanonicalCountry(country)
	if err != nil {
		return 0
	}

	v, ok := x.boards.Load(boardKey{scoreType: scoreType, country: cc})
	if !ok {
		return 0
	}

	return v.(*board).snap.Load().Len()
}

func (x *Index) apply(u Update) {
	p := x.player(u.Player)
	if u.Version < p.version {
		return
	}
	p.version = u.Version

	old, had := p.scores[u.ScoreType]
	if had && old == u.Value {
		return
	}
	p.scores[u.ScoreType] = u.Value

	for _, key := range keys(u.ScoreType, p.country) {
		b := x.board(key)
		if had {
			b.tree.Delete(item{id: u.Player, value: old})
		}
		b.tree.ReplaceOrInsert(item{id: u.Player, value: u.Value, name: p.name})
		b.publish()
	}
}

func (x *Index) setProfile(id ledger.PlayerID, name, country string, version int64) {
	p := x.player(id)
	if version < p.profileVersion {
		return
	}
	p.profileVersion = version

	if p.name == name && p.country == country {
		return
	}

	for typ, v := range p.scores {
		if p.country != "" && p.country != country {
			b := x.board(boardKey{scoreType: typ, country: p.country})
			b.tree.Delete(item{id: id, value: v})
			b.publish()
		}
		for _, key := range keys(typ, country) {
			b := x.board(key)
			b.tree.ReplaceOrInsert(item{id: id, value: v, name: name})
			b.publish()
		}
	}

	p.name = name
	p.country = country
}

func (x *Index) player(id ledger.PlayerID) *player {
	p, ok := x.players[id]
	if !ok {
		p = &player{scores: map[string]int64{}}
		x.players[id] = p
	}

	return p
}

func (x *Index) board(key boardKey) *board {
	v, ok := x.boards.Load(key)
	if ok {
		return v.(*board)
	}

	b := newBoard()
	x.boards.Store(key, b)

	return b
}

func keys(scoreType, country string) []boardKey {
	if country == "" {
		return []boardKey{{scoreType: scoreType}}
	}

	return []boardKey{{scoreType: scoreType}, {scoreType: scoreType, country: country}}
}
