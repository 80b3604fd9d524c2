package ranking

import (
	"sync/atomic"

	"github.com/google/btree"

	"github.com/fastprodman/progression/internal/repos/ledger"
)

const btreeDegree = 32

type item struct {
	id    ledger.PlayerID
	value int64
	name  string
}

// less orders by value descending, then identity ascending.
func less(a, b item) bool {
	if a.value != b.value {
		return a.value > b.value
	}

	return a.id < b.id
}

// board is one sorted (score type, partition) structure. tree is only touched
// by the writer; readers load the last published clone.
type board struct {
	tree *btree.BTreeG[item]
	snap atomic.Pointer[btree.BTreeG[item]]
}

func newBoard() *board {
	b := &board{tree: btree.NewG(btreeDegree, less)}
	b.publish()

	return b
}

func (b *board) publish() {
	b.snap.Store(b.tree.Clone())
}

// page walks the published snapshot, skipping start entries.
func (b *board) page(start, count int) []Entry {
	snap := b.snap.Load()
	if start >= snap.Len() || count == 0 {
		return []Entry{}
	}

	out := make([]Entry, 0, min(count, snap.Len()-start))
	pos := 0
	snap.Ascend(func(it item) bool {
		if pos >= start {
			out = append(out, Entry{
				Rank:        pos + 1,
				Player:      it.id,
				DisplayName: it.name,
				Value:       it.value,
			})
		}
		pos++

		return len(out) < count
	})

	return out
}
