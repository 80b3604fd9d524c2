package rewards

import (
	"sort"

	"github.com/fastprodman/progression/internal/catalog"
)

// table is a cumulative-weight view of a pool. Entry i owns the half-open
// interval [cum[i-1], cum[i]).
type table struct {
	pool  catalog.Pool
	cum   []int64
	total int64

	// top* restrict the same layout to the highest-tier entries.
	topTier  int
	topIdx   []int
	topCum   []int64
	topTotal int64
}

func newTable(p catalog.Pool) *table {
	t := &table{
		pool:    p,
		cum:     make([]int64, len(p.Entries)),
		topTier: p.HighestTier(),
	}

	for i, e := range p.Entries {
		t.total += e.Weight
		t.cum[i] = t.total

		if e.Tier == t.topTier {
			t.topTotal += e.Weight
			t.topIdx = append(t.topIdx, i)
			t.topCum = append(t.topCum, t.topTotal)
		}
	}

	return t
}

// pick maps r in [0, total) to an entry index.
func (t *table) pick(r int64) int {
	return search(t.cum, r)
}

// pickTop maps r in [0, topTotal) to an entry index among highest-tier entries.
func (t *table) pickTop(r int64) int {
	return t.topIdx[search(t.topCum, r)]
}

func search(cum []int64, r int64) int {
	return sort.Search(len(cum), func(i int) bool { return cum[i] > r })
}
