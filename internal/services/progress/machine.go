// Package progress holds the mission and battle pass transition rules. It
// reads a player's state and proposes ledger deltas; it never commits.
package progress

import (
	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/repos/ledger"
)

type Machine struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Machine {
	return &Machine{cat: cat}
}

// Plan is a proposed delta together with what it grants.
type Plan struct {
	Delta ledger.Delta
	Grant catalog.Grant
}

func newPlan(g catalog.Grant) Plan {
	p := Plan{Grant: g}
	g.Credit(&p.Delta)

	return p
}
