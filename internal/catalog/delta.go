package catalog

import "github.com/fastprodman/progression/internal/repos/ledger"

// Credit adds the grant to d as currency and item increments.
func (g Grant) Credit(d *ledger.Delta) {
	for cur, n := range g.Currencies {
		if d.Currencies == nil {
			d.Currencies = map[string]int64{}
		}
		d.Currencies[cur] += n
	}
	for item, n := range g.Items {
		if d.Items == nil {
			d.Items = map[string]int64{}
		}
		d.Items[item] += n
	}
}

// Debit charges the price n times against d.
func (p Price) Debit(d *ledger.Delta, n int64) {
	if p.Amount == 0 || n == 0 {
		return
	}
	if d.Currencies == nil {
		d.Currencies = map[string]int64{}
	}
	d.Currencies[p.Currency] -= p.Amount * n
}
