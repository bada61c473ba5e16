package domain

// Position is one open simulated inventory lot, created by a BUY fill and
// removed by the matching SELL fill. Closing is strictly FIFO by insertion
// order, not paired to the sell level's price.
type Position struct {
	ID          int64   `json:"id"`
	EntryPrice  float64 `json:"entry_price"`
	Qty         float64 `json:"qty"`
	CostBasis   float64 `json:"cost_basis"` // EntryPrice * Qty at open
	OpenedUnixM int64   `json:"opened_unix"`
}

// UnrealizedPnl values the lot at the given mark price.
func (p *Position) UnrealizedPnl(markPrice float64) float64 {
	return (markPrice - p.EntryPrice) * p.Qty
}
