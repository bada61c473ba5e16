package domain

import (
	"fmt"

	"github.com/daveandrewz81-eng/solana-paper-grid/pkg/safe"
)

// Ledger owns the open-position list and the aggregate trade statistics.
// Positions close strictly oldest-first regardless of entry price.
type Ledger struct {
	positions []Position
	nextID    int64

	RealizedPnlUSD float64
	FillCount      int64
	BuyCount       int64
	SellCount      int64

	// Cached Σ(costBasis)/Σ(qty) over open positions; nil when flat.
	avgEntry *float64
}

// NewLedger returns an empty ledger. Position IDs start at 1.
func NewLedger() *Ledger {
	return &Ledger{nextID: 1}
}

// Open creates a new lot at the given entry price.
// Returns ErrInvalidFill for non-finite or non-positive inputs.
func (l *Ledger) Open(entryPrice, qty float64, nowUnixM int64) (Position, error) {
	if !safe.FinitePositive(entryPrice) || !safe.FinitePositive(qty) {
		return Position{}, fmt.Errorf("open price=%v qty=%v: %w", entryPrice, qty, ErrInvalidFill)
	}

	pos := Position{
		ID:          l.nextID,
		EntryPrice:  entryPrice,
		Qty:         qty,
		CostBasis:   entryPrice * qty,
		OpenedUnixM: nowUnixM,
	}
	l.nextID++
	l.positions = append(l.positions, pos)

	l.FillCount++
	l.BuyCount++
	l.recomputeAvgEntry()
	return pos, nil
}

// CloseOldest closes the oldest open lot at exitPrice and accumulates the
// realized PnL. Returns ErrNoOpenPosition when the book is flat.
func (l *Ledger) CloseOldest(exitPrice float64) (Position, float64, error) {
	if len(l.positions) == 0 {
		return Position{}, 0, ErrNoOpenPosition
	}
	if !safe.FinitePositive(exitPrice) {
		return Position{}, 0, fmt.Errorf("close price=%v: %w", exitPrice, ErrInvalidFill)
	}

	closed := l.positions[0]
	l.positions = l.positions[1:]

	pnl := closed.Qty*exitPrice - closed.CostBasis
	l.RealizedPnlUSD += pnl
	l.FillCount++
	l.SellCount++
	l.recomputeAvgEntry()
	return closed, pnl, nil
}

// OpenCount returns the number of open lots.
func (l *Ledger) OpenCount() int {
	return len(l.positions)
}

// Oldest returns a copy of the next lot to close, if any.
func (l *Ledger) Oldest() (Position, bool) {
	if len(l.positions) == 0 {
		return Position{}, false
	}
	return l.positions[0], true
}

// Positions returns a copy of the open lots in insertion order.
func (l *Ledger) Positions() []Position {
	out := make([]Position, len(l.positions))
	copy(out, l.positions)
	return out
}

// AvgEntryPrice returns the quantity-weighted average entry over open lots.
// ok is false when the book is flat.
func (l *Ledger) AvgEntryPrice() (float64, bool) {
	if l.avgEntry == nil {
		return 0, false
	}
	return *l.avgEntry, true
}

// UnrealizedPnlUSD values all open lots at the mark price.
func (l *Ledger) UnrealizedPnlUSD(markPrice float64) float64 {
	total := 0.0
	for i := range l.positions {
		total += l.positions[i].UnrealizedPnl(markPrice)
	}
	return total
}

func (l *Ledger) recomputeAvgEntry() {
	if len(l.positions) == 0 {
		l.avgEntry = nil
		return
	}
	var cost, qty float64
	for i := range l.positions {
		cost += l.positions[i].CostBasis
		qty += l.positions[i].Qty
	}
	avg := cost / qty
	l.avgEntry = &avg
}

// LedgerState is the serializable form of a Ledger for snapshots.
type LedgerState struct {
	Positions      []Position `json:"positions"`
	NextPositionID int64      `json:"next_position_id"`
	RealizedPnlUSD float64    `json:"realized_pnl_usd"`
	FillCount      int64      `json:"fill_count"`
	BuyCount       int64      `json:"buy_count"`
	SellCount      int64      `json:"sell_count"`
}

// Export captures the ledger for persistence.
func (l *Ledger) Export() LedgerState {
	return LedgerState{
		Positions:      l.Positions(),
		NextPositionID: l.nextID,
		RealizedPnlUSD: l.RealizedPnlUSD,
		FillCount:      l.FillCount,
		BuyCount:       l.BuyCount,
		SellCount:      l.SellCount,
	}
}

// RestoreLedger rebuilds a ledger from a snapshot state.
func RestoreLedger(st LedgerState) *Ledger {
	l := &Ledger{
		positions:      append([]Position(nil), st.Positions...),
		nextID:         st.NextPositionID,
		RealizedPnlUSD: st.RealizedPnlUSD,
		FillCount:      st.FillCount,
		BuyCount:       st.BuyCount,
		SellCount:      st.SellCount,
	}
	if l.nextID < 1 {
		l.nextID = 1
	}
	l.recomputeAvgEntry()
	return l
}
