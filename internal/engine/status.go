package engine

import (
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
	"github.com/daveandrewz81-eng/solana-paper-grid/pkg/safe"
)

// Status is the read-only snapshot served by the dashboard API. All fields
// are copies taken under one lock acquisition, so a reader never observes a
// half-updated ledger.
type Status struct {
	Symbol       string `json:"symbol"`
	Seq          uint64 `json:"seq"`
	UpdatedUnixM int64  `json:"updated_unix"`

	MarkPriceUSD float64  `json:"mark_price_usd"`
	PriceSource  string   `json:"price_source"`
	AnchorPrice  *float64 `json:"anchor_price"`
	DriftPct     float64  `json:"drift_pct"`

	Balances      domain.Balances `json:"balances"`
	EquityUSD     float64         `json:"equity_usd"`
	RealizedPnl   float64         `json:"realized_pnl_usd"`
	UnrealizedPnl float64         `json:"unrealized_pnl_usd"`
	AvgEntryUSD   *float64        `json:"avg_entry_usd"` // breakeven; nil when flat

	OpenPositions int               `json:"open_positions"`
	Positions     []domain.Position `json:"positions"`
	BuyPacketCap  int               `json:"buy_packet_cap"`
	SellPacketCap int               `json:"sell_packet_cap"`
	BuyUsagePct   float64           `json:"buy_usage_pct"`
	SellUsagePct  float64           `json:"sell_usage_pct"`
	GuardBlocked  bool              `json:"guard_blocked"`

	FillCount int64 `json:"fill_count"`
	BuyCount  int64 `json:"buy_count"`
	SellCount int64 `json:"sell_count"`

	BuyLevels  []domain.LadderLevel `json:"buy_levels"`
	SellLevels []domain.LadderLevel `json:"sell_levels"`

	RecentFills []domain.FillEvent `json:"recent_fills"` // newest first

	LastReanchorUnixM int64  `json:"last_reanchor_unix"`
	LastFillUnixM     int64  `json:"last_fill_unix"`
	ReanchorReason    string `json:"reanchor_reason,omitempty"`
}

// Status returns a consistent snapshot for external readers.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusLocked(e.now())
}

func (e *Engine) statusLocked(now time.Time) Status {
	st := Status{
		Symbol:       e.cfg.Symbol,
		Seq:          e.seq,
		UpdatedUnixM: now.UnixMicro(),

		MarkPriceUSD: e.lastPriceUSD,
		PriceSource:  e.lastSource,

		Balances:      e.balances,
		EquityUSD:     e.balances.PortfolioValueUSD(e.lastPriceUSD),
		RealizedPnl:   e.ledger.RealizedPnlUSD,
		UnrealizedPnl: e.ledger.UnrealizedPnlUSD(e.lastPriceUSD),

		OpenPositions: e.ledger.OpenCount(),
		Positions:     e.ledger.Positions(),
		BuyPacketCap:  e.cfg.BuyPacketCap,
		SellPacketCap: e.cfg.SellPacketCap,
		BuyUsagePct:   domain.UsagePct(e.buys),
		SellUsagePct:  domain.UsagePct(e.sells),
		GuardBlocked:  e.guardBlocked,

		FillCount: e.ledger.FillCount,
		BuyCount:  e.ledger.BuyCount,
		SellCount: e.ledger.SellCount,

		BuyLevels:  append([]domain.LadderLevel{}, e.buys...),
		SellLevels: append([]domain.LadderLevel{}, e.sells...),

		RecentFills: e.fills.Recent(),

		LastReanchorUnixM: unixMOrZero(e.lastReanchorAt),
		LastFillUnixM:     unixMOrZero(e.lastFillAt),
		ReanchorReason:    e.lastReason,
	}

	if e.hasAnchor {
		anchor := e.anchorPrice
		st.AnchorPrice = &anchor
		if safe.FinitePositive(e.lastPriceUSD) {
			st.DriftPct = safe.Pct(e.lastPriceUSD, anchor)
		}
	}
	if avg, ok := e.ledger.AvgEntryPrice(); ok {
		st.AvgEntryUSD = &avg
	}
	return st
}
