package engine

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
	"github.com/daveandrewz81-eng/solana-paper-grid/pkg/safe"
)

// evaluateFillsLocked runs the two fill passes for one tick. Caller holds
// e.mu. Levels are walked nearest-to-anchor first; a tripped guard halts the
// whole pass instead of skipping to farther rungs, so fills never happen out
// of order.
func (e *Engine) evaluateFillsLocked(now time.Time, price float64) []domain.FillEvent {
	var events []domain.FillEvent
	e.guardBlocked = false

	// BUY pass: buys are sorted descending, closest to anchor first.
buyPass:
	for i := range e.buys {
		lvl := &e.buys[i]
		if lvl.Status != domain.LevelWaiting || price > lvl.Price {
			continue
		}

		qty := e.cfg.OrderNotionalUSD / lvl.Price
		cost := qty * lvl.Price

		switch {
		case !safe.FinitePositive(qty) || !safe.FinitePositive(cost):
			// Pathological config or level price; halting keeps the
			// pass deterministic.
			slog.Error("buy pass halted: invalid fill",
				slog.Float64("level", lvl.Price),
				slog.Float64("qty", qty))
			break buyPass
		case e.balances.CashUSD < cost:
			e.guardBlocked = true
			break buyPass
		case e.ledger.OpenCount() >= e.cfg.BuyPacketCap:
			e.guardBlocked = true
			break buyPass
		case e.ledger.OpenCount()+1 > e.cfg.SellPacketCap:
			// Never open a lot without a guaranteed exit packet.
			e.guardBlocked = true
			break buyPass
		}

		pos, err := e.ledger.Open(lvl.Price, qty, now.UnixMicro())
		if err != nil {
			slog.Error("buy pass halted", slog.Any("error", err))
			break
		}
		e.balances.DebitCash(cost)
		e.balances.CreditAsset(qty)
		lvl.Status = domain.LevelFilled
		e.lastFillAt = now

		ev := domain.FillEvent{
			ID:          uuid.NewString(),
			Side:        domain.SideBuy,
			Price:       lvl.Price,
			Qty:         qty,
			NotionalUSD: cost,
			PositionID:  pos.ID,
			TsUnixM:     now.UnixMicro(),
		}
		e.fills.Push(ev)
		events = append(events, ev)

		slog.Info("BUY fill",
			slog.Float64("price", lvl.Price),
			slog.Float64("qty", qty),
			slog.Int("open_positions", e.ledger.OpenCount()))
	}

	// SELL pass: sells are sorted ascending, closest to anchor first.
	for i := range e.sells {
		lvl := &e.sells[i]
		if lvl.Status != domain.LevelWaiting || price < lvl.Price {
			continue
		}

		oldest, ok := e.ledger.Oldest()
		if !ok {
			// Nothing to sell; the level stays WAITING.
			break
		}
		if e.balances.AssetQty < oldest.Qty {
			// Defensive: unreachable while the balance invariants hold.
			slog.Error("sell pass halted: asset balance below lot size",
				slog.Float64("asset", e.balances.AssetQty),
				slog.Float64("lot", oldest.Qty))
			break
		}

		closed, pnl, err := e.ledger.CloseOldest(lvl.Price)
		if err != nil {
			slog.Error("sell pass halted", slog.Any("error", err))
			break
		}
		proceeds := closed.Qty * lvl.Price
		e.balances.DebitAsset(closed.Qty)
		e.balances.CreditCash(proceeds)
		lvl.Status = domain.LevelFilled
		e.lastFillAt = now

		ev := domain.FillEvent{
			ID:          uuid.NewString(),
			Side:        domain.SideSell,
			Price:       lvl.Price,
			Qty:         closed.Qty,
			NotionalUSD: proceeds,
			PositionID:  closed.ID,
			RealizedPnl: pnl,
			TsUnixM:     now.UnixMicro(),
		}
		e.fills.Push(ev)
		events = append(events, ev)

		slog.Info("SELL fill",
			slog.Float64("price", lvl.Price),
			slog.Float64("qty", closed.Qty),
			slog.Float64("realized_pnl", pnl),
			slog.Int("open_positions", e.ledger.OpenCount()))
	}

	e.balances.VerifyInvariant()
	return events
}
