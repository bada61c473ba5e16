package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
	"github.com/daveandrewz81-eng/solana-paper-grid/pkg/safe"
)

// PriceSource supplies the current market price. Providers, ordering and
// retry policy all live behind this boundary; the engine only sees the
// aggregate quote or failure.
type PriceSource interface {
	FetchPrice(ctx context.Context) (domain.Quote, error)
}

// Persister saves the engine state after a tick. Failures are non-fatal:
// the engine keeps running in memory and the next save supersedes.
type Persister interface {
	Save(state *domain.EngineState) error
}

// FillSink receives every fill event for durable journaling.
type FillSink interface {
	Append(ctx context.Context, ev domain.FillEvent) error
}

// Config is the static per-process engine configuration.
type Config struct {
	Symbol           string
	TickInterval     time.Duration
	LevelsPerSide    int
	BuyStepPct       float64 // fraction per rung, e.g. 0.01
	SellStepPct      float64
	OrderNotionalUSD float64
	BuyPacketCap     int // max simultaneously open positions
	SellPacketCap    int // exit packets: opens are refused beyond this
	StartCashUSD     float64
	StartAssetQty    float64
	FillHistory      int // ring size for the status snapshot
	Reanchor         ReanchorConfig
}

// Engine owns all mutable simulation state. Exactly one Tick runs at a
// time (the Run loop is a single goroutine); the mutex exists only so the
// status API can take consistent read snapshots between ticks.
type Engine struct {
	cfg Config

	price   PriceSource
	store   Persister
	journal FillSink

	mu sync.RWMutex

	seq                uint64
	hasAnchor          bool
	anchorPrice        float64
	anchorCreatedUnixM int64

	buys  []domain.LadderLevel
	sells []domain.LadderLevel

	balances domain.Balances
	ledger   *domain.Ledger

	lastReanchorAt time.Time
	lastFillAt     time.Time
	lastReason     string
	guardBlocked   bool

	lastPriceUSD float64
	lastSource   string

	fills *domain.FillRing

	now func() time.Time // injectable clock for tests

	onTick func(Status) // optional metrics hook
}

// New creates an engine with starting balances and no anchor. The anchor is
// set on the first successful price fetch.
func New(cfg Config, price PriceSource, store Persister, journal FillSink) *Engine {
	if cfg.FillHistory <= 0 {
		cfg.FillHistory = 10
	}
	return &Engine{
		cfg:     cfg,
		price:   price,
		store:   store,
		journal: journal,
		balances: domain.Balances{
			CashUSD:  cfg.StartCashUSD,
			AssetQty: cfg.StartAssetQty,
		},
		ledger: domain.NewLedger(),
		fills:  domain.NewFillRing(cfg.FillHistory),
		now:    time.Now,
	}
}

// SetTickHook registers a callback invoked with the post-tick status.
// Used for metrics export; must not block.
func (e *Engine) SetTickHook(fn func(Status)) {
	e.onTick = fn
}

// Run drives the tick loop until ctx is cancelled. Ticks are serialized by
// construction: one goroutine, one tick at a time. If a tick overruns the
// interval the ticker drops the missed firing rather than stacking.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("engine started",
		slog.String("symbol", e.cfg.Symbol),
		slog.Duration("interval", e.cfg.TickInterval))

	// First tick immediately so the anchor is set without waiting a full
	// interval.
	e.Tick(ctx)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick executes one full cycle: fetch price, maybe re-anchor, evaluate
// fills, persist. A failed price fetch skips the tick and preserves all
// state.
func (e *Engine) Tick(ctx context.Context) {
	quote, err := e.price.FetchPrice(ctx)
	if err != nil {
		slog.Warn("tick skipped: no price", slog.Any("error", err))
		return
	}
	if !safe.FinitePositive(quote.PriceUSD) {
		slog.Warn("tick skipped: unusable quote",
			slog.Float64("price", quote.PriceUSD),
			slog.String("source", quote.Source))
		return
	}

	now := e.now()
	var events []domain.FillEvent

	e.mu.Lock()
	e.lastPriceUSD = quote.PriceUSD
	e.lastSource = quote.Source

	if !e.hasAnchor {
		e.setAnchorLocked(quote.PriceUSD, now)
		slog.Info("anchor initialized",
			slog.Float64("anchor", e.anchorPrice),
			slog.Int("levels_per_side", e.cfg.LevelsPerSide))
	} else {
		fire, reason := e.cfg.Reanchor.ShouldReanchor(ReanchorInput{
			Now:          now,
			PriceUSD:     quote.PriceUSD,
			HasAnchor:    e.hasAnchor,
			AnchorPrice:  e.anchorPrice,
			LastReanchor: e.lastReanchorAt,
			LastFill:     e.lastFillAt,
			BuyUsagePct:  domain.UsagePct(e.buys),
			SellUsagePct: domain.UsagePct(e.sells),
		})
		e.lastReason = reason

		if fire {
			// A re-anchor and a fill never happen in the same tick.
			e.setAnchorLocked(quote.PriceUSD, now)
			e.lastReanchorAt = now
			slog.Info("re-anchored",
				slog.Float64("anchor", e.anchorPrice),
				slog.String("reason", reason))
		} else {
			events = e.evaluateFillsLocked(now, quote.PriceUSD)
		}
	}

	e.seq++
	state := e.exportStateLocked()
	status := e.statusLocked(now)
	e.mu.Unlock()

	// I/O happens outside the lock; the status API stays responsive.
	for _, ev := range events {
		if e.journal != nil {
			if err := e.journal.Append(ctx, ev); err != nil {
				slog.Warn("fill journal append failed", slog.Any("error", err))
			}
		}
	}
	if e.store != nil {
		if err := e.store.Save(state); err != nil {
			slog.Warn("snapshot save failed", slog.Any("error", err))
		}
	}
	if e.onTick != nil {
		e.onTick(status)
	}
}

// setAnchorLocked recenters the ladder on price. Caller holds e.mu.
func (e *Engine) setAnchorLocked(price float64, now time.Time) {
	e.hasAnchor = true
	e.anchorPrice = price
	e.anchorCreatedUnixM = now.UnixMicro()
	e.buys, e.sells = BuildLadder(price, e.cfg.BuyStepPct, e.cfg.SellStepPct, e.cfg.LevelsPerSide)
	e.guardBlocked = false
}

// ExportState returns a deep copy of the full serializable state.
func (e *Engine) ExportState() *domain.EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exportStateLocked()
}

func (e *Engine) exportStateLocked() *domain.EngineState {
	st := &domain.EngineState{
		Version:            domain.SnapshotVersion,
		Seq:                e.seq,
		AnchorCreatedUnixM: e.anchorCreatedUnixM,
		BuyLevels:          append([]domain.LadderLevel{}, e.buys...),
		SellLevels:         append([]domain.LadderLevel{}, e.sells...),
		Balances:           e.balances,
		Ledger:             e.ledger.Export(),
		LastReanchorUnixM:  unixMOrZero(e.lastReanchorAt),
		LastFillUnixM:      unixMOrZero(e.lastFillAt),
		RecentFills:        e.fills.Recent(),
		LastPriceUSD:       e.lastPriceUSD,
		LastSource:         e.lastSource,
	}
	if e.hasAnchor {
		anchor := e.anchorPrice
		st.AnchorPrice = &anchor
	}
	return st
}

// Restore replaces the engine state from a loaded snapshot. Called once at
// startup before the tick loop runs.
func (e *Engine) Restore(st *domain.EngineState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq = st.Seq
	if st.AnchorPrice != nil {
		e.hasAnchor = true
		e.anchorPrice = *st.AnchorPrice
	}
	e.anchorCreatedUnixM = st.AnchorCreatedUnixM
	e.buys = append([]domain.LadderLevel{}, st.BuyLevels...)
	e.sells = append([]domain.LadderLevel{}, st.SellLevels...)
	e.balances = st.Balances
	e.balances.VerifyInvariant()
	e.ledger = domain.RestoreLedger(st.Ledger)
	e.lastReanchorAt = timeFromUnixM(st.LastReanchorUnixM)
	e.lastFillAt = timeFromUnixM(st.LastFillUnixM)
	e.fills.Restore(st.RecentFills)
	e.lastPriceUSD = st.LastPriceUSD
	e.lastSource = st.LastSource

	slog.Info("engine state restored",
		slog.Uint64("seq", e.seq),
		slog.Int("open_positions", e.ledger.OpenCount()))
}

func unixMOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func timeFromUnixM(m int64) time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMicro(m)
}
