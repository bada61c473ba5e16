package engine

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
)

type stubPrice struct {
	quote domain.Quote
	err   error
}

func (s *stubPrice) FetchPrice(_ context.Context) (domain.Quote, error) {
	return s.quote, s.err
}

func (s *stubPrice) set(price float64) {
	s.quote = domain.Quote{PriceUSD: price, Source: "stub"}
}

type captureStore struct {
	saved *domain.EngineState
}

func (c *captureStore) Save(st *domain.EngineState) error {
	c.saved = st
	return nil
}

type captureJournal struct {
	events []domain.FillEvent
}

func (c *captureJournal) Append(_ context.Context, ev domain.FillEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func testConfig() Config {
	return Config{
		Symbol:           "SOL-USD",
		TickInterval:     time.Second,
		LevelsPerSide:    1,
		BuyStepPct:       0.01,
		SellStepPct:      0.01,
		OrderNotionalUSD: 25,
		BuyPacketCap:     2,
		SellPacketCap:    2,
		StartCashUSD:     100,
		StartAssetQty:    0,
		Reanchor:         DefaultReanchorConfig(),
	}
}

// newTestEngine wires an engine with a controllable clock and price stub.
func newTestEngine(cfg Config) (*Engine, *stubPrice, *func(d time.Duration)) {
	src := &stubPrice{}
	e := New(cfg, src, nil, nil)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	advance := func(d time.Duration) { now = now.Add(d) }
	return e, src, &advance
}

// The reference scenario: anchor=100, 1% steps, 1 level/side, $25 notional,
// caps 2/2, $100 cash. Price 99 buys, price 101 sells the same lot.
func TestEngine_ReferenceScenario(t *testing.T) {
	e, src, advance := newTestEngine(testConfig())
	ctx := context.Background()

	// Tick 1: anchor initializes at 100, no fills possible.
	src.set(100)
	e.Tick(ctx)

	st := e.Status()
	if st.AnchorPrice == nil || *st.AnchorPrice != 100 {
		t.Fatalf("expected anchor 100, got %v", st.AnchorPrice)
	}
	if len(st.BuyLevels) != 1 || st.BuyLevels[0].Price != 99 {
		t.Fatalf("expected one buy level at 99, got %v", st.BuyLevels)
	}
	if len(st.SellLevels) != 1 || st.SellLevels[0].Price != 101 {
		t.Fatalf("expected one sell level at 101, got %v", st.SellLevels)
	}

	// Tick 2: price 99 triggers the buy level.
	(*advance)(time.Second)
	src.set(99)
	e.Tick(ctx)

	st = e.Status()
	wantQty := 25.0 / 99.0
	if st.OpenPositions != 1 {
		t.Fatalf("expected 1 open position, got %d", st.OpenPositions)
	}
	if math.Abs(st.Positions[0].Qty-wantQty) > 1e-9 {
		t.Errorf("qty = %v, want %v", st.Positions[0].Qty, wantQty)
	}
	if math.Abs(st.Balances.CashUSD-75) > 1e-9 {
		t.Errorf("cash = %v, want 75", st.Balances.CashUSD)
	}
	if math.Abs(st.Balances.AssetQty-wantQty) > 1e-9 {
		t.Errorf("asset = %v, want %v", st.Balances.AssetQty, wantQty)
	}
	if st.BuyLevels[0].Status != domain.LevelFilled {
		t.Error("buy level must be FILLED")
	}

	// Tick 3: price 101 triggers the sell level, closing the lot.
	(*advance)(time.Second)
	src.set(101)
	e.Tick(ctx)

	st = e.Status()
	if st.OpenPositions != 0 {
		t.Fatalf("expected flat book, got %d open", st.OpenPositions)
	}
	wantPnl := wantQty * 2 // (101 - 99) * qty ≈ 0.505
	if math.Abs(st.RealizedPnl-wantPnl) > 1e-9 {
		t.Errorf("realized pnl = %v, want %v", st.RealizedPnl, wantPnl)
	}
	wantCash := 75 + wantQty*101 // ≈ 100.505
	if math.Abs(st.Balances.CashUSD-wantCash) > 1e-9 {
		t.Errorf("cash = %v, want %v", st.Balances.CashUSD, wantCash)
	}
	if st.Balances.AssetQty != 0 {
		t.Errorf("asset must return to 0, got %v", st.Balances.AssetQty)
	}
	if st.FillCount != 2 || st.BuyCount != 1 || st.SellCount != 1 {
		t.Errorf("counts: fills=%d buys=%d sells=%d", st.FillCount, st.BuyCount, st.SellCount)
	}
}

func TestEngine_PriceFailureSkipsTick(t *testing.T) {
	e, src, _ := newTestEngine(testConfig())
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)
	before := e.Status()

	src.err = domain.ErrPriceUnavailable
	e.Tick(ctx)

	after := e.Status()
	if after.Seq != before.Seq {
		t.Errorf("seq advanced on a failed tick: %d -> %d", before.Seq, after.Seq)
	}
	if after.MarkPriceUSD != before.MarkPriceUSD {
		t.Error("mark price mutated on a failed tick")
	}
}

func TestEngine_NonPositiveQuoteSkipsTick(t *testing.T) {
	e, src, _ := newTestEngine(testConfig())
	ctx := context.Background()

	src.set(0)
	e.Tick(ctx)

	if st := e.Status(); st.Seq != 0 || st.AnchorPrice != nil {
		t.Error("zero-price quote must not initialize the anchor")
	}

	src.set(math.NaN())
	e.Tick(ctx)
	if st := e.Status(); st.Seq != 0 {
		t.Error("NaN quote must not advance the engine")
	}
}

// Capacity guard: the BUY pass halts once opening another lot would exceed
// the sell packet capacity, and halts deterministically (no cherry-picking
// farther levels).
func TestEngine_CapacityGuardHaltsBuyPass(t *testing.T) {
	cfg := testConfig()
	cfg.LevelsPerSide = 5
	cfg.BuyPacketCap = 5
	cfg.SellPacketCap = 2
	cfg.StartCashUSD = 1000
	cfg.Reanchor.Enabled = false // the 10% drop must hit the ladder, not re-anchor
	e, src, advance := newTestEngine(cfg)
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)

	// Price collapses below all five buy levels at once.
	(*advance)(time.Second)
	src.set(90)
	e.Tick(ctx)

	st := e.Status()
	if st.OpenPositions != 2 {
		t.Fatalf("expected 2 opens (sell packet cap), got %d", st.OpenPositions)
	}
	if !st.GuardBlocked {
		t.Error("guard_blocked must surface in the status snapshot")
	}
	// The two closest levels filled; the rest stay WAITING.
	for i, lvl := range st.BuyLevels {
		want := domain.LevelWaiting
		if i < 2 {
			want = domain.LevelFilled
		}
		if lvl.Status != want {
			t.Errorf("level %d: got %s, want %s", i, lvl.Status, want)
		}
	}
}

func TestEngine_BuyPacketCapRespected(t *testing.T) {
	cfg := testConfig()
	cfg.LevelsPerSide = 5
	cfg.BuyPacketCap = 3
	cfg.SellPacketCap = 10
	cfg.StartCashUSD = 1000
	cfg.Reanchor.Enabled = false
	e, src, advance := newTestEngine(cfg)
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)
	(*advance)(time.Second)
	src.set(80)
	e.Tick(ctx)

	if st := e.Status(); st.OpenPositions != 3 {
		t.Errorf("open positions %d exceed buy packet cap 3", st.OpenPositions)
	}
}

func TestEngine_CashGuardHaltsBuyPass(t *testing.T) {
	cfg := testConfig()
	cfg.LevelsPerSide = 4
	cfg.BuyPacketCap = 10
	cfg.SellPacketCap = 10
	cfg.StartCashUSD = 30 // enough for one $25 lot only
	cfg.Reanchor.Enabled = false
	e, src, advance := newTestEngine(cfg)
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)
	(*advance)(time.Second)
	src.set(90)
	e.Tick(ctx)

	st := e.Status()
	if st.OpenPositions != 1 {
		t.Fatalf("expected 1 open, got %d", st.OpenPositions)
	}
	if st.Balances.CashUSD < 0 {
		t.Errorf("cash went negative: %v", st.Balances.CashUSD)
	}
	if !st.GuardBlocked {
		t.Error("cash guard must set guard_blocked")
	}
}

func TestEngine_SellWithNoPositionLeavesLevelWaiting(t *testing.T) {
	e, src, advance := newTestEngine(testConfig())
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)
	(*advance)(time.Second)
	src.set(101.5) // above the sell level, nothing to close
	e.Tick(ctx)

	st := e.Status()
	if st.SellLevels[0].Status != domain.LevelWaiting {
		t.Error("sell level must stay WAITING when the book is flat")
	}
	if st.SellCount != 0 {
		t.Errorf("expected no sells, got %d", st.SellCount)
	}
}

// FIFO: three lots opened cheapest-last close oldest-first regardless of
// entry price.
func TestEngine_FIFOClosingAcrossTicks(t *testing.T) {
	cfg := testConfig()
	cfg.LevelsPerSide = 3
	cfg.BuyPacketCap = 3
	cfg.SellPacketCap = 3
	cfg.StartCashUSD = 1000
	e, src, advance := newTestEngine(cfg)
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)

	// Fill the three buy levels one at a time (99, 98, 97).
	for _, p := range []float64{99, 98, 97} {
		(*advance)(time.Second)
		src.set(p)
		e.Tick(ctx)
	}

	st := e.Status()
	if st.OpenPositions != 3 {
		t.Fatalf("expected 3 opens, got %d", st.OpenPositions)
	}
	firstID := st.Positions[0].ID

	// Blow through all three sell levels in one tick.
	(*advance)(time.Second)
	src.set(104)
	e.Tick(ctx)

	st = e.Status()
	if st.OpenPositions != 0 {
		t.Fatalf("expected flat, got %d", st.OpenPositions)
	}
	// The journaled ring is newest-first; the oldest position closed first.
	fills := st.RecentFills
	var sellIDs []int64
	for i := len(fills) - 1; i >= 0; i-- {
		if fills[i].Side == domain.SideSell {
			sellIDs = append(sellIDs, fills[i].PositionID)
		}
	}
	if len(sellIDs) != 3 {
		t.Fatalf("expected 3 sell fills, got %d", len(sellIDs))
	}
	for i, id := range sellIDs {
		if id != firstID+int64(i) {
			t.Errorf("sell %d closed position %d, want %d (FIFO)", i, id, firstID+int64(i))
		}
	}
}

// Portfolio identity: equity == startCash + startAsset*mark + realized +
// unrealized, at every tick.
func TestEngine_PnlIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.LevelsPerSide = 4
	cfg.BuyPacketCap = 4
	cfg.SellPacketCap = 4
	cfg.StartCashUSD = 500
	cfg.StartAssetQty = 0.5
	e, src, advance := newTestEngine(cfg)
	ctx := context.Background()

	prices := []float64{100, 98.4, 96.1, 99.7, 101.2, 103.9, 97.2, 100.3, 104.1}
	for _, p := range prices {
		src.set(p)
		e.Tick(ctx)
		(*advance)(30 * time.Second)

		st := e.Status()
		want := cfg.StartCashUSD + cfg.StartAssetQty*st.MarkPriceUSD +
			st.RealizedPnl + st.UnrealizedPnl
		if math.Abs(st.EquityUSD-want) > 1e-6 {
			t.Fatalf("at price %v: equity %v != identity %v", p, st.EquityUSD, want)
		}
		st.Balances.VerifyInvariant()
	}
}

// A re-anchor and a fill never happen in the same tick, and the re-anchor
// discards the ladder wholesale.
func TestEngine_ReanchorSkipsFillsSameTick(t *testing.T) {
	cfg := testConfig()
	cfg.LevelsPerSide = 2
	e, src, advance := newTestEngine(cfg)
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)

	// 6% below anchor: over the drift trigger AND through both buy levels.
	// No fill has ever happened and the cooldown has long passed.
	(*advance)(2 * time.Hour)
	src.set(94)
	e.Tick(ctx)

	st := e.Status()
	if st.AnchorPrice == nil || *st.AnchorPrice != 94 {
		t.Fatalf("expected re-anchor to 94, got %v", st.AnchorPrice)
	}
	if st.OpenPositions != 0 || st.FillCount != 0 {
		t.Error("fills must not run on a re-anchor tick")
	}
	for _, lvl := range st.BuyLevels {
		if lvl.Status != domain.LevelWaiting {
			t.Error("rebuilt ladder must be all WAITING")
		}
	}
	if st.LastReanchorUnixM == 0 {
		t.Error("last re-anchor timestamp must be recorded")
	}
}

func TestEngine_ReanchorBlockedByRecentFill(t *testing.T) {
	e, src, advance := newTestEngine(testConfig())
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)

	// Trade at 99 to stamp lastFillAt.
	(*advance)(time.Second)
	src.set(99)
	e.Tick(ctx)

	// Three minutes later, 6% drift. Recent fill must block the re-anchor.
	(*advance)(3 * time.Minute)
	src.set(94)
	e.Tick(ctx)

	st := e.Status()
	if st.AnchorPrice == nil || *st.AnchorPrice != 100 {
		t.Fatalf("anchor must remain 100, got %v", st.AnchorPrice)
	}
	if st.ReanchorReason != ReasonRecentFill {
		t.Errorf("expected reason %s, got %s", ReasonRecentFill, st.ReanchorReason)
	}
}

func TestEngine_PersistAndJournalOnTick(t *testing.T) {
	cfg := testConfig()
	src := &stubPrice{}
	store := &captureStore{}
	journal := &captureJournal{}
	e := New(cfg, src, store, journal)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	ctx := context.Background()

	src.set(100)
	e.Tick(ctx)
	if store.saved == nil {
		t.Fatal("expected a snapshot save after the tick")
	}
	if store.saved.Seq != 1 {
		t.Errorf("expected seq 1, got %d", store.saved.Seq)
	}

	now = now.Add(time.Second)
	src.set(99)
	e.Tick(ctx)

	if len(journal.events) != 1 || journal.events[0].Side != domain.SideBuy {
		t.Fatalf("expected one journaled BUY, got %v", journal.events)
	}
	if journal.events[0].ID == "" {
		t.Error("fill events must carry an id")
	}
}

// Export → Restore → Export must round-trip exactly, including through JSON.
func TestEngine_StateRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.LevelsPerSide = 3
	cfg.BuyPacketCap = 3
	cfg.SellPacketCap = 3
	cfg.StartCashUSD = 300
	e, src, advance := newTestEngine(cfg)
	ctx := context.Background()

	for _, p := range []float64{100, 98.9, 97.8, 101.2} {
		src.set(p)
		e.Tick(ctx)
		(*advance)(time.Minute)
	}

	exported := e.ExportState()

	data, err := json.Marshal(exported)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded domain.EngineState
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	restored := New(cfg, src, nil, nil)
	restored.Restore(&decoded)
	again := restored.ExportState()

	if !reflect.DeepEqual(exported, again) {
		t.Errorf("state did not round-trip:\n got %+v\nwant %+v", again, exported)
	}
}
