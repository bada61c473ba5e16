package domain

// SnapshotVersion is the current schema version of EngineState on disk.
// Older snapshots are migrated once at load time, never in business logic.
const SnapshotVersion = 1

// EngineState is the full serializable engine state. Saving then loading
// must round-trip exactly.
type EngineState struct {
	Version int    `json:"version"`
	Seq     uint64 `json:"seq"` // completed tick count

	AnchorPrice        *float64 `json:"anchor_price"` // nil before first quote
	AnchorCreatedUnixM int64    `json:"anchor_created_unix"`

	BuyLevels  []LadderLevel `json:"buy_levels"`
	SellLevels []LadderLevel `json:"sell_levels"`

	Balances Balances    `json:"balances"`
	Ledger   LedgerState `json:"ledger"`

	LastReanchorUnixM int64 `json:"last_reanchor_unix"`
	LastFillUnixM     int64 `json:"last_fill_unix"`

	RecentFills []FillEvent `json:"recent_fills"` // newest first

	LastPriceUSD float64 `json:"last_price_usd"`
	LastSource   string  `json:"last_source"`
}

// Migrate normalizes a loaded state to the current schema. Runs exactly once
// at load time; defaulting never leaks into tick logic.
func (s *EngineState) Migrate() {
	if s.Version == 0 {
		// Pre-versioned snapshots carried no recent-fill history.
		s.Version = SnapshotVersion
	}
	if s.RecentFills == nil {
		s.RecentFills = []FillEvent{}
	}
	if s.BuyLevels == nil {
		s.BuyLevels = []LadderLevel{}
	}
	if s.SellLevels == nil {
		s.SellLevels = []LadderLevel{}
	}
	if s.Ledger.Positions == nil {
		s.Ledger.Positions = []Position{}
	}
	if s.Ledger.NextPositionID < 1 {
		s.Ledger.NextPositionID = 1
	}
}
