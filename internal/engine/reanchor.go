package engine

import (
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/pkg/safe"
)

// Re-anchor decision reasons. Guard blocks are expected control flow and show
// up in the status snapshot, never in error logs.
const (
	ReasonDisabled   = "disabled"
	ReasonNoAnchor   = "no_anchor"
	ReasonBadPrice   = "bad_price"
	ReasonSmallDrift = "drift_below_trigger"
	ReasonCooldown   = "cooldown_active"
	ReasonRecentFill = "recent_fill"
	ReasonUsageCap   = "usage_above_cap"
	ReasonDriftMoved = "drift_exceeded"
)

// ReanchorConfig holds the guardrails for recentering the ladder.
type ReanchorConfig struct {
	Enabled         bool
	DriftTriggerPct float64       // fraction, e.g. 0.04 for 4%
	Cooldown        time.Duration // min time between re-anchors
	NoFillWindow    time.Duration // refuse right after trading activity
	MaxUsagePct     float64       // refuse while either side is this consumed
}

// DefaultReanchorConfig mirrors the shipped defaults: 4% drift trigger, 45m
// cooldown, 10m no-fill window, 80% usage cap.
func DefaultReanchorConfig() ReanchorConfig {
	return ReanchorConfig{
		Enabled:         true,
		DriftTriggerPct: 0.04,
		Cooldown:        45 * time.Minute,
		NoFillWindow:    10 * time.Minute,
		MaxUsagePct:     0.80,
	}
}

// ReanchorInput is everything the decision function looks at for one tick.
type ReanchorInput struct {
	Now          time.Time
	PriceUSD     float64
	HasAnchor    bool
	AnchorPrice  float64
	LastReanchor time.Time
	LastFill     time.Time
	BuyUsagePct  float64
	SellUsagePct float64
}

// ShouldReanchor runs the AND-chained guards. All guards must pass for the
// controller to fire; the first tripped guard names the reason. The order is
// fixed so a block is always attributed to its first cause: a recent fill
// masks a large drift.
func (c ReanchorConfig) ShouldReanchor(in ReanchorInput) (bool, string) {
	if !c.Enabled {
		return false, ReasonDisabled
	}
	if !in.HasAnchor || in.AnchorPrice <= 0 {
		return false, ReasonNoAnchor
	}
	if !safe.FinitePositive(in.PriceUSD) {
		return false, ReasonBadPrice
	}
	if safe.Pct(in.PriceUSD, in.AnchorPrice) < c.DriftTriggerPct {
		return false, ReasonSmallDrift
	}
	if in.Now.Sub(in.LastReanchor) < c.Cooldown {
		return false, ReasonCooldown
	}
	if in.Now.Sub(in.LastFill) < c.NoFillWindow {
		return false, ReasonRecentFill
	}
	if in.BuyUsagePct >= c.MaxUsagePct || in.SellUsagePct >= c.MaxUsagePct {
		return false, ReasonUsageCap
	}
	return true, ReasonDriftMoved
}
