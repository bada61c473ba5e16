package engine

import (
	"math"
	"testing"
	"time"
)

func baseInput(now time.Time) ReanchorInput {
	return ReanchorInput{
		Now:          now,
		PriceUSD:     105, // 5% above anchor, over the 4% trigger
		HasAnchor:    true,
		AnchorPrice:  100,
		LastReanchor: now.Add(-2 * time.Hour),
		LastFill:     now.Add(-1 * time.Hour),
		BuyUsagePct:  0.25,
		SellUsagePct: 0.25,
	}
}

func TestShouldReanchor_FiresWhenAllGuardsPass(t *testing.T) {
	cfg := DefaultReanchorConfig()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	fire, reason := cfg.ShouldReanchor(baseInput(now))
	if !fire {
		t.Fatalf("expected fire, blocked by %s", reason)
	}
	if reason != ReasonDriftMoved {
		t.Errorf("expected reason %s, got %s", ReasonDriftMoved, reason)
	}
}

func TestShouldReanchor_GuardBlocks(t *testing.T) {
	cfg := DefaultReanchorConfig()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*ReanchorInput)
		cfg    func(*ReanchorConfig)
		reason string
	}{
		{
			name:   "Disabled",
			cfg:    func(c *ReanchorConfig) { c.Enabled = false },
			reason: ReasonDisabled,
		},
		{
			name:   "NoAnchor",
			mutate: func(in *ReanchorInput) { in.HasAnchor = false },
			reason: ReasonNoAnchor,
		},
		{
			name:   "NaNPrice",
			mutate: func(in *ReanchorInput) { in.PriceUSD = math.NaN() },
			reason: ReasonBadPrice,
		},
		{
			name:   "SmallDrift",
			mutate: func(in *ReanchorInput) { in.PriceUSD = 103 }, // 3% < 4%
			reason: ReasonSmallDrift,
		},
		{
			name:   "Cooldown",
			mutate: func(in *ReanchorInput) { in.LastReanchor = now.Add(-10 * time.Minute) },
			reason: ReasonCooldown,
		},
		{
			name:   "RecentFill",
			mutate: func(in *ReanchorInput) { in.LastFill = now.Add(-3 * time.Minute) },
			reason: ReasonRecentFill,
		},
		{
			name:   "BuyUsage",
			mutate: func(in *ReanchorInput) { in.BuyUsagePct = 0.80 },
			reason: ReasonUsageCap,
		},
		{
			name:   "SellUsage",
			mutate: func(in *ReanchorInput) { in.SellUsagePct = 0.95 },
			reason: ReasonUsageCap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			if tt.cfg != nil {
				tt.cfg(&c)
			}
			in := baseInput(now)
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			fire, reason := c.ShouldReanchor(in)
			if fire {
				t.Fatal("expected block")
			}
			if reason != tt.reason {
				t.Errorf("expected reason %s, got %s", tt.reason, reason)
			}
		})
	}
}

// Drift above trigger but a fill just happened: the block must be reported
// as recent-fill, not as a drift problem.
func TestShouldReanchor_RecentFillMasksDrift(t *testing.T) {
	cfg := DefaultReanchorConfig()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	in := baseInput(now)
	in.PriceUSD = 105 // 5% drift, above the 4% trigger
	in.LastFill = now.Add(-5 * time.Minute)

	fire, reason := cfg.ShouldReanchor(in)
	if fire {
		t.Fatal("expected block")
	}
	if reason != ReasonRecentFill {
		t.Errorf("expected %s, got %s", ReasonRecentFill, reason)
	}
}

func TestShouldReanchor_DownwardDrift(t *testing.T) {
	cfg := DefaultReanchorConfig()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	in := baseInput(now)
	in.PriceUSD = 95 // 5% below anchor

	fire, _ := cfg.ShouldReanchor(in)
	if !fire {
		t.Error("drift is absolute: 5% below anchor must fire too")
	}
}
