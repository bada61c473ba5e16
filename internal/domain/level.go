package domain

// Side identifies which half of the ladder a level belongs to.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// LevelStatus tracks whether a ladder level has fired.
// Levels are one-shot: FILLED never transitions back to WAITING; the whole
// ladder is replaced on re-anchor instead of refreshing individual rungs.
type LevelStatus string

const (
	LevelWaiting LevelStatus = "WAITING"
	LevelFilled  LevelStatus = "FILLED"
)

// LadderLevel is one rung of the grid.
type LadderLevel struct {
	Side   Side        `json:"side"`
	Price  float64     `json:"price"`
	Status LevelStatus `json:"status"`
}

// UsagePct returns the fraction of levels already consumed, 0..1.
// Zero levels counts as fully used: an empty side can serve no fills.
func UsagePct(levels []LadderLevel) float64 {
	if len(levels) == 0 {
		return 1
	}
	filled := 0
	for _, lvl := range levels {
		if lvl.Status == LevelFilled {
			filled++
		}
	}
	return float64(filled) / float64(len(levels))
}
