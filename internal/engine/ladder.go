package engine

import (
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/domain"
)

// BuildLadder computes both sides of the grid from an anchor price.
// Rung i (1..levelsPerSide) sits at anchor*(1 - buyStepPct*i) below and
// anchor*(1 + sellStepPct*i) above. Step percentages may differ per side:
// wider buy spacing slows inventory accumulation in a downtrend, tighter
// sell spacing raises exit frequency.
//
// Buys come back descending (closest to anchor first), sells ascending
// (closest first). Fill evaluation relies on this order to emulate
// "closest executes first". Pure function, all levels WAITING.
func BuildLadder(anchorPrice, buyStepPct, sellStepPct float64, levelsPerSide int) (buys, sells []domain.LadderLevel) {
	buys = make([]domain.LadderLevel, 0, levelsPerSide)
	sells = make([]domain.LadderLevel, 0, levelsPerSide)

	for i := 1; i <= levelsPerSide; i++ {
		buys = append(buys, domain.LadderLevel{
			Side:   domain.SideBuy,
			Price:  anchorPrice * (1 - buyStepPct*float64(i)),
			Status: domain.LevelWaiting,
		})
		sells = append(sells, domain.LadderLevel{
			Side:   domain.SideSell,
			Price:  anchorPrice * (1 + sellStepPct*float64(i)),
			Status: domain.LevelWaiting,
		})
	}
	return buys, sells
}
