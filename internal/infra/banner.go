package infra

import (
	"fmt"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner. Paper mode is the only mode, but
// the banner says so loudly anyway: nobody should mistake this for a live
// trader.
func PrintBanner(cfg *Config) {
	line := strings.Repeat("=", 52)

	fmt.Println(colorCyan + line + colorReset)
	fmt.Printf("%s  %s %s%s\n", colorCyan, cfg.App.Name, cfg.App.Version, colorReset)
	fmt.Printf("%s  mode: %s%s%s (SIMULATION, no real orders)%s\n",
		colorCyan, colorGreen, strings.ToUpper(cfg.Trading.Mode), colorYellow, colorReset)
	fmt.Printf("%s  symbol: %s | grid: %d/side @ %.2f%%/%.2f%% | notional: $%.2f%s\n",
		colorCyan,
		cfg.Trading.Symbol,
		cfg.Grid.LevelsPerSide,
		cfg.Grid.BuyStepPct*100,
		cfg.Grid.SellStepPct*100,
		cfg.Grid.OrderNotionalUSD,
		colorReset)
	fmt.Println(colorCyan + line + colorReset)
}
