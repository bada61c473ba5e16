// pricecheck queries each configured REST quote provider once and prints
// what it returned. Handy for verifying API reachability before starting
// the simulator.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/infra"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/oracle"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		return
	}

	fmt.Printf("=== %s price check (%s) ===\n\n", cfg.App.Name, cfg.Trading.Symbol)

	providers := []oracle.Provider{
		oracle.NewCoinbaseProvider(cfg.Oracle.CoinbaseURL),
		oracle.NewBinanceProvider(cfg.Oracle.BinanceURL),
		oracle.NewCoinGeckoProvider(cfg.Oracle.CoinGeckoURL),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var prices []float64
	for _, p := range providers {
		start := time.Now()
		quote, err := p.Fetch(ctx)
		elapsed := time.Since(start).Round(time.Millisecond)

		if err != nil {
			fmt.Printf("  %-10s FAIL  %v (%s)\n", p.Name(), err, elapsed)
			continue
		}
		fmt.Printf("  %-10s $%.4f  (%s)\n", p.Name(), quote.PriceUSD, elapsed)
		prices = append(prices, quote.PriceUSD)
	}

	if len(prices) >= 2 {
		min, max := prices[0], prices[0]
		for _, v := range prices[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		fmt.Printf("\n  spread: $%.4f (%.3f%%)\n", max-min, (max-min)/min*100)
	}

	fmt.Printf("\nchain order: %v\n", cfg.Oracle.Providers)
}
