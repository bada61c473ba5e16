// Package app wires configuration, storage and the price oracle into a
// ready-to-run simulator. main stays thin; everything that can fail at
// startup fails here.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/engine"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/infra"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/oracle"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/storage"
)

// Bootstrap holds everything Initialize builds.
type Bootstrap struct {
	Config    *infra.Config
	Journal   *storage.FillJournal
	Snapshots *storage.SnapshotManager
	Oracle    *oracle.Chain
	Stream    *infra.WSWorker // nil when binance_ws is not configured

	unlock func()
}

// NewBootstrap creates an empty Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs the startup sequence: env, config, logging,
// workspace layout, instance lock, journal, snapshots and the oracle.
func (b *Bootstrap) Initialize() error {
	// .env is optional; real env vars still win inside LoadConfig.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	infra.PrintBanner(cfg)

	mode := strings.ToLower(cfg.Trading.Mode)
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	snapDir := filepath.Join(workDir, "snapshots", mode)

	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(snapDir); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	// One process per workspace: two engines sharing a journal would
	// corrupt each other's state.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	journal, err := storage.NewFillJournal(filepath.Join(dataDir, "fills.db"))
	if err != nil {
		b.unlock()
		return err
	}
	b.Journal = journal
	slog.Info("fill journal ready",
		slog.String("dir", dataDir),
		slog.String("run_id", journal.RunID()))

	b.Snapshots = storage.NewSnapshotManager(snapDir, cfg.Storage.KeepSnapshots)

	if err := b.buildOracle(); err != nil {
		b.Close()
		return err
	}

	infra.RegisterMetrics()
	return nil
}

// buildOracle assembles the provider chain in configured order.
func (b *Bootstrap) buildOracle() error {
	cfg := b.Config
	var providers []oracle.Provider

	for _, name := range cfg.Oracle.Providers {
		switch name {
		case "binance_ws":
			p := oracle.NewBinanceStreamProvider(
				cfg.Oracle.WSStream,
				time.Duration(cfg.Oracle.WSMaxAgeSec)*time.Second,
			)
			providers = append(providers, p)
			b.Stream = oracle.NewStreamWorker(p)
		case "coinbase":
			providers = append(providers, oracle.NewCoinbaseProvider(cfg.Oracle.CoinbaseURL))
		case "coingecko":
			providers = append(providers, oracle.NewCoinGeckoProvider(cfg.Oracle.CoinGeckoURL))
		case "binance":
			providers = append(providers, oracle.NewBinanceProvider(cfg.Oracle.BinanceURL))
		default:
			return fmt.Errorf("unknown oracle provider %q", name)
		}
	}

	b.Oracle = oracle.NewChain(time.Duration(cfg.Oracle.BudgetSec)*time.Second, providers...)
	return nil
}

// EngineConfig maps the file configuration onto the engine's view of it.
func (b *Bootstrap) EngineConfig() engine.Config {
	cfg := b.Config
	return engine.Config{
		Symbol:           cfg.Trading.Symbol,
		TickInterval:     cfg.TickInterval(),
		LevelsPerSide:    cfg.Grid.LevelsPerSide,
		BuyStepPct:       cfg.Grid.BuyStepPct,
		SellStepPct:      cfg.Grid.SellStepPct,
		OrderNotionalUSD: cfg.Grid.OrderNotionalUSD,
		BuyPacketCap:     cfg.Grid.BuyPacketCap,
		SellPacketCap:    cfg.Grid.SellPacketCap,
		StartCashUSD:     cfg.Grid.StartCashUSD,
		StartAssetQty:    cfg.Grid.StartAssetQty,
		FillHistory:      cfg.Grid.FillHistory,
		Reanchor: engine.ReanchorConfig{
			Enabled:         cfg.Reanchor.Enabled,
			DriftTriggerPct: cfg.Reanchor.DriftTriggerPct,
			Cooldown:        time.Duration(cfg.Reanchor.CooldownMin) * time.Minute,
			NoFillWindow:    time.Duration(cfg.Reanchor.NoFillWindowMin) * time.Minute,
			MaxUsagePct:     cfg.Reanchor.MaxUsagePct,
		},
	}
}

// Close releases everything Initialize acquired, in reverse order.
func (b *Bootstrap) Close() {
	if b.Journal != nil {
		if err := b.Journal.Close(); err != nil {
			slog.Warn("journal close failed", slog.Any("error", err))
		}
		b.Journal = nil
	}
	if b.unlock != nil {
		b.unlock()
		b.unlock = nil
	}
}
