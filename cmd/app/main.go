package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daveandrewz81-eng/solana-paper-grid/internal/api"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/app"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/engine"
	"github.com/daveandrewz81-eng/solana-paper-grid/internal/infra"
)

func main() {
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(bootstrap.EngineConfig(), bootstrap.Oracle, bootstrap.Snapshots, bootstrap.Journal)

	// Resume from the latest snapshot when one exists. Persistence errors
	// are never fatal: the engine runs in-memory and the next save
	// supersedes whatever is on disk.
	if state, err := bootstrap.Snapshots.LoadLatest(); err != nil {
		slog.Warn("snapshot load failed, starting fresh", slog.Any("error", err))
	} else if state != nil {
		eng.Restore(state)
		slog.Info("resumed from snapshot", slog.Uint64("seq", state.Seq))
	}

	// The hook runs on the engine goroutine after each tick, so plain
	// locals are safe for the delta tracking. Baselines come from the
	// restored state so resumed history is not re-counted.
	base := eng.Status()
	prevBuys, prevSells := base.BuyCount, base.SellCount
	lastReanchorUnixM := base.LastReanchorUnixM
	eng.SetTickHook(func(st engine.Status) {
		infra.MtxTicks.Inc()
		infra.MtxMarkPrice.Set(st.MarkPriceUSD)
		infra.MtxEquity.Set(st.EquityUSD)
		infra.MtxRealizedPnl.Set(st.RealizedPnl)
		infra.MtxOpenPositions.Set(float64(st.OpenPositions))
		if st.GuardBlocked {
			infra.MtxGuardBlocked.Set(1)
		} else {
			infra.MtxGuardBlocked.Set(0)
		}

		if d := st.BuyCount - prevBuys; d > 0 {
			infra.MtxFills.WithLabelValues("BUY").Add(float64(d))
		}
		if d := st.SellCount - prevSells; d > 0 {
			infra.MtxFills.WithLabelValues("SELL").Add(float64(d))
		}
		prevBuys, prevSells = st.BuyCount, st.SellCount

		if st.LastReanchorUnixM != lastReanchorUnixM {
			if lastReanchorUnixM != 0 {
				infra.MtxReanchors.Inc()
			}
			lastReanchorUnixM = st.LastReanchorUnixM
		}
	})

	if bootstrap.Stream != nil {
		bootstrap.Stream.Start(ctx)
		defer bootstrap.Stream.Stop()
	}

	server := api.NewServer(bootstrap.Config.Server.Addr, eng, bootstrap.Journal)
	go func() {
		if err := server.Start(); err != nil {
			// The dashboard is part of the contract; a dead bind means
			// a half-alive process nobody can observe.
			slog.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	slog.Info("engine starting",
		slog.String("symbol", bootstrap.Config.Trading.Symbol),
		slog.Duration("tick", bootstrap.Config.TickInterval()))

	eng.Run(ctx)

	// Shutdown: final snapshot (Save prunes to the keep bound), drain HTTP.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown failed", slog.Any("error", err))
	}
	if err := bootstrap.Snapshots.Save(eng.ExportState()); err != nil {
		slog.Error("final snapshot failed", slog.Any("error", err))
	}

	slog.Info("shutdown complete")
}
