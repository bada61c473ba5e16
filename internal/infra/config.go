package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full static process configuration. Loaded once at
// bootstrap; no dynamic reconfiguration during a run.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode   string `yaml:"mode"`   // "paper" is the only supported mode
		Symbol string `yaml:"symbol"` // e.g. "SOL-USD"
	} `yaml:"trading"`

	Grid struct {
		TickIntervalSec  int     `yaml:"tick_interval_sec"`
		LevelsPerSide    int     `yaml:"levels_per_side"`
		BuyStepPct       float64 `yaml:"buy_step_pct"`  // fraction per rung
		SellStepPct      float64 `yaml:"sell_step_pct"` // may differ from buy side
		OrderNotionalUSD float64 `yaml:"order_notional_usd"`
		BuyPacketCap     int     `yaml:"buy_packet_cap"`
		SellPacketCap    int     `yaml:"sell_packet_cap"`
		StartCashUSD     float64 `yaml:"start_cash_usd"`
		StartAssetQty    float64 `yaml:"start_asset_qty"`
		FillHistory      int     `yaml:"fill_history"`
	} `yaml:"grid"`

	Reanchor struct {
		Enabled         bool    `yaml:"enabled"`
		DriftTriggerPct float64 `yaml:"drift_trigger_pct"`
		CooldownMin     int     `yaml:"cooldown_min"`
		NoFillWindowMin int     `yaml:"no_fill_window_min"`
		MaxUsagePct     float64 `yaml:"max_usage_pct"`
	} `yaml:"reanchor"`

	Oracle struct {
		Providers    []string `yaml:"providers"` // tried in order
		BudgetSec    int      `yaml:"budget_sec"`
		WSStream     string   `yaml:"ws_stream"`
		WSMaxAgeSec  int      `yaml:"ws_max_age_sec"`
		CoinbaseURL  string   `yaml:"coinbase_url"`
		CoinGeckoURL string   `yaml:"coingecko_url"`
		BinanceURL   string   `yaml:"binance_url"`
	} `yaml:"oracle"`

	Server struct {
		Addr string `yaml:"addr"` // status/dashboard bind address
	} `yaml:"server"`

	Storage struct {
		KeepSnapshots int `yaml:"keep_snapshots"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns the shipped defaults, used when no config file is
// present and as the base the YAML overlays.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "solana-paper-grid"
	cfg.App.Version = "dev"
	cfg.Trading.Mode = "paper"
	cfg.Trading.Symbol = "SOL-USD"

	cfg.Grid.TickIntervalSec = 30
	cfg.Grid.LevelsPerSide = 6
	cfg.Grid.BuyStepPct = 0.01
	cfg.Grid.SellStepPct = 0.01
	cfg.Grid.OrderNotionalUSD = 25
	cfg.Grid.BuyPacketCap = 6
	cfg.Grid.SellPacketCap = 6
	cfg.Grid.StartCashUSD = 500
	cfg.Grid.FillHistory = 10

	cfg.Reanchor.Enabled = true
	cfg.Reanchor.DriftTriggerPct = 0.04
	cfg.Reanchor.CooldownMin = 45
	cfg.Reanchor.NoFillWindowMin = 10
	cfg.Reanchor.MaxUsagePct = 0.80

	cfg.Oracle.Providers = []string{"binance_ws", "coinbase", "binance", "coingecko"}
	cfg.Oracle.BudgetSec = 10
	cfg.Oracle.WSStream = "wss://stream.binance.com:9443/ws/solusdt@trade"
	cfg.Oracle.WSMaxAgeSec = 30
	cfg.Oracle.CoinbaseURL = "https://api.coinbase.com/v2/prices/SOL-USD/spot"
	cfg.Oracle.CoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	cfg.Oracle.BinanceURL = "https://api.binance.com/api/v3/ticker/price?symbol=SOLUSDT"

	cfg.Server.Addr = ":8787"
	cfg.Storage.KeepSnapshots = 5
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and validates the YAML config file. A missing file is not
// an error: defaults apply. Environment variables override last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity before the engine ever runs.
func (c *Config) Validate() error {
	if c.Trading.Mode != "paper" {
		return fmt.Errorf("unsupported trading mode %q: only paper is implemented", c.Trading.Mode)
	}
	if c.Grid.TickIntervalSec <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.Grid.LevelsPerSide <= 0 {
		return fmt.Errorf("levels per side must be positive")
	}
	if c.Grid.BuyStepPct <= 0 || c.Grid.SellStepPct <= 0 {
		return fmt.Errorf("step percentages must be positive")
	}
	// The deepest buy rung must stay above zero.
	if c.Grid.BuyStepPct*float64(c.Grid.LevelsPerSide) >= 1 {
		return fmt.Errorf("buy_step_pct * levels_per_side must be < 1 (deepest rung would be non-positive)")
	}
	if c.Grid.OrderNotionalUSD <= 0 {
		return fmt.Errorf("order notional must be positive")
	}
	if c.Grid.BuyPacketCap <= 0 || c.Grid.SellPacketCap <= 0 {
		return fmt.Errorf("packet capacities must be positive")
	}
	if c.Grid.StartCashUSD < 0 || c.Grid.StartAssetQty < 0 {
		return fmt.Errorf("starting balances must be non-negative")
	}
	if c.Reanchor.DriftTriggerPct <= 0 || c.Reanchor.MaxUsagePct <= 0 || c.Reanchor.MaxUsagePct > 1 {
		return fmt.Errorf("re-anchor thresholds out of range")
	}
	if len(c.Oracle.Providers) == 0 {
		return fmt.Errorf("at least one oracle provider is required")
	}
	if c.Oracle.BudgetSec <= 0 {
		return fmt.Errorf("oracle budget must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	return nil
}

// TickInterval returns the tick cadence as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Grid.TickIntervalSec) * time.Second
}

// overrideWithEnv applies GRID_* environment variables over the file values.
// Env wins so deployments can tweak without editing the config file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("GRID_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GRID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GRID_TICK_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Grid.TickIntervalSec = n
		}
	}
	if v := os.Getenv("GRID_START_CASH_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Grid.StartCashUSD = f
		}
	}
	if v := os.Getenv("GRID_REANCHOR_ENABLED"); v != "" {
		cfg.Reanchor.Enabled = v == "1" || v == "true"
	}
}
