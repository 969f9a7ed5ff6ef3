// Package config defines all configuration for the latency-arbitrage bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via POLY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	API       APIConfig       `mapstructure:"api"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// WalletConfig holds the Ethereum wallet used for signing orders.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	ChainID    int    `mapstructure:"chain_id"`
}

// APIConfig holds exchange endpoints and the static API key used to
// authenticate order submission.
type APIConfig struct {
	CLOBBaseURL  string `mapstructure:"clob_base_url"`
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	SpotWSURL    string `mapstructure:"spot_ws_url"`
	BookWSURL    string `mapstructure:"book_ws_url"`
	ApiKey       string `mapstructure:"api_key"`
}

// PricingConfig tunes the rolling volatility estimator and the Black-Scholes
// binary-option pricer. See internal/pricing.Config for field semantics.
type PricingConfig struct {
	FallbackVol     float64 `mapstructure:"fallback_vol"`
	VolSafetyFactor float64 `mapstructure:"vol_safety_factor"`
	VolWindowSec    int     `mapstructure:"vol_window_sec"`
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
}

// StrategyConfig tunes the latency-arbitrage and static-arbitrage detectors
// and the inline per-order risk gate that admits or blocks each fire. See
// internal/strategy.Config for field semantics.
type StrategyConfig struct {
	MinLatencyEdge     float64 `mapstructure:"min_latency_edge"`
	MinStaticEdge      float64 `mapstructure:"min_static_edge"`
	MinSizeUSDC        float64 `mapstructure:"min_size_usdc"`
	MaxPositionUSDC    float64 `mapstructure:"max_position_usdc"`
	MaxAccountRiskUSDC float64 `mapstructure:"max_account_risk"`
	CooldownMs         int     `mapstructure:"cooldown_ms"`
}

// RiskConfig sets the supervisory kill-switch limits the risk manager
// monitors independently of the strategy's own per-order admission gate.
// These limits exist to halt trading entirely on a runaway condition the
// per-order gate is too local to see: an account-wide loss streak, or a
// market lurching through a price region no model should be trusted in.
//
//   - MaxPositionPerMarket: max USD exposure in any single market.
//   - MaxGlobalExposure: max USD exposure across ALL active markets combined.
//   - MaxMarketsActive: reported in startup logs and the risk snapshot; no
//     component limits the number of markets traded against it.
//   - KillSwitchDropPct: if price moves this % within the window, kill switch fires.
//   - KillSwitchWindowSec: time window for measuring rapid price movement.
//   - MaxDailyLoss: max combined (realized + unrealized) loss before kill switch.
//   - CooldownAfterKill: how long the kill switch stays engaged after firing.
type RiskConfig struct {
	MaxPositionPerMarket float64       `mapstructure:"max_position_per_market"`
	MaxGlobalExposure    float64       `mapstructure:"max_global_exposure"`
	MaxMarketsActive     int           `mapstructure:"max_markets_active"`
	KillSwitchDropPct    float64       `mapstructure:"kill_switch_drop_pct"`
	KillSwitchWindowSec  int           `mapstructure:"kill_switch_window_sec"`
	MaxDailyLoss         float64       `mapstructure:"max_daily_loss"`
	CooldownAfterKill    time.Duration `mapstructure:"cooldown_after_kill"`
}

// DiscoveryConfig controls how the bot discovers and retires tradeable
// markets from the catalog feed.
type DiscoveryConfig struct {
	AbsentPollsToDestroy int `mapstructure:"absent_polls_to_destroy"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: POLY_PRIVATE_KEY, POLY_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("POLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("POLY_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("POLY_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if os.Getenv("POLY_DRY_RUN") == "true" || os.Getenv("POLY_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (set POLY_PRIVATE_KEY)")
	}
	if c.Wallet.ChainID == 0 {
		return fmt.Errorf("wallet.chain_id is required (137 for mainnet)")
	}
	if c.API.CLOBBaseURL == "" {
		return fmt.Errorf("api.clob_base_url is required")
	}
	if c.API.SpotWSURL == "" {
		return fmt.Errorf("api.spot_ws_url is required")
	}
	if c.API.BookWSURL == "" {
		return fmt.Errorf("api.book_ws_url is required")
	}
	if c.Strategy.MinSizeUSDC <= 0 {
		return fmt.Errorf("strategy.min_size_usdc must be > 0")
	}
	if c.Strategy.MaxPositionUSDC <= 0 {
		return fmt.Errorf("strategy.max_position_usdc must be > 0")
	}
	if c.Strategy.MaxAccountRiskUSDC <= 0 {
		return fmt.Errorf("strategy.max_account_risk must be > 0")
	}
	if c.Risk.MaxPositionPerMarket <= 0 {
		return fmt.Errorf("risk.max_position_per_market must be > 0")
	}
	if c.Risk.MaxGlobalExposure <= 0 {
		return fmt.Errorf("risk.max_global_exposure must be > 0")
	}
	if c.Risk.MaxMarketsActive <= 0 {
		return fmt.Errorf("risk.max_markets_active must be > 0")
	}
	if c.Pricing.VolWindowSec <= 0 {
		return fmt.Errorf("pricing.vol_window_sec must be > 0")
	}
	return nil
}
