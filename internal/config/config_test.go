package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
dry_run: true
wallet:
  private_key: "0xabc"
  chain_id: 137
api:
  clob_base_url: "https://clob.example.com"
  gamma_base_url: "https://gamma.example.com"
  spot_ws_url: "wss://spot.example.com"
  book_ws_url: "wss://book.example.com"
pricing:
  fallback_vol: 0.5
  vol_safety_factor: 1.5
  vol_window_sec: 60
  risk_free_rate: 0.05
strategy:
  min_latency_edge: 0.02
  min_static_edge: 0.01
  min_size_usdc: 10
  max_position_usdc: 100
  max_account_risk: 500
  cooldown_ms: 200
risk:
  max_position_per_market: 100
  max_global_exposure: 500
  max_markets_active: 20
  kill_switch_drop_pct: 0.05
  kill_switch_window_sec: 10
  max_daily_loss: 200
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.DryRun {
		t.Error("DryRun should be true")
	}
	if cfg.Strategy.MaxPositionUSDC != 100 {
		t.Errorf("MaxPositionUSDC = %v, want 100", cfg.Strategy.MaxPositionUSDC)
	}
	if cfg.Strategy.CooldownMs != 200 {
		t.Errorf("CooldownMs = %v, want 200", cfg.Strategy.CooldownMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("POLY_PRIVATE_KEY", "0xoverride")
	t.Setenv("POLY_API_KEY", "env-key")

	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Wallet.PrivateKey != "0xoverride" {
		t.Errorf("PrivateKey = %q, want env override", cfg.Wallet.PrivateKey)
	}
	if cfg.API.ApiKey != "env-key" {
		t.Errorf("ApiKey = %q, want env override", cfg.API.ApiKey)
	}
}

func TestValidateRejectsMissingPrivateKey(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing private key")
	}
}

func TestValidateRejectsZeroMaxPosition(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Strategy.MaxPositionUSDC = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a zero max position cap")
	}
}
