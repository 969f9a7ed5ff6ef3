// Latency-arbitrage trading pipeline for short-dated Polymarket crypto
// prediction markets.
//
// Architecture:
//
//	main.go                  — entry point: loads config, starts the engine, waits for SIGINT/SIGTERM
//	engine/engine.go         — orchestrator: wires discovery, feeds, pricing, strategy, and execution
//	market/discovery.go      — polls the Gamma catalog for short-dated BTC/ETH/SOL binary markets
//	market/parser.go         — extracts asset and strike from a market's question text
//	exchange/spotfeed.go     — reconnecting WS feed of centralized-exchange spot trades
//	exchange/bookfeed.go     — reconnecting WS feed of per-market order book snapshots
//	pricing/engine.go        — rolling volatility estimate + Black-Scholes fair value per market
//	strategy/engine.go       — latency-arb and static-arb detection, cooldown-gated firing
//	strategy/risk.go         — inline per-order admission gate against position/account caps
//	exchange/signer.go       — EIP-712 order signing
//	exchange/submitter.go    — rate-limited, signed order submission to the CLOB
//	risk/manager.go          — supervisory kill switch: global exposure, daily loss, price shocks
//
// How it makes money:
//
//	A 15-minute binary market's price should track the Black-Scholes fair
//	value implied by the underlying spot price. When the market lags a
//	spot move, this pipeline detects the gap and fires a taker order
//	before the market catches up. It also fires on a crossed book
//	(best bid above best ask) independent of any fair-value model.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sniper/internal/config"
	"sniper/internal/engine"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("POLY_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	eng, err := engine.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng.Start(ctx)

	logger.Info("latency-arb pipeline started",
		"max_markets_active", cfg.Risk.MaxMarketsActive,
		"min_size_usdc", cfg.Strategy.MinSizeUSDC,
		"dry_run", cfg.DryRun,
	)

	<-ctx.Done()
	logger.Info("received shutdown signal")

	eng.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
