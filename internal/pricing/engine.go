// Package pricing implements the rolling volatility estimator, the
// Black-Scholes binary-option pricer, and the PricingEngine that correlates
// spot ticks against discovered markets to publish fair-value updates.
package pricing

import (
	"context"
	"log/slog"
	"math"
	"time"

	"sniper/internal/bus"
	"sniper/pkg/types"
)

// Config tunes the PricingEngine's volatility and pricing behavior. Field
// names mirror the configuration surface documented for this pipeline
// (internal/config.PricingConfig); no defaults are applied.
type Config struct {
	FallbackVol     float64 // used when the estimator has too few samples
	VolSafetyFactor float64 // multiplier applied to the estimator's raw sigma
	VolWindowSec    int     // VolatilityEstimator window size
	RiskFreeRate    float64 // r in the Black-Scholes formula
}

// Engine subscribes to the bus, tracks per-symbol volatility and per-market
// metadata, and publishes FairValueUpdate whenever a spot tick arrives for
// an asset with at least one discovered market.
type Engine struct {
	cfg    Config
	bus    *bus.Bus
	logger *slog.Logger

	markets map[string]types.MarketMetadata      // market_id -> metadata
	vols    map[types.Asset]*VolatilityEstimator // asset -> rolling estimator
}

// New creates a PricingEngine.
func New(cfg Config, b *bus.Bus, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		bus:     b,
		logger:  logger.With("component", "pricing"),
		markets: make(map[string]types.MarketMetadata),
		vols:    make(map[types.Asset]*VolatilityEstimator),
	}
}

// Run subscribes to the bus and processes messages until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	msgs, cancel := e.bus.Subscribe(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgs:
			e.handle(msg)
		}
	}
}

func (e *Engine) handle(msg bus.Message) {
	switch msg.Kind {
	case bus.KindMarketsDiscovered:
		for _, m := range msg.MarketsDiscovered {
			e.markets[m.MarketID] = m
		}
	case bus.KindSpotPrice:
		e.handleSpotPrice(msg.SpotPrice)
	}
}

func (e *Engine) handleSpotPrice(update types.PriceUpdate) {
	asset := symbolToAsset(update.Symbol)
	if asset == types.Unknown {
		return
	}

	vol, ok := e.vols[asset]
	if !ok {
		vol = NewVolatilityEstimator(e.cfg.VolWindowSec)
		e.vols[asset] = vol
	}
	vol.Add(update.Price)

	sigmaHat, sigmaPresent := vol.Sigma()
	sigma := e.cfg.FallbackVol
	if sigmaPresent {
		sigma = math.Max(sigmaHat*e.cfg.VolSafetyFactor, e.cfg.FallbackVol)
	}

	now := time.Now()
	ageMs := float64(now.UnixMilli() - update.ExchangeTimeMs)

	for marketID, meta := range e.markets {
		if meta.Asset != asset {
			continue
		}

		secondsToExpiry := math.Max(0, meta.Expiration.Sub(now).Seconds())
		tYears := secondsToExpiry / secondsPerYear

		fairPrice := BinaryCall(update.Price, meta.Strike, tYears, e.cfg.RiskFreeRate, sigma)
		confidence := e.confidence(ageMs, sigmaPresent)

		e.bus.Publish(bus.Message{
			Kind: bus.KindFairValue,
			FairValue: types.FairValueUpdate{
				MarketID:    marketID,
				FairPrice:   fairPrice,
				Confidence:  confidence,
				TimestampMs: now.UnixMilli(),
			},
		})
	}
}

// confidence scores [0,1] how much to trust a fair-value computation: it
// decays with stale spot ticks and is penalized when the estimator had too
// few samples and the configured fallback volatility was substituted.
func (e *Engine) confidence(ageMs float64, sigmaPresent bool) float64 {
	ageTerm := 0.5 * math.Exp(-ageMs/1000)
	volTerm := 0.3
	if sigmaPresent {
		volTerm = 1.0
	}
	return ageTerm + 0.5*volTerm
}

func symbolToAsset(symbol string) types.Asset {
	switch {
	case hasPrefixFold(symbol, "BTC"):
		return types.BTC
	case hasPrefixFold(symbol, "ETH"):
		return types.ETH
	case hasPrefixFold(symbol, "SOL"):
		return types.SOL
	default:
		return types.Unknown
	}
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'a' <= a && a <= 'z' {
			a -= 'a' - 'A'
		}
		if 'a' <= b && b <= 'z' {
			b -= 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
