// Package strategy implements the latency-arbitrage and static-arbitrage
// detectors that turn fair-value and order-book updates into order
// commands, gated by cooldowns and per-market/account risk caps.
package strategy

import (
	"context"
	"log/slog"
	"time"

	"sniper/internal/bus"
	"sniper/internal/errs"
	"sniper/pkg/types"
)

// Config tunes edge thresholds, order sizing, risk caps, and the
// re-fire cooldown.
type Config struct {
	MinLatencyEdge     float64 // minimum (adjusted fair value - best ask) to fire a buy
	MinStaticEdge      float64 // minimum bid-ask cross to fire a static arb
	MinSizeUSDC        float64 // notional per order
	MaxPositionUSDC    float64 // per-market exposure cap
	MaxAccountRiskUSDC float64 // account-wide exposure cap
	Cooldown           time.Duration
}

// Engine subscribes to the bus, maintains per-market fair value and book
// state, and fires CommandPlaceOrder whenever an arbitrage edge clears its
// threshold and risk admits the order.
type Engine struct {
	cfg    Config
	bus    *bus.Bus
	risk   *RiskManager
	logger *slog.Logger

	markets     map[string]types.MarketMetadata
	fairValues  map[string]types.FairValueUpdate
	books       map[string]types.OrderbookUpdate
	cooldowns   map[string]time.Time
	inventories map[string]*Inventory
}

// New creates a StrategyEngine.
func New(cfg Config, b *bus.Bus, logger *slog.Logger) *Engine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 200 * time.Millisecond
	}
	return &Engine{
		cfg:         cfg,
		bus:         b,
		risk:        NewRiskManager(cfg.MaxPositionUSDC, cfg.MaxAccountRiskUSDC),
		logger:      logger.With("component", "strategy"),
		markets:     make(map[string]types.MarketMetadata),
		fairValues:  make(map[string]types.FairValueUpdate),
		books:       make(map[string]types.OrderbookUpdate),
		cooldowns:   make(map[string]time.Time),
		inventories: make(map[string]*Inventory),
	}
}

func (e *Engine) inventoryFor(meta types.MarketMetadata) *Inventory {
	inv, ok := e.inventories[meta.MarketID]
	if !ok {
		inv = NewInventory(meta.MarketID, meta.TokenIDYes, meta.TokenIDNo)
		e.inventories[meta.MarketID] = inv
	}
	return inv
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
			e.handle(ctx, msg)
		}
	}
}

func (e *Engine) handle(ctx context.Context, msg bus.Message) {
	switch msg.Kind {
	case bus.KindMarketsDiscovered:
		for _, m := range msg.MarketsDiscovered {
			e.markets[m.MarketID] = m
		}
	case bus.KindFairValue:
		e.fairValues[msg.FairValue.MarketID] = msg.FairValue
		e.checkLatencyArb(ctx, msg.FairValue.MarketID)
	case bus.KindBookUpdate:
		upd := msg.BookUpdate
		e.books[upd.MarketID] = upd
		if meta, ok := e.markets[upd.MarketID]; ok {
			e.inventoryFor(meta).UpdateMarkToMarket((upd.BestBid + upd.BestAsk) / 2)
		}
		e.checkStaticArb(ctx, upd.MarketID)
		e.checkLatencyArb(ctx, upd.MarketID)
	}
}

// maxInventorySkew caps how far a full position biases the fair value
// downward.
const maxInventorySkew = 0.05

// checkLatencyArb compares the fair-value estimate (skewed against current
// inventory) to the market's best ask and fires a buy when the edge is at
// least MinLatencyEdge. It never fires a sell.
func (e *Engine) checkLatencyArb(ctx context.Context, marketID string) {
	if e.inCooldown(marketID) {
		return
	}

	fv, haveFV := e.fairValues[marketID]
	book, haveBook := e.books[marketID]
	meta, haveMeta := e.markets[marketID]
	if !haveFV || !haveBook || !haveMeta {
		return
	}

	// Skew grows linearly with the market's tracked exposure, reaching
	// maxInventorySkew at a full position, to deter pyramiding into a
	// direction this pipeline is already long.
	skewFactor := e.risk.ExposureFor(marketID) / e.cfg.MaxPositionUSDC * maxInventorySkew
	adjustedFV := fv.FairPrice - skewFactor

	buyEdge := adjustedFV - book.BestAsk
	if buyEdge >= e.cfg.MinLatencyEdge {
		e.fire(ctx, meta, types.BUY, book.BestAsk)
	}
}

// checkStaticArb fires a buy-at-ask when a market's own book is crossed by
// more than MinStaticEdge — a riskless arbitrage independent of any
// fair-value estimate.
func (e *Engine) checkStaticArb(ctx context.Context, marketID string) {
	if e.inCooldown(marketID) {
		return
	}

	book, ok := e.books[marketID]
	if !ok {
		return
	}
	meta, ok := e.markets[marketID]
	if !ok {
		return
	}

	edge := book.BestBid - book.BestAsk
	if edge <= e.cfg.MinStaticEdge {
		return
	}

	e.fire(ctx, meta, types.BUY, book.BestAsk)
}

func (e *Engine) fire(ctx context.Context, meta types.MarketMetadata, side types.Side, price float64) {
	if price <= 0 {
		return
	}

	marketID := meta.MarketID
	size := e.cfg.MinSizeUSDC / price
	notional := e.cfg.MinSizeUSDC
	if side == types.SELL {
		notional = -notional
	}

	if !e.risk.Admit(marketID, notional) {
		e.logger.Debug("order blocked by risk manager", "error", &errs.RiskRejection{MarketID: marketID, Notional: notional})
		return
	}

	inv := e.inventoryFor(meta)
	cmd := bus.Command{
		Kind:        bus.CommandPlaceOrder,
		MarketID:    marketID,
		TokenID:     meta.TokenIDYes,
		Side:        side,
		Price:       price,
		Size:        size,
		ExposureUSD: inv.TotalExposureUSD(price) + notional,
	}

	if err := e.bus.Send(ctx, cmd); err != nil {
		e.logger.Warn("failed to enqueue order command", "error", err)
		return
	}

	e.risk.Commit(marketID, notional)
	inv.OnFill(Fill{
		Timestamp: time.Now(),
		Side:      side,
		TokenID:   meta.TokenIDYes,
		Price:     price,
		Size:      size,
	})
	e.setCooldown(marketID)

	e.logger.Info("order fired",
		"market_id", marketID,
		"side", side,
		"price", price,
		"size", size,
		"exposure_usd", inv.TotalExposureUSD(price),
	)
}

func (e *Engine) inCooldown(marketID string) bool {
	until, ok := e.cooldowns[marketID]
	return ok && time.Now().Before(until)
}

func (e *Engine) setCooldown(marketID string) {
	e.cooldowns[marketID] = time.Now().Add(e.cfg.Cooldown)
}
