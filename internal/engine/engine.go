// Package engine wires market discovery, the spot and book feeds, the
// pricing engine, the strategy engine, the execution gateway, and the
// supervisory risk manager into a single running pipeline.
//
// Every long-running component runs in its own goroutine under a shared
// context; Start wraps each one with a panic recovery handler so a bug in
// one feed cannot take the process down, and Stop cancels the shared
// context and waits for every goroutine to return.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sniper/internal/bus"
	"sniper/internal/config"
	"sniper/internal/exchange"
	"sniper/internal/market"
	"sniper/internal/pricing"
	"sniper/internal/risk"
	"sniper/internal/strategy"
	"sniper/pkg/types"
)

// orderExpirationNever is used for the taker orders this pipeline submits:
// they are meant to cross the book immediately, so a long expiration just
// avoids a round trip to refresh it.
const orderExpirationNever = ^uint64(0)

// Engine is the top-level orchestrator. It owns every long-running
// component and the shared bus connecting them.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger

	bus       *bus.Bus
	discovery *market.Discovery
	spotFeed  *exchange.SpotFeed
	bookFeed  *exchange.BookFeed
	pricing   *pricing.Engine
	strategy  *strategy.Engine
	submitter *exchange.Submitter
	riskMgr   *risk.Manager

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs every component from cfg but starts nothing.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	signer, err := exchange.NewSigner(cfg.Wallet.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	b := bus.New(logger)

	catalogClient := market.NewRestyCatalogClient(cfg.API.GammaBaseURL)
	discovery := market.NewDiscovery(catalogClient, market.DiscoveryConfig{
		AbsentPollsToDestroy: cfg.Discovery.AbsentPollsToDestroy,
	}, b, logger)

	spotFeed := exchange.NewSpotFeed(cfg.API.SpotWSURL, b, logger)
	bookFeed := exchange.NewBookFeed(cfg.API.BookWSURL, b, logger)

	pricingEngine := pricing.New(pricing.Config{
		FallbackVol:     cfg.Pricing.FallbackVol,
		VolSafetyFactor: cfg.Pricing.VolSafetyFactor,
		VolWindowSec:    cfg.Pricing.VolWindowSec,
		RiskFreeRate:    cfg.Pricing.RiskFreeRate,
	}, b, logger)

	strategyEngine := strategy.New(strategy.Config{
		MinLatencyEdge:     cfg.Strategy.MinLatencyEdge,
		MinStaticEdge:      cfg.Strategy.MinStaticEdge,
		MinSizeUSDC:        cfg.Strategy.MinSizeUSDC,
		MaxPositionUSDC:    cfg.Strategy.MaxPositionUSDC,
		MaxAccountRiskUSDC: cfg.Strategy.MaxAccountRiskUSDC,
		Cooldown:           time.Duration(cfg.Strategy.CooldownMs) * time.Millisecond,
	}, b, logger)

	submitter := exchange.NewSubmitter(cfg.API.CLOBBaseURL, cfg.API.ApiKey, signer, logger)
	riskMgr := risk.NewManager(cfg.Risk, logger)

	return &Engine{
		cfg:       cfg,
		logger:    logger.With("component", "engine"),
		bus:       b,
		discovery: discovery,
		spotFeed:  spotFeed,
		bookFeed:  bookFeed,
		pricing:   pricingEngine,
		strategy:  strategyEngine,
		submitter: submitter,
		riskMgr:   riskMgr,
	}, nil
}

// Start launches every component goroutine under a derived, cancellable
// context. It returns immediately; call Stop to shut down.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.spawn(ctx, "discovery", e.discovery.Run)
	e.spawn(ctx, "spot_feed", e.spotFeed.Run)
	e.spawn(ctx, "book_feed", e.bookFeed.Run)
	e.spawn(ctx, "pricing", e.pricing.Run)
	e.spawn(ctx, "strategy", e.strategy.Run)
	e.spawn(ctx, "risk", e.riskMgr.Run)
	e.spawn(ctx, "market_subscriber", e.subscribeDiscoveredMarkets)
	e.spawn(ctx, "execution", e.runExecution)
	e.spawn(ctx, "kill_watch", e.watchKillSignals)
	e.spawn(ctx, "bus_tap", e.tapBus)

	e.logger.Info("engine started",
		"dry_run", e.cfg.DryRun,
		"max_markets_active", e.cfg.Risk.MaxMarketsActive,
	)
}

// Stop cancels every component's context and waits for all goroutines to
// return.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// spawn runs fn in its own goroutine, recovering a panic into a log line
// instead of letting it crash the process. A panicked task is not
// restarted — the engine keeps running with that task dead, which is
// surfaced by the absence of further log activity from it.
func (e *Engine) spawn(ctx context.Context, name string, fn func(context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("task panicked, not restarting", "task", name, "panic", r)
			}
		}()
		fn(ctx)
	}()
}

// subscribeDiscoveredMarkets watches the bus for newly discovered markets,
// forwards their IDs to the book feed so it subscribes to their live order
// book stream, and retires expired markets from the supervisory risk
// manager — a settled 15-minute market's exposure should no longer count
// against the global limits.
func (e *Engine) subscribeDiscoveredMarkets(ctx context.Context) {
	msgs, cancel := e.bus.Subscribe(ctx)
	defer cancel()

	expirations := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgs:
			if msg.Kind != bus.KindMarketsDiscovered {
				continue
			}
			ids := make([]string, 0, len(msg.MarketsDiscovered))
			for _, m := range msg.MarketsDiscovered {
				ids = append(ids, m.MarketID)
				expirations[m.MarketID] = m.Expiration
			}
			e.bookFeed.Subscribe(ids)

			now := time.Now()
			for id, exp := range expirations {
				if now.After(exp.Add(time.Minute)) {
					e.riskMgr.RemoveMarket(id)
					delete(expirations, id)
				}
			}
		}
	}
}

// tapBus logs every bus message at debug level. With the log level raised
// to debug, an operator can watch the pipeline's full market-data flow
// without any further tooling; at the default level it costs nothing.
func (e *Engine) tapBus(ctx context.Context) {
	msgs, cancel := e.bus.Subscribe(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-msgs:
			switch msg.Kind {
			case bus.KindMarketsDiscovered:
				e.logger.Debug("bus: markets discovered", "count", len(msg.MarketsDiscovered))
			case bus.KindSpotPrice:
				e.logger.Debug("bus: spot price", "symbol", msg.SpotPrice.Symbol, "price", msg.SpotPrice.Price)
			case bus.KindBookUpdate:
				e.logger.Debug("bus: book update", "market_id", msg.BookUpdate.MarketID,
					"bid", msg.BookUpdate.BestBid, "ask", msg.BookUpdate.BestAsk)
			case bus.KindFairValue:
				e.logger.Debug("bus: fair value", "market_id", msg.FairValue.MarketID,
					"fv", msg.FairValue.FairPrice, "confidence", msg.FairValue.Confidence)
			}
		}
	}
}

// watchKillSignals drains the risk manager's kill channel and logs a
// periodic aggregate risk snapshot. placeOrder already consults
// IsKillSwitchActive before every submission, so the signal itself only
// needs surfacing to the operator; there are no resting orders for this
// pipeline to cancel.
func (e *Engine) watchKillSignals(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-e.riskMgr.KillCh():
			e.logger.Error("kill switch engaged, suppressing new orders",
				"market_id", sig.MarketID, "reason", sig.Reason)
		case <-ticker.C:
			snap := e.riskMgr.GetRiskSnapshot()
			e.logger.Info("risk snapshot",
				"global_exposure", snap.GlobalExposure,
				"exposure_pct", snap.ExposurePct,
				"realized_pnl", snap.TotalRealizedPnL,
				"unrealized_pnl", snap.TotalUnrealizedPnL,
				"markets_active", snap.CurrentMarketsActive,
				"kill_switch", snap.KillSwitchActive,
			)
		}
	}
}

// runExecution drains the bus's command channel, turning each intent into
// a signed, submitted order, and reports the resulting exposure to the
// supervisory risk manager.
func (e *Engine) runExecution(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.bus.Commands():
			e.handleCommand(ctx, cmd)
		}
	}
}

func (e *Engine) handleCommand(ctx context.Context, cmd bus.Command) {
	switch cmd.Kind {
	case bus.CommandPlaceOrder:
		e.placeOrder(ctx, cmd)
	case bus.CommandCancelOrder:
		if e.cfg.DryRun {
			e.logger.Info("dry-run cancel", "order_id", cmd.OrderID)
			return
		}
		if err := e.submitter.Cancel(ctx, cmd.OrderID); err != nil {
			e.logger.Warn("order cancel failed", "order_id", cmd.OrderID, "error", err)
		}
	}
}

func (e *Engine) placeOrder(ctx context.Context, cmd bus.Command) {
	if e.riskMgr.IsKillSwitchActive() {
		e.logger.Warn("order suppressed, kill switch active", "market_id", cmd.MarketID)
		return
	}

	notional := cmd.Price * cmd.Size
	if budget := e.riskMgr.RemainingBudget(cmd.MarketID); budget < notional {
		e.logger.Warn("order suppressed, supervisory risk budget exhausted",
			"market_id", cmd.MarketID, "notional", notional, "remaining_usd", budget)
		return
	}

	if e.cfg.DryRun {
		e.logger.Info("dry-run order", "market_id", cmd.MarketID, "side", cmd.Side, "price", cmd.Price, "size", cmd.Size)
		e.reportExposure(cmd)
		return
	}

	makerAmt, takerAmt := exchange.PriceToAmounts(cmd.Price, cmd.Size, cmd.Side)
	order := types.Order{
		TokenID:     cmd.TokenID,
		MakerAmount: makerAmt,
		TakerAmount: takerAmt,
		Side:        cmd.Side,
		Expiration:  orderExpirationNever,
		Salt:        saltFromNow(),
	}

	resp, err := e.submitter.Submit(ctx, order)
	if err != nil {
		e.logger.Warn("order submission failed", "market_id", cmd.MarketID, "error", err)
		return
	}

	e.logger.Info("order submitted", "market_id", cmd.MarketID, "order_id", resp.OrderID, "status", resp.Status)
	e.reportExposure(cmd)
}

// reportExposure feeds the supervisory risk manager the market's
// cumulative exposure once the order just placed fills. The manager's
// PositionReport models exposure as a full per-market snapshot, so the
// command carries the strategy engine's accumulated position value rather
// than the single order's notional.
func (e *Engine) reportExposure(cmd bus.Command) {
	e.riskMgr.Report(risk.PositionReport{
		MarketID:    cmd.MarketID,
		MidPrice:    cmd.Price,
		ExposureUSD: cmd.ExposureUSD,
		Timestamp:   time.Now(),
	})
}

// saltFromNow derives an order salt from the wall clock. Collisions are
// harmless to correctness (the exchange keys on the full signed order,
// not the salt alone) but vanishingly unlikely at nanosecond resolution.
func saltFromNow() int64 {
	return time.Now().UnixNano()
}
