package strategy

import (
	"context"
	"log/slog"
	"math"
	"testing"
	"time"

	"sniper/internal/bus"
	"sniper/pkg/types"
)

func testConfig() Config {
	return Config{
		MinLatencyEdge:     0.02,
		MinStaticEdge:      0.01,
		MinSizeUSDC:        10,
		MaxPositionUSDC:    100,
		MaxAccountRiskUSDC: 500,
		Cooldown:           200 * time.Millisecond,
	}
}

func seedMarket(e *Engine, marketID string) {
	e.markets[marketID] = types.MarketMetadata{
		MarketID:   marketID,
		TokenIDYes: marketID + "-yes",
		TokenIDNo:  marketID + "-no",
	}
}

func TestLatencyArbFiresBuyWhenFairValueAboveAsk(t *testing.T) {
	t.Parallel()

	b := bus.New(slog.Default())
	e := New(testConfig(), b, slog.Default())
	seedMarket(e, "m1")

	e.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.60}
	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.50, BestAsk: 0.55}

	ctx := context.Background()
	e.checkLatencyArb(ctx, "m1")

	select {
	case cmd := <-b.Commands():
		if cmd.Side != types.BUY {
			t.Errorf("Side = %v, want BUY", cmd.Side)
		}
		if cmd.Price != 0.55 {
			t.Errorf("Price = %v, want 0.55 (best ask)", cmd.Price)
		}
	default:
		t.Fatal("expected a place-order command")
	}
}

func TestLatencyArbDoesNotFireWhenFairValueBelowBid(t *testing.T) {
	t.Parallel()

	b := bus.New(slog.Default())
	e := New(testConfig(), b, slog.Default())
	seedMarket(e, "m1")

	e.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.40}
	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.48, BestAsk: 0.52}

	e.checkLatencyArb(context.Background(), "m1")

	select {
	case <-b.Commands():
		t.Fatal("expected no command: the latency detector only ever fires a BUY")
	default:
	}
}

func TestLatencyArbDoesNotFireBelowThreshold(t *testing.T) {
	t.Parallel()

	b := bus.New(slog.Default())
	e := New(testConfig(), b, slog.Default())
	seedMarket(e, "m1")

	e.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.505}
	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.49, BestAsk: 0.51}

	e.checkLatencyArb(context.Background(), "m1")

	select {
	case <-b.Commands():
		t.Fatal("expected no command, edge is below MinLatencyEdge")
	default:
	}
}

func TestLatencyArbSkewScalesWithPosition(t *testing.T) {
	t.Parallel()

	// With no position, a 0.04 raw edge clears the 0.02 threshold.
	b := bus.New(slog.Default())
	e := New(testConfig(), b, slog.Default())
	seedMarket(e, "m1")
	e.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.59}
	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.50, BestAsk: 0.55}

	e.checkLatencyArb(context.Background(), "m1")
	select {
	case <-b.Commands():
	default:
		t.Fatal("expected a fire with zero inventory skew")
	}

	// The same edge with 60% of the position cap already deployed is
	// skewed down by 0.6 * maxInventorySkew = 0.03 and no longer clears.
	b2 := bus.New(slog.Default())
	e2 := New(testConfig(), b2, slog.Default())
	seedMarket(e2, "m1")
	e2.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.59}
	e2.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.50, BestAsk: 0.55}
	e2.risk.Commit("m1", 60)

	e2.checkLatencyArb(context.Background(), "m1")
	select {
	case <-b2.Commands():
		t.Fatal("expected the inventory skew to suppress the fire at 60% of the position cap")
	default:
	}
}

func TestFireCarriesCumulativeExposure(t *testing.T) {
	t.Parallel()

	b := bus.New(slog.Default())
	e := New(testConfig(), b, slog.Default())
	seedMarket(e, "m1")
	e.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.60}
	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.50, BestAsk: 0.55}

	ctx := context.Background()
	e.checkLatencyArb(ctx, "m1")
	first := <-b.Commands()
	if got := first.ExposureUSD; math.Abs(got-10) > 1e-9 {
		t.Errorf("first ExposureUSD = %v, want 10 (one min-size order)", got)
	}

	delete(e.cooldowns, "m1")
	e.checkLatencyArb(ctx, "m1")
	select {
	case second := <-b.Commands():
		if got := second.ExposureUSD; math.Abs(got-20) > 1e-9 {
			t.Errorf("second ExposureUSD = %v, want cumulative 20, not the marginal notional", got)
		}
	default:
		t.Fatal("expected a second fire once the cooldown is cleared")
	}
}

func TestStaticArbFiresBuyWhenCrossed(t *testing.T) {
	t.Parallel()

	b := bus.New(slog.Default())
	e := New(testConfig(), b, slog.Default())
	seedMarket(e, "m1")

	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.60, BestAsk: 0.55}

	e.checkStaticArb(context.Background(), "m1")

	select {
	case cmd := <-b.Commands():
		if cmd.Side != types.BUY {
			t.Errorf("Side = %v, want BUY", cmd.Side)
		}
		if cmd.Price != 0.55 {
			t.Errorf("Price = %v, want 0.55 (best ask)", cmd.Price)
		}
	default:
		t.Fatal("expected a place-order command for a crossed book")
	}

	select {
	case <-b.Commands():
		t.Fatal("expected exactly one command for a crossed book")
	default:
	}
}

func TestCooldownSuppressesRefire(t *testing.T) {
	t.Parallel()

	b := bus.New(slog.Default())
	e := New(testConfig(), b, slog.Default())
	seedMarket(e, "m1")

	e.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.60}
	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.50, BestAsk: 0.55}

	ctx := context.Background()
	e.checkLatencyArb(ctx, "m1")
	<-b.Commands() // drain the first fire

	e.checkLatencyArb(ctx, "m1")
	select {
	case <-b.Commands():
		t.Fatal("expected the cooldown to suppress an immediate re-fire")
	default:
	}
}

func TestRiskCapBlocksFire(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MaxPositionUSDC = 5 // smaller than MinSizeUSDC
	b := bus.New(slog.Default())
	e := New(cfg, b, slog.Default())
	seedMarket(e, "m1")

	e.fairValues["m1"] = types.FairValueUpdate{MarketID: "m1", FairPrice: 0.60}
	e.books["m1"] = types.OrderbookUpdate{MarketID: "m1", BestBid: 0.50, BestAsk: 0.55}

	e.checkLatencyArb(context.Background(), "m1")

	select {
	case <-b.Commands():
		t.Fatal("expected the risk manager to block an order exceeding the per-market cap")
	default:
	}
}
