package market

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"sniper/internal/bus"
	"sniper/internal/errs"
	"sniper/pkg/types"
)

// CatalogClient fetches the raw market catalog. The concrete HTTP transport
// is deliberately abstracted behind this interface — RestyCatalogClient is
// the production implementation, and tests substitute a fake.
type CatalogClient interface {
	FetchActiveMarkets(ctx context.Context) ([]types.CatalogRecord, error)
}

// RestyCatalogClient polls the Gamma-style catalog endpoint for active,
// non-closed markets filtered to the short-dated crypto questions this
// pipeline trades.
type RestyCatalogClient struct {
	http *resty.Client
}

// NewRestyCatalogClient creates a catalog client pointed at baseURL.
func NewRestyCatalogClient(baseURL string) *RestyCatalogClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &RestyCatalogClient{http: client}
}

// questionFilters are substrings a market's question must contain at least
// one of to be considered in scope for this pipeline.
var questionFilters = []string{"15-Minute", "price of Bitcoin", "price of Ethereum", "price of Solana"}

// FetchActiveMarkets fetches every active, open market and filters to the
// ones whose question text matches this pipeline's short-dated crypto scope.
func (c *RestyCatalogClient) FetchActiveMarkets(ctx context.Context) ([]types.CatalogRecord, error) {
	var records []types.CatalogRecord
	_, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"active": "true",
			"closed": "false",
		}).
		SetResult(&records).
		Get("/markets")
	if err != nil {
		return nil, err
	}

	filtered := records[:0]
	for _, r := range records {
		if matchesScope(r.Question) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func matchesScope(question string) bool {
	for _, f := range questionFilters {
		if strings.Contains(strings.ToLower(question), strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// DiscoveryConfig tunes polling cadence and the absence threshold for
// destroying a market.
type DiscoveryConfig struct {
	// AbsentPollsToDestroy is how many consecutive polls a market_id must
	// be missing from before it is dropped. Must be >= 3.
	AbsentPollsToDestroy int
}

// Discovery polls a CatalogClient on a burst schedule around quarter-hour
// UTC boundaries — where new 15-minute markets are listed — and parses each
// record with a Parser before publishing MarketsDiscovered.
type Discovery struct {
	client CatalogClient
	parser *Parser
	cfg    DiscoveryConfig
	bus    *bus.Bus
	logger *slog.Logger

	known        map[string]bool // every market_id currently tracked, present or absent
	absentCounts map[string]int
}

// NewDiscovery creates a MarketDiscovery component.
func NewDiscovery(client CatalogClient, cfg DiscoveryConfig, b *bus.Bus, logger *slog.Logger) *Discovery {
	if cfg.AbsentPollsToDestroy < 3 {
		cfg.AbsentPollsToDestroy = 3
	}
	return &Discovery{
		client:       client,
		parser:       NewParser(),
		cfg:          cfg,
		bus:          b,
		logger:       logger.With("component", "discovery"),
		known:        make(map[string]bool),
		absentCounts: make(map[string]int),
	}
}

// Run polls on the burst schedule until ctx is cancelled.
func (d *Discovery) Run(ctx context.Context) {
	for {
		d.poll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval(time.Now().UTC())):
		}
	}
}

// pollInterval implements the burst-poll schedule: within 30s of each
// quarter-hour UTC boundary, poll every 2s; otherwise every 30s.
func pollInterval(now time.Time) time.Duration {
	minute, second := now.Minute(), now.Second()
	nearQuarter := (minute%15 == 14 && second >= 30) || (minute%15 == 0 && second <= 30)
	if nearQuarter {
		return 2 * time.Second
	}
	return 30 * time.Second
}

func (d *Discovery) poll(ctx context.Context) {
	records, err := d.client.FetchActiveMarkets(ctx)
	if err != nil {
		d.logger.Warn("catalog fetch failed", "error", &errs.TransientNetworkError{Err: err})
		return
	}

	seen := make(map[string]bool, len(records))
	var discovered []types.MarketMetadata

	for _, r := range records {
		meta, ok := d.toMetadata(r)
		if !ok {
			continue // skip without aborting the batch
		}
		seen[meta.MarketID] = true
		d.known[meta.MarketID] = true
		delete(d.absentCounts, meta.MarketID)
		discovered = append(discovered, meta)
	}

	d.trackAbsences(seen)

	if len(discovered) > 0 {
		d.bus.Publish(bus.Message{
			Kind:              bus.KindMarketsDiscovered,
			MarketsDiscovered: discovered,
		})
	}
}

// trackAbsences increments the miss counter for every tracked market not
// present in this poll, inserting a first-miss entry as needed; markets
// missing AbsentPollsToDestroy consecutive times are dropped from
// tracking entirely (their MarketMetadata is left to expire naturally
// downstream).
func (d *Discovery) trackAbsences(seen map[string]bool) {
	for id := range d.known {
		if seen[id] {
			continue
		}
		count := d.absentCounts[id] + 1
		if count >= d.cfg.AbsentPollsToDestroy {
			delete(d.absentCounts, id)
			delete(d.known, id)
			d.logger.Info("market destroyed after consecutive absences", "market_id", id)
			continue
		}
		d.absentCounts[id] = count
	}
}

func (d *Discovery) toMetadata(r types.CatalogRecord) (types.MarketMetadata, bool) {
	if r.ID == "" || len(r.ClobTokenIds) < 2 {
		return types.MarketMetadata{}, false
	}

	asset, strike, ok := d.parser.Parse(r.Question)
	if !ok {
		return types.MarketMetadata{}, false
	}

	expiration, err := time.Parse(time.RFC3339, r.EndDate)
	if err != nil {
		return types.MarketMetadata{}, false
	}

	return types.MarketMetadata{
		MarketID:   r.ID,
		Question:   r.Question,
		Asset:      asset,
		Strike:     strike,
		TokenIDYes: r.ClobTokenIds[0],
		TokenIDNo:  r.ClobTokenIds[1],
		Expiration: expiration,
	}, true
}
