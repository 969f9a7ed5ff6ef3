// spotfeed.go ingests real-time spot trade prices from a Binance-style
// combined-stream WebSocket endpoint and republishes them on the bus as
// PriceUpdate messages.
package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sniper/internal/bus"
	"sniper/pkg/types"
)

const (
	spotReconnectStart = 500 * time.Millisecond
	spotReconnectMax   = 30 * time.Second
	spotReadTimeout    = 30 * time.Second

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	polymarketOrigin = "https://polymarket.com"
)

// SpotFeed maintains a reconnecting WebSocket connection to a combined
// aggTrade stream and publishes each tick as a types.PriceUpdate.
type SpotFeed struct {
	url    string
	bus    *bus.Bus
	logger *slog.Logger
}

// NewSpotFeed creates a SpotFeed against the given combined-stream URL, for
// example:
//
//	wss://stream.binance.com:9443/stream?streams=btcusdt@aggTrade/ethusdt@aggTrade/solusdt@aggTrade
func NewSpotFeed(url string, b *bus.Bus, logger *slog.Logger) *SpotFeed {
	return &SpotFeed{
		url:    url,
		bus:    b,
		logger: logger.With("component", "spot_feed"),
	}
}

// Run connects and reconnects with exponential backoff until ctx is
// cancelled.
func (f *SpotFeed) Run(ctx context.Context) {
	backoff := spotReconnectStart

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		f.logger.Warn("spot feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > spotReconnectMax {
			backoff = spotReconnectMax
		}
	}
}

func (f *SpotFeed) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	header.Set("User-Agent", browserUserAgent)
	header.Set("Origin", polymarketOrigin)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.logger.Info("spot feed connected")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(spotReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		f.handleMessage(data)
	}
}

func (f *SpotFeed) handleMessage(data []byte) {
	var envelope types.SpotStreamEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Debug("ignoring unparseable spot message", "error", err)
		return
	}
	if envelope.Data.Symbol == "" || envelope.Data.Price == "" {
		return
	}

	price, err := parseFloatField(envelope.Data.Price)
	if err != nil {
		f.logger.Warn("bad price field in spot message", "price", envelope.Data.Price, "error", err)
		return
	}

	f.bus.Publish(bus.Message{
		Kind: bus.KindSpotPrice,
		SpotPrice: types.PriceUpdate{
			Symbol:         envelope.Data.Symbol,
			Price:          price,
			ExchangeTimeMs: envelope.Data.TsMs,
		},
	})
}
