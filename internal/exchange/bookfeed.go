// bookfeed.go ingests per-market order book snapshots from the exchange's
// live-data WebSocket and republishes best bid/ask as OrderbookUpdate
// messages on the bus.
package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sniper/internal/bus"
	"sniper/internal/orderbook"
	"sniper/pkg/types"
)

const (
	bookReconnectStart = 500 * time.Millisecond
	bookReconnectMax   = 30 * time.Second
	bookReadTimeout    = 30 * time.Second
)

// BookFeed maintains a reconnecting WebSocket connection to the exchange's
// live order book stream, keeps one orderbook.Book per subscribed market,
// and publishes OrderbookUpdate after every book snapshot that leaves both
// a best bid and a best ask, whether or not they changed.
type BookFeed struct {
	url    string
	bus    *bus.Bus
	logger *slog.Logger

	mu    sync.Mutex
	books map[string]*orderbook.Book // market_id -> book

	subscribedMu sync.RWMutex
	subscribed   map[string]bool
}

// NewBookFeed creates a BookFeed against the exchange's live-data endpoint,
// for example wss://ws-live-data.polymarket.com/ws.
func NewBookFeed(url string, b *bus.Bus, logger *slog.Logger) *BookFeed {
	return &BookFeed{
		url:        url,
		bus:        b,
		logger:     logger.With("component", "book_feed"),
		books:      make(map[string]*orderbook.Book),
		subscribed: make(map[string]bool),
	}
}

// Subscribe tracks additional market IDs to request on the next connection;
// every connection subscribes to the full tracked set. A connection that is
// already open is not sent the new IDs.
func (f *BookFeed) Subscribe(marketIDs []string) {
	f.subscribedMu.Lock()
	defer f.subscribedMu.Unlock()
	for _, id := range marketIDs {
		f.subscribed[id] = true
	}
}

// Run connects and reconnects with exponential backoff until ctx is
// cancelled.
func (f *BookFeed) Run(ctx context.Context) {
	backoff := bookReconnectStart

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}

		f.logger.Warn("book feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > bookReconnectMax {
			backoff = bookReconnectMax
		}
	}
}

func (f *BookFeed) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	header.Set("User-Agent", browserUserAgent)
	header.Set("Origin", polymarketOrigin)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := f.sendSubscription(conn); err != nil {
		return err
	}

	f.logger.Info("book feed connected")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(bookReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		f.handleMessage(data)
	}
}

func (f *BookFeed) sendSubscription(conn *websocket.Conn) error {
	f.subscribedMu.RLock()
	ids := make([]string, 0, len(f.subscribed))
	for id := range f.subscribed {
		ids = append(ids, id)
	}
	f.subscribedMu.RUnlock()

	if len(ids) == 0 {
		return nil
	}

	return conn.WriteJSON(map[string]any{
		"action":     "subscribe",
		"market_ids": ids,
	})
}

func (f *BookFeed) handleMessage(data []byte) {
	var msg types.PredictionBookMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.logger.Debug("ignoring unparseable book message", "error", err)
		return
	}
	if msg.Type != "book" && msg.Action != "book" {
		return
	}
	if msg.MarketID == "" {
		return
	}

	book := f.bookFor(msg.MarketID)
	book.Clear()
	for _, lvl := range msg.Bids {
		price, size, err := parseLevel(lvl)
		if err != nil {
			continue
		}
		book.Update(true, price, size)
	}
	for _, lvl := range msg.Asks {
		price, size, err := parseLevel(lvl)
		if err != nil {
			continue
		}
		book.Update(false, price, size)
	}

	bestBid, _, bidOK := book.BestBid()
	bestAsk, _, askOK := book.BestAsk()
	if !bidOK || !askOK {
		return
	}

	f.bus.Publish(bus.Message{
		Kind: bus.KindBookUpdate,
		BookUpdate: types.OrderbookUpdate{
			MarketID:    msg.MarketID,
			BestBid:     bestBid,
			BestAsk:     bestAsk,
			TimestampMs: time.Now().UnixMilli(),
		},
	})
}

func (f *BookFeed) bookFor(marketID string) *orderbook.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[marketID]
	if !ok {
		b = orderbook.New()
		f.books[marketID] = b
	}
	return b
}

func parseLevel(lvl types.BookLevel) (price, size float64, err error) {
	price, err = parseFloatField(lvl[0])
	if err != nil {
		return 0, 0, err
	}
	size, err = parseFloatField(lvl[1])
	if err != nil {
		return 0, 0, err
	}
	return price, size, nil
}
