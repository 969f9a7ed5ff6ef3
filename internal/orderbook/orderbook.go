// Package orderbook maintains the local L2 mirror of a single prediction
// market's order book. One Book exists per market_id and is owned
// exclusively by the BookFeed in internal/exchange that feeds it.
package orderbook

// Book is a price-level order book for one market: two unordered price→size
// maps, scanned by BestBid/BestAsk for the extreme price. A zero-size update removes the
// level; equal prices collapse into a single entry since prices are
// tick-discretized and no further tie-breaking is required.
type Book struct {
	bids map[float64]float64
	asks map[float64]float64
}

// New creates an empty book.
func New() *Book {
	return &Book{
		bids: make(map[float64]float64),
		asks: make(map[float64]float64),
	}
}

// Update applies a single price-level change. size == 0 removes the level.
func (b *Book) Update(isBid bool, price, size float64) {
	side := b.asks
	if isBid {
		side = b.bids
	}
	if size == 0 {
		delete(side, price)
		return
	}
	side[price] = size
}

// BestBid returns the highest-price bid level, or ok=false if the book's
// bid side is empty.
func (b *Book) BestBid() (price, size float64, ok bool) {
	return bestOf(b.bids, true)
}

// BestAsk returns the lowest-price ask level, or ok=false if the book's
// ask side is empty.
func (b *Book) BestAsk() (price, size float64, ok bool) {
	return bestOf(b.asks, false)
}

func bestOf(side map[float64]float64, highest bool) (price, size float64, ok bool) {
	first := true
	for p, s := range side {
		if first || (highest && p > price) || (!highest && p < price) {
			price, size, ok, first = p, s, true, false
		}
	}
	return price, size, ok
}

// LiquidityAt returns the size resting at price on the given side, or 0 if
// there is no such level.
func (b *Book) LiquidityAt(isBid bool, price float64) float64 {
	side := b.asks
	if isBid {
		side = b.bids
	}
	return side[price]
}

// Clear empties both sides. Called when a full snapshot message replaces
// the book's state.
func (b *Book) Clear() {
	b.bids = make(map[float64]float64)
	b.asks = make(map[float64]float64)
}

// IsCrossed reports whether the book is in a crossed state — best ask
// strictly below best bid — which is a transient static-arbitrage signal,
// not an invariant violation.
func (b *Book) IsCrossed() bool {
	bid, _, bidOK := b.BestBid()
	ask, _, askOK := b.BestAsk()
	return bidOK && askOK && ask < bid
}
