// Package bus implements the in-process pub/sub mesh connecting market data
// ingest, pricing, and strategy: a lossy broadcast for market data and a
// bounded, blocking queue for execution commands.
//
// The broadcast never blocks a publisher: a subscriber that falls behind
// observes a lag counter instead of stalling the feed. The command channel
// is the opposite — it backpressures the strategy engine if the execution
// gateway cannot keep up, because losing a command silently would leave a
// position unmanaged.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"sniper/pkg/types"
)

// broadcastCapacity is the per-subscriber buffer depth for the fan-out bus.
const broadcastCapacity = 1024

// commandCapacity is the depth of the single-consumer execution queue.
const commandCapacity = 100

// Kind discriminates the payload carried by a Message.
type Kind int

const (
	KindMarketsDiscovered Kind = iota
	KindSpotPrice
	KindBookUpdate
	KindFairValue
)

// Message is a closed tagged union of everything published on the
// broadcast bus. Exactly one of the payload fields is populated,
// matching Kind.
type Message struct {
	Kind              Kind
	MarketsDiscovered []types.MarketMetadata
	SpotPrice         types.PriceUpdate
	BookUpdate        types.OrderbookUpdate
	FairValue         types.FairValueUpdate
}

// Command is submitted on the bounded command channel for the execution
// gateway to act on. The execution gateway owns nonce assignment, fixed-point
// amount scaling, and signing — the strategy engine only ever expresses
// intent in price/size terms.
type Command struct {
	Kind     CommandKind
	MarketID string
	TokenID  string
	Side     types.Side
	Price    float64 // [0,1], ignored for CommandCancelOrder
	Size     float64 // outcome tokens, ignored for CommandCancelOrder
	OrderID  string  // populated for CommandCancelOrder

	// ExposureUSD is the market's cumulative exposure once this order
	// fills, carried along so the execution gateway can report a full
	// per-market snapshot to the supervisory risk manager without
	// reaching into the strategy engine's position state.
	ExposureUSD float64
}

// CommandKind discriminates a Command's intent.
type CommandKind int

const (
	CommandPlaceOrder CommandKind = iota
	CommandCancelOrder
)

// subscriber is one broadcast listener: a buffered channel plus a lag
// counter incremented whenever a publish finds the channel full.
type subscriber struct {
	ch  chan Message
	lag atomic.Uint64
}

// Bus is the shared broadcast + command mesh. Safe for concurrent use: Publish
// is called from ingest goroutines, Subscribe from consumer goroutines at
// startup, Send/Commands from the strategy and execution goroutines respectively.
type Bus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}

	commandCh chan Command
	logger    *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:      make(map[*subscriber]struct{}),
		commandCh: make(chan Command, commandCapacity),
		logger:    logger.With("component", "bus"),
	}
}

// Subscribe registers a new listener and returns a channel of messages and a
// cancel func to unregister it. The returned channel is never closed by the
// bus; callers should stop reading it once ctx is done and call cancel.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, broadcastCapacity)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return sub.ch, cancel
}

// Publish fans a message out to every subscriber without blocking. A
// subscriber whose buffer is full drops the message and its lag counter
// is incremented; the publisher is never slowed down by a stalled consumer.
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			sub.lag.Add(1)
			b.logger.Warn("broadcast subscriber lagging, dropping message", "kind", msg.Kind)
		}
	}
}

// Send enqueues a command for the execution gateway. It blocks until there
// is room or ctx is cancelled — the strategy pauses rather than over-firing.
func (b *Bus) Send(ctx context.Context, cmd Command) error {
	select {
	case b.commandCh <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Commands returns the read side of the command channel for the execution
// gateway.
func (b *Bus) Commands() <-chan Command {
	return b.commandCh
}
