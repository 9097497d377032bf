package event

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Sink receives envelopes for one subscriber. A Sink that returns an error
// is considered failed: the bus unsubscribes it and swallows the failure.
type Sink interface {
	Deliver(env Envelope) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(env Envelope) error

// Deliver implements Sink.
func (f SinkFunc) Deliver(env Envelope) error {
	return f(env)
}

// OverflowPolicy selects what happens when a subscriber's queue is full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest queued envelope to make room.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the envelope being published.
	DropNewest
	// Disconnect unsubscribes the backlogged subscriber.
	Disconnect
)

// BusConfig configures bus behavior. The queue bound is an explicit
// tunable: unbounded buffering under a stalled client is a resource leak,
// not a feature.
type BusConfig struct {
	// BufferSize is the queue depth per subscription. Default: 256.
	BufferSize int

	// Policy selects the overflow behavior for a full queue.
	// Default: DropOldest.
	Policy OverflowPolicy

	// MaxSubscribers limits concurrent subscriptions. Default: 0 (unlimited).
	MaxSubscribers int

	// OnPublish is called once per publish with the subscriber count the
	// envelope was fanned out to.
	OnPublish func(env Envelope, subscribers int)

	// OnDrop is called when an envelope is dropped for a subscriber.
	OnDrop func(env Envelope, subscriberID string)

	// OnError is called when a sink fails and is being unsubscribed.
	OnError func(env Envelope, subscriberID string, err error)

	// Logger receives bus-boundary failures. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	BufferSize: 256,
}

// Bus is an in-memory pub/sub fan-out over the current subscriber set.
//
// Publish delivers to a snapshot of the subscribers present at the time of
// the call. Each subscription has an independent bounded queue drained by
// its own goroutine, so one stalled subscriber never delays another and
// never blocks a publisher. Each individual subscriber observes envelopes
// in publication order.
type Bus struct {
	config BusConfig
	logger *slog.Logger

	mu            sync.RWMutex
	subscriptions map[string]*Subscription

	closed atomic.Bool
}

// NewBus creates a bus with the given config.
func NewBus(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig.BufferSize
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		config:        config,
		logger:        logger,
		subscriptions: make(map[string]*Subscription),
	}
}

// Subscription is the handle for one connected observer. The bus owns the
// handle registry; it does not own the underlying transport.
type Subscription struct {
	id   string
	sink Sink

	enqueueMu sync.Mutex
	queue     chan Envelope
	done      chan struct{}
	closeOnce sync.Once

	bus *Bus
}

// ID returns the opaque subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Done is closed when the subscription is removed, whether by
// Unsubscribe, sink failure, backpressure disconnection, or bus close.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe removes the subscription from the bus. Safe to call more
// than once and safe to call during delivery.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
}

// Subscribe registers a sink and returns its handle. Returns nil if the
// bus is closed or the subscriber limit is reached.
func (b *Bus) Subscribe(sink Sink) *Subscription {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.config.MaxSubscribers > 0 && len(b.subscriptions) >= b.config.MaxSubscribers {
		return nil
	}

	sub := &Subscription{
		id:    uuid.New().String(),
		sink:  sink,
		queue: make(chan Envelope, b.config.BufferSize),
		done:  make(chan struct{}),
		bus:   b,
	}
	b.subscriptions[sub.id] = sub

	go sub.drain()

	return sub
}

// Unsubscribe removes the subscription from the bus.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub != nil {
		b.remove(sub)
	}
}

// Publish fans env out to every currently subscribed handle. It never
// blocks on a slow subscriber and never returns a subscriber-side failure
// to the caller.
func (b *Bus) Publish(env Envelope) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	if b.config.OnPublish != nil {
		b.config.OnPublish(env, len(subs))
	}

	for _, sub := range subs {
		b.enqueue(sub, env)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Close shuts down the bus and removes all subscriptions.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	subs := b.subscriptions
	b.subscriptions = make(map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.closeOnce.Do(func() { close(sub.done) })
	}
}

// enqueue applies the overflow policy while keeping per-subscriber FIFO.
// The per-subscription mutex makes evict-then-retry atomic under
// concurrent publishers.
func (b *Bus) enqueue(sub *Subscription, env Envelope) {
	sub.enqueueMu.Lock()
	defer sub.enqueueMu.Unlock()

	select {
	case sub.queue <- env:
		return
	default:
	}

	switch b.config.Policy {
	case DropOldest:
		select {
		case dropped := <-sub.queue:
			b.dropped(dropped, sub)
		default:
		}
		select {
		case sub.queue <- env:
		default:
			b.dropped(env, sub)
		}
	case DropNewest:
		b.dropped(env, sub)
	case Disconnect:
		b.logger.Warn("disconnecting backlogged subscriber",
			slog.String("subscriber_id", sub.id),
			slog.Int("queue_depth", len(sub.queue)),
		)
		b.remove(sub)
	}
}

func (b *Bus) dropped(env Envelope, sub *Subscription) {
	b.logger.Debug("dropped envelope for slow subscriber",
		slog.String("subscriber_id", sub.id),
		slog.String("event_type", env.Type),
	)
	if b.config.OnDrop != nil {
		b.config.OnDrop(env, sub.id)
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	_, present := b.subscriptions[sub.id]
	delete(b.subscriptions, sub.id)
	b.mu.Unlock()

	if present {
		sub.closeOnce.Do(func() { close(sub.done) })
	}
}

// drain delivers queued envelopes to the sink in FIFO order. A sink
// failure unsubscribes the handle; the error stops at the bus boundary.
func (s *Subscription) drain() {
	for {
		select {
		case env := <-s.queue:
			if err := s.sink.Deliver(env); err != nil {
				s.bus.logger.Warn("subscriber sink failed, unsubscribing",
					slog.String("subscriber_id", s.id),
					slog.String("event_type", env.Type),
					slog.String("error", err.Error()),
				)
				if s.bus.config.OnError != nil {
					s.bus.config.OnError(env, s.id, err)
				}
				s.bus.remove(s)
				return
			}
		case <-s.done:
			return
		}
	}
}
