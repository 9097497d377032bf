package event_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
)

// collector is a sink that records every delivered envelope.
type collector struct {
	mu   sync.Mutex
	envs []event.Envelope
}

func (c *collector) Deliver(env event.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
	return nil
}

func (c *collector) snapshot() []event.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]event.Envelope, len(c.envs))
	copy(out, c.envs)
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func ping(n int) event.Envelope {
	return event.New("test.ping", event.Source{Kind: "test", ID: "bus"}, map[string]any{"n": n})
}

func TestFanOutInOrder(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 64})
	defer bus.Close()

	const subscribers = 5
	const published = 20

	sinks := make([]*collector, subscribers)
	for i := range sinks {
		sinks[i] = &collector{}
		sub := bus.Subscribe(sinks[i])
		require.NotNil(t, sub)
	}

	for n := 0; n < published; n++ {
		bus.Publish(ping(n))
	}

	for _, sink := range sinks {
		sink := sink
		waitFor(t, func() bool { return len(sink.snapshot()) == published })
		for n, env := range sink.snapshot() {
			assert.Equal(t, n, env.Payload["n"], "envelopes must arrive in publication order")
		}
	}
}

func TestUnsubscribeDoesNotAffectOthers(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 64})
	defer bus.Close()

	stay := &collector{}
	leave := &collector{}
	bus.Subscribe(stay)
	leaving := bus.Subscribe(leave)

	bus.Publish(ping(1))
	waitFor(t, func() bool { return len(leave.snapshot()) == 1 })

	leaving.Unsubscribe()
	bus.Publish(ping(2))

	waitFor(t, func() bool { return len(stay.snapshot()) == 2 })
	assert.Len(t, leave.snapshot(), 1)
	assert.Equal(t, 1, bus.SubscriberCount())
}

func TestSubscribeAfterPublishMissesEnvelope(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 64})
	defer bus.Close()

	bus.Publish(ping(1))

	late := &collector{}
	bus.Subscribe(late)
	bus.Publish(ping(2))

	waitFor(t, func() bool { return len(late.snapshot()) == 1 })
	assert.Equal(t, 2, late.snapshot()[0].Payload["n"])
}

func TestFailingSinkIsUnsubscribed(t *testing.T) {
	var (
		mu       sync.Mutex
		failedID string
	)
	bus := event.NewBus(event.BusConfig{
		BufferSize: 64,
		OnError: func(env event.Envelope, subscriberID string, err error) {
			mu.Lock()
			failedID = subscriberID
			mu.Unlock()
		},
	})
	defer bus.Close()

	healthy := &collector{}
	bus.Subscribe(healthy)
	failing := bus.Subscribe(event.SinkFunc(func(env event.Envelope) error {
		return errors.New("connection reset")
	}))
	require.NotNil(t, failing)

	// Publish never surfaces the sink failure to the caller.
	bus.Publish(ping(1))

	select {
	case <-failing.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("failing subscriber was not removed")
	}

	waitFor(t, func() bool { return bus.SubscriberCount() == 1 })
	mu.Lock()
	assert.Equal(t, failing.ID(), failedID)
	mu.Unlock()

	bus.Publish(ping(2))
	waitFor(t, func() bool { return len(healthy.snapshot()) == 2 })
}

func TestDropOldestPolicy(t *testing.T) {
	var (
		mu      sync.Mutex
		dropped []event.Envelope
	)
	bus := event.NewBus(event.BusConfig{
		BufferSize: 2,
		Policy:     event.DropOldest,
		OnDrop: func(env event.Envelope, subscriberID string) {
			mu.Lock()
			dropped = append(dropped, env)
			mu.Unlock()
		},
	})
	defer bus.Close()

	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	received := &collector{}
	bus.Subscribe(event.SinkFunc(func(env event.Envelope) error {
		once.Do(func() { close(started) })
		<-release
		return received.Deliver(env)
	}))

	// One envelope stalls in the sink, two fill the queue, the rest
	// overflow and evict the oldest queued entries.
	bus.Publish(ping(0))
	<-started
	for n := 1; n < 6; n++ {
		bus.Publish(ping(n))
	}
	close(release)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(dropped) == 3
	})
	waitFor(t, func() bool { return len(received.snapshot()) == 3 })

	// The survivor set is the stalled envelope plus the newest two, still
	// in publication order.
	got := received.snapshot()
	assert.Equal(t, 0, got[0].Payload["n"])
	assert.Equal(t, 4, got[1].Payload["n"])
	assert.Equal(t, 5, got[2].Payload["n"])
}

func TestDropNewestPolicy(t *testing.T) {
	bus := event.NewBus(event.BusConfig{
		BufferSize: 1,
		Policy:     event.DropNewest,
	})
	defer bus.Close()

	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	received := &collector{}
	bus.Subscribe(event.SinkFunc(func(env event.Envelope) error {
		once.Do(func() { close(started) })
		<-release
		return received.Deliver(env)
	}))

	bus.Publish(ping(0))
	<-started
	for n := 1; n < 4; n++ {
		bus.Publish(ping(n))
	}
	close(release)

	waitFor(t, func() bool { return len(received.snapshot()) == 2 })
	got := received.snapshot()
	assert.Equal(t, 0, got[0].Payload["n"])
	assert.Equal(t, 1, got[1].Payload["n"])
}

func TestDisconnectPolicy(t *testing.T) {
	bus := event.NewBus(event.BusConfig{
		BufferSize: 1,
		Policy:     event.Disconnect,
	})
	defer bus.Close()

	release := make(chan struct{})
	defer close(release)
	sub := bus.Subscribe(event.SinkFunc(func(env event.Envelope) error {
		<-release
		return nil
	}))
	require.NotNil(t, sub)

	for n := 0; n < 4; n++ {
		bus.Publish(ping(n))
	}

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("backlogged subscriber was not disconnected")
	}
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestMaxSubscribers(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 8, MaxSubscribers: 1})
	defer bus.Close()

	first := bus.Subscribe(&collector{})
	require.NotNil(t, first)
	assert.Nil(t, bus.Subscribe(&collector{}))

	first.Unsubscribe()
	assert.NotNil(t, bus.Subscribe(&collector{}))
}

func TestOnPublishHook(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []int
	)
	bus := event.NewBus(event.BusConfig{
		BufferSize: 8,
		OnPublish: func(env event.Envelope, subscribers int) {
			mu.Lock()
			calls = append(calls, subscribers)
			mu.Unlock()
		},
	})
	defer bus.Close()

	bus.Publish(ping(1))
	bus.Subscribe(&collector{})
	bus.Subscribe(&collector{})
	bus.Publish(ping(2))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 2}, calls)
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 8})

	sink := &collector{}
	sub := bus.Subscribe(sink)
	require.NotNil(t, sub)

	bus.Close()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not torn down on close")
	}

	bus.Publish(ping(1))
	assert.Nil(t, bus.Subscribe(&collector{}))
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestConcurrentPublishersPerSubscriberFIFO(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 1024})
	defer bus.Close()

	sink := &collector{}
	bus.Subscribe(sink)

	const publishers = 4
	const perPublisher = 50

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for n := 0; n < perPublisher; n++ {
				bus.Publish(event.New("test.ping",
					event.Source{Kind: "test", ID: fmt.Sprintf("pub-%d", p)},
					map[string]any{"n": n},
				))
			}
		}(p)
	}
	wg.Wait()

	waitFor(t, func() bool { return len(sink.snapshot()) == publishers*perPublisher })

	// Envelopes from each publisher must appear in that publisher's
	// order; interleaving across publishers is unconstrained.
	next := map[string]int{}
	for _, env := range sink.snapshot() {
		id := env.Source.ID
		assert.Equal(t, next[id], env.Payload["n"])
		next[id]++
	}
}
