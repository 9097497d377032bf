package state

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/errors"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
)

// Entry is one key-value pair with optional expiry. Timestamps are
// seconds since epoch; a nil ExpiresAt means the entry never expires.
type Entry struct {
	Key       string   `json:"key"`
	Value     any      `json:"value"`
	UpdatedAt float64  `json:"updated_at"`
	ExpiresAt *float64 `json:"expires_at,omitempty"`
}

// expired reports whether the entry is past its expiry at now.
func (e Entry) expired(now float64) bool {
	return e.ExpiresAt != nil && now >= *e.ExpiresAt
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Now overrides the clock. Default: time.Now.
	Now func() time.Time

	// OnWrite is called once per Set with the key and whether the entry
	// carries an expiry.
	OnWrite func(key string, expiring bool)

	// Logger receives sweep diagnostics. Default: slog.Default().
	Logger *slog.Logger
}

// Store owns the key-value mapping and publishes a state.changed or
// state.cleared envelope through the bus on every mutation. Envelopes
// go out while the mutation lock is held, so subscribers observe them
// in the same order the map was updated. All methods are safe for
// concurrent use.
//
// Expiry is discovered lazily at read time and, optionally, by a
// background sweep (see Sweep). Whichever discovers an expired entry
// first removes it and emits exactly one state.cleared for it; once
// removed it cannot be discovered again, so the notification can never
// be duplicated.
type Store struct {
	bus     *event.Bus
	now     func() time.Time
	onWrite func(key string, expiring bool)
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// NewStore creates a store publishing through bus.
func NewStore(bus *event.Bus, config StoreConfig) *Store {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		bus:     bus,
		now:     now,
		onWrite: config.OnWrite,
		logger:  logger,
		entries: make(map[string]Entry),
	}
}

// SetOption configures a single Set or Clear call.
type SetOption func(*setConfig)

type setConfig struct {
	ttl    *time.Duration
	source *event.Source
}

// WithTTL gives the entry a time-to-live. A TTL of zero or less makes
// the entry expired on the very next read.
func WithTTL(ttl time.Duration) SetOption {
	return func(cfg *setConfig) {
		cfg.ttl = &ttl
	}
}

// WithSource overrides the source attribution on the published envelope.
// Default: {kind: "state", id: key}.
func WithSource(source event.Source) SetOption {
	return func(cfg *setConfig) {
		cfg.source = &source
	}
}

// Set stores value under key, overwriting any prior entry, and publishes
// state.changed with the entry as payload. Concurrent writers to the
// same key resolve last-write-wins by call order.
func (s *Store) Set(key string, value any, opts ...SetOption) Entry {
	cfg := &setConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	now := s.unixNow()
	entry := Entry{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}
	if cfg.ttl != nil {
		expiresAt := now + cfg.ttl.Seconds()
		entry.ExpiresAt = &expiresAt
	}

	source := event.Source{Kind: "state", ID: key}
	if cfg.source != nil {
		source = *cfg.source
	}

	// Published under the lock so envelope order always matches the
	// serialized map outcome. Publish never blocks, so holding the lock
	// across it is safe.
	s.mu.Lock()
	s.entries[key] = entry
	s.bus.Publish(event.New("state.changed", source, map[string]any{
		"key":        entry.Key,
		"value":      entry.Value,
		"updated_at": entry.UpdatedAt,
		"expires_at": expiresAtValue(entry.ExpiresAt),
	}))
	s.mu.Unlock()

	if s.onWrite != nil {
		s.onWrite(key, entry.ExpiresAt != nil)
	}

	return entry
}

// Get returns the live entry for key. An entry past its expiry is
// treated as absent: it is removed, its state.cleared is published, and
// a NotFoundError is returned.
func (s *Store) Get(key string) (Entry, error) {
	now := s.unixNow()

	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && entry.expired(now) {
		delete(s.entries, key)
		s.publishCleared(key)
		s.mu.Unlock()
		return Entry{}, errors.NewNotFound("state", key)
	}
	s.mu.Unlock()

	if !ok {
		return Entry{}, errors.NewNotFound("state", key)
	}
	return entry, nil
}

// List returns all live entries sorted by key. Expired entries are
// removed and their state.cleared envelopes published.
func (s *Store) List() []Entry {
	now := s.unixNow()

	s.mu.Lock()
	live := make([]Entry, 0, len(s.entries))
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			s.publishCleared(key)
			continue
		}
		live = append(live, entry)
	}
	s.mu.Unlock()

	sort.Slice(live, func(i, j int) bool { return live[i].Key < live[j].Key })
	return live
}

// Clear removes the entry for key and publishes state.cleared. Clearing
// an absent key is a no-op and publishes nothing.
func (s *Store) Clear(key string, opts ...SetOption) {
	cfg := &setConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	source := event.Source{Kind: "state", ID: key}
	if cfg.source != nil {
		source = *cfg.source
	}

	s.mu.Lock()
	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		s.bus.Publish(event.New("state.cleared", source, map[string]any{
			"key": key,
		}))
	}
	s.mu.Unlock()
}

// Len returns the number of stored entries, including any not yet
// discovered as expired.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep runs the background expiry loop until ctx is canceled. Each tick
// removes expired entries under the same lock as foreground mutation and
// publishes their state.cleared envelopes.
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweepOnce(); n > 0 {
				s.logger.Debug("expiry sweep cleared entries", slog.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// sweepOnce removes every expired entry and publishes its state.cleared.
func (s *Store) sweepOnce() int {
	now := s.unixNow()

	s.mu.Lock()
	cleared := 0
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			s.publishCleared(key)
			cleared++
		}
	}
	s.mu.Unlock()

	return cleared
}

func (s *Store) publishCleared(key string) {
	s.bus.Publish(event.New("state.cleared", event.Source{Kind: "state", ID: key}, map[string]any{
		"key": key,
	}))
}

func (s *Store) unixNow() float64 {
	return float64(s.now().UnixNano()) / 1e9
}

// expiresAtValue flattens the optional expiry for envelope payloads,
// matching the wire form where absence is encoded as null.
func expiresAtValue(expiresAt *float64) any {
	if expiresAt == nil {
		return nil
	}
	return *expiresAt
}
