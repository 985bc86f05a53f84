package storage

import (
	"context"
	"sync"
	"time"

	"github.com/amirphl/hybrid-trader/internal/events"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// MemoryStorage is an in-memory Storage used by tests and by
// cmd/hybridtrader when no DB connection string is set, grounded on the teacher's
// db.MemoryStorage (internal/db/memory.go: sync.RWMutex-guarded maps,
// append-only event log).
type MemoryStorage struct {
	mu sync.RWMutex

	specs  map[string]spec.RawSpec
	bars   map[string][]sttypes.Bar
	trades map[string][]sttypes.Trade
	events []events.Event
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		specs:  make(map[string]spec.RawSpec),
		bars:   make(map[string][]sttypes.Bar),
		trades: make(map[string][]sttypes.Trade),
	}
}

func (m *MemoryStorage) SaveSpec(ctx context.Context, raw spec.RawSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specs[raw.Ticker] = raw
	return nil
}

func (m *MemoryStorage) LoadSpec(ctx context.Context, ticker string) (*spec.RawSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.specs[ticker]
	if !ok {
		return nil, nil
	}
	return &raw, nil
}

func (m *MemoryStorage) SaveBars(ctx context.Context, ticker string, bars []sttypes.Bar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[ticker] = append(m.bars[ticker], bars...)
	return nil
}

func (m *MemoryStorage) LoadBars(ctx context.Context, ticker string, since time.Time) ([]sttypes.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sinceMs := since.UnixMilli()
	out := make([]sttypes.Bar, 0, len(m.bars[ticker]))
	for _, b := range m.bars[ticker] {
		if b.TimestampMs >= sinceMs {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MemoryStorage) SaveTrade(ctx context.Context, ticker string, trade sttypes.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[ticker] = append(m.trades[ticker], trade)
	return nil
}

// RecentTrades returns the last limit trades for ticker, oldest first
// (the order they were recorded in).
func (m *MemoryStorage) RecentTrades(ctx context.Context, ticker string, limit int) ([]sttypes.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.trades[ticker]
	if limit <= 0 || limit >= len(all) {
		return append([]sttypes.Trade(nil), all...), nil
	}
	return append([]sttypes.Trade(nil), all[len(all)-limit:]...), nil
}

func (m *MemoryStorage) SaveEvent(ctx context.Context, evt events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

// RecentEvents returns the last limit events, oldest first.
func (m *MemoryStorage) RecentEvents(ctx context.Context, limit int) ([]events.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit >= len(m.events) {
		return append([]events.Event(nil), m.events...), nil
	}
	return append([]events.Event(nil), m.events[len(m.events)-limit:]...), nil
}

func (m *MemoryStorage) Close() error { return nil }
