// Package storage is the ambient persistence layer (spec §9 "Ambient
// persistence"): Strategy Specs, historical bars, closed trades, and
// the event stream survive a restart. Narrowed from the teacher's
// internal/db (candle/order/orderbook/tick/position schema) to the
// four tables this pipeline actually needs.
package storage

import (
	"context"
	"time"

	"github.com/amirphl/hybrid-trader/internal/events"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Storage is the interface both PostgresStorage and MemoryStorage
// satisfy, mirrored from the teacher's db.Storage composition
// (internal/db/db.go) but narrowed to this pipeline's own tables.
type Storage interface {
	SaveSpec(ctx context.Context, raw spec.RawSpec) error
	LoadSpec(ctx context.Context, ticker string) (*spec.RawSpec, error)

	SaveBars(ctx context.Context, ticker string, bars []sttypes.Bar) error
	LoadBars(ctx context.Context, ticker string, since time.Time) ([]sttypes.Bar, error)

	SaveTrade(ctx context.Context, ticker string, trade sttypes.Trade) error
	RecentTrades(ctx context.Context, ticker string, limit int) ([]sttypes.Trade, error)

	SaveEvent(ctx context.Context, evt events.Event) error
	RecentEvents(ctx context.Context, limit int) ([]events.Event, error)

	Close() error
}
