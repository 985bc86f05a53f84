package storage

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/hybrid-trader/internal/events"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_SaveAndLoadSpec(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveSpec(ctx, spec.RawSpec{ID: "s1", Ticker: "BTCUSD"}))
	got, err := m.LoadSpec(ctx, "BTCUSD")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s1", got.ID)

	none, err := m.LoadSpec(ctx, "UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryStorage_SaveSpecOverwritesPriorVersion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveSpec(ctx, spec.RawSpec{ID: "v1", Ticker: "BTCUSD"}))
	require.NoError(t, m.SaveSpec(ctx, spec.RawSpec{ID: "v2", Ticker: "BTCUSD"}))
	got, err := m.LoadSpec(ctx, "BTCUSD")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.ID)
}

func TestMemoryStorage_LoadBarsFiltersBySince(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	bars := []sttypes.Bar{
		{Ticker: "BTCUSD", TimestampMs: 1000, Open: 1, High: 1, Low: 1, Close: 1},
		{Ticker: "BTCUSD", TimestampMs: 2000, Open: 1, High: 1, Low: 1, Close: 1},
		{Ticker: "BTCUSD", TimestampMs: 3000, Open: 1, High: 1, Low: 1, Close: 1},
	}
	require.NoError(t, m.SaveBars(ctx, "BTCUSD", bars))

	got, err := m.LoadBars(ctx, "BTCUSD", time.UnixMilli(2000))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].TimestampMs)
	assert.Equal(t, int64(3000), got[1].TimestampMs)
}

func TestMemoryStorage_RecentTradesRespectsLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.SaveTrade(ctx, "BTCUSD", sttypes.Trade{Ticker: "BTCUSD", TimestampMs: int64(i)}))
	}

	got, err := m.RecentTrades(ctx, "BTCUSD", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].TimestampMs, "the last 2 of 5 trades, oldest first")
	assert.Equal(t, int64(4), got[1].TimestampMs)
}

func TestMemoryStorage_RecentEventsOrderedOldestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.SaveEvent(ctx, events.Event{ID: "1", Message: "first"}))
	require.NoError(t, m.SaveEvent(ctx, events.Event{ID: "2", Message: "second"}))

	got, err := m.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
}
