package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/hybrid-trader/internal/backtest"
	"github.com/amirphl/hybrid-trader/internal/engine"
	"github.com/amirphl/hybrid-trader/internal/producer"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	bars map[string][]sttypes.Bar // keyed by range
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, ticker, rng string) ([]sttypes.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bars[rng], nil
}

func flatBars(ticker string, n int, price float64) []sttypes.Bar {
	bars := make([]sttypes.Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = sttypes.Bar{Ticker: ticker, TimestampMs: int64(i), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10}
	}
	return bars
}

func validRaw(ticker string, signals []sttypes.Signal) spec.RawSpec {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return spec.RawSpec{
		ID:     "spec-" + ticker,
		Ticker: ticker,
		Timeframe: sttypes.Timeframe1Hour,
		DataRequirements: sttypes.DataRequirements{Lookback: 5, MinDataPoints: 1},
		Signals: signals,
		RiskParams: sttypes.RiskParameters{
			MaxPositionSize: 0.5, StopLoss: 0.5, TakeProfit: 0.5,
			MaxDailyLoss: 0.3, MaxDrawdown: 1, RiskPerTrade: 0.01,
		},
		CompiledAt: now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
}

func TestRunGate1_PassTransitionsToTradingAndLoadsSpec(t *testing.T) {
	raw := validRaw("BTCUSD", []sttypes.Signal{
		{ID: "buy-10", Condition: "timestamp == 10", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	})
	prod := producer.NewStatic(map[string]spec.RawSpec{"BTCUSD": raw})
	fetcher := &fakeFetcher{bars: map[string][]sttypes.Bar{"3mo": flatBars("BTCUSD", 150, 100)}}

	o := New(engine.New(), prod, fetcher,
		Gate1Config{MinTrades: 0, MaxDrawdownPct: 100, MinReturnPct: -100},
		Gate2Config{},
		backtest.Options{InitialCapital: 100000, CommissionRate: 0.001, Slippage: 0.0005},
	)

	result, diag, err := o.RunGate1(context.Background(), "BTCUSD", "q", 100)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Nil(t, diag)
	assert.Equal(t, ModeTrading, o.Mode())
	require.NotNil(t, o.Engine.SpecFor("BTCUSD"))
}

func TestRunGate1_FailStaysInResearchAndReturnsDiagnosis(t *testing.T) {
	raw := validRaw("BTCUSD", []sttypes.Signal{
		{ID: "never", Condition: "timestamp == 999999", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	})
	prod := producer.NewStatic(map[string]spec.RawSpec{"BTCUSD": raw})
	fetcher := &fakeFetcher{bars: map[string][]sttypes.Bar{"3mo": flatBars("BTCUSD", 150, 100)}}

	o := New(engine.New(), prod, fetcher,
		Gate1Config{MinTrades: 3, MaxDrawdownPct: 20, MinReturnPct: -5},
		Gate2Config{},
		backtest.Options{},
	)

	result, diag, err := o.RunGate1(context.Background(), "BTCUSD", "q", 100)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, diag)
	assert.Equal(t, ModeResearch, o.Mode())
	assert.Nil(t, o.Engine.SpecFor("BTCUSD"))
}

func TestRunGate1_EscalatesHistoryRangeUntilEnoughBars(t *testing.T) {
	raw := validRaw("BTCUSD", []sttypes.Signal{
		{ID: "buy-10", Condition: "timestamp == 10", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	})
	prod := producer.NewStatic(map[string]spec.RawSpec{"BTCUSD": raw})
	fetcher := &fakeFetcher{bars: map[string][]sttypes.Bar{
		"3mo": flatBars("BTCUSD", 10, 100), // too few
		"6mo": flatBars("BTCUSD", 150, 100),
	}}

	o := New(engine.New(), prod, fetcher, Gate1Config{MinTrades: 0, MaxDrawdownPct: 100, MinReturnPct: -100}, Gate2Config{}, backtest.Options{})

	result, _, err := o.RunGate1(context.Background(), "BTCUSD", "q", 100)
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestOnTradeClosed_DriftGateTripsAfterConsecutiveLosses(t *testing.T) {
	o := New(engine.New(), nil, nil, Gate1Config{}, Gate2Config{MaxConsecutiveLosses: 3}, backtest.Options{})
	o.mode = ModeTrading // force TRADING for this unit test, bypassing Gate #1

	o.OnTradeClosed("BTCUSD", -0.01, 1.0)
	assert.Equal(t, ModeTrading, o.Mode())
	o.OnTradeClosed("BTCUSD", -0.01, 1.0)
	assert.Equal(t, ModeTrading, o.Mode())
	o.OnTradeClosed("BTCUSD", -0.01, 1.0)
	assert.Equal(t, ModeResearch, o.Mode())
}

func TestOnTradeClosed_WinResetsConsecutiveLossCounter(t *testing.T) {
	o := New(engine.New(), nil, nil, Gate1Config{}, Gate2Config{MaxConsecutiveLosses: 3}, backtest.Options{})
	o.mode = ModeTrading

	o.OnTradeClosed("BTCUSD", -0.01, 1.0)
	o.OnTradeClosed("BTCUSD", 0.02, 1.0) // win resets the streak
	o.OnTradeClosed("BTCUSD", -0.01, 1.0)
	o.OnTradeClosed("BTCUSD", -0.01, 1.0)
	assert.Equal(t, ModeTrading, o.Mode(), "only 2 consecutive losses since the reset, gate2 threshold is 3")
}

func TestOnTradeClosed_RedlineTripsToPaused(t *testing.T) {
	o := New(engine.New(), nil, nil, Gate1Config{}, Gate2Config{}, backtest.Options{})
	o.mode = ModeTrading

	o.OnTradeClosed("BTCUSD", -0.15, 0.10) // single loss already breaches 10% daily loss
	assert.Equal(t, ModePaused, o.Mode())
}

func TestResume_OnlyLeavesPaused(t *testing.T) {
	o := New(engine.New(), nil, nil, Gate1Config{}, Gate2Config{}, backtest.Options{})
	o.Resume()
	assert.Equal(t, ModeResearch, o.Mode(), "resume is a no-op outside PAUSED")

	o.mode = ModePaused
	o.Resume()
	assert.Equal(t, ModeResearch, o.Mode())
}

func TestRunRefreshLoop_StopsOnContextCancel(t *testing.T) {
	raw := validRaw("BTCUSD", []sttypes.Signal{
		{ID: "s1", Condition: "close > 0", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	})
	prod := producer.NewStatic(map[string]spec.RawSpec{"BTCUSD": raw})
	o := New(engine.New(), prod, nil, Gate1Config{}, Gate2Config{}, backtest.Options{})
	o.RefreshInterval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		o.RunRefreshLoop(ctx, map[string]string{"BTCUSD": "q"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunRefreshLoop did not stop after context cancellation")
	}
	assert.GreaterOrEqual(t, prod.Calls(), 1)
	require.NotNil(t, o.Engine.SpecFor("BTCUSD"))
}
