package engine

import (
	"testing"
	"time"

	"github.com/amirphl/hybrid-trader/internal/indicator"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBar(ticker string, ts int64, c float64) sttypes.Bar {
	return sttypes.Bar{Ticker: ticker, TimestampMs: ts, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
}

func loadSpec(t *testing.T, e *Engine, raw spec.RawSpec) *spec.StrategySpec {
	s, err := spec.New(raw)
	require.NoError(t, err)
	e.Load(s)
	return s
}

func baseRaw() spec.RawSpec {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return spec.RawSpec{
		ID:        "spec-1",
		Ticker:    "BTCUSD",
		Timeframe: sttypes.Timeframe1Hour,
		DataRequirements: sttypes.DataRequirements{
			Indicators:    []string{indicator.RSI, indicator.SMA20},
			Lookback:      30,
			MinDataPoints: 21,
		},
		RiskParams: sttypes.RiskParameters{
			MaxPositionSize: 0.5, StopLoss: 0.02, TakeProfit: 0.04,
			MaxDailyLoss: 0.1, MaxDrawdown: 0.2, RiskPerTrade: 0.01,
		},
		CompiledAt: now,
		ExpiresAt:  now.Add(24 * time.Hour),
	}
}

// TestEngine_RSIConditionNeverFiresOnMonotonicRise mirrors the spec's
// literal end-to-end scenario's negative space: RSI on a strictly
// rising series approaches 100 and never dips under 30, so a
// "RSI < 30 && close > SMA_20" signal must never fire.
func TestEngine_RSIConditionNeverFiresOnMonotonicRise(t *testing.T) {
	e := New()
	raw := baseRaw()
	raw.Signals = []sttypes.Signal{
		{ID: "buy-dip", Condition: "RSI < 30 && close > SMA_20", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.7, Priority: 10},
	}
	loadSpec(t, e, raw)

	var decisions int
	for i := 0; i < 60; i++ {
		c := 100 + float64(i)
		d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), c), raw.CompiledAt)
		require.NoError(t, err)
		if d != nil {
			decisions++
		}
	}
	assert.Equal(t, 0, decisions)
}

// TestEngine_RSIConditionFiresOnSustainedDrop gives a direct,
// deterministic trigger for an RSI-only signal: a strictly decreasing
// price series drives Wilder RSI toward 0 (spec §8 boundary
// behavior), so it is guaranteed to cross under 30 eventually.
func TestEngine_RSIConditionFiresOnSustainedDrop(t *testing.T) {
	e := New()
	raw := baseRaw()
	raw.Signals = []sttypes.Signal{
		{ID: "buy-oversold", Condition: "RSI < 30", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.7, Priority: 10},
	}
	loadSpec(t, e, raw)

	var fired *sttypes.TradeDecision
	price := 500.0
	for i := 0; i < 100 && fired == nil; i++ {
		price--
		d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), price), raw.CompiledAt)
		require.NoError(t, err)
		if d != nil {
			fired = d
		}
	}
	require.NotNil(t, fired, "expected RSI<30 to fire during a sustained decline")
	assert.Equal(t, "buy-oversold", fired.SignalID)
}

func TestEngine_NoDecisionBeforeMinDataPoints(t *testing.T) {
	e := New()
	raw := baseRaw()
	raw.Signals = []sttypes.Signal{
		{ID: "s1", Condition: "close > 0", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	}
	loadSpec(t, e, raw)

	for i := 0; i < 20; i++ {
		d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), 100), raw.CompiledAt)
		require.NoError(t, err)
		require.Nil(t, d)
	}
}

// TestEngine_ReloadWithLargerLookbackGrowsRingCap covers a Spec reload
// (e.g. via RunRefreshLoop) that raises data_requirements.lookback for
// a ticker that already has a runtime: runtimeFor must grow the
// existing ring's capacity, or appendBar keeps truncating history to
// the old, smaller cap and MinDataPoints can never be reached again.
func TestEngine_ReloadWithLargerLookbackGrowsRingCap(t *testing.T) {
	e := New()
	raw := baseRaw()
	// No indicators, so lookback 5 is valid; MinDataPoints 4 keeps the three
	// pre-reload bars from opening a position that would block later BUYs.
	raw.DataRequirements.Indicators = nil
	raw.DataRequirements.Lookback = 5
	raw.DataRequirements.MinDataPoints = 4
	raw.Signals = []sttypes.Signal{
		{ID: "s1", Condition: "close > 0", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	}
	loadSpec(t, e, raw)

	for i := 0; i < 3; i++ {
		_, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), 100), raw.CompiledAt)
		require.NoError(t, err)
	}

	reloaded := raw
	reloaded.DataRequirements.Lookback = 50
	reloaded.DataRequirements.MinDataPoints = 40
	loadSpec(t, e, reloaded)

	var fired bool
	for i := 3; i < 45; i++ {
		d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), 100), raw.CompiledAt)
		require.NoError(t, err)
		if d != nil {
			fired = true
		}
	}
	assert.True(t, fired, "MinDataPoints=40 should be reachable after the ring grows to the reloaded lookback")
}

func TestEngine_OnePositionPerTicker(t *testing.T) {
	e := New()
	raw := baseRaw()
	raw.Signals = []sttypes.Signal{
		{ID: "always-buy", Condition: "close > 0", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	}
	loadSpec(t, e, raw)

	var opened int
	for i := 0; i < 30; i++ {
		d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), 100+float64(i)), raw.CompiledAt)
		require.NoError(t, err)
		if d != nil && d.Action == sttypes.ActionBuy {
			opened++
		}
	}
	assert.Equal(t, 1, opened)
	require.NotNil(t, e.PositionFor("BTCUSD"))
}

func TestEngine_SellClosesPosition(t *testing.T) {
	e := New()
	raw := baseRaw()
	raw.Signals = []sttypes.Signal{
		{ID: "buy-early", Condition: "timestamp < 21", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 10},
		{ID: "sell-later", Condition: "timestamp >= 21", Action: sttypes.ActionSell, PositionSize: 0.1, Confidence: 0.5, Priority: 5},
	}
	loadSpec(t, e, raw)

	for i := 0; i < 21; i++ {
		_, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), 100), raw.CompiledAt)
		require.NoError(t, err)
	}
	require.NotNil(t, e.PositionFor("BTCUSD"))

	d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", 21, 110), raw.CompiledAt)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, sttypes.ActionSell, d.Action)
	assert.Nil(t, e.PositionFor("BTCUSD"))
}

func TestEngine_ExpiredSpecYieldsNoDecision(t *testing.T) {
	e := New()
	raw := baseRaw()
	raw.Signals = []sttypes.Signal{
		{ID: "s1", Condition: "close > 0", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 1},
	}
	loadSpec(t, e, raw)

	past := raw.ExpiresAt.Add(time.Hour)
	d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", 0, 100), past)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestEngine_UnknownTickerYieldsNoDecision(t *testing.T) {
	e := New()
	d, err := e.OnBar("UNKNOWN", mkBar("UNKNOWN", 0, 100), time.Now())
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestEngine_PositionSizeAboveMaxIsRejected(t *testing.T) {
	e := New()
	raw := baseRaw()
	raw.RiskParams.MaxPositionSize = 0.05
	raw.Signals = []sttypes.Signal{
		{ID: "too-big", Condition: "close > 0", Action: sttypes.ActionBuy, PositionSize: 0.5, Confidence: 0.5, Priority: 1},
	}
	loadSpec(t, e, raw)

	for i := 0; i < 30; i++ {
		d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), 100), raw.CompiledAt)
		require.NoError(t, err)
		require.Nil(t, d)
	}
}

func TestEngine_ReplayDeterminism(t *testing.T) {
	raw := baseRaw()
	raw.Signals = []sttypes.Signal{
		{ID: "buy-early", Condition: "timestamp < 25", Action: sttypes.ActionBuy, PositionSize: 0.1, Confidence: 0.5, Priority: 10},
		{ID: "sell-later", Condition: "timestamp >= 25", Action: sttypes.ActionSell, PositionSize: 0.1, Confidence: 0.5, Priority: 5},
	}

	run := func() []*sttypes.TradeDecision {
		e := New()
		loadSpec(t, e, raw)
		var decisions []*sttypes.TradeDecision
		for i := 0; i < 40; i++ {
			d, err := e.OnBar("BTCUSD", mkBar("BTCUSD", int64(i), 100+float64(i%3)), raw.CompiledAt)
			require.NoError(t, err)
			decisions = append(decisions, d)
		}
		return decisions
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		if first[i] == nil {
			assert.Nil(t, second[i])
			continue
		}
		require.NotNil(t, second[i])
		assert.Equal(t, first[i].Action, second[i].Action)
		assert.Equal(t, first[i].SignalID, second[i].SignalID)
		assert.Equal(t, first[i].EntryPrice, second[i].EntryPrice)
	}
}
