package indicator

import (
	"testing"

	"github.com/amirphl/hybrid-trader/internal/sttypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBar(ticker string, ts int64, o, h, l, c, v float64) sttypes.Bar {
	return sttypes.Bar{Ticker: ticker, TimestampMs: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

func TestEngine_OnlyRequestedFieldsPopulated(t *testing.T) {
	e := NewEngine(0)
	var enriched sttypes.EnrichedBar
	for i := 0; i < 25; i++ {
		c := float64(100 + i)
		var err error
		enriched, err = e.Enrich("BTCUSD", mkBar("BTCUSD", int64(i), c, c+1, c-1, c, 10), []string{SMA20})
		require.NoError(t, err)
	}
	assert.NotNil(t, enriched.SMA20)
	assert.Nil(t, enriched.RSI)
	assert.Nil(t, enriched.ATR)
}

func TestEngine_SMAAbsentUntilWarm(t *testing.T) {
	e := NewEngine(0)
	for i := 0; i < 19; i++ {
		c := float64(100 + i)
		enriched, err := e.Enrich("BTCUSD", mkBar("BTCUSD", int64(i), c, c, c, c, 1), []string{SMA20})
		require.NoError(t, err)
		assert.Nil(t, enriched.SMA20)
	}
	c := float64(119)
	enriched, err := e.Enrich("BTCUSD", mkBar("BTCUSD", 19, c, c, c, c, 1), []string{SMA20})
	require.NoError(t, err)
	require.NotNil(t, enriched.SMA20)
	assert.InDelta(t, 109.5, *enriched.SMA20, 1e-9)
}

func TestEngine_SMAMatchesRecompute(t *testing.T) {
	e := NewEngine(0)
	var closes []float64
	for i := 0; i < 60; i++ {
		c := 100 + float64(i%7)*1.37
		closes = append(closes, c)
		enriched, err := e.Enrich("ETHUSD", mkBar("ETHUSD", int64(i), c, c+1, c-1, c, 5), []string{SMA20})
		require.NoError(t, err)
		if enriched.SMA20 == nil {
			continue
		}
		recomputed, ok := RecomputeSMA(closes, 20)
		require.True(t, ok)
		assert.InDelta(t, recomputed, *enriched.SMA20, 1e-9)
	}
}

func TestEngine_EMAMatchesRecompute(t *testing.T) {
	e := NewEngine(0)
	var closes []float64
	for i := 0; i < 40; i++ {
		c := 50 + float64(i%5)*2.1
		closes = append(closes, c)
		enriched, err := e.Enrich("SOLUSD", mkBar("SOLUSD", int64(i), c, c+1, c-1, c, 5), []string{EMA12})
		require.NoError(t, err)
		if enriched.EMA12 == nil {
			continue
		}
		recomputed, ok := RecomputeEMA(closes, 12)
		require.True(t, ok)
		assert.InDelta(t, recomputed, *enriched.EMA12, 1e-9)
	}
}

func TestEngine_MACDSignalWarmsUpAfterMACD(t *testing.T) {
	e := NewEngine(0)
	var macdReadyAt, signalReadyAt = -1, -1
	for i := 0; i < 60; i++ {
		c := 100 + float64(i)*0.5
		enriched, err := e.Enrich("BTCUSD", mkBar("BTCUSD", int64(i), c, c+1, c-1, c, 5), []string{MACD})
		require.NoError(t, err)
		if enriched.MACD != nil && macdReadyAt == -1 {
			macdReadyAt = i
		}
		if enriched.MACDSignal != nil && signalReadyAt == -1 {
			signalReadyAt = i
		}
	}
	require.NotEqual(t, -1, macdReadyAt)
	require.NotEqual(t, -1, signalReadyAt)
	assert.Greater(t, signalReadyAt, macdReadyAt)
}

func TestEngine_BollingerBandsOrdering(t *testing.T) {
	e := NewEngine(0)
	var enriched sttypes.EnrichedBar
	for i := 0; i < 25; i++ {
		c := 100 + float64(i%3)
		var err error
		enriched, err = e.Enrich("BTCUSD", mkBar("BTCUSD", int64(i), c, c+1, c-1, c, 5), []string{BollingerBands})
		require.NoError(t, err)
	}
	require.NotNil(t, enriched.BBUpper)
	require.NotNil(t, enriched.BBLower)
	assert.GreaterOrEqual(t, *enriched.BBUpper, *enriched.BBMiddle)
	assert.GreaterOrEqual(t, *enriched.BBMiddle, *enriched.BBLower)
}

func TestEngine_VolumeRatio(t *testing.T) {
	e := NewEngine(0)
	var enriched sttypes.EnrichedBar
	for i := 0; i < 19; i++ {
		enriched, _ = e.Enrich("BTCUSD", mkBar("BTCUSD", int64(i), 1, 1, 1, 1, 10), []string{VolumeAvg})
	}
	require.Nil(t, enriched.VolumeAvg)
	enriched, err := e.Enrich("BTCUSD", mkBar("BTCUSD", 19, 1, 1, 1, 1, 40), []string{VolumeAvg})
	require.NoError(t, err)
	require.NotNil(t, enriched.VolumeRatio)
	assert.Greater(t, *enriched.VolumeRatio, 1.0)
}

func TestEngine_DropsInvalidBarWithoutMutatingState(t *testing.T) {
	e := NewEngine(0)
	for i := 0; i < 20; i++ {
		c := float64(100 + i)
		_, err := e.Enrich("BTCUSD", mkBar("BTCUSD", int64(i), c, c+1, c-1, c, 1), []string{SMA20})
		require.NoError(t, err)
	}
	_, err := e.Enrich("BTCUSD", mkBar("BTCUSD", 20, 10, 5, 20, 10, 1), []string{SMA20}) // high < low
	require.Error(t, err)

	enriched, err := e.Enrich("BTCUSD", mkBar("BTCUSD", 21, 119, 120, 118, 119, 1), []string{SMA20})
	require.NoError(t, err)
	require.NotNil(t, enriched.SMA20)
}

func TestEngine_ResetClearsTickerState(t *testing.T) {
	e := NewEngine(0)
	for i := 0; i < 20; i++ {
		c := float64(100 + i)
		_, err := e.Enrich("BTCUSD", mkBar("BTCUSD", int64(i), c, c, c, c, 1), []string{SMA20})
		require.NoError(t, err)
	}
	e.Reset("BTCUSD")
	enriched, err := e.Enrich("BTCUSD", mkBar("BTCUSD", 0, 1, 1, 1, 1, 1), []string{SMA20})
	require.NoError(t, err)
	assert.Nil(t, enriched.SMA20)
}

func TestMaxPeriod(t *testing.T) {
	assert.Equal(t, 200, MaxPeriod([]string{SMA20, SMA200}))
	assert.Equal(t, 15, MaxPeriod([]string{RSI}))
	assert.Equal(t, 0, MaxPeriod(nil))
}

func TestKnownIndicatorNames(t *testing.T) {
	assert.True(t, KnownIndicatorNames(RSI))
	assert.False(t, KnownIndicatorNames("not_a_real_indicator"))
}
