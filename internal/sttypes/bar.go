// Package sttypes holds the shared data vocabulary of the hybrid
// pipeline: bars, enriched bars, positions, decisions, and trades
// (spec §3). These are plain data types with no behavior beyond
// validation, mirroring the teacher's candle.Candle.
package sttypes

import (
	"errors"
	"math"
	"time"
)

// Bar is one immutable OHLCV sample (spec §3 "Bar").
type Bar struct {
	Ticker      string
	TimestampMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Validate enforces the Bar invariants: low <= open,close <= high;
// volume >= 0; no NaN/Inf fields. Dropped bars are the caller's
// responsibility (spec §3: "dropped if any field is null/NaN").
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("sttypes: bar field is NaN/Inf")
		}
	}
	if b.Low > b.Open || b.Open > b.High {
		return errors.New("sttypes: bar open out of [low,high]")
	}
	if b.Low > b.Close || b.Close > b.High {
		return errors.New("sttypes: bar close out of [low,high]")
	}
	if b.Low > b.High {
		return errors.New("sttypes: bar low > high")
	}
	if b.Volume < 0 {
		return errors.New("sttypes: bar volume negative")
	}
	if b.Ticker == "" {
		return errors.New("sttypes: bar ticker empty")
	}
	return nil
}

// Time returns the bar's timestamp as a time.Time (UTC).
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.TimestampMs).UTC()
}

// EnrichedBar is a Bar plus the indicator fields the Indicator Engine
// computed for it. Absent indicators are nil pointers, never a
// sentinel value (spec §3 "Fields are absent (not zero)...").
type EnrichedBar struct {
	Bar

	SMA20  *float64
	SMA50  *float64
	SMA200 *float64

	EMA12 *float64
	EMA26 *float64

	RSI *float64

	MACD         *float64
	MACDSignal   *float64
	MACDHist     *float64

	BBUpper  *float64
	BBMiddle *float64
	BBLower  *float64

	ATR *float64

	VolumeAvg   *float64
	VolumeRatio *float64
}

// Field looks up a named bar/indicator field for the condition
// evaluator. known is false for unknown identifiers; present is false for
// known-but-absent indicators (insufficient history).
func (e EnrichedBar) Field(name string) (value float64, present bool, known bool) {
	switch name {
	case "open":
		return e.Open, true, true
	case "high":
		return e.High, true, true
	case "low":
		return e.Low, true, true
	case "close", "price":
		return e.Close, true, true
	case "volume":
		return e.Volume, true, true
	case "timestamp":
		return float64(e.TimestampMs), true, true
	case "sma_20", "sma20":
		return derefOK(e.SMA20)
	case "sma_50", "sma50":
		return derefOK(e.SMA50)
	case "sma_200", "sma200":
		return derefOK(e.SMA200)
	case "ema_12", "ema12":
		return derefOK(e.EMA12)
	case "ema_26", "ema26":
		return derefOK(e.EMA26)
	case "rsi":
		return derefOK(e.RSI)
	case "macd":
		return derefOK(e.MACD)
	case "macd_signal":
		return derefOK(e.MACDSignal)
	case "macd_histogram":
		return derefOK(e.MACDHist)
	case "bb_upper":
		return derefOK(e.BBUpper)
	case "bb_middle":
		return derefOK(e.BBMiddle)
	case "bb_lower":
		return derefOK(e.BBLower)
	case "atr":
		return derefOK(e.ATR)
	case "volume_avg":
		return derefOK(e.VolumeAvg)
	case "volume_ratio":
		return derefOK(e.VolumeRatio)
	case "ticker":
		// Ticker is non-numeric; comparisons against it are never
		// satisfiable through the numeric evaluator, so it is "known"
		// but never "present" as a number.
		return 0, false, true
	default:
		return 0, false, false
	}
}

func derefOK(p *float64) (float64, bool, bool) {
	if p == nil {
		return 0, false, true
	}
	return *p, true, true
}
