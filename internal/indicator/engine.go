// Package indicator is the Indicator Engine (spec §4.1): O(1)-amortized
// per-bar incremental computation of SMA, EMA, RSI (Wilder), MACD,
// Bollinger Bands, ATR, and volume statistics, keyed per ticker.
//
// State is exclusively owned by the Engine and mutated only by
// Enrich; the teacher's whole-series Indicator interface
// (Calculate(values) ([]float64, error)) recomputes from scratch on
// every call, which is fine for an offline pass but wrong for a
// fast-path decision loop that must stay O(1) per bar — this package
// replaces it with per-ticker accumulators instead.
package indicator

import (
	"fmt"
	"sync"

	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Symbolic indicator names, the vocabulary DataRequirements.indicators
// is drawn from (spec §3).
const (
	SMA20           = "sma_20"
	SMA50           = "sma_50"
	SMA200          = "sma_200"
	EMA12           = "ema_12"
	EMA26           = "ema_26"
	RSI             = "rsi"
	MACD            = "macd"
	BollingerBands  = "bb"
	ATR             = "atr"
	VolumeAvg       = "volume_avg"
)

// smaPeriods and emaPeriods map symbolic names to their period, used
// both by Enrich and by MaxPeriod.
var smaPeriods = map[string]int{SMA20: 20, SMA50: 50, SMA200: 200}
var emaPeriods = map[string]int{EMA12: 12, EMA26: 26}

const (
	rsiPeriod    = 14
	bbPeriod     = 20
	bbK          = 2.0
	atrPeriod    = 14
	volumePeriod = 20
	macdWarmup   = 26 + 9 // slow EMA + signal EMA, for MaxPeriod purposes
)

// MaxPeriod returns the longest warm-up period implied by names,
// used by internal/spec to validate DataRequirements (lookback must
// be at least this long).
func MaxPeriod(names []string) int {
	max := 0
	consider := func(p int) {
		if p > max {
			max = p
		}
	}
	for _, n := range names {
		switch n {
		case SMA20, SMA50, SMA200:
			consider(smaPeriods[n])
		case EMA12, EMA26:
			consider(emaPeriods[n])
		case RSI:
			consider(rsiPeriod + 1)
		case MACD:
			consider(macdWarmup)
		case BollingerBands:
			consider(bbPeriod)
		case ATR:
			consider(atrPeriod)
		case VolumeAvg:
			consider(volumePeriod)
		}
	}
	return max
}

// KnownIndicatorNames reports whether name is a symbolic indicator
// name this engine understands, used to validate a Spec's requested
// indicator list at load time.
func KnownIndicatorNames(name string) bool {
	switch name {
	case SMA20, SMA50, SMA200, EMA12, EMA26, RSI, MACD, BollingerBands, ATR, VolumeAvg:
		return true
	}
	return false
}

type tickerState struct {
	ringCap int
	ring    []sttypes.Bar

	smas map[string]*smaAcc
	emas map[string]*emaAcc
	rsi  *rsiAcc
	macd *macdAcc
	bb   *bbAcc
	atr  *atrAcc
	vol  *volAcc
}

func newTickerState(ringCap int) *tickerState {
	return &tickerState{
		ringCap: ringCap,
		smas:    make(map[string]*smaAcc),
		emas:    make(map[string]*emaAcc),
	}
}

func (st *tickerState) appendRing(bar sttypes.Bar) {
	st.ring = append(st.ring, bar)
	if len(st.ring) > st.ringCap {
		st.ring = st.ring[len(st.ring)-st.ringCap:]
	}
}

// Engine is the Indicator Engine. One Engine instance is normally
// shared by every ticker C4/C5 track; per-ticker state never
// contends with another ticker's, but the map of tickers itself is
// guarded by mu since the fast path and a concurrent diagnostics read
// could both touch it.
type Engine struct {
	mu      sync.Mutex
	ringCap int
	states  map[string]*tickerState
}

// NewEngine constructs an Engine. ringCap bounds the per-ticker bar
// ring (spec §3: "bounded by lookback × 2"); callers that don't know
// their lookback ahead of time can pass 0 for a generous default.
func NewEngine(ringCap int) *Engine {
	if ringCap <= 0 {
		ringCap = 500
	}
	return &Engine{ringCap: ringCap, states: make(map[string]*tickerState)}
}

func (e *Engine) stateFor(ticker string) *tickerState {
	st, ok := e.states[ticker]
	if !ok {
		st = newTickerState(e.ringCap)
		e.states[ticker] = st
	}
	return st
}

// Enrich appends newBar to ticker's ring and state, and returns an
// EnrichedBar with one field populated per name in requested —
// absent when history is insufficient, absent entirely for names not
// requested. NaN/Inf/invalid bars are dropped without mutating any
// state (spec §4.1 failure semantics).
func (e *Engine) Enrich(ticker string, newBar sttypes.Bar, requested []string) (sttypes.EnrichedBar, error) {
	if err := newBar.Validate(); err != nil {
		return sttypes.EnrichedBar{}, fmt.Errorf("indicator: dropped invalid bar: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.stateFor(ticker)
	st.appendRing(newBar)

	out := sttypes.EnrichedBar{Bar: newBar}
	for _, name := range requested {
		switch name {
		case SMA20, SMA50, SMA200:
			acc, ok := st.smas[name]
			if !ok {
				acc = newSMAAcc(smaPeriods[name])
				st.smas[name] = acc
			}
			if v, ready := acc.update(newBar.Close); ready {
				assignSMA(&out, name, v)
			}
		case EMA12, EMA26:
			acc, ok := st.emas[name]
			if !ok {
				acc = newEMAAcc(emaPeriods[name])
				st.emas[name] = acc
			}
			if v, ready := acc.update(newBar.Close); ready {
				assignEMA(&out, name, v)
			}
		case RSI:
			if st.rsi == nil {
				st.rsi = newRSIAcc(rsiPeriod)
			}
			if v, ready := st.rsi.update(newBar.Close); ready {
				out.RSI = ptr(v)
			}
		case MACD:
			if st.macd == nil {
				st.macd = newMACDAcc()
			}
			macd, macdReady, signal, hist, signalReady := st.macd.update(newBar.Close)
			if macdReady {
				out.MACD = ptr(macd)
			}
			if signalReady {
				out.MACDSignal = ptr(signal)
				out.MACDHist = ptr(hist)
			}
		case BollingerBands:
			if st.bb == nil {
				st.bb = newBBAcc(bbPeriod, bbK)
			}
			if upper, middle, lower, ready := st.bb.update(newBar.Close); ready {
				out.BBUpper, out.BBMiddle, out.BBLower = ptr(upper), ptr(middle), ptr(lower)
			}
		case ATR:
			if st.atr == nil {
				st.atr = newATRAcc(atrPeriod)
			}
			if v, ready := st.atr.update(newBar.High, newBar.Low, newBar.Close); ready {
				out.ATR = ptr(v)
			}
		case VolumeAvg:
			if st.vol == nil {
				st.vol = newVolAcc(volumePeriod)
			}
			if avg, ratio, ready := st.vol.update(newBar.Volume); ready {
				out.VolumeAvg, out.VolumeRatio = ptr(avg), ptr(ratio)
			}
		}
	}
	return out, nil
}

// Reset clears accumulator state for one ticker, or every ticker when
// ticker is empty (spec §4.1 "reset(ticker?) clears state").
func (e *Engine) Reset(ticker string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ticker == "" {
		e.states = make(map[string]*tickerState)
		return
	}
	delete(e.states, ticker)
}

func ptr(v float64) *float64 { return &v }

func assignSMA(out *sttypes.EnrichedBar, name string, v float64) {
	switch name {
	case SMA20:
		out.SMA20 = ptr(v)
	case SMA50:
		out.SMA50 = ptr(v)
	case SMA200:
		out.SMA200 = ptr(v)
	}
}

func assignEMA(out *sttypes.EnrichedBar, name string, v float64) {
	switch name {
	case EMA12:
		out.EMA12 = ptr(v)
	case EMA26:
		out.EMA26 = ptr(v)
	}
}
