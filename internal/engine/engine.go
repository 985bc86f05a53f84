// Package engine implements the Fast Execution Engine (spec §4.3, C4):
// a non-suspending, single-threaded-per-call decision loop that turns
// a live or historical bar into at most one TradeDecision, using C1
// (internal/indicator) to enrich the bar and C2 (internal/condition,
// via internal/spec's compiled predicates) to evaluate signals.
//
// Engine is stateless with respect to Specs — they are owned by the
// Orchestrator and merely borrowed here, replaced wholesale via Load —
// but stateful with respect to bar history, open positions, and daily
// P&L, exactly as the teacher's position.Position/strategy.Strategy
// split data ownership between the strategy (decisions) and the
// position store (state).
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/indicator"
	"github.com/amirphl/hybrid-trader/internal/obslog"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

type tickerRuntime struct {
	mu sync.Mutex

	ring    []sttypes.Bar
	ringCap int

	position *sttypes.Position

	dailyPnLFraction float64
}

func newTickerRuntime(ringCap int) *tickerRuntime {
	return &tickerRuntime{ringCap: ringCap}
}

func (r *tickerRuntime) appendBar(bar sttypes.Bar) int {
	r.ring = append(r.ring, bar)
	if len(r.ring) > r.ringCap {
		r.ring = r.ring[len(r.ring)-r.ringCap:]
	}
	return len(r.ring)
}

// Engine is C4. One Engine instance normally serves every ticker in a
// watchlist; the per-ticker runtime and the shared indicator Engine
// never contend across tickers.
type Engine struct {
	indicators *indicator.Engine
	specs      atomic.Pointer[map[string]*spec.StrategySpec]

	mu        sync.Mutex
	runtimes  map[string]*tickerRuntime
	maxLatMs  float64
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithMaxLatencyMs sets the decision latency beyond which OnBar logs a
// warning (spec §4.3 "latency budget").
func WithMaxLatencyMs(ms float64) Option {
	return func(e *Engine) { e.maxLatMs = ms }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		indicators: indicator.NewEngine(0),
		runtimes:   make(map[string]*tickerRuntime),
		maxLatMs:   1.0,
	}
	empty := make(map[string]*spec.StrategySpec)
	e.specs.Store(&empty)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load atomically installs s as the live Spec for s.Ticker, replacing
// any prior Spec for that ticker via copy-on-write (spec §4.5/§5:
// "Spec replacement is observed atomically").
func (e *Engine) Load(s *spec.StrategySpec) {
	for {
		old := e.specs.Load()
		next := make(map[string]*spec.StrategySpec, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[s.Ticker] = s
		if e.specs.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Unload removes ticker's live Spec, if any.
func (e *Engine) Unload(ticker string) {
	for {
		old := e.specs.Load()
		if _, ok := (*old)[ticker]; !ok {
			return
		}
		next := make(map[string]*spec.StrategySpec, len(*old))
		for k, v := range *old {
			if k != ticker {
				next[k] = v
			}
		}
		if e.specs.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SpecFor returns ticker's currently loaded Spec, or nil.
func (e *Engine) SpecFor(ticker string) *spec.StrategySpec {
	return (*e.specs.Load())[ticker]
}

// PositionFor returns a copy of ticker's open position, or nil if
// flat.
func (e *Engine) PositionFor(ticker string) *sttypes.Position {
	e.mu.Lock()
	rt, ok := e.runtimes[ticker]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.position == nil {
		return nil
	}
	p := *rt.position
	return &p
}

// ClosePosition force-clears ticker's open position without emitting a
// decision. Callers that close a position outside the decision loop —
// the backtest engine's stop-loss/take-profit maintenance pass — must
// call this so OnBar's no-pyramiding gate does not keep believing a
// position is open.
func (e *Engine) ClosePosition(ticker string) {
	e.mu.Lock()
	rt, ok := e.runtimes[ticker]
	e.mu.Unlock()
	if !ok {
		return
	}
	rt.mu.Lock()
	rt.position = nil
	rt.mu.Unlock()
}

func (e *Engine) runtimeFor(ticker string, ringCap int) *tickerRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	rt, ok := e.runtimes[ticker]
	if !ok {
		rt = newTickerRuntime(ringCap)
		e.runtimes[ticker] = rt
		return rt
	}
	// A Spec reload (RunRefreshLoop) can raise data_requirements.lookback
	// for a ticker that already has a runtime; grow ringCap to match so
	// appendBar stops truncating history below the new MinDataPoints, or
	// the signal loop stalls forever waiting for bars the ring discards.
	rt.mu.Lock()
	if ringCap > rt.ringCap {
		rt.ringCap = ringCap
	}
	rt.mu.Unlock()
	return rt
}

// OnBar is the C4 decision loop (spec §4.3). It never blocks and
// never panics on ordinary failure modes — a nil decision with a nil
// error means "nothing to do"; a non-nil error means an internal
// invariant was violated (errs.EngineInvariant), which fast-path
// callers should treat as fatal to this Engine instance, not to the
// caller's process.
func (e *Engine) OnBar(ticker string, bar sttypes.Bar, now time.Time) (*sttypes.TradeDecision, error) {
	start := time.Now()
	s := e.SpecFor(ticker)
	if s == nil || s.Expired(now) {
		return nil, nil
	}
	if s.Ticker != ticker {
		return nil, errs.New(errs.EngineInvariant, "engine.OnBar", "spec ticker mismatch")
	}

	rt := e.runtimeFor(ticker, s.DataRequirements.Lookback*2)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	n := rt.appendBar(bar)
	if n < s.DataRequirements.MinDataPoints {
		return nil, nil
	}

	enriched, err := e.indicators.Enrich(ticker, bar, s.DataRequirements.Indicators)
	if err != nil {
		obslog.For("engine").WithError(err).Warn("dropped bar")
		return nil, nil
	}

	for _, sig := range s.Signals {
		if s.IsDisabled(sig.ID) {
			continue
		}
		pred := s.Predicate(sig.ID)
		if pred == nil {
			return nil, errs.New(errs.EngineInvariant, "engine.OnBar", "signal "+sig.ID+" has no compiled predicate")
		}
		fired, hadErr := pred.Eval(condEnv{enriched})
		if hadErr {
			s.RecordEvalError(sig.ID)
			continue
		}
		s.RecordEvalOK(sig.ID)
		if !fired {
			continue
		}

		decision, accepted := e.applyRiskGates(rt, s, sig, enriched)
		if !accepted {
			continue
		}
		decision.LatencyNs = time.Since(start).Nanoseconds()
		if ms := float64(decision.LatencyNs) / 1e6; ms > e.maxLatMs {
			obslog.For("engine").WithField("latency_ms", ms).Warn("decision latency exceeded budget")
		}
		return decision, nil
	}
	return nil, nil
}

// condEnv adapts an EnrichedBar to condition.Env without importing
// internal/condition's BarEnv, keeping the engine<->condition coupling
// to the Predicate.Eval call alone.
type condEnv struct {
	bar sttypes.EnrichedBar
}

func (c condEnv) Lookup(name string) (value float64, present bool, known bool) {
	return c.bar.Field(name)
}

func (e *Engine) applyRiskGates(rt *tickerRuntime, s *spec.StrategySpec, sig sttypes.Signal, bar sttypes.EnrichedBar) (*sttypes.TradeDecision, bool) {
	switch sig.Action {
	case sttypes.ActionBuy:
		if rt.position != nil && !rt.position.IsFlat() {
			return nil, false // no pyramiding in v1
		}
		if sig.PositionSize > s.RiskParams.MaxPositionSize {
			return nil, false
		}
		if rt.dailyPnLFraction < -s.RiskParams.MaxDailyLoss {
			obslog.For("engine").WithField("ticker", s.Ticker).Warn("daily loss limit reached, rejecting BUY")
			return nil, false
		}
		decision := buildDecision(sig, bar, s.RiskParams)
		rt.position = &sttypes.Position{
			Ticker:          s.Ticker,
			Side:            sttypes.SideLong,
			EntryPrice:      bar.Close,
			Quantity:        sig.PositionSize,
			EntryTs:         bar.Time(),
			StopLossPrice:   decision.StopLoss,
			TakeProfitPrice: decision.TakeProfit,
		}
		return decision, true

	case sttypes.ActionSell:
		if rt.position == nil || rt.position.IsFlat() {
			return nil, false // nothing open to close
		}
		decision := buildDecision(sig, bar, s.RiskParams)
		rt.dailyPnLFraction += (bar.Close - rt.position.EntryPrice) / rt.position.EntryPrice
		rt.position = nil
		return decision, true

	case sttypes.ActionHold:
		return buildDecision(sig, bar, s.RiskParams), true
	}
	return nil, false
}

func buildDecision(sig sttypes.Signal, bar sttypes.EnrichedBar, risk sttypes.RiskParameters) *sttypes.TradeDecision {
	return &sttypes.TradeDecision{
		Action:       sig.Action,
		Ticker:       bar.Ticker,
		PositionSize: sig.PositionSize,
		EntryPrice:   bar.Close,
		StopLoss:     bar.Close * (1 - risk.StopLoss),
		TakeProfit:   bar.Close * (1 + risk.TakeProfit),
		Confidence:   sig.Confidence,
		Reasoning:    sig.Reasoning,
		SignalID:     sig.ID,
		TimestampMs:  bar.TimestampMs,
	}
}

// Reset clears all engine-owned state for ticker: indicator
// accumulators, bar ring, position, and daily P&L.
func (e *Engine) Reset(ticker string) {
	e.indicators.Reset(ticker)
	e.mu.Lock()
	delete(e.runtimes, ticker)
	e.mu.Unlock()
}
