// Package orchestrator implements the Hybrid Orchestrator (spec §4.5,
// C6): the {RESEARCH, TRADING, PAUSED} mode state machine and its
// three gates (start-trading, drift, redline), plus the background
// Spec-refresh loop that keeps the Fast Execution Engine (C4) supplied
// with a live Spec per watchlist ticker.
//
// The mode machine generalizes the teacher's
// internal/strategy/state_machine.go (state transitions driven by
// external signals rather than a fixed sequence); the refresh loop
// generalizes cmd/main.go's orderStatusChecker (ticker-driven
// cooperative background task, non-reentrant guard, context
// cancellation).
package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirphl/hybrid-trader/internal/backtest"
	"github.com/amirphl/hybrid-trader/internal/diagnostics"
	"github.com/amirphl/hybrid-trader/internal/engine"
	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/events"
	"github.com/amirphl/hybrid-trader/internal/obslog"
	"github.com/amirphl/hybrid-trader/internal/obsmetrics"
	"github.com/amirphl/hybrid-trader/internal/producer"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
	"github.com/sony/gobreaker"
)

// Mode is a closed enumeration of the Orchestrator's states (spec
// §4.5).
type Mode string

const (
	ModeResearch Mode = "RESEARCH"
	ModeTrading  Mode = "TRADING"
	ModePaused   Mode = "PAUSED"
)

// Gate1Config thresholds the start-trading gate (spec §4.5 Gate #1).
type Gate1Config struct {
	MinTrades    int
	MaxDrawdownPct float64
	MinReturnPct float64
}

// Gate2Config thresholds the drift gate (spec §4.5 Gate #2).
type Gate2Config struct {
	MaxConsecutiveLosses int // default 3
}

func (c Gate2Config) withDefaults() Gate2Config {
	if c.MaxConsecutiveLosses <= 0 {
		c.MaxConsecutiveLosses = 3
	}
	return c
}

// historyRanges is spec.md §4.5's Yahoo-style escalation sequence.
var historyRanges = []string{"3mo", "6mo", "1y", "2y"}

// HistoryFetcher fetches historical bars for a range string drawn from
// historyRanges. Implemented by internal/marketdata; declared here so
// the Orchestrator depends only on the contract it needs (spec §6.2).
type HistoryFetcher interface {
	Fetch(ctx context.Context, ticker, rng string) ([]sttypes.Bar, error)
}

// TimeframeSetter is an optional capability a HistoryFetcher may
// implement (internal/marketdata.HistoricalFetcher does) so
// fetchHistory can point it at a compiled Spec's own timeframe before
// escalating through historyRanges, instead of always pulling whatever
// interval the fetcher happened to default to.
type TimeframeSetter interface {
	SetTimeframe(tf sttypes.Timeframe)
}

// tickerState is the Orchestrator's per-ticker bookkeeping for Gate #2
// and Gate #3 (spec §4.5): consecutive losing closes, and cumulative
// session P&L as a fraction of capital.
type tickerState struct {
	consecutiveLosses int
	sessionPnLFraction float64
}

// Orchestrator is C6.
type Orchestrator struct {
	Engine   *engine.Engine
	Producer producer.Producer
	Fetcher  HistoryFetcher
	Events   *events.Stream

	Gate1 Gate1Config
	Gate2 Gate2Config

	BacktestOpts    backtest.Options
	RefreshInterval time.Duration

	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	mode    Mode
	states  map[string]*tickerState

	refreshing atomic.Bool
}

// New constructs an Orchestrator in RESEARCH mode. gate2 defaults to
// max_consecutive_losses=3 if unset.
func New(eng *engine.Engine, prod producer.Producer, fetcher HistoryFetcher, gate1 Gate1Config, gate2 Gate2Config, opts backtest.Options) *Orchestrator {
	o := &Orchestrator{
		Engine:       eng,
		Producer:     prod,
		Fetcher:      fetcher,
		Events:       events.NewStream(0),
		Gate1:        gate1,
		Gate2:        gate2.withDefaults(),
		BacktestOpts: opts,
		mode:         ModeResearch,
		states:       make(map[string]*tickerState),
	}
	o.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "spec-producer",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	obsmetrics.SetMode(string(o.mode))
	return o
}

// Mode returns the current mode.
func (o *Orchestrator) Mode() Mode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

func (o *Orchestrator) setMode(to Mode, reason string) {
	o.mu.Lock()
	from := o.mode
	o.mode = to
	o.mu.Unlock()
	if from == to {
		return
	}
	obsmetrics.SetMode(string(to))
	obsmetrics.ModeTransitions.WithLabelValues(string(from), string(to)).Inc()
	o.Events.Publish(events.LevelInfo, events.KindMode, reason, map[string]any{
		"from": string(from), "to": string(to),
	})
}

// Resume transitions an explicit PAUSED → RESEARCH (spec §4.5: "PAUSED
// is terminal for the session; only an explicit resume() returns to
// RESEARCH"). A no-op outside PAUSED.
func (o *Orchestrator) Resume() {
	if o.Mode() != ModePaused {
		return
	}
	o.setMode(ModeResearch, "explicit resume from PAUSED")
}

func (o *Orchestrator) stateFor(ticker string) *tickerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.states[ticker]
	if !ok {
		st = &tickerState{}
		o.states[ticker] = st
	}
	return st
}

// fetchHistory escalates through historyRanges until it gets at least
// minBars bars, circuit-breaker-wrapped the way the Spec Producer call
// is (spec §4.5 "Defaults").
func (o *Orchestrator) fetchHistory(ctx context.Context, ticker string, minBars int, tf sttypes.Timeframe) ([]sttypes.Bar, error) {
	if setter, ok := o.Fetcher.(TimeframeSetter); ok {
		setter.SetTimeframe(tf)
	}
	for _, rng := range historyRanges {
		result, err := o.breaker.Execute(func() (any, error) {
			return o.Fetcher.Fetch(ctx, ticker, rng)
		})
		if err != nil {
			obslog.For("orchestrator").WithError(err).WithField("range", rng).Warn("history fetch failed")
			continue
		}
		bars := result.([]sttypes.Bar)
		if len(bars) >= minBars {
			return bars, nil
		}
	}
	return nil, errs.New(errs.InsufficientHistory, "orchestrator.fetchHistory", "no history range yielded enough bars for "+ticker)
}

// compileSpec calls the Spec Producer through the same circuit breaker
// as fetchHistory, so a misbehaving producer degrades the refresh loop
// instead of wedging it (spec §4.5 "Defaults", SPEC_FULL §4.6 DOMAIN).
func (o *Orchestrator) compileSpec(ctx context.Context, ticker, query string) (*spec.StrategySpec, error) {
	result, err := o.breaker.Execute(func() (any, error) {
		return o.Producer.CompileStrategy(ctx, ticker, query)
	})
	if err != nil {
		return nil, err
	}
	return result.(*spec.StrategySpec), nil
}

// RunGate1 compiles a Spec for ticker, backtests it, and evaluates
// Gate #1 (spec §4.5). On pass, the Spec is loaded into the Engine and
// mode transitions to TRADING. On fail, the Spec is never loaded; a
// Diagnosis is returned alongside a gate-fail event.
func (o *Orchestrator) RunGate1(ctx context.Context, ticker, query string, minBars int) (*backtest.Result, *diagnostics.Diagnosis, error) {
	s, err := o.compileSpec(ctx, ticker, query)
	if err != nil {
		return nil, nil, err
	}
	bars, err := o.fetchHistory(ctx, ticker, minBars, s.Timeframe)
	if err != nil {
		return nil, nil, err
	}
	result, err := backtest.Run(s, bars, o.BacktestOpts)
	if err != nil {
		return nil, nil, err
	}

	pass := result.TotalTrades >= o.Gate1.MinTrades &&
		result.MaxDrawdownPct <= o.Gate1.MaxDrawdownPct &&
		result.TotalReturnPct >= o.Gate1.MinReturnPct

	if pass {
		o.Engine.Load(s)
		obsmetrics.GateDecisions.WithLabelValues("gate1", "pass").Inc()
		o.Events.Publish(events.LevelOK, events.KindGate, "gate #1 passed for "+ticker, map[string]any{
			"ticker": ticker, "total_trades": result.TotalTrades, "total_return_pct": result.TotalReturnPct,
		})
		o.setMode(ModeTrading, "gate #1 passed for "+ticker)
		return result, nil, nil
	}

	obsmetrics.GateDecisions.WithLabelValues("gate1", "fail").Inc()
	o.Events.Publish(events.LevelWarn, events.KindGate, "gate #1 failed for "+ticker, map[string]any{
		"ticker": ticker, "total_trades": result.TotalTrades, "total_return_pct": result.TotalReturnPct,
	})
	diag := diagnostics.Diagnose(s, bars, result)
	return result, &diag, nil
}

// OnTradeClosed feeds a closing trade's realized P&L fraction into
// Gate #2 (drift) and Gate #3 (redline). Callers in TRADING mode
// should call this once per closing trade the live engine produces.
func (o *Orchestrator) OnTradeClosed(ticker string, pnlFraction float64, maxDailyLoss float64) {
	if o.Mode() != ModeTrading {
		return
	}
	st := o.stateFor(ticker)

	outcome := "win"
	o.mu.Lock()
	if pnlFraction < 0 {
		st.consecutiveLosses++
		outcome = "loss"
	} else {
		st.consecutiveLosses = 0
	}
	st.sessionPnLFraction += pnlFraction
	losses := st.consecutiveLosses
	sessionPnL := st.sessionPnLFraction
	o.mu.Unlock()
	obsmetrics.TradesClosed.WithLabelValues(ticker, outcome).Inc()

	if sessionPnL <= -maxDailyLoss {
		obsmetrics.GateDecisions.WithLabelValues("gate3", "fail").Inc()
		o.Events.Publish(events.LevelError, events.KindRedline, "daily loss limit breached for "+ticker, map[string]any{
			"ticker": ticker, "session_pnl_fraction": sessionPnL,
		})
		o.setMode(ModePaused, "redline breached for "+ticker)
		return
	}

	if losses >= o.Gate2.MaxConsecutiveLosses {
		obsmetrics.GateDecisions.WithLabelValues("gate2", "fail").Inc()
		o.Events.Publish(events.LevelWarn, events.KindDrift, "consecutive loss limit reached for "+ticker, map[string]any{
			"ticker": ticker, "consecutive_losses": losses,
		})
		o.setMode(ModeResearch, "drift gate tripped for "+ticker)
	}
}
