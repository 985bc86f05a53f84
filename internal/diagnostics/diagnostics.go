// Package diagnostics implements zero-trade backtest classification
// (spec §4.6, C7): when a backtest produces no trades, explain why and
// suggest a next step instead of leaving the caller staring at an
// empty result. Grounded on the teacher's printBacktestResults
// (internal/backtest/backtest.go), generalized from a human-readable
// log printer into a structured Diagnosis value the Orchestrator can
// act on and the CLI can render.
package diagnostics

import (
	"strings"

	"github.com/amirphl/hybrid-trader/internal/backtest"
	"github.com/amirphl/hybrid-trader/internal/condition"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Category is a closed enumeration of zero-trade root causes.
type Category string

const (
	InsufficientHistory   Category = "insufficient_history"
	NoBuySignals          Category = "no_buy_signals"
	OverRestrictive       Category = "over_restrictive_conditions"
	LookbackTooLong       Category = "lookback_too_long"
	Untriggered           Category = "untriggered"
)

// minHistoryBars is spec.md §4.6's "bars count < 100" threshold.
const minHistoryBars = 100

// maxConjunctiveTerms and maxDistinctIndicators are spec.md §4.6's
// over-restrictive-condition thresholds: "≥3 conjunctive terms or ≥4
// distinct indicators" on any one signal.
const (
	maxConjunctiveTerms   = 3
	maxDistinctIndicators = 4
)

// Diagnosis explains a zero-trade backtest.
type Diagnosis struct {
	Category    Category
	Message     string
	Suggestions []string
}

// Diagnose classifies why s produced zero trades against bars, per
// spec.md §4.6's decision order. Callers should only call this when
// result.TotalTrades == 0; it does not re-check that condition so it
// can also be used to explain a hypothetical run.
func Diagnose(s *spec.StrategySpec, bars []sttypes.Bar, result *backtest.Result) Diagnosis {
	if len(bars) < minHistoryBars {
		return Diagnosis{
			Category: InsufficientHistory,
			Message:  "backtest ran on too little history to produce a signal",
			Suggestions: []string{
				"widen the backtest range (e.g. 6mo or 1y instead of 3mo)",
			},
		}
	}

	if !hasBuySignal(s.Signals) {
		return Diagnosis{
			Category: NoBuySignals,
			Message:  "the spec has no BUY-action signal, so no position can ever open",
			Suggestions: []string{
				"add at least one signal with action=buy",
			},
		}
	}

	if sig, ok := mostRestrictiveSignal(s); ok {
		return Diagnosis{
			Category: OverRestrictive,
			Message:  "signal " + sig.ID + " is unlikely to ever fire: its condition combines too many constraints",
			Suggestions: []string{
				"split the condition into separate signals",
				"relax one or more thresholds",
			},
		}
	}

	if s.DataRequirements.Lookback > len(bars)/2 {
		return Diagnosis{
			Category: LookbackTooLong,
			Message:  "the spec's lookback consumes more than half the available history before any signal can evaluate",
			Suggestions: []string{
				"shorten data_requirements.lookback",
				"widen the backtest range to leave room after warmup",
			},
		}
	}

	return Diagnosis{
		Category: Untriggered,
		Message:  "no signal fired during the backtest window for an unidentified reason",
		Suggestions: []string{
			"widen the backtest range",
			"relax signal thresholds",
			"add a trend-following signal alongside the mean-reversion ones",
		},
	}
}

func hasBuySignal(signals []sttypes.Signal) bool {
	for _, sig := range signals {
		if sig.Action == sttypes.ActionBuy {
			return true
		}
	}
	return false
}

// barFields are EnrichedBar identifiers that name raw OHLCV/timestamp
// data rather than a computed indicator, excluded from the
// distinct-indicator count below.
var barFields = map[string]bool{
	"open": true, "high": true, "low": true, "close": true, "price": true,
	"volume": true, "timestamp": true, "ticker": true,
}

// indicatorAliases canonicalizes EnrichedBar.Field's two spellings for
// the same indicator (e.g. "sma20"/"sma_20") so each counts once.
var indicatorAliases = map[string]string{
	"sma20": "sma_20", "sma50": "sma_50", "sma200": "sma_200",
	"ema12": "ema_12", "ema26": "ema_26",
}

// mostRestrictiveSignal returns the first BUY signal whose own
// condition has too many conjunctive terms or references too many
// distinct indicators, per spec.md §4.6's explicit thresholds ("any
// signal expression contains ... ≥4 distinct indicators").
func mostRestrictiveSignal(s *spec.StrategySpec) (sttypes.Signal, bool) {
	for _, sig := range s.Signals {
		if sig.Action != sttypes.ActionBuy {
			continue
		}
		terms := strings.Count(sig.Condition, "&&") + 1
		if terms >= maxConjunctiveTerms || distinctIndicatorCount(s, sig.ID) >= maxDistinctIndicators {
			return sig, true
		}
	}
	return sttypes.Signal{}, false
}

// distinctIndicatorCount counts the distinct indicator identifiers
// signalID's own compiled condition references, excluding bar
// primitives and collapsing alias spellings.
func distinctIndicatorCount(s *spec.StrategySpec, signalID string) int {
	pred := s.Predicate(signalID)
	if pred == nil {
		return 0
	}
	seen := map[string]bool{}
	for _, name := range condition.Identifiers(pred) {
		if barFields[name] {
			continue
		}
		if canon, ok := indicatorAliases[name]; ok {
			name = canon
		}
		seen[name] = true
	}
	return len(seen)
}
