// Package spec implements the Strategy Spec data model (spec §3, C3):
// declarative signals plus risk parameters and data requirements,
// compiled once per load and carried through a compiled → expired →
// unloaded lifecycle. It is the thing the Orchestrator (C6) loads into
// and unloads out of the Fast Execution Engine (C4).
package spec

import (
	"time"

	"github.com/amirphl/hybrid-trader/internal/condition"
	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/indicator"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// StrategySpec is a compiled, ready-to-evaluate trading strategy for
// one ticker (spec §3 "Strategy Spec").
type StrategySpec struct {
	ID               string
	Ticker           string
	Timeframe        sttypes.Timeframe
	DataRequirements sttypes.DataRequirements
	Signals          []sttypes.Signal
	RiskParams       sttypes.RiskParameters
	CompiledAt       time.Time
	ExpiresAt        time.Time
	SourceQuery      string

	state      LifecycleState
	predicates map[string]*condition.Predicate
	errCounts  map[string]int
	disabled   map[string]bool
}

// New constructs a StrategySpec in the compiled state, running
// Validate and compiling every signal's condition. A failure at
// either step is an errs.InvalidSpec or errs.InvalidCondition and the
// Spec is never usable — the caller must not retain it.
func New(raw RawSpec) (*StrategySpec, error) {
	s := &StrategySpec{
		ID:               raw.ID,
		Ticker:           raw.Ticker,
		Timeframe:        raw.Timeframe,
		DataRequirements: raw.DataRequirements,
		Signals:          append([]sttypes.Signal(nil), raw.Signals...),
		RiskParams:       raw.RiskParams,
		CompiledAt:       raw.CompiledAt,
		ExpiresAt:        raw.ExpiresAt,
		SourceQuery:      raw.SourceQuery,
		state:            StateCompiled,
		errCounts:        make(map[string]int),
		disabled:         make(map[string]bool),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := s.compileSignals(); err != nil {
		return nil, err
	}
	return s, nil
}

// RawSpec is the wire shape a Spec Producer or a persisted Spec
// deserializes into before compilation (spec §6.1).
type RawSpec struct {
	ID               string                   `json:"id"`
	Ticker           string                   `json:"ticker"`
	Timeframe        sttypes.Timeframe        `json:"timeframe"`
	DataRequirements sttypes.DataRequirements `json:"data_requirements"`
	Signals          []sttypes.Signal         `json:"signals"`
	RiskParams       sttypes.RiskParameters   `json:"risk_params"`
	CompiledAt       time.Time                `json:"compiled_at"`
	ExpiresAt        time.Time                `json:"expires_at"`
	SourceQuery      string                   `json:"source_query"`
}

func (s *StrategySpec) compileSignals() error {
	s.predicates = make(map[string]*condition.Predicate, len(s.Signals))
	for _, sig := range s.Signals {
		p, err := condition.Compile(sig.Condition)
		if err != nil {
			return errs.Wrap(errs.InvalidCondition, "spec.New", err)
		}
		unknown := condition.KnownIdentifiers(p)
		if len(unknown) > 0 {
			return errs.New(errs.InvalidCondition, "spec.New",
				"signal "+sig.ID+" references unknown identifier "+unknown[0])
		}
		s.predicates[sig.ID] = p
	}
	return nil
}

// Predicate returns the compiled condition for signalID, or nil if
// unknown.
func (s *StrategySpec) Predicate(signalID string) *condition.Predicate {
	return s.predicates[signalID]
}

// RecordEvalError increments signalID's consecutive-runtime-error
// counter and disables the signal once it reaches 3 (spec §4.2).
// RecordEvalOK resets the counter on a clean evaluation.
func (s *StrategySpec) RecordEvalError(signalID string) {
	s.errCounts[signalID]++
	if s.errCounts[signalID] >= 3 {
		s.disabled[signalID] = true
	}
}

func (s *StrategySpec) RecordEvalOK(signalID string) {
	s.errCounts[signalID] = 0
}

func (s *StrategySpec) IsDisabled(signalID string) bool {
	return s.disabled[signalID]
}

// MaxIndicatorPeriod is a convenience wrapper over
// indicator.MaxPeriod for this Spec's requested indicators.
func (s *StrategySpec) MaxIndicatorPeriod() int {
	return indicator.MaxPeriod(s.DataRequirements.Indicators)
}
