package spec

import (
	"fmt"

	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/indicator"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Validate checks the structural invariants spec §3 places on a
// StrategySpec, independent of whether its conditions compile.
func (s *StrategySpec) Validate() error {
	if err := s.validate(); err != nil {
		return errs.Wrap(errs.InvalidSpec, "spec.Validate", err)
	}
	return nil
}

func (s *StrategySpec) validate() error {
	if s.ID == "" {
		return fmt.Errorf("spec: id empty")
	}
	if s.Ticker == "" {
		return fmt.Errorf("spec: ticker empty")
	}
	if !s.Timeframe.Valid() {
		return fmt.Errorf("spec: invalid timeframe %q", s.Timeframe)
	}
	if len(s.Signals) == 0 {
		return fmt.Errorf("spec: signals must be non-empty")
	}
	seen := make(map[string]bool, len(s.Signals))
	for _, sig := range s.Signals {
		if err := sig.Validate(); err != nil {
			return err
		}
		if seen[sig.ID] {
			return fmt.Errorf("spec: duplicate signal id %q", sig.ID)
		}
		seen[sig.ID] = true
	}
	if !sortedByPriorityDesc(s.Signals) {
		return fmt.Errorf("spec: signals must be sorted by priority desc")
	}
	for _, name := range s.DataRequirements.Indicators {
		if !indicator.KnownIndicatorNames(name) {
			return fmt.Errorf("spec: unknown indicator %q in data_requirements", name)
		}
	}
	if err := s.DataRequirements.Validate(s.MaxIndicatorPeriod()); err != nil {
		return err
	}
	if err := s.RiskParams.Validate(); err != nil {
		return err
	}
	if !s.ExpiresAt.After(s.CompiledAt) {
		return fmt.Errorf("spec: expires_at must be after compiled_at")
	}
	return nil
}

func sortedByPriorityDesc(signals []sttypes.Signal) bool {
	for i := 1; i < len(signals); i++ {
		if signals[i-1].Priority < signals[i].Priority {
			return false
		}
	}
	return true
}
