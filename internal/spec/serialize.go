package spec

import (
	"encoding/json"
	"fmt"

	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Raw returns the wire-shape snapshot of this Spec (spec §8
// "serialization round-trip" property): everything New needs to
// reconstruct an equivalent Spec, but none of the compiled predicate
// cache or lifecycle bookkeeping.
func (s *StrategySpec) Raw() RawSpec {
	return RawSpec{
		ID:               s.ID,
		Ticker:           s.Ticker,
		Timeframe:        s.Timeframe,
		DataRequirements: s.DataRequirements,
		Signals:          append([]sttypes.Signal(nil), s.Signals...),
		RiskParams:       s.RiskParams,
		CompiledAt:       s.CompiledAt,
		ExpiresAt:        s.ExpiresAt,
		SourceQuery:      s.SourceQuery,
	}
}

// MarshalJSON serializes the Spec's wire shape.
func (s *StrategySpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw())
}

// ParseRawSpec deserializes a RawSpec from JSON, the first half of the
// serialization round-trip (the second half is New, which compiles
// it).
func ParseRawSpec(data []byte) (RawSpec, error) {
	var raw RawSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return RawSpec{}, fmt.Errorf("spec: decode: %w", err)
	}
	return raw, nil
}

// FromJSON deserializes and compiles a StrategySpec in one step.
func FromJSON(data []byte) (*StrategySpec, error) {
	raw, err := ParseRawSpec(data)
	if err != nil {
		return nil, err
	}
	return New(raw)
}
