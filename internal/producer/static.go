package producer

import (
	"context"

	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/spec"
)

// Static is a Producer test double that returns a pre-built raw Spec
// per ticker, or a canned error — mirroring the teacher's
// MockWallexExchange (a stand-in that proxies canned responses instead
// of calling out to a real service). Used by the Orchestrator's tests
// in place of a real LLM-backed Spec Producer.
type Static struct {
	Specs map[string]spec.RawSpec
	Err   error

	calls int
}

// NewStatic builds a Static producer from a ticker→RawSpec table.
func NewStatic(specs map[string]spec.RawSpec) *Static {
	return &Static{Specs: specs}
}

// CompileStrategy returns the canned RawSpec for ticker, compiled via
// spec.New, or s.Err if set. Ignores query — the static double is not
// query-aware.
func (s *Static) CompileStrategy(ctx context.Context, ticker, query string) (*spec.StrategySpec, error) {
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	raw, ok := s.Specs[ticker]
	if !ok {
		return nil, errs.New(errs.InvalidSpec, "producer.Static.CompileStrategy", "no canned spec for ticker "+ticker)
	}
	return spec.New(raw)
}

// Calls reports how many times CompileStrategy has been invoked, for
// assertions about refresh-loop cadence.
func (s *Static) Calls() int {
	return s.calls
}
