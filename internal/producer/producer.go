// Package producer defines the abstract Spec Producer boundary (spec
// §6.1): the slow-path planner that turns a natural-language query
// into a Compiled Strategy Spec. No concrete LLM-backed implementation
// lives here (out of scope — spec.md's Non-goals exclude the planner's
// internals); callers depend on the Producer interface the way the
// teacher depends on exchange.Exchange, swapping in a mock for tests.
package producer

import (
	"context"

	"github.com/amirphl/hybrid-trader/internal/spec"
)

// Producer compiles a natural-language query into a ready-to-load
// StrategySpec. Implementations must return a Spec satisfying spec.md
// §3's invariants; any violation surfaces as errs.InvalidSpec and the
// Orchestrator retries or falls back to the prior Spec, per §6.1.
type Producer interface {
	CompileStrategy(ctx context.Context, ticker, query string) (*spec.StrategySpec, error)
}
