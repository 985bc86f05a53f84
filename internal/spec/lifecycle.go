package spec

import "time"

// LifecycleState is the closed compiled → expired → unloaded
// progression a StrategySpec moves through (spec §3). Unlike the
// teacher's open-ended trading StateMachine (internal/strategy,
// five-plus position states with free-form transitions), a Spec's
// lifecycle only ever moves forward and has exactly three states.
type LifecycleState string

const (
	StateCompiled LifecycleState = "compiled"
	StateExpired  LifecycleState = "expired"
	StateUnloaded LifecycleState = "unloaded"
)

// State returns the Spec's lifecycle state as of now, promoting
// compiled → expired lazily rather than via a background timer.
func (s *StrategySpec) State(now time.Time) LifecycleState {
	if s.state == StateUnloaded {
		return StateUnloaded
	}
	if now.After(s.ExpiresAt) {
		s.state = StateExpired
	}
	return s.state
}

// Expired reports whether the Spec has passed its expiry, without
// mutating lifecycle state (read-only check for the fast path, which
// must never block on C6's exclusive ownership of transitions).
func (s *StrategySpec) Expired(now time.Time) bool {
	return s.state != StateUnloaded && now.After(s.ExpiresAt)
}

// Unload transitions the Spec to unloaded unconditionally; terminal —
// no further transitions are possible afterward. Only the
// Orchestrator, which exclusively owns live Specs, may call this.
func (s *StrategySpec) Unload() {
	s.state = StateUnloaded
}
