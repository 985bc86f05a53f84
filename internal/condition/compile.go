package condition

import "fmt"

// Predicate is a compiled condition, safe to evaluate repeatedly against
// different EnrichedBar-backed Env values with no ambient scope access.
type Predicate struct {
	src  string
	root Node
}

// Source returns the original (pre-normalization) expression text, used
// for the Spec serialization round-trip property (spec §8).
func (p *Predicate) Source() string { return p.src }

// Eval evaluates the predicate against env. errored reports whether a
// genuine runtime error occurred (e.g. division by zero); callers use
// that to drive the "three consecutive runtime errors disables the
// signal" rule (spec §4.2). A false result from an absent identifier is
// NOT a runtime error.
func (p *Predicate) Eval(env Env) (result bool, hadError bool) {
	v, s := p.root.eval(env)
	if s == errored {
		return false, true
	}
	return v != 0, false
}

// Compile parses and sandbox-validates expr, returning a reusable
// Predicate. Compile errors are always errs.InvalidCondition at the
// caller (internal/spec) boundary; this package returns a plain error
// and lets the caller attach the Kind.
func Compile(expr string) (*Predicate, error) {
	lx := newLexer(expr)
	tokens, err := lx.run()
	if err != nil {
		return nil, err
	}
	if err := checkDenyList(tokens); err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, fmt.Errorf("condition: parse error: %w", err)
	}
	return &Predicate{src: expr, root: root}, nil
}
