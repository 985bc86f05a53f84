// Package errs defines the closed set of error kinds used across the
// hybrid pipeline (spec §7). Kinds are not exceptions: every fast-path
// caller decides locally whether a kind is fatal, retryable, or silently
// swallowed into a None result.
package errs

import "fmt"

// Kind is a closed enumeration of error categories.
type Kind string

const (
	InvalidSpec           Kind = "InvalidSpec"
	InvalidCondition       Kind = "InvalidCondition"
	InsufficientHistory    Kind = "InsufficientHistory"
	DailyLossLimit         Kind = "DailyLossLimit"
	PositionAlreadyOpen    Kind = "PositionAlreadyOpen"
	PositionSizeExceeded   Kind = "PositionSizeExceeded"
	DataFetchError         Kind = "DataFetchError"
	EngineInvariant        Kind = "EngineInvariant"
)

// Error wraps a Kind with the operation that raised it and, optionally,
// an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an *Error whose underlying Err is a plain error carrying
// msg.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf("%s", msg)}
}

// Wrap attaches a Kind and Op to an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
