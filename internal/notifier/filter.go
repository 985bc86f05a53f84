package notifier

import (
	"fmt"

	"github.com/amirphl/hybrid-trader/internal/events"
)

// Alertworthy reports whether evt is worth an out-of-band notification:
// a redline trip (Gate #3 halting trading entirely), a drift-gate
// pause (Gate #2), or any error-level event. Routine mode/gate-pass/
// system events are left to the Event Stream and structured logs.
func Alertworthy(evt events.Event) bool {
	if evt.Level == events.LevelError {
		return true
	}
	return evt.Kind == events.KindRedline || (evt.Kind == events.KindDrift && evt.Level == events.LevelWarn)
}

// Format renders evt as a single-line Telegram message.
func Format(evt events.Event) string {
	return fmt.Sprintf("[%s/%s] %s", evt.Level, evt.Kind, evt.Message)
}
