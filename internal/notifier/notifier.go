// Package notifier sends a human an out-of-band alert when the Hybrid
// Orchestrator (C6) publishes an Event worth waking someone up for —
// a redline trip, a drift-gate trip, or any error-level event.
// Narrowed from the teacher's Notifier interface (Send/SendWithRetry/
// RetryWithNotification, only ever backed by one implementation) to
// the single method TelegramNotifier actually implements.
package notifier

// Notifier sends msg to whatever out-of-band channel an
// implementation wraps.
type Notifier interface {
	Send(msg string) error
}
