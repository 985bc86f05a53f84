// Package events implements the Event Stream (spec §6.4, §9): the
// authoritative audit log for every mode transition, gate decision,
// and trade signal the Orchestrator (C6) produces. It generalizes the
// teacher's internal/journal (a free-form Type string plus an
// interface for pluggable storage) into the closed level/kind
// enumerations spec.md §9 requires, fanned out to both a buffered
// channel (for a CLI/TUI subscriber) and structured logrus fields (the
// ambient logging layer for the whole repo).
package events

import (
	"strconv"
	"time"

	"github.com/amirphl/hybrid-trader/internal/obslog"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Level and Kind alias the shared closed enumerations in sttypes (spec
// §9 "Tagged variants") rather than redeclaring them, so the event
// stream's severities/categories are the same values storage and the
// CLI see.
type Level = sttypes.EventLevel
type Kind = sttypes.EventKind

const (
	LevelInfo  = sttypes.LevelInfo
	LevelOK    = sttypes.LevelOK
	LevelWarn  = sttypes.LevelWarn
	LevelError = sttypes.LevelError
)

const (
	KindMode    = sttypes.KindMode
	KindGate    = sttypes.KindGate
	KindDrift   = sttypes.KindDrift
	KindRedline = sttypes.KindRedline
	KindTrade   = sttypes.KindTrade
	KindSystem  = sttypes.KindSystem
)

// Event is one entry in the Orchestrator's audit log (spec §6.4).
type Event struct {
	ID      string
	Ts      time.Time
	Level   Level
	Kind    Kind
	Message string
	Fields  map[string]any
}

// Stream fans an Event out to subscribers (a bounded channel, for a
// CLI/TUI) and to structured logging (an always-on sink, so nothing
// published is ever lost even if no one is listening on the channel).
type Stream struct {
	ch     chan Event
	nextID func() string
}

// NewStream creates a Stream with a bounded channel of the given
// capacity. A full channel drops the oldest unread event rather than
// blocking the publisher — the fast path must never suspend emitting
// an event, even indirectly.
func NewStream(capacity int) *Stream {
	if capacity <= 0 {
		capacity = 256
	}
	var seq int64
	return &Stream{
		ch: make(chan Event, capacity),
		nextID: func() string {
			seq++
			return "evt-" + strconv.FormatInt(seq, 10)
		},
	}
}

// Subscribe returns the receive side of the Stream's channel. There is
// a single shared channel, not a per-subscriber fan-out, matching the
// teacher's single-CLI-consumer usage.
func (s *Stream) Subscribe() <-chan Event {
	return s.ch
}

// Publish appends ts/id, logs the event via obslog, and pushes it onto
// the channel, dropping the oldest buffered event on overflow instead
// of blocking.
func (s *Stream) Publish(level Level, kind Kind, message string, fields map[string]any) Event {
	e := Event{
		ID:      s.nextID(),
		Ts:      time.Now(),
		Level:   level,
		Kind:    kind,
		Message: message,
		Fields:  fields,
	}
	logEntry := obslog.For("orchestrator").WithField("kind", string(kind))
	for k, v := range fields {
		logEntry = logEntry.WithField(k, v)
	}
	switch level {
	case LevelError:
		logEntry.Error(message)
	case LevelWarn:
		logEntry.Warn(message)
	default:
		logEntry.Info(message)
	}

	select {
	case s.ch <- e:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- e:
		default:
		}
	}
	return e
}
