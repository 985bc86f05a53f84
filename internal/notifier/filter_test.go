package notifier

import (
	"testing"

	"github.com/amirphl/hybrid-trader/internal/events"
	"github.com/stretchr/testify/assert"
)

func TestAlertworthy_RedlineAlwaysAlerts(t *testing.T) {
	assert.True(t, Alertworthy(events.Event{Level: events.LevelError, Kind: events.KindRedline}))
}

func TestAlertworthy_DriftWarningAlerts(t *testing.T) {
	assert.True(t, Alertworthy(events.Event{Level: events.LevelWarn, Kind: events.KindDrift}))
}

func TestAlertworthy_RoutineModeTransitionDoesNotAlert(t *testing.T) {
	assert.False(t, Alertworthy(events.Event{Level: events.LevelInfo, Kind: events.KindMode}))
}

func TestAlertworthy_AnyErrorLevelAlerts(t *testing.T) {
	assert.True(t, Alertworthy(events.Event{Level: events.LevelError, Kind: events.KindSystem}))
}

func TestFormat_IncludesLevelKindAndMessage(t *testing.T) {
	msg := Format(events.Event{Level: events.LevelWarn, Kind: events.KindGate, Message: "gate #1 failed"})
	assert.Equal(t, "[warn/gate] gate #1 failed", msg)
}
