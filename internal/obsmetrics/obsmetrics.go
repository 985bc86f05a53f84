// Package obsmetrics exposes the Orchestrator's mode transitions, gate
// decisions, and trade events as Prometheus collectors, so a running
// deployment of this pipeline can be scraped the way every service in
// the retrieval pack is. There is no teacher equivalent — the teacher
// repo has no metrics layer at all — so this is grounded on
// prometheus/client_golang's own promauto idiom directly.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mode encodes {RESEARCH, TRADING, PAUSED} as 0/1/2 for the gauge;
// the orchestrator package owns the authoritative string enum.
var Mode = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "hybrid_trader",
	Name:      "orchestrator_mode",
	Help:      "Current Orchestrator mode: 0=RESEARCH, 1=TRADING, 2=PAUSED.",
})

var GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hybrid_trader",
	Name:      "gate_decisions_total",
	Help:      "Count of gate evaluations by gate name and outcome (pass/fail).",
}, []string{"gate", "outcome"})

var ModeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hybrid_trader",
	Name:      "mode_transitions_total",
	Help:      "Count of mode transitions by origin and destination mode.",
}, []string{"from", "to"})

var TradesClosed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hybrid_trader",
	Name:      "trades_closed_total",
	Help:      "Count of closed trades by ticker and outcome (win/loss).",
}, []string{"ticker", "outcome"})

// SetMode records the current mode as a gauge value.
func SetMode(mode string) {
	switch mode {
	case "RESEARCH":
		Mode.Set(0)
	case "TRADING":
		Mode.Set(1)
	case "PAUSED":
		Mode.Set(2)
	}
}
