package orchestrator

import (
	"context"
	"time"

	"github.com/amirphl/hybrid-trader/internal/events"
	"github.com/amirphl/hybrid-trader/internal/obslog"
)

// RunRefreshLoop runs the Spec-refresh background task every interval
// until ctx is cancelled (spec §4.5 "Strategy refresh loop"). For each
// ticker in watchlist it re-compiles a Spec via the Producer and
// atomically replaces the Engine's loaded Spec for that ticker. A
// refresh already in progress skips the tick instead of overlapping,
// mirroring the teacher's orderStatusChecker/monitorIngestionStats
// ticker-driven goroutines.
func (o *Orchestrator) RunRefreshLoop(ctx context.Context, watchlist map[string]string) {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = time.Minute
	}
	ticker := time.NewTicker(o.RefreshInterval)
	defer ticker.Stop()

	log := obslog.For("orchestrator")
	log.Info("starting spec refresh loop")

	for {
		select {
		case <-ctx.Done():
			log.Info("spec refresh loop stopped")
			return
		case <-ticker.C:
			o.refreshOnce(ctx, watchlist)
		}
	}
}

func (o *Orchestrator) refreshOnce(ctx context.Context, watchlist map[string]string) {
	if !o.refreshing.CompareAndSwap(false, true) {
		obslog.For("orchestrator").Warn("refresh already in progress, skipping this tick")
		return
	}
	defer o.refreshing.Store(false)

	for ticker, query := range watchlist {
		s, err := o.compileSpec(ctx, ticker, query)
		if err != nil {
			obslog.For("orchestrator").WithError(err).WithField("ticker", ticker).Warn("spec refresh failed, keeping prior spec")
			o.Events.Publish(events.LevelWarn, events.KindSystem, "spec refresh failed for "+ticker, map[string]any{"ticker": ticker})
			continue
		}
		o.Engine.Load(s)
		o.Events.Publish(events.LevelInfo, events.KindSystem, "spec refreshed for "+ticker, map[string]any{"ticker": ticker})
	}
}
