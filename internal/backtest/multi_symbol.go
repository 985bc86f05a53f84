package backtest

import (
	"fmt"
	"sort"

	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// WatchlistResult is one ticker's outcome within a RunWatchlist call.
type WatchlistResult struct {
	Ticker string
	Result *Result
	Err    error
}

// WatchlistSummary aggregates per-ticker results into overall win rate
// and PnL across the whole watchlist, not per-symbol. The
// Orchestrator's Gate #1 does not use it; it backtests one ticker with
// Run.
type WatchlistSummary struct {
	TotalSymbols     int
	SuccessfulRuns   int
	FailedRuns       int
	TotalTrades      int
	TotalWins        int
	TotalLosses      int
	TotalPnL         float64
	AvgPnLPerSymbol  float64
	AvgMaxDrawdown   float64
	ProfitableRatio  float64
	OverallWinRate   float64
}

// RunWatchlist runs Run independently for every (ticker, spec, bars)
// triple and returns both the per-ticker results and an aggregate
// summary, mirroring the teacher's multi-symbol sweep but replacing
// the Binance top-N symbol discovery with an explicit watchlist
// supplied by the caller (the Orchestrator owns which tickers are in
// rotation; this package only replays them).
func RunWatchlist(specs map[string]*spec.StrategySpec, bars map[string][]sttypes.Bar, opts Options) ([]WatchlistResult, WatchlistSummary) {
	tickers := make([]string, 0, len(specs))
	for ticker := range specs {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers) // deterministic iteration order for reproducible summaries

	results := make([]WatchlistResult, 0, len(tickers))
	var summary WatchlistSummary
	summary.TotalSymbols = len(tickers)

	var profitableSymbols int
	var maxDDTotal float64

	for _, ticker := range tickers {
		s := specs[ticker]
		b := bars[ticker]
		result, err := Run(s, b, opts)
		results = append(results, WatchlistResult{Ticker: ticker, Result: result, Err: err})
		if err != nil {
			summary.FailedRuns++
			continue
		}
		summary.SuccessfulRuns++
		summary.TotalTrades += result.TotalTrades
		summary.TotalWins += result.WinningTrades
		summary.TotalLosses += result.LosingTrades
		summary.TotalPnL += result.FinalCapital - result.InitialCapital
		maxDDTotal += result.MaxDrawdownPct
		if result.FinalCapital > result.InitialCapital {
			profitableSymbols++
		}
	}

	if summary.SuccessfulRuns > 0 {
		n := float64(summary.SuccessfulRuns)
		summary.AvgPnLPerSymbol = summary.TotalPnL / n
		summary.AvgMaxDrawdown = maxDDTotal / n
		summary.ProfitableRatio = float64(profitableSymbols) / n
	}
	if summary.TotalTrades > 0 {
		summary.OverallWinRate = float64(summary.TotalWins) / float64(summary.TotalTrades) * 100
	}
	return results, summary
}

// String renders a one-line human summary, mirroring the teacher's
// printMultiSymbolSummary but scoped to what the Orchestrator logs.
func (s WatchlistSummary) String() string {
	return fmt.Sprintf(
		"symbols=%d/%d trades=%d win_rate=%.1f%% total_pnl=%.2f avg_dd=%.2f%%",
		s.SuccessfulRuns, s.TotalSymbols, s.TotalTrades, s.OverallWinRate, s.TotalPnL, s.AvgMaxDrawdown,
	)
}
