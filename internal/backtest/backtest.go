// Package backtest implements the Backtest Engine (spec §4.4, C5):
// historical replay of a compiled Spec through an embedded Fast
// Execution Engine, with a slippage/commission fill model, stop-loss
// and take-profit maintenance, and a performance-metrics pass over the
// resulting trade ledger and equity curve. The control flow (per-bar
// loop, trade log, equity curve sampling, calculatePerformanceMetrics)
// follows the teacher's runStrategyBacktest/calculatePerformanceMetrics,
// re-pointed at a StrategySpec/engine.Engine instead of a
// strategy.Strategy.
package backtest

import (
	"fmt"
	"math"

	"github.com/amirphl/hybrid-trader/internal/engine"
	"github.com/amirphl/hybrid-trader/internal/errs"
	"github.com/amirphl/hybrid-trader/internal/spec"
	"github.com/amirphl/hybrid-trader/internal/sttypes"
)

// Options configures a Run (spec §4.4 "Fill model").
type Options struct {
	InitialCapital    float64
	CommissionRate    float64 // fraction of notional
	Slippage          float64 // fraction of price
	EquitySampleEvery int     // sample the equity curve every N bars; <=0 defaults to 100
}

func (o Options) withDefaults() Options {
	if o.InitialCapital <= 0 {
		o.InitialCapital = 100000
	}
	if o.EquitySampleEvery <= 0 {
		o.EquitySampleEvery = 100
	}
	return o
}

// openLedgerPosition is the backtest's own cash-accounted view of an
// open position — distinct from engine.Engine's internal Position,
// which tracks signal.position_size fractions, not quantity/cash. The
// engine's one-open-position-per-ticker invariant keeps the two in
// lockstep: it never emits a second BUY decision while it believes a
// position is open, so this ledger never opens more than one either.
type openLedgerPosition struct {
	EntryPrice      float64
	EntryCommission float64
	Quantity        float64
	EntryTs         int64
	StopLossPrice   float64
	TakeProfitPrice float64
	MAE             float64
	MFE             float64
}

// Result is the outcome of a Run (spec §4.4 "Metrics").
type Result struct {
	InitialCapital float64
	FinalCapital   float64
	Trades         []sttypes.Trade
	EquityCurve    []float64

	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	TotalPnL       float64
	TotalReturnPct float64
	WinRate        float64
	AvgWin         float64
	AvgLoss        float64
	ProfitFactor   float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	AvgHoldingMs   float64
}

// Run replays bars (time-ordered, all belonging to s.Ticker) through a
// fresh C4 instance and returns the aggregated backtest result (spec
// §4.4 "Contract").
func Run(s *spec.StrategySpec, bars []sttypes.Bar, opts Options) (*Result, error) {
	if len(bars) == 0 {
		return nil, errs.New(errs.InsufficientHistory, "backtest.Run", "no bars supplied")
	}
	opts = opts.withDefaults()

	eng := engine.New()
	eng.Load(s)

	cash := opts.InitialCapital
	var position *openLedgerPosition
	var trades []sttypes.Trade
	var equityCurve []float64

	equityAt := func(lastClose float64) float64 {
		if position == nil {
			return cash
		}
		return cash + position.Quantity*lastClose
	}

	for i, bar := range bars {
		if bar.Ticker != s.Ticker {
			return nil, errs.New(errs.EngineInvariant, "backtest.Run", "bar ticker does not match spec ticker")
		}

		decision, err := eng.OnBar(s.Ticker, bar, bar.Time())
		if err != nil {
			return nil, err
		}

		if decision != nil && decision.Action == sttypes.ActionBuy && position == nil {
			var opened bool
			cash, position, opened = openFill(cash, bar, decision, opts)
			if opened {
				trades = append(trades, sttypes.Trade{
					Ticker:      bar.Ticker,
					Action:      sttypes.ActionBuy,
					Price:       position.EntryPrice,
					Quantity:    position.Quantity,
					TimestampMs: bar.TimestampMs,
					Commission:  position.EntryCommission,
					Reason:      sttypes.ReasonSignal,
				})
			} else {
				// eng already flipped to an open position/no-pyramiding
				// state before returning this decision; the ledger
				// rejected the fill (insufficient cash), so eng must be
				// resynced or it believes a position stays open for the
				// rest of the run.
				eng.ClosePosition(s.Ticker)
			}
		} else if decision != nil && decision.Action == sttypes.ActionSell && position != nil {
			var t sttypes.Trade
			cash, position, t = closeFill(cash, bar, opts, position, sttypes.ReasonSignal, bar.Close)
			trades = append(trades, t)
		}

		// Maintenance pass: stop-loss checked before take-profit (spec
		// §4.4 step 3), independent of whether a decision fired this
		// bar. This exit bypasses C4's own decision loop, so the
		// engine's internal position must be force-cleared to keep its
		// no-pyramiding gate in sync with the ledger.
		if position != nil {
			updateExcursion(position, bar)
			switch {
			case bar.Close <= position.StopLossPrice:
				var t sttypes.Trade
				cash, position, t = closeFill(cash, bar, opts, position, sttypes.ReasonStopLoss, position.StopLossPrice)
				trades = append(trades, t)
				eng.ClosePosition(s.Ticker)
			case bar.Close >= position.TakeProfitPrice:
				var t sttypes.Trade
				cash, position, t = closeFill(cash, bar, opts, position, sttypes.ReasonTakeProfit, position.TakeProfitPrice)
				trades = append(trades, t)
				eng.ClosePosition(s.Ticker)
			}
		}

		if i%opts.EquitySampleEvery == 0 || i == len(bars)-1 {
			equityCurve = append(equityCurve, equityAt(bar.Close))
		}
	}

	if position != nil {
		last := bars[len(bars)-1]
		var t sttypes.Trade
		cash, position, t = closeFill(cash, last, opts, position, sttypes.ReasonEndOfBacktest, last.Close)
		trades = append(trades, t)
		equityCurve[len(equityCurve)-1] = cash
	}

	result := &Result{
		InitialCapital: opts.InitialCapital,
		FinalCapital:   cash,
		Trades:         trades,
		EquityCurve:    equityCurve,
	}
	computeMetrics(result)
	return result, nil
}

// openFill executes a BUY at the slippage-adjusted price with fixed
// 10% capital sizing (spec §4.4 "Fill model" — v1 mandates this over
// signal.position_size; see DESIGN.md Open Question resolution).
func openFill(cash float64, bar sttypes.Bar, decision *sttypes.TradeDecision, opts Options) (float64, *openLedgerPosition, bool) {
	execPrice := bar.Close * (1 + opts.Slippage)
	quantity := math.Floor(cash * 0.10 / execPrice)
	if quantity <= 0 {
		return cash, nil, false
	}
	notional := execPrice * quantity
	commission := notional * opts.CommissionRate
	if notional+commission > cash {
		return cash, nil, false
	}
	cash -= notional + commission
	return cash, &openLedgerPosition{
		EntryPrice:      execPrice,
		EntryCommission: commission,
		Quantity:        quantity,
		EntryTs:         bar.TimestampMs,
		StopLossPrice:   decision.StopLoss,
		TakeProfitPrice: decision.TakeProfit,
	}, true
}

// closeFill executes a closing trade at triggerPrice (the bar's close
// for a signal exit, or the stop/take level for a maintenance exit),
// slippage-adjusted on the sell side, and records the ledger entry.
func closeFill(cash float64, bar sttypes.Bar, opts Options, position *openLedgerPosition, reason sttypes.TradeReason, triggerPrice float64) (float64, *openLedgerPosition, sttypes.Trade) {
	execPrice := triggerPrice * (1 - opts.Slippage)
	notional := execPrice * position.Quantity
	commission := notional * opts.CommissionRate
	pnl := (execPrice-position.EntryPrice)*position.Quantity - commission - position.EntryCommission
	cash += notional - commission

	t := sttypes.Trade{
		Ticker:      bar.Ticker,
		Action:      sttypes.ActionSell,
		Price:       execPrice,
		Quantity:    position.Quantity,
		TimestampMs: bar.TimestampMs,
		PnL:         pnl,
		Commission:  commission,
		Reason:      reason,
		MAE:         position.MAE,
		MFE:         position.MFE,
	}
	return cash, nil, t
}

func updateExcursion(position *openLedgerPosition, bar sttypes.Bar) {
	adverse := (bar.Low - position.EntryPrice) / position.EntryPrice
	favorable := (bar.High - position.EntryPrice) / position.EntryPrice
	if adverse < position.MAE {
		position.MAE = adverse
	}
	if favorable > position.MFE {
		position.MFE = favorable
	}
}

// computeMetrics fills in Result's derived fields from Trades and
// EquityCurve (spec §4.4 "Metrics"), following the teacher's
// calculatePerformanceMetrics shape.
func computeMetrics(r *Result) {
	var wins, losses []float64
	for _, t := range r.Trades {
		if t.Action == sttypes.ActionBuy {
			continue
		}
		r.TotalTrades++
		r.TotalPnL += t.PnL
		if t.PnL > 0 {
			wins = append(wins, t.PnL)
		} else {
			losses = append(losses, t.PnL)
		}
	}
	r.WinningTrades = len(wins)
	r.LosingTrades = len(losses)

	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	}
	if len(wins) > 0 {
		r.AvgWin = sum(wins) / float64(len(wins))
	}
	if len(losses) > 0 {
		r.AvgLoss = math.Abs(sum(losses) / float64(len(losses)))
	}
	if r.AvgLoss != 0 {
		r.ProfitFactor = r.AvgWin / r.AvgLoss
	}
	if r.InitialCapital > 0 {
		r.TotalReturnPct = (r.FinalCapital/r.InitialCapital - 1) * 100
	}

	r.MaxDrawdownPct = maxDrawdownPct(r.EquityCurve)
	r.SharpeRatio = sharpeRatio(r.EquityCurve)
	r.AvgHoldingMs = avgHoldingTime(r.Trades)
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

// maxDrawdownPct is the maximum peak-to-trough drop over the equity
// curve, as a percentage of the running peak (spec §8 boundary:
// zero when equity is monotonically non-decreasing).
func maxDrawdownPct(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0]
	var maxDD float64
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio computes an annualized Sharpe ratio from per-sample
// returns derived from the equity curve (spec §4.4).
func sharpeRatio(curve []float64) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1] == 0 {
			continue
		}
		returns = append(returns, (curve[i]-curve[i-1])/curve[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	mean := sum(returns) / float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}
	return (mean / stddev) * math.Sqrt(252)
}

func avgHoldingTime(trades []sttypes.Trade) float64 {
	var buyTs int64
	var haveBuy bool
	var total float64
	var n int
	for _, t := range trades {
		switch t.Action {
		case sttypes.ActionBuy:
			buyTs = t.TimestampMs
			haveBuy = true
		case sttypes.ActionSell:
			if haveBuy {
				total += float64(t.TimestampMs - buyTs)
				n++
				haveBuy = false
			}
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// String renders a one-line human summary, mirroring the teacher's
// printBacktestResults but scoped to the metrics this spec defines.
func (r *Result) String() string {
	return fmt.Sprintf(
		"trades=%d win_rate=%.1f%% total_pnl=%.2f return=%.2f%% max_dd=%.2f%% sharpe=%.2f profit_factor=%.2f",
		r.TotalTrades, r.WinRate, r.TotalPnL, r.TotalReturnPct, r.MaxDrawdownPct, r.SharpeRatio, r.ProfitFactor,
	)
}
