package sttypes

import "time"

// Position is the Fast Execution Engine's (or backtest's) view of an
// open or flat position for one ticker (spec §3 "Position"). At most
// one non-FLAT Position exists per ticker per engine instance — that
// invariant is enforced by the owner (engine.Engine or backtest.runner),
// not by this type.
type Position struct {
	Ticker          string
	Side            Side
	EntryPrice      float64
	Quantity        float64
	EntryTs         time.Time
	StopLossPrice   float64
	TakeProfitPrice float64
}

// IsFlat reports whether the position holds no inventory.
func (p Position) IsFlat() bool {
	return p.Side == SideFlat || p.Side == ""
}

// TradeDecision is what the Fast Execution Engine emits from OnBar
// (spec §3 "TradeDecision").
type TradeDecision struct {
	Action       Action
	Ticker       string
	PositionSize float64
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	Confidence   float64
	Reasoning    string
	SignalID     string
	LatencyNs    int64
	TimestampMs  int64
}

// Trade is one ledger entry in a backtest run (spec §3 "Trade").
type Trade struct {
	Ticker      string
	Action      Action // BUY or SELL
	Price       float64
	Quantity    float64
	TimestampMs int64
	PnL         float64 // only meaningful on a closing (SELL) trade
	Commission  float64
	Reason      TradeReason

	// MAE/MFE: maximum adverse/favorable excursion while the trade was
	// open, expressed as a fraction of entry price. Carried from the
	// teacher's TradeLogEntry.MAE/MFE (see DESIGN.md, C5 supplement).
	MAE float64
	MFE float64
}
