package sttypes

// Action is the closed set of trade actions a Signal or TradeDecision
// can carry (spec §9 "Tagged variants").
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Side is the closed set of position sides.
type Side string

const (
	SideFlat Side = "FLAT"
	SideLong Side = "LONG"
)

// TradeReason is the closed set of reasons a backtest trade closed.
type TradeReason string

const (
	ReasonSignal        TradeReason = "Signal"
	ReasonStopLoss      TradeReason = "StopLoss"
	ReasonTakeProfit    TradeReason = "TakeProfit"
	ReasonEndOfBacktest TradeReason = "EndOfBacktest"
)

// EventLevel is the closed set of event-stream severities (spec §6.4).
type EventLevel string

const (
	LevelInfo  EventLevel = "info"
	LevelOK    EventLevel = "ok"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

// EventKind is the closed set of event-stream categories (spec §6.4).
type EventKind string

const (
	KindMode    EventKind = "mode"
	KindGate    EventKind = "gate"
	KindDrift   EventKind = "drift"
	KindRedline EventKind = "redline"
	KindTrade   EventKind = "trade"
	KindSystem  EventKind = "system"
)
