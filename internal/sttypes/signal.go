package sttypes

import "fmt"

// Signal is one entry in a StrategySpec (spec §3): a condition over
// EnrichedBar fields, paired with the action to take when it fires.
// Priority breaks ties when more than one signal fires on the same
// bar — higher priority wins.
type Signal struct {
	ID           string
	Condition    string
	Action       Action
	PositionSize float64
	Confidence   float64
	Reasoning    string
	Priority     int
}

func (s Signal) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("sttypes: signal id empty")
	}
	if s.Condition == "" {
		return fmt.Errorf("sttypes: signal %q: condition empty", s.ID)
	}
	switch s.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return fmt.Errorf("sttypes: signal %q: invalid action %q", s.ID, s.Action)
	}
	if s.PositionSize < 0 || s.PositionSize > 1 {
		return fmt.Errorf("sttypes: signal %q: position_size %v out of [0,1]", s.ID, s.PositionSize)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("sttypes: signal %q: confidence %v out of [0,1]", s.ID, s.Confidence)
	}
	return nil
}

// RiskParameters bounds a Spec's risk-taking (spec §3). Every field is
// a fraction of entry price or capital, never an absolute currency
// amount.
type RiskParameters struct {
	MaxPositionSize  float64
	StopLoss         float64
	TakeProfit       float64
	MaxDailyLoss     float64
	MaxDrawdown      float64
	UseDynamicSizing bool
	RiskPerTrade     float64
}

func (r RiskParameters) Validate() error {
	checks := []struct {
		name string
		v    float64
		max  float64
	}{
		{"max_position_size", r.MaxPositionSize, 1},
		{"stop_loss", r.StopLoss, 1},
		{"take_profit", r.TakeProfit, 1},
		{"max_daily_loss", r.MaxDailyLoss, 1},
		{"max_drawdown", r.MaxDrawdown, 1},
		{"risk_per_trade", r.RiskPerTrade, 0.1},
	}
	for _, c := range checks {
		if c.v < 0 || c.v > c.max {
			return fmt.Errorf("sttypes: risk_params.%s %v out of [0,%v]", c.name, c.v, c.max)
		}
	}
	return nil
}

// DataRequirements declares the indicator history a StrategySpec needs
// before its signals can be evaluated (spec §3).
type DataRequirements struct {
	Indicators    []string
	Lookback      int
	MinDataPoints int
}

func (d DataRequirements) Validate(maxPeriod int) error {
	if d.Lookback <= 0 {
		return fmt.Errorf("sttypes: data_requirements.lookback must be positive, got %d", d.Lookback)
	}
	if d.MinDataPoints <= 0 {
		return fmt.Errorf("sttypes: data_requirements.min_data_points must be positive, got %d", d.MinDataPoints)
	}
	if d.Lookback < maxPeriod {
		return fmt.Errorf("sttypes: data_requirements.lookback %d < max indicator period %d", d.Lookback, maxPeriod)
	}
	if d.MinDataPoints < maxPeriod+1 {
		return fmt.Errorf("sttypes: data_requirements.min_data_points %d < max indicator period+1 %d", d.MinDataPoints, maxPeriod+1)
	}
	return nil
}
