package models

// ConditionType selects what a condition compares against.
type ConditionType string

const (
	ConditionPrice          ConditionType = "price"
	ConditionIndicator      ConditionType = "indicator"
	ConditionVolume         ConditionType = "volume"
	ConditionTime           ConditionType = "time"
	ConditionPredictability ConditionType = "predictability"
)

// Operator is the comparison applied between the observed value and Condition.Value.
type Operator string

const (
	OpGreaterThan      Operator = "gt"
	OpLessThan         Operator = "lt"
	OpGreaterThanEqual Operator = "gte"
	OpLessThanEqual    Operator = "lte"
	OpEqual            Operator = "eq"
)

// LogicOperator joins a condition onto the running result of the ones before it.
type LogicOperator string

const (
	LogicAnd LogicOperator = "AND"
	LogicOr  LogicOperator = "OR"
)

// SizingType selects the position sizing rule.
type SizingType string

const (
	SizingFixed      SizingType = "fixed"
	SizingPercentage SizingType = "percentage"
	SizingDynamic    SizingType = "dynamic"
)

// Condition is one rule in a flat entry or exit list. Lists are evaluated
// strictly left to right: ((c0 op1 c1) op2 c2) ... with no precedence grouping.
// The first condition carries no LogicOperator.
//
// Field refines what is observed:
//   - price: open, high, low, close (default close)
//   - volume: ignored
//   - indicator: ignored; Indicator names sma, ema, rsi or daily_return and Period its window
//   - time: trading_day (1-based), day_of_week (0=Sunday), day_of_month, month, days_held
//   - predictability: overall (default), confidence, information, pattern, timing, direction
type Condition struct {
	Type          ConditionType `json:"type" validate:"required,oneof=price indicator volume time predictability"`
	Operator      Operator      `json:"operator" validate:"required,oneof=gt lt gte lte eq"`
	Value         float64       `json:"value"`
	LogicOperator LogicOperator `json:"logic_operator,omitempty" validate:"omitempty,oneof=AND OR"`
	Field         string        `json:"field,omitempty"`
	Indicator     string        `json:"indicator,omitempty"`
	Period        int           `json:"period,omitempty" validate:"gte=0"`
}

// PositionSizing describes how much capital each entry commits. Value is a
// currency amount for fixed sizing and a percent for percentage and dynamic sizing.
type PositionSizing struct {
	Type          SizingType `json:"type" validate:"required,oneof=fixed percentage dynamic"`
	Value         float64    `json:"value" validate:"gt=0"`
	MaxAllocation *float64   `json:"max_allocation,omitempty" validate:"omitempty,gt=0,lte=100"`
}

// RiskManagement limits are percentages; zero disables a limit.
type RiskManagement struct {
	StopLossPct    float64 `json:"stop_loss_pct" validate:"gte=0,lt=100"`
	TakeProfitPct  float64 `json:"take_profit_pct" validate:"gte=0"`
	MaxRiskPct     float64 `json:"max_risk_pct" validate:"gte=0,lte=100"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct" validate:"gte=0,lt=100"`
}

// Strategy is a declarative trading strategy supplied whole by the caller.
// The engine never mutates it.
type Strategy struct {
	Name            string         `json:"name"`
	EntryConditions []Condition    `json:"entry_conditions" validate:"dive"`
	ExitConditions  []Condition    `json:"exit_conditions" validate:"dive"`
	PositionSizing  PositionSizing `json:"position_sizing"`
	RiskManagement  RiskManagement `json:"risk_management"`
	Universe        []string       `json:"universe,omitempty"`
}

// UsesPredictability reports whether any condition reads the predictability score.
func (s *Strategy) UsesPredictability() bool {
	for _, list := range [][]Condition{s.EntryConditions, s.ExitConditions} {
		for _, c := range list {
			if c.Type == ConditionPredictability {
				return true
			}
		}
	}
	return false
}
