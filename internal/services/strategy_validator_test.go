package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/utils"
)

func validStrategy() models.Strategy {
	return models.Strategy{
		Name: "breakout",
		EntryConditions: []models.Condition{
			{Type: models.ConditionPrice, Operator: models.OpGreaterThan, Value: 100},
		},
		PositionSizing: models.PositionSizing{Type: models.SizingPercentage, Value: 50},
	}
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verrs *utils.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	return verrs.Fields()
}

func TestStrategyValidator_Valid(t *testing.T) {
	s := validStrategy()

	assert.NoError(t, NewStrategyValidator().Validate(&s))
}

func TestStrategyValidator_NoEntryConditions(t *testing.T) {
	s := validStrategy()
	s.EntryConditions = nil

	err := NewStrategyValidator().Validate(&s)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEntryConditions)
	assert.Contains(t, validationFields(t, err), "entry_conditions")
}

func TestStrategyValidator_ReportsEveryViolation(t *testing.T) {
	s := models.Strategy{
		EntryConditions: []models.Condition{
			{Type: models.ConditionPrice, Operator: models.OpGreaterThan, Value: 110},
			{Type: models.ConditionPrice, Operator: models.OpLessThan, Value: 100, LogicOperator: models.LogicAnd},
			{Type: "sentiment", Operator: "between", LogicOperator: models.LogicAnd},
		},
		ExitConditions: []models.Condition{
			{Type: models.ConditionTime, Operator: models.OpEqual, Value: 3, Field: "hour", LogicOperator: models.LogicOr},
		},
		PositionSizing: models.PositionSizing{Type: models.SizingPercentage, Value: 150},
		RiskManagement: models.RiskManagement{StopLossPct: -1},
	}

	fields := validationFields(t, NewStrategyValidator().Validate(&s))

	assert.Contains(t, fields, "entry_conditions[2].type")
	assert.Contains(t, fields, "entry_conditions[2].operator")
	assert.Contains(t, fields, "entry_conditions")
	assert.Contains(t, fields, "exit_conditions[0].logic_operator")
	assert.Contains(t, fields, "exit_conditions[0].field")
	assert.Contains(t, fields, "position_sizing.value")
	assert.Contains(t, fields, "risk_management.stop_loss_pct")
}

func TestStrategyValidator_LogicOperatorPlacement(t *testing.T) {
	s := validStrategy()
	s.EntryConditions = append(s.EntryConditions, models.Condition{
		Type: models.ConditionVolume, Operator: models.OpGreaterThan, Value: 1000,
	})

	fields := validationFields(t, NewStrategyValidator().Validate(&s))

	assert.Equal(t, []string{"entry_conditions[1].logic_operator"}, fields)
}

func TestStrategyValidator_PriceBounds(t *testing.T) {
	tests := []struct {
		name     string
		conds    []models.Condition
		conflict bool
	}{
		{
			name: "disjoint",
			conds: []models.Condition{
				{Type: models.ConditionPrice, Operator: models.OpGreaterThan, Value: 110},
				{Type: models.ConditionPrice, Operator: models.OpLessThan, Value: 100, LogicOperator: models.LogicAnd},
			},
			conflict: true,
		},
		{
			name: "strict touch",
			conds: []models.Condition{
				{Type: models.ConditionPrice, Operator: models.OpGreaterThan, Value: 100},
				{Type: models.ConditionPrice, Operator: models.OpLessThanEqual, Value: 100, LogicOperator: models.LogicAnd},
			},
			conflict: true,
		},
		{
			name: "inclusive touch",
			conds: []models.Condition{
				{Type: models.ConditionPrice, Operator: models.OpGreaterThanEqual, Value: 100},
				{Type: models.ConditionPrice, Operator: models.OpLessThanEqual, Value: 100, LogicOperator: models.LogicAnd},
			},
		},
		{
			name: "different fields",
			conds: []models.Condition{
				{Type: models.ConditionPrice, Field: "high", Operator: models.OpGreaterThan, Value: 110},
				{Type: models.ConditionPrice, Field: "low", Operator: models.OpLessThan, Value: 100, LogicOperator: models.LogicAnd},
			},
		},
		{
			name: "or list",
			conds: []models.Condition{
				{Type: models.ConditionPrice, Operator: models.OpGreaterThan, Value: 110},
				{Type: models.ConditionPrice, Operator: models.OpLessThan, Value: 100, LogicOperator: models.LogicOr},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStrategy()
			s.EntryConditions = tt.conds
			err := NewStrategyValidator().Validate(&s)
			if tt.conflict {
				assert.Equal(t, []string{"entry_conditions"}, validationFields(t, err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStrategyValidator_Indicators(t *testing.T) {
	s := validStrategy()
	s.EntryConditions = []models.Condition{
		{Type: models.ConditionIndicator, Indicator: "macd", Operator: models.OpGreaterThan},
		{Type: models.ConditionIndicator, Indicator: "rsi", Period: 1, Operator: models.OpLessThan, Value: 30, LogicOperator: models.LogicAnd},
		{Type: models.ConditionIndicator, Indicator: "sma", Operator: models.OpGreaterThan, Value: 100, LogicOperator: models.LogicAnd},
		{Type: models.ConditionIndicator, Indicator: "daily_return", Operator: models.OpGreaterThan, Value: 1, LogicOperator: models.LogicAnd},
	}

	fields := validationFields(t, NewStrategyValidator().Validate(&s))

	assert.Equal(t, []string{"entry_conditions[0].indicator", "entry_conditions[1].period", "entry_conditions[2].period"}, fields)
}

func TestStrategyValidator_MaxAllocation(t *testing.T) {
	s := validStrategy()
	tooMuch := 120.0
	s.PositionSizing.MaxAllocation = &tooMuch

	fields := validationFields(t, NewStrategyValidator().Validate(&s))

	assert.Equal(t, []string{"position_sizing.max_allocation"}, fields)
}

func TestStrategyValidator_ValidateFor(t *testing.T) {
	s := validStrategy()
	s.Universe = []string{"aapl", "MSFT"}
	s.EntryConditions = append(s.EntryConditions, models.Condition{
		Type: models.ConditionPredictability, Operator: models.OpGreaterThanEqual, Value: 75, LogicOperator: models.LogicAnd,
	})
	v := NewStrategyValidator()

	assert.NoError(t, v.ValidateFor(&s, ValidationTarget{Ticker: "AAPL", HasScore: true}))

	fields := validationFields(t, v.ValidateFor(&s, ValidationTarget{Ticker: "TSLA"}))
	assert.Equal(t, []string{"universe", "predictability"}, fields)
}
