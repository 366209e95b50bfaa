package services

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

func sizerFor(sizing models.PositionSizing, risk models.RiskManagement, atrPct ...float64) *positionSizer {
	return &positionSizer{sizing: sizing, risk: risk, atrPct: atrPct}
}

func TestPositionSizer_Notional(t *testing.T) {
	capital := decimal.NewFromInt(10000)
	cap30 := 30.0

	tests := []struct {
		name  string
		sizer *positionSizer
		want  string
	}{
		{
			name:  "fixed",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingFixed, Value: 2500}, models.RiskManagement{}),
			want:  "2500",
		},
		{
			name:  "fixed capped by capital",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingFixed, Value: 50000}, models.RiskManagement{}),
			want:  "10000",
		},
		{
			name:  "percentage",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingPercentage, Value: 25}, models.RiskManagement{}),
			want:  "2500",
		},
		{
			name:  "percentage capped by max allocation",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingPercentage, Value: 50, MaxAllocation: &cap30}, models.RiskManagement{}),
			want:  "3000",
		},
		{
			name:  "dynamic scales by volatility",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingDynamic, Value: 1}, models.RiskManagement{}, 2),
			want:  "5000",
		},
		{
			name:  "dynamic warm-up uses value as percent",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingDynamic, Value: 10}, models.RiskManagement{}, math.NaN()),
			want:  "1000",
		},
		{
			name:  "dynamic capped at full capital",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingDynamic, Value: 5}, models.RiskManagement{}, 1),
			want:  "10000",
		},
		{
			name:  "max risk with stop",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingPercentage, Value: 100}, models.RiskManagement{MaxRiskPct: 2, StopLossPct: 5}),
			want:  "4000",
		},
		{
			name:  "max risk without stop",
			sizer: sizerFor(models.PositionSizing{Type: models.SizingPercentage, Value: 100}, models.RiskManagement{MaxRiskPct: 20}),
			want:  "2000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sizer.notional(capital, 0)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestPositionSizer_NoCapital(t *testing.T) {
	s := sizerFor(models.PositionSizing{Type: models.SizingFixed, Value: 100}, models.RiskManagement{})

	assert.True(t, s.notional(decimal.Zero, 0).IsZero())
}

func TestQuantityFor(t *testing.T) {
	qty := quantityFor(decimal.NewFromInt(1000), decimal.NewFromInt(30), decimal.RequireFromString("0.001"))

	// 1000 / 30.03 = 33.30003...
	assert.True(t, qty.Equal(decimal.RequireFromString("33.3")), qty.String())
	assert.True(t, quantityFor(decimal.NewFromInt(1000), decimal.Zero, decimal.Zero).IsZero())
}
