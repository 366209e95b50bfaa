package services

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

const quantityPrecision = 4

var hundred = decimal.NewFromInt(100)

// positionSizer converts a strategy's sizing and risk rules into the notional
// to commit on an entry day.
type positionSizer struct {
	sizing models.PositionSizing
	risk   models.RiskManagement
	// atrPct is ATR(14) as a percent of close; only set for dynamic sizing.
	atrPct []float64
}

func newPositionSizer(s *models.Strategy, state *marketState) *positionSizer {
	ps := &positionSizer{sizing: s.PositionSizing, risk: s.RiskManagement}
	if ps.sizing.Type == models.SizingDynamic {
		ps.atrPct = state.atrPercentSeries()
	}
	return ps
}

// notional returns the amount to invest on bar i given available capital.
//
//   - fixed: Value in currency.
//   - percentage: Value percent of capital, capped by MaxAllocation.
//   - dynamic: volatility-scaled so that a one-ATR move is Value percent of
//     capital, i.e. capital * Value / ATR%, capped by MaxAllocation (default
//     100%). Before ATR is available it behaves like percentage sizing.
//
// When MaxRiskPct is set the notional is further capped so that hitting the
// stop loses at most MaxRiskPct of capital; without a stop the whole notional
// counts as at risk. The result never exceeds capital.
func (ps *positionSizer) notional(capital decimal.Decimal, i int) decimal.Decimal {
	if !capital.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch ps.sizing.Type {
	case models.SizingFixed:
		amount = decimal.NewFromFloat(ps.sizing.Value)
	case models.SizingPercentage:
		amount = capital.Mul(decimal.NewFromFloat(ps.allocationPct(ps.sizing.Value))).Div(hundred)
	case models.SizingDynamic:
		pct := ps.sizing.Value
		if i < len(ps.atrPct) && !math.IsNaN(ps.atrPct[i]) && ps.atrPct[i] > 0 {
			pct = ps.sizing.Value / ps.atrPct[i] * 100
		}
		amount = capital.Mul(decimal.NewFromFloat(ps.allocationPct(pct))).Div(hundred)
	}

	if ps.risk.MaxRiskPct > 0 {
		riskBudget := capital.Mul(decimal.NewFromFloat(ps.risk.MaxRiskPct)).Div(hundred)
		limit := riskBudget
		if ps.risk.StopLossPct > 0 {
			limit = riskBudget.Mul(hundred).Div(decimal.NewFromFloat(ps.risk.StopLossPct))
		}
		amount = decimal.Min(amount, limit)
	}

	return decimal.Max(decimal.Zero, decimal.Min(amount, capital))
}

func (ps *positionSizer) allocationPct(pct float64) float64 {
	limit := 100.0
	if ps.sizing.MaxAllocation != nil && *ps.sizing.MaxAllocation < limit {
		limit = *ps.sizing.MaxAllocation
	}
	return math.Min(pct, limit)
}

// quantityFor returns how many shares notional buys at fillPrice once entry
// commission is added, truncated to four decimal places.
func quantityFor(notional, fillPrice, commissionRate decimal.Decimal) decimal.Decimal {
	unitCost := fillPrice.Mul(decimal.NewFromInt(1).Add(commissionRate))
	if !unitCost.IsPositive() {
		return decimal.Zero
	}
	return notional.DivRound(unitCost, quantityPrecision+4).Truncate(quantityPrecision)
}
