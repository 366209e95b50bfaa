package services

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

// SortinoNoDownside is reported as the Sortino ratio when returns were
// positive on average and never negative.
const SortinoNoDownside = 999.0

const daysPerYear = 365.25

// performanceMetrics are derived from the closed trade ledger and the daily
// equity curve once a simulation finishes.
type performanceMetrics struct {
	totalReturn      float64
	annualizedReturn float64
	sharpe           float64
	sortino          float64
	maxDrawdown      float64
	calmar           float64
	winRate          float64
	profitFactor     float64
	winning          int
	losing           int
}

func computeMetrics(trades []models.Trade, curve []models.EquityPoint, tradingDaysPerYear int) performanceMetrics {
	var m performanceMetrics
	if len(curve) == 0 {
		return m
	}

	m.totalReturn = curve[len(curve)-1].Equity/equityBase - 1
	span := curve[len(curve)-1].Date.Sub(curve[0].Date)
	m.annualizedReturn = annualize(m.totalReturn, span)

	returns := dailyReturns(curve)
	m.sharpe = sharpeRatio(returns, tradingDaysPerYear)
	m.sortino = sortinoRatio(returns, tradingDaysPerYear)
	m.maxDrawdown = maxDrawdown(curve)
	if m.maxDrawdown < 0 {
		m.calmar = m.annualizedReturn / math.Abs(m.maxDrawdown)
	}

	grossProfit, grossLoss := decimal.Zero, decimal.Zero
	for _, t := range trades {
		switch {
		case t.PnL.IsPositive():
			m.winning++
			grossProfit = grossProfit.Add(t.PnL)
		case t.PnL.IsNegative():
			m.losing++
			grossLoss = grossLoss.Add(t.PnL.Abs())
		}
	}
	if len(trades) > 0 {
		m.winRate = float64(m.winning) / float64(len(trades))
	}
	switch {
	case grossLoss.IsPositive():
		m.profitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	case grossProfit.IsPositive():
		m.profitFactor = models.ProfitFactorNoLosses
	}

	return m
}

// annualize converts a total return over span into a geometric yearly rate.
func annualize(total float64, span time.Duration) float64 {
	days := span.Hours() / 24
	if days <= 0 {
		return total
	}
	if total <= -1 {
		return -1
	}
	return math.Pow(1+total, daysPerYear/days) - 1
}

func dailyReturns(curve []models.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

// sharpeRatio uses the sample standard deviation and a zero risk-free rate.
func sharpeRatio(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	sum := 0.0
	for _, r := range returns {
		sum += (r - m) * (r - m)
	}
	std := math.Sqrt(sum / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return m / std * math.Sqrt(float64(periodsPerYear))
}

// sortinoRatio divides by the downside deviation over all periods.
func sortinoRatio(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	sum := 0.0
	for _, r := range returns {
		if r < 0 {
			sum += r * r
		}
	}
	downside := math.Sqrt(sum / float64(len(returns)))
	if downside == 0 {
		if m > 0 {
			return SortinoNoDownside
		}
		return 0
	}
	return m / downside * math.Sqrt(float64(periodsPerYear))
}

// maxDrawdown returns the deepest peak-to-trough decline as a fraction <= 0.
func maxDrawdown(curve []models.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak := curve[0].Equity
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := p.Equity/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// overfittingWarnings flags too few trades and too much time in the market.
// A run without trades is reported through a note instead.
func overfittingWarnings(totalTrades int, exposure float64, minTrades int, maxExposure float64) []string {
	warnings := []string{}
	if totalTrades > 0 && totalTrades < minTrades {
		warnings = append(warnings, fmt.Sprintf(
			"only %d trades; fewer than %d trades is not statistically meaningful", totalTrades, minTrades))
	}
	if exposure > maxExposure {
		warnings = append(warnings, fmt.Sprintf(
			"position held on %.0f%% of trading days (above %.0f%%); results may reflect market drift rather than the strategy",
			exposure*100, maxExposure*100))
	}
	return warnings
}
