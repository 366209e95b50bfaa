package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records which rule closed a trade.
type ExitReason string

const (
	ExitStopLoss    ExitReason = "stop_loss"
	ExitTakeProfit  ExitReason = "take_profit"
	ExitMaxDrawdown ExitReason = "max_drawdown"
	ExitSignal      ExitReason = "exit_signal"
	ExitEndOfData   ExitReason = "end_of_data"
)

// ProfitFactorNoLosses is reported as the profit factor when there were
// winning trades and no gross loss.
const ProfitFactorNoLosses = 999.0

// Trade is a closed simulated position. Prices are fill prices including
// slippage; PnL is net of commission on both legs. PnLPct is PnL as a percent
// of the entry cost including commission.
type Trade struct {
	EntryDate    time.Time       `json:"entry_date"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	ExitDate     time.Time       `json:"exit_date"`
	ExitPrice    decimal.Decimal `json:"exit_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Commission   decimal.Decimal `json:"commission"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPct       float64         `json:"pnl_pct"`
	DurationDays int             `json:"duration_days"`
	ExitReason   ExitReason      `json:"exit_reason"`
}

// EquityPoint is one day of the normalized equity curve (starts at 100).
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// BacktestResult is produced once per simulation run. Return metrics are
// fractions (0.25 is 25%); MaxDrawdown is zero or negative.
type BacktestResult struct {
	RunID               string          `json:"run_id"`
	Ticker              string          `json:"ticker"`
	StrategyName        string          `json:"strategy_name"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	InitialCapital      decimal.Decimal `json:"initial_capital"`
	FinalCapital        decimal.Decimal `json:"final_capital"`
	Trades              []Trade         `json:"trades"`
	TotalTrades         int             `json:"total_trades"`
	WinningTrades       int             `json:"winning_trades"`
	LosingTrades        int             `json:"losing_trades"`
	TotalReturn         float64         `json:"total_return"`
	AnnualizedReturn    float64         `json:"annualized_return"`
	SharpeRatio         float64         `json:"sharpe_ratio"`
	SortinoRatio        float64         `json:"sortino_ratio"`
	MaxDrawdown         float64         `json:"max_drawdown"`
	CalmarRatio         float64         `json:"calmar_ratio"`
	WinRate             float64         `json:"win_rate"`
	ProfitFactor        float64         `json:"profit_factor"`
	Exposure            float64         `json:"exposure"`
	TradingDays         int             `json:"trading_days"`
	EquityCurve         []EquityPoint   `json:"equity_curve,omitempty"`
	OverfittingWarnings []string        `json:"overfitting_warnings"`
	Notes               []string        `json:"notes,omitempty"`
}
