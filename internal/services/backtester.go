package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/utils"
)

// equityBase is the starting value of the normalized equity curve.
const equityBase = 100.0

// BacktestRequest is one simulation of a strategy over a ticker's history.
type BacktestRequest struct {
	Ticker   string
	Strategy models.Strategy
	// Prices must be ascending by date. Bars without a positive close or out
	// of order are skipped.
	Prices []models.PriceBar
	// Score feeds predictability conditions; required only when the strategy has them.
	Score *models.PredictabilityScore

	// Zero or nil values fall back to the engine configuration.
	InitialCapital decimal.Decimal
	CommissionPct  *float64
	SlippagePct    *float64
}

// BacktestEngine replays a declarative strategy day by day. Positions move
// FLAT -> OPEN -> CLOSED with at most one open position and at most one
// action per trading day. Runs share no mutable state and may execute
// concurrently.
type BacktestEngine struct {
	cfg       config.BacktestConfig
	validator *StrategyValidator
	logger    *logrus.Logger
	newRunID  func() string
}

// NewBacktestEngine creates a backtest engine with the given defaults.
func NewBacktestEngine(cfg config.BacktestConfig, logger *logrus.Logger) *BacktestEngine {
	if cfg.TradingDaysPerYear <= 0 {
		cfg.TradingDaysPerYear = 252
	}
	if cfg.MinTradesWarning <= 0 {
		cfg.MinTradesWarning = 10
	}
	if cfg.MaxExposureWarning <= 0 {
		cfg.MaxExposureWarning = 0.5
	}
	return &BacktestEngine{
		cfg:       cfg,
		validator: NewStrategyValidator(),
		logger:    logging.OrDiscard(logger),
		newRunID:  uuid.NewString,
	}
}

// Validate checks a strategy without running it.
func (e *BacktestEngine) Validate(s *models.Strategy) error {
	return e.validator.Validate(s)
}

type openPosition struct {
	entryIndex      int
	entryFill       decimal.Decimal
	quantity        decimal.Decimal
	entryCommission decimal.Decimal
	costBasis       decimal.Decimal
	peakClose       decimal.Decimal
}

type simulation struct {
	bars           []models.PriceBar
	commissionRate decimal.Decimal
	slippageRate   decimal.Decimal

	cash         decimal.Decimal
	closedEquity float64
	position     *openPosition
	trades       []models.Trade
	curve        []models.EquityPoint
	daysInMarket int
}

// Run validates the strategy and simulates it. Validation failures are
// returned as *utils.ValidationErrors before any simulation work. A strategy
// that never enters returns a zero-trade result with a note.
func (e *BacktestEngine) Run(ctx context.Context, req BacktestRequest) (*models.BacktestResult, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	strategy := req.Strategy

	if err := e.validator.ValidateFor(&strategy, ValidationTarget{Ticker: ticker, HasScore: req.Score != nil}); err != nil {
		return nil, fmt.Errorf("invalid strategy %q: %w", strategy.Name, err)
	}

	capital := req.InitialCapital
	if capital.IsZero() {
		capital = decimal.NewFromFloat(e.cfg.InitialCapital)
	}
	commissionPct := e.cfg.CommissionPct
	if req.CommissionPct != nil {
		commissionPct = *req.CommissionPct
	}
	slippagePct := e.cfg.SlippagePct
	if req.SlippagePct != nil {
		slippagePct = *req.SlippagePct
	}
	if err := checkRunParameters(capital, commissionPct, slippagePct); err != nil {
		return nil, err
	}

	bars, filled := usableBars(req.Prices)
	result := &models.BacktestResult{
		RunID:               e.newRunID(),
		Ticker:              ticker,
		StrategyName:        strategy.Name,
		InitialCapital:      capital,
		FinalCapital:        capital,
		Trades:              []models.Trade{},
		OverfittingWarnings: []string{},
		TradingDays:         len(bars),
	}
	if skipped := len(req.Prices) - len(bars); skipped > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("skipped %d bars with a missing close or out-of-order date", skipped))
	}
	if filled > 0 {
		result.Notes = append(result.Notes, fmt.Sprintf("%d bars had no open, high or low price and were simulated at their close", filled))
	}
	if len(bars) == 0 {
		result.Notes = append(result.Notes, "no usable price data; nothing was simulated")
		return result, nil
	}
	result.StartDate = bars[0].Date
	result.EndDate = bars[len(bars)-1].Date

	state := newMarketState(bars, req.Score)
	entry, err := compileConditions(strategy.EntryConditions, state)
	if err != nil {
		return nil, fmt.Errorf("compile entry conditions: %w", err)
	}
	exit, err := compileConditions(strategy.ExitConditions, state)
	if err != nil {
		return nil, fmt.Errorf("compile exit conditions: %w", err)
	}
	sizer := newPositionSizer(&strategy, state)

	sim := &simulation{
		bars:           bars,
		commissionRate: decimal.NewFromFloat(commissionPct).Div(hundred),
		slippageRate:   decimal.NewFromFloat(slippagePct).Div(hundred),
		cash:           capital,
		closedEquity:   equityBase,
		curve:          make([]models.EquityPoint, 0, len(bars)),
	}

	last := len(bars) - 1
	for i := range bars {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled after %d of %d trading days: %w", i, len(bars), err)
		}

		exitedToday := false
		if pos := sim.position; pos != nil {
			sim.daysInMarket++
			state.entryIndex = pos.entryIndex
			if i > pos.entryIndex {
				if price, reason, ok := e.exitSignal(&strategy, pos, state, exit, i); ok {
					sim.closePosition(i, price, reason)
					exitedToday = true
				} else if bars[i].Close.GreaterThan(pos.peakClose) {
					pos.peakClose = bars[i].Close
				}
			}
		}

		// No entries on the final bar: the position could not be held.
		if sim.position == nil && !exitedToday && i < last {
			state.entryIndex = -1
			if entry.eval(state, i) && sim.openPosition(i, sizer) {
				sim.daysInMarket++
			}
		}

		if i == last && sim.position != nil {
			sim.closePosition(i, bars[i].Close, models.ExitEndOfData)
		}
		sim.markToMarket(i)
	}

	e.finalize(result, sim)

	e.logger.WithFields(logrus.Fields{
		"run_id":       result.RunID,
		"ticker":       ticker,
		"strategy":     strategy.Name,
		"trading_days": result.TradingDays,
		"trades":       result.TotalTrades,
		"total_return": result.TotalReturn,
		"max_drawdown": result.MaxDrawdown,
	}).Info("Backtest completed")

	return result, nil
}

// exitSignal applies risk rules in precedence order: stop loss, take profit,
// max drawdown, then the strategy's exit conditions. Stop loss and take profit
// trigger on the intraday low and high and fill at the level, or at the open
// when the bar gaps through it. The returned price is before slippage.
func (e *BacktestEngine) exitSignal(
	s *models.Strategy,
	pos *openPosition,
	state *marketState,
	exit conditionList,
	i int,
) (decimal.Decimal, models.ExitReason, bool) {
	bar := state.bars[i]
	risk := s.RiskManagement

	if risk.StopLossPct > 0 {
		level := pos.entryFill.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(risk.StopLossPct).Div(hundred)))
		if bar.Low.LessThanOrEqual(level) {
			return decimal.Min(level, bar.Open), models.ExitStopLoss, true
		}
	}
	if risk.TakeProfitPct > 0 {
		level := pos.entryFill.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(risk.TakeProfitPct).Div(hundred)))
		if bar.High.GreaterThanOrEqual(level) {
			return decimal.Max(level, bar.Open), models.ExitTakeProfit, true
		}
	}
	if risk.MaxDrawdownPct > 0 {
		level := pos.peakClose.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(risk.MaxDrawdownPct).Div(hundred)))
		if bar.Close.LessThanOrEqual(level) {
			return bar.Close, models.ExitMaxDrawdown, true
		}
	}
	if exit.eval(state, i) {
		return bar.Close, models.ExitSignal, true
	}
	return decimal.Zero, "", false
}

func (sim *simulation) openPosition(i int, sizer *positionSizer) bool {
	bar := sim.bars[i]
	fill := bar.Close.Mul(decimal.NewFromInt(1).Add(sim.slippageRate))
	qty := quantityFor(sizer.notional(sim.cash, i), fill, sim.commissionRate)
	if !qty.IsPositive() {
		return false
	}

	gross := qty.Mul(fill)
	commission := gross.Mul(sim.commissionRate)
	cost := gross.Add(commission)
	sim.cash = sim.cash.Sub(cost)
	sim.position = &openPosition{
		entryIndex:      i,
		entryFill:       fill,
		quantity:        qty,
		entryCommission: commission,
		costBasis:       cost,
		peakClose:       decimal.Max(fill, bar.Close),
	}
	return true
}

func (sim *simulation) closePosition(i int, rawPrice decimal.Decimal, reason models.ExitReason) {
	pos := sim.position
	bar := sim.bars[i]
	fill := rawPrice.Mul(decimal.NewFromInt(1).Sub(sim.slippageRate))

	proceeds := pos.quantity.Mul(fill)
	commission := proceeds.Mul(sim.commissionRate)
	net := proceeds.Sub(commission)
	pnl := net.Sub(pos.costBasis)
	pnlPct := pnl.Div(pos.costBasis).Mul(hundred).InexactFloat64()

	sim.cash = sim.cash.Add(net)
	sim.closedEquity *= 1 + pnlPct/100
	sim.trades = append(sim.trades, models.Trade{
		EntryDate:    sim.bars[pos.entryIndex].Date,
		EntryPrice:   pos.entryFill,
		ExitDate:     bar.Date,
		ExitPrice:    fill,
		Quantity:     pos.quantity,
		Commission:   pos.entryCommission.Add(commission),
		PnL:          pnl,
		PnLPct:       pnlPct,
		DurationDays: calendarDaysBetween(sim.bars[pos.entryIndex].Date, bar.Date),
		ExitReason:   reason,
	})
	sim.position = nil
}

// markToMarket appends the day's point on the normalized equity curve. Closed
// trades compound their PnLPct; an open position is valued at the close
// against its cost basis.
func (sim *simulation) markToMarket(i int) {
	equity := sim.closedEquity
	if pos := sim.position; pos != nil {
		value := pos.quantity.Mul(sim.bars[i].Close)
		unrealized := value.Div(pos.costBasis).InexactFloat64() - 1
		equity *= 1 + unrealized
	}
	sim.curve = append(sim.curve, models.EquityPoint{Date: sim.bars[i].Date, Equity: equity})
}

func (e *BacktestEngine) finalize(result *models.BacktestResult, sim *simulation) {
	if sim.trades != nil {
		result.Trades = sim.trades
	}
	result.FinalCapital = sim.cash
	result.EquityCurve = sim.curve
	result.TotalTrades = len(result.Trades)
	result.Exposure = float64(sim.daysInMarket) / float64(len(sim.bars))

	m := computeMetrics(result.Trades, sim.curve, e.cfg.TradingDaysPerYear)
	result.TotalReturn = m.totalReturn
	result.AnnualizedReturn = m.annualizedReturn
	result.SharpeRatio = m.sharpe
	result.SortinoRatio = m.sortino
	result.MaxDrawdown = m.maxDrawdown
	result.CalmarRatio = m.calmar
	result.WinRate = m.winRate
	result.ProfitFactor = m.profitFactor
	result.WinningTrades = m.winning
	result.LosingTrades = m.losing

	result.OverfittingWarnings = overfittingWarnings(result.TotalTrades, result.Exposure, e.cfg.MinTradesWarning, e.cfg.MaxExposureWarning)
	if result.TotalTrades == 0 {
		result.Notes = append(result.Notes, fmt.Sprintf(
			"entry conditions never triggered across %d trading days (%s to %s)",
			result.TradingDays, result.StartDate.Format(time.DateOnly), result.EndDate.Format(time.DateOnly)))
	}
}

func checkRunParameters(capital decimal.Decimal, commissionPct, slippagePct float64) error {
	errs := &utils.ValidationErrors{}
	if !capital.IsPositive() {
		errs.Add("initial_capital", "must be positive, got %s", capital.String())
	}
	if commissionPct < 0 || commissionPct >= 100 {
		errs.Add("commission_pct", "must be in [0, 100), got %v", commissionPct)
	}
	if slippagePct < 0 || slippagePct >= 100 {
		errs.Add("slippage_pct", "must be in [0, 100), got %v", slippagePct)
	}
	return errs.Err()
}
