package services

import (
	"fmt"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

const equalityTolerance = 1e-9

// marketState is what conditions observe on a given trading day.
type marketState struct {
	bars   []models.PriceBar
	closes []float64
	score  *models.PredictabilityScore
	// series caches indicator output aligned to bars; warm-up days hold NaN.
	series map[string][]float64

	// entryIndex is the bar index of the open position, or -1 when flat.
	entryIndex int
}

func newMarketState(bars []models.PriceBar, score *models.PredictabilityScore) *marketState {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close.InexactFloat64()
	}
	return &marketState{
		bars:       bars,
		closes:     closes,
		score:      score,
		series:     make(map[string][]float64),
		entryIndex: -1,
	}
}

// observer reads one number for bar i; ok is false when it is unavailable.
type observer func(s *marketState, i int) (value float64, ok bool)

type compiledCondition struct {
	observe observer
	op      models.Operator
	value   float64
	logic   models.LogicOperator
}

// conditionList evaluates strictly left to right: ((c0 op1 c1) op2 c2) ...
type conditionList []compiledCondition

func (cl conditionList) eval(s *marketState, i int) bool {
	if len(cl) == 0 {
		return false
	}
	result := cl[0].holds(s, i)
	for _, c := range cl[1:] {
		switch c.logic {
		case models.LogicOr:
			result = result || c.holds(s, i)
		default:
			result = result && c.holds(s, i)
		}
	}
	return result
}

func (c compiledCondition) holds(s *marketState, i int) bool {
	v, ok := c.observe(s, i)
	if !ok || math.IsNaN(v) {
		return false
	}
	switch c.op {
	case models.OpGreaterThan:
		return v > c.value
	case models.OpLessThan:
		return v < c.value
	case models.OpGreaterThanEqual:
		return v >= c.value
	case models.OpLessThanEqual:
		return v <= c.value
	case models.OpEqual:
		return math.Abs(v-c.value) <= equalityTolerance*math.Max(1, math.Abs(c.value))
	}
	return false
}

// compileConditions resolves every condition to an observer and precomputes
// the indicator series it needs. Strategies are validated first, so an error
// here means a condition slipped past validation.
func compileConditions(conds []models.Condition, s *marketState) (conditionList, error) {
	out := make(conditionList, 0, len(conds))
	for i, c := range conds {
		obs, err := observerFor(c, s)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		out = append(out, compiledCondition{observe: obs, op: c.Operator, value: c.Value, logic: c.LogicOperator})
	}
	return out, nil
}

func observerFor(c models.Condition, s *marketState) (observer, error) {
	switch c.Type {
	case models.ConditionPrice:
		return priceObserver(c.Field)
	case models.ConditionVolume:
		return func(s *marketState, i int) (float64, bool) {
			return s.bars[i].Volume.InexactFloat64(), true
		}, nil
	case models.ConditionIndicator:
		return indicatorObserver(c.Indicator, c.Period, s)
	case models.ConditionTime:
		return timeObserver(c.Field)
	case models.ConditionPredictability:
		return predictabilityObserver(c.Field)
	}
	return nil, fmt.Errorf("unknown condition type %q", c.Type)
}

func priceObserver(field string) (observer, error) {
	switch field {
	case "", "close":
		return func(s *marketState, i int) (float64, bool) { return s.closes[i], true }, nil
	case "open":
		return func(s *marketState, i int) (float64, bool) { return s.bars[i].Open.InexactFloat64(), true }, nil
	case "high":
		return func(s *marketState, i int) (float64, bool) { return s.bars[i].High.InexactFloat64(), true }, nil
	case "low":
		return func(s *marketState, i int) (float64, bool) { return s.bars[i].Low.InexactFloat64(), true }, nil
	}
	return nil, fmt.Errorf("unknown price field %q", field)
}

func indicatorObserver(name string, period int, s *marketState) (observer, error) {
	if name == "daily_return" {
		return func(s *marketState, i int) (float64, bool) {
			if i == 0 {
				return 0, false
			}
			return (s.closes[i]/s.closes[i-1] - 1) * 100, true
		}, nil
	}

	key := fmt.Sprintf("%s_%d", name, period)
	if _, ok := s.series[key]; !ok {
		var series []float64
		switch name {
		case "sma":
			series = alignSeries(len(s.closes), helper.ChanToSlice(
				trend.NewSmaWithPeriod[float64](period).Compute(helper.SliceToChan(s.closes))))
		case "ema":
			series = alignSeries(len(s.closes), helper.ChanToSlice(
				trend.NewEmaWithPeriod[float64](period).Compute(helper.SliceToChan(s.closes))))
		case "rsi":
			series = alignSeries(len(s.closes), helper.ChanToSlice(
				momentum.NewRsiWithPeriod[float64](period).Compute(helper.SliceToChan(s.closes))))
		default:
			return nil, fmt.Errorf("unknown indicator %q", name)
		}
		s.series[key] = series
	}

	return func(s *marketState, i int) (float64, bool) {
		v := s.series[key][i]
		return v, !math.IsNaN(v)
	}, nil
}

func timeObserver(field string) (observer, error) {
	switch field {
	case "trading_day":
		return func(_ *marketState, i int) (float64, bool) { return float64(i + 1), true }, nil
	case "day_of_week":
		return func(s *marketState, i int) (float64, bool) { return float64(s.bars[i].Date.Weekday()), true }, nil
	case "day_of_month":
		return func(s *marketState, i int) (float64, bool) { return float64(s.bars[i].Date.Day()), true }, nil
	case "month":
		return func(s *marketState, i int) (float64, bool) { return float64(s.bars[i].Date.Month()), true }, nil
	case "days_held":
		return func(s *marketState, i int) (float64, bool) {
			if s.entryIndex < 0 {
				return 0, false
			}
			return float64(i - s.entryIndex), true
		}, nil
	}
	return nil, fmt.Errorf("unknown time field %q", field)
}

func predictabilityObserver(field string) (observer, error) {
	var pick func(p *models.PredictabilityScore) float64
	switch field {
	case "", "overall":
		pick = func(p *models.PredictabilityScore) float64 { return float64(p.OverallScore) }
	case "confidence":
		pick = func(p *models.PredictabilityScore) float64 { return p.Confidence }
	case "information":
		pick = func(p *models.PredictabilityScore) float64 { return p.SubScores.Information }
	case "pattern":
		pick = func(p *models.PredictabilityScore) float64 { return p.SubScores.Pattern }
	case "timing":
		pick = func(p *models.PredictabilityScore) float64 { return p.SubScores.Timing }
	case "direction":
		pick = func(p *models.PredictabilityScore) float64 { return p.SubScores.Direction }
	default:
		return nil, fmt.Errorf("unknown predictability field %q", field)
	}
	return func(s *marketState, _ int) (float64, bool) {
		if s.score == nil {
			return 0, false
		}
		return pick(s.score), true
	}, nil
}

// atrPercentSeries returns ATR(14) as a percent of close, aligned to bars.
func (s *marketState) atrPercentSeries() []float64 {
	const key = "atr_pct"
	if series, ok := s.series[key]; ok {
		return series
	}

	highs := make([]float64, len(s.bars))
	lows := make([]float64, len(s.bars))
	for i, b := range s.bars {
		highs[i] = b.High.InexactFloat64()
		lows[i] = b.Low.InexactFloat64()
	}

	atr := alignSeries(len(s.bars), helper.ChanToSlice(volatility.NewAtr[float64]().Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(s.closes),
	)))
	for i := range atr {
		if !math.IsNaN(atr[i]) {
			atr[i] = atr[i] / s.closes[i] * 100
		}
	}

	s.series[key] = atr
	return atr
}

// alignSeries right-aligns indicator output to n bars. The indicator library
// drops its warm-up period, so leading positions are filled with NaN.
func alignSeries(n int, values []float64) []float64 {
	out := make([]float64, n)
	offset := n - len(values)
	for i := range out {
		if i < offset {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i-offset]
	}
	return out
}
