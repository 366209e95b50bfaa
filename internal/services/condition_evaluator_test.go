package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

func compileForTest(t *testing.T, conds []models.Condition, s *marketState) conditionList {
	t.Helper()
	cl, err := compileConditions(conds, s)
	require.NoError(t, err)
	return cl
}

func TestConditionList_LeftAssociative(t *testing.T) {
	s := newMarketState(barsFromCloses("AAPL", 100), nil)
	truthy := models.Condition{Type: models.ConditionPrice, Operator: models.OpGreaterThan, Value: 50}
	falsy := models.Condition{Type: models.ConditionPrice, Operator: models.OpLessThan, Value: 50}
	and := func(c models.Condition) models.Condition { c.LogicOperator = models.LogicAnd; return c }
	or := func(c models.Condition) models.Condition { c.LogicOperator = models.LogicOr; return c }

	// With precedence, true OR (true AND false) would be true; left to right
	// it is (true OR true) AND false.
	cl := compileForTest(t, []models.Condition{truthy, or(truthy), and(falsy)}, s)
	assert.False(t, cl.eval(s, 0))

	// (false AND true) OR true
	cl = compileForTest(t, []models.Condition{falsy, and(truthy), or(truthy)}, s)
	assert.True(t, cl.eval(s, 0))

	assert.False(t, conditionList(nil).eval(s, 0))
}

func TestCompiledCondition_Operators(t *testing.T) {
	s := newMarketState(barsFromCloses("AAPL", 100), nil)

	tests := []struct {
		op    models.Operator
		value float64
		want  bool
	}{
		{models.OpGreaterThan, 99, true},
		{models.OpGreaterThan, 100, false},
		{models.OpGreaterThanEqual, 100, true},
		{models.OpLessThan, 100, false},
		{models.OpLessThanEqual, 100, true},
		{models.OpEqual, 100, true},
		{models.OpEqual, 100.01, false},
	}

	for _, tt := range tests {
		cl := compileForTest(t, []models.Condition{{Type: models.ConditionPrice, Operator: tt.op, Value: tt.value}}, s)
		assert.Equal(t, tt.want, cl.eval(s, 0), "%s %v", tt.op, tt.value)
	}
}

func TestObservers(t *testing.T) {
	bars := barsFromCloses("AAPL", 100, 102, 101)
	bars[1].Volume = bars[1].Volume.Mul(bars[1].Volume)
	score := &models.PredictabilityScore{OverallScore: 81, Confidence: 0.9, SubScores: models.SubScores{Timing: 70}}
	s := newMarketState(bars, score)

	observe := func(c models.Condition, i int) (float64, bool) {
		obs, err := observerFor(c, s)
		require.NoError(t, err)
		return obs(s, i)
	}

	v, ok := observe(models.Condition{Type: models.ConditionPrice, Field: "close"}, 1)
	assert.True(t, ok)
	assert.Equal(t, 102.0, v)

	v, _ = observe(models.Condition{Type: models.ConditionVolume}, 1)
	assert.Equal(t, 1e12, v)

	_, ok = observe(models.Condition{Type: models.ConditionIndicator, Indicator: "daily_return"}, 0)
	assert.False(t, ok)
	v, ok = observe(models.Condition{Type: models.ConditionIndicator, Indicator: "daily_return"}, 1)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)

	v, _ = observe(models.Condition{Type: models.ConditionTime, Field: "trading_day"}, 2)
	assert.Equal(t, 3.0, v)
	v, _ = observe(models.Condition{Type: models.ConditionTime, Field: "day_of_week"}, 0)
	assert.Equal(t, 1.0, v) // 2024-01-01 is a Monday
	v, _ = observe(models.Condition{Type: models.ConditionTime, Field: "month"}, 0)
	assert.Equal(t, 1.0, v)

	_, ok = observe(models.Condition{Type: models.ConditionTime, Field: "days_held"}, 2)
	assert.False(t, ok)
	s.entryIndex = 0
	v, ok = observe(models.Condition{Type: models.ConditionTime, Field: "days_held"}, 2)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	v, _ = observe(models.Condition{Type: models.ConditionPredictability}, 0)
	assert.Equal(t, 81.0, v)
	v, _ = observe(models.Condition{Type: models.ConditionPredictability, Field: "timing"}, 0)
	assert.Equal(t, 70.0, v)

	s.score = nil
	_, ok = observe(models.Condition{Type: models.ConditionPredictability}, 0)
	assert.False(t, ok)
}

func TestObservers_UnknownFieldsAreErrors(t *testing.T) {
	s := newMarketState(barsFromCloses("AAPL", 100), nil)

	for _, c := range []models.Condition{
		{Type: "sentiment"},
		{Type: models.ConditionPrice, Field: "vwap"},
		{Type: models.ConditionIndicator, Indicator: "macd"},
		{Type: models.ConditionTime, Field: "hour"},
		{Type: models.ConditionPredictability, Field: "luck"},
	} {
		_, err := observerFor(c, s)
		assert.Error(t, err, "%+v", c)
	}
}

func TestIndicatorObserver_SMAWarmup(t *testing.T) {
	s := newMarketState(barsFromCloses("AAPL", 1, 2, 3, 4, 5), nil)

	obs, err := indicatorObserver("sma", 3, s)
	require.NoError(t, err)

	_, ok := obs(s, 1)
	assert.False(t, ok)
	v, ok := obs(s, 2)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-9)
	v, _ = obs(s, 4)
	assert.InDelta(t, 4.0, v, 1e-9)
}

func TestIndicatorObserver_EMAAndRSI(t *testing.T) {
	rising := barsFromCloses("AAPL", 1, 2, 3, 4, 5, 6)
	falling := barsFromCloses("AAPL", 6, 5, 4, 3, 2, 1)

	tests := []struct {
		name      string
		bars      []models.PriceBar
		indicator string
		period    int
		firstIdx  int
		want      map[int]float64
	}{
		// Seeded with the SMA of the first period, then smoothed by 2/(p+1).
		{name: "ema", bars: rising, indicator: "ema", period: 3, firstIdx: 2, want: map[int]float64{2: 2, 3: 3, 5: 5}},
		{name: "rsi without losses", bars: rising, indicator: "rsi", period: 3, firstIdx: 3, want: map[int]float64{3: 100, 5: 100}},
		{name: "rsi without gains", bars: falling, indicator: "rsi", period: 3, firstIdx: 3, want: map[int]float64{3: 0, 5: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMarketState(tt.bars, nil)
			obs, err := indicatorObserver(tt.indicator, tt.period, s)
			require.NoError(t, err)

			for i := 0; i < tt.firstIdx; i++ {
				_, ok := obs(s, i)
				assert.False(t, ok, "bar %d is still warming up", i)
			}
			for i, want := range tt.want {
				v, ok := obs(s, i)
				require.True(t, ok, "bar %d", i)
				assert.InDelta(t, want, v, 1e-9, "bar %d", i)
			}
		})
	}
}

func TestIndicatorObserver_RSIStaysInRange(t *testing.T) {
	s := newMarketState(barsFromCloses("AAPL", 100, 102, 101, 104, 103, 101, 105, 104), nil)

	obs, err := indicatorObserver("rsi", 3, s)
	require.NoError(t, err)

	for i := 3; i < len(s.bars); i++ {
		v, ok := obs(s, i)
		require.True(t, ok, "bar %d", i)
		assert.Greater(t, v, 0.0, "bar %d", i)
		assert.Less(t, v, 100.0, "bar %d", i)
	}
}

func TestATRPercentSeries(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	s := newMarketState(rangedBars(closes...), nil)

	atr := s.atrPercentSeries()

	require.Len(t, atr, 20)
	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(atr[i]), "bar %d", i)
	}
	for i := 14; i < 20; i++ {
		assert.InDelta(t, 2.0, atr[i], 1e-9, "bar %d", i)
	}

	// Cached after the first call.
	atr[19] = -1
	assert.Equal(t, -1.0, s.atrPercentSeries()[19])
}

func TestAlignSeries(t *testing.T) {
	out := alignSeries(4, []float64{7, 8})

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, []float64{7, 8}, out[2:])
}
