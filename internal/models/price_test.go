package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func bar(o, h, l, c float64) PriceBar {
	return PriceBar{
		Ticker: "AAPL",
		Open:   decimal.NewFromFloat(o),
		High:   decimal.NewFromFloat(h),
		Low:    decimal.NewFromFloat(l),
		Close:  decimal.NewFromFloat(c),
	}
}

func TestPriceBar_Tradable(t *testing.T) {
	assert.True(t, bar(0, 0, 0, 10).Tradable())
	assert.False(t, bar(10, 11, 9, 0).Tradable())
	assert.False(t, bar(10, 11, 9, -1).Tradable())
}

func TestPriceBar_WithCloseFallback(t *testing.T) {
	tests := []struct {
		name       string
		in         PriceBar
		want       PriceBar
		wantFilled bool
	}{
		{name: "complete bar", in: bar(99, 102, 98, 101), want: bar(99, 102, 98, 101)},
		{name: "close only", in: bar(0, 0, 0, 101), want: bar(101, 101, 101, 101), wantFilled: true},
		{name: "missing low", in: bar(99, 102, 0, 101), want: bar(99, 102, 101, 101), wantFilled: true},
		{name: "negative open", in: bar(-1, 102, 98, 101), want: bar(101, 102, 98, 101), wantFilled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, filled := tt.in.WithCloseFallback()

			assert.Equal(t, tt.wantFilled, filled)
			assert.True(t, tt.want.Open.Equal(got.Open), "open %s", got.Open)
			assert.True(t, tt.want.High.Equal(got.High), "high %s", got.High)
			assert.True(t, tt.want.Low.Equal(got.Low), "low %s", got.Low)
			assert.True(t, tt.want.Close.Equal(got.Close), "close %s", got.Close)
		})
	}
}
