package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one trading day of OHLCV data for a ticker. Sequences of bars
// are ascending by Date with no duplicate dates.
type PriceBar struct {
	Ticker         string          `json:"ticker" db:"ticker"`
	Date           time.Time       `json:"date" db:"date"`
	Open           decimal.Decimal `json:"open" db:"open"`
	High           decimal.Decimal `json:"high" db:"high"`
	Low            decimal.Decimal `json:"low" db:"low"`
	Close          decimal.Decimal `json:"close" db:"close"`
	Volume         decimal.Decimal `json:"volume" db:"volume"`
	DailyReturnPct decimal.Decimal `json:"daily_return_pct" db:"daily_return_pct"`
}

// Tradable reports whether the bar carries a usable closing price.
func (b PriceBar) Tradable() bool {
	return b.Close.IsPositive()
}

// WithCloseFallback returns the bar with any non-positive open, high or low
// replaced by the close, and whether a field was filled. Close-only rows
// become flat bars instead of bars that trade at zero.
func (b PriceBar) WithCloseFallback() (PriceBar, bool) {
	filled := false
	for _, f := range []*decimal.Decimal{&b.Open, &b.High, &b.Low} {
		if !f.IsPositive() {
			*f = b.Close
			filled = true
		}
	}
	return b, filled
}
