package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

var fixtureStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixtureDay(i int) time.Time {
	return fixtureStart.AddDate(0, 0, i)
}

// barsFromCloses builds one bar per calendar day with open, high, low and
// close all equal to the given close.
func barsFromCloses(ticker string, closes ...float64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		px := decimal.NewFromFloat(c)
		bars[i] = models.PriceBar{
			Ticker: ticker,
			Date:   fixtureDay(i),
			Open:   px,
			High:   px,
			Low:    px,
			Close:  px,
			Volume: decimal.NewFromInt(1_000_000),
		}
		if i > 0 && closes[i-1] != 0 {
			bars[i].DailyReturnPct = decimal.NewFromFloat((c/closes[i-1] - 1) * 100)
		}
	}
	return bars
}

// rangedBars gives every bar a one point high and low around its close.
func rangedBars(closes ...float64) []models.PriceBar {
	bars := barsFromCloses("AAPL", closes...)
	for i := range bars {
		bars[i].High = bars[i].Close.Add(decimal.NewFromInt(1))
		bars[i].Low = bars[i].Close.Sub(decimal.NewFromInt(1))
	}
	return bars
}

func fixtureEvent(ticker string, category models.EventCategory, day, hour int, sentiment float64, hash string) models.Event {
	return models.Event{
		Ticker:             ticker,
		EventDate:          fixtureDay(day).Add(time.Duration(hour) * time.Hour),
		PrimaryCategory:    category,
		CategoryConfidence: 0.5,
		SentimentScore:     sentiment,
		ContentHash:        hash,
	}
}
