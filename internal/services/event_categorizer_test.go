package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

func newTestCategorizer(t *testing.T, table map[models.EventCategory][]string, threshold float64) *EventCategorizer {
	t.Helper()
	ec, err := NewEventCategorizerWithKeywords(table, threshold, nil)
	require.NoError(t, err)
	return ec
}

var fiveByFive = map[models.EventCategory][]string{
	models.CategoryEarnings: {"earnings", "revenue", "eps", "guidance", "profit"},
	models.CategoryPolicy:   {"regulation", "tariff", "tax", "antitrust", "government"},
}

func TestEventCategorizer_PrimaryAndSecondary(t *testing.T) {
	ec := newTestCategorizer(t, fiveByFive, 0)

	got := ec.CategorizeText("Earnings and revenue beat, EPS and guidance raised despite tariff", "")

	assert.Equal(t, models.CategoryEarnings, got.Primary)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)
	require.Len(t, got.Secondary, 1)
	assert.Equal(t, models.CategoryPolicy, got.Secondary[0].Category)
	assert.InDelta(t, 0.2, got.Secondary[0].Confidence, 1e-9)
	assert.Equal(t, []models.EventCategory{models.CategoryPolicy}, got.SecondaryCategories())
}

func TestEventCategorizer_SecondaryThreshold(t *testing.T) {
	ec := newTestCategorizer(t, fiveByFive, 0.3)

	got := ec.CategorizeText("Earnings and revenue beat, EPS and guidance raised despite tariff", "")

	assert.Equal(t, models.CategoryEarnings, got.Primary)
	assert.Empty(t, got.Secondary)
}

func TestEventCategorizer_TieGoesToPriority(t *testing.T) {
	ec := newTestCategorizer(t, map[models.EventCategory][]string{
		models.CategorySector: {"oil"},
		models.CategoryPolicy: {"tariff"},
	}, 0)

	got := ec.CategorizeText("Oil tariff announced", "")

	assert.Equal(t, models.CategoryPolicy, got.Primary)
	assert.Equal(t, 1.0, got.Confidence)
	require.Len(t, got.Secondary, 1)
	assert.Equal(t, models.CategorySector, got.Secondary[0].Category)
}

func TestEventCategorizer_NoMatchDefaultsToSector(t *testing.T) {
	ec := NewEventCategorizer(nil, 0)

	got := ec.CategorizeText("", "")

	assert.Equal(t, models.CategorySector, got.Primary)
	assert.Zero(t, got.Confidence)
	assert.Empty(t, got.Secondary)
}

func TestEventCategorizer_RepeatedKeywordCountsOnce(t *testing.T) {
	ec := newTestCategorizer(t, fiveByFive, 0)

	got := ec.CategorizeText("earnings earnings earnings", "EARNINGS")

	assert.Equal(t, models.CategoryEarnings, got.Primary)
	assert.InDelta(t, 0.2, got.Confidence, 1e-9)
}

func TestEventCategorizer_MultiWordKeywords(t *testing.T) {
	ec := newTestCategorizer(t, map[models.EventCategory][]string{
		models.CategoryTechnical: {"stock split", "buyback"},
	}, 0)

	miss := ec.CategorizeText("Stock rallies after split rumor denied", "")
	assert.Equal(t, models.CategorySector, miss.Primary)
	assert.Zero(t, miss.Confidence)

	hit := ec.CategorizeText("Company announces stock split", "")
	assert.Equal(t, models.CategoryTechnical, hit.Primary)
	assert.InDelta(t, 0.5, hit.Confidence, 1e-9)
}

func TestEventCategorizer_DuplicateKeywordsIgnored(t *testing.T) {
	ec := newTestCategorizer(t, map[models.EventCategory][]string{
		models.CategorySeasonal: {"year-end", "Year End", "holiday"},
	}, 0)

	got := ec.CategorizeText("Year-end rally", "")

	assert.Equal(t, models.CategorySeasonal, got.Primary)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
}

func TestEventCategorizer_DefaultTable(t *testing.T) {
	ec := NewEventCategorizer(nil, 0)

	article := models.NewsArticle{
		Ticker:   "AAPL",
		Headline: "Apple reports Q3 earnings beat as revenue climbs",
		Body:     "Quarterly EPS topped forecasts.",
	}
	got := ec.Categorize(article)

	assert.Equal(t, models.CategoryEarnings, got.Primary)
	assert.Greater(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 1.0)
	assert.Equal(t, models.CategoryPriority, ec.Categories())
}

func TestEventCategorizer_Deterministic(t *testing.T) {
	ec := NewEventCategorizer(nil, 0)
	text := "Regulators approve merger as oil prices rise ahead of holiday earnings"

	first := ec.CategorizeText(text, "")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ec.CategorizeText(text, ""))
	}
}

func TestEventCategorizer_CategorizeBatch(t *testing.T) {
	ec := newTestCategorizer(t, fiveByFive, 0)

	got := ec.CategorizeBatch([]models.NewsArticle{
		{Headline: "Tariff and tax changes"},
		{Headline: "Profit up"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, models.CategoryPolicy, got[0].Primary)
	assert.Equal(t, models.CategoryEarnings, got[1].Primary)
}

func TestNewEventCategorizerWithKeywords_Errors(t *testing.T) {
	_, err := NewEventCategorizerWithKeywords(nil, 0, nil)
	assert.Error(t, err)

	_, err = NewEventCategorizerWithKeywords(map[models.EventCategory][]string{"macro": {"rates"}}, 0, nil)
	assert.Error(t, err)

	_, err = NewEventCategorizerWithKeywords(map[models.EventCategory][]string{models.CategoryPolicy: {"  "}}, 0, nil)
	assert.Error(t, err)
}
