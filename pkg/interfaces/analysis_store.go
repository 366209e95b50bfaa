package interfaces

import (
	"context"
	"time"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

// AnalysisStore is the persistence collaborator of the analysis pipeline.
// Upserts are keyed so concurrent recomputation of the same ticker converges
// on the last write per (ticker, content_hash) and (ticker, event_category).
type AnalysisStore interface {
	// ListActiveTickers returns the tickers the recompute job should cover.
	ListActiveTickers(ctx context.Context) ([]string, error)

	// GetPriceBars returns the bars of a ticker between from and to inclusive,
	// ascending by date.
	GetPriceBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error)

	// GetArticles returns the news articles of a ticker published in [from, to].
	GetArticles(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsArticle, error)

	// GetEvents returns the stored events of a ticker dated at or after since,
	// ordered by event date then content hash.
	GetEvents(ctx context.Context, ticker string, since time.Time) ([]models.Event, error)

	// GetCorrelationRecords returns the stored records of a ticker.
	GetCorrelationRecords(ctx context.Context, ticker string) ([]models.CorrelationRecord, error)

	// UpsertEvents inserts or replaces events by (ticker, content_hash).
	UpsertEvents(ctx context.Context, events []models.Event) error

	// UpsertCorrelationRecords inserts or replaces records by (ticker, event_category).
	UpsertCorrelationRecords(ctx context.Context, records []models.CorrelationRecord) error

	// SavePredictabilityScore appends a score to the ticker's score history.
	SavePredictabilityScore(ctx context.Context, score *models.PredictabilityScore) error

	// SaveBacktestResult stores a finished backtest under its run id.
	SaveBacktestResult(ctx context.Context, result *models.BacktestResult) error
}
