package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/pkg/interfaces"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	// Begin starts a transaction.
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AnalysisRepository persists analysis inputs and outputs in Postgres.
type AnalysisRepository struct {
	pool   DatabasePool
	logger *logrus.Logger
}

var _ interfaces.AnalysisStore = (*AnalysisRepository)(nil)

// NewAnalysisRepository creates a new analysis repository.
//
// Parameters:
//
//	pool: The database connection pool.
//	logger: Logger for database operation events.
//
// Returns:
//
//	*AnalysisRepository: The initialized repository.
func NewAnalysisRepository(pool DatabasePool, logger *logrus.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		pool:   pool,
		logger: logging.OrDiscard(logger),
	}
}

// ListActiveTickers returns the active tickers in alphabetical order.
func (r *AnalysisRepository) ListActiveTickers(ctx context.Context) ([]string, error) {
	query := `
		SELECT symbol
		FROM tickers
		WHERE is_active = true
		ORDER BY symbol
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}

// GetPriceBars returns the daily bars of a ticker in [from, to], ascending.
func (r *AnalysisRepository) GetPriceBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	query := `
		SELECT ticker, date, open, high, low, close, volume, daily_return_pct
		FROM price_bars
		WHERE ticker = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(
			&b.Ticker,
			&b.Date,
			&b.Open,
			&b.High,
			&b.Low,
			&b.Close,
			&b.Volume,
			&b.DailyReturnPct,
		); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price bars: %w", err)
	}

	return bars, nil
}

// GetArticles returns the news of a ticker published in [from, to].
func (r *AnalysisRepository) GetArticles(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsArticle, error) {
	query := `
		SELECT ticker, published_at, headline, COALESCE(body, ''), COALESCE(content_hash, ''), COALESCE(source, '')
		FROM news_articles
		WHERE ticker = $1 AND published_at BETWEEN $2 AND $3
		ORDER BY published_at ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query news articles: %w", err)
	}
	defer rows.Close()

	var articles []models.NewsArticle
	for rows.Next() {
		var a models.NewsArticle
		if err := rows.Scan(&a.Ticker, &a.PublishedAt, &a.Headline, &a.Body, &a.ContentHash, &a.Source); err != nil {
			return nil, fmt.Errorf("failed to scan news article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating news articles: %w", err)
	}

	return articles, nil
}

// GetEvents returns stored events of a ticker dated at or after since.
func (r *AnalysisRepository) GetEvents(ctx context.Context, ticker string, since time.Time) ([]models.Event, error) {
	query := `
		SELECT ticker, event_date, primary_category, secondary_categories,
			category_confidence, sentiment_score, content_hash, COALESCE(headline, '')
		FROM events
		WHERE ticker = $1 AND event_date >= $2
		ORDER BY event_date ASC, content_hash ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var (
			e         models.Event
			primary   string
			secondary []string
		)
		if err := rows.Scan(
			&e.Ticker,
			&e.EventDate,
			&primary,
			&secondary,
			&e.CategoryConfidence,
			&e.SentimentScore,
			&e.ContentHash,
			&e.Headline,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.PrimaryCategory = models.EventCategory(primary)
		e.SecondaryCategories = make([]models.EventCategory, 0, len(secondary))
		for _, c := range secondary {
			e.SecondaryCategories = append(e.SecondaryCategories, models.EventCategory(c))
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// GetCorrelationRecords returns the stored records of a ticker in category
// priority order.
func (r *AnalysisRepository) GetCorrelationRecords(ctx context.Context, ticker string) ([]models.CorrelationRecord, error) {
	query := `
		SELECT ticker, event_category, occurrences, avg_move_pct, win_rate, timing_bucket,
			confidence_score, sample_size, dominant_direction, avg_abs_move_pct,
			avg_days_to_move, consistency, sentiment_alignment
		FROM correlation_records
		WHERE ticker = $1
	`

	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query correlation records: %w", err)
	}
	defer rows.Close()

	var records []models.CorrelationRecord
	for rows.Next() {
		var (
			rec                         models.CorrelationRecord
			category, timing, direction string
		)
		if err := rows.Scan(
			&rec.Ticker,
			&category,
			&rec.Occurrences,
			&rec.AvgMovePct,
			&rec.WinRate,
			&timing,
			&rec.ConfidenceScore,
			&rec.SampleSize,
			&direction,
			&rec.AvgAbsMovePct,
			&rec.AvgDaysToMove,
			&rec.Consistency,
			&rec.SentimentAlignment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan correlation record: %w", err)
		}
		rec.EventCategory = models.EventCategory(category)
		rec.TimingBucket = models.TimingBucket(timing)
		rec.DominantDirection = models.Direction(direction)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating correlation records: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EventCategory.Rank() < records[j].EventCategory.Rank()
	})
	return records, nil
}

// UpsertEvents inserts or replaces events by (ticker, content_hash) in one transaction.
func (r *AnalysisRepository) UpsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO events (ticker, event_date, primary_category, secondary_categories,
			category_confidence, sentiment_score, content_hash, headline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (ticker, content_hash)
		DO UPDATE SET
			event_date = EXCLUDED.event_date,
			primary_category = EXCLUDED.primary_category,
			secondary_categories = EXCLUDED.secondary_categories,
			category_confidence = EXCLUDED.category_confidence,
			sentiment_score = EXCLUDED.sentiment_score,
			headline = EXCLUDED.headline
	`

	start := time.Now()
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		for _, e := range events {
			secondary := make([]string, 0, len(e.SecondaryCategories))
			for _, c := range e.SecondaryCategories {
				secondary = append(secondary, string(c))
			}
			if _, err := tx.Exec(ctx, query,
				e.Ticker,
				e.EventDate,
				string(e.PrimaryCategory),
				secondary,
				e.CategoryConfidence,
				e.SentimentScore,
				e.ContentHash,
				e.Headline,
			); err != nil {
				return fmt.Errorf("failed to upsert event %s: %w", e.ContentHash, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.LogDatabaseOperation(r.logger, "upsert", "events", time.Since(start).Milliseconds(), int64(len(events)))
	return nil
}

// UpsertCorrelationRecords replaces a ticker's records in one transaction.
// Records for categories no longer present are removed.
func (r *AnalysisRepository) UpsertCorrelationRecords(ctx context.Context, records []models.CorrelationRecord) error {
	if len(records) == 0 {
		return nil
	}

	upsert := `
		INSERT INTO correlation_records (ticker, event_category, occurrences, avg_move_pct, win_rate,
			timing_bucket, confidence_score, sample_size, dominant_direction, avg_abs_move_pct,
			avg_days_to_move, consistency, sentiment_alignment, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, CURRENT_TIMESTAMP)
		ON CONFLICT (ticker, event_category)
		DO UPDATE SET
			occurrences = EXCLUDED.occurrences,
			avg_move_pct = EXCLUDED.avg_move_pct,
			win_rate = EXCLUDED.win_rate,
			timing_bucket = EXCLUDED.timing_bucket,
			confidence_score = EXCLUDED.confidence_score,
			sample_size = EXCLUDED.sample_size,
			dominant_direction = EXCLUDED.dominant_direction,
			avg_abs_move_pct = EXCLUDED.avg_abs_move_pct,
			avg_days_to_move = EXCLUDED.avg_days_to_move,
			consistency = EXCLUDED.consistency,
			sentiment_alignment = EXCLUDED.sentiment_alignment,
			updated_at = CURRENT_TIMESTAMP
	`
	prune := `
		DELETE FROM correlation_records
		WHERE ticker = $1 AND event_category <> ALL($2)
	`

	ticker := records[0].Ticker
	categories := make([]string, 0, len(records))
	start := time.Now()
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		for _, rec := range records {
			if rec.Ticker != ticker {
				return fmt.Errorf("correlation records span tickers %s and %s", ticker, rec.Ticker)
			}
			categories = append(categories, string(rec.EventCategory))
			if _, err := tx.Exec(ctx, upsert,
				rec.Ticker,
				string(rec.EventCategory),
				rec.Occurrences,
				rec.AvgMovePct,
				rec.WinRate,
				string(rec.TimingBucket),
				rec.ConfidenceScore,
				rec.SampleSize,
				string(rec.DominantDirection),
				rec.AvgAbsMovePct,
				rec.AvgDaysToMove,
				rec.Consistency,
				rec.SentimentAlignment,
			); err != nil {
				return fmt.Errorf("failed to upsert correlation record %s/%s: %w", rec.Ticker, rec.EventCategory, err)
			}
		}
		if _, err := tx.Exec(ctx, prune, ticker, categories); err != nil {
			return fmt.Errorf("failed to prune correlation records for %s: %w", ticker, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.LogDatabaseOperation(r.logger, "upsert", "correlation_records", time.Since(start).Milliseconds(), int64(len(records)))
	return nil
}

// SavePredictabilityScore appends a score to the score history.
func (r *AnalysisRepository) SavePredictabilityScore(ctx context.Context, score *models.PredictabilityScore) error {
	query := `
		INSERT INTO predictability_scores (ticker, overall_score, information_score, pattern_score,
			timing_score, direction_score, confidence, recommendation, contributing_category,
			predicted_direction, expected_move_pct, sample_size, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var category *string
	if score.ContributingCategory != "" {
		c := string(score.ContributingCategory)
		category = &c
	}

	_, err := r.pool.Exec(ctx, query,
		score.Ticker,
		score.OverallScore,
		score.SubScores.Information,
		score.SubScores.Pattern,
		score.SubScores.Timing,
		score.SubScores.Direction,
		score.Confidence,
		string(score.Recommendation),
		category,
		string(score.PredictedDirection),
		score.ExpectedMovePct,
		score.SampleSize,
		score.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save predictability score for %s: %w", score.Ticker, err)
	}

	return nil
}

// SaveBacktestResult stores a backtest summary with the full result as JSON.
func (r *AnalysisRepository) SaveBacktestResult(ctx context.Context, result *models.BacktestResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode backtest result: %w", err)
	}

	query := `
		INSERT INTO backtest_results (run_id, ticker, strategy_name, start_date, end_date,
			initial_capital, final_capital, total_trades, total_return, sharpe_ratio, max_drawdown, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id)
		DO UPDATE SET result = EXCLUDED.result
	`

	_, err = r.pool.Exec(ctx, query,
		result.RunID,
		result.Ticker,
		result.StrategyName,
		result.StartDate,
		result.EndDate,
		result.InitialCapital,
		result.FinalCapital,
		result.TotalTrades,
		result.TotalReturn,
		result.SharpeRatio,
		result.MaxDrawdown,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest %s: %w", result.RunID, err)
	}

	r.logger.WithFields(logrus.Fields{
		"run_id": result.RunID,
		"ticker": result.Ticker,
		"trades": result.TotalTrades,
	}).Debug("Backtest result saved")
	return nil
}

func (r *AnalysisRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			r.logger.WithError(rbErr).Warn("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
