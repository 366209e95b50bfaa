package interfaces

import (
	"context"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

// ScoreCacheStats tracks cache performance counters.
type ScoreCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// ScoreCache stores expensive analysis results keyed by ticker. Callers use it
// around the scoring and backtest services; the analysis core never reads it.
// A cache failure must never fail the caller, so lookups report a miss
// instead of an error.
type ScoreCache interface {
	// GetPredictability retrieves the cached score for a ticker.
	//
	// Returns:
	//   *models.PredictabilityScore: The cached score, nil on a miss.
	//   bool: True on a hit.
	GetPredictability(ctx context.Context, ticker string) (*models.PredictabilityScore, bool)

	// SetPredictability stores a score under its ticker with the predictability TTL.
	SetPredictability(ctx context.Context, score *models.PredictabilityScore) error

	// InvalidatePredictability removes the cached score for a ticker.
	InvalidatePredictability(ctx context.Context, ticker string) error

	// GetBacktest retrieves a cached backtest result.
	//
	// Parameters:
	//   ticker: The simulated ticker.
	//   fingerprint: Stable hash of the strategy and run parameters.
	//
	// Returns:
	//   *models.BacktestResult: The cached result, nil on a miss.
	//   bool: True on a hit.
	GetBacktest(ctx context.Context, ticker, fingerprint string) (*models.BacktestResult, bool)

	// SetBacktest stores a backtest result with the backtest TTL.
	SetBacktest(ctx context.Context, ticker, fingerprint string, result *models.BacktestResult) error

	// InvalidateBacktests removes every cached backtest for a ticker.
	//
	// Returns:
	//   int: Number of entries removed.
	//   error: Error if the cache could not be scanned.
	InvalidateBacktests(ctx context.Context, ticker string) (int, error)

	// GetStats returns the current hit, miss and set counters.
	GetStats() ScoreCacheStats
}
