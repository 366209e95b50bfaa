package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/pkg/interfaces"
)

// BacktestJob is a backtest request against stored price history.
// Zero From and To default to the configured lookback ending now.
type BacktestJob struct {
	Ticker         string          `json:"ticker"`
	Strategy       models.Strategy `json:"strategy"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	CommissionPct  *float64        `json:"commission_pct,omitempty"`
	SlippagePct    *float64        `json:"slippage_pct,omitempty"`
}

// BacktestService loads history for a job, runs the engine and stores the
// result. Identical jobs are served from the cache until it expires.
type BacktestService struct {
	engine       *BacktestEngine
	analysis     *AnalysisService
	store        interfaces.AnalysisStore
	cache        interfaces.ScoreCache
	logger       *logrus.Logger
	lookbackDays int
	now          func() time.Time
}

// NewBacktestService creates the service. analysis supplies predictability
// scores for strategies that reference them; cache may be nil.
func NewBacktestService(
	engine *BacktestEngine,
	analysis *AnalysisService,
	store interfaces.AnalysisStore,
	cache interfaces.ScoreCache,
	logger *logrus.Logger,
) *BacktestService {
	lookback := defaultHistoryDays
	if analysis != nil {
		lookback = analysis.cfg.HistoryDays
	}
	return &BacktestService{
		engine:       engine,
		analysis:     analysis,
		store:        store,
		cache:        cache,
		logger:       logging.OrDiscard(logger),
		lookbackDays: lookback,
		now:          time.Now,
	}
}

// Run executes the job. Strategy validation errors surface before any data
// is loaded.
func (s *BacktestService) Run(ctx context.Context, job BacktestJob) (*models.BacktestResult, error) {
	if s.store == nil {
		return nil, errors.New("analysis store is not configured")
	}
	job.Ticker = strings.ToUpper(strings.TrimSpace(job.Ticker))
	if job.Ticker == "" {
		return nil, errors.New("ticker is required")
	}
	if err := s.engine.Validate(&job.Strategy); err != nil {
		return nil, fmt.Errorf("invalid strategy %q: %w", job.Strategy.Name, err)
	}

	if job.To.IsZero() {
		job.To = s.now().UTC()
	}
	if job.From.IsZero() {
		job.From = job.To.AddDate(0, 0, -s.lookbackDays)
	}
	if job.From.After(job.To) {
		return nil, fmt.Errorf("backtest range is empty: %s is after %s",
			job.From.Format(time.DateOnly), job.To.Format(time.DateOnly))
	}

	fingerprint, err := StrategyFingerprint(job)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cached, ok := s.cache.GetBacktest(ctx, job.Ticker, fingerprint); ok {
			s.logger.WithFields(logrus.Fields{
				"ticker":      job.Ticker,
				"fingerprint": fingerprint,
				"run_id":      cached.RunID,
			}).Debug("Serving cached backtest")
			return cached, nil
		}
	}

	prices, err := s.store.GetPriceBars(ctx, job.Ticker, job.From, job.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices for %s: %w", job.Ticker, err)
	}

	var score *models.PredictabilityScore
	if job.Strategy.UsesPredictability() && s.analysis != nil {
		score, err = s.analysis.ScoreFor(ctx, job.Ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s for predictability conditions: %w", job.Ticker, err)
		}
	}

	result, err := s.engine.Run(ctx, BacktestRequest{
		Ticker:         job.Ticker,
		Strategy:       job.Strategy,
		Prices:         prices,
		Score:          score,
		InitialCapital: job.InitialCapital,
		CommissionPct:  job.CommissionPct,
		SlippagePct:    job.SlippagePct,
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveBacktestResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store backtest %s: %w", result.RunID, err)
	}
	if s.cache != nil {
		if err := s.cache.SetBacktest(ctx, job.Ticker, fingerprint, result); err != nil {
			s.logger.WithFields(logrus.Fields{
				"ticker": job.Ticker,
				"run_id": result.RunID,
				"error":  err.Error(),
			}).Warn("Failed to cache backtest result")
		}
	}

	return result, nil
}

// StrategyFingerprint hashes everything that determines a job's outcome.
// The ticker is part of the cache key and is left out.
func StrategyFingerprint(job BacktestJob) (string, error) {
	payload := struct {
		Strategy       models.Strategy `json:"strategy"`
		From           string          `json:"from"`
		To             string          `json:"to"`
		InitialCapital string          `json:"initial_capital"`
		CommissionPct  *float64        `json:"commission_pct"`
		SlippagePct    *float64        `json:"slippage_pct"`
	}{
		Strategy:       job.Strategy,
		From:           job.From.UTC().Format(time.DateOnly),
		To:             job.To.UTC().Format(time.DateOnly),
		InitialCapital: job.InitialCapital.String(),
		CommissionPct:  job.CommissionPct,
		SlippagePct:    job.SlippagePct,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint strategy: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}
