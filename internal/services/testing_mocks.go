package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/pkg/interfaces"
)

// MockAnalysisStore implements interfaces.AnalysisStore for testing within the services package
type MockAnalysisStore struct {
	mock.Mock
}

func (m *MockAnalysisStore) ListActiveTickers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAnalysisStore) GetPriceBars(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	args := m.Called(ctx, ticker, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PriceBar), args.Error(1)
}

func (m *MockAnalysisStore) GetArticles(ctx context.Context, ticker string, from, to time.Time) ([]models.NewsArticle, error) {
	args := m.Called(ctx, ticker, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NewsArticle), args.Error(1)
}

func (m *MockAnalysisStore) GetEvents(ctx context.Context, ticker string, since time.Time) ([]models.Event, error) {
	args := m.Called(ctx, ticker, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockAnalysisStore) GetCorrelationRecords(ctx context.Context, ticker string) ([]models.CorrelationRecord, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CorrelationRecord), args.Error(1)
}

func (m *MockAnalysisStore) UpsertEvents(ctx context.Context, events []models.Event) error {
	return m.Called(ctx, events).Error(0)
}

func (m *MockAnalysisStore) UpsertCorrelationRecords(ctx context.Context, records []models.CorrelationRecord) error {
	return m.Called(ctx, records).Error(0)
}

func (m *MockAnalysisStore) SavePredictabilityScore(ctx context.Context, score *models.PredictabilityScore) error {
	return m.Called(ctx, score).Error(0)
}

func (m *MockAnalysisStore) SaveBacktestResult(ctx context.Context, result *models.BacktestResult) error {
	return m.Called(ctx, result).Error(0)
}

// MockScoreCache implements interfaces.ScoreCache for testing within the services package
type MockScoreCache struct {
	mock.Mock
}

func (m *MockScoreCache) GetPredictability(ctx context.Context, ticker string) (*models.PredictabilityScore, bool) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.PredictabilityScore), args.Bool(1)
}

func (m *MockScoreCache) SetPredictability(ctx context.Context, score *models.PredictabilityScore) error {
	return m.Called(ctx, score).Error(0)
}

func (m *MockScoreCache) InvalidatePredictability(ctx context.Context, ticker string) error {
	return m.Called(ctx, ticker).Error(0)
}

func (m *MockScoreCache) GetBacktest(ctx context.Context, ticker, fingerprint string) (*models.BacktestResult, bool) {
	args := m.Called(ctx, ticker, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*models.BacktestResult), args.Bool(1)
}

func (m *MockScoreCache) SetBacktest(ctx context.Context, ticker, fingerprint string, result *models.BacktestResult) error {
	return m.Called(ctx, ticker, fingerprint, result).Error(0)
}

func (m *MockScoreCache) InvalidateBacktests(ctx context.Context, ticker string) (int, error) {
	args := m.Called(ctx, ticker)
	return args.Int(0), args.Error(1)
}

func (m *MockScoreCache) GetStats() interfaces.ScoreCacheStats {
	return m.Called().Get(0).(interfaces.ScoreCacheStats)
}

var (
	_ interfaces.AnalysisStore = (*MockAnalysisStore)(nil)
	_ interfaces.ScoreCache    = (*MockScoreCache)(nil)
)
