package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
	"github.com/ElectricHyena/stock-predictor-sub000/pkg/interfaces"
)

const (
	defaultHistoryDays = 730
	defaultConcurrency = 4
)

// TickerAnalysis is the output of one pipeline pass over a ticker.
type TickerAnalysis struct {
	Ticker  string                     `json:"ticker"`
	Events  []models.Event             `json:"events"`
	Records []models.CorrelationRecord `json:"records"`
	Score   models.PredictabilityScore `json:"score"`
}

// UniverseReport summarizes a multi-ticker recompute pass. Results are
// ordered by ticker; Failed maps tickers to the error that stopped them.
type UniverseReport struct {
	Results []*TickerAnalysis `json:"results"`
	Failed  map[string]error  `json:"-"`
}

// AnalysisService wires the categorizer, sentiment scorer, correlation
// analyzer and predictability scorer into the per-ticker pipeline and
// handles persistence and caching around it.
type AnalysisService struct {
	cfg         config.AnalysisConfig
	categorizer *EventCategorizer
	sentiment   *SentimentScorer
	correlator  *CorrelationAnalyzer
	scorer      *PredictabilityScorer
	store       interfaces.AnalysisStore
	cache       interfaces.ScoreCache
	logger      *logrus.Logger
	now         func() time.Time
}

// NewAnalysisService creates the pipeline. cache may be nil.
func NewAnalysisService(
	cfg config.AnalysisConfig,
	store interfaces.AnalysisStore,
	cache interfaces.ScoreCache,
	logger *logrus.Logger,
) *AnalysisService {
	logger = logging.OrDiscard(logger)
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = defaultHistoryDays
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RecentEventDays <= 0 {
		cfg.RecentEventDays = defaultRecentEventDays
	}
	return &AnalysisService{
		cfg:         cfg,
		categorizer: NewEventCategorizer(logger, cfg.SecondaryThreshold),
		sentiment:   NewSentimentScorer(cfg.NegationWindow, logger),
		correlator:  NewCorrelationAnalyzer(cfg, logger),
		scorer:      NewPredictabilityScorer(cfg, logger),
		store:       store,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

// BuildEvents categorizes and sentiment-scores articles. Articles are
// deduplicated by content hash, keeping the earliest publication; a missing
// hash is derived from the normalized headline and body. Events come back
// ordered by date then content hash.
func (s *AnalysisService) BuildEvents(ticker string, articles []models.NewsArticle) []models.Event {
	type keyed struct {
		article models.NewsArticle
		hash    string
	}

	items := make([]keyed, 0, len(articles))
	for _, a := range articles {
		if a.Ticker != "" && !strings.EqualFold(a.Ticker, ticker) {
			continue
		}
		hash := a.ContentHash
		if hash == "" {
			hash = ContentHash(a.Headline, a.Body)
		}
		items = append(items, keyed{article: a, hash: hash})
	}
	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].article.PublishedAt, items[j].article.PublishedAt
		if !pi.Equal(pj) {
			return pi.Before(pj)
		}
		return items[i].hash < items[j].hash
	})

	seen := make(map[string]struct{}, len(items))
	events := make([]models.Event, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.hash]; dup {
			continue
		}
		seen[it.hash] = struct{}{}

		class := s.categorizer.Categorize(it.article)
		sentiment := s.sentiment.ScoreArticle(it.article.Headline, it.article.Body)
		events = append(events, models.Event{
			Ticker:              ticker,
			EventDate:           it.article.PublishedAt.UTC(),
			PrimaryCategory:     class.Primary,
			SecondaryCategories: class.SecondaryCategories(),
			CategoryConfidence:  class.Confidence,
			SentimentScore:      sentiment,
			SentimentLabel:      s.sentiment.Label(sentiment),
			SentimentConfidence: s.sentiment.Confidence(sentiment),
			ContentHash:         it.hash,
			Headline:            it.article.Headline,
		})
	}

	if dropped := len(items) - len(events); dropped > 0 {
		s.logger.WithFields(logrus.Fields{
			"ticker":     ticker,
			"duplicates": dropped,
		}).Debug("Dropped duplicate articles")
	}

	return events
}

// ContentHash returns the hex sha256 of the normalized headline and body.
func ContentHash(headline, body string) string {
	normalized := strings.Join(tokenize(headline), " ") + "\n" + strings.Join(tokenize(body), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// AnalyzeTicker runs the pure pipeline over in-memory inputs.
func (s *AnalysisService) AnalyzeTicker(
	ticker string,
	articles []models.NewsArticle,
	prices []models.PriceBar,
	asOf time.Time,
) *TickerAnalysis {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	events := s.BuildEvents(ticker, articles)
	records := s.correlator.Analyze(ticker, events, prices)
	score := s.scorer.ScoreAt(ticker, records, events, asOf)

	return &TickerAnalysis{
		Ticker:  ticker,
		Events:  events,
		Records: records,
		Score:   score,
	}
}

// RefreshTicker loads a ticker's history, recomputes its events, records and
// score, persists them and refreshes the cached score.
func (s *AnalysisService) RefreshTicker(ctx context.Context, ticker string) (*TickerAnalysis, error) {
	if s.store == nil {
		return nil, errors.New("analysis store is not configured")
	}
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	asOf := s.now().UTC()
	from := asOf.AddDate(0, 0, -s.cfg.HistoryDays)

	prices, err := s.store.GetPriceBars(ctx, ticker, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices for %s: %w", ticker, err)
	}
	articles, err := s.store.GetArticles(ctx, ticker, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles for %s: %w", ticker, err)
	}

	analysis := s.AnalyzeTicker(ticker, articles, prices, asOf)

	if err := s.store.UpsertEvents(ctx, analysis.Events); err != nil {
		return nil, fmt.Errorf("failed to store events for %s: %w", ticker, err)
	}
	if err := s.store.UpsertCorrelationRecords(ctx, analysis.Records); err != nil {
		return nil, fmt.Errorf("failed to store correlation records for %s: %w", ticker, err)
	}
	if err := s.store.SavePredictabilityScore(ctx, &analysis.Score); err != nil {
		return nil, fmt.Errorf("failed to store predictability score for %s: %w", ticker, err)
	}
	s.cacheScore(ctx, &analysis.Score)
	s.invalidateBacktests(ctx, ticker)

	logging.WithTicker(s.logger, ticker).WithFields(logrus.Fields{
		"articles":       len(articles),
		"price_bars":     len(prices),
		"events":         len(analysis.Events),
		"records":        len(analysis.Records),
		"overall_score":  analysis.Score.OverallScore,
		"recommendation": analysis.Score.Recommendation,
	}).Info("Ticker analysis refreshed")

	return analysis, nil
}

// AnalyzeUniverse refreshes every ticker with bounded concurrency. When
// tickers is empty the configured list is used, then the store's active
// tickers. A failing ticker does not stop the others; the returned error
// joins all per-ticker failures.
func (s *AnalysisService) AnalyzeUniverse(ctx context.Context, tickers []string) (*UniverseReport, error) {
	tickers, err := s.resolveTickers(ctx, tickers)
	if err != nil {
		return nil, err
	}

	report := &UniverseReport{Failed: make(map[string]error)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				report.Failed[ticker] = err
				mu.Unlock()
				return nil
			}
			analysis, err := s.RefreshTicker(ctx, ticker)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[ticker] = err
				s.logger.WithFields(logrus.Fields{
					"ticker": ticker,
					"error":  err.Error(),
				}).Warn("Ticker analysis failed")
				return nil
			}
			report.Results = append(report.Results, analysis)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Ticker < report.Results[j].Ticker
	})

	s.logger.WithFields(logrus.Fields{
		"tickers":   len(tickers),
		"succeeded": len(report.Results),
		"failed":    len(report.Failed),
	}).Info("Universe analysis completed")

	if len(report.Failed) == 0 {
		return report, nil
	}
	failed := make([]string, 0, len(report.Failed))
	for t := range report.Failed {
		failed = append(failed, t)
	}
	sort.Strings(failed)
	errs := make([]error, 0, len(failed))
	for _, t := range failed {
		errs = append(errs, fmt.Errorf("%s: %w", t, report.Failed[t]))
	}
	return report, errors.Join(errs...)
}

// ScoreFor returns the cached score for a ticker, computing it from the
// stored correlation records and recent events on a miss.
func (s *AnalysisService) ScoreFor(ctx context.Context, ticker string) (*models.PredictabilityScore, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if s.cache != nil {
		if score, ok := s.cache.GetPredictability(ctx, ticker); ok {
			return score, nil
		}
	}
	if s.store == nil {
		return nil, errors.New("analysis store is not configured")
	}

	asOf := s.now().UTC()
	records, err := s.store.GetCorrelationRecords(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to load correlation records for %s: %w", ticker, err)
	}
	events, err := s.store.GetEvents(ctx, ticker, asOf.AddDate(0, 0, -s.cfg.RecentEventDays))
	if err != nil {
		return nil, fmt.Errorf("failed to load events for %s: %w", ticker, err)
	}

	score := s.scorer.ScoreAt(ticker, records, events, asOf)
	s.cacheScore(ctx, &score)
	return &score, nil
}

func (s *AnalysisService) cacheScore(ctx context.Context, score *models.PredictabilityScore) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPredictability(ctx, score); err != nil {
		s.logger.WithFields(logrus.Fields{
			"ticker": score.Ticker,
			"error":  err.Error(),
		}).Warn("Failed to cache predictability score")
	}
}

// invalidateBacktests drops cached backtests that ran against older history.
func (s *AnalysisService) invalidateBacktests(ctx context.Context, ticker string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.InvalidateBacktests(ctx, ticker); err != nil {
		s.logger.WithFields(logrus.Fields{
			"ticker": ticker,
			"error":  err.Error(),
		}).Warn("Failed to invalidate cached backtests")
	}
}

func (s *AnalysisService) resolveTickers(ctx context.Context, tickers []string) ([]string, error) {
	if len(tickers) == 0 {
		tickers = s.cfg.Tickers
	}
	if len(tickers) == 0 && s.store != nil {
		active, err := s.store.ListActiveTickers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active tickers: %w", err)
		}
		tickers = active
	}

	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
