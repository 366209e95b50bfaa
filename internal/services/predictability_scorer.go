package services

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

// Sub-score weights of the overall predictability score.
const (
	InformationWeight = 0.30
	PatternWeight     = 0.25
	TimingWeight      = 0.25
	DirectionWeight   = 0.20
)

const (
	tradeScoreThreshold      = 75
	tradeConfidenceThreshold = 0.7
	avoidScoreThreshold      = 50

	defaultRecentEventDays = 30
	// Recent events needed for full information volume credit.
	informationEventTarget = 10
)

var timingScores = map[models.TimingBucket]float64{
	models.TimingSameDay: 100,
	models.TimingNextDay: 70,
	models.TimingLagged:  40,
}

// PredictabilityScorer turns aggregated correlation records and recent event
// flow into a 0-100 score. It does simple arithmetic over the records and
// never rescans price history.
type PredictabilityScorer struct {
	logger          *logrus.Logger
	recentEventDays int
	now             func() time.Time
}

// NewPredictabilityScorer creates a scorer using the analysis recency window.
func NewPredictabilityScorer(cfg config.AnalysisConfig, logger *logrus.Logger) *PredictabilityScorer {
	days := cfg.RecentEventDays
	if days <= 0 {
		days = defaultRecentEventDays
	}
	return &PredictabilityScorer{
		logger:          logging.OrDiscard(logger),
		recentEventDays: days,
		now:             time.Now,
	}
}

// Score computes the predictability score as of the current time.
func (ps *PredictabilityScorer) Score(ticker string, records []models.CorrelationRecord, recentEvents []models.Event) models.PredictabilityScore {
	return ps.ScoreAt(ticker, records, recentEvents, ps.now())
}

// ScoreAt computes the predictability score as of asOf. The contributing
// record is the one for the category of the latest event, falling back to the
// record with the largest sample.
func (ps *PredictabilityScorer) ScoreAt(
	ticker string,
	records []models.CorrelationRecord,
	recentEvents []models.Event,
	asOf time.Time,
) models.PredictabilityScore {
	result := models.PredictabilityScore{
		Ticker:             ticker,
		PredictedDirection: models.DirectionFlat,
		ComputedAt:         asOf.UTC(),
	}

	result.SubScores.Information = ps.informationScore(recentEvents, asOf)

	if rec, ok := contributingRecord(records, recentEvents); ok {
		result.ContributingCategory = rec.EventCategory
		result.Confidence = clamp(rec.ConfidenceScore, 0, 1)
		result.PredictedDirection = rec.DominantDirection
		result.ExpectedMovePct = rec.AvgMovePct
		result.SampleSize = rec.SampleSize

		winRate := clamp(rec.WinRate, 0, 1)
		result.SubScores.Pattern = clamp(winRate*100*result.Confidence, 0, 100)
		result.SubScores.Timing = timingScores[rec.TimingBucket]
		result.SubScores.Direction = clamp((winRate-0.5)*200, 0, 100)
	}

	weighted := InformationWeight*result.SubScores.Information +
		PatternWeight*result.SubScores.Pattern +
		TimingWeight*result.SubScores.Timing +
		DirectionWeight*result.SubScores.Direction
	result.OverallScore = int(math.Round(clamp(weighted, 0, 100)))
	result.Recommendation = recommend(result.OverallScore, result.Confidence)

	ps.logger.WithFields(logrus.Fields{
		"ticker":         ticker,
		"overall_score":  result.OverallScore,
		"confidence":     result.Confidence,
		"recommendation": result.Recommendation,
		"category":       result.ContributingCategory,
	}).Debug("Predictability scored")

	return result
}

// informationScore gives up to 60 points for event volume inside the recency
// window and up to 40 for how fresh the latest event is.
func (ps *PredictabilityScorer) informationScore(events []models.Event, asOf time.Time) float64 {
	window := float64(ps.recentEventDays)
	count := 0
	freshest := math.Inf(1)
	for _, e := range events {
		age := asOf.Sub(e.EventDate).Hours() / 24
		if age < 0 {
			age = 0
		}
		if age > window {
			continue
		}
		count++
		if age < freshest {
			freshest = age
		}
	}
	if count == 0 {
		return 0
	}

	volume := 60 * math.Min(1, float64(count)/informationEventTarget)
	recency := 40 * math.Max(0, 1-freshest/window)
	return clamp(volume+recency, 0, 100)
}

func contributingRecord(records []models.CorrelationRecord, events []models.Event) (models.CorrelationRecord, bool) {
	if len(records) == 0 {
		return models.CorrelationRecord{}, false
	}

	if len(events) > 0 {
		ordered := make([]models.Event, len(events))
		copy(ordered, events)
		sortEvents(ordered)
		latest := ordered[len(ordered)-1].PrimaryCategory
		for _, r := range records {
			if r.EventCategory == latest && r.SampleSize > 0 {
				return r, true
			}
		}
	}

	best := records[0]
	for _, r := range records[1:] {
		if r.SampleSize > best.SampleSize ||
			(r.SampleSize == best.SampleSize && r.EventCategory.Rank() < best.EventCategory.Rank()) {
			best = r
		}
	}
	return best, true
}

func recommend(overall int, confidence float64) models.Recommendation {
	switch {
	case overall >= tradeScoreThreshold && confidence >= tradeConfidenceThreshold:
		return models.RecommendationTrade
	case overall < avoidScoreThreshold:
		return models.RecommendationAvoid
	default:
		return models.RecommendationMaybe
	}
}
