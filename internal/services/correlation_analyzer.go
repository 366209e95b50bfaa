package services

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/config"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

const (
	defaultMoveThresholdPct     = 0.5
	defaultLagWindowDays        = 5
	defaultFullConfidenceSample = 20
	defaultMarketCloseHour      = 16

	// An event whose first trading day is further away than this has no usable price reaction.
	maxReactionGapDays = 7
	consistencyWindow  = 5
	// Sentiment beyond this magnitude is treated as a directional call.
	sentimentDirectionThreshold = 0.3
)

// CorrelationAnalyzer aggregates the price reaction to each event category.
// Output depends only on its inputs: events are ordered by date and content
// hash before aggregation so caller ordering never changes the result.
type CorrelationAnalyzer struct {
	logger               *logrus.Logger
	moveThresholdPct     float64
	lagWindowDays        int
	fullConfidenceSample int
	marketCloseHour      int
	market               *time.Location
}

// NewCorrelationAnalyzer creates an analyzer. Unset settings fall back to the
// package defaults; config.Validate rejects them before they get here. An
// empty or unknown market timezone means UTC.
func NewCorrelationAnalyzer(cfg config.AnalysisConfig, logger *logrus.Logger) *CorrelationAnalyzer {
	ca := &CorrelationAnalyzer{
		logger:               logging.OrDiscard(logger),
		moveThresholdPct:     cfg.MoveThresholdPct,
		lagWindowDays:        cfg.LagWindowDays,
		fullConfidenceSample: cfg.FullConfidenceSample,
		marketCloseHour:      cfg.MarketCloseHour,
		market:               time.UTC,
	}
	if cfg.MarketTimezone != "" {
		loc, err := time.LoadLocation(cfg.MarketTimezone)
		if err != nil {
			ca.logger.WithFields(logrus.Fields{
				"market_timezone": cfg.MarketTimezone,
				"error":           err.Error(),
			}).Warn("Unknown market timezone, using UTC")
		} else {
			ca.market = loc
		}
	}
	if ca.moveThresholdPct <= 0 {
		ca.moveThresholdPct = defaultMoveThresholdPct
	}
	if ca.lagWindowDays <= 0 {
		ca.lagWindowDays = defaultLagWindowDays
	}
	if ca.fullConfidenceSample <= 0 {
		ca.fullConfidenceSample = defaultFullConfidenceSample
	}
	if ca.marketCloseHour <= 0 || ca.marketCloseHour > 24 {
		ca.marketCloseHour = defaultMarketCloseHour
	}
	return ca
}

// eventOutcome is the realized reaction to a single event.
type eventOutcome struct {
	movePct    float64
	direction  models.Direction
	daysToMove int
	sentiment  float64
}

// Analyze returns one record per category observed in events, ordered by
// category priority. Events for other tickers are ignored.
func (ca *CorrelationAnalyzer) Analyze(ticker string, events []models.Event, prices []models.PriceBar) []models.CorrelationRecord {
	bars, _ := usableBars(prices)

	ordered := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.Ticker == "" || e.Ticker == ticker {
			ordered = append(ordered, e)
		}
	}
	sortEvents(ordered)

	occurrences := make(map[models.EventCategory]int)
	outcomes := make(map[models.EventCategory][]eventOutcome)
	for _, e := range ordered {
		occurrences[e.PrimaryCategory]++
		if o, ok := ca.outcomeFor(e, bars); ok {
			outcomes[e.PrimaryCategory] = append(outcomes[e.PrimaryCategory], o)
		}
	}

	categories := make([]models.EventCategory, 0, len(occurrences))
	for c := range occurrences {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		ri, rj := categories[i].Rank(), categories[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return categories[i] < categories[j]
	})

	records := make([]models.CorrelationRecord, 0, len(categories))
	for _, c := range categories {
		records = append(records, ca.aggregate(ticker, c, occurrences[c], outcomes[c]))
	}

	ca.logger.WithFields(logrus.Fields{
		"ticker":     ticker,
		"events":     len(ordered),
		"price_bars": len(bars),
		"categories": len(records),
	}).Debug("Correlation analysis completed")

	return records
}

// outcomeFor locates the reaction bar for e and measures the cumulative move
// from the prior close over the lag window. The event's day and hour are read
// in the market timezone; events posted at or after the close react on the
// next trading day.
func (ca *CorrelationAnalyzer) outcomeFor(e models.Event, bars []models.PriceBar) (eventOutcome, bool) {
	local := e.EventDate.In(ca.market)
	day := civilDay(local)
	afterClose := local.Hour() >= ca.marketCloseHour

	r := sort.Search(len(bars), func(i int) bool {
		d := civilDay(bars[i].Date)
		if afterClose {
			return d > day
		}
		return d >= day
	})
	if r == 0 || r >= len(bars) {
		return eventOutcome{}, false
	}
	if calendarDaysBetween(local, bars[r].Date) > maxReactionGapDays {
		return eventOutcome{}, false
	}

	base := bars[r-1].Close.InexactFloat64()
	best, bestK := 0.0, 0
	for k := 0; k < ca.lagWindowDays && r+k < len(bars); k++ {
		move := (bars[r+k].Close.InexactFloat64()/base - 1) * 100
		if math.Abs(move) >= ca.moveThresholdPct {
			return eventOutcome{
				movePct:    move,
				direction:  directionOf(move),
				daysToMove: k,
				sentiment:  e.SentimentScore,
			}, true
		}
		if k == 0 || math.Abs(move) > math.Abs(best) {
			best, bestK = move, k
		}
	}

	return eventOutcome{
		movePct:    best,
		direction:  models.DirectionFlat,
		daysToMove: bestK,
		sentiment:  e.SentimentScore,
	}, true
}

// aggregate runs two passes: the first fixes the majority direction, the
// second scores each outcome against it.
func (ca *CorrelationAnalyzer) aggregate(ticker string, category models.EventCategory, occurrences int, outcomes []eventOutcome) models.CorrelationRecord {
	rec := models.CorrelationRecord{
		Ticker:            ticker,
		EventCategory:     category,
		Occurrences:       occurrences,
		TimingBucket:      models.TimingLagged,
		DominantDirection: models.DirectionFlat,
		SampleSize:        len(outcomes),
	}
	n := len(outcomes)
	rec.ConfidenceScore = sampleConfidence(n, ca.fullConfidenceSample)
	if n == 0 {
		return rec
	}

	var up, down int
	var sumMove, sumAbs, sumDays float64
	bucketCounts := make(map[models.TimingBucket]int, 3)
	for _, o := range outcomes {
		switch o.direction {
		case models.DirectionUp:
			up++
		case models.DirectionDown:
			down++
		}
		sumMove += o.movePct
		sumAbs += math.Abs(o.movePct)
		sumDays += float64(o.daysToMove)
		bucketCounts[models.TimingBucketForDays(o.daysToMove)]++
	}

	dominant := models.DirectionFlat
	switch {
	case up > down:
		dominant = models.DirectionUp
	case down > up:
		dominant = models.DirectionDown
	case up > 0 && sumMove > 0:
		dominant = models.DirectionUp
	case up > 0 && sumMove < 0:
		dominant = models.DirectionDown
	}

	wins := make([]float64, n)
	winCount := 0
	if dominant != models.DirectionFlat {
		for i, o := range outcomes {
			if o.direction == dominant {
				wins[i] = 1
				winCount++
			}
		}
	}

	rec.DominantDirection = dominant
	rec.WinRate = clamp(float64(winCount)/float64(n), 0, 1)
	rec.AvgMovePct = sumMove / float64(n)
	rec.AvgAbsMovePct = sumAbs / float64(n)
	rec.AvgDaysToMove = sumDays / float64(n)
	rec.TimingBucket = modalBucket(bucketCounts)
	rec.Consistency = rollingConsistency(wins)
	rec.SentimentAlignment = sentimentAlignment(outcomes)

	return rec
}

// sampleConfidence saturates towards 1 and reaches 0.95 at fullSample.
// It stays strictly increasing so larger samples always rank higher.
func sampleConfidence(n, fullSample int) float64 {
	if n <= 0 {
		return 0
	}
	return clamp(1-math.Exp(-3*float64(n)/float64(fullSample)), 0, 1)
}

// modalBucket picks the most frequent bucket; ties favor the faster reaction.
func modalBucket(counts map[models.TimingBucket]int) models.TimingBucket {
	best := models.TimingLagged
	bestCount := -1
	for _, b := range []models.TimingBucket{models.TimingSameDay, models.TimingNextDay, models.TimingLagged} {
		if counts[b] > bestCount {
			best, bestCount = b, counts[b]
		}
	}
	return best
}

// rollingConsistency is 1 minus the population standard deviation of the
// rolling win rate over a window of up to five outcomes.
func rollingConsistency(wins []float64) float64 {
	if len(wins) < 2 {
		return 0
	}
	w := consistencyWindow
	if len(wins) < w {
		w = len(wins)
	}

	rates := make([]float64, 0, len(wins)-w+1)
	for i := 0; i+w <= len(wins); i++ {
		sum := 0.0
		for _, v := range wins[i : i+w] {
			sum += v
		}
		rates = append(rates, sum/float64(w))
	}

	return clamp(1-populationStdDev(rates), 0, 1)
}

// sentimentAlignment is the share of opinionated events whose sentiment sign
// matched the realized direction.
func sentimentAlignment(outcomes []eventOutcome) float64 {
	var calls, hits int
	for _, o := range outcomes {
		var expected models.Direction
		switch {
		case o.sentiment > sentimentDirectionThreshold:
			expected = models.DirectionUp
		case o.sentiment < -sentimentDirectionThreshold:
			expected = models.DirectionDown
		default:
			continue
		}
		calls++
		if o.direction == expected {
			hits++
		}
	}
	if calls == 0 {
		return 0
	}
	return float64(hits) / float64(calls)
}

func directionOf(movePct float64) models.Direction {
	switch {
	case movePct > 0:
		return models.DirectionUp
	case movePct < 0:
		return models.DirectionDown
	default:
		return models.DirectionFlat
	}
}

// usableBars drops bars without a positive close and any bar that does not
// advance the calendar day. Missing open, high or low prices fall back to the
// close; filled counts those bars.
func usableBars(prices []models.PriceBar) (out []models.PriceBar, filled int) {
	out = make([]models.PriceBar, 0, len(prices))
	last := -1
	for _, b := range prices {
		if !b.Tradable() {
			continue
		}
		d := civilDay(b.Date)
		if d <= last {
			continue
		}
		b, partial := b.WithCloseFallback()
		if partial {
			filled++
		}
		out = append(out, b)
		last = d
	}
	return out, filled
}

// sortEvents orders events by date then content hash.
func sortEvents(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		return events[i].ContentHash < events[j].ContentHash
	})
}

// civilDay encodes the calendar date of t as yyyymmdd.
func civilDay(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func calendarDaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
