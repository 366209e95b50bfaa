package models

// Direction is the sign of a realized price move.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionFlat Direction = "FLAT"
)

// TimingBucket classifies how quickly price reacts to an event category.
type TimingBucket string

const (
	TimingSameDay TimingBucket = "same_day"
	TimingNextDay TimingBucket = "next_day"
	TimingLagged  TimingBucket = "lagged"
)

// TimingBucketForDays maps elapsed trading days to a bucket.
func TimingBucketForDays(days int) TimingBucket {
	switch {
	case days <= 0:
		return TimingSameDay
	case days == 1:
		return TimingNextDay
	default:
		return TimingLagged
	}
}

// CorrelationRecord aggregates the historical price reaction to one event
// category for one ticker. It is a pure function of the event and price history.
type CorrelationRecord struct {
	Ticker             string        `json:"ticker" db:"ticker"`
	EventCategory      EventCategory `json:"event_category" db:"event_category"`
	Occurrences        int           `json:"occurrences" db:"occurrences"`
	AvgMovePct         float64       `json:"avg_move_pct" db:"avg_move_pct"`
	WinRate            float64       `json:"win_rate" db:"win_rate"`
	TimingBucket       TimingBucket  `json:"timing_bucket" db:"timing_bucket"`
	ConfidenceScore    float64       `json:"confidence_score" db:"confidence_score"`
	SampleSize         int           `json:"sample_size" db:"sample_size"`
	DominantDirection  Direction     `json:"dominant_direction" db:"dominant_direction"`
	AvgAbsMovePct      float64       `json:"avg_abs_move_pct" db:"avg_abs_move_pct"`
	AvgDaysToMove      float64       `json:"avg_days_to_move" db:"avg_days_to_move"`
	Consistency        float64       `json:"consistency" db:"consistency"`
	SentimentAlignment float64       `json:"sentiment_alignment" db:"sentiment_alignment"`
}
