package models

import "time"

// Recommendation is the trading verdict attached to a predictability score.
type Recommendation string

const (
	RecommendationTrade Recommendation = "TRADE_THIS"
	RecommendationMaybe Recommendation = "MAYBE"
	RecommendationAvoid Recommendation = "AVOID"
)

// SubScores holds the four 0-100 components of a predictability score.
type SubScores struct {
	Information float64 `json:"information"`
	Pattern     float64 `json:"pattern"`
	Timing      float64 `json:"timing"`
	Direction   float64 `json:"direction"`
}

// PredictabilityScore is derived from correlation records and event recency.
// It has no identity beyond (Ticker, ComputedAt).
type PredictabilityScore struct {
	Ticker               string         `json:"ticker"`
	OverallScore         int            `json:"overall_score"`
	SubScores            SubScores      `json:"sub_scores"`
	Confidence           float64        `json:"confidence"`
	Recommendation       Recommendation `json:"recommendation"`
	ContributingCategory EventCategory  `json:"contributing_category,omitempty"`
	PredictedDirection   Direction      `json:"predicted_direction"`
	ExpectedMovePct      float64        `json:"expected_move_pct"`
	SampleSize           int            `json:"sample_size"`
	ComputedAt           time.Time      `json:"computed_at"`
}
