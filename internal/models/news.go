package models

import "time"

// EventCategory is the coarse class assigned to a news event.
type EventCategory string

const (
	CategoryEarnings  EventCategory = "earnings"
	CategoryPolicy    EventCategory = "policy"
	CategoryTechnical EventCategory = "technical"
	CategorySeasonal  EventCategory = "seasonal"
	CategorySector    EventCategory = "sector"
)

// CategoryPriority lists categories in tie-break order, highest priority first.
var CategoryPriority = []EventCategory{
	CategoryEarnings,
	CategoryPolicy,
	CategoryTechnical,
	CategorySeasonal,
	CategorySector,
}

// Rank returns the tie-break position of c; unknown categories sort last.
func (c EventCategory) Rank() int {
	for i, p := range CategoryPriority {
		if p == c {
			return i
		}
	}
	return len(CategoryPriority)
}

// Valid reports whether c is one of the known categories.
func (c EventCategory) Valid() bool {
	return c.Rank() < len(CategoryPriority)
}

// NewsArticle is a raw article supplied by the ingestion collaborator.
type NewsArticle struct {
	Ticker      string    `json:"ticker" db:"ticker"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	Headline    string    `json:"headline" db:"headline"`
	Body        string    `json:"body" db:"body"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	Source      string    `json:"source,omitempty" db:"source"`
}

// CategoryScore pairs a category with its keyword confidence.
type CategoryScore struct {
	Category   EventCategory `json:"category"`
	Confidence float64       `json:"confidence"`
}

// Classification is the tagged result of categorizing one article.
type Classification struct {
	Primary    EventCategory   `json:"primary"`
	Confidence float64         `json:"confidence"`
	Secondary  []CategoryScore `json:"secondary"`
}

// SecondaryCategories returns only the names of the secondary categories.
func (c Classification) SecondaryCategories() []EventCategory {
	out := make([]EventCategory, 0, len(c.Secondary))
	for _, s := range c.Secondary {
		out = append(out, s.Category)
	}
	return out
}

// Event is a categorized, sentiment-scored news item. Events are immutable
// once built; re-ingesting the source article recreates them.
type Event struct {
	Ticker              string          `json:"ticker" db:"ticker"`
	EventDate           time.Time       `json:"event_date" db:"event_date"`
	PrimaryCategory     EventCategory   `json:"primary_category" db:"primary_category"`
	SecondaryCategories []EventCategory `json:"secondary_categories" db:"secondary_categories"`
	CategoryConfidence  float64         `json:"category_confidence" db:"category_confidence"`
	SentimentScore      float64         `json:"sentiment_score" db:"sentiment_score"`
	ContentHash         string          `json:"content_hash" db:"content_hash"`
	Headline            string          `json:"headline,omitempty" db:"headline"`

	// Derived from SentimentScore when the event is built; not stored.
	SentimentLabel      SentimentLabel `json:"sentiment_label,omitempty" db:"-"`
	SentimentConfidence float64        `json:"sentiment_confidence,omitempty" db:"-"`
}

// SentimentLabel buckets a sentiment score around a neutral band.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
	SentimentNegative SentimentLabel = "NEGATIVE"
)
