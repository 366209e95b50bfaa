package services

import (
	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

const (
	// SentimentNeutralBand is the half-width of the NEUTRAL label around zero.
	SentimentNeutralBand = 0.2

	headlineSentimentWeight = 0.6
	bodySentimentWeight     = 0.4
)

var positiveLexicon = []string{
	"gain", "gains", "surge", "surges", "profit", "profits", "strong", "bullish",
	"positive", "growth", "win", "wins", "excellent", "beat", "beats", "recovery",
	"upbeat", "outperform", "outperforms", "upgrade", "upgraded", "rally", "rallies",
	"soar", "soars", "jump", "jumps", "spike", "strength", "robust", "accelerate",
	"momentum", "opportunity", "success", "successful", "best", "better", "improve",
	"improved", "improvement", "boost", "buy", "optimistic", "optimism", "rebound",
	"expansion", "lead", "leader", "leading", "innovative", "innovation", "advanced",
	"exceed", "exceeded", "exceeds", "boom", "breakthrough", "record",
}

var negativeLexicon = []string{
	"loss", "losses", "drop", "drops", "decline", "declines", "weak", "bearish",
	"negative", "falling", "miss", "misses", "poor", "warning", "risk", "challenges",
	"challenge", "difficult", "downturn", "sell", "underperform", "downgrade",
	"downgraded", "fail", "fails", "failure", "slump", "plunge", "plunges", "crash",
	"collapse", "crumble", "worse", "worst", "struggle", "struggling", "concern",
	"concerns", "uncertainty", "bad", "terrible", "awful", "horrible", "dismal",
	"deficit", "lower", "decrease", "hurt", "threat", "threatened", "recession",
	"crisis", "fraud", "scandal", "bankruptcy", "bankrupt", "lawsuit",
}

var negationTokens = []string{
	"not", "no", "never", "neither", "nor", "cannot", "can't", "isn't", "wasn't",
	"aren't", "doesn't", "didn't", "won't", "wouldn't", "hasn't", "haven't",
}

type polarity int8

const (
	polarityNone polarity = iota
	polarityPositive
	polarityNegative
)

// SentimentScorer is a lexicon-based polarity scorer. A negation token within
// the window before a sentiment word flips that word's polarity.
type SentimentScorer struct {
	logger         *logrus.Logger
	negationWindow int
	lexicon        map[string]polarity
	negations      map[string]struct{}
}

// NewSentimentScorer creates a scorer over the built-in lexicons. A
// non-positive negation window disables negation handling.
func NewSentimentScorer(negationWindow int, logger *logrus.Logger) *SentimentScorer {
	s := &SentimentScorer{
		logger:         logging.OrDiscard(logger),
		negationWindow: negationWindow,
		lexicon:        make(map[string]polarity, len(positiveLexicon)+len(negativeLexicon)),
		negations:      make(map[string]struct{}, len(negationTokens)),
	}
	for _, w := range positiveLexicon {
		s.lexicon[w] = polarityPositive
	}
	for _, w := range negativeLexicon {
		s.lexicon[w] = polarityNegative
	}
	for _, w := range negationTokens {
		s.negations[w] = struct{}{}
	}
	return s
}

// Score returns (pos - neg) / (pos + neg) in [-1, 1], or 0 when the text has
// no sentiment words.
func (s *SentimentScorer) Score(text string) float64 {
	tokens := tokenize(text)

	var pos, neg int
	lastNegation := -1
	for i, tok := range tokens {
		if _, ok := s.negations[tok]; ok {
			lastNegation = i
			continue
		}
		p := s.lexicon[tok]
		if p == polarityNone {
			continue
		}
		if lastNegation >= 0 && i-lastNegation <= s.negationWindow {
			if p == polarityPositive {
				p = polarityNegative
			} else {
				p = polarityPositive
			}
		}
		if p == polarityPositive {
			pos++
		} else {
			neg++
		}
	}

	if pos+neg == 0 {
		return 0
	}
	score := clamp(float64(pos-neg)/float64(pos+neg), -1, 1)

	s.logger.WithFields(logrus.Fields{
		"positive": pos,
		"negative": neg,
		"score":    score,
	}).Trace("Sentiment scored")

	return score
}

// ScoreArticle weights the headline 0.6 and the body 0.4. An empty body
// yields the headline score alone.
func (s *SentimentScorer) ScoreArticle(headline, body string) float64 {
	h := s.Score(headline)
	if len(tokenize(body)) == 0 {
		return h
	}
	return clamp(headlineSentimentWeight*h+bodySentimentWeight*s.Score(body), -1, 1)
}

// Label buckets a score into POSITIVE, NEUTRAL or NEGATIVE.
func (s *SentimentScorer) Label(score float64) models.SentimentLabel {
	switch {
	case score > SentimentNeutralBand:
		return models.SentimentPositive
	case score < -SentimentNeutralBand:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// Confidence grows linearly from 0.3 at a neutral score to 1.0 at either extreme.
func (s *SentimentScorer) Confidence(score float64) float64 {
	if score < 0 {
		score = -score
	}
	return clamp(0.3+0.7*score, 0, 1)
}
