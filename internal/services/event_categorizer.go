package services

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ElectricHyena/stock-predictor-sub000/internal/logging"
	"github.com/ElectricHyena/stock-predictor-sub000/internal/models"
)

// DefaultCategoryKeywords is the built-in keyword table. Multi-word and
// hyphenated keywords match as consecutive tokens.
var DefaultCategoryKeywords = map[models.EventCategory][]string{
	models.CategoryEarnings: {
		"earnings", "q1", "q2", "q3", "q4", "quarterly", "eps", "earnings per share",
		"revenue", "profit", "net income", "guidance", "forecast", "beat", "miss",
		"results", "financial results", "earnings release", "earnings call",
		"annual report", "fiscal year", "year-end results", "quarterly results",
		"ebitda", "operating income", "margin", "margins",
	},
	models.CategoryPolicy: {
		"regulatory", "regulation", "policy", "government", "sec", "tax",
		"subsidy", "tariff", "trade", "law", "legislation", "legal", "compliance",
		"doj", "antitrust", "ban", "restriction", "rule", "rules",
		"approval", "license", "permit", "agency", "federal", "administration",
		"parliament", "congress", "senate", "bill", "fine", "penalty",
	},
	models.CategoryTechnical: {
		"ipo", "split", "dividend", "buyback", "listing", "delisting", "spin-off",
		"merger", "acquisition", "takeover", "deal", "consolidation", "tender offer",
		"stock split", "reverse split", "share buyback", "share repurchase",
		"rights issue", "bonus issue", "dilution", "warrant", "convertible",
		"acquires", "buyout", "joint venture", "payout", "special dividend", "ex-dividend",
	},
	models.CategorySeasonal: {
		"year-end", "holiday", "festival", "quarter-end", "seasonal",
		"fiscal quarter", "christmas", "thanksgiving", "diwali", "new year",
		"summer", "winter", "spring", "autumn", "quarterly close", "back-to-school",
	},
	models.CategorySector: {
		"industry", "sector", "competitor", "rival", "commodity", "oil", "gold",
		"market trend", "industry trend", "peer", "competition", "competitive",
		"technology", "retail", "healthcare", "banking", "energy", "automotive",
		"pharmaceutical", "consumer", "industrial", "infrastructure",
	},
}

type keywordRef struct {
	category int
	keyword  int
	tokens   []string
}

// EventCategorizer classifies news into one primary category plus secondaries
// using precompiled keyword tables. It is safe for concurrent use.
type EventCategorizer struct {
	logger             *logrus.Logger
	secondaryThreshold float64
	categories         []models.EventCategory
	keywordCounts      []int
	index              map[string][]keywordRef
}

// NewEventCategorizer creates a categorizer over DefaultCategoryKeywords.
func NewEventCategorizer(logger *logrus.Logger, secondaryThreshold float64) *EventCategorizer {
	ec, err := NewEventCategorizerWithKeywords(DefaultCategoryKeywords, secondaryThreshold, logger)
	if err != nil {
		panic(fmt.Sprintf("default keyword table is invalid: %v", err))
	}
	return ec
}

// NewEventCategorizerWithKeywords compiles a custom keyword table.
func NewEventCategorizerWithKeywords(
	table map[models.EventCategory][]string,
	secondaryThreshold float64,
	logger *logrus.Logger,
) (*EventCategorizer, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("keyword table is empty")
	}
	for category := range table {
		if !category.Valid() {
			return nil, fmt.Errorf("unknown event category %q", category)
		}
	}

	ec := &EventCategorizer{
		logger:             logging.OrDiscard(logger),
		secondaryThreshold: secondaryThreshold,
		index:              make(map[string][]keywordRef),
	}

	// Iterate in priority order so compiled state never depends on map order.
	for _, category := range models.CategoryPriority {
		keywords, ok := table[category]
		if !ok {
			continue
		}
		catIdx := len(ec.categories)
		seen := make(map[string]bool, len(keywords))
		count := 0
		for _, kw := range keywords {
			tokens := tokenize(kw)
			if len(tokens) == 0 {
				return nil, fmt.Errorf("category %s has an empty keyword", category)
			}
			key := fmt.Sprint(tokens)
			if seen[key] {
				continue
			}
			seen[key] = true
			ec.index[tokens[0]] = append(ec.index[tokens[0]], keywordRef{
				category: catIdx,
				keyword:  count,
				tokens:   tokens,
			})
			count++
		}
		ec.categories = append(ec.categories, category)
		ec.keywordCounts = append(ec.keywordCounts, count)
	}

	ec.logger.WithFields(logrus.Fields{
		"categories": len(ec.categories),
		"keywords":   ec.totalKeywords(),
	}).Debug("Event categorizer compiled")

	return ec, nil
}

// Categories returns the configured categories in tie-break order.
func (ec *EventCategorizer) Categories() []models.EventCategory {
	out := make([]models.EventCategory, len(ec.categories))
	copy(out, ec.categories)
	return out
}

// Categorize classifies a news article from its headline and body.
func (ec *EventCategorizer) Categorize(article models.NewsArticle) models.Classification {
	return ec.CategorizeText(article.Headline, article.Body)
}

// CategorizeBatch classifies each article in order.
func (ec *EventCategorizer) CategorizeBatch(articles []models.NewsArticle) []models.Classification {
	out := make([]models.Classification, len(articles))
	for i, a := range articles {
		out[i] = ec.Categorize(a)
	}
	return out
}

// CategorizeText scores every category as distinct keywords matched divided by
// the size of its keyword set. The primary is the highest score with ties going
// to the earlier category in models.CategoryPriority. Text with no matches
// defaults to sector with zero confidence.
func (ec *EventCategorizer) CategorizeText(headline, body string) models.Classification {
	tokens := tokenize(headline + " " + body)

	matched := make([][]bool, len(ec.categories))
	for i := range tokens {
		for _, ref := range ec.index[tokens[i]] {
			if !hasTokensAt(tokens, i, ref.tokens) {
				continue
			}
			if matched[ref.category] == nil {
				matched[ref.category] = make([]bool, ec.keywordCounts[ref.category])
			}
			matched[ref.category][ref.keyword] = true
		}
	}

	scores := make([]float64, len(ec.categories))
	for c, hits := range matched {
		n := 0
		for _, hit := range hits {
			if hit {
				n++
			}
		}
		if ec.keywordCounts[c] > 0 {
			scores[c] = clamp(float64(n)/float64(ec.keywordCounts[c]), 0, 1)
		}
	}

	primary := -1
	for c, s := range scores {
		if s > 0 && (primary < 0 || s > scores[primary]) {
			primary = c
		}
	}
	if primary < 0 {
		return models.Classification{
			Primary:    models.CategorySector,
			Confidence: 0,
			Secondary:  []models.CategoryScore{},
		}
	}

	secondary := make([]models.CategoryScore, 0, len(scores)-1)
	for c, s := range scores {
		if c != primary && s > ec.secondaryThreshold {
			secondary = append(secondary, models.CategoryScore{Category: ec.categories[c], Confidence: s})
		}
	}
	sort.SliceStable(secondary, func(i, j int) bool {
		if secondary[i].Confidence != secondary[j].Confidence {
			return secondary[i].Confidence > secondary[j].Confidence
		}
		return secondary[i].Category.Rank() < secondary[j].Category.Rank()
	})

	return models.Classification{
		Primary:    ec.categories[primary],
		Confidence: scores[primary],
		Secondary:  secondary,
	}
}

func (ec *EventCategorizer) totalKeywords() int {
	total := 0
	for _, n := range ec.keywordCounts {
		total += n
	}
	return total
}

func hasTokensAt(tokens []string, at int, want []string) bool {
	if at+len(want) > len(tokens) {
		return false
	}
	for i, w := range want {
		if tokens[at+i] != w {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
