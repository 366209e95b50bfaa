package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// tokenize case-folds text and splits it into word tokens in one pass.
// Letters, digits and inner apostrophes belong to a word; everything else
// separates words, so "year-end" yields ["year", "end"].
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	folded := cases.Fold().String(text)

	tokens := make([]string, 0, len(folded)/5+1)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.Trim(b.String(), "'")
		if tok != "" {
			tokens = append(tokens, tok)
		}
		b.Reset()
	}

	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			if b.Len() > 0 {
				b.WriteByte('\'')
			}
		default:
			flush()
		}
	}
	flush()

	return tokens
}
