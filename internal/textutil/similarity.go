package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	exactScore     = 1.0
	substringScore = 0.9
	minTokenLength = 3
)

// TitleSimilarity scores candidate against query in [0,1]. The first matching
// rule wins: case-insensitive equality scores 1.0, containment either way
// scores 0.9, otherwise the score is the number of query tokens contained in
// (or containing) a candidate token divided by the larger token count.
// Tokens shorter than three characters are ignored.
func TitleSimilarity(query, candidate string) float64 {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	c := fold.String(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return exactScore
	}
	if strings.Contains(q, c) || strings.Contains(c, q) {
		return substringScore
	}

	qTokens := significantTokens(q)
	cTokens := significantTokens(c)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0
	}
	matches := 0
	for _, qt := range qTokens {
		for _, ct := range cTokens {
			if strings.Contains(ct, qt) || strings.Contains(qt, ct) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(max(len(qTokens), len(cTokens)))
}

func significantTokens(s string) []string {
	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
