package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// MaxExtractedKeywords is the number of keywords extracted from article
// text when the source supplies none.
const MaxExtractedKeywords = 10

// minTokenLength filters out tokens too short to be meaningful keywords.
const minTokenLength = 3

// KeywordExtractor derives keywords from article text by token frequency.
type KeywordExtractor struct {
	stopWords map[string]bool
}

// NewKeywordExtractor creates an extractor with the built-in stop-word list.
func NewKeywordExtractor() *KeywordExtractor {
	stop := make(map[string]bool, len(stopWords))
	for _, word := range stopWords {
		stop[word] = true
	}
	return &KeywordExtractor{stopWords: stop}
}

// Extract tokenizes the text, removes stop words, lemmatizes, counts
// frequencies, and returns the top MaxExtractedKeywords tokens by
// descending count. Ties break by first occurrence.
func (e *KeywordExtractor) Extract(text string) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	position := 0
	for _, token := range tokenize(text) {
		if len(token) < minTokenLength || e.stopWords[token] || isNumeric(token) {
			continue
		}
		token = lemmatize(token)
		if len(token) < minTokenLength || e.stopWords[token] {
			continue
		}
		if _, seen := counts[token]; !seen {
			firstSeen[token] = position
		}
		counts[token]++
		position++
	}

	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return firstSeen[tokens[i]] < firstSeen[tokens[j]]
	})

	if len(tokens) > MaxExtractedKeywords {
		tokens = tokens[:MaxExtractedKeywords]
	}
	return tokens
}

// tokenize lower-cases the text and splits it on anything that is not a
// letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// isNumeric reports whether a token is all digits.
func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// lemmatize strips common English inflection suffixes. Deliberately
// lightweight: it only needs to collapse obvious variants like
// "reports"/"reported" before counting.
func lemmatize(token string) string {
	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "sses"):
		return token[:len(token)-2]
	case strings.HasSuffix(token, "ing") && len(token) > 5:
		return token[:len(token)-3]
	case strings.HasSuffix(token, "ed") && len(token) > 4:
		return token[:len(token)-2]
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && len(token) > 3:
		return token[:len(token)-1]
	}
	return token
}
