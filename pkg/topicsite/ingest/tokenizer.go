package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/topicsite/pkg/topicsite/stoplist"
)

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stops *stoplist.Manager
}

// NewTokenizer creates a new tokenizer backed by the given stoplist.
// A nil stoplist filters nothing.
func NewTokenizer(stops *stoplist.Manager) *Tokenizer {
	if stops == nil {
		stops = stoplist.NewManager(nil)
	}
	return &Tokenizer{stops: stops}
}

// Stoplist returns the stoplist consulted by the tokenizer.
func (t *Tokenizer) Stoplist() *stoplist.Manager {
	return t.stops
}

// Tokenize splits text into normalized tokens, removing stopwords.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// processToken applies cleaning and stopword filtering.
func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if utf8.RuneCountInString(word) <= 1 {
		return ""
	}

	// Mixed tokens like "gpt-4" or "python3" are kept.
	if isNumericOnly(word) {
		return ""
	}

	if t.stops.IsStop(word) {
		return ""
	}

	return word
}

// cleanToken strips leading/trailing hyphens and normalizes consecutive hyphens
func cleanToken(token string) string {
	token = strings.Trim(token, "-")

	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}

	return token
}

// isNumericOnly returns true if the token contains only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}
