package search

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {}, "how": {},
	"my": {}, "i": {}, "me": {}, "about": {},
}

// suffixes are stripped without replacement, so the remaining root is still
// a prefix of every inflection it came from and works as a substring pattern.
var suffixes = []string{
	"ations", "ation", "ments", "ment", "ings", "ing", "ies", "ers", "ed", "er", "es", "s",
}

const minRootLen = 3

// Tokenize lower-cases text, splits it on anything that is not a letter or a
// digit, and drops stop words and single characters. Each surviving word is
// reduced to its root.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) < 2 {
			continue
		}
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		terms = append(terms, root(word))
	}
	return terms
}

func root(word string) string {
	for _, suffix := range suffixes {
		if strings.HasSuffix(word, suffix) && len(word)-len(suffix) >= minRootLen {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}
