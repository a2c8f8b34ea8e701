// Package search turns the free-text search form input into a query plan
// that the article store can evaluate.
package search

import (
	"slices"
	"strings"
)

type Mode int

const (
	ModeAND Mode = iota
	ModeOR
)

func (m Mode) String() string {
	if m == ModeOR {
		return "or"
	}
	return "and"
}

// Plan is a parsed query. An article matches when it contains all Terms
// (ModeAND) or any of them (ModeOR), and none of Exclude.
type Plan struct {
	Terms   []string
	Exclude []string
	Mode    Mode
	Raw     string
}

// Parse reads query as whitespace-separated words. The operators AND, OR and
// NOT are case-insensitive; NOT and a leading '-' exclude the next term. The
// last AND/OR wins for the whole query.
func Parse(query string) *Plan {
	plan := &Plan{
		Terms:   make([]string, 0),
		Exclude: make([]string, 0),
		Mode:    ModeAND,
		Raw:     query,
	}
	excludeNext := false
	for _, word := range strings.Fields(query) {
		switch strings.ToUpper(word) {
		case "AND":
			plan.Mode = ModeAND
			continue
		case "OR":
			plan.Mode = ModeOR
			continue
		case "NOT":
			excludeNext = true
			continue
		}
		exclude := excludeNext
		excludeNext = false
		if rest, ok := strings.CutPrefix(word, "-"); ok {
			exclude = true
			word = rest
		}
		for _, term := range Tokenize(word) {
			if exclude {
				plan.Exclude = appendUnique(plan.Exclude, term)
			} else {
				plan.Terms = appendUnique(plan.Terms, term)
			}
		}
	}
	return plan
}

func appendUnique(terms []string, term string) []string {
	if slices.Contains(terms, term) {
		return terms
	}
	return append(terms, term)
}

// Empty reports whether the plan has nothing to match on. Exclusions alone
// do not make a query.
func (p *Plan) Empty() bool {
	return len(p.Terms) == 0
}

// Key is a normalized cache key: term order and the raw spelling do not
// matter.
func (p *Plan) Key() string {
	terms := slices.Sorted(slices.Values(p.Terms))
	exclude := slices.Sorted(slices.Values(p.Exclude))
	mode := p.Mode
	if len(terms) < 2 {
		mode = ModeAND
	}
	return mode.String() + ":" + strings.Join(terms, ",") + ":" + strings.Join(exclude, ",")
}
