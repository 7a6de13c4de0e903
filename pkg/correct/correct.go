// Package correct provides a typo-tolerant fallback lookup over a
// Dictionary's known code strings, for use when a typed code has no exact
// decoding. It is a subsequence fuzzy matcher in the VSCode Quick-Open
// style: every character of the query must appear in the candidate code,
// in order, and the score rewards matches that stay contiguous, land on
// a word boundary, or hit the very first character.
package correct

import (
	"sort"

	"github.com/hanzo-ime/shurufa/internal/utils"
	"github.com/hanzo-ime/shurufa/pkg/dictionary"
)

const (
	firstCharMatchBonus  = 8
	adjacentMatchBonus   = 5
	separatorMatchBonus  = 4
	camelCaseMatchBonus  = 3
	unmatchedCharPenalty = 1
)

// Match is one corrected code candidate, ranked by descending Score.
type Match struct {
	Code  string
	Score int
}

// Matcher performs fuzzy code lookup against a fixed vocabulary of known
// codes, drawn once from a Dictionary so repeated corrections don't need
// to re-walk its trie.
type Matcher struct {
	codes []string
}

// NewMatcher builds a Matcher over every code currently stored in dict.
func NewMatcher(dict *dictionary.Dictionary) *Matcher {
	return &Matcher{codes: dict.Codes()}
}

// SuggestCorrection returns up to limit candidate codes that fuzzy-match
// query, ranked best first. It returns an empty slice, never nil, if
// nothing matches.
func (m *Matcher) SuggestCorrection(query string, limit int) []Match {
	if query == "" {
		return []Match{}
	}
	matches := make([]Match, 0, limit)
	for _, code := range m.codes {
		if score, ok := runFuzzyMatch(query, code); ok {
			matches = append(matches, Match{Code: code, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// runFuzzyMatch scores candidate against query, returning ok=false if
// query is not a subsequence of candidate.
func runFuzzyMatch(query, candidate string) (int, bool) {
	q := []rune(query)
	c := []rune(candidate)
	if len(q) == 0 || len(q) > len(c) {
		return 0, false
	}

	score := 0
	qi := 0
	lastMatch := -1
	for ci := 0; ci < len(c) && qi < len(q); ci++ {
		if !utils.EqualFold(c[ci], q[qi]) {
			continue
		}
		switch {
		case ci == 0:
			score += firstCharMatchBonus
		case lastMatch == ci-1:
			score += adjacentMatchBonus
		case ci > 0 && utils.IsSeparator(c[ci-1]):
			score += separatorMatchBonus
		case ci > 0 && isCamelBoundary(c[ci-1], c[ci]):
			score += camelCaseMatchBonus
		default:
			score -= unmatchedCharPenalty
		}
		lastMatch = ci
		qi++
	}
	if qi != len(q) {
		return 0, false
	}
	score -= len(c) - len(q)
	return score, true
}

func isCamelBoundary(prev, cur rune) bool {
	return isLower(prev) && isUpper(cur)
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
