package correct

import (
	"testing"

	"github.com/hanzo-ime/shurufa/pkg/dictionary"
)

func newDict(codes ...string) *dictionary.Dictionary {
	d := dictionary.New(dictionary.DefaultConfig())
	for _, c := range codes {
		d.Insert(c, "x")
	}
	return d
}

func TestSuggestCorrectionFindsSubsequenceMatches(t *testing.T) {
	m := NewMatcher(newDict("nihao", "nide", "wode"))
	matches := m.SuggestCorrection("nhao", 5)
	if len(matches) == 0 {
		t.Fatal("expected at least one fuzzy match for 'nhao'")
	}
	if matches[0].Code != "nihao" {
		t.Fatalf("expected 'nihao' to be the best match, got %q", matches[0].Code)
	}
}

func TestSuggestCorrectionExcludesNonSubsequences(t *testing.T) {
	m := NewMatcher(newDict("nihao"))
	matches := m.SuggestCorrection("zzz", 5)
	if len(matches) != 0 {
		t.Fatalf("expected no matches for a query with no subsequence hit, got %v", matches)
	}
}

func TestSuggestCorrectionRespectsLimit(t *testing.T) {
	m := NewMatcher(newDict("na", "nab", "nabc", "nabcd"))
	matches := m.SuggestCorrection("na", 2)
	if len(matches) != 2 {
		t.Fatalf("expected exactly 2 matches with limit=2, got %d", len(matches))
	}
}

func TestSuggestCorrectionEmptyQuery(t *testing.T) {
	m := NewMatcher(newDict("nihao"))
	if matches := m.SuggestCorrection("", 5); len(matches) != 0 {
		t.Fatalf("expected no matches for empty query, got %v", matches)
	}
}
