package dictionary

import (
	"strings"
	"testing"
)

func TestInsertRejectsInvalidCodeCharset(t *testing.T) {
	d := New(DefaultConfig())
	if d.Insert("abc123", "x") {
		t.Fatal("expected digits in a code to be rejected")
	}
	if d.Insert("", "x") {
		t.Fatal("expected empty code to be rejected")
	}
	if d.Insert("ABC", "x") {
		t.Fatal("expected uppercase code to be rejected")
	}
	if d.Len() != 0 {
		t.Fatalf("expected no entries accepted, got %d", d.Len())
	}
}

func TestInsertEnforcesLengthCaps(t *testing.T) {
	d := New(Config{CodeLenLimit: 3, TextLenLimit: 2})
	if d.Insert("abcd", "x") {
		t.Fatal("expected over-long code to be dropped")
	}
	if d.Insert("ab", "xyz") {
		t.Fatal("expected over-long text to be dropped")
	}
	if !d.Insert("ab", "xy") {
		t.Fatal("expected entry within both caps to be accepted")
	}
	if d.Len() != 1 {
		t.Fatalf("expected exactly 1 accepted entry, got %d", d.Len())
	}
}

func TestFindReturnsAllWordsForACode(t *testing.T) {
	d := New(DefaultConfig())
	d.Insert("ni", "you")
	d.Insert("ni", "her")

	words := d.Find("ni")
	if len(words) != 2 {
		t.Fatalf("expected 2 words under code 'ni', got %d", len(words))
	}
	texts := map[string]bool{words[0].Text: true, words[1].Text: true}
	if !texts["you"] || !texts["her"] {
		t.Fatalf("expected both 'you' and 'her', got %v", texts)
	}
}

func TestFindUnknownCodeReturnsNil(t *testing.T) {
	d := New(DefaultConfig())
	if got := d.Find("zzz"); got != nil {
		t.Fatalf("expected nil for unknown code, got %v", got)
	}
}

func TestLoadParsesWhitespaceSeparatedLines(t *testing.T) {
	d := New(DefaultConfig())
	input := "ni you\nhao good\nmalformed_line_only_one_field\nma  what\n"
	if err := d.Load(strings.NewReader(input)); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("expected 3 accepted entries, got %d", d.Len())
	}
	if got := d.Find("hao"); len(got) != 1 || got[0].Text != "good" {
		t.Fatalf("unexpected entry for 'hao': %v", got)
	}
}

func TestMaxCodeAndTextLenTrackLongestAccepted(t *testing.T) {
	d := New(DefaultConfig())
	d.Insert("a", "x")
	d.Insert("abc", "xy")
	if d.MaxCodeLen() != 3 {
		t.Fatalf("expected max code len 3, got %d", d.MaxCodeLen())
	}
	if d.MaxTextLen() != 2 {
		t.Fatalf("expected max text len 2, got %d", d.MaxTextLen())
	}
}

func TestCodesListsEveryDistinctCode(t *testing.T) {
	d := New(DefaultConfig())
	d.Insert("ni", "you")
	d.Insert("ni", "her")
	d.Insert("hao", "good")

	codes := d.Codes()
	seen := map[string]bool{}
	for _, c := range codes {
		seen[c] = true
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 distinct codes, got %d (%v)", len(seen), codes)
	}
	if !seen["ni"] || !seen["hao"] {
		t.Fatalf("expected codes 'ni' and 'hao', got %v", codes)
	}
}
