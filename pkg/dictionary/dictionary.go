// Package dictionary provides the immutable code-to-word multimap the
// decoder searches against, plus the loaders that build one from text
// shards on disk.
package dictionary

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Config bounds what Load will accept into the table.
type Config struct {
	CodeLenLimit int
	TextLenLimit int
}

// DefaultConfig caps both code and text at 32 bytes so a bare Dictionary
// behaves sensibly without an explicit Config. These are not the CLI's
// defaults, which come from pkg/config.
func DefaultConfig() Config {
	return Config{CodeLenLimit: 32, TextLenLimit: 32}
}

// Dictionary is an exact-match, code-to-[]Word multimap. It is built once
// and never mutated afterward: every Lattice built against it may safely
// cache pointers to the Words it returns for the Dictionary's lifetime.
type Dictionary struct {
	cfg        Config
	trie       *patricia.Trie
	entries    int
	maxCodeLen int
	maxTextLen int

	// mu guards Insert against concurrent shard loaders; Codes also takes
	// it. Find reads the trie without it.
	mu sync.Mutex
}

// New creates an empty Dictionary bounded by cfg.
func New(cfg Config) *Dictionary {
	return &Dictionary{
		cfg:  cfg,
		trie: patricia.NewTrie(),
	}
}

// isValidCode reports whether code is composed solely of lowercase Latin
// letters, the only alphabet the decoder's shift/reduce cursor understands.
func isValidCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Insert adds one (code, text) entry, dropping and logging it if it
// violates the configured length caps or the code charset. Returns true
// if the entry was accepted.
func (d *Dictionary) Insert(code, text string) bool {
	if !isValidCode(code) {
		log.Warnf("dictionary: dropping entry with invalid code %q", code)
		return false
	}
	if d.cfg.CodeLenLimit > 0 && len(code) > d.cfg.CodeLenLimit {
		log.Warnf("dictionary: dropping entry, code %q exceeds code_len_limit %d", code, d.cfg.CodeLenLimit)
		return false
	}
	if d.cfg.TextLenLimit > 0 && len(text) > d.cfg.TextLenLimit {
		log.Warnf("dictionary: dropping entry, text for code %q exceeds text_len_limit %d", code, d.cfg.TextLenLimit)
		return false
	}

	w := &Word{Code: code, Text: text}
	key := patricia.Prefix(code)

	d.mu.Lock()
	if item := d.trie.Get(key); item != nil {
		words := item.([]*Word)
		d.trie.Set(key, append(words, w))
	} else {
		d.trie.Insert(key, []*Word{w})
	}
	d.entries++
	if len(code) > d.maxCodeLen {
		d.maxCodeLen = len(code)
	}
	if len(text) > d.maxTextLen {
		d.maxTextLen = len(text)
	}
	d.mu.Unlock()
	return true
}

// Find returns every Word registered under the exact code.
func (d *Dictionary) Find(code string) []*Word {
	item := d.trie.Get(patricia.Prefix(code))
	if item == nil {
		return nil
	}
	return item.([]*Word)
}

// MaxCodeLen is the length of the longest code accepted so far. The
// decoder uses it to refuse shifts that could never be closed by a
// reduction.
func (d *Dictionary) MaxCodeLen() int { return d.maxCodeLen }

// MaxTextLen is the length of the longest text accepted so far.
func (d *Dictionary) MaxTextLen() int { return d.maxTextLen }

// Len is the number of accepted (code, text) entries.
func (d *Dictionary) Len() int { return d.entries }

// Codes returns every distinct code registered in the dictionary, in no
// particular order. It is intended for building a one-off fuzzy-match
// vocabulary (see pkg/correct), not for hot-path lookups.
func (d *Dictionary) Codes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	codes := make([]string, 0, d.entries)
	d.trie.Visit(func(prefix patricia.Prefix, _ patricia.Item) error {
		codes = append(codes, string(prefix))
		return nil
	})
	return codes
}

// Load parses whitespace-separated "code text" lines from r, one entry
// per line, matching the field-by-field parse of the reference training
// corpus format. Malformed lines are skipped and logged.
func (d *Dictionary) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			if len(fields) == 1 {
				log.Warnf("dictionary: line %d missing text field, skipping", lineNo)
			}
			continue
		}
		d.Insert(fields[0], fields[1])
	}
	return scanner.Err()
}
