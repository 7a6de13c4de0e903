package dictionary

// Word is one dictionary entry: a code maps to a piece of text.
// Words are immutable once loaded and are shared by pointer across every
// Lattice that cites them, so nodes compare word identity by pointer.
type Word struct {
	Code string
	Text string
}

// Sentinel is the distinguished BOS/EOS anchor: a word with empty text used
// only to seed bigram features at the edges of a path. It is never emitted
// into output text and is compared by identity, exactly like a dictionary
// Word looked up from a shared Dictionary.
var Sentinel = &Word{Code: "", Text: ""}
