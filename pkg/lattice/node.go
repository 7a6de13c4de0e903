// Package lattice implements the beam-search search space the decoder
// builds one code position at a time: a preallocated arena of Nodes
// organized into per-step beams, with heap-based top-k pruning.
package lattice

import "github.com/hanzo-ime/shurufa/pkg/dictionary"

// NoIndex marks the absence of a back-pointer (the root's prev/prevWord,
// or a reference walk that has run off the front of the path).
const NoIndex = -1

// Feature is one (key, value) contribution to a node's linear score.
type Feature struct {
	Key   string
	Value float64
}

// Node is a single lattice vertex. Prev and PrevWord are indices into the
// owning Lattice's arena rather than pointers, so back-pointer identity
// survives the arena's in-place beam pruning without any reference
// counting or per-node heap allocation.
type Node struct {
	Prev     int
	PrevWord int

	CodePos int
	TextPos int

	// Word is nil for pure-shift nodes. It is the BOS/EOS sentinel for
	// the two bracket nodes and the decoder's root once begin_decode has
	// run.
	Word *dictionary.Word

	LocalFeatures  []Feature
	GlobalFeatures []Feature

	LocalScore float64
	Score      float64
}
