package lattice

// FeatureIter lazily concatenates a node's global features with the
// local features of every node on its root-to-self path. It is read-only
// and trivially restartable: Features(idx) recreates one cheaply whenever
// the same node's features are needed again.
type FeatureIter struct {
	lt   *Lattice
	node int

	globalDone bool
	pos        int
}

// Features returns a fresh iterator over the global features of nodeIdx
// followed by the local features of nodeIdx, its prev, its prev's prev,
// and so on back to the root.
func (lt *Lattice) Features(nodeIdx int) *FeatureIter {
	return &FeatureIter{lt: lt, node: nodeIdx}
}

// Next returns the next feature in the sequence, or ok=false once
// exhausted.
func (it *FeatureIter) Next() (Feature, bool) {
	if !it.globalDone {
		n := &it.lt.arena[it.node]
		if it.pos < len(n.GlobalFeatures) {
			f := n.GlobalFeatures[it.pos]
			it.pos++
			return f, true
		}
		it.globalDone = true
		it.pos = 0
	}

	for it.node != NoIndex {
		n := &it.lt.arena[it.node]
		if it.pos < len(n.LocalFeatures) {
			f := n.LocalFeatures[it.pos]
			it.pos++
			return f, true
		}
		it.node = n.Prev
		it.pos = 0
	}
	return Feature{}, false
}
