package decoder

import (
	"github.com/charmbracelet/log"
	"github.com/hanzo-ime/shurufa/pkg/dictionary"
	"github.com/hanzo-ime/shurufa/pkg/lattice"
)

// sameWord compares two word references by identity, exactly as the
// decoder recognizes both ordinary dictionary words and the shared
// sentinel.
func sameWord(a, b *dictionary.Word) bool { return a == b }

// UpdateResult reports the outcome of one training-sample update.
type UpdateResult struct {
	Label        int
	Prob         float64
	EarlyStopped bool
}

// nodeDelta pairs a final-step node with the gradient to apply to its
// full feature chain.
type nodeDelta struct {
	nodeIdx int
	delta   float64
}

// gradSample is the parallel-phase output of one training example: a
// private Lattice (kept alive so its FeatureIters remain valid) plus the
// (node, delta) pairs still to be applied.
type gradSample struct {
	lt      *lattice.Lattice
	updates []nodeDelta
	result  UpdateResult
	ok      bool
}

// Update runs the full single-sample training step described by the
// early-update algorithm and applies the resulting gradient to d.Model
// immediately. Use BatchTrain for the parallel multi-sample form.
func (d *Decoder) Update(code, text string) (UpdateResult, bool) {
	g := d.computeSampleGradient(code, text)
	if !g.ok {
		return UpdateResult{}, false
	}
	for _, u := range g.updates {
		it := g.lt.Features(u.nodeIdx)
		d.Model.Update(it, u.delta)
	}
	return g.result, true
}

// computeSampleGradient runs decode-for-reference, early-update, and
// gradient computation for one (code, text) pair without mutating
// d.Model, so many samples can run this concurrently against a shared
// read-only model.
func (d *Decoder) computeSampleGradient(code, text string) gradSample {
	var refLat lattice.Lattice
	beamSize := d.BeamSize
	ok := d.Decode(&refLat, code, text, beamSize)
	if !ok {
		beamSize = d.BeamSize * 2
		refLat = lattice.Lattice{}
		ok = d.Decode(&refLat, code, text, beamSize)
		if !ok {
			log.Debugf("decoder: cannot decode reference for (%q, %q), dropping sample", code, text)
			return gradSample{}
		}
	}

	refPaths := refLat.GetPaths(0)
	refWalks := make([][]lattice.Node, len(refPaths))
	for i, p := range refPaths {
		refWalks[i] = refLat.Walk(p.NodeIdx)
	}

	lt := &lattice.Lattice{}
	_, label, earlyStopped := d.earlyUpdate(lt, code, refWalks, beamSize)

	start, end := lt.StepBounds(-1)
	n := end - start
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		scores[i] = lt.At(start+i).Score
	}
	probs := softmax(scores)

	updates := make([]nodeDelta, n)
	for i := 0; i < n; i++ {
		delta := -probs[i]
		if i == label {
			delta = 1 - probs[i]
		}
		updates[i] = nodeDelta{nodeIdx: start + i, delta: delta}
	}

	prob := 0.0
	if label >= 0 && label < n {
		prob = probs[label]
	}

	return gradSample{
		lt:      lt,
		updates: updates,
		ok:      true,
		result:  UpdateResult{Label: label, Prob: prob, EarlyStopped: earlyStopped},
	}
}

// earlyUpdate re-decodes code unconstrained while tracking every
// reference path in refWalks, stopping the instant none of them can be
// matched into the beam at the current step (force-emplacing the first
// still-live reference so training always has a labeled target). Returns
// the step at which it stopped, the rank within that step's beam of the
// reference used as the label, and whether a force-emplace actually
// occurred (as opposed to every reference surviving all the way through
// the EOS step on its own).
//
// A force-emplace can land on the very last step (the EOS step) just as
// easily as any earlier one, so "stopped before the final step" is not a
// safe proxy for "was forced" — both cases can report the same final
// step index. The two are tracked separately here rather than folded
// back into the step number.
func (d *Decoder) earlyUpdate(lt *lattice.Lattice, code string, refWalks [][]lattice.Node, beamSize int) (int, int, bool) {
	lt.Init(len(code), beamSize)
	d.beginDecode(lt)

	numRefs := len(refWalks)
	prevIndeces := make([]int, numRefs)
	for i := range prevIndeces {
		prevIndeces[i] = 0 // every reference starts at the root/BOS node
	}

	for pos := 1; pos <= len(code)+1; pos++ {
		if pos <= len(code) {
			d.advance(lt, code, "", pos)
		} else {
			d.endDecode(lt, code, "")
		}

		start, end := lt.StepBounds(-1)
		indeces := make([]int, numRefs)
		found := false
		for i := 0; i < numRefs; i++ {
			indeces[i] = lattice.NoIndex
			if prevIndeces[i] == lattice.NoIndex {
				continue
			}
			ref := refWalks[i][pos]
			for j := start; j < end; j++ {
				nj := lt.At(j)
				if nj.Prev == prevIndeces[i] && sameWord(nj.Word, ref.Word) {
					indeces[i] = j
					found = true
					break
				}
			}
		}

		if !found {
			i := 0
			for i < numRefs && prevIndeces[i] == lattice.NoIndex {
				i++
			}
			forced := d.forceEmplace(lt, refWalks[i][pos], prevIndeces[i], pos)
			indeces[i] = forced
			return pos, labelRank(lt, indeces), true
		}

		prevIndeces = indeces
	}
	return len(code) + 1, labelRank(lt, prevIndeces), false
}

// forceEmplace copies ref's emitted word and cursors into a new node
// appended past the nominal beam cap of the step just finalized,
// rewiring its predecessor to prevIdx and recomputing features/score
// fresh against that ancestor (never reusing ref's own, differently
// rooted, feature lists).
func (d *Decoder) forceEmplace(lt *lattice.Lattice, ref lattice.Node, prevIdx, pos int) int {
	idx := lt.ForceAppend()
	n := lt.At(idx)
	n.Prev = prevIdx
	n.CodePos = ref.CodePos
	n.TextPos = ref.TextPos
	n.Word = ref.Word
	n.PrevWord = prevWordOf(lt, prevIdx)
	d.buildFeatures(lt, n, pos)
	d.Model.ComputeScore(lt, n)
	return idx
}

// labelRank converts the smallest non-sentinel absolute arena index
// among indeces into its 0-based rank within the last finalized step.
func labelRank(lt *lattice.Lattice, indeces []int) int {
	start, _ := lt.StepBounds(-1)
	best := -1
	for _, idx := range indeces {
		if idx == lattice.NoIndex {
			continue
		}
		if best == -1 || idx < best {
			best = idx
		}
	}
	if best == -1 {
		return -1
	}
	return best - start
}
