package lattice

import (
	"container/heap"
	"sort"
)

// stepHeap is a min-heap, by Score, over logical slot positions (0-based
// within the step currently under construction). It backs Lattice.Topk's
// push-then-pop pruning.
type stepHeap struct {
	lt    *Lattice
	slots []int
}

func (h *stepHeap) Len() int { return len(h.slots) }
func (h *stepHeap) Less(i, j int) bool {
	return h.lt.arena[h.lt.stepStart+h.slots[i]].Score < h.lt.arena[h.lt.stepStart+h.slots[j]].Score
}
func (h *stepHeap) Swap(i, j int) { h.slots[i], h.slots[j] = h.slots[j], h.slots[i] }
func (h *stepHeap) Push(x any)    { h.slots = append(h.slots, x.(int)) }
func (h *stepHeap) Pop() any {
	n := len(h.slots)
	x := h.slots[n-1]
	h.slots = h.slots[:n-1]
	return x
}

// Lattice is the arena of Nodes built by one decode. It is reusable
// across decodes: Init recycles the backing array when it is already
// large enough, so a hot decode loop performs no allocation at all.
type Lattice struct {
	arena    []Node
	limits   []int // limits[i] = arena offset marking the end of finalized step i-1 / start of step i
	beamSize int

	stepStart int // arena offset where the step under construction begins
	stepCount int // number of permanently-reserved (non-temp) slots filled so far in that step
	heap      stepHeap
}

// Init resets the Lattice for a fresh decode of a code string of length
// codeLen with the given beam width, reusing the arena's backing array
// when possible, and pushes the root node as step 0.
func (lt *Lattice) Init(codeLen, beamSize int) {
	capacity := (codeLen+1)*beamSize + 3 // +1 slack over the spec's (n+1)*b+2 for the rare force-emplace
	if cap(lt.arena) < capacity {
		lt.arena = make([]Node, 0, capacity)
	} else {
		lt.arena = lt.arena[:0]
	}
	lt.beamSize = beamSize
	lt.limits = lt.limits[:0]
	lt.limits = append(lt.limits, 0)

	lt.arena = append(lt.arena, Node{Prev: NoIndex, PrevWord: NoIndex})
	lt.limits = append(lt.limits, len(lt.arena))

	lt.heap.lt = lt
	lt.heap.slots = lt.heap.slots[:0]
}

// At returns a stable pointer to the node at absolute arena index idx.
// Valid for any index belonging to a step that has already been
// finalized by EndStep, or for the node most recently returned by
// Emplace within the step under construction.
func (lt *Lattice) At(idx int) *Node { return &lt.arena[idx] }

// BeginStep opens a new step for construction, immediately after the
// previously finalized step.
func (lt *Lattice) BeginStep() {
	lt.stepStart = lt.limits[len(lt.limits)-1]
	lt.stepCount = 0
	lt.heap.slots = lt.heap.slots[:0]
}

// Emplace allocates a fresh node in the step under construction: a
// permanent beam slot while the beam has not yet reached beamSize, or the
// single temporary slot beyond it once it has. Callers must follow every
// Emplace with exactly one Topk call before emplacing again.
func (lt *Lattice) Emplace() *Node {
	if lt.stepCount < lt.beamSize {
		lt.arena = append(lt.arena, Node{})
		idx := lt.stepStart + lt.stepCount
		lt.stepCount++
		return &lt.arena[idx]
	}

	tempIdx := lt.stepStart + lt.beamSize
	if tempIdx >= len(lt.arena) {
		lt.arena = append(lt.arena, Node{})
	}
	return &lt.arena[tempIdx]
}

// Topk restores the step's top-beamSize invariant after the most recent
// Emplace. While the beam is still filling, it is a no-op. The instant
// the beam reaches beamSize it is heapified; every emplace after that
// lands in the temporary slot and is kept only if it strictly beats the
// current heap minimum, in which case it overwrites that minimum's slot
// in place so the temporary slot is free for the next Emplace.
func (lt *Lattice) Topk() {
	if lt.stepCount < lt.beamSize {
		return
	}
	if len(lt.heap.slots) < lt.beamSize {
		lt.heap.slots = lt.heap.slots[:0]
		for i := 0; i < lt.beamSize; i++ {
			lt.heap.slots = append(lt.heap.slots, i)
		}
		heap.Init(&lt.heap)
		return
	}

	tempIdx := lt.stepStart + lt.beamSize
	if tempIdx >= len(lt.arena) {
		return
	}
	minSlot := lt.heap.slots[0]
	if lt.arena[tempIdx].Score > lt.arena[lt.stepStart+minSlot].Score {
		lt.arena[lt.stepStart+minSlot] = lt.arena[tempIdx]
		heap.Fix(&lt.heap, 0)
	}
	// Else the temp candidate is discarded; the next Emplace overwrites it.
}

// EndStep finalizes the step under construction: the temporary slot, if
// allocated, is released (it was already either discarded or compacted
// into the beam by Topk), and the step's boundary is recorded.
func (lt *Lattice) EndStep() {
	tempIdx := lt.stepStart + lt.beamSize
	if tempIdx < len(lt.arena) {
		lt.arena = lt.arena[:tempIdx]
	}
	lt.limits = append(lt.limits, lt.stepStart+lt.stepCount)
}

// ForceAppend appends one node past the nominal beam cap of the most
// recently finalized step (call it after EndStep), for the rare
// early-update force-emplace branch, and moves that step's recorded end
// past the new node. It participates in every subsequent read of this
// step (softmax, gradient) exactly like a normal beam member.
func (lt *Lattice) ForceAppend() int {
	lt.arena = append(lt.arena, Node{})
	idx := len(lt.arena) - 1
	lt.limits[len(lt.limits)-1] = idx + 1
	return idx
}

// StepBounds returns the [start, end) arena range of a finalized step.
// stepIdx counts from 0 (the root); a negative stepIdx counts back from
// the most recently finalized step (-1 is the last one).
func (lt *Lattice) StepBounds(stepIdx int) (int, int) {
	n := len(lt.limits) - 1 // number of finalized steps
	if stepIdx < 0 {
		stepIdx = n + stepIdx
	}
	start := 0
	if stepIdx > 0 {
		start = lt.limits[stepIdx]
	}
	end := lt.limits[stepIdx+1]
	return start, end
}

// StepLen is the number of nodes in a finalized step, per the same
// indexing convention as StepBounds.
func (lt *Lattice) StepLen(stepIdx int) int {
	start, end := lt.StepBounds(stepIdx)
	return end - start
}

// NumSteps is the count of finalized steps, including the root.
func (lt *Lattice) NumSteps() int { return len(lt.limits) - 1 }

// Cap reports the backing arena's current capacity, for memory-discipline
// regression tests that assert a reused Lattice settles to a fixed
// allocation rather than growing without bound.
func (lt *Lattice) Cap() int { return cap(lt.arena) }

// Path identifies one ranked candidate by the arena index of its
// terminal (rear) node.
type Path struct {
	NodeIdx int
	Score   float64
}

// GetPaths ranks the final step's nodes by score descending and returns
// up to num of them (0 means "all").
func (lt *Lattice) GetPaths(num int) []Path {
	start, end := lt.StepBounds(-1)
	n := end - start
	paths := make([]Path, n)
	for i := 0; i < n; i++ {
		paths[i] = Path{NodeIdx: start + i, Score: lt.arena[start+i].Score}
	}
	// Stable so ties keep the earlier-emplaced (lower-index) node first.
	sort.SliceStable(paths, func(i, j int) bool { return paths[i].Score > paths[j].Score })
	if num > 0 && num < len(paths) {
		paths = paths[:num]
	}
	return paths
}

// Walk materializes the root-to-leaf sequence of node values ending at
// nodeIdx. The result is decoupled from the arena, so it stays valid
// across a subsequent Init call.
func (lt *Lattice) Walk(nodeIdx int) []Node {
	var rev []Node
	for idx := nodeIdx; idx != NoIndex; {
		n := lt.arena[idx]
		rev = append(rev, n)
		idx = n.Prev
	}
	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}
	return rev
}

// Text concatenates the emitted words of a materialized path. Sentinel
// and shift nodes contribute nothing, since their text is empty.
func Text(path []Node) string {
	var b []byte
	for _, n := range path {
		if n.Word != nil {
			b = append(b, n.Word.Text...)
		}
	}
	return string(b)
}
