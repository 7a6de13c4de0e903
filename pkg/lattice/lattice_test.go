package lattice

import (
	"testing"

	"github.com/hanzo-ime/shurufa/pkg/dictionary"
)

func TestInitReusesBackingArray(t *testing.T) {
	var lt Lattice
	lt.Init(4, 8)
	firstCap := cap(lt.arena)
	if firstCap == 0 {
		t.Fatal("expected non-zero arena capacity after Init")
	}
	lt.Init(4, 8)
	if cap(lt.arena) != firstCap {
		t.Fatalf("Init grew the arena on a repeat call with identical params: %d -> %d", firstCap, cap(lt.arena))
	}
}

func TestInitPushesRootAsStepZero(t *testing.T) {
	var lt Lattice
	lt.Init(3, 4)
	if lt.NumSteps() != 1 {
		t.Fatalf("expected 1 finalized step (the root) after Init, got %d", lt.NumSteps())
	}
	root := lt.At(0)
	if root.Prev != NoIndex || root.PrevWord != NoIndex {
		t.Fatalf("root should have no predecessor, got Prev=%d PrevWord=%d", root.Prev, root.PrevWord)
	}
}

func TestTopkKeepsHighestScoringBeam(t *testing.T) {
	var lt Lattice
	lt.Init(1, 2)
	lt.BeginStep()

	scores := []float64{1, 5, 3}
	for _, s := range scores {
		n := lt.Emplace()
		n.Prev = 0
		n.PrevWord = NoIndex
		n.Score = s
		lt.Topk()
	}
	lt.EndStep()

	start, end := lt.StepBounds(-1)
	if end-start != 2 {
		t.Fatalf("expected beam of 2 survivors, got %d", end-start)
	}
	seen := map[float64]bool{}
	for i := start; i < end; i++ {
		seen[lt.At(i).Score] = true
	}
	if !seen[5] || !seen[3] {
		t.Fatalf("expected survivors {5,3}, got %v", seen)
	}
	if seen[1] {
		t.Fatal("lowest-scoring candidate should have been evicted")
	}
}

func TestTopkTieKeepsEarlierEmplaced(t *testing.T) {
	var lt Lattice
	lt.Init(1, 1)
	lt.BeginStep()

	n0 := lt.Emplace()
	n0.Score = 5
	lt.Topk()

	n1 := lt.Emplace()
	n1.Score = 5 // tie: strictly-greater eviction means the first survives
	// CodePos marks the challenger so the check below can tell them apart.
	n1.CodePos = 1
	lt.Topk()

	lt.EndStep()
	start, _ := lt.StepBounds(-1)
	if lt.At(start).CodePos != 0 {
		t.Fatalf("unexpected node in surviving slot")
	}
}

func TestForceAppendExtendsStepPastCap(t *testing.T) {
	var lt Lattice
	lt.Init(1, 1)
	lt.BeginStep()
	n := lt.Emplace()
	n.Score = 1
	lt.Topk()
	lt.EndStep()

	lt.BeginStep()
	n2 := lt.Emplace()
	n2.Score = 2
	lt.Topk()
	lt.EndStep()

	idx := lt.ForceAppend()
	lt.At(idx).Score = 99

	start, end := lt.StepBounds(-1)
	if end-start != 2 {
		t.Fatalf("expected force-appended step to hold 2 nodes, got %d", end-start)
	}
	if lt.At(end - 1).Score != 99 {
		t.Fatalf("force-appended node not present at end of step")
	}
}

func TestGetPathsSortsDescendingStably(t *testing.T) {
	var lt Lattice
	lt.Init(1, 3)
	lt.BeginStep()
	for _, s := range []float64{2, 2, 5} {
		n := lt.Emplace()
		n.Score = s
		lt.Topk()
	}
	lt.EndStep()

	paths := lt.GetPaths(0)
	if len(paths) != 3 {
		t.Fatalf("expected 3 paths, got %d", len(paths))
	}
	if paths[0].Score != 5 {
		t.Fatalf("expected highest score first, got %v", paths[0].Score)
	}
	if paths[1].NodeIdx > paths[2].NodeIdx {
		t.Fatal("tied scores should preserve original (lower-index-first) order")
	}
}

func TestWalkAndTextConcatenatesEmittedWords(t *testing.T) {
	var lt Lattice
	lt.Init(2, 4)
	root := lt.At(0)
	root.Word = dictionary.Sentinel

	lt.BeginStep()
	shift := lt.Emplace()
	shift.Prev = 0
	shift.PrevWord = NoIndex
	lt.Topk()
	lt.EndStep()

	lt.BeginStep()
	word := lt.Emplace()
	word.Prev = 1
	word.PrevWord = NoIndex
	word.Word = &dictionary.Word{Text: "hi"}
	lt.Topk()
	lt.EndStep()

	start, _ := lt.StepBounds(-1)
	walk := lt.Walk(start)
	if got := Text(walk); got != "hi" {
		t.Fatalf("expected concatenated text %q, got %q", "hi", got)
	}
}
