package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/hanzo-ime/shurufa/pkg/dictionary"
	"github.com/hanzo-ime/shurufa/pkg/lattice"
)

func buildChain(t *testing.T) *lattice.Lattice {
	t.Helper()
	var lt lattice.Lattice
	lt.Init(2, 4)
	root := lt.At(0)
	root.Word = dictionary.Sentinel

	lt.BeginStep()
	n1 := lt.Emplace()
	n1.Prev = 0
	n1.PrevWord = 0
	n1.Word = &dictionary.Word{Text: "a"}
	n1.LocalFeatures = []lattice.Feature{{Key: "unigram:a", Value: 1}, {Key: "bigram:_a", Value: 1}}
	n1.GlobalFeatures = []lattice.Feature{{Key: "code_len:1", Value: 1}}
	lt.Topk()
	lt.EndStep()

	lt.BeginStep()
	n2 := lt.Emplace()
	n2.Prev = 1
	n2.PrevWord = 1
	n2.Word = &dictionary.Word{Text: "b"}
	n2.LocalFeatures = []lattice.Feature{{Key: "unigram:b", Value: 1}, {Key: "bigram:a_b", Value: 1}}
	n2.GlobalFeatures = []lattice.Feature{{Key: "code_len:1", Value: 1}}
	lt.Topk()
	lt.EndStep()

	return &lt
}

func TestComputeScoreMatchesFullWalkScore(t *testing.T) {
	lt := buildChain(t)
	m := New(0.1)
	m.Weights["unigram:a"] = 0.5
	m.Weights["bigram:_a"] = 0.25
	m.Weights["unigram:b"] = -0.3
	m.Weights["bigram:a_b"] = 0.9
	m.Weights["code_len:1"] = 0.1

	n1 := lt.At(1)
	m.ComputeScore(lt, n1)
	n2 := lt.At(2)
	m.ComputeScore(lt, n2)

	full := m.Score(lt, 2)
	if full != n2.Score {
		t.Fatalf("full re-walk score %v does not match incremental score %v", full, n2.Score)
	}
}

func TestUpdateAppliesLearningRateAndDelta(t *testing.T) {
	lt := buildChain(t)
	m := New(0.5)

	it := lt.Features(1)
	m.Update(it, 2.0)

	if got := m.Weights["unigram:a"]; got != 1.0 {
		t.Fatalf("expected unigram:a weight 1.0 (1*2*0.5), got %v", got)
	}
	if got := m.Weights["bigram:_a"]; got != 1.0 {
		t.Fatalf("expected bigram:_a weight 1.0, got %v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := New(0.01)
	m.Weights["unigram:a"] = 1.5
	m.Weights["bigram:a_b"] = -2.25

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := New(0.01)
	if err := loaded.Load(&buf); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Weights) != 2 {
		t.Fatalf("expected 2 weights after round trip, got %d", len(loaded.Weights))
	}
	if loaded.Weights["unigram:a"] != 1.5 || loaded.Weights["bigram:a_b"] != -2.25 {
		t.Fatalf("round-tripped weights do not match: %v", loaded.Weights)
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	m := New(0.01)
	err := m.Load(bytes.NewBufferString("no_tab_here\nunigram:a\t1.5\n"))
	if err != nil {
		t.Fatalf("expected a line with no tab separator to be skipped, got error: %v", err)
	}
	if len(m.Weights) != 1 || m.Weights["unigram:a"] != 1.5 {
		t.Fatalf("expected only the well-formed line to be loaded, got %v", m.Weights)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	m := New(0.05)
	m.Weights["unigram:a"] = 2.5
	m.Weights["bigram:a_b"] = -1.0

	var buf bytes.Buffer
	if err := SaveCheckpoint(&buf, m, 3); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	resumed, epoch, err := LoadCheckpoint(&buf)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if epoch != 3 {
		t.Fatalf("expected resumed epoch 3, got %d", epoch)
	}
	if resumed.LearningRate != 0.05 {
		t.Fatalf("expected learning rate 0.05, got %v", resumed.LearningRate)
	}
	if resumed.Weights["unigram:a"] != 2.5 || resumed.Weights["bigram:a_b"] != -1.0 {
		t.Fatalf("round-tripped checkpoint weights do not match: %v", resumed.Weights)
	}
}

func TestCheckpointFileRoundTripResumesFromNextEpoch(t *testing.T) {
	m := New(0.02)
	m.Weights["unigram:x"] = 4.0

	path := filepath.Join(t.TempDir(), "checkpoint.msgpack")
	if err := SaveCheckpointFile(path, m, 5); err != nil {
		t.Fatalf("SaveCheckpointFile failed: %v", err)
	}

	resumed, epoch, err := LoadCheckpointFile(path)
	if err != nil {
		t.Fatalf("LoadCheckpointFile failed: %v", err)
	}
	if epoch != 5 {
		t.Fatalf("expected checkpoint epoch 5, got %d", epoch)
	}
	if resumed.Weights["unigram:x"] != 4.0 {
		t.Fatalf("expected resumed weight 4.0, got %v", resumed.Weights["unigram:x"])
	}
	// A caller resuming training would start at epoch+1.
	if nextEpoch := epoch + 1; nextEpoch != 6 {
		t.Fatalf("expected next epoch to be 6, got %d", nextEpoch)
	}
}
