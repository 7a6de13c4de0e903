package decoder

import (
	"math"
	"testing"

	"github.com/hanzo-ime/shurufa/pkg/dictionary"
	"github.com/hanzo-ime/shurufa/pkg/lattice"
	"github.com/hanzo-ime/shurufa/pkg/model"
)

func newTestDecoder(entries map[string]string, beamSize int) *Decoder {
	dict := dictionary.New(dictionary.DefaultConfig())
	for code, text := range entries {
		dict.Insert(code, text)
	}
	return New(dict, model.New(0.1), beamSize)
}

func TestDecodeSinglePathExactMatch(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you"}, 4)
	var lt lattice.Lattice
	if !dec.Decode(&lt, "ni", "", dec.BeamSize) {
		t.Fatal("expected 'ni' to decode")
	}
	paths := lt.GetPaths(0)
	if len(paths) != 1 {
		t.Fatalf("expected exactly 1 surviving path, got %d", len(paths))
	}
	if got := lattice.Text(lt.Walk(paths[0].NodeIdx)); got != "you" {
		t.Fatalf("expected text 'you', got %q", got)
	}
}

func TestDecodeUndecodableCodeFails(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you"}, 4)
	var lt lattice.Lattice
	if dec.Decode(&lt, "zz", "", dec.BeamSize) {
		t.Fatal("expected a code absent from the dictionary to fail to decode")
	}
}

func TestPredictUndecodableReturnsError(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you"}, 4)
	if _, err := dec.Predict("zz", 5); err != ErrUndecodable {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
}

func TestPredictRanksMultipleReductionsByScore(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you"}, 8)
	// Two words share the same code, so decoding "ni" produces two
	// competing full paths.
	dec.Dict.Insert("ni", "also")
	dec.Model.Weights["unigram:you"] = 5.0

	preds, err := dec.Predict("ni", 0)
	if err != nil {
		t.Fatalf("unexpected decode failure: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("expected 2 competing predictions, got %d", len(preds))
	}
	if preds[0].Text != "you" {
		t.Fatalf("expected 'you' to rank first with a boosted weight, got %q", preds[0].Text)
	}
	sum := 0.0
	for _, p := range preds {
		sum += p.Prob
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("expected probabilities over the full beam to sum to 1, got %v", sum)
	}
}

func TestTrainingImprovesReferenceRanking(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you", "wo": "i"}, 8)
	// A competing word under the same code so ranking is non-trivial.
	dec.Dict.Insert("ni", "also")
	dec.Model.Weights["unigram:also"] = 3.0 // starts ahead of "you"

	rankBefore, _, ok := dec.PredictLabeled("ni", "you")
	if !ok {
		t.Fatal("expected 'ni' to be labelable before training")
	}

	for i := 0; i < 20; i++ {
		if _, ok := dec.Update("ni", "you"); !ok {
			t.Fatalf("Update failed on iteration %d", i)
		}
	}

	rankAfter, probAfter, ok := dec.PredictLabeled("ni", "you")
	if !ok {
		t.Fatal("expected 'ni' to be labelable after training")
	}
	if rankAfter > rankBefore {
		t.Fatalf("expected training to not worsen rank: before=%d after=%d", rankBefore, rankAfter)
	}
	if rankAfter != 0 {
		t.Fatalf("expected the reference 'you' to reach rank 0 after training, got %d", rankAfter)
	}
	if probAfter <= 0 {
		t.Fatalf("expected a positive probability after training, got %v", probAfter)
	}
}

func TestBeamSizeOneIsDeterministic(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you", "nihao": "hello"}, 1)
	var lt1, lt2 lattice.Lattice
	ok1 := dec.Decode(&lt1, "nihao", "", 1)
	ok2 := dec.Decode(&lt2, "nihao", "", 1)
	if ok1 != ok2 {
		t.Fatalf("expected deterministic decode success across runs: %v vs %v", ok1, ok2)
	}
	if ok1 {
		p1 := lattice.Text(lt1.Walk(lt1.GetPaths(1)[0].NodeIdx))
		p2 := lattice.Text(lt2.Walk(lt2.GetPaths(1)[0].NodeIdx))
		if p1 != p2 {
			t.Fatalf("expected identical decode with beam_size=1, got %q vs %q", p1, p2)
		}
	}
}

func TestPredictLabeledOutOfBeamUsesMergedSoftmax(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you"}, 4)
	// Register a second word under the same code "ni" so beam_size=1
	// forces exactly one of {you,her} out of the beam.
	dec.Dict.Insert("ni", "her")
	dec.BeamSize = 1
	dec.Model.Weights["unigram:you"] = 10.0 // "you" always wins the beam slot

	rank, prob, ok := dec.PredictLabeled("ni", "her")
	if !ok {
		t.Fatal("expected 'ni'/'her' to still be labelable via the constrained fallback")
	}
	if rank != dec.BeamSize {
		t.Fatalf("expected out-of-beam rank to equal BeamSize, got %d", rank)
	}
	if prob <= 0 || prob >= 1 {
		t.Fatalf("expected a valid merged-softmax probability in (0,1), got %v", prob)
	}
}

func TestBatchTrainAggregatesWholeEpochMetrics(t *testing.T) {
	dec := newTestDecoder(map[string]string{"ni": "you", "wo": "i"}, 4)
	samples := []Sample{{Code: "ni", Text: "you"}, {Code: "wo", Text: "i"}, {Code: "zz", Text: "nope"}}

	metrics := dec.Epoch(samples, 2, 2)
	if metrics.Count != 3 {
		t.Fatalf("expected count=3 (all samples seen), got %d", metrics.Count)
	}
	if metrics.Success != 2 {
		t.Fatalf("expected success=2 (undecodable sample dropped), got %d", metrics.Success)
	}
}

func TestBatchMetricsNaNOnZeroDenominator(t *testing.T) {
	var m BatchMetrics
	if !math.IsNaN(m.SuccessRate()) {
		t.Fatal("expected NaN success rate with zero samples seen")
	}
	m.Count = 1
	if !math.IsNaN(m.Precision()) {
		t.Fatal("expected NaN precision with zero decoded samples")
	}
}
