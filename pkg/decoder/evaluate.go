package decoder

import (
	"math"

	"github.com/hanzo-ime/shurufa/pkg/lattice"
)

// Sample is one labeled (code, text) training or evaluation example.
type Sample struct {
	Code string
	Text string
}

// PredictLabeled decodes code unconstrained and reports the rank and
// probability of text within the resulting beam. If text does not
// appear in the beam, it re-decodes with the text constraint and reports
// rank == d.BeamSize with the probability the reference would have had
// if merged into the unconstrained beam's softmax.
func (d *Decoder) PredictLabeled(code, text string) (rank int, prob float64, ok bool) {
	var lt lattice.Lattice
	if !d.Decode(&lt, code, "", d.BeamSize) {
		return 0, 0, false
	}
	paths := lt.GetPaths(0)
	scores := make([]float64, len(paths))
	for i, p := range paths {
		scores[i] = p.Score
	}
	probs := softmax(scores)
	for i, p := range paths {
		if lattice.Text(lt.Walk(p.NodeIdx)) == text {
			return i, probs[i], true
		}
	}

	var clt lattice.Lattice
	if !d.Decode(&clt, code, text, d.BeamSize) {
		return 0, 0, false
	}
	cpaths := clt.GetPaths(1)
	if len(cpaths) == 0 {
		return 0, 0, false
	}
	sStar := cpaths[0].Score

	max := sStar
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	sum := math.Exp(sStar - max)
	for _, s := range scores {
		sum += math.Exp(s - max)
	}
	prob = math.Exp(sStar-max) / sum
	return d.BeamSize, prob, true
}

// Evaluate runs PredictLabeled over every sample sequentially and
// aggregates the counters behind precision/p@beam_size/loss/success_rate.
func (d *Decoder) Evaluate(samples []Sample) EvalMetrics {
	var m EvalMetrics
	for _, s := range samples {
		m.Add(d.evaluateOne(s))
	}
	return m
}

func (d *Decoder) evaluateOne(s Sample) EvalMetrics {
	var m EvalMetrics
	m.Count = 1
	rank, prob, ok := d.PredictLabeled(s.Code, s.Text)
	if !ok {
		return m
	}
	m.Success = 1
	if rank == 0 {
		m.PrecisionHits = 1
	}
	if rank < d.BeamSize {
		m.AtBeamHits = 1
	}
	m.LossSum = -math.Log(prob)
	return m
}

// BatchEvaluate parallelizes PredictLabeled across samples using up to
// threads workers, then serially accumulates counters.
func (d *Decoder) BatchEvaluate(samples []Sample, threads int) EvalMetrics {
	results := parallelMap(samples, threads, d.evaluateOne)
	var m EvalMetrics
	for _, r := range results {
		m.Add(r)
	}
	return m
}
