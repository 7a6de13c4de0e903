package decoder

import "math"

// BatchMetrics accumulates the raw counters behind one batch's (or, once
// merged across every batch in an epoch, one whole epoch's) training
// summary. Ratios are computed lazily so partially-filled counters can be
// merged with simple addition.
type BatchMetrics struct {
	Count      int
	Success    int
	CorrectTop int
	LossSum    float64
	EarlyStops int
}

// Add merges other into m in place.
func (m *BatchMetrics) Add(other BatchMetrics) {
	m.Count += other.Count
	m.Success += other.Success
	m.CorrectTop += other.CorrectTop
	m.LossSum += other.LossSum
	m.EarlyStops += other.EarlyStops
}

// SuccessRate is decoded/seen. NaN if nothing was seen.
func (m BatchMetrics) SuccessRate() float64 {
	if m.Count == 0 {
		return math.NaN()
	}
	return float64(m.Success) / float64(m.Count)
}

// Precision is the fraction of decoded samples whose label was rank 0.
// NaN if nothing decoded.
func (m BatchMetrics) Precision() float64 {
	if m.Success == 0 {
		return math.NaN()
	}
	return float64(m.CorrectTop) / float64(m.Success)
}

// Loss is the mean negative log probability of the label over decoded
// samples. NaN if nothing decoded.
func (m BatchMetrics) Loss() float64 {
	if m.Success == 0 {
		return math.NaN()
	}
	return m.LossSum / float64(m.Success)
}

// EarlyUpdateRate is the fraction of decoded samples where early-update
// had to force-emplace a reference to keep it in the beam, whether that
// happened partway through the code or at the final end-of-sentence step.
// NaN if nothing decoded.
func (m BatchMetrics) EarlyUpdateRate() float64 {
	if m.Success == 0 {
		return math.NaN()
	}
	return float64(m.EarlyStops) / float64(m.Success)
}

// EvalMetrics accumulates the counters behind evaluate()'s summary.
type EvalMetrics struct {
	Count         int
	Success       int
	PrecisionHits int
	AtBeamHits    int
	LossSum       float64
}

// Add merges other into m in place.
func (m *EvalMetrics) Add(other EvalMetrics) {
	m.Count += other.Count
	m.Success += other.Success
	m.PrecisionHits += other.PrecisionHits
	m.AtBeamHits += other.AtBeamHits
	m.LossSum += other.LossSum
}

func (m EvalMetrics) SuccessRate() float64 {
	if m.Count == 0 {
		return math.NaN()
	}
	return float64(m.Success) / float64(m.Count)
}

func (m EvalMetrics) Precision() float64 {
	if m.Success == 0 {
		return math.NaN()
	}
	return float64(m.PrecisionHits) / float64(m.Success)
}

// PrecisionAtBeam is p@beam_size: the fraction of decoded samples whose
// reference text appeared anywhere in the beam.
func (m EvalMetrics) PrecisionAtBeam() float64 {
	if m.Success == 0 {
		return math.NaN()
	}
	return float64(m.AtBeamHits) / float64(m.Success)
}

func (m EvalMetrics) Loss() float64 {
	if m.Success == 0 {
		return math.NaN()
	}
	return m.LossSum / float64(m.Success)
}
