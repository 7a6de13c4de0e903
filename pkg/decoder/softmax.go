package decoder

import "math"

func negLog(p float64) float64 { return -math.Log(p) }

// softmax normalizes scores into a probability distribution, using the
// standard max-subtraction trick for numerical stability only; the
// resulting probabilities are unaffected.
func softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	exps := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		e := math.Exp(s - max)
		exps[i] = e
		sum += e
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}
