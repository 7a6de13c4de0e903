// Package model holds the decoder's sparse linear weight vector: scoring
// a lattice node, and the perceptron-style updates that train it.
package model

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/hanzo-ime/shurufa/pkg/lattice"
)

// Model is a sparse linear model over feature keys.
type Model struct {
	Weights      map[string]float64
	LearningRate float64
}

// New creates an empty Model with the given learning rate.
func New(learningRate float64) *Model {
	return &Model{Weights: make(map[string]float64), LearningRate: learningRate}
}

func (m *Model) weight(key string) float64 { return m.Weights[key] }

// Score walks the full root-to-node feature chain and sums weights, as
// a reference implementation independent of any incremental bookkeeping
// stored on the node itself.
func (m *Model) Score(lt *lattice.Lattice, nodeIdx int) float64 {
	sum := 0.0
	it := lt.Features(nodeIdx)
	for {
		f, ok := it.Next()
		if !ok {
			break
		}
		sum += f.Value * m.weight(f.Key)
	}
	return sum
}

// ComputeScore sets n.LocalScore and n.Score incrementally from n.Prev's
// already-computed LocalScore and n's own feature lists. Correct because
// features are append-only along a path and the model is linear.
func (m *Model) ComputeScore(lt *lattice.Lattice, n *lattice.Node) {
	local := 0.0
	if n.Prev != lattice.NoIndex {
		local = lt.At(n.Prev).LocalScore
	}
	for _, f := range n.LocalFeatures {
		local += f.Value * m.weight(f.Key)
	}
	n.LocalScore = local

	score := local
	for _, f := range n.GlobalFeatures {
		score += f.Value * m.weight(f.Key)
	}
	n.Score = score
}

// Update applies weights[key] += value * delta * learningRate for every
// feature the iterator yields, auto-vivifying unseen keys at zero.
func (m *Model) Update(it *lattice.FeatureIter, delta float64) {
	for {
		f, ok := it.Next()
		if !ok {
			break
		}
		m.Weights[f.Key] += f.Value * delta * m.LearningRate
	}
}

// Save writes one "key\tweight" line per weight.
func (m *Model) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for k, v := range m.Weights {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", k, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load clears the current weights and repopulates them from r. Duplicate
// keys are last-write-wins. Malformed lines are skipped with a log line
// and loading continues; only a read error is returned.
func (m *Model) Load(r io.Reader) error {
	m.Weights = make(map[string]float64)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, '\t')
		if idx < 0 {
			log.Warnf("model: skipping malformed line %d: %q", lineNo, line)
			continue
		}
		v, err := strconv.ParseFloat(line[idx+1:], 64)
		if err != nil {
			log.Warnf("model: skipping malformed weight on line %d: %v", lineNo, err)
			continue
		}
		m.Weights[line[:idx]] = v
	}
	return scanner.Err()
}
