// Package decoder implements the shift/reduce beam-search decoder and
// its structured-perceptron early-update trainer.
package decoder

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hanzo-ime/shurufa/pkg/dictionary"
	"github.com/hanzo-ime/shurufa/pkg/lattice"
	"github.com/hanzo-ime/shurufa/pkg/model"
)

// ErrUndecodable is returned when a code string has no surviving path
// through the beam.
var ErrUndecodable = errors.New("decoder: code did not decode to any path")

// Decoder ties a Dictionary and Model together to run beam search.
type Decoder struct {
	Dict     *dictionary.Dictionary
	Model    *model.Model
	BeamSize int
}

// New creates a Decoder with the given beam width.
func New(dict *dictionary.Dictionary, mdl *model.Model, beamSize int) *Decoder {
	return &Decoder{Dict: dict, Model: mdl, BeamSize: beamSize}
}

// Decode runs the full shift/reduce search for code into lt, constrained
// to produce exactly text if text is non-empty. Returns false (with lt
// left holding whatever partial beam was last completed) if no path
// survives.
func (d *Decoder) Decode(lt *lattice.Lattice, code, text string, beamSize int) bool {
	lt.Init(len(code), beamSize)
	d.beginDecode(lt)

	for pos := 1; pos <= len(code); pos++ {
		if !d.advance(lt, code, text, pos) {
			return false
		}
	}
	return d.endDecode(lt, code, text)
}

// beginDecode gives the freshly-initialized root the BOS sentinel word in
// place, so it doubles as the first beam and the first real word receives
// a bigram feature anchored on the empty-string left side.
func (d *Decoder) beginDecode(lt *lattice.Lattice) {
	root := lt.At(0)
	root.Word = dictionary.Sentinel
}

// prevWordOf returns the arena index of the nearest ancestor of prevIdx
// (inclusive) whose Word is set, or lattice.NoIndex if none exists.
func prevWordOf(lt *lattice.Lattice, prevIdx int) int {
	prev := lt.At(prevIdx)
	if prev.Word != nil {
		return prevIdx
	}
	return prev.PrevWord
}

// buildFeatures populates n's local and global feature lists given the
// decoder position pos at which n was emplaced.
func (d *Decoder) buildFeatures(lt *lattice.Lattice, n *lattice.Node, pos int) {
	if n.Word != nil && n.Word.Text != "" {
		n.LocalFeatures = append(n.LocalFeatures, lattice.Feature{
			Key: "unigram:" + n.Word.Text, Value: 1,
		})
	}
	if n.Word != nil && n.PrevWord != lattice.NoIndex {
		left := lt.At(n.PrevWord).Word.Text
		n.LocalFeatures = append(n.LocalFeatures, lattice.Feature{
			Key: "bigram:" + left + "_" + n.Word.Text, Value: 1,
		})
	}
	if n.CodePos < pos {
		n.GlobalFeatures = append(n.GlobalFeatures, lattice.Feature{
			Key: fmt.Sprintf("code_len:%d", pos-n.CodePos), Value: 1,
		})
	}
}

// emplaceSuccessor is the common tail of both the shift and reduce
// branches of advance: fill in a freshly emplaced node, score it, and
// let the beam's topk heap decide whether it survives.
func (d *Decoder) emplaceSuccessor(lt *lattice.Lattice, prevIdx, codePos, textPos int, word *dictionary.Word, pos int) {
	n := lt.Emplace()
	n.Prev = prevIdx
	n.CodePos = codePos
	n.TextPos = textPos
	n.Word = word
	n.PrevWord = prevWordOf(lt, prevIdx)
	d.buildFeatures(lt, n, pos)
	d.Model.ComputeScore(lt, n)
	lt.Topk()
}

// advance runs one shift/reduce step, consuming code[?:pos], against
// every predecessor in the previous finalized beam. text, if non-empty,
// constrains which reductions are legal. Returns false if the resulting
// beam is empty.
func (d *Decoder) advance(lt *lattice.Lattice, code, text string, pos int) bool {
	prevStart, prevEnd := lt.StepBounds(-1)
	maxCodeLen := d.Dict.MaxCodeLen()

	lt.BeginStep()
	for i := prevStart; i < prevEnd; i++ {
		p := lt.At(i)

		if pos < len(code) && pos-p.CodePos < maxCodeLen {
			d.emplaceSuccessor(lt, i, p.CodePos, p.TextPos, nil, pos)
		}

		subcode := code[p.CodePos:pos]
		for _, w := range d.Dict.Find(subcode) {
			if text != "" {
				end := p.TextPos + len(w.Text)
				if end > len(text) || text[p.TextPos:end] != w.Text {
					continue
				}
			}
			d.emplaceSuccessor(lt, i, pos, p.TextPos+len(w.Text), w, pos)
		}
	}
	lt.EndStep()
	return lt.StepLen(-1) > 0
}

// endDecode closes out decoding by emitting one EOS successor per
// predecessor that fully consumed the code (and, if text-constrained,
// the text). Returns false if no such predecessor exists.
func (d *Decoder) endDecode(lt *lattice.Lattice, code, text string) bool {
	prevStart, prevEnd := lt.StepBounds(-1)
	codeLen := len(code)

	lt.BeginStep()
	for i := prevStart; i < prevEnd; i++ {
		p := lt.At(i)
		if p.CodePos != codeLen {
			continue
		}
		if text != "" && p.TextPos != len(text) {
			continue
		}
		d.emplaceSuccessor(lt, i, p.CodePos, p.TextPos, dictionary.Sentinel, codeLen)
	}
	lt.EndStep()
	return lt.StepLen(-1) > 0
}

// Prediction is one ranked decode result.
type Prediction struct {
	Text  string
	Score float64
	Prob  float64
}

// Predict decodes code unconstrained, ranks the surviving beam, softmax
// normalizes over the *whole* beam, and returns the top n predictions
// (their probabilities sum to 1 only when n equals the beam's actual
// size).
func (d *Decoder) Predict(code string, n int) ([]Prediction, error) {
	var lt lattice.Lattice
	if !d.Decode(&lt, code, "", d.BeamSize) {
		log.Debugf("decoder: %q did not decode", code)
		return nil, ErrUndecodable
	}
	paths := lt.GetPaths(0)
	scores := make([]float64, len(paths))
	for i, p := range paths {
		scores[i] = p.Score
	}
	probs := softmax(scores)

	if n > 0 && n < len(paths) {
		paths = paths[:n]
	}
	out := make([]Prediction, len(paths))
	for i, p := range paths {
		out[i] = Prediction{Text: lattice.Text(lt.Walk(p.NodeIdx)), Score: p.Score, Prob: probs[i]}
	}
	return out, nil
}
