//go:build test

package mem

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/hanzo-ime/shurufa/pkg/decoder"
	"github.com/hanzo-ime/shurufa/pkg/dictionary"
	"github.com/hanzo-ime/shurufa/pkg/lattice"
	"github.com/hanzo-ime/shurufa/pkg/model"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var testCodes = []string{
	"a", "ab", "abc", "abcd",
	"h", "he", "hel", "hell", "hello",
	"w", "wo", "wor", "worl", "world",
	"p", "pr", "pro", "prog", "program",
}

func buildTestDecoder() *decoder.Decoder {
	dict := dictionary.New(dictionary.DefaultConfig())
	for _, code := range testCodes {
		dict.Insert(code, code+"_text")
		for i := 1; i < len(code); i++ {
			dict.Insert(code[:i], code[:i]+"_partial")
		}
	}
	return decoder.New(dict, model.New(0.1), 20)
}

// TestLatticeArenaDoesNotGrowUnbounded decodes many codes through one
// reused Lattice and asserts its backing array settles to a fixed
// capacity rather than creeping upward.
func TestLatticeArenaDoesNotGrowUnbounded(t *testing.T) {
	dec := buildTestDecoder()

	iterations := []int{100, 500, 1000, 2500}
	for _, iterCount := range iterations {
		t.Run(fmt.Sprintf("iterations_%d", iterCount), func(t *testing.T) {
			var lt lattice.Lattice

			for i := 0; i < iterCount; i++ {
				for _, code := range testCodes {
					dec.Decode(&lt, code, "", dec.BeamSize)
				}
			}

			cap1 := lt.Cap()
			for i := 0; i < 100; i++ {
				for _, code := range testCodes {
					dec.Decode(&lt, code, "", dec.BeamSize)
				}
			}
			cap2 := lt.Cap()

			if cap2 != cap1 {
				t.Errorf("arena capacity grew after warmup: %d -> %d", cap1, cap2)
			}
		})
	}
}

// TestBatchTrainingMemoryStability runs many small training epochs and
// asserts heap growth stays bounded, catching per-sample Lattice or
// feature-slice leaks in the batch worker pool.
func TestBatchTrainingMemoryStability(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long-running memory stability test in short mode")
	}

	dec := buildTestDecoder()
	samples := make([]decoder.Sample, 0, len(testCodes))
	for _, code := range testCodes {
		samples = append(samples, decoder.Sample{Code: code, Text: code + "_text"})
	}

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)

	cycles := 50
	for cycle := 0; cycle < cycles; cycle++ {
		dec.Epoch(samples, 4, 4)
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)

	memDelta := int64(final.Alloc) - int64(baseline.Alloc)
	t.Logf("cycles=%d mem_delta=%d bytes", cycles, memDelta)

	if memDelta > 10*1024*1024 {
		t.Errorf("excessive heap growth across training cycles: %d bytes", memDelta)
	}
}
