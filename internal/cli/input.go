// Package cli handles interactive command-line testing of the decoder:
// a stdin loop that reads codes, predicts, and prints ranked candidates.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hanzo-ime/shurufa/internal/utils"
	"github.com/hanzo-ime/shurufa/pkg/correct"
	"github.com/hanzo-ime/shurufa/pkg/decoder"
)

// InputHandler reads codes from stdin, predicts against a Decoder, and
// prints the resulting candidates. When a code fails to decode at all it
// falls back to a fuzzy Matcher over the dictionary's known codes, if one
// is configured.
type InputHandler struct {
	decoder      *decoder.Decoder
	matcher      *correct.Matcher
	limit        int
	requestCount int
}

// NewInputHandler builds an InputHandler around dec, optionally with a
// fuzzy-correction fallback matcher (pass nil to disable it).
func NewInputHandler(dec *decoder.Decoder, matcher *correct.Matcher, limit int) *InputHandler {
	return &InputHandler{decoder: dec, matcher: matcher, limit: limit}
}

// Start begins the interface loop, reading one code per line from stdin
// until EOF or an error.
func (h *InputHandler) Start() error {
	log.Print("shurufa test REPL")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a code and press Enter to see predictions (Ctrl+C to exit):")

	for {
		log.Print("> ")
		code, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		h.handleInput(code)
	}
}

// handleInput predicts against a single code and prints the results.
func (h *InputHandler) handleInput(code string) {
	h.requestCount++

	start := time.Now()
	predictions, err := h.decoder.Predict(code, h.limit)
	elapsed := time.Since(start)

	if err != nil || len(predictions) == 0 {
		log.Warnf("No predictions for code: %q", code)
		h.suggestCorrections(code)
		return
	}

	log.Debugf("Took [ %v ] for code %q", elapsed, code)
	log.Printf("Found %d predictions for %q:", len(predictions), code)
	ranks := utils.CreateRankList(len(predictions))
	for i, p := range predictions {
		fmt.Fprintf(os.Stdout, "%d: %s %g\n", ranks[i], p.Text, p.Prob)
	}
}

// suggestCorrections offers fuzzy-matched codes when code decoded to
// nothing at all, so a typo doesn't dead-end the session.
func (h *InputHandler) suggestCorrections(code string) {
	if h.matcher == nil {
		return
	}
	matches := h.matcher.SuggestCorrection(code, 5)
	if len(matches) == 0 {
		return
	}
	log.Printf("Did you mean:")
	for _, m := range matches {
		log.Printf("  %s", m.Code)
	}
}
