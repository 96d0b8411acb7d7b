package agentloop

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/martinemde/notionagent/unifiedllm"
)

// maxLoopPeriod is the longest repeating cycle of calls that is recognized.
const maxLoopPeriod = 3

// loopDetector remembers the signatures of the most recent tool calls of one
// run and reports when they settle into a short repeating cycle.
type loopDetector struct {
	window int
	sigs   []string
}

func newLoopDetector(window int) *loopDetector {
	return &loopDetector{window: window}
}

// observe records calls in execution order.
func (d *loopDetector) observe(calls []unifiedllm.ToolCall) {
	if d.window <= 0 {
		return
	}
	for _, c := range calls {
		d.sigs = append(d.sigs, callSignature(c.Name, c.Arguments))
	}
	if over := len(d.sigs) - d.window; over > 0 {
		d.sigs = append(d.sigs[:0], d.sigs[over:]...)
	}
}

// looping reports whether the full window repeats with a period of 1 to
// maxLoopPeriod calls.
func (d *loopDetector) looping() bool {
	if d.window <= 0 || len(d.sigs) < d.window {
		return false
	}
	for period := 1; period <= maxLoopPeriod && period < d.window; period++ {
		if d.window%period == 0 && repeats(d.sigs, period) {
			return true
		}
	}
	return false
}

// reset forgets the window so a steering note is not repeated on every turn.
func (d *loopDetector) reset() { d.sigs = d.sigs[:0] }

func repeats(sigs []string, period int) bool {
	for i := period; i < len(sigs); i++ {
		if sigs[i] != sigs[i-period] {
			return false
		}
	}
	return true
}

// callSignature identifies a call by name and canonical arguments, so key
// order and whitespace differences do not hide a repeat.
func callSignature(name string, args json.RawMessage) string {
	canonical := bytes.TrimSpace(args)
	var v any
	if err := json.Unmarshal(args, &v); err == nil {
		if b, err := json.Marshal(v); err == nil {
			canonical = b
		}
	}
	sum := sha256.Sum256(canonical)
	return name + ":" + hex.EncodeToString(sum[:8])
}
