package agentloop

import (
	"fmt"
	"unicode/utf8"
)

// DefaultToolOutputLimits caps, in characters, the JSON each read tool hands
// back to the model. Build tool acknowledgements stay far below any limit.
var DefaultToolOutputLimits = map[ToolName]int{
	ToolSearchPages:    20000,
	ToolRecentPages:    10000,
	ToolPageProperties: 20000,
	ToolGetBlocks:      40000,
}

const fallbackOutputLimit = 30000

// outputLimit picks the override for tool, then its default, then the
// fallback.
func outputLimit(tool ToolName, overrides map[ToolName]int) int {
	if n, ok := overrides[tool]; ok && n > 0 {
		return n
	}
	if n, ok := DefaultToolOutputLimits[tool]; ok {
		return n
	}
	return fallbackOutputLimit
}

// TruncateToolOutput keeps the head and tail of output within limit
// characters and replaces the middle with a notice. Cuts fall on rune
// boundaries so page titles in any script survive intact.
func TruncateToolOutput(output string, limit int) string {
	total := utf8.RuneCountInString(output)
	if limit <= 0 || total <= limit {
		return output
	}
	head := limit / 2
	tail := limit - head
	removed := total - limit

	headEnd := byteOffset(output, head)
	tailStart := byteOffset(output, total-tail)
	return output[:headEnd] +
		fmt.Sprintf("\n\n[Output truncated: %d characters removed from the middle. "+
			"Use a narrower search or read a specific block_id to see the rest.]\n\n", removed) +
		output[tailStart:]
}

// byteOffset returns the byte index of the n-th rune of s.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
