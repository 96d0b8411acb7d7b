package richtext

// Buffer accumulates segments for one session. It is not safe for concurrent
// use; each session owns its own Buffer.
type Buffer struct {
	segments []Segment
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Clear discards all segments.
func (b *Buffer) Clear() {
	b.segments = nil
}

// AppendText appends a Text segment and returns the new length.
func (b *Buffer) AppendText(content string, bold bool) int {
	b.segments = append(b.segments, Text{Content: content, Bold: bold})
	return len(b.segments)
}

// AppendPageMention appends a Mention segment and returns the new length.
func (b *Buffer) AppendPageMention(pageID string) int {
	b.segments = append(b.segments, Mention{PageID: pageID})
	return len(b.segments)
}

// Finish returns a copy of the current segments and their count. The buffer
// itself is left untouched.
func (b *Buffer) Finish() ([]Segment, int) {
	out := make([]Segment, len(b.segments))
	copy(out, b.segments)
	return out, len(out)
}

// Len returns the number of buffered segments.
func (b *Buffer) Len() int {
	return len(b.segments)
}
