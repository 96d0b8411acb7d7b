package richtext

import (
	"testing"
)

func TestBufferPreservesCallOrder(t *testing.T) {
	buf := NewBuffer()
	buf.AppendText("A", false)
	buf.AppendPageMention("B")
	buf.AppendText("C", true)

	segments, n := buf.Finish()
	if n != 3 {
		t.Fatalf("expected 3 segments, got %d", n)
	}
	expected := []Segment{
		Text{Content: "A"},
		Mention{PageID: "B"},
		Text{Content: "C", Bold: true},
	}
	for i, want := range expected {
		if segments[i] != want {
			t.Errorf("segment %d: expected %#v, got %#v", i, want, segments[i])
		}
	}
}

func TestBufferAppendReturnsLength(t *testing.T) {
	buf := NewBuffer()
	if n := buf.AppendText("x", false); n != 1 {
		t.Errorf("expected length 1, got %d", n)
	}
	if n := buf.AppendPageMention("p"); n != 2 {
		t.Errorf("expected length 2, got %d", n)
	}
	if buf.Len() != 2 {
		t.Errorf("expected Len 2, got %d", buf.Len())
	}
}

func TestBufferClearThenFinishIsEmpty(t *testing.T) {
	buf := NewBuffer()
	buf.AppendText("stale", false)
	buf.Clear()

	segments, n := buf.Finish()
	if n != 0 || len(segments) != 0 {
		t.Errorf("expected empty snapshot, got %d segments", n)
	}
}

func TestBufferFinishDoesNotDrain(t *testing.T) {
	buf := NewBuffer()
	buf.AppendText("one", false)

	first, _ := buf.Finish()
	buf.AppendText("two", false)
	second, n := buf.Finish()

	if len(first) != 1 {
		t.Errorf("first snapshot changed after append: %d segments", len(first))
	}
	if n != 2 {
		t.Errorf("expected 2 segments after second finish, got %d", n)
	}
	if second[0] != (Text{Content: "one"}) {
		t.Errorf("unexpected first segment %#v", second[0])
	}
}

func TestBufferNoMergingOfAdjacentText(t *testing.T) {
	buf := NewBuffer()
	buf.AppendText("same", false)
	buf.AppendText("same", false)

	if _, n := buf.Finish(); n != 2 {
		t.Errorf("expected adjacent identical segments to stay separate, got %d", n)
	}
}
