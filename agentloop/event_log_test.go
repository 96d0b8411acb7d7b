package agentloop

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLogEventsLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	emitter := NewEventEmitter("sess-1", 8)
	emitter.Emit(EventToolCallStart, map[string]interface{}{"tool_name": "get_blocks"})
	emitter.Emit(EventTurnLimit, map[string]interface{}{"iterations": 10})
	emitter.Emit(EventError, map[string]interface{}{"error": "boom"})
	emitter.Emit(EventSessionEnd, map[string]interface{}{"stop_reason": "completed"})
	emitter.Close()

	LogEvents(logger, emitter.Events())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d:\n%s", len(lines), buf.String())
	}
	checks := []struct {
		level string
		frag  string
	}{
		{"level=DEBUG", `data="{\"tool_name\":\"get_blocks\"}"`},
		{"level=WARN", "iterations=10"},
		{"level=ERROR", "error=boom"},
		{"level=INFO", "stop_reason=completed"},
	}
	for i, c := range checks {
		if !strings.Contains(lines[i], c.level) || !strings.Contains(lines[i], c.frag) {
			t.Errorf("line %d = %q, want %s and %s", i, lines[i], c.level, c.frag)
		}
		if !strings.Contains(lines[i], "session=sess-1") {
			t.Errorf("line %d missing session id: %q", i, lines[i])
		}
	}
}

func TestLogEventsNilLoggerDrains(t *testing.T) {
	emitter := NewEventEmitter("sess-2", 4)
	emitter.Emit(EventUserInput, nil)
	emitter.Close()

	done := make(chan struct{})
	go func() {
		LogEvents(nil, emitter.Events())
		close(done)
	}()
	<-done
}

func TestEventEmitterDropsAfterClose(t *testing.T) {
	emitter := NewEventEmitter("sess-3", 1)
	emitter.Emit(EventUserInput, nil)
	emitter.Emit(EventUserInput, nil) // full, dropped
	emitter.Close()
	emitter.Close()
	emitter.Emit(EventUserInput, nil)

	count := 0
	for range emitter.Events() {
		count++
	}
	if count != 1 {
		t.Errorf("expected 1 buffered event, got %d", count)
	}
	if got := emitter.Dropped(); got != 1 {
		t.Errorf("expected 1 dropped event, got %d", got)
	}
}
