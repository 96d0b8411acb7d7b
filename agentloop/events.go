package agentloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventKind names a session event.
type EventKind string

const (
	EventSessionStart     EventKind = "session_start"
	EventSessionEnd       EventKind = "session_end"
	EventUserInput        EventKind = "user_input"
	EventAssistantText    EventKind = "assistant_text"
	EventToolCallStart    EventKind = "tool_call_start"
	EventToolCallEnd      EventKind = "tool_call_end"
	EventRichTextFinished EventKind = "rich_text_finished"
	EventTurnLimit        EventKind = "turn_limit"
	EventLoopDetection    EventKind = "loop_detection"
	EventWarning          EventKind = "warning"
	EventError            EventKind = "error"
)

// SessionEvent is one observation from a running session.
type SessionEvent struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventEmitter publishes session events on a buffered channel. Emit never
// blocks the agent loop: when the buffer is full the event is counted and
// discarded.
type EventEmitter struct {
	sessionID string
	ch        chan SessionEvent
	dropped   atomic.Int64

	mu     sync.Mutex
	closed bool
}

// NewEventEmitter creates an emitter. A non-positive size uses 256.
func NewEventEmitter(sessionID string, size int) *EventEmitter {
	if size <= 0 {
		size = 256
	}
	return &EventEmitter{sessionID: sessionID, ch: make(chan SessionEvent, size)}
}

// Emit publishes an event. It is a no-op after Close.
func (e *EventEmitter) Emit(kind EventKind, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- SessionEvent{Kind: kind, Timestamp: now(), SessionID: e.sessionID, Data: data}:
	default:
		e.dropped.Add(1)
	}
}

// Events returns the channel, closed by Close.
func (e *EventEmitter) Events() <-chan SessionEvent { return e.ch }

// Dropped returns how many events were discarded because the buffer was full.
func (e *EventEmitter) Dropped() int64 { return e.dropped.Load() }

// Close closes the channel. Calling it again does nothing.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
