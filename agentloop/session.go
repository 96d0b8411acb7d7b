package agentloop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martinemde/notionagent/richtext"
	"github.com/martinemde/notionagent/unifiedllm"
)

// LoopState is the position of a session in the agent loop.
type LoopState string

const (
	StateIdle             LoopState = "idle"
	StateAwaitingModel    LoopState = "awaiting_model"
	StateDispatchingTools LoopState = "dispatching_tools"
	StateDone             LoopState = "done"
	StateClosed           LoopState = "closed"
)

// StopReason records why a run ended.
type StopReason string

const (
	// StopCompleted means the model answered without tool calls.
	StopCompleted StopReason = "completed"
	// StopIterationCap means MaxIterations completion requests were made.
	StopIterationCap StopReason = "iteration_cap"
	// StopFinished means StopAfterFinish ended the run after finish_rich_text.
	StopFinished StopReason = "finished"
	// StopError means a completion request or the context failed.
	StopError StopReason = "error"
)

var (
	ErrSessionClosed = errors.New("session is closed")
	ErrSessionBusy   = errors.New("session is already running")
)

// Completer is the completion endpoint a session talks to.
// *unifiedllm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	MaxIterations       int              `json:"max_iterations"` // completion requests per run
	StopAfterFinish     bool             `json:"stop_after_finish"`
	ToolTimeout         time.Duration    `json:"tool_timeout"` // 0 = no per-call deadline
	ToolOutputLimits    map[ToolName]int `json:"tool_output_limits,omitempty"`
	EnableLoopDetection bool             `json:"enable_loop_detection"`
	LoopDetectionWindow int              `json:"loop_detection_window"`
	Instructions        string           `json:"instructions,omitempty"` // appended last to system prompt
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxIterations:       10,
		ToolTimeout:         30 * time.Second,
		EnableLoopDetection: true,
		LoopDetectionWindow: 6,
	}
}

// Result is the outcome of one Run.
type Result struct {
	// Segments is the snapshot taken by the last successful finish_rich_text,
	// or nil if finish was never called.
	Segments   []richtext.Segment
	Finished   bool
	Pending    int // segments in the buffer when the run ended
	Iterations int // completion requests made
	StopReason StopReason
	Usage      unifiedllm.Usage
	History    []Turn
}

// Session drives the agent loop for one conversation at a time. Each Session
// owns its rich text buffer.
type Session struct {
	id      string
	profile Profile
	client  Completer
	toolbox *Toolbox
	history []Turn
	emitter *EventEmitter
	config  SessionConfig
	state   LoopState
	running bool
	mu      sync.Mutex
}

// NewSession creates a session. A nil config uses DefaultSessionConfig.
func NewSession(client Completer, docs DocumentService, profile Profile, config *SessionConfig) *Session {
	sessionID := uuid.New().String()

	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultSessionConfig().MaxIterations
	}
	if profile.Registry == nil {
		profile.Registry = NewNotionToolRegistry()
	}
	if profile.ContextWindow <= 0 {
		profile.ContextWindow = defaultContextWindow
	}

	return &Session{
		id:      sessionID,
		profile: profile,
		client:  client,
		toolbox: NewToolbox(docs, richtext.NewBuffer()),
		emitter: NewEventEmitter(sessionID, 256),
		config:  cfg,
		state:   StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current loop state.
func (s *Session) State() LoopState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the conversation history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Turn, len(s.history))
	copy(h, s.history)
	return h
}

// Events returns the event channel for the host application.
func (s *Session) Events() <-chan SessionEvent {
	return s.emitter.Events()
}

// DroppedEvents reports events discarded because no one drained Events in
// time.
func (s *Session) DroppedEvents() int64 { return s.emitter.Dropped() }

// Close terminates the session and closes the event channel.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	s.emitter.Close()
}

func (s *Session) setState(state LoopState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) appendTurn(t Turn) {
	s.mu.Lock()
	s.history = append(s.history, t)
	s.mu.Unlock()
}

// Run clears the buffer, starts a fresh conversation from the system prompt
// and prompt, and loops until the model stops calling tools or the iteration
// cap is reached. A completion error ends the run and is returned together
// with the partial Result.
func (s *Session) Run(ctx context.Context, prompt string) (*Result, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.running {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}
	s.running = true
	s.history = []Turn{
		NewSystemTurn(s.profile.BuildSystemPrompt(s.config.Instructions)),
		NewUserTurn(prompt),
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.toolbox.Reset()
	s.emitter.Emit(EventSessionStart, map[string]interface{}{
		"provider":       s.profile.Provider,
		"model":          s.profile.Model,
		"max_iterations": s.config.MaxIterations,
	})
	s.emitter.Emit(EventUserInput, map[string]interface{}{
		"content": prompt,
	})

	window := 0
	if s.config.EnableLoopDetection {
		window = s.config.LoopDetectionWindow
	}
	loops := newLoopDetector(window)

	var (
		iterations int
		usage      unifiedllm.Usage
		reason     StopReason
		runErr     error
	)

	for {
		if iterations >= s.config.MaxIterations {
			reason = StopIterationCap
			s.emitter.Emit(EventTurnLimit, map[string]interface{}{
				"iterations": iterations,
				"pending":    s.toolbox.Pending(),
			})
			break
		}

		if err := ctx.Err(); err != nil {
			reason = StopError
			runErr = err
			s.emitter.Emit(EventError, map[string]interface{}{
				"error": "context cancelled",
			})
			break
		}

		s.setState(StateAwaitingModel)
		iterations++
		response, err := s.client.Complete(ctx, s.buildRequest())
		if err != nil {
			reason = StopError
			runErr = fmt.Errorf("completion request %d: %w", iterations, err)
			s.emitter.Emit(EventError, map[string]interface{}{
				"error":     err.Error(),
				"retryable": unifiedllm.IsRetryable(err),
			})
			break
		}
		usage = usage.Add(response.Usage)

		toolCalls := response.ToolCallsFromResponse()
		s.appendTurn(NewAssistantTurn(response.Text(), toolCalls, response.Usage, response.ID))
		if text := response.Text(); text != "" {
			s.emitter.Emit(EventAssistantText, map[string]interface{}{
				"text":       text,
				"tool_calls": len(toolCalls),
			})
		}

		s.checkContextUsage()

		if len(toolCalls) == 0 {
			reason = StopCompleted
			break
		}

		s.setState(StateDispatchingTools)
		results, finished := s.executeToolCalls(ctx, toolCalls)
		s.appendTurn(NewToolResultsTurn(results))

		if finished && s.config.StopAfterFinish {
			reason = StopFinished
			break
		}

		loops.observe(toolCalls)
		if loops.looping() {
			loops.reset()
			warning := fmt.Sprintf("Loop detected: the last %d tool calls follow a repeating pattern. Try a different approach, or call finish_rich_text if the rich text is complete.", s.config.LoopDetectionWindow)
			s.appendTurn(NewSteeringTurn(warning))
			s.emitter.Emit(EventLoopDetection, map[string]interface{}{
				"message": warning,
			})
		}
	}

	s.setState(StateDone)

	segments, called := s.toolbox.Finished()
	result := &Result{
		Segments:   segments,
		Finished:   called,
		Pending:    s.toolbox.Pending(),
		Iterations: iterations,
		StopReason: reason,
		Usage:      usage,
		History:    s.History(),
	}
	s.emitter.Emit(EventSessionEnd, map[string]interface{}{
		"stop_reason":  string(reason),
		"iterations":   iterations,
		"finished":     called,
		"segments":     len(segments),
		"total_tokens": usage.TotalTokens,
	})
	return result, runErr
}

func (s *Session) buildRequest() unifiedllm.Request {
	return unifiedllm.Request{
		Model:      s.profile.Model,
		Provider:   s.profile.Provider,
		Messages:   ConvertHistoryToMessages(s.History()),
		ToolDefs:   s.profile.Registry.ToUnifiedLLMToolDefs(),
		ToolChoice: &unifiedllm.ToolChoice{Mode: "auto"},
	}
}

// executeToolCalls runs every call in the order the model gave them. It
// reports whether finish_rich_text succeeded in this round.
func (s *Session) executeToolCalls(ctx context.Context, toolCalls []unifiedllm.ToolCall) ([]unifiedllm.ToolResult, bool) {
	results := make([]unifiedllm.ToolResult, len(toolCalls))
	finished := false
	for i, tc := range toolCalls {
		var ok bool
		results[i], ok = s.executeSingleTool(ctx, tc)
		if ok && tc.Name == string(ToolFinishRichText) {
			finished = true
		}
	}
	return results, finished
}

// executeSingleTool handles the full tool execution pipeline:
// decode -> execute -> encode -> truncate -> emit -> return
func (s *Session) executeSingleTool(ctx context.Context, toolCall unifiedllm.ToolCall) (result unifiedllm.ToolResult, ok bool) {
	s.emitter.Emit(EventToolCallStart, map[string]interface{}{
		"tool_name": toolCall.Name,
		"call_id":   toolCall.ID,
		"arguments": toolCall.ArgumentsText(),
	})

	fail := func(msg string) (unifiedllm.ToolResult, bool) {
		s.emitter.Emit(EventToolCallEnd, map[string]interface{}{
			"tool_name": toolCall.Name,
			"call_id":   toolCall.ID,
			"error":     msg,
		})
		return unifiedllm.ToolResult{ToolCallID: toolCall.ID, Content: msg, IsError: true}, false
	}

	// A panicking document service fails this call, not the session.
	defer func() {
		if r := recover(); r != nil {
			result, ok = fail(fmt.Sprintf("Tool error (%s): panic: %v", toolCall.Name, r))
		}
	}()

	// 1. Decode into a typed invocation.
	inv, err := s.profile.Registry.Decode(toolCall)
	if errors.Is(err, ErrUnknownTool) {
		return fail(fmt.Sprintf("Unknown tool: %s", toolCall.Name))
	}
	if err != nil {
		return fail(fmt.Sprintf("Tool error (%s): %v", toolCall.Name, err))
	}

	// 2. Execute under the per-call deadline.
	callCtx := ctx
	if s.config.ToolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.ToolTimeout)
		defer cancel()
	}
	output, err := s.toolbox.Execute(callCtx, inv)
	if err != nil {
		return fail(fmt.Sprintf("Tool error (%s): %v", toolCall.Name, err))
	}

	encoded, err := json.Marshal(output)
	if err != nil {
		return fail(fmt.Sprintf("Tool error (%s): encode result: %v", toolCall.Name, err))
	}
	rawOutput := string(encoded)

	truncated := TruncateToolOutput(rawOutput, outputLimit(inv.Tool(), s.config.ToolOutputLimits))

	if ack, ok := output.(FinishAck); ok {
		s.emitter.Emit(EventRichTextFinished, map[string]interface{}{
			"element_count": ack.ElementCount,
		})
	}
	s.emitter.Emit(EventToolCallEnd, map[string]interface{}{
		"tool_name": toolCall.Name,
		"call_id":   toolCall.ID,
		"output":    rawOutput,
	})

	return unifiedllm.ToolResult{ToolCallID: toolCall.ID, Content: truncated}, true
}

// checkContextUsage emits a warning if context usage exceeds 80%.
func (s *Session) checkContextUsage() {
	history := s.History()
	contextWindow := s.profile.ContextWindow

	totalChars := 0
	for _, turn := range history {
		totalChars += turn.size()
	}

	approxTokens := totalChars / 4
	threshold := int(float64(contextWindow) * 0.8)
	if approxTokens > threshold {
		pct := int(float64(approxTokens) / float64(contextWindow) * 100)
		s.emitter.Emit(EventWarning, map[string]interface{}{
			"message": fmt.Sprintf("Context usage at ~%d%% of context window", pct),
		})
	}
}
