package agentloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/martinemde/notionagent/richtext"
)

// ErrNoRichText is returned by Driver.Run when the session ended without a
// non-empty finished rich text.
var ErrNoRichText = errors.New("no rich text was produced")

// Writer receives the finished rich text. *notion.Workspace satisfies it.
type Writer interface {
	WriteTarget(ctx context.Context, segments []richtext.Segment) error
}

// RunResult is the outcome of Driver.Run.
type RunResult struct {
	*Result
	Written  bool
	WriteErr error
}

// Driver runs one session per prompt and forwards the finished rich text to
// the writer exactly once.
type Driver struct {
	client  Completer
	docs    DocumentService
	writer  Writer
	profile Profile
	config  SessionConfig
	logger  *slog.Logger
}

// NewDriver creates a Driver. A nil config uses DefaultSessionConfig and a
// nil logger discards session events.
func NewDriver(client Completer, docs DocumentService, writer Writer, profile Profile, config *SessionConfig, logger *slog.Logger) *Driver {
	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}
	return &Driver{
		client:  client,
		docs:    docs,
		writer:  writer,
		profile: profile,
		config:  cfg,
		logger:  logger,
	}
}

// Run executes prompt in a fresh session. The returned RunResult is non-nil
// whenever the session ran, even if an error is also returned.
func (d *Driver) Run(ctx context.Context, prompt string) (*RunResult, error) {
	session := NewSession(d.client, d.docs, d.profile, &d.config)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		LogEvents(d.logger, session.Events())
	}()
	defer func() {
		session.Close()
		wg.Wait()
		if n := session.DroppedEvents(); n > 0 && d.logger != nil {
			d.logger.Warn("session events dropped", slog.String("session", session.ID()), slog.Int64("count", n))
		}
	}()

	result, err := session.Run(ctx, prompt)
	if result == nil {
		return nil, err
	}
	out := &RunResult{Result: result}
	if err != nil {
		return out, err
	}

	if len(result.Segments) == 0 {
		return out, ErrNoRichText
	}

	if err := d.writer.WriteTarget(ctx, result.Segments); err != nil {
		out.WriteErr = err
		return out, fmt.Errorf("write rich text: %w", err)
	}
	out.Written = true
	if d.logger != nil {
		d.logger.Info("rich text written",
			slog.String("session", session.ID()),
			slog.Int("elements", len(result.Segments)),
			slog.Int("iterations", result.Iterations),
		)
	}
	return out, nil
}
