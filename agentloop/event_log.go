package agentloop

import (
	"encoding/json"
	"log/slog"
)

// LogEvents forwards session events to logger until the channel is closed.
// Problems are logged at Warn or Error, lifecycle milestones at Info, and
// everything else at Debug with the event payload as JSON.
func LogEvents(logger *slog.Logger, events <-chan SessionEvent) {
	if logger == nil {
		for range events {
		}
		return
	}
	for event := range events {
		logEvent(logger, event)
	}
}

func logEvent(logger *slog.Logger, event SessionEvent) {
	attrs := []any{
		slog.String("session", event.SessionID),
		slog.String("kind", string(event.Kind)),
	}
	switch event.Kind {
	case EventError:
		logger.Error("session event", append(attrs, dataAttrs(event.Data)...)...)
	case EventWarning, EventTurnLimit, EventLoopDetection:
		logger.Warn("session event", append(attrs, dataAttrs(event.Data)...)...)
	case EventSessionEnd, EventRichTextFinished:
		logger.Info("session event", append(attrs, dataAttrs(event.Data)...)...)
	default:
		payload, err := json.Marshal(event.Data)
		if err != nil {
			logger.Debug("session event", append(attrs, slog.Any("data", event.Data))...)
			return
		}
		logger.Debug("session event", append(attrs, slog.String("data", string(payload)))...)
	}
}

func dataAttrs(data map[string]interface{}) []any {
	attrs := make([]any, 0, len(data))
	for k, v := range data {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}
