package observability

import (
	"log/slog"

	"alphapoints/core/events"
)

// LogEmitter publishes ledger events as structured log lines. It is the
// default sink wired by the daemon; indexers tail the log stream.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements events.Emitter.
func (l LogEmitter) Emit(e events.Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("ledger event", "type", e.EventType(), "event", e)
}
