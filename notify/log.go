package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender mirrors notifications into the structured log. It is always
// registered so events remain visible when no chat channel is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-backed sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name returns the sender identifier
func (l *LogSender) Name() string {
	return "log"
}

// Send writes the notification to the log
func (l *LogSender) Send(_ context.Context, title, message string) error {
	l.logger.Info("notification", zap.String("title", title), zap.String("message", message))
	return nil
}
