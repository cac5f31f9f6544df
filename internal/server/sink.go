package server

import (
	"context"
	"log/slog"

	"github.com/centsible/centsible/internal/model"
)

// LogSink is the default AlertSink: alerts go to the structured log and
// nowhere else. Real delivery (push, email) hangs off the same interface in
// the notification service.
type LogSink struct{}

// Emit logs each alert at a level matching its severity.
func (LogSink) Emit(_ context.Context, ownerID string, alerts []model.Alert) error {
	for _, alert := range alerts {
		level := slog.LevelInfo
		if alert.Severity == model.SeverityWarning {
			level = slog.LevelWarn
		}
		slog.Log(context.Background(), level, "budget alert",
			"owner_id", ownerID,
			"kind", alert.Kind,
			"category", alert.Category,
			"message", alert.Message)
	}
	return nil
}
