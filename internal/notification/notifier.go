// Package notification delivers run alerts to external channels.
package notification

import (
	"context"
	"log/slog"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "INFO"
	AlertWarning AlertLevel = "WARNING"
)

// Alert is one notification about a backtest run.
type Alert struct {
	Level   AlertLevel     `json:"level"`
	RunID   string         `json:"run_id,omitempty"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("[notify] "+alert.Title, "alert_level", alert.Level, "run_id", alert.RunID, "message", alert.Message)
	return nil
}
