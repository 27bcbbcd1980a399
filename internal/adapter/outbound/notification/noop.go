package notification

import (
	"context"
	"log/slog"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// NoopNotifier logs notifications instead of sending them. It is used when
// Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

var _ outbound.Notifier = (*NoopNotifier)(nil)

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyReport(_ context.Context, notification outbound.ReportNotification) error {
	n.logger.Info("noop: report notification",
		"reportID", notification.ReportID,
		"analysisID", notification.AnalysisID,
		"healthScore", notification.HealthScore,
		"overallRisk", notification.OverallRisk,
		"redFlags", len(notification.RedFlags),
		"level", notification.Level,
	)
	return nil
}

func (n *NoopNotifier) SendMessage(_ context.Context, message string, level outbound.NotificationLevel) error {
	n.logger.Info("noop: message", "message", message, "level", level)
	return nil
}
