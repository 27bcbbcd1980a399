package slack

import (
	"context"
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// Config holds Slack notifier configuration.
type Config struct {
	BotToken string
	Channel  string
	// APIURL overrides the Slack Web API base URL.
	APIURL string
}

// Notifier implements outbound.Notifier via the Slack API.
type Notifier struct {
	client  *slackapi.Client
	channel string
}

var _ outbound.Notifier = (*Notifier)(nil)

func NewNotifier(cfg Config) *Notifier {
	var opts []slackapi.Option
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	return &Notifier{
		client:  slackapi.New(cfg.BotToken, opts...),
		channel: cfg.Channel,
	}
}

// NotifyReport posts a Block Kit report card.
func (n *Notifier) NotifyReport(ctx context.Context, notification outbound.ReportNotification) error {
	fallback := fmt.Sprintf("[%s] %s scored %d (%s)",
		strings.ToUpper(string(notification.Level)),
		notification.Filename, notification.HealthScore, notification.OverallRisk)

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slackapi.MsgOptionBlocks(BuildReportBlocks(notification)...),
		slackapi.MsgOptionText(fallback, false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifyReport: %w", err)
	}
	return nil
}

// SendMessage posts a plain text message prefixed with an emoji for the level.
func (n *Notifier) SendMessage(ctx context.Context, message string, level outbound.NotificationLevel) error {
	text := fmt.Sprintf("%s %s", levelEmoji(level), message)
	_, _, err := n.client.PostMessageContext(ctx, n.channel, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack SendMessage: %w", err)
	}
	return nil
}

func levelEmoji(level outbound.NotificationLevel) string {
	switch level {
	case outbound.NotificationCritical:
		return ":red_circle:"
	case outbound.NotificationWarning:
		return ":large_yellow_circle:"
	default:
		return ":information_source:"
	}
}
