// Package notify fans lifecycle and worker events out to chat channels.
// Delivery is best-effort: failures are logged and never block the caller.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/vibeyard/internal/config"
	"github.com/zulandar/vibeyard/internal/logger"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Severity values.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Event is a platform-neutral notification.
type Event struct {
	Title    string
	Body     string
	Severity string
	Fields   []Field
}

// Field is a key-value pair shown with an event.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Color returns the sidebar color for the event's severity.
func (e Event) Color() string {
	switch e.Severity {
	case SeveritySuccess:
		return ColorSuccess
	case SeverityWarning:
		return ColorWarning
	case SeverityError:
		return ColorError
	default:
		return ColorInfo
	}
}

// Notifier delivers events to one destination.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// Nop drops every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) error { return nil }

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, evt Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send delivers evt and logs instead of returning a failure.
func Send(ctx context.Context, n Notifier, log *logger.Logger, evt Event) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, evt); err != nil && log != nil {
		log.Warn("notification failed", "title", evt.Title, "error", err)
	}
}

// FromConfig builds the notifiers enabled in cfg. With nothing configured
// it returns Nop.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var m Multi
	if cfg.SlackWebhookURL != "" {
		m = append(m, NewSlack(cfg.SlackWebhookURL))
	}
	if cfg.Discord.BotToken != "" {
		d, err := NewDiscord(cfg.Discord.BotToken, cfg.Discord.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		m = append(m, d)
	}
	if len(m) == 0 {
		return Nop{}, nil
	}
	return m, nil
}
