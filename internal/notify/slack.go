package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// postFunc matches slack.PostWebhookContext.
type postFunc func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Slack posts events to an incoming webhook.
type Slack struct {
	webhookURL string
	post       postFunc
}

// NewSlack returns a notifier for an incoming webhook URL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL, post: slackapi.PostWebhookContext}
}

// Notify implements Notifier.
func (s *Slack) Notify(ctx context.Context, evt Event) error {
	msg := &slackapi.WebhookMessage{
		Text:        evt.Title,
		Attachments: []slackapi.Attachment{eventToAttachment(evt)},
	}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

// eventToAttachment converts an Event to a Slack Attachment.
func eventToAttachment(evt Event) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:    evt.Title,
		Text:     evt.Body,
		Color:    evt.Color(),
		Fallback: evt.Title,
	}
	for _, f := range evt.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}
