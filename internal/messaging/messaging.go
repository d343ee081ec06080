// Package messaging delivers workflow notices to application owners.
package messaging

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
)

// Message priorities.
const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

// SenderWorker is the sender name used for messages from the background
// worker.
const SenderWorker = "vibeyard"

// ErrNotFound is returned when a message does not exist in the caller's
// inbox.
var ErrNotFound = errors.New("messaging: message not found")

// SendOpts holds optional parameters for sending a message.
type SendOpts struct {
	ApplicationID uint
	Priority      string // "normal" (default), "urgent"
}

// Send creates a new message from one user to another.
func Send(db *gorm.DB, from, to, subject, body string, opts SendOpts) (*models.Message, error) {
	if from == "" {
		return nil, fmt.Errorf("messaging: from is required")
	}
	if to == "" {
		return nil, fmt.Errorf("messaging: to is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("messaging: subject is required")
	}

	priority := opts.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if priority != PriorityNormal && priority != PriorityUrgent {
		return nil, fmt.Errorf("messaging: invalid priority %q", priority)
	}

	msg := models.Message{
		Sender:    from,
		Recipient: to,
		Subject:   subject,
		Body:      body,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
	if opts.ApplicationID != 0 {
		id := opts.ApplicationID
		msg.ApplicationID = &id
	}

	if err := db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("messaging: send: %w", err)
	}
	return &msg, nil
}

// Inbox returns unacknowledged messages for a user, oldest first.
func Inbox(db *gorm.DB, recipient string) ([]models.Message, error) {
	if recipient == "" {
		return nil, fmt.Errorf("messaging: recipient is required")
	}

	var msgs []models.Message
	if err := db.Where("recipient = ? AND acknowledged = ?", recipient, false).
		Order("created_at ASC").Order("id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("messaging: inbox %s: %w", recipient, err)
	}
	return msgs, nil
}

// Acknowledge marks a message in recipient's inbox as read.
func Acknowledge(db *gorm.DB, messageID uint, recipient string) error {
	result := db.Model(&models.Message{}).
		Where("id = ? AND recipient = ?", messageID, recipient).
		Update("acknowledged", true)
	if result.Error != nil {
		return fmt.Errorf("messaging: acknowledge %d: %w", messageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, messageID)
	}
	return nil
}
