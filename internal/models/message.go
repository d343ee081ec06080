package models

import "time"

// Message is a workflow notice delivered to one user's inbox.
type Message struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	Sender        string `gorm:"size:64;not null"`
	Recipient     string `gorm:"size:64;not null;index"`
	ApplicationID *uint  `gorm:"index"`
	Subject       string `gorm:"size:256"`
	Body          string `gorm:"type:text"`
	Priority      string `gorm:"size:8;default:normal"`
	Acknowledged  bool   `gorm:"default:false;index"`
	CreatedAt     time.Time
}
