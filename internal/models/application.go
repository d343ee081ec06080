package models

import "time"

// Application is the publishing-facing projection of a session.
type Application struct {
	ID                       uint      `gorm:"primaryKey;autoIncrement"`
	SessionID                string    `gorm:"size:36;not null;uniqueIndex"`
	Owner                    string    `gorm:"size:64;not null;index"`
	Name                     string    `gorm:"size:255;not null"`
	Description              string    `gorm:"type:text"`
	Status                   AppStatus `gorm:"default:0;index"`
	LatestSubmittedVersionID *string   `gorm:"size:36"`
	LiveVersionID            *string   `gorm:"size:36"`
	SubmittedAt              *time.Time
	LastReviewedAt           *time.Time
	PublishedAt              *time.Time
	PreviewStatus            PreviewStatus `gorm:"column:preview_generation_status;default:0;index"`
	PreviewRetries           int           `gorm:"column:preview_generation_retries;default:0"`
	PreviewError             string        `gorm:"column:preview_generation_error;type:text"`
	PreviewClaimedAt         *time.Time    `gorm:"column:preview_claimed_at"`
	CreatedAt                time.Time
	UpdatedAt                time.Time `gorm:"index"`
}
