package models

import "time"

// Review is an append-only reviewer decision on a submitted version.
type Review struct {
	ID            uint     `gorm:"primaryKey;autoIncrement"`
	ApplicationID uint     `gorm:"not null;index"`
	VersionID     string   `gorm:"size:36;not null"`
	Reviewer      string   `gorm:"size:64;not null"`
	Decision      Decision `gorm:"not null"`
	Comments      string   `gorm:"type:text"`
	CreatedAt     time.Time
}
