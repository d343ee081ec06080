package models

import "time"

// Share is a link granting read access to one version until ExpiresAt.
type Share struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ShareID   string `gorm:"size:36;not null;uniqueIndex"`
	VersionID string `gorm:"size:36;not null;index"`
	Owner     string `gorm:"size:64;not null;index"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}
