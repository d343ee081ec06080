package models

import "time"

// Prompt is a named, editable prompt template with {placeholder} variables.
type Prompt struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:64;not null;uniqueIndex"`
	Content   string `gorm:"type:mediumtext;not null"`
	UpdatedAt time.Time
}
