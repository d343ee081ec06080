package models

import "time"

// AIModelConfig is a named credential and endpoint bundle. Each Is* flag
// marks the config as the active one for that task.
type AIModelConfig struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	Name                string `gorm:"size:128;not null;uniqueIndex"`
	APIKey              string `gorm:"size:512"`
	ModelName           string `gorm:"size:128;not null"`
	EndpointURL         string `gorm:"size:512;not null"`
	IsCodeGeneration    bool   `gorm:"default:false"`
	IsPreviewGeneration bool   `gorm:"default:false"`
	IsReportGeneration  bool   `gorm:"default:false"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
