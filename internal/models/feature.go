package models

import "time"

// Feature is a deduplicated (type, name, lang) tag produced by risk analysis.
type Feature struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Type string `gorm:"size:32;not null;uniqueIndex:idx_feature_type_name_lang"`
	Name string `gorm:"size:255;not null;uniqueIndex:idx_feature_type_name_lang"`
	Lang string `gorm:"size:16;not null;default:en;uniqueIndex:idx_feature_type_name_lang"`
}

// VersionFeature links a feature to a version. The pair is unique.
type VersionFeature struct {
	VersionID string `gorm:"primaryKey;size:36"`
	FeatureID uint   `gorm:"primaryKey;index"`
	CreatedAt time.Time
}
