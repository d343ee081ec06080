package db

import (
	"fmt"

	"github.com/zulandar/vibeyard/internal/aimodel"
	"github.com/zulandar/vibeyard/internal/config"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/prompt"
	"github.com/zulandar/vibeyard/internal/settings"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Version{},
		&models.Application{},
		&models.Review{},
		&models.Feature{},
		&models.VersionFeature{},
		&models.AIModelConfig{},
		&models.Prompt{},
		&models.Setting{},
		&models.Share{},
		&models.Message{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Seed writes default prompts, initial settings and configured models.
// Safe to run repeatedly: prompts and settings are only inserted when
// absent, models are upserted by name.
func Seed(db *gorm.DB, cfg *config.Config) error {
	if err := prompt.Seed(db); err != nil {
		return fmt.Errorf("db: seed: %w", err)
	}
	initial := map[string]bool{
		settings.AutoPublishOnApproval:       cfg.Settings.AutoPublishOnApproval,
		settings.RequireReportBeforeApproval: cfg.Settings.RequireReportBeforeApproval,
	}
	if err := settings.Seed(db, initial); err != nil {
		return fmt.Errorf("db: seed: %w", err)
	}
	if err := aimodel.Seed(db, cfg.Models); err != nil {
		return fmt.Errorf("db: seed: %w", err)
	}
	return nil
}
