// Package prompt stores the editable prompt templates used by generation.
package prompt

import (
	"errors"
	"fmt"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no prompt has the requested name.
var ErrNotFound = errors.New("prompt: not found")

// Get returns the template content stored under name.
func Get(db *gorm.DB, name string) (string, error) {
	var p models.Prompt
	err := db.Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("prompt: get %q: %w", name, err)
	}
	return p.Content, nil
}

// Set creates or replaces the template stored under name.
func Set(db *gorm.DB, name, content string) error {
	if name == "" {
		return fmt.Errorf("prompt: name is required")
	}
	if content == "" {
		return fmt.Errorf("prompt: content is required")
	}
	p := models.Prompt{Name: name, Content: content}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&p)
	if result.Error != nil {
		return fmt.Errorf("prompt: set %q: %w", name, result.Error)
	}
	return nil
}

// List returns every stored prompt ordered by name.
func List(db *gorm.DB) ([]models.Prompt, error) {
	var ps []models.Prompt
	if err := db.Order("name ASC").Find(&ps).Error; err != nil {
		return nil, fmt.Errorf("prompt: list: %w", err)
	}
	return ps, nil
}

// Seed inserts the default templates that are not already stored. Edited
// templates are left alone.
func Seed(db *gorm.DB) error {
	for _, name := range []string{NameCodeGeneration, NameAppTemplate, NameRiskAnalysis} {
		p := models.Prompt{Name: name, Content: Defaults[name]}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&p)
		if result.Error != nil {
			return fmt.Errorf("prompt: seed %q: %w", name, result.Error)
		}
	}
	return nil
}
