// Package aimodel manages model endpoint configurations and which one is
// active for each generation task.
package aimodel

import (
	"errors"
	"fmt"

	"github.com/zulandar/vibeyard/internal/config"
	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Task selects which activation flag an operation reads or writes.
type Task string

const (
	TaskCode    Task = config.TaskCodeGeneration
	TaskPreview Task = config.TaskPreviewGeneration
	TaskReport  Task = config.TaskReportGeneration
)

// Tasks lists every task in display order.
var Tasks = []Task{TaskCode, TaskPreview, TaskReport}

var (
	// ErrNotFound is returned when no config matches the lookup.
	ErrNotFound = errors.New("aimodel: not found")
	// ErrNoActive is returned when no config is active for a task.
	ErrNoActive = errors.New("aimodel: no active model")
	// ErrUnknownTask is returned for task names outside Tasks.
	ErrUnknownTask = errors.New("aimodel: unknown task")
	// ErrInvalid is returned when a required field is empty.
	ErrInvalid = errors.New("aimodel: invalid config")
)

// column maps a task to its boolean column.
func (t Task) column() (string, error) {
	switch t {
	case TaskCode:
		return "is_code_generation", nil
	case TaskPreview:
		return "is_preview_generation", nil
	case TaskReport:
		return "is_report_generation", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTask, string(t))
}

// ParseTask validates a task name.
func ParseTask(s string) (Task, error) {
	t := Task(s)
	if _, err := t.column(); err != nil {
		return "", err
	}
	return t, nil
}

// CreateOpts holds parameters for creating a model config.
type CreateOpts struct {
	Name        string
	APIKey      string
	ModelName   string
	EndpointURL string
}

// Create inserts a new, inactive model config.
func Create(db *gorm.DB, opts CreateOpts) (*models.AIModelConfig, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if opts.ModelName == "" {
		return nil, fmt.Errorf("%w: model name is required", ErrInvalid)
	}
	if opts.EndpointURL == "" {
		return nil, fmt.Errorf("%w: endpoint url is required", ErrInvalid)
	}
	m := &models.AIModelConfig{
		Name:        opts.Name,
		APIKey:      opts.APIKey,
		ModelName:   opts.ModelName,
		EndpointURL: opts.EndpointURL,
	}
	if err := db.Create(m).Error; err != nil {
		return nil, fmt.Errorf("aimodel: create %q: %w", opts.Name, err)
	}
	return m, nil
}

// UpdateOpts holds the fields to change on a config. Nil fields are left
// as they are, so a stored API key survives an edit that does not resend
// it.
type UpdateOpts struct {
	Name        *string
	APIKey      *string
	ModelName   *string
	EndpointURL *string
}

// Update edits config id in place. Task activation is not touched.
func Update(db *gorm.DB, id uint, opts UpdateOpts) (*models.AIModelConfig, error) {
	fields := map[string]interface{}{}
	for _, f := range []struct {
		column, label string
		value         *string
		required      bool
	}{
		{"name", "name", opts.Name, true},
		{"api_key", "api key", opts.APIKey, false},
		{"model_name", "model name", opts.ModelName, true},
		{"endpoint_url", "endpoint url", opts.EndpointURL, true},
	} {
		if f.value == nil {
			continue
		}
		if f.required && *f.value == "" {
			return nil, fmt.Errorf("%w: %s cannot be empty", ErrInvalid, f.label)
		}
		fields[f.column] = *f.value
	}

	if _, err := Get(db, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := db.Model(&models.AIModelConfig{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("aimodel: update %d: %w", id, err)
		}
	}
	return Get(db, id)
}

// Get loads a config by id.
func Get(db *gorm.DB, id uint) (*models.AIModelConfig, error) {
	var m models.AIModelConfig
	err := db.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("aimodel: get %d: %w", id, err)
	}
	return &m, nil
}

// GetByName loads a config by its unique name.
func GetByName(db *gorm.DB, name string) (*models.AIModelConfig, error) {
	var m models.AIModelConfig
	err := db.Where("name = ?", name).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("aimodel: get %q: %w", name, err)
	}
	return &m, nil
}

// List returns all configs ordered by name.
func List(db *gorm.DB) ([]models.AIModelConfig, error) {
	var ms []models.AIModelConfig
	if err := db.Order("name ASC").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("aimodel: list: %w", err)
	}
	return ms, nil
}

// Delete removes a config.
func Delete(db *gorm.DB, id uint) error {
	result := db.Delete(&models.AIModelConfig{}, id)
	if result.Error != nil {
		return fmt.Errorf("aimodel: delete %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// Activate sets or clears the task flag on config id. Enabling clears the
// flag on every other config in the same transaction so at most one config
// is active per task.
func Activate(db *gorm.DB, id uint, task Task, enabled bool) error {
	col, err := task.column()
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var m models.AIModelConfig
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrNotFound, id)
			}
			return fmt.Errorf("aimodel: activate load %d: %w", id, err)
		}
		if enabled {
			if err := tx.Model(&models.AIModelConfig{}).
				Where(col+" = ? AND id <> ?", true, id).
				Update(col, false).Error; err != nil {
				return fmt.Errorf("aimodel: clear %s: %w", task, err)
			}
		}
		if err := tx.Model(&models.AIModelConfig{}).Where("id = ?", id).Update(col, enabled).Error; err != nil {
			return fmt.Errorf("aimodel: set %s on %d: %w", task, id, err)
		}
		return nil
	})
}

// Active returns the config currently active for task.
func Active(db *gorm.DB, task Task) (*models.AIModelConfig, error) {
	col, err := task.column()
	if err != nil {
		return nil, err
	}
	var m models.AIModelConfig
	err = db.Where(col+" = ?", true).Order("id ASC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w for %s", ErrNoActive, task)
	}
	if err != nil {
		return nil, fmt.Errorf("aimodel: active %s: %w", task, err)
	}
	return &m, nil
}

// Seed upserts configs from configuration by name and activates each one for
// the tasks it lists. Later entries win when two entries claim a task.
func Seed(db *gorm.DB, cfgs []config.ModelConfig) error {
	for _, mc := range cfgs {
		m := models.AIModelConfig{
			Name:        mc.Name,
			APIKey:      mc.APIKey,
			ModelName:   mc.ModelName,
			EndpointURL: mc.EndpointURL,
		}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"api_key", "model_name", "endpoint_url", "updated_at"}),
		}).Create(&m)
		if result.Error != nil {
			return fmt.Errorf("aimodel: seed %q: %w", mc.Name, result.Error)
		}
		stored, err := GetByName(db, mc.Name)
		if err != nil {
			return err
		}
		for _, t := range mc.Tasks {
			task, err := ParseTask(t)
			if err != nil {
				return err
			}
			if err := Activate(db, stored.ID, task, true); err != nil {
				return err
			}
		}
	}
	return nil
}
