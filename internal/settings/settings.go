// Package settings reads and writes global boolean switches.
package settings

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Known setting keys.
const (
	AutoPublishOnApproval       = "auto_publish_on_approval"
	RequireReportBeforeApproval = "require_report_before_approval"
)

// Known lists the keys that can be set.
var Known = []string{AutoPublishOnApproval, RequireReportBeforeApproval}

// ErrUnknownKey is returned when setting a key outside Known.
var ErrUnknownKey = errors.New("settings: unknown key")

func isKnown(key string) bool {
	for _, k := range Known {
		if k == key {
			return true
		}
	}
	return false
}

// Bool reads a boolean setting. Missing or unparsable values read as false.
func Bool(db *gorm.DB, key string) (bool, error) {
	var s models.Setting
	err := db.Where(&models.Setting{Key: key}).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("settings: read %s: %w", key, err)
	}
	v, err := strconv.ParseBool(s.Value)
	if err != nil {
		return false, nil
	}
	return v, nil
}

// SetBool writes a boolean setting.
func SetBool(db *gorm.DB, key string, value bool) error {
	if !isKnown(key) {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	s := models.Setting{Key: key, Value: strconv.FormatBool(value)}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&s)
	if result.Error != nil {
		return fmt.Errorf("settings: write %s: %w", key, result.Error)
	}
	return nil
}

// All returns every known setting with its current value.
func All(db *gorm.DB) (map[string]bool, error) {
	out := make(map[string]bool, len(Known))
	for _, k := range Known {
		v, err := Bool(db, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Seed inserts initial values for settings that have never been written.
func Seed(db *gorm.DB, initial map[string]bool) error {
	for _, k := range Known {
		s := models.Setting{Key: k, Value: strconv.FormatBool(initial[k])}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&s)
		if result.Error != nil {
			return fmt.Errorf("settings: seed %s: %w", k, result.Error)
		}
	}
	return nil
}
