package lifecycle

import (
	"errors"
	"fmt"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
)

// Get loads an application by id.
func Get(db *gorm.DB, id uint) (*models.Application, error) {
	var app models.Application
	err := db.First(&app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lifecycle: get %d: %w", id, err)
	}
	return &app, nil
}

// GetBySession loads the application of a session.
func GetBySession(db *gorm.DB, sessionID string) (*models.Application, error) {
	var app models.Application
	err := db.Where("session_id = ?", sessionID).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("lifecycle: get session %s: %w", sessionID, err)
	}
	return &app, nil
}

// ListByOwner returns the owner's applications that are not deleted, most
// recently updated first.
func ListByOwner(db *gorm.DB, owner string) ([]models.Application, error) {
	var apps []models.Application
	if err := db.Where("owner = ? AND status <> ?", owner, models.StatusDeleted).
		Order("updated_at DESC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("lifecycle: list for %s: %w", owner, err)
	}
	return apps, nil
}

// ListByStatus returns applications in a status, oldest submission first.
func ListByStatus(db *gorm.DB, status models.AppStatus) ([]models.Application, error) {
	var apps []models.Application
	if err := db.Where("status = ?", status).
		Order("submitted_at ASC").Order("id ASC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("lifecycle: list %s: %w", status, err)
	}
	return apps, nil
}

// Reviews returns the review trail of an application, oldest first.
func Reviews(db *gorm.DB, appID uint) ([]models.Review, error) {
	var rs []models.Review
	if err := db.Where("application_id = ?", appID).Order("id ASC").Find(&rs).Error; err != nil {
		return nil, fmt.Errorf("lifecycle: reviews for %d: %w", appID, err)
	}
	return rs, nil
}
