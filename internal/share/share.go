// Package share manages read-only links to a single version.
package share

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/version"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned for unknown share ids, and for shares owned by
	// someone else on mutation.
	ErrNotFound = errors.New("share: not found")
	// ErrExpired is returned when resolving a share past its expiry.
	ErrExpired = errors.New("share: expired")
)

// Create issues a share link for versionID. A zero ttl never expires.
func Create(db *gorm.DB, versionID, owner string, ttl time.Duration) (*models.Share, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", version.ErrValidation)
	}
	if ttl < 0 {
		return nil, fmt.Errorf("%w: negative ttl", version.ErrValidation)
	}
	if _, err := version.Get(db, versionID); err != nil {
		return nil, err
	}

	s := &models.Share{
		ShareID:   uuid.NewString(),
		VersionID: versionID,
		Owner:     owner,
	}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		s.ExpiresAt = &exp
	}
	if err := db.Create(s).Error; err != nil {
		return nil, fmt.Errorf("share: create for %s: %w", versionID, err)
	}
	return s, nil
}

// Resolve returns the shared version.
func Resolve(db *gorm.DB, shareID string) (*models.Version, error) {
	var s models.Share
	err := db.Where("share_id = ?", shareID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, shareID)
	}
	if err != nil {
		return nil, fmt.Errorf("share: resolve %s: %w", shareID, err)
	}
	if s.ExpiresAt != nil && !time.Now().Before(*s.ExpiresAt) {
		return nil, fmt.Errorf("%w: %s at %s", ErrExpired, shareID, s.ExpiresAt.Format(time.RFC3339))
	}
	return version.Get(db, s.VersionID)
}

// ListByOwner returns the owner's shares, newest first.
func ListByOwner(db *gorm.DB, owner string) ([]models.Share, error) {
	var shares []models.Share
	if err := db.Where("owner = ?", owner).Order("created_at DESC").Order("id DESC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("share: list for %s: %w", owner, err)
	}
	return shares, nil
}

// Delete revokes a share owned by owner.
func Delete(db *gorm.DB, shareID, owner string) error {
	result := db.Where("share_id = ? AND owner = ?", shareID, owner).Delete(&models.Share{})
	if result.Error != nil {
		return fmt.Errorf("share: delete %s: %w", shareID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, shareID)
	}
	return nil
}
