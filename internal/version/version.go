// Package version stores immutable artifact versions and reconstructs the
// branch history behind any version.
package version

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ManualEditRequest marks a version produced by a direct code edit instead
// of a model call.
const ManualEditRequest = "manual-edit-by-user"

var (
	// ErrValidation reports bad graph linkage or missing fields.
	ErrValidation = errors.New("version: validation failed")
	// ErrCorruptGraph reports a parent chain that loops or dangles.
	ErrCorruptGraph = errors.New("version: corrupt graph")
	// ErrNotFound is returned when a version id does not resolve.
	ErrNotFound = errors.New("version: not found")
)

// CreateOpts holds parameters for appending a version.
type CreateOpts struct {
	SessionID   string
	ParentID    string // empty for the session root
	UserRequest string
	RawOutput   string
	Content     string
}

// Create appends a version to its session. The parent, when given, must be
// in the same session; a session has exactly one root, enforced by the
// unique root_of index. Nothing is written when validation fails. Pass a
// transaction to make the insert part of a larger unit of work.
func Create(db *gorm.DB, opts CreateOpts) (*models.Version, error) {
	if opts.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrValidation)
	}
	if opts.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	v := &models.Version{
		ID:             uuid.NewString(),
		SessionID:      opts.SessionID,
		UserRequest:    opts.UserRequest,
		RawModelOutput: opts.RawOutput,
		Content:        opts.Content,
	}

	if opts.ParentID != "" {
		var parent models.Version
		err := db.Where("id = ?", opts.ParentID).First(&parent).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: parent %s not found", ErrValidation, opts.ParentID)
		}
		if err != nil {
			return nil, fmt.Errorf("version: load parent %s: %w", opts.ParentID, err)
		}
		if parent.SessionID != opts.SessionID {
			return nil, fmt.Errorf("%w: parent %s belongs to session %s, not %s",
				ErrValidation, parent.ID, parent.SessionID, opts.SessionID)
		}
		v.ParentID = &parent.ID
		v.PreviewArtifact = parent.PreviewArtifact
	} else {
		exists, err := hasRoot(db, opts.SessionID, false)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: session %s already has a root version", ErrValidation, opts.SessionID)
		}
		v.RootOf = &v.SessionID
	}

	if err := db.Create(v).Error; err != nil {
		// A concurrent first request can win the root between the check
		// and the insert; the unique index on root_of rejects the loser.
		if v.RootOf != nil {
			if exists, _ := hasRoot(db, opts.SessionID, true); exists {
				return nil, fmt.Errorf("%w: session %s already has a root version", ErrValidation, opts.SessionID)
			}
		}
		return nil, fmt.Errorf("version: create: %w", err)
	}
	return v, nil
}

// hasRoot reports whether sessionID already has a root. A locking read sees
// rows committed after the caller's transaction began.
func hasRoot(db *gorm.DB, sessionID string, locking bool) (bool, error) {
	q := db.Model(&models.Version{}).Where("root_of = ?", sessionID)
	if locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("version: count roots of %s: %w", sessionID, err)
	}
	return n > 0, nil
}

// Get loads a version by id.
func Get(db *gorm.DB, id string) (*models.Version, error) {
	var v models.Version
	err := db.Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("version: get %s: %w", id, err)
	}
	return &v, nil
}

// SessionVersions returns every version of a session in creation order.
func SessionVersions(db *gorm.DB, sessionID string) ([]models.Version, error) {
	var vs []models.Version
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("version: list session %s: %w", sessionID, err)
	}
	return vs, nil
}

// SetPreview back-fills the preview artifact of a version.
func SetPreview(db *gorm.DB, id, html string) error {
	return backfill(db, id, map[string]interface{}{"preview_artifact": html})
}

// SetDetails back-fills the descriptive text of a version.
func SetDetails(db *gorm.DB, id, functional, operating string) error {
	return backfill(db, id, map[string]interface{}{
		"functional_description": functional,
		"operating_instructions": operating,
	})
}

func backfill(db *gorm.DB, id string, fields map[string]interface{}) error {
	result := db.Model(&models.Version{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("version: update %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
