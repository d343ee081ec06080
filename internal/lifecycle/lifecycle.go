// Package lifecycle moves applications through draft, review, publication
// and retirement. Every operation is a single transaction whose status write
// is conditional on the status it read.
package lifecycle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/settings"
	"github.com/zulandar/vibeyard/internal/tagger"
	"github.com/zulandar/vibeyard/internal/version"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInvalidTransition is wrapped by every *TransitionError.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")
	// ErrReportRequired blocks approval of a version without a risk report
	// while require_report_before_approval is on.
	ErrReportRequired = errors.New("lifecycle: risk report required before approval")
	// ErrNotFound is returned when no application matches.
	ErrNotFound = errors.New("lifecycle: application not found")
)

// ValidTransitions maps each status to the statuses its owner-facing
// operations may move it to. Administrative unpublish (any → rejected) is
// handled by Archive.
var ValidTransitions = map[models.AppStatus][]models.AppStatus{
	models.StatusDraft:           {models.StatusPendingApproval, models.StatusDeleted},
	models.StatusPendingApproval: {models.StatusApproved, models.StatusRejected, models.StatusDraft},
	models.StatusApproved:        {models.StatusPublished},
	models.StatusRejected:        {models.StatusPendingApproval},
	models.StatusPublished:       {models.StatusArchived},
	models.StatusArchived:        {models.StatusDeleted},
}

// TransitionError describes a rejected lifecycle operation.
type TransitionError struct {
	AppID uint
	Op    string
	From  models.AppStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle: cannot %s application %d in status %s; valid next statuses: %v",
		e.Op, e.AppID, e.From, ValidTransitions[e.From])
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// isValidTransition checks whether a status transition is allowed.
func isValidTransition(from, to models.AppStatus) bool {
	for _, v := range ValidTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}

// lockApp loads an application for update inside tx.
func lockApp(tx *gorm.DB, id uint) (*models.Application, error) {
	var app models.Application
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lifecycle: load application %d: %w", id, err)
	}
	return &app, nil
}

// apply writes fields and the new status, conditional on the application
// still being in the status it was read in.
func apply(tx *gorm.DB, app *models.Application, op string, to models.AppStatus, fields map[string]interface{}) error {
	fields["status"] = to
	result := tx.Model(&models.Application{}).
		Where("id = ? AND status = ?", app.ID, app.Status).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("lifecycle: %s application %d: %w", op, app.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &TransitionError{AppID: app.ID, Op: op, From: app.Status}
	}
	app.Status = to
	return nil
}

// step runs one guarded transition in its own transaction and returns the
// updated row.
func step(db *gorm.DB, id uint, op string, to models.AppStatus, fields func(tx *gorm.DB, app *models.Application) (map[string]interface{}, error)) (*models.Application, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		app, err := lockApp(tx, id)
		if err != nil {
			return err
		}
		if !isValidTransition(app.Status, to) {
			return &TransitionError{AppID: id, Op: op, From: app.Status}
		}
		f, err := fields(tx, app)
		if err != nil {
			return err
		}
		return apply(tx, app, op, to, f)
	})
	if err != nil {
		return nil, err
	}
	return Get(db, id)
}

// DraftOpts holds parameters for the lazily created draft.
type DraftOpts struct {
	SessionID string
	Owner     string
	VersionID string
	Content   string
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// DraftName derives an application name from the page title.
func DraftName(sessionID, content string) string {
	if m := titleRe.FindStringSubmatch(content); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return "Untitled App-" + short
}

// EnsureDraft returns the session's application, creating it as a draft
// pointing at the given version when none exists yet.
func EnsureDraft(db *gorm.DB, opts DraftOpts) (*models.Application, error) {
	if opts.SessionID == "" || opts.Owner == "" {
		return nil, fmt.Errorf("lifecycle: session and owner are required")
	}
	if app, err := GetBySession(db, opts.SessionID); err == nil {
		return app, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	app := models.Application{
		SessionID: opts.SessionID,
		Owner:     opts.Owner,
		Name:      DraftName(opts.SessionID, opts.Content),
		Status:    models.StatusDraft,
	}
	if opts.VersionID != "" {
		app.LatestSubmittedVersionID = &opts.VersionID
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&app)
	if result.Error != nil {
		return nil, fmt.Errorf("lifecycle: create draft for %s: %w", opts.SessionID, result.Error)
	}
	return GetBySession(db, opts.SessionID)
}

// Submit sends a version of the application for review and queues its
// derived artifacts.
func Submit(db *gorm.DB, appID uint, versionID, name string) (*models.Application, error) {
	return step(db, appID, "submit", models.StatusPendingApproval, func(tx *gorm.DB, app *models.Application) (map[string]interface{}, error) {
		v, err := version.Get(tx, versionID)
		if err != nil {
			if errors.Is(err, version.ErrNotFound) {
				return nil, fmt.Errorf("%w: version %s not found", version.ErrValidation, versionID)
			}
			return nil, err
		}
		if v.SessionID != app.SessionID {
			return nil, fmt.Errorf("%w: version %s is not part of application %d", version.ErrValidation, versionID, app.ID)
		}
		fields := map[string]interface{}{
			"latest_submitted_version_id": v.ID,
			"submitted_at":                time.Now(),
			"preview_generation_status":   models.PreviewPending,
			"preview_generation_retries":  0,
			"preview_generation_error":    "",
		}
		if name = strings.TrimSpace(name); name != "" {
			fields["name"] = name
		}
		return fields, nil
	})
}

// CancelSubmission withdraws a pending submission. A derivation that has
// not been claimed yet is withdrawn with it; one already running has its
// result dropped by the worker.
func CancelSubmission(db *gorm.DB, appID uint) (*models.Application, error) {
	return step(db, appID, "cancel", models.StatusDraft, func(_ *gorm.DB, app *models.Application) (map[string]interface{}, error) {
		if app.Status != models.StatusPendingApproval {
			return nil, &TransitionError{AppID: app.ID, Op: "cancel", From: app.Status}
		}
		return map[string]interface{}{
			"submitted_at": nil,
			"preview_generation_status": gorm.Expr(
				"CASE WHEN preview_generation_status IN (?, ?) THEN ? ELSE preview_generation_status END",
				models.PreviewPending, models.PreviewFailed, models.PreviewNone),
		}, nil
	})
}

// Publish makes the latest submitted version live.
func Publish(db *gorm.DB, appID uint) (*models.Application, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		app, err := lockApp(tx, appID)
		if err != nil {
			return err
		}
		return publishLocked(tx, app)
	})
	if err != nil {
		return nil, err
	}
	return Get(db, appID)
}

func publishLocked(tx *gorm.DB, app *models.Application) error {
	if !isValidTransition(app.Status, models.StatusPublished) {
		return &TransitionError{AppID: app.ID, Op: "publish", From: app.Status}
	}
	if app.LatestSubmittedVersionID == nil {
		return fmt.Errorf("%w: application %d has no submitted version", version.ErrValidation, app.ID)
	}
	fields := map[string]interface{}{
		"live_version_id": *app.LatestSubmittedVersionID,
	}
	if app.PublishedAt == nil {
		fields["published_at"] = time.Now()
	}
	return apply(tx, app, "publish", models.StatusPublished, fields)
}

// Archive retires an application. Owners archive a published app; an
// administrator unpublishes from any status by rejecting it, which forces a
// new submission before it can go live again.
func Archive(db *gorm.DB, appID uint, byAdmin bool) (*models.Application, error) {
	if !byAdmin {
		return step(db, appID, "archive", models.StatusArchived, func(*gorm.DB, *models.Application) (map[string]interface{}, error) {
			return map[string]interface{}{}, nil
		})
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		app, err := lockApp(tx, appID)
		if err != nil {
			return err
		}
		if app.Status == models.StatusDeleted {
			return &TransitionError{AppID: appID, Op: "unpublish", From: app.Status}
		}
		return apply(tx, app, "unpublish", models.StatusRejected, map[string]interface{}{
			"live_version_id": nil,
		})
	})
	if err != nil {
		return nil, err
	}
	return Get(db, appID)
}

// Delete soft-deletes a draft or archived application.
func Delete(db *gorm.DB, appID uint) (*models.Application, error) {
	return step(db, appID, "delete", models.StatusDeleted, func(*gorm.DB, *models.Application) (map[string]interface{}, error) {
		return map[string]interface{}{}, nil
	})
}

// ReviewOpts holds a reviewer decision.
type ReviewOpts struct {
	Reviewer string
	Decision models.Decision
	Comments string
}

// ReviewOutcome is the result of Review.
type ReviewOutcome struct {
	Application *models.Application
	Review      models.Review
	Published   bool
}

// Review records a decision on a pending submission. With
// auto_publish_on_approval on, an approval also publishes in the same
// transaction, so the approved state is never visible on its own.
func Review(db *gorm.DB, appID uint, opts ReviewOpts) (*ReviewOutcome, error) {
	if opts.Reviewer == "" {
		return nil, fmt.Errorf("lifecycle: reviewer is required")
	}
	var to models.AppStatus
	switch opts.Decision {
	case models.DecisionApprove:
		to = models.StatusApproved
	case models.DecisionReject:
		to = models.StatusRejected
	default:
		return nil, fmt.Errorf("lifecycle: unknown decision %d", opts.Decision)
	}

	out := &ReviewOutcome{}
	err := db.Transaction(func(tx *gorm.DB) error {
		app, err := lockApp(tx, appID)
		if err != nil {
			return err
		}
		if app.Status != models.StatusPendingApproval || !isValidTransition(app.Status, to) {
			return &TransitionError{AppID: appID, Op: "review", From: app.Status}
		}
		if app.LatestSubmittedVersionID == nil {
			return fmt.Errorf("%w: application %d has no submitted version", version.ErrValidation, appID)
		}
		versionID := *app.LatestSubmittedVersionID

		if to == models.StatusApproved {
			required, err := settings.Bool(tx, settings.RequireReportBeforeApproval)
			if err != nil {
				return err
			}
			if required {
				has, err := tagger.HasFeatures(tx, versionID)
				if err != nil {
					return err
				}
				if !has {
					return fmt.Errorf("%w: version %s", ErrReportRequired, versionID)
				}
			}
		}

		out.Review = models.Review{
			ApplicationID: appID,
			VersionID:     versionID,
			Reviewer:      opts.Reviewer,
			Decision:      opts.Decision,
			Comments:      opts.Comments,
		}
		if err := tx.Create(&out.Review).Error; err != nil {
			return fmt.Errorf("lifecycle: insert review for %d: %w", appID, err)
		}
		if err := apply(tx, app, "review", to, map[string]interface{}{
			"last_reviewed_at": time.Now(),
		}); err != nil {
			return err
		}

		if to != models.StatusApproved {
			return nil
		}
		auto, err := settings.Bool(tx, settings.AutoPublishOnApproval)
		if err != nil {
			return err
		}
		if !auto {
			return nil
		}
		out.Published = true
		return publishLocked(tx, app)
	})
	if err != nil {
		return nil, err
	}
	out.Application, err = Get(db, appID)
	if err != nil {
		return nil, err
	}
	return out, nil
}
