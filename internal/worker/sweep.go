package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/vibeyard/internal/config"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/logger"
	"github.com/zulandar/vibeyard/internal/messaging"
	"github.com/zulandar/vibeyard/internal/metrics"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/notify"
	"github.com/zulandar/vibeyard/internal/tagger"
	"github.com/zulandar/vibeyard/internal/version"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var retryable = []models.PreviewStatus{models.PreviewPending, models.PreviewFailed}

// Sweep processes every eligible application once, oldest update first,
// and returns how many it claimed.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.WorkerSweepDuration.Observe(time.Since(start).Seconds())
	}()

	var apps []models.Application
	err := w.db.
		Where("preview_generation_status IN ?", retryable).
		Where("preview_generation_retries < ?", MaxRetries).
		Where("latest_submitted_version_id IS NOT NULL").
		Where("status <> ?", models.StatusDeleted).
		Order("updated_at ASC").Order("id ASC").
		Find(&apps).Error
	if err != nil {
		return 0, fmt.Errorf("worker: select pending: %w", err)
	}
	metrics.WorkerQueueDepth.Set(float64(len(apps)))

	processed := 0
	for i := range apps {
		if ctx.Err() != nil {
			break
		}
		app := &apps[i]
		ok, err := w.claim(app)
		if err != nil {
			w.log.Error("claim failed", "app", app.ID, "error", err)
			continue
		}
		if !ok {
			observe("skipped")
			continue
		}
		processed++
		w.handle(ctx, app)
	}
	return processed, nil
}

// claim moves app to InProgress unless another sweep got there first.
func (w *Worker) claim(app *models.Application) (bool, error) {
	result := w.db.Model(&models.Application{}).
		Where("id = ? AND preview_generation_status IN ? AND preview_generation_retries < ?",
			app.ID, retryable, MaxRetries).
		Updates(map[string]interface{}{
			"preview_generation_status": models.PreviewInProgress,
			"preview_claimed_at":        w.now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// handle runs the derivations for a claimed app and records the outcome.
func (w *Worker) handle(ctx context.Context, app *models.Application) {
	log := w.log.With("app", app.ID, "version", *app.LatestSubmittedVersionID, "attempt", app.PreviewRetries+1)
	log.Info("deriving artifacts")

	err := w.derive(ctx, *app.LatestSubmittedVersionID)
	switch {
	case err == nil:
		w.complete(app, log)
	case interrupted(ctx, err):
		w.release(app, log)
	default:
		w.fail(app, err, log)
	}
}

// derive runs the configured derivations. A panic inside a derivation is
// returned as an error.
func (w *Worker) derive(ctx context.Context, versionID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: panic: %v", r)
		}
	}()

	v, err := version.Get(w.db, versionID)
	if err != nil {
		return err
	}
	for _, d := range w.derivations {
		switch d {
		case config.DerivePreview:
			err = w.derivePreview(ctx, v)
		case config.DeriveReport:
			err = w.deriveReport(ctx, v)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
	}
	return nil
}

func (w *Worker) derivePreview(ctx context.Context, v *models.Version) error {
	html, err := w.gen.Preview(ctx, v.Content, w.lang)
	if err != nil {
		return err
	}
	return version.SetPreview(w.db, v.ID, html)
}

func (w *Worker) deriveReport(ctx context.Context, v *models.Version) error {
	vocab, err := tagger.Vocabulary(w.db)
	if err != nil {
		return err
	}
	report, err := w.gen.Report(ctx, generate.ReportRequest{HTML: v.Content, Lang: w.lang, Existing: vocab})
	if err != nil {
		return err
	}
	return tagger.TagVersion(w.db, v.ID, report, w.lang)
}

// finish applies fields to app if it is still claimed by this sweep.
func (w *Worker) finish(app *models.Application, fields map[string]interface{}) (bool, error) {
	fields["preview_claimed_at"] = nil
	result := w.db.Model(&models.Application{}).
		Where("id = ? AND preview_generation_status = ?", app.ID, models.PreviewInProgress).
		Updates(fields)
	return result.RowsAffected == 1, result.Error
}

// outcome resolves to status unless the submission was withdrawn while the
// derivation ran, in which case the app is left with no derivation.
func outcome(status models.PreviewStatus) clause.Expr {
	return gorm.Expr("CASE WHEN status = ? THEN ? ELSE ? END",
		models.StatusDraft, models.PreviewNone, status)
}

func (w *Worker) complete(app *models.Application, log *logger.Logger) {
	ok, err := w.finish(app, map[string]interface{}{
		"preview_generation_status": outcome(models.PreviewCompleted),
		"preview_generation_error":  "",
	})
	if err != nil {
		log.Error("record completion failed", "error", err)
		return
	}
	if !ok {
		observe("skipped")
		log.Info("claim lost before completion")
		return
	}
	if w.withdrawn(app.ID, log) {
		return
	}
	observe("completed")
	log.Info("derivation completed")
}

// release hands an interrupted item back without charging a retry.
func (w *Worker) release(app *models.Application, log *logger.Logger) {
	if _, err := w.finish(app, map[string]interface{}{
		"preview_generation_status": outcome(models.PreviewPending),
	}); err != nil {
		log.Error("release failed", "error", err)
		return
	}
	log.Info("derivation interrupted, released")
}

func (w *Worker) fail(app *models.Application, cause error, log *logger.Logger) {
	ok, err := w.finish(app, map[string]interface{}{
		"preview_generation_status":  outcome(models.PreviewFailed),
		"preview_generation_retries": gorm.Expr("preview_generation_retries + 1"),
		"preview_generation_error":   errMessage(cause),
	})
	if err != nil {
		log.Error("record failure failed", "error", err, "cause", cause)
		return
	}
	if !ok {
		observe("skipped")
		return
	}
	w.afterFailure(app.ID, log.With("cause", cause))
}

// withdrawn reports whether app was cancelled back to Draft mid-derivation.
func (w *Worker) withdrawn(id uint, log *logger.Logger) bool {
	var current models.Application
	if err := w.db.Select("id", "status", "preview_generation_status").First(&current, id).Error; err != nil {
		log.Error("reload after derivation", "error", err)
		return false
	}
	if current.PreviewStatus != models.PreviewNone {
		return false
	}
	observe("withdrawn")
	log.Info("submission withdrawn during derivation, result dropped")
	return true
}

// afterFailure reloads a failed item and surfaces it to the operators and
// the owner once its retries are used up.
func (w *Worker) afterFailure(id uint, log *logger.Logger) {
	var current models.Application
	if err := w.db.First(&current, id).Error; err != nil {
		log.Error("reload after failure", "error", err)
		return
	}
	if current.PreviewStatus == models.PreviewNone {
		observe("withdrawn")
		log.Info("submission withdrawn during derivation, failure dropped")
		return
	}
	if !Exhausted(&current) {
		observe("failed")
		log.Info("derivation failed, will retry", "retries", current.PreviewRetries)
		return
	}
	observe("exhausted")
	log.Error("derivation retries exhausted", "retries", current.PreviewRetries, "error", current.PreviewError)
	notify.Send(context.Background(), w.notifier, w.log, notify.DerivationExhausted(&current, current.PreviewError))
	if err := messaging.DerivationFailed(w.db, &current, current.PreviewError); err != nil {
		log.Error("owner message failed", "error", err)
	}
}

// Reclaim fails InProgress items whose claim is older than the stale
// threshold, charging them one retry. An item whose last retry this uses
// is surfaced like any other exhausted item.
func (w *Worker) Reclaim(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.staleAfter)
	stale := func(db *gorm.DB) *gorm.DB {
		return db.Where("preview_generation_status = ?", models.PreviewInProgress).
			Where("preview_claimed_at IS NULL OR preview_claimed_at < ?", cutoff)
	}

	var ids []uint
	if err := stale(w.db.WithContext(ctx).Model(&models.Application{})).Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("worker: reclaim: select stale: %w", err)
	}

	n := 0
	for _, id := range ids {
		result := stale(w.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id)).
			Updates(map[string]interface{}{
				"preview_generation_status":  outcome(models.PreviewFailed),
				"preview_generation_retries": gorm.Expr("preview_generation_retries + 1"),
				"preview_generation_error":   fmt.Sprintf("claim abandoned for more than %s", w.staleAfter),
				"preview_claimed_at":         nil,
			})
		if result.Error != nil {
			return n, fmt.Errorf("worker: reclaim %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}
		n++
		w.afterFailure(id, w.log.With("app", id))
	}
	if n > 0 {
		metrics.WorkerReclaimed.Add(float64(n))
		w.log.Warn("reclaimed stale claims", "count", n)
	}
	return n, nil
}
