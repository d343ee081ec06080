// Package worker derives preview tiles and risk reports for submitted
// versions in the background, retrying failed items a bounded number of
// times.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/vibeyard/internal/config"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/logger"
	"github.com/zulandar/vibeyard/internal/metrics"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/notify"
	"gorm.io/gorm"
)

// MaxRetries is the number of failed attempts after which an item is left
// in Failed for good.
const MaxRetries = 5

const (
	defaultBusyInterval  = 10 * time.Second
	defaultIdleInterval  = 30 * time.Second
	defaultErrorInterval = 60 * time.Second
	defaultStaleAfter    = 30 * time.Minute
	defaultReclaim       = "*/5 * * * *"
	maxErrorLen          = 2000
)

// Generator produces the derived artifacts.
type Generator interface {
	Preview(ctx context.Context, html, lang string) (string, error)
	Report(ctx context.Context, req generate.ReportRequest) (generate.Report, error)
}

// Options configures a Worker.
type Options struct {
	DB        *gorm.DB
	Generator Generator
	Notifier  notify.Notifier
	Log       *logger.Logger

	// Lang is the primary report language.
	Lang string
	// Derive lists the derivations to run, "preview" and/or "report".
	Derive []string

	BusyInterval    time.Duration
	IdleInterval    time.Duration
	ErrorInterval   time.Duration
	StaleAfter      time.Duration
	ReclaimSchedule string
}

// OptionsFromConfig fills the interval and derivation settings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Lang:            cfg.Generation.Language,
		Derive:          cfg.Worker.Derive,
		BusyInterval:    cfg.Worker.BusyInterval,
		IdleInterval:    cfg.Worker.IdleInterval,
		ErrorInterval:   cfg.Worker.ErrorInterval,
		StaleAfter:      cfg.Worker.StaleAfter,
		ReclaimSchedule: cfg.Worker.ReclaimSchedule,
	}
}

// Worker polls the applications table for pending derivations.
type Worker struct {
	db       *gorm.DB
	gen      Generator
	notifier notify.Notifier
	log      *logger.Logger

	lang          string
	derivations   []string
	busyInterval  time.Duration
	idleInterval  time.Duration
	errorInterval time.Duration
	staleAfter    time.Duration
	reclaim       cron.Schedule

	now func() time.Time
}

// New validates opts and returns a Worker.
func New(opts Options) (*Worker, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("worker: db is required")
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("worker: generator is required")
	}
	w := &Worker{
		db:            opts.DB,
		gen:           opts.Generator,
		notifier:      opts.Notifier,
		log:           opts.Log,
		lang:          opts.Lang,
		derivations:   opts.Derive,
		busyInterval:  opts.BusyInterval,
		idleInterval:  opts.IdleInterval,
		errorInterval: opts.ErrorInterval,
		staleAfter:    opts.StaleAfter,
		now:           time.Now,
	}
	if w.notifier == nil {
		w.notifier = notify.Nop{}
	}
	if w.log == nil {
		w.log = logger.Nop()
	}
	w.log = w.log.With("component", "worker")
	if w.lang == "" {
		w.lang = "en"
	}
	if len(w.derivations) == 0 {
		w.derivations = []string{config.DerivePreview, config.DeriveReport}
	}
	for _, d := range w.derivations {
		if d != config.DerivePreview && d != config.DeriveReport {
			return nil, fmt.Errorf("worker: unknown derivation %q", d)
		}
	}
	if w.busyInterval <= 0 {
		w.busyInterval = defaultBusyInterval
	}
	if w.idleInterval <= 0 {
		w.idleInterval = defaultIdleInterval
	}
	if w.errorInterval <= 0 {
		w.errorInterval = defaultErrorInterval
	}
	if w.staleAfter <= 0 {
		w.staleAfter = defaultStaleAfter
	}
	spec := opts.ReclaimSchedule
	if spec == "" {
		spec = defaultReclaim
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("worker: reclaim schedule %q: %w", spec, err)
	}
	w.reclaim = sched
	return w, nil
}

// Run loops until ctx is cancelled: reclaim stale claims when the schedule
// fires, sweep, then sleep for an interval chosen by the sweep's outcome.
// Stale claims are also reclaimed once at startup.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker starting", "busy", w.busyInterval, "idle", w.idleInterval, "derive", w.derivations)
	defer w.log.Info("worker stopped")

	nextReclaim := w.now()
	for {
		if ctx.Err() != nil {
			return nil
		}

		if !w.now().Before(nextReclaim) {
			if _, err := w.Reclaim(ctx); err != nil {
				w.log.Error("reclaim failed", "error", err)
			}
			nextReclaim = w.reclaim.Next(w.now())
		}

		n, err := w.Sweep(ctx)
		sleepWithContext(ctx, w.nextInterval(n, err))
	}
}

// nextInterval picks the pause after a sweep.
func (w *Worker) nextInterval(processed int, err error) time.Duration {
	switch {
	case err != nil:
		w.log.Error("sweep failed", "error", err)
		return w.errorInterval
	case processed > 0:
		return w.busyInterval
	default:
		return w.idleInterval
	}
}

// Exhausted reports whether the worker has given up on app.
func Exhausted(app *models.Application) bool {
	return app.PreviewStatus == models.PreviewFailed && app.PreviewRetries >= MaxRetries
}

// sleepWithContext sleeps for the given duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// errMessage flattens err for the preview_generation_error column.
func errMessage(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return msg
}

// interrupted reports whether err came from shutdown rather than the item.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, generate.ErrCancelled)
}

// observe records one job result.
func observe(result string) {
	metrics.WorkerJobs.WithLabelValues(result).Inc()
}
