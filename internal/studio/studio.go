// Package studio runs the interactive editing loop: a request against a
// parent version becomes a new version, and the session's draft application
// is created alongside the first one.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/vibeyard/internal/aimodel"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/lifecycle"
	"github.com/zulandar/vibeyard/internal/logger"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/prompt"
	"github.com/zulandar/vibeyard/internal/version"
	"gorm.io/gorm"
)

// ErrForbidden is returned when a session belongs to another user.
var ErrForbidden = errors.New("studio: session belongs to another user")

// Generator runs an interactive code generation.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Result, error)
}

// Studio wires the version store, the pipeline and the lifecycle together.
type Studio struct {
	db   *gorm.DB
	gen  Generator
	log  *logger.Logger
	lang string
}

// New returns a Studio. lang is the default output language.
func New(db *gorm.DB, gen Generator, log *logger.Logger, lang string) *Studio {
	if log == nil {
		log = logger.Nop()
	}
	if lang == "" {
		lang = "en"
	}
	return &Studio{db: db, gen: gen, log: log.With("component", "studio"), lang: lang}
}

// GenerateOpts holds one interactive request.
type GenerateOpts struct {
	SessionID string
	Owner     string
	ParentID  string // empty only for the first request of a session
	Request   string
	Lang      string
	OnToken   func(string)
}

// Outcome is a committed version and the session's application.
type Outcome struct {
	Version     *models.Version
	Application *models.Application
	Think       string
	Model       string
}

// Generate streams a new version from the model. Nothing is written unless
// the stream completes with usable HTML and ctx is still live.
func (s *Studio) Generate(ctx context.Context, opts GenerateOpts) (*Outcome, error) {
	if strings.TrimSpace(opts.Request) == "" {
		return nil, fmt.Errorf("%w: request is empty", version.ErrValidation)
	}
	parent, history, err := s.prepare(opts.SessionID, opts.Owner, opts.ParentID)
	if err != nil {
		return nil, err
	}

	lang := opts.Lang
	if lang == "" {
		lang = s.lang
	}
	vars := map[string]string{
		"previous_html_code":   "",
		"conversation_history": history,
		"user_request":         opts.Request,
		"app_lang_code":        lang,
	}
	if parent != nil {
		vars["previous_html_code"] = parent.Content
	}

	start := time.Now()
	res, err := s.gen.Generate(ctx, generate.Request{
		Task:    aimodel.TaskCode,
		Prompt:  prompt.NameCodeGeneration,
		Vars:    vars,
		OnToken: opts.OnToken,
	})
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: request ended before commit", generate.ErrCancelled)
	}

	out, err := s.commit(opts.SessionID, opts.Owner, version.CreateOpts{
		SessionID:   opts.SessionID,
		ParentID:    opts.ParentID,
		UserRequest: opts.Request,
		RawOutput:   res.Raw,
		Content:     res.HTML,
	})
	if err != nil {
		return nil, err
	}
	out.Think = res.Think
	out.Model = res.Model
	s.log.Info("version generated", "session", opts.SessionID, "version", out.Version.ID, "model", res.Model, "duration", time.Since(start))
	return out, nil
}

// ManualEditOpts holds a direct code edit.
type ManualEditOpts struct {
	SessionID string
	Owner     string
	ParentID  string
	Content   string
}

// ManualEdit stores edited content as a child of ParentID without a model
// call.
func (s *Studio) ManualEdit(opts ManualEditOpts) (*Outcome, error) {
	if opts.ParentID == "" {
		return nil, fmt.Errorf("%w: a manual edit needs a parent version", version.ErrValidation)
	}
	if _, _, err := s.prepare(opts.SessionID, opts.Owner, opts.ParentID); err != nil {
		return nil, err
	}
	out, err := s.commit(opts.SessionID, opts.Owner, version.CreateOpts{
		SessionID:   opts.SessionID,
		ParentID:    opts.ParentID,
		UserRequest: version.ManualEditRequest,
		Content:     opts.Content,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("manual edit saved", "session", opts.SessionID, "version", out.Version.ID)
	return out, nil
}

// prepare checks ownership and the parent link, and renders the branch
// history for the prompt.
func (s *Studio) prepare(sessionID, owner, parentID string) (*models.Version, string, error) {
	if sessionID == "" || owner == "" {
		return nil, "", fmt.Errorf("%w: session and owner are required", version.ErrValidation)
	}
	if err := CheckOwner(s.db, sessionID, owner); err != nil {
		return nil, "", err
	}

	if parentID == "" {
		existing, err := version.SessionVersions(s.db, sessionID)
		if err != nil {
			return nil, "", err
		}
		if len(existing) > 0 {
			return nil, "", fmt.Errorf("%w: session %s already has versions; a parent is required", version.ErrValidation, sessionID)
		}
		return nil, version.ConversationContext(nil, nil), nil
	}

	parent, err := version.Get(s.db, parentID)
	if errors.Is(err, version.ErrNotFound) {
		return nil, "", fmt.Errorf("%w: parent %s not found", version.ErrValidation, parentID)
	}
	if err != nil {
		return nil, "", err
	}
	if parent.SessionID != sessionID {
		return nil, "", fmt.Errorf("%w: parent %s belongs to another session", version.ErrValidation, parentID)
	}
	history, err := version.History(s.db, parent.ID)
	if err != nil {
		return nil, "", err
	}
	all, err := version.SessionVersions(s.db, sessionID)
	if err != nil {
		return nil, "", err
	}
	return parent, version.ConversationContext(history, version.Numbering(all)), nil
}

// commit writes the version and ensures the draft in one transaction.
func (s *Studio) commit(sessionID, owner string, opts version.CreateOpts) (*Outcome, error) {
	out := &Outcome{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		v, err := version.Create(tx, opts)
		if err != nil {
			return err
		}
		app, err := lifecycle.EnsureDraft(tx, lifecycle.DraftOpts{
			SessionID: sessionID,
			Owner:     owner,
			VersionID: v.ID,
			Content:   v.Content,
		})
		if err != nil {
			return err
		}
		out.Version, out.Application = v, app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckOwner fails with ErrForbidden when the session's application is
// owned by someone else. Sessions without an application are open.
func CheckOwner(db *gorm.DB, sessionID, owner string) error {
	app, err := lifecycle.GetBySession(db, sessionID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if app.Owner != owner {
		return fmt.Errorf("%w: %s", ErrForbidden, sessionID)
	}
	return nil
}
