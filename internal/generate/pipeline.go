// Package generate turns prompts into model output: template rendering,
// streaming transport, response parsing and report decoding.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/vibeyard/internal/aimodel"
	"github.com/zulandar/vibeyard/internal/logger"
	"github.com/zulandar/vibeyard/internal/metrics"
	"github.com/zulandar/vibeyard/internal/prompt"
	"gorm.io/gorm"
)

// Request describes one generation call.
type Request struct {
	Task   aimodel.Task
	Prompt string // stored template name
	Vars   map[string]string
	// OnToken receives streamed deltas. Nil runs headless.
	OnToken func(string)
}

// Result is a completed generation.
type Result struct {
	Raw   string
	Think string
	HTML  string
	Model string
}

// Pipeline resolves the active model and prompt for a task and runs it.
type Pipeline struct {
	db       *gorm.DB
	streamer Streamer
	log      *logger.Logger
}

// NewPipeline wires a pipeline to the store and a transport.
func NewPipeline(db *gorm.DB, streamer Streamer, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{db: db, streamer: streamer, log: log}
}

// Complete renders the prompt, streams the reply and returns the raw text.
func (p *Pipeline) Complete(ctx context.Context, req Request) (string, string, error) {
	cfg, err := aimodel.Active(p.db, req.Task)
	if err != nil {
		if errors.Is(err, aimodel.ErrNoActive) {
			return "", "", fmt.Errorf("%w for %s", ErrConfig, req.Task)
		}
		return "", "", fmt.Errorf("generate: resolve model: %w", err)
	}
	tmpl, err := prompt.Get(p.db, req.Prompt)
	if err != nil {
		if errors.Is(err, prompt.ErrNotFound) {
			return "", "", fmt.Errorf("%w: prompt %q missing", ErrConfig, req.Prompt)
		}
		return "", "", fmt.Errorf("generate: load prompt: %w", err)
	}

	start := time.Now()
	raw, err := p.streamer.Stream(ctx, *cfg, Render(tmpl, req.Vars), req.OnToken)
	elapsed := time.Since(start)

	metrics.GenerationDuration.WithLabelValues(string(req.Task)).Observe(elapsed.Seconds())
	metrics.GenerationRequests.WithLabelValues(string(req.Task), Kind(err)).Inc()

	if err != nil {
		p.log.Warn("generation failed", "task", req.Task, "model", cfg.Name, "duration", elapsed, "error", err)
		return raw, cfg.Name, err
	}
	p.log.Info("generation finished", "task", req.Task, "model", cfg.Name, "bytes", len(raw), "duration", elapsed)
	return raw, cfg.Name, nil
}

// Generate runs a code or preview task and requires an output-html block.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	raw, model, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	parsed, err := ExtractHTML(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes from %s had no output-html block", err, len(raw), model)
	}
	return &Result{Raw: raw, Think: parsed.Think, HTML: parsed.HTML, Model: model}, nil
}

// ReportRequest describes a risk analysis call.
type ReportRequest struct {
	HTML     string
	Lang     string
	Existing Vocabulary
}

// Report runs the risk analysis task headless and decodes its JSON.
func (p *Pipeline) Report(ctx context.Context, req ReportRequest) (Report, error) {
	raw, _, err := p.Complete(ctx, Request{
		Task:   aimodel.TaskReport,
		Prompt: prompt.NameRiskAnalysis,
		Vars: map[string]string{
			"app_html_code":           req.HTML,
			"app_lang_code":           req.Lang,
			"existing_critical_risks": quoteList(req.Existing.CriticalRisks),
			"existing_medium_risks":   quoteList(req.Existing.MediumRisks),
			"existing_low_risks":      quoteList(req.Existing.LowRisks),
			"existing_categories":     quoteList(req.Existing.Categories),
		},
	})
	if err != nil {
		return nil, err
	}
	return ParseReport(raw)
}

// Preview runs the app template task headless and returns the tile HTML.
func (p *Pipeline) Preview(ctx context.Context, html, lang string) (string, error) {
	res, err := p.Generate(ctx, Request{
		Task:   aimodel.TaskPreview,
		Prompt: prompt.NameAppTemplate,
		Vars: map[string]string{
			"app_html_code": html,
			"app_lang_code": lang,
		},
	})
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}
