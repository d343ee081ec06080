package generate

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/vibeyard/internal/aimodel"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/prompt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeStreamer replays a canned reply and records the rendered prompt.
type fakeStreamer struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeStreamer) Stream(ctx context.Context, cfg models.AIModelConfig, p string, onToken func(string)) (string, error) {
	f.prompts = append(f.prompts, p)
	if onToken != nil && f.reply != "" {
		onToken(f.reply)
	}
	return f.reply, f.err
}

func pipelineDB(t *testing.T, activate ...aimodel.Task) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "gen.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.AIModelConfig{}, &models.Prompt{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := prompt.Seed(db); err != nil {
		t.Fatal(err)
	}
	m, err := aimodel.Create(db, aimodel.CreateOpts{Name: "main", ModelName: "gpt", EndpointURL: "http://llm"})
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range activate {
		if err := aimodel.Activate(db, m.ID, task, true); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func TestPipelineGenerate_NoActiveModel(t *testing.T) {
	db := pipelineDB(t)
	p := NewPipeline(db, &fakeStreamer{}, nil)

	_, err := p.Generate(context.Background(), Request{Task: aimodel.TaskCode, Prompt: prompt.NameCodeGeneration})
	if !errors.Is(err, ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestPipelineGenerate_MissingPrompt(t *testing.T) {
	db := pipelineDB(t, aimodel.TaskCode)
	p := NewPipeline(db, &fakeStreamer{}, nil)

	_, err := p.Generate(context.Background(), Request{Task: aimodel.TaskCode, Prompt: "nope"})
	if !errors.Is(err, ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}

func TestPipelineGenerate_Success(t *testing.T) {
	db := pipelineDB(t, aimodel.TaskCode)
	fs := &fakeStreamer{reply: "<think>plan</think><output-html><h1>Hi</h1></output-html>"}
	p := NewPipeline(db, fs, nil)

	var streamed strings.Builder
	res, err := p.Generate(context.Background(), Request{
		Task:   aimodel.TaskCode,
		Prompt: prompt.NameCodeGeneration,
		Vars: map[string]string{
			"previous_html_code":   "<p>old</p>",
			"conversation_history": "V1: clock",
			"user_request":         "say hi",
			"app_lang_code":        "en",
		},
		OnToken: func(s string) { streamed.WriteString(s) },
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Think != "plan" || res.HTML != "<h1>Hi</h1>" || res.Model != "main" {
		t.Errorf("result = %+v", res)
	}
	if streamed.String() != fs.reply {
		t.Errorf("tokens = %q", streamed.String())
	}
	rendered := fs.prompts[0]
	for _, want := range []string{"<p>old</p>", "V1: clock", "say hi"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
	if strings.Contains(rendered, "{user_request}") {
		t.Error("placeholder left unrendered")
	}
}

func TestPipelineGenerate_EmptyResult(t *testing.T) {
	db := pipelineDB(t, aimodel.TaskCode)
	p := NewPipeline(db, &fakeStreamer{reply: "<think>hmm</think>I could not do it."}, nil)

	_, err := p.Generate(context.Background(), Request{Task: aimodel.TaskCode, Prompt: prompt.NameCodeGeneration})
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestPipelineGenerate_UpstreamErrorPassesThrough(t *testing.T) {
	db := pipelineDB(t, aimodel.TaskCode)
	p := NewPipeline(db, &fakeStreamer{err: &HTTPError{StatusCode: 500, Body: "boom"}}, nil)

	_, err := p.Generate(context.Background(), Request{Task: aimodel.TaskCode, Prompt: prompt.NameCodeGeneration})
	if !errors.Is(err, ErrUpstreamHTTP) {
		t.Errorf("err = %v, want ErrUpstreamHTTP", err)
	}
}

func TestPipelineReport_UsesVocabulary(t *testing.T) {
	db := pipelineDB(t, aimodel.TaskReport)
	fs := &fakeStreamer{reply: "```json\n" + reportJSON + "\n```"}
	p := NewPipeline(db, fs, nil)

	r, err := p.Report(context.Background(), ReportRequest{
		HTML: "<p>app</p>",
		Lang: "de",
		Existing: Vocabulary{
			CriticalRisks: []string{"Phishing"},
			Categories:    []string{"Games"},
		},
	})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if _, ok := r["de"]; !ok {
		t.Error("missing de bucket")
	}
	rendered := fs.prompts[0]
	if !strings.Contains(rendered, `"Phishing"`) || !strings.Contains(rendered, `"Games"`) {
		t.Errorf("vocabulary not rendered into prompt:\n%s", rendered)
	}
	if !strings.Contains(rendered, "<p>app</p>") {
		t.Error("html not rendered into prompt")
	}
}

func TestPipelinePreview(t *testing.T) {
	db := pipelineDB(t, aimodel.TaskPreview)
	p := NewPipeline(db, &fakeStreamer{reply: "<output-html><div>tile</div></output-html>"}, nil)

	html, err := p.Preview(context.Background(), "<p>full</p>", "en")
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if html != "<div>tile</div>" {
		t.Errorf("preview = %q", html)
	}
}
