package studio

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/version"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "studio.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Version{}, &models.Application{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeGenerator struct {
	reqs   []generate.Request
	html   string
	err    error
	cancel context.CancelFunc
}

func (f *fakeGenerator) Generate(_ context.Context, req generate.Request) (*generate.Result, error) {
	f.reqs = append(f.reqs, req)
	if req.OnToken != nil {
		req.OnToken("<think>plan</think>")
	}
	if f.cancel != nil {
		f.cancel()
	}
	if f.err != nil {
		return nil, f.err
	}
	html := f.html
	if html == "" {
		html = "<title>Timer</title><p>" + req.Vars["user_request"] + "</p>"
	}
	return &generate.Result{
		Raw:   "<think>plan</think><output-html>" + html + "</output-html>",
		Think: "plan",
		HTML:  html,
		Model: "fake",
	}, nil
}

func countVersions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	db.Model(&models.Version{}).Count(&n)
	return n
}

func TestGenerate_FirstVersionCreatesDraft(t *testing.T) {
	db := testDB(t)
	gen := &fakeGenerator{}
	s := New(db, gen, nil, "de")

	var tokens []string
	out, err := s.Generate(context.Background(), GenerateOpts{
		SessionID: "s1", Owner: "alice", Request: "make a timer",
		OnToken: func(tok string) { tokens = append(tokens, tok) },
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Version.ParentID != nil {
		t.Errorf("root version has parent %v", *out.Version.ParentID)
	}
	if out.Application == nil || out.Application.Status != models.StatusDraft || out.Application.Name != "Timer" {
		t.Errorf("application = %+v", out.Application)
	}
	if out.Think != "plan" || out.Model != "fake" {
		t.Errorf("think=%q model=%q", out.Think, out.Model)
	}
	if len(tokens) != 1 {
		t.Errorf("tokens = %v", tokens)
	}

	vars := gen.reqs[0].Vars
	if vars["conversation_history"] != "No history" || vars["previous_html_code"] != "" || vars["app_lang_code"] != "de" {
		t.Errorf("vars = %v", vars)
	}
}

func TestGenerate_ChildCarriesHistory(t *testing.T) {
	db := testDB(t)
	gen := &fakeGenerator{}
	s := New(db, gen, nil, "")
	ctx := context.Background()

	v1, err := s.Generate(ctx, GenerateOpts{SessionID: "s1", Owner: "alice", Request: "make a timer"})
	if err != nil {
		t.Fatal(err)
	}
	edit, err := s.ManualEdit(ManualEditOpts{SessionID: "s1", Owner: "alice", ParentID: v1.Version.ID, Content: "<p>edited</p>"})
	if err != nil {
		t.Fatalf("ManualEdit: %v", err)
	}
	v3, err := s.Generate(ctx, GenerateOpts{SessionID: "s1", Owner: "alice", ParentID: edit.Version.ID, Request: "add sound", Lang: "fr"})
	if err != nil {
		t.Fatal(err)
	}

	vars := gen.reqs[1].Vars
	if vars["previous_html_code"] != "<p>edited</p>" {
		t.Errorf("previous_html_code = %q", vars["previous_html_code"])
	}
	want := "V1: make a timer\nV2: [manual code edit]"
	if !strings.Contains(vars["conversation_history"], want) {
		t.Errorf("conversation_history = %q, want to contain %q", vars["conversation_history"], want)
	}
	if vars["app_lang_code"] != "fr" {
		t.Errorf("app_lang_code = %q", vars["app_lang_code"])
	}
	if v3.Application.ID != v1.Application.ID {
		t.Errorf("second generation created another application")
	}

	turns, err := Transcript(db, v3.Version.ID)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(turns))
	}
	if turns[0].Think != "plan" || !turns[1].Manual || turns[1].Think != "" || turns[2].Number != 3 {
		t.Errorf("turns = %+v", turns)
	}
}

func TestGenerate_FailuresCommitNothing(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		cancel  bool
		wantErr error
	}{
		{"empty result", &fakeGenerator{err: generate.ErrEmptyResult}, false, generate.ErrEmptyResult},
		{"upstream", &fakeGenerator{err: &generate.HTTPError{StatusCode: 502}}, false, generate.ErrUpstreamHTTP},
		{"client gone", &fakeGenerator{}, true, generate.ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testDB(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				tt.gen.cancel = cancel
			}
			s := New(db, tt.gen, nil, "")

			_, err := s.Generate(ctx, GenerateOpts{SessionID: "s1", Owner: "alice", Request: "x"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if n := countVersions(t, db); n != 0 {
				t.Errorf("versions = %d, want 0", n)
			}
			var apps int64
			db.Model(&models.Application{}).Count(&apps)
			if apps != 0 {
				t.Errorf("applications = %d, want 0", apps)
			}
		})
	}
}

func TestGenerate_Validation(t *testing.T) {
	db := testDB(t)
	gen := &fakeGenerator{}
	s := New(db, gen, nil, "")
	root, err := s.Generate(context.Background(), GenerateOpts{SessionID: "s1", Owner: "alice", Request: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate(context.Background(), GenerateOpts{SessionID: "s2", Owner: "bob", Request: "y"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		opts    GenerateOpts
		wantErr error
	}{
		{"empty request", GenerateOpts{SessionID: "s1", Owner: "alice", ParentID: root.Version.ID, Request: "  "}, version.ErrValidation},
		{"second root", GenerateOpts{SessionID: "s1", Owner: "alice", Request: "again"}, version.ErrValidation},
		{"unknown parent", GenerateOpts{SessionID: "s1", Owner: "alice", ParentID: "nope", Request: "x"}, version.ErrValidation},
		{"cross-session parent", GenerateOpts{SessionID: "s3", Owner: "alice", ParentID: root.Version.ID, Request: "x"}, version.ErrValidation},
		{"other owner", GenerateOpts{SessionID: "s2", Owner: "alice", Request: "x"}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := len(gen.reqs)
			_, err := s.Generate(context.Background(), tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(gen.reqs) != calls {
				t.Error("model was called for an invalid request")
			}
		})
	}
	if n := countVersions(t, db); n != 2 {
		t.Errorf("versions = %d, want 2", n)
	}
}

func TestManualEdit_RequiresParent(t *testing.T) {
	s := New(testDB(t), &fakeGenerator{}, nil, "")
	_, err := s.ManualEdit(ManualEditOpts{SessionID: "s1", Owner: "alice", Content: "<p/>"})
	if !errors.Is(err, version.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
