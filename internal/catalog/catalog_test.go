package catalog

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/models"
	"github.com/zulandar/vibeyard/internal/tagger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Version{}, &models.Application{}, &models.Feature{}, &models.VersionFeature{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedApp inserts an application in status with one version, tagged with
// report when it is non-nil.
func seedApp(t *testing.T, db *gorm.DB, session string, status models.AppStatus, publishedAt time.Time, report generate.Report) *models.Application {
	t.Helper()
	preview := "<div>" + session + "</div>"
	v := models.Version{ID: session + "-v1", SessionID: session, Content: "<p>" + session + "</p>", PreviewArtifact: &preview}
	if err := db.Create(&v).Error; err != nil {
		t.Fatal(err)
	}
	app := models.Application{SessionID: session, Owner: "alice", Name: session, Status: status}
	if status == models.StatusPublished {
		app.LiveVersionID = &v.ID
		app.PublishedAt = &publishedAt
	}
	if err := db.Create(&app).Error; err != nil {
		t.Fatal(err)
	}
	if report != nil {
		if err := tagger.TagVersion(db, v.ID, report, "en"); err != nil {
			t.Fatal(err)
		}
	}
	return &app
}

func TestListLive(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	seedApp(t, db, "old", models.StatusPublished, now.Add(-time.Hour), generate.Report{
		"en": {Categories: []string{"Tools"}, LowRisks: []string{"Local storage"}, FunctionalDescription: "A timer."},
		"de": {Categories: []string{"Werkzeuge"}},
	})
	seedApp(t, db, "new", models.StatusPublished, now, nil)
	seedApp(t, db, "draft", models.StatusDraft, now, nil)

	entries, err := ListLive(db, "de")
	if err != nil {
		t.Fatalf("ListLive: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Name != "new" || entries[1].Name != "old" {
		t.Errorf("order = %s, %s; want new, old", entries[0].Name, entries[1].Name)
	}
	old := entries[1]
	if got := old.Features[tagger.TypeCategory]; len(got) != 1 || got[0] != "Werkzeuge" {
		t.Errorf("categories = %v, want [Werkzeuge]", got)
	}
	if got := old.Features[tagger.TypeLowRisk]; len(got) != 1 || got[0] != "Local storage" {
		t.Errorf("low risks = %v, want en fallback", got)
	}
	if old.FunctionalDescription != "A timer." || old.Preview == nil {
		t.Errorf("entry = %+v", old)
	}
}

func TestListLive_Empty(t *testing.T) {
	entries, err := ListLive(testDB(t), "en")
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty non-nil slice", entries)
	}
}

func TestComputeStats(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	tools := generate.Report{"en": {Categories: []string{"Tools"}}}
	seedApp(t, db, "a", models.StatusPublished, now, generate.Report{"en": {Categories: []string{"Tools", "Games"}}})
	seedApp(t, db, "b", models.StatusPublished, now, tools)
	seedApp(t, db, "c", models.StatusArchived, now, tools)
	seedApp(t, db, "d", models.StatusPendingApproval, now, nil)
	seedApp(t, db, "e", models.StatusDeleted, now, nil)
	exhausted := seedApp(t, db, "f", models.StatusPendingApproval, now, nil)
	db.Model(exhausted).Updates(map[string]interface{}{
		"preview_generation_status":  models.PreviewFailed,
		"preview_generation_retries": 5,
	})

	s, err := ComputeStats(db, "en", 5)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	wantStatus := map[string]int{"published": 2, "archived": 1, "pending_approval": 2, "draft": 0}
	for k, want := range wantStatus {
		if s.ByStatus[k] != want {
			t.Errorf("ByStatus[%s] = %d, want %d", k, s.ByStatus[k], want)
		}
	}
	if _, ok := s.ByStatus["deleted"]; ok {
		t.Error("deleted should not be reported")
	}
	if s.Exhausted != 1 {
		t.Errorf("Exhausted = %d, want 1", s.Exhausted)
	}
	want := []CategoryCount{{"Tools", 2}, {"Games", 1}}
	if len(s.Categories) != len(want) {
		t.Fatalf("Categories = %+v, want %+v", s.Categories, want)
	}
	for i := range want {
		if s.Categories[i] != want[i] {
			t.Errorf("Categories[%d] = %+v, want %+v", i, s.Categories[i], want[i])
		}
	}
	today := time.Now().Format("2006-01-02")
	if len(s.VersionTrends) != 1 || s.VersionTrends[0] != (DayCount{today, 6}) {
		t.Errorf("VersionTrends = %+v, want six versions today", s.VersionTrends)
	}
}

func TestVersionTrends(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.Local)
	day := func(offset int) time.Time { return noon.AddDate(0, 0, offset) }

	for i, created := range []time.Time{day(-40), day(-3), day(-3).Add(time.Hour), day(0)} {
		v := models.Version{ID: fmt.Sprintf("v%d", i), SessionID: fmt.Sprintf("s%d", i), Content: "<p>x</p>", CreatedAt: created}
		if err := db.Create(&v).Error; err != nil {
			t.Fatal(err)
		}
	}

	since := time.Date(now.Year(), now.Month(), now.Day()-(TrendDays-1), 0, 0, 0, 0, time.Local)
	got, err := VersionTrends(db, since)
	if err != nil {
		t.Fatalf("VersionTrends: %v", err)
	}
	want := []DayCount{
		{day(-3).Format("2006-01-02"), 2},
		{day(0).Format("2006-01-02"), 1},
	}
	if len(got) != len(want) {
		t.Fatalf("VersionTrends = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("VersionTrends[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
