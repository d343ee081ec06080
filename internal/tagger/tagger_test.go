package tagger

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tagger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Version{}, &models.Feature{}, &models.VersionFeature{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedVersion(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	if err := db.Create(&models.Version{ID: id, SessionID: "s1", Content: "<p>x</p>"}).Error; err != nil {
		t.Fatal(err)
	}
}

var sampleReport = generate.Report{
	"en": {
		CriticalRisks:         []string{"Remote code", "Remote code"},
		LowRisks:              []string{"  Local storage  ", ""},
		Categories:            []string{"Tools", "Games"},
		FunctionalDescription: " A timer. ",
		OperatingInstructions: "Press start.",
	},
	"de": {
		Categories:            []string{"Werkzeuge"},
		FunctionalDescription: "Ein Timer.",
	},
}

func TestTagVersion_Idempotent(t *testing.T) {
	db := testDB(t)
	seedVersion(t, db, "v1")

	for i := 0; i < 2; i++ {
		if err := TagVersion(db, "v1", sampleReport, "en"); err != nil {
			t.Fatalf("TagVersion #%d: %v", i+1, err)
		}
	}

	var features, links int64
	db.Model(&models.Feature{}).Count(&features)
	db.Model(&models.VersionFeature{}).Count(&links)
	// Remote code, Local storage, Tools, Games, Werkzeuge
	if features != 5 {
		t.Errorf("features = %d, want 5", features)
	}
	if links != 5 {
		t.Errorf("links = %d, want 5", links)
	}

	var v models.Version
	db.First(&v, "id = ?", "v1")
	if v.FunctionalDescription != "A timer." || v.OperatingInstructions != "Press start." {
		t.Errorf("details = %q / %q", v.FunctionalDescription, v.OperatingInstructions)
	}
}

func TestTagVersion_SharedFeatures(t *testing.T) {
	db := testDB(t)
	seedVersion(t, db, "v1")
	seedVersion(t, db, "v2")

	report := generate.Report{"en": {Categories: []string{"Tools"}}}
	if err := TagVersion(db, "v1", report, "en"); err != nil {
		t.Fatal(err)
	}
	if err := TagVersion(db, "v2", report, "en"); err != nil {
		t.Fatal(err)
	}

	var features int64
	db.Model(&models.Feature{}).Count(&features)
	if features != 1 {
		t.Errorf("features = %d, want 1 shared row", features)
	}
}

func TestTagVersion_PrimaryLanguageOnlyForDetails(t *testing.T) {
	db := testDB(t)
	seedVersion(t, db, "v1")

	if err := TagVersion(db, "v1", sampleReport, "de"); err != nil {
		t.Fatal(err)
	}
	var v models.Version
	db.First(&v, "id = ?", "v1")
	if v.FunctionalDescription != "Ein Timer." {
		t.Errorf("FunctionalDescription = %q, want de text", v.FunctionalDescription)
	}
	if v.OperatingInstructions != "" {
		t.Errorf("OperatingInstructions = %q, want empty (de bucket has none)", v.OperatingInstructions)
	}
}

func TestTagVersion_UnknownVersion(t *testing.T) {
	db := testDB(t)
	if err := TagVersion(db, "ghost", sampleReport, "en"); err == nil {
		t.Fatal("expected error for unknown version")
	}
	var n int64
	db.Model(&models.Feature{}).Count(&n)
	if n != 0 {
		t.Errorf("features = %d after failed tag, want 0", n)
	}
}

func TestForVersion_LanguageFallback(t *testing.T) {
	db := testDB(t)
	seedVersion(t, db, "v1")
	if err := TagVersion(db, "v1", sampleReport, "en"); err != nil {
		t.Fatal(err)
	}

	got, err := ForVersion(db, "v1", "de")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		TypeCriticalRisk: {"Remote code"},
		TypeLowRisk:      {"Local storage"},
		TypeCategory:     {"Werkzeuge"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ForVersion(de) = %v, want %v", got, want)
	}
}

func TestVocabularyAndHasFeatures(t *testing.T) {
	db := testDB(t)
	seedVersion(t, db, "v1")
	seedVersion(t, db, "v2")

	if has, _ := HasFeatures(db, "v1"); has {
		t.Error("HasFeatures before tagging = true")
	}
	if err := TagVersion(db, "v1", sampleReport, "en"); err != nil {
		t.Fatal(err)
	}
	if has, _ := HasFeatures(db, "v1"); !has {
		t.Error("HasFeatures after tagging = false")
	}

	vocab, err := Vocabulary(db)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vocab.Categories, []string{"Games", "Tools", "Werkzeuge"}) {
		t.Errorf("Categories = %v", vocab.Categories)
	}
	if len(vocab.MediumRisks) != 0 {
		t.Errorf("MediumRisks = %v, want none", vocab.MediumRisks)
	}
}
