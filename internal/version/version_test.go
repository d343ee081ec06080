package version

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "version.db")+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Version{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, session, parent, request string) *models.Version {
	t.Helper()
	v, err := Create(db, CreateOpts{
		SessionID:   session,
		ParentID:    parent,
		UserRequest: request,
		RawOutput:   "<output-html><p>" + request + "</p></output-html>",
		Content:     "<p>" + request + "</p>",
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", request, err)
	}
	return v
}

func countVersions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Version{}).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCreate_RootAndChild(t *testing.T) {
	db := testDB(t)

	root := mustCreate(t, db, "s1", "", "make a clock")
	if root.ParentID != nil {
		t.Errorf("root ParentID = %v, want nil", *root.ParentID)
	}
	if len(root.ID) != 36 {
		t.Errorf("ID = %q, want uuid", root.ID)
	}

	child := mustCreate(t, db, "s1", root.ID, "make it red")
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Errorf("child ParentID = %v, want %s", child.ParentID, root.ID)
	}

	got, err := Get(db, child.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "<p>make it red</p>" {
		t.Errorf("Content = %q", got.Content)
	}
}

func TestCreate_Validation(t *testing.T) {
	db := testDB(t)
	other := mustCreate(t, db, "s-other", "", "other session root")
	root := mustCreate(t, db, "s1", "", "root")

	tests := []struct {
		name string
		opts CreateOpts
	}{
		{"cross-session parent", CreateOpts{SessionID: "s1", ParentID: other.ID, Content: "x"}},
		{"missing parent", CreateOpts{SessionID: "s1", ParentID: "nope", Content: "x"}},
		{"second root", CreateOpts{SessionID: "s1", Content: "x"}},
		{"no session", CreateOpts{ParentID: root.ID, Content: "x"}},
		{"no content", CreateOpts{SessionID: "s1", ParentID: root.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := countVersions(t, db)
			_, err := Create(db, tt.opts)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if after := countVersions(t, db); after != before {
				t.Errorf("rows = %d after failed create, want %d", after, before)
			}
		})
	}
}

func TestCreate_CopiesParentPreview(t *testing.T) {
	db := testDB(t)
	root := mustCreate(t, db, "s1", "", "root")
	if err := SetPreview(db, root.ID, "<div>tile</div>"); err != nil {
		t.Fatalf("SetPreview: %v", err)
	}

	child := mustCreate(t, db, "s1", root.ID, "tweak")
	if child.PreviewArtifact == nil || *child.PreviewArtifact != "<div>tile</div>" {
		t.Errorf("child preview = %v, want parent's tile", child.PreviewArtifact)
	}
}

func TestSetDetails(t *testing.T) {
	db := testDB(t)
	v := mustCreate(t, db, "s1", "", "root")

	if err := SetDetails(db, v.ID, "A timer.", "Press start."); err != nil {
		t.Fatalf("SetDetails: %v", err)
	}
	got, _ := Get(db, v.ID)
	if got.FunctionalDescription != "A timer." || got.OperatingInstructions != "Press start." {
		t.Errorf("details = %q / %q", got.FunctionalDescription, got.OperatingInstructions)
	}
	if err := SetDetails(db, "missing", "a", "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCreate_RootIndexRejectsSecondRoot(t *testing.T) {
	db := testDB(t)
	root := mustCreate(t, db, "s1", "", "root")
	if root.RootOf == nil || *root.RootOf != "s1" {
		t.Fatalf("RootOf = %v, want s1", root.RootOf)
	}
	child := mustCreate(t, db, "s1", root.ID, "child")
	if child.RootOf != nil {
		t.Errorf("child RootOf = %q, want nil", *child.RootOf)
	}

	session := "s1"
	dup := models.Version{ID: "dup", SessionID: session, RootOf: &session, Content: "x"}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("second root row inserted past the unique index")
	}
}

func TestCreate_ConcurrentRoots(t *testing.T) {
	db := testDB(t)
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = Create(db, CreateOpts{SessionID: "race", UserRequest: "root", Content: "<p>root</p>"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case !errors.Is(err, ErrValidation):
			t.Errorf("err = %v, want ErrValidation", err)
		}
	}
	if created != 1 {
		t.Errorf("roots created = %d, want 1", created)
	}
	if got := countVersions(t, db); got != 1 {
		t.Errorf("rows = %d, want 1", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := Get(db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHistory_Branches(t *testing.T) {
	db := testDB(t)
	v1 := mustCreate(t, db, "s1", "", "one")
	v2 := mustCreate(t, db, "s1", v1.ID, "two")
	v3 := mustCreate(t, db, "s1", v2.ID, "three")
	v4 := mustCreate(t, db, "s1", v1.ID, "branch")

	tests := []struct {
		tip  string
		want []string
	}{
		{v1.ID, []string{"one"}},
		{v3.ID, []string{"one", "two", "three"}},
		{v4.ID, []string{"one", "branch"}},
	}
	for _, tt := range tests {
		hist, err := History(db, tt.tip)
		if err != nil {
			t.Fatalf("History(%s): %v", tt.tip, err)
		}
		var got []string
		for _, v := range hist {
			got = append(got, v.UserRequest)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("History = %v, want %v", got, tt.want)
		}
	}
}

func TestHistory_CycleIsCorrupt(t *testing.T) {
	db := testDB(t)
	v1 := mustCreate(t, db, "s1", "", "one")
	v2 := mustCreate(t, db, "s1", v1.ID, "two")

	// Force a loop: v1 -> v2 -> v1.
	if err := db.Model(&models.Version{}).Where("id = ?", v1.ID).Update("parent_id", v2.ID).Error; err != nil {
		t.Fatal(err)
	}

	_, err := History(db, v2.ID)
	if !errors.Is(err, ErrCorruptGraph) {
		t.Errorf("err = %v, want ErrCorruptGraph", err)
	}
}

func TestHistory_DanglingParentIsCorrupt(t *testing.T) {
	db := testDB(t)
	v1 := mustCreate(t, db, "s1", "", "one")
	v2 := mustCreate(t, db, "s1", v1.ID, "two")

	if err := db.Model(&models.Version{}).Where("id = ?", v2.ID).Update("parent_id", "ghost").Error; err != nil {
		t.Fatal(err)
	}

	_, err := History(db, v2.ID)
	if !errors.Is(err, ErrCorruptGraph) {
		t.Errorf("err = %v, want ErrCorruptGraph", err)
	}
}

func TestWalk_TerminatesWithinSessionSize(t *testing.T) {
	// Build a long chain in memory and confirm the walk reaches the root.
	var arena []models.Version
	for i := 0; i < 50; i++ {
		v := models.Version{ID: string(rune('A' + i))}
		if i > 0 {
			p := arena[i-1].ID
			v.ParentID = &p
		}
		arena = append(arena, v)
	}
	chain, err := walk(arena, arena[49].ID)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(chain) != 50 || chain[0].ParentID != nil {
		t.Errorf("chain len = %d, want 50 rooted at a parentless node", len(chain))
	}
}

func TestConversationContext(t *testing.T) {
	db := testDB(t)
	v1 := mustCreate(t, db, "s1", "", "make a clock")
	v2, err := Create(db, CreateOpts{SessionID: "s1", ParentID: v1.ID, UserRequest: ManualEditRequest, Content: "<p>edit</p>"})
	if err != nil {
		t.Fatal(err)
	}
	v3 := mustCreate(t, db, "s1", v2.ID, "add alarm")

	all, err := SessionVersions(db, "s1")
	if err != nil {
		t.Fatal(err)
	}
	hist, err := History(db, v3.ID)
	if err != nil {
		t.Fatal(err)
	}

	got := ConversationContext(hist, Numbering(all))
	want := "V1: make a clock\nV2: [manual code edit]\nV3: add alarm"
	if got != want {
		t.Errorf("ConversationContext =\n%s\nwant\n%s", got, want)
	}

	if got := ConversationContext(nil, nil); got != "No history" {
		t.Errorf("empty context = %q, want No history", got)
	}
}
