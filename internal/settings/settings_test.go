package settings

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/zulandar/vibeyard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "settings.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestBool_DefaultsFalse(t *testing.T) {
	db := testDB(t)
	v, err := Bool(db, AutoPublishOnApproval)
	if err != nil {
		t.Fatalf("Bool: %v", err)
	}
	if v {
		t.Error("unset setting should read false")
	}
}

func TestSetBool_RoundTrip(t *testing.T) {
	db := testDB(t)

	if err := SetBool(db, AutoPublishOnApproval, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if v, _ := Bool(db, AutoPublishOnApproval); !v {
		t.Error("want true after SetBool(true)")
	}
	if err := SetBool(db, AutoPublishOnApproval, false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if v, _ := Bool(db, AutoPublishOnApproval); v {
		t.Error("want false after SetBool(false)")
	}
}

func TestSetBool_UnknownKey(t *testing.T) {
	db := testDB(t)
	err := SetBool(db, "dark_mode", true)
	if !errors.Is(err, ErrUnknownKey) {
		t.Errorf("err = %v, want ErrUnknownKey", err)
	}
}

func TestSeed_DoesNotOverwrite(t *testing.T) {
	db := testDB(t)

	if err := Seed(db, map[string]bool{RequireReportBeforeApproval: true}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := SetBool(db, RequireReportBeforeApproval, false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := Seed(db, map[string]bool{RequireReportBeforeApproval: true}); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	all, err := All(db)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if all[RequireReportBeforeApproval] {
		t.Error("Seed overwrote an edited setting")
	}
	if _, ok := all[AutoPublishOnApproval]; !ok {
		t.Error("All() missing auto-publish key")
	}
}
