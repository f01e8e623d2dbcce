package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mhs-association/membership-backend/v1/models"
)

// SetupSQLiteTestDB creates an in-memory SQLite database for testing
func SetupSQLiteTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to SQLite test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Member{},
		&models.FamilyMember{},
		&models.Session{},
		&models.AttendanceRecord{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	CleanupTestData(t, db)

	return db
}

// CleanupTestData removes all test data from the database
// Exported for use in handler tests
func CleanupTestData(t *testing.T, db *gorm.DB) {
	// Delete in reverse order of dependencies
	for _, table := range []string{"attendance", "sessions", "family_members", "members"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Logf("Warning: failed to cleanup %s: %v", table, err)
		}
	}
}
