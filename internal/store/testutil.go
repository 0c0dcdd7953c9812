package store

import (
	"path/filepath"
	"testing"

	"github.com/petmvp/passportview/internal/database"
)

// SetupTestDB opens a view log database in a temp dir and returns a Store over it.
// The returned cleanup closes the database.
func SetupTestDB(t *testing.T) (Store, func()) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	return NewStore(db), func() {
		_ = database.Close(db)
	}
}
