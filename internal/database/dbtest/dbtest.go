// Package dbtest opens throwaway databases carrying the application schema.
package dbtest

import (
	"database/sql"
	"testing"

	"bozorlik/internal/database"

	_ "github.com/mattn/go-sqlite3"
)

// New returns an in-memory database with every migration applied. It is
// closed when the test ends.
func New(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	// Every pooled connection would get its own empty :memory: database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := database.ApplySchema(db); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}
	return db
}
