// Package databasetest opens throwaway migrated databases for tests.
package databasetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/managenow/api/database"
	"github.com/managenow/api/migration"
)

// New returns a migrated SQLite database in t.TempDir(), closed on cleanup.
func New(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "managenow_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.Run(context.Background(), db))
	return db
}

// CreateUser inserts a bare user row and returns its id.
func CreateUser(t *testing.T, db *database.DB, id, email string) string {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO users (id, email, password_hash, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, 'x', 'Test', 'User', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, id, email)
	require.NoError(t, err)
	return id
}

// CategoryID looks up a default category by name.
func CategoryID(t *testing.T, db *database.DB, name string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRowContext(context.Background(),
		`SELECT id FROM categories WHERE user_id = ? AND name = ?`,
		migration.DefaultUserID, name).Scan(&id)
	require.NoError(t, err)
	return id
}
