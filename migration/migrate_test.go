package migration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/managenow/api/database"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Run(ctx, db))
	require.NoError(t, Run(ctx, db))

	var n int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE user_id = ? AND is_default = TRUE`, DefaultUserID).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCategories), n)
}

func TestStatementsPerDialect(t *testing.T) {
	lite := Statements(database.SQLite)
	pg := Statements(database.Postgres)

	require.NotEmpty(t, lite)
	assert.Equal(t, len(lite), len(pg))
	assert.Contains(t, lite[0], "CREATE TABLE IF NOT EXISTS users")
	for _, s := range pg {
		assert.NotContains(t, s, "AUTOINCREMENT")
	}
}
