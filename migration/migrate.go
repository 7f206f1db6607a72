// Package migration bootstraps the schema and the shared default categories.

package migration

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/managenow/api/database"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// DefaultUserID owns the categories every user can see.
const DefaultUserID = "default"

type defaultCategory struct {
	Name  string
	Type  string
	Icon  string
	Color string
}

// DefaultCategories also drive bank sync classification, so names here must
// match the ones referenced by the categorizer.
var DefaultCategories = []defaultCategory{
	{"Salary", "income", "💼", "#10b981"},
	{"Freelance", "income", "💻", "#14b8a6"},
	{"Investment", "income", "📈", "#22c55e"},
	{"Gift", "income", "🎁", "#84cc16"},
	{"Other Income", "income", "💰", "#06b6d4"},
	{"Food & Dining", "expense", "🍽️", "#f97316"},
	{"Groceries", "expense", "🛒", "#f59e0b"},
	{"Transportation", "expense", "🚗", "#3b82f6"},
	{"Shopping", "expense", "🛍️", "#ec4899"},
	{"Bills & Utilities", "expense", "💡", "#eab308"},
	{"Entertainment", "expense", "🎬", "#8b5cf6"},
	{"Health", "expense", "🏥", "#ef4444"},
	{"Education", "expense", "📚", "#6366f1"},
	{"Transfer", "expense", "🔁", "#64748b"},
	{"Other Expense", "expense", "📦", "#94a3b8"},
}

// Statements splits the embedded schema for the dialect into single
// statements. The scripts contain no semicolons inside literals.
func Statements(d database.Dialect) []string {
	script := sqliteSchema
	if d == database.Postgres {
		script = postgresSchema
	}

	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// Run creates any missing tables and indexes, then seeds default categories.
// It is safe to call on every start.
func Run(ctx context.Context, db *database.DB) error {
	for _, stmt := range Statements(db.Dialect()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	seeded, err := seedDefaultCategories(ctx, db)
	if err != nil {
		return err
	}
	if seeded > 0 {
		log.Printf("🌱 Seeded %d default categories", seeded)
	}
	return nil
}

func seedDefaultCategories(ctx context.Context, db *database.DB) (int, error) {
	now := time.Now().UTC().Truncate(time.Second)
	seeded := 0

	err := database.WithTransaction(ctx, db, func(tx *database.Tx) error {
		for _, c := range DefaultCategories {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO categories (user_id, name, type, icon, color, is_default, created_at)
				VALUES (?, ?, ?, ?, ?, TRUE, ?)
				ON CONFLICT (user_id, name, type) DO NOTHING
			`, DefaultUserID, c.Name, c.Type, c.Icon, c.Color, now)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				seeded++
			}
		}
		return nil
	})
	return seeded, err
}
