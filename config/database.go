package config

import (
	"context"
	"fmt"
	"time"

	"github.com/managenow/api/database"
	"github.com/managenow/api/migration"
)

// InitDB opens the configured store without touching the schema.
func InitDB(cfg *Config) (*database.DB, error) {
	return database.Open(cfg.DatabaseURL)
}

// RunMigrations bootstraps the schema and default categories.
func RunMigrations(db *database.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := migration.Run(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
