package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/managenow/api/database"
	"github.com/managenow/api/migration"
	"github.com/managenow/api/models"
)

type CategoryService struct {
	db *database.DB
}

func NewCategoryService(db *database.DB) *CategoryService {
	return &CategoryService{db: db}
}

// List returns the user's own categories plus the shared defaults, defaults
// first then by name. typ may be empty.
func (s *CategoryService) List(ctx context.Context, userID, typ string) ([]models.Category, error) {
	query := `
		SELECT id, user_id, name, type, icon, color, is_default, created_at
		FROM categories
		WHERE (user_id = ? OR user_id = ?)
	`
	args := []any{userID, migration.DefaultUserID}
	if typ != "" {
		if !models.ValidType(typ) {
			return nil, invalid("type must be income or expense")
		}
		query += ` AND type = ?`
		args = append(args, typ)
	}
	query += ` ORDER BY is_default DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.IsDefault, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *CategoryService) Create(ctx context.Context, userID string, req models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if !models.ValidType(req.Type) {
		return nil, invalid("type must be income or expense")
	}

	c := models.Category{
		UserID:    userID,
		Name:      name,
		Type:      req.Type,
		Icon:      req.Icon,
		Color:     req.Color,
		CreatedAt: timestamp(),
	}
	if c.Icon == "" {
		c.Icon = "📁"
	}
	if c.Color == "" {
		c.Color = "#6b7280"
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (user_id, name, type, icon, color, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, FALSE, ?)
		RETURNING id
	`, c.UserID, c.Name, c.Type, c.Icon, c.Color, c.CreatedAt).Scan(&c.ID)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("category %q already exists: %w", name, ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes one of the user's own categories. Defaults cannot be
// deleted and categories still referenced by ledger rows are kept.
func (s *CategoryService) Delete(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ? AND is_default = FALSE`, id, userID)
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("category is still in use: %w", ErrConflict)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("category")
	}
	return nil
}

// Visible loads a category the user may post to: one of their own or a
// shared default.
func (s *CategoryService) Visible(ctx context.Context, q database.Queryer, userID string, id int64) (*models.Category, error) {
	var c models.Category
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, icon, color, is_default, created_at
		FROM categories
		WHERE id = ? AND (user_id = ? OR user_id = ?)
	`, id, userID, migration.DefaultUserID).Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.Icon, &c.Color, &c.IsDefault, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invalid("category %d does not exist", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultByName resolves a shared default category, used by bank sync.
func (s *CategoryService) DefaultByName(ctx context.Context, q database.Queryer, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND name = ?`,
		migration.DefaultUserID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("default category " + name)
	}
	return id, err
}
