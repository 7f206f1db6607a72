package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

const defaultShortcutIcon = "⚡"

type ShortcutService struct {
	db           *database.DB
	categories   *CategoryService
	transactions *TransactionService
}

func NewShortcutService(db *database.DB, categories *CategoryService, transactions *TransactionService) *ShortcutService {
	return &ShortcutService{db: db, categories: categories, transactions: transactions}
}

func (s *ShortcutService) List(ctx context.Context, userID string) ([]models.QuickShortcut, error) {
	rows, err := s.db.QueryContext(ctx, shortcutSelect+`
		WHERE q.user_id = ?
		ORDER BY q.sort_order ASC, q.id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shortcuts := []models.QuickShortcut{}
	for rows.Next() {
		q, err := scanShortcut(rows)
		if err != nil {
			return nil, err
		}
		shortcuts = append(shortcuts, q)
	}
	return shortcuts, rows.Err()
}

const shortcutSelect = `
	SELECT q.id, q.user_id, q.name, q.category_id, q.amount, q.type, q.icon, q.sort_order, q.created_at,
	       c.name, c.icon, c.color
	FROM quick_shortcuts q
	JOIN categories c ON c.id = q.category_id
`

func scanShortcut(r rowScanner) (models.QuickShortcut, error) {
	var q models.QuickShortcut
	err := r.Scan(&q.ID, &q.UserID, &q.Name, &q.CategoryID, &q.Amount, &q.Type, &q.Icon, &q.SortOrder, &q.CreatedAt,
		&q.CategoryName, &q.CategoryIcon, &q.CategoryColor)
	if err == nil && q.Amount.Valid {
		q.Amount.Decimal = q.Amount.Decimal.Round(2)
	}
	return q, err
}

// Create appends a shortcut after the user's existing ones.
func (s *ShortcutService) Create(ctx context.Context, userID string, req models.ShortcutRequest) (*models.QuickShortcut, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if !models.ValidType(req.Type) {
		return nil, invalid("type must be income or expense")
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}
	cat, err := s.categories.Visible(ctx, s.db, userID, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat.Type != req.Type {
		return nil, invalid("category %q is for %s, not %s", cat.Name, cat.Type, req.Type)
	}

	var amount decimal.NullDecimal
	if req.Amount != nil {
		amount = decimal.NewNullDecimal(req.Amount.Round(2))
	}
	icon := req.Icon
	if icon == "" {
		icon = defaultShortcutIcon
	}

	var id int64
	err = database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM quick_shortcuts WHERE user_id = ?`, userID).Scan(&next); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `
			INSERT INTO quick_shortcuts (user_id, name, category_id, amount, type, icon, sort_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`, userID, name, req.CategoryID, amount, req.Type, icon, next, timestamp()).Scan(&id)
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, userID, id)
}

func (s *ShortcutService) get(ctx context.Context, userID string, id int64) (*models.QuickShortcut, error) {
	q, err := scanShortcut(s.db.QueryRowContext(ctx, shortcutSelect+` WHERE q.id = ? AND q.user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("shortcut")
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *ShortcutService) Delete(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quick_shortcuts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("shortcut")
	}
	return nil
}

// Use records a ledger transaction from the shortcut. A shortcut without a
// fixed amount needs one in the request.
func (s *ShortcutService) Use(ctx context.Context, userID string, id int64, req models.UseShortcutRequest) (*models.Transaction, error) {
	q, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var amount decimal.Decimal
	switch {
	case req.Amount != nil:
		amount = *req.Amount
	case q.Amount.Valid:
		amount = q.Amount.Decimal
	default:
		return nil, invalid("shortcut %q has no amount, one is required", q.Name)
	}

	date := models.DateOf(now())
	if req.Date != nil && !req.Date.IsZero() {
		date = *req.Date
	}
	desc := req.Description
	if desc == "" {
		desc = q.Name
	}

	t, err := s.transactions.Create(ctx, userID, models.CreateTransactionRequest{
		CategoryID:      q.CategoryID,
		Amount:          amount,
		Type:            q.Type,
		Description:     desc,
		TransactionDate: date,
	})
	if err != nil {
		return nil, err
	}
	utils.LogLedgerAction("use", "shortcut", id, userID)
	return t, nil
}
