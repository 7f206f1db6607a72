package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

type TransactionService struct {
	db         *database.DB
	categories *CategoryService
	notifier   Notifier
}

func NewTransactionService(db *database.DB, categories *CategoryService, notifier Notifier) *TransactionService {
	return &TransactionService{db: db, categories: categories, notifier: orNoop(notifier)}
}

// Create records an income or expense against a category the user can see.
func (s *TransactionService) Create(ctx context.Context, userID string, req models.CreateTransactionRequest) (*models.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, invalid("amount must be greater than zero")
	}
	if !models.ValidType(req.Type) {
		return nil, invalid("type must be income or expense")
	}
	if req.TransactionDate.IsZero() {
		return nil, invalid("transaction_date is required")
	}

	cat, err := s.categories.Visible(ctx, s.db, userID, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if cat.Type != req.Type {
		return nil, invalid("category %q is for %s, not %s", cat.Name, cat.Type, req.Type)
	}

	t := &models.Transaction{
		UserID:          userID,
		CategoryID:      req.CategoryID,
		Amount:          req.Amount.Round(2),
		Type:            req.Type,
		Description:     req.Description,
		TransactionDate: req.TransactionDate,
		ReceiptURL:      req.ReceiptURL,
		Notes:           req.Notes,
		CategoryName:    cat.Name,
		CategoryIcon:    cat.Icon,
		CategoryColor:   cat.Color,
	}
	if err := insertTransaction(ctx, s.db, t); err != nil {
		return nil, err
	}

	utils.LogLedgerAction("create", "transaction", t.ID, userID)
	s.notifier.Notify(userID, EventTransactionCreated, t)
	return t, nil
}

// insertTransaction is shared by every writer of the ledger. It derives the
// month bucket and the creation timestamp.
func insertTransaction(ctx context.Context, q database.Queryer, t *models.Transaction) error {
	t.MonthYear = t.TransactionDate.MonthYear()
	t.CreatedAt = timestamp()

	err := q.QueryRowContext(ctx, `
		INSERT INTO transactions (
			user_id, category_id, bank_id, external_transaction_id, amount, type,
			description, transaction_date, month_year, receipt_url, notes, is_recurring, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, t.UserID, t.CategoryID, t.BankID, t.ExternalTransactionID, t.Amount, t.Type,
		t.Description, t.TransactionDate, t.MonthYear, t.ReceiptURL, t.Notes, t.IsRecurring, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

const transactionColumns = `
	t.id, t.user_id, t.category_id, t.bank_id, t.external_transaction_id, t.amount, t.type,
	t.description, t.transaction_date, t.month_year, t.receipt_url, t.notes, t.is_recurring, t.created_at,
	COALESCE(c.name, ''), COALESCE(c.icon, ''), COALESCE(c.color, '')
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (models.Transaction, error) {
	var t models.Transaction
	err := r.Scan(
		&t.ID, &t.UserID, &t.CategoryID, &t.BankID, &t.ExternalTransactionID, &t.Amount, &t.Type,
		&t.Description, &t.TransactionDate, &t.MonthYear, &t.ReceiptURL, &t.Notes, &t.IsRecurring, &t.CreatedAt,
		&t.CategoryName, &t.CategoryIcon, &t.CategoryColor,
	)
	return t, err
}

// List returns the newest transactions first.
func (s *TransactionService) List(ctx context.Context, userID string, f models.TransactionFilter) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?`
	args := []any{userID}

	if f.MonthYear != "" {
		if _, err := models.ParseMonthYear(f.MonthYear); err != nil {
			return nil, invalid("%s", err.Error())
		}
		query += ` AND t.month_year = ?`
		args = append(args, f.MonthYear)
	}
	if f.Type != "" {
		if !models.ValidType(f.Type) {
			return nil, invalid("type must be income or expense")
		}
		query += ` AND t.type = ?`
		args = append(args, f.Type)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}
	query += ` ORDER BY t.transaction_date DESC, t.created_at DESC, t.id DESC LIMIT ?`
	args = append(args, limit)

	return s.query(ctx, query, args...)
}

func (s *TransactionService) Recent(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.List(ctx, userID, models.TransactionFilter{Limit: limit})
}

func (s *TransactionService) query(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *TransactionService) Delete(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("transaction")
	}

	utils.LogLedgerAction("delete", "transaction", id, userID)
	s.notifier.Notify(userID, EventTransactionDeleted, map[string]int64{"id": id})
	return nil
}

// ExportCSV renders the user's transactions between from and to (inclusive,
// either may be nil) as CSV, newest first.
func (s *TransactionService) ExportCSV(ctx context.Context, userID string, from, to *models.Date) ([]byte, error) {
	query := `
		SELECT t.transaction_date, c.name, t.type, t.amount, t.description, t.notes
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?`
	args := []any{userID}
	if from != nil {
		query += ` AND t.transaction_date >= ?`
		args = append(args, *from)
	}
	if to != nil {
		query += ` AND t.transaction_date <= ?`
		args = append(args, *to)
	}
	query += ` ORDER BY t.transaction_date DESC, t.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"date", "category", "type", "amount", "description", "notes"}); err != nil {
		return nil, err
	}

	count := 0
	for rows.Next() {
		var (
			date                     models.Date
			category, typ, desc, nts string
			amount                   decimal.Decimal
		)
		if err := rows.Scan(&date, &category, &typ, &amount, &desc, &nts); err != nil {
			return nil, err
		}
		if err := w.Write([]string{date.String(), category, typ, amount.StringFixed(2), desc, nts}); err != nil {
			return nil, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("no transactions to export: %w", ErrNotFound)
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
