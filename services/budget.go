package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

type BudgetService struct {
	db         *database.DB
	categories *CategoryService
	notifier   Notifier
}

func NewBudgetService(db *database.DB, categories *CategoryService, notifier Notifier) *BudgetService {
	return &BudgetService{db: db, categories: categories, notifier: orNoop(notifier)}
}

// Allocate creates the budget for (user, category, month) or replaces its
// allocation and notes when one already exists.
func (s *BudgetService) Allocate(ctx context.Context, userID string, req models.BudgetRequest) (*models.Budget, error) {
	if _, err := models.ParseMonthYear(req.MonthYear); err != nil {
		return nil, invalid("%s", err.Error())
	}
	if req.AllocatedAmount.IsNegative() {
		return nil, invalid("allocated_amount cannot be negative")
	}
	if _, err := s.categories.Visible(ctx, s.db, userID, req.CategoryID); err != nil {
		return nil, err
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO budgets (user_id, category_id, month_year, allocated_amount, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, category_id, month_year)
		DO UPDATE SET allocated_amount = excluded.allocated_amount, notes = excluded.notes
		RETURNING id
	`, userID, req.CategoryID, req.MonthYear, req.AllocatedAmount.Round(2), req.Notes, timestamp()).Scan(&id)
	if err != nil {
		return nil, err
	}

	b, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	utils.LogLedgerAction("allocate", "budget", id, userID)
	s.notifier.Notify(userID, EventBudgetChanged, b)
	return b, nil
}

// budgetSelect joins each budget with the ledger rows of the same user,
// category and month, and derives spent, remaining and percentage used in the
// same query. A zero allocation reports 0% used.
const budgetSelect = `
	SELECT b.id, b.user_id, b.category_id, b.month_year, b.allocated_amount, b.notes, b.created_at,
	       c.name, c.icon, c.color,
	       COALESCE(SUM(t.amount), 0) AS spent_amount,
	       b.allocated_amount - COALESCE(SUM(t.amount), 0) AS remaining,
	       CASE WHEN b.allocated_amount > 0
	            THEN COALESCE(SUM(t.amount), 0) * 100.0 / b.allocated_amount
	            ELSE 0
	       END AS percentage_used
	FROM budgets b
	JOIN categories c ON c.id = b.category_id
	LEFT JOIN transactions t
	       ON t.category_id = b.category_id
	      AND t.user_id = b.user_id
	      AND t.month_year = b.month_year
`

const budgetGroupBy = `
	GROUP BY b.id, b.user_id, b.category_id, b.month_year, b.allocated_amount, b.notes, b.created_at,
	         c.name, c.icon, c.color
`

func scanBudget(r rowScanner) (models.Budget, error) {
	var b models.Budget
	err := r.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.MonthYear, &b.AllocatedAmount, &b.Notes, &b.CreatedAt,
		&b.CategoryName, &b.CategoryIcon, &b.CategoryColor, &b.SpentAmount, &b.Remaining, &b.PercentageUsed)
	if err != nil {
		return b, err
	}
	b.AllocatedAmount = b.AllocatedAmount.Round(2)
	b.SpentAmount = b.SpentAmount.Round(2)
	b.Remaining = b.Remaining.Round(2)
	b.PercentageUsed = b.PercentageUsed.Round(2)
	return b, nil
}

func (s *BudgetService) get(ctx context.Context, userID string, id int64) (*models.Budget, error) {
	row := s.db.QueryRowContext(ctx, budgetSelect+` WHERE b.id = ? AND b.user_id = ?`+budgetGroupBy, id, userID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("budget")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns the month's budgets with spent, remaining and percentage used.
func (s *BudgetService) List(ctx context.Context, userID, monthYear string) ([]models.Budget, error) {
	if _, err := models.ParseMonthYear(monthYear); err != nil {
		return nil, invalid("%s", err.Error())
	}

	rows, err := s.db.QueryContext(ctx,
		budgetSelect+` WHERE b.user_id = ? AND b.month_year = ?`+budgetGroupBy+` ORDER BY c.name ASC`,
		userID, monthYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// Summary totals the month's budgets. The average percentage is the mean of
// the per-budget percentages.
func (s *BudgetService) Summary(ctx context.Context, userID, monthYear string) (*models.BudgetSummary, error) {
	budgets, err := s.List(ctx, userID, monthYear)
	if err != nil {
		return nil, err
	}

	sum := &models.BudgetSummary{
		MonthYear:         monthYear,
		BudgetCount:       len(budgets),
		TotalAllocated:    decimal.Zero,
		TotalSpent:        decimal.Zero,
		TotalRemaining:    decimal.Zero,
		AvgPercentageUsed: decimal.Zero,
	}
	pct := decimal.Zero
	for _, b := range budgets {
		sum.TotalAllocated = sum.TotalAllocated.Add(b.AllocatedAmount)
		sum.TotalSpent = sum.TotalSpent.Add(b.SpentAmount)
		sum.TotalRemaining = sum.TotalRemaining.Add(b.Remaining)
		pct = pct.Add(b.PercentageUsed)
	}
	if len(budgets) > 0 {
		sum.AvgPercentageUsed = pct.Div(decimal.NewFromInt(int64(len(budgets)))).Round(2)
	}
	return sum, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("budget")
	}
	utils.LogLedgerAction("delete", "budget", id, userID)
	s.notifier.Notify(userID, EventBudgetChanged, map[string]int64{"deleted": id})
	return nil
}
