package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
)

const maxTrendMonths = 24

type AnalyticsService struct {
	db    *database.DB
	bills *BillService
}

func NewAnalyticsService(db *database.DB, bills *BillService) *AnalyticsService {
	return &AnalyticsService{db: db, bills: bills}
}

// SpendingByCategory aggregates the month's ledger per category and type,
// largest totals first.
func (s *AnalyticsService) SpendingByCategory(ctx context.Context, userID, monthYear string) ([]models.CategorySpending, error) {
	if _, err := models.ParseMonthYear(monthYear); err != nil {
		return nil, invalid("%s", err.Error())
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.month_year, c.id, c.name, c.icon, c.color, t.type,
		       COUNT(t.id), COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.month_year = ?
		GROUP BY t.month_year, c.id, c.name, c.icon, c.color, t.type
		ORDER BY COALESCE(SUM(t.amount), 0) DESC, c.name ASC
	`, userID, monthYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CategorySpending{}
	for rows.Next() {
		var cs models.CategorySpending
		if err := rows.Scan(&cs.MonthYear, &cs.CategoryID, &cs.CategoryName, &cs.CategoryIcon, &cs.CategoryColor,
			&cs.Type, &cs.TransactionCount, &cs.TotalAmount); err != nil {
			return nil, err
		}
		cs.TotalAmount = cs.TotalAmount.Round(2)
		out = append(out, cs)
	}
	return out, rows.Err()
}

// Trends returns income and expense totals for each of the last n months,
// oldest first. Months without activity report zero.
func (s *AnalyticsService) Trends(ctx context.Context, userID string, months int) ([]models.TrendPoint, error) {
	if months <= 0 {
		months = 6
	}
	if months > maxTrendMonths {
		months = maxTrendMonths
	}

	today := models.DateOf(now())
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	firstMonth := first.Format("2006-01")

	rows, err := s.db.QueryContext(ctx, `
		SELECT month_year, type, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ? AND month_year >= ?
		GROUP BY month_year, type
	`, userID, firstMonth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]decimal.Decimal{}
	for rows.Next() {
		var (
			month, typ string
			total      decimal.Decimal
		)
		if err := rows.Scan(&month, &typ, &total); err != nil {
			return nil, err
		}
		totals[month+"/"+typ] = total.Round(2)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	points := make([]models.TrendPoint, 0, months*2)
	for i := 0; i < months; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		for _, typ := range []string{models.TypeIncome, models.TypeExpense} {
			total, ok := totals[month+"/"+typ]
			if !ok {
				total = decimal.Zero
			}
			points = append(points, models.TrendPoint{MonthYear: month, Type: typ, Total: total})
		}
	}
	return points, nil
}

// Dashboard summarises the current month, the upcoming bills, the open goals
// and the last known bank balances.
func (s *AnalyticsService) Dashboard(ctx context.Context, userID string) (*models.DashboardSummary, error) {
	month := models.DateOf(now()).MonthYear()
	d := &models.DashboardSummary{
		CurrentMonth:         month,
		Income:               decimal.Zero,
		Expense:              decimal.Zero,
		UpcomingBillsTotal:   decimal.Zero,
		ActiveGoalsRemaining: decimal.Zero,
		TotalBankBalance:     decimal.Zero,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ? AND month_year = ?
		GROUP BY type
	`, userID, month)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			typ   string
			total decimal.Decimal
		)
		if err := rows.Scan(&typ, &total); err != nil {
			rows.Close()
			return nil, err
		}
		switch typ {
		case models.TypeIncome:
			d.Income = total.Round(2)
		case models.TypeExpense:
			d.Expense = total.Round(2)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	d.Net = d.Income.Sub(d.Expense)

	d.UpcomingBillsCount, d.UpcomingBillsTotal, err = s.bills.PendingTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	var remaining decimal.Decimal
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(target_amount - current_amount), 0)
		FROM financial_goals
		WHERE user_id = ? AND status = 'active'
	`, userID).Scan(&d.ActiveGoalsCount, &remaining); err != nil {
		return nil, err
	}
	d.ActiveGoalsRemaining = decimal.Max(remaining.Round(2), decimal.Zero)

	var balance decimal.Decimal
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(balance), 0) FROM banks WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		return nil, err
	}
	d.TotalBankBalance = balance.Round(2)

	return d, nil
}
