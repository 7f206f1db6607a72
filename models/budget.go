package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget is an allocation for one category and month. Spent, Remaining and
// PercentageUsed are derived from the ledger on every read.
type Budget struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"user_id"`
	CategoryID      int64           `json:"category_id"`
	MonthYear       string          `json:"month_year"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`

	CategoryName   string          `json:"category_name"`
	CategoryIcon   string          `json:"category_icon"`
	CategoryColor  string          `json:"category_color"`
	SpentAmount    decimal.Decimal `json:"spent_amount"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed decimal.Decimal `json:"percentage_used"`
}

type BudgetSummary struct {
	MonthYear         string          `json:"month_year"`
	BudgetCount       int             `json:"budget_count"`
	TotalAllocated    decimal.Decimal `json:"total_allocated"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalRemaining    decimal.Decimal `json:"total_remaining"`
	AvgPercentageUsed decimal.Decimal `json:"avg_percentage_used"`
}

type BudgetRequest struct {
	CategoryID      int64           `json:"category_id" binding:"required"`
	MonthYear       string          `json:"month_year" binding:"required"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	Notes           string          `json:"notes"`
}
