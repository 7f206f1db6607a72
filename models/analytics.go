package models

import "github.com/shopspring/decimal"

type CategorySpending struct {
	MonthYear        string          `json:"month_year"`
	CategoryID       int64           `json:"category_id"`
	CategoryName     string          `json:"category_name"`
	CategoryIcon     string          `json:"category_icon"`
	CategoryColor    string          `json:"category_color"`
	Type             string          `json:"type"`
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

type TrendPoint struct {
	MonthYear string          `json:"month_year"`
	Type      string          `json:"type"`
	Total     decimal.Decimal `json:"total"`
}

type DashboardSummary struct {
	CurrentMonth string          `json:"current_month"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Net          decimal.Decimal `json:"net"`

	UpcomingBillsCount int             `json:"upcoming_bills_count"`
	UpcomingBillsTotal decimal.Decimal `json:"upcoming_bills_total"`

	ActiveGoalsCount     int             `json:"active_goals_count"`
	ActiveGoalsRemaining decimal.Decimal `json:"active_goals_remaining"`

	TotalBankBalance decimal.Decimal `json:"total_bank_balance"`
}
