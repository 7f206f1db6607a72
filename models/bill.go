package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Bill is a recurring obligation. DueDay is a day of month (1..31) for
// monthly, quarterly and yearly bills and an ISO weekday (1=Mon..7=Sun) for
// weekly and biweekly ones. Daily bills ignore it.
type Bill struct {
	ID                    int64           `json:"id"`
	UserID                string          `json:"user_id"`
	CategoryID            int64           `json:"category_id"`
	Name                  string          `json:"name"`
	Amount                decimal.Decimal `json:"amount"`
	Type                  string          `json:"type"`
	Frequency             string          `json:"frequency"`
	DueDay                int             `json:"due_day"`
	StartDate             Date            `json:"start_date"`
	EndDate               *Date           `json:"end_date"`
	ReminderDays          int             `json:"reminder_days"`
	AutoCreateTransaction bool            `json:"auto_create_transaction"`
	Notes                 string          `json:"notes,omitempty"`
	IsActive              bool            `json:"is_active"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`

	CategoryName  string `json:"category_name,omitempty"`
	CategoryIcon  string `json:"category_icon,omitempty"`
	CategoryColor string `json:"category_color,omitempty"`
	NextDueDate   *Date  `json:"next_due_date,omitempty"`
}

type BillPayment struct {
	ID            int64           `json:"id"`
	BillID        int64           `json:"bill_id"`
	DueDate       Date            `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaidDate      *Date           `json:"paid_date"`
	TransactionID *int64          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// UpcomingBill is a pending payment joined with its bill for display.
type UpcomingBill struct {
	PaymentID    int64           `json:"payment_id"`
	BillID       int64           `json:"bill_id"`
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      Date            `json:"due_date"`
	Status       string          `json:"status"`
	ReminderDays int             `json:"reminder_days"`
	DaysUntilDue int             `json:"days_until_due"`
	IsOverdue    bool            `json:"is_overdue"`
	CategoryName string          `json:"category_name"`
	CategoryIcon string          `json:"category_icon"`
}

type BillRequest struct {
	CategoryID            int64           `json:"category_id" binding:"required"`
	Name                  string          `json:"name" binding:"required"`
	Amount                decimal.Decimal `json:"amount" binding:"required"`
	Type                  string          `json:"type" binding:"required,oneof=income expense"`
	Frequency             string          `json:"frequency" binding:"required,oneof=daily weekly biweekly monthly quarterly yearly"`
	DueDay                int             `json:"due_day"`
	StartDate             Date            `json:"start_date" binding:"required"`
	EndDate               *Date           `json:"end_date"`
	ReminderDays          *int            `json:"reminder_days"`
	AutoCreateTransaction bool            `json:"auto_create_transaction"`
	Notes                 string          `json:"notes"`
	IsActive              *bool           `json:"is_active"`
}

type MarkPaidRequest struct {
	PaidDate *Date `json:"paid_date"`
}

// MarkPaidResult reports whether this call performed the transition.
type MarkPaidResult struct {
	Payment       BillPayment `json:"payment"`
	AlreadyPaid   bool        `json:"already_paid"`
	TransactionID *int64      `json:"transaction_id,omitempty"`
}

// BillReminder groups the payments one user should be reminded about today,
// with the details needed to address and format the reminder.
type BillReminder struct {
	UserID    string         `json:"user_id"`
	Email     string         `json:"-"`
	FirstName string         `json:"-"`
	Currency  string         `json:"currency"`
	Language  string         `json:"language"`
	Bills     []UpcomingBill `json:"bills"`
}
