package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an entry of the append-mostly ledger. Rows are never
// amended, only created and deleted.
type Transaction struct {
	ID                    int64           `json:"id"`
	UserID                string          `json:"user_id"`
	CategoryID            int64           `json:"category_id"`
	BankID                *string         `json:"bank_id,omitempty"`
	ExternalTransactionID *string         `json:"external_transaction_id,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Type                  string          `json:"type"`
	Description           string          `json:"description"`
	TransactionDate       Date            `json:"transaction_date"`
	MonthYear             string          `json:"month_year"`
	ReceiptURL            string          `json:"receipt_url,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	IsRecurring           bool            `json:"is_recurring"`
	CreatedAt             time.Time       `json:"created_at"`

	CategoryName  string `json:"category_name,omitempty"`
	CategoryIcon  string `json:"category_icon,omitempty"`
	CategoryColor string `json:"category_color,omitempty"`
}

type CreateTransactionRequest struct {
	CategoryID      int64           `json:"category_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Type            string          `json:"type" binding:"required,oneof=income expense"`
	Description     string          `json:"description"`
	TransactionDate Date            `json:"transaction_date" binding:"required"`
	ReceiptURL      string          `json:"receipt_url"`
	Notes           string          `json:"notes"`
}

// TransactionFilter narrows ListTransactions. Zero values mean no filter.
type TransactionFilter struct {
	MonthYear string
	Type      string
	Limit     int
}
