package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuickShortcut is a saved one-tap transaction template.
type QuickShortcut struct {
	ID         int64               `json:"id"`
	UserID     string              `json:"user_id"`
	Name       string              `json:"name"`
	CategoryID int64               `json:"category_id"`
	Amount     decimal.NullDecimal `json:"amount"`
	Type       string              `json:"type"`
	Icon       string              `json:"icon"`
	SortOrder  int                 `json:"sort_order"`
	CreatedAt  time.Time           `json:"created_at"`

	CategoryName  string `json:"category_name"`
	CategoryIcon  string `json:"category_icon"`
	CategoryColor string `json:"category_color"`
}

type ShortcutRequest struct {
	Name       string           `json:"name" binding:"required"`
	CategoryID int64            `json:"category_id" binding:"required"`
	Amount     *decimal.Decimal `json:"amount"`
	Type       string           `json:"type" binding:"required,oneof=income expense"`
	Icon       string           `json:"icon"`
}

type UseShortcutRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
	Date        *Date            `json:"date"`
}
