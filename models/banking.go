package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProviderBrick    = "brick"
	ProviderFinverse = "finverse"
)

// Bank is one linked account at an aggregator. The access token is kept
// encrypted at rest and never serialized.
type Bank struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Provider         string          `json:"provider"`
	InstitutionID    string          `json:"institution_id"`
	InstitutionName  string          `json:"institution_name"`
	AccountID        string          `json:"account_id"`
	AccessToken      string          `json:"-"` // Internal use only
	ItemID           string          `json:"-"`
	AccountNumber    string          `json:"account_number"`
	AccountName      string          `json:"account_name"`
	AccountType      string          `json:"account_type"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Currency         string          `json:"currency"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Mask        string `json:"mask"`
	BalanceLive bool   `json:"balance_live"`
}

type Institution struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

type ConnectBankRequest struct {
	InstitutionID   string `json:"institution_id" binding:"required"`
	InstitutionName string `json:"institution_name"`
}

type ConnectBankResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

type SyncResult struct {
	BankID   string `json:"bank_id"`
	Fetched  int    `json:"fetched"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}
