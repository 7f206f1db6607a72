package models

import "time"

type UserPreferences struct {
	UserID               string    `json:"user_id"`
	Currency             string    `json:"currency"`
	Language             string    `json:"language"`
	DateFormat           string    `json:"date_format"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
	CurrencySymbol       string    `json:"currency_symbol"`
}

// DefaultPreferences are returned for users who never saved any.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:               userID,
		Currency:             "IDR",
		Language:             "id",
		DateFormat:           "DD/MM/YYYY",
		NotificationsEnabled: true,
	}
}

type UpdatePreferencesRequest struct {
	Currency             string `json:"currency" binding:"omitempty,len=3"`
	Language             string `json:"language" binding:"omitempty,oneof=id en"`
	DateFormat           string `json:"date_format" binding:"omitempty,oneof=DD/MM/YYYY MM/DD/YYYY YYYY-MM-DD"`
	NotificationsEnabled *bool  `json:"notifications_enabled"`
}
