package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
)

type PreferencesService struct {
	db *database.DB
}

func NewPreferencesService(db *database.DB) *PreferencesService {
	return &PreferencesService{db: db}
}

// Get returns the saved preferences or the defaults when none were saved.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	p := models.DefaultPreferences(userID)
	err := s.db.QueryRowContext(ctx, `
		SELECT currency, language, date_format, notifications_enabled, updated_at
		FROM user_preferences WHERE user_id = ?
	`, userID).Scan(&p.Currency, &p.Language, &p.DateFormat, &p.NotificationsEnabled, &p.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	p.CurrencySymbol = CurrencySymbol(p.Currency)
	return &p, nil
}

// Update merges the non-empty fields of req into the stored preferences.
func (s *PreferencesService) Update(ctx context.Context, userID string, req models.UpdatePreferencesRequest) (*models.UserPreferences, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Currency != "" {
		code := strings.ToUpper(req.Currency)
		if !validCurrency(code) {
			return nil, invalid("unknown currency %q", req.Currency)
		}
		p.Currency = code
	}
	if req.Language != "" {
		if req.Language != "id" && req.Language != "en" {
			return nil, invalid("language must be id or en")
		}
		p.Language = req.Language
	}
	if req.DateFormat != "" {
		switch req.DateFormat {
		case "DD/MM/YYYY", "MM/DD/YYYY", "YYYY-MM-DD":
			p.DateFormat = req.DateFormat
		default:
			return nil, invalid("unsupported date_format %q", req.DateFormat)
		}
	}
	if req.NotificationsEnabled != nil {
		p.NotificationsEnabled = *req.NotificationsEnabled
	}
	p.UpdatedAt = timestamp()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, currency, language, date_format, notifications_enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			currency = excluded.currency,
			language = excluded.language,
			date_format = excluded.date_format,
			notifications_enabled = excluded.notifications_enabled,
			updated_at = excluded.updated_at
	`, userID, p.Currency, p.Language, p.DateFormat, p.NotificationsEnabled, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CurrencySymbol = CurrencySymbol(p.Currency)
	return p, nil
}

// Format renders amount with the user's saved currency and language.
func (s *PreferencesService) Format(ctx context.Context, userID string, amount decimal.Decimal) (string, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return FormatMoney(amount, p.Currency, p.Language), nil
}
