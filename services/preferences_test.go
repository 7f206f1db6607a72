package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/managenow/api/models"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount, code, lang string
		want               string
	}{
		{"1500000", "IDR", "id", "Rp 1.500.000"},
		{"1500000.75", "IDR", "id", "Rp 1.500.001"},
		{"1500.5", "USD", "en", "$ 1,500.50"},
		{"1500.5", "EUR", "id", "€ 1.500,50"},
		{"250", "JPY", "en", "¥ 250"},
		{"10", "CHF", "en", "CHF 10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(dec(tt.amount), tt.code, tt.lang))
		})
	}
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "Rp", CurrencySymbol("idr"))
	assert.Equal(t, "S$", CurrencySymbol("SGD"))
	assert.Equal(t, "AUD", CurrencySymbol("AUD"))
}

func TestPreferences(t *testing.T) {
	e := newTestEnv(t)
	prefs := NewPreferencesService(e.db)

	p, err := prefs.Get(e.ctx, e.userID)
	require.NoError(t, err)
	assert.Equal(t, "IDR", p.Currency)
	assert.Equal(t, "Rp", p.CurrencySymbol)
	assert.True(t, p.NotificationsEnabled)

	off := false
	p, err = prefs.Update(e.ctx, e.userID, models.UpdatePreferencesRequest{Currency: "usd", Language: "en", NotificationsEnabled: &off})
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "$", p.CurrencySymbol)

	p, err = prefs.Update(e.ctx, e.userID, models.UpdatePreferencesRequest{DateFormat: "YYYY-MM-DD"})
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency, "unset fields are kept")
	assert.Equal(t, "en", p.Language)
	assert.False(t, p.NotificationsEnabled)

	stored, err := prefs.Get(e.ctx, e.userID)
	require.NoError(t, err)
	assert.Equal(t, "YYYY-MM-DD", stored.DateFormat)

	_, err = prefs.Update(e.ctx, e.userID, models.UpdatePreferencesRequest{Currency: "QQQ"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = prefs.Update(e.ctx, e.userID, models.UpdatePreferencesRequest{Language: "fr"})
	assert.ErrorIs(t, err, ErrValidation)

	s, err := prefs.Format(e.ctx, e.userID, dec("2500"))
	require.NoError(t, err)
	assert.Equal(t, "$ 2,500.00", s)
}

func TestShortcuts(t *testing.T) {
	e := newTestEnv(t)
	freeze(t, "2024-06-15")
	shortcuts := NewShortcutService(e.db, e.categories, e.transactions)

	coffee := dec("25000")
	first, err := shortcuts.Create(e.ctx, e.userID, models.ShortcutRequest{
		Name: "Coffee", CategoryID: e.category(t, "Food & Dining"), Amount: &coffee, Type: "expense",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.SortOrder)
	assert.Equal(t, "⚡", first.Icon)

	second, err := shortcuts.Create(e.ctx, e.userID, models.ShortcutRequest{
		Name: "Parking", CategoryID: e.category(t, "Transportation"), Type: "expense", Icon: "🅿️",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.SortOrder)
	assert.False(t, second.Amount.Valid)

	_, err = shortcuts.Create(e.ctx, e.userID, models.ShortcutRequest{
		Name: "Bad", CategoryID: e.category(t, "Salary"), Type: "expense",
	})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := shortcuts.List(e.ctx, e.userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Coffee", list[0].Name)

	tx, err := shortcuts.Use(e.ctx, e.userID, first.ID, models.UseShortcutRequest{})
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(coffee))
	assert.Equal(t, "Coffee", tx.Description)
	assert.Equal(t, "2024-06-15", tx.TransactionDate.String())

	_, err = shortcuts.Use(e.ctx, e.userID, second.ID, models.UseShortcutRequest{})
	assert.ErrorIs(t, err, ErrValidation, "no amount on shortcut or request")

	fee := dec("5000")
	tx, err = shortcuts.Use(e.ctx, e.userID, second.ID, models.UseShortcutRequest{Amount: &fee, Description: "Mall"})
	require.NoError(t, err)
	assert.Equal(t, "Mall", tx.Description)

	_, err = shortcuts.Use(e.ctx, "someone-else", first.ID, models.UseShortcutRequest{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, shortcuts.Delete(e.ctx, e.userID, first.ID))
	assert.ErrorIs(t, shortcuts.Delete(e.ctx, e.userID, first.ID), ErrNotFound)
}
