package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/managenow/api/models"
)

func TestTransactionCreateValidates(t *testing.T) {
	e := newTestEnv(t)
	food := e.category(t, "Food & Dining")

	cases := map[string]models.CreateTransactionRequest{
		"zero amount":     {CategoryID: food, Amount: dec("0"), Type: "expense", TransactionDate: date(t, "2024-03-01")},
		"negative amount": {CategoryID: food, Amount: dec("-5"), Type: "expense", TransactionDate: date(t, "2024-03-01")},
		"bad type":        {CategoryID: food, Amount: dec("5"), Type: "transfer", TransactionDate: date(t, "2024-03-01")},
		"type mismatch":   {CategoryID: food, Amount: dec("5"), Type: "income", TransactionDate: date(t, "2024-03-01")},
		"unknown cat":     {CategoryID: 9999, Amount: dec("5"), Type: "expense", TransactionDate: date(t, "2024-03-01")},
		"missing date":    {CategoryID: food, Amount: dec("5"), Type: "expense"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.transactions.Create(e.ctx, e.userID, req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, e.countRows(t, `SELECT COUNT(*) FROM transactions`))
}

func TestTransactionCreateDerivesMonth(t *testing.T) {
	e := newTestEnv(t)

	tx := e.addTransaction(t, "Food & Dining", "expense", "12500.456", "2024-03-31")
	assert.Equal(t, "2024-03", tx.MonthYear)
	assert.True(t, tx.Amount.Equal(dec("12500.46")))
	assert.Equal(t, "Food & Dining", tx.CategoryName)
	assert.Equal(t, 1, e.notifier.count(EventTransactionCreated))
}

func TestTransactionListFilters(t *testing.T) {
	e := newTestEnv(t)
	e.addTransaction(t, "Salary", "income", "9000000", "2024-03-01")
	e.addTransaction(t, "Food & Dining", "expense", "50000", "2024-03-02")
	e.addTransaction(t, "Groceries", "expense", "80000", "2024-02-20")

	all, err := e.transactions.List(e.ctx, e.userID, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-03-02", all[0].TransactionDate.String(), "newest first")

	march, err := e.transactions.List(e.ctx, e.userID, models.TransactionFilter{MonthYear: "2024-03", Type: "expense"})
	require.NoError(t, err)
	require.Len(t, march, 1)
	assert.Equal(t, "Food & Dining", march[0].CategoryName)

	limited, err := e.transactions.List(e.ctx, e.userID, models.TransactionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = e.transactions.List(e.ctx, e.userID, models.TransactionFilter{MonthYear: "03-2024"})
	assert.ErrorIs(t, err, ErrValidation)

	other, err := e.transactions.List(e.ctx, "someone-else", models.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestTransactionDelete(t *testing.T) {
	e := newTestEnv(t)
	tx := e.addTransaction(t, "Food & Dining", "expense", "50000", "2024-03-02")

	assert.ErrorIs(t, e.transactions.Delete(e.ctx, "someone-else", tx.ID), ErrNotFound)
	require.NoError(t, e.transactions.Delete(e.ctx, e.userID, tx.ID))
	assert.ErrorIs(t, e.transactions.Delete(e.ctx, e.userID, tx.ID), ErrNotFound)
	assert.Equal(t, 1, e.notifier.count(EventTransactionDeleted))
}

func TestExportCSV(t *testing.T) {
	e := newTestEnv(t)
	e.addTransaction(t, "Food & Dining", "expense", "50000", "2024-03-02")
	e.addTransaction(t, "Salary", "income", "9000000.5", "2024-03-01")
	e.addTransaction(t, "Groceries", "expense", "80000", "2024-02-20")

	out, err := e.transactions.ExportCSV(e.ctx, e.userID, datePtr(t, "2024-03-01"), datePtr(t, "2024-03-31"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,category,type,amount,description,notes", lines[0])
	assert.Equal(t, "2024-03-02,Food & Dining,expense,50000.00,Food & Dining,", lines[1])
	assert.Equal(t, "2024-03-01,Salary,income,9000000.50,Salary,", lines[2])

	_, err = e.transactions.ExportCSV(e.ctx, e.userID, datePtr(t, "2023-01-01"), datePtr(t, "2023-12-31"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoriesAreScopedPerUser(t *testing.T) {
	e := newTestEnv(t)

	cat, err := e.categories.Create(e.ctx, e.userID, models.CreateCategoryRequest{Name: " Pets ", Type: "expense"})
	require.NoError(t, err)
	assert.Equal(t, "Pets", cat.Name)
	assert.Equal(t, "📁", cat.Icon)

	_, err = e.categories.Create(e.ctx, e.userID, models.CreateCategoryRequest{Name: "Pets", Type: "expense"})
	assert.ErrorIs(t, err, ErrConflict)

	mine, err := e.categories.List(e.ctx, e.userID, "expense")
	require.NoError(t, err)
	theirs, err := e.categories.List(e.ctx, "someone-else", "expense")
	require.NoError(t, err)
	assert.Len(t, mine, len(theirs)+1)
	assert.True(t, mine[0].IsDefault, "defaults are listed first")

	_, err = e.transactions.Create(e.ctx, "someone-else", models.CreateTransactionRequest{
		CategoryID: cat.ID, Amount: dec("10"), Type: "expense", TransactionDate: date(t, "2024-03-01"),
	})
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, e.categories.Delete(e.ctx, e.userID, e.category(t, "Groceries")), ErrNotFound, "defaults are read-only")
	require.NoError(t, e.categories.Delete(e.ctx, e.userID, cat.ID))
}

func TestCategoryInUseCannotBeDeleted(t *testing.T) {
	e := newTestEnv(t)

	cat, err := e.categories.Create(e.ctx, e.userID, models.CreateCategoryRequest{Name: "Pets", Type: "expense"})
	require.NoError(t, err)
	_, err = e.transactions.Create(e.ctx, e.userID, models.CreateTransactionRequest{
		CategoryID: cat.ID, Amount: dec("10"), Type: "expense", TransactionDate: date(t, "2024-03-01"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, e.categories.Delete(e.ctx, e.userID, cat.ID), ErrConflict)
}
