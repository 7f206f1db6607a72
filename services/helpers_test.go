package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/managenow/api/database"
	"github.com/managenow/api/database/databasetest"
	"github.com/managenow/api/models"
)

type recordedEvent struct {
	userID  string
	event   string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Notify(userID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID, event, payload})
}

func (r *recordingNotifier) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.event == event {
			n++
		}
	}
	return n
}

// freeze pins the service clock to mid-morning UTC on day.
func freeze(t *testing.T, day string) models.Date {
	t.Helper()
	d := date(t, day)
	prev := now
	now = func() time.Time { return d.Add(9 * time.Hour) }
	t.Cleanup(func() { now = prev })
	return d
}

type testEnv struct {
	ctx          context.Context
	db           *database.DB
	notifier     *recordingNotifier
	categories   *CategoryService
	transactions *TransactionService
	budgets      *BudgetService
	bills        *BillService
	goals        *GoalService
	userID       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := databasetest.New(t)
	n := &recordingNotifier{}
	categories := NewCategoryService(db)
	return &testEnv{
		ctx:          context.Background(),
		db:           db,
		notifier:     n,
		categories:   categories,
		transactions: NewTransactionService(db, categories, n),
		budgets:      NewBudgetService(db, categories, n),
		bills:        NewBillService(db, categories, n, 30),
		goals:        NewGoalService(db, n),
		userID:       databasetest.CreateUser(t, db, "user-1", "ani@example.com"),
	}
}

func (e *testEnv) category(t *testing.T, name string) int64 {
	return databasetest.CategoryID(t, e.db, name)
}

func (e *testEnv) addTransaction(t *testing.T, category, typ, amount, day string) *models.Transaction {
	t.Helper()
	tx, err := e.transactions.Create(e.ctx, e.userID, models.CreateTransactionRequest{
		CategoryID:      e.category(t, category),
		Amount:          decimal.RequireFromString(amount),
		Type:            typ,
		Description:     category,
		TransactionDate: date(t, day),
	})
	require.NoError(t, err)
	return tx
}

func (e *testEnv) countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRowContext(e.ctx, query, args...).Scan(&n))
	return n
}
