package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/managenow/api/config"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

type fakeAggregator struct {
	txns       []ProviderTransaction
	balanceErr error
}

func (f *fakeAggregator) Provider() string { return "fake" }
func (f *fakeAggregator) SyncWindow() int  { return 30 }

func (f *fakeAggregator) Institutions(context.Context) ([]models.Institution, error) {
	return []models.Institution{{ID: "bca", Name: "BCA"}}, nil
}

func (f *fakeAggregator) LinkURL(_ context.Context, _, institutionID, state string) (string, error) {
	return "https://link.example.com/" + institutionID + "?state=" + url.QueryEscape(state), nil
}

func (f *fakeAggregator) Exchange(_ context.Context, code string) (*LinkedAccess, error) {
	return &LinkedAccess{AccessToken: "tok-" + code, ItemID: "item-1"}, nil
}

func (f *fakeAggregator) Accounts(context.Context, string) ([]ProviderAccount, error) {
	return []ProviderAccount{{ID: "acc-1", Number: "1234567890", Name: "Tabungan"}}, nil
}

func (f *fakeAggregator) Balance(_ context.Context, token, _ string) (*ProviderBalance, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if token != "tok-code-1" {
		return nil, errors.New("unexpected token")
	}
	return &ProviderBalance{Current: dec("5250000.125"), Available: dec("5000000"), Currency: "IDR"}, nil
}

func (f *fakeAggregator) Transactions(context.Context, string, string, models.Date, models.Date) ([]ProviderTransaction, error) {
	return f.txns, nil
}

func newBankEnv(t *testing.T) (*testEnv, *BankService, *fakeAggregator) {
	t.Helper()
	require.NoError(t, utils.SetEncryptionKey("0123456789abcdef0123456789abcdef"))
	e := newTestEnv(t)
	fake := &fakeAggregator{}
	return e, NewBankService(e.db, e.categories, e.notifier, testSecret, fake), fake
}

func linkBank(t *testing.T, e *testEnv, banks *BankService) *models.Bank {
	t.Helper()
	conn, err := banks.Connect(e.ctx, e.userID, "fake", models.ConnectBankRequest{InstitutionID: "bca", InstitutionName: "BCA"})
	require.NoError(t, err)
	b, err := banks.Callback(e.ctx, "fake", conn.State, "code-1")
	require.NoError(t, err)
	return b
}

func TestBankLinkImportsTransactions(t *testing.T) {
	e, banks, fake := newBankEnv(t)
	today := freeze(t, "2024-07-20")
	fake.txns = []ProviderTransaction{
		{ExternalID: "t1", Amount: dec("45000"), Type: models.TypeExpense, Description: "GOFOOD JKT", Date: today},
		{ExternalID: "t2", Amount: dec("9000000"), Type: models.TypeIncome, Description: "GAJI JULI", Date: today},
		{ExternalID: "t3", Amount: dec("12000"), Type: models.TypeExpense, Description: "kios", Date: today},
		{ExternalID: "", Amount: dec("1"), Type: models.TypeExpense, Date: today},
		{ExternalID: "t4", Amount: dec("0"), Type: models.TypeExpense, Date: today},
	}

	conn, err := banks.Connect(e.ctx, e.userID, "fake", models.ConnectBankRequest{InstitutionID: "bca", InstitutionName: "BCA"})
	require.NoError(t, err)
	assert.Contains(t, conn.AuthURL, url.QueryEscape(conn.State))

	b, err := banks.Callback(e.ctx, "fake", conn.State, "code-1")
	require.NoError(t, err)
	assert.Equal(t, e.userID, b.UserID)
	assert.Equal(t, "BCA", b.InstitutionName)
	assert.Equal(t, "7890", b.Mask)
	assert.True(t, b.Balance.Equal(dec("5250000.13")))
	assert.Equal(t, 1, e.notifier.count(EventBankSynced))

	txns, err := e.transactions.List(e.ctx, e.userID, models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txns, 3)
	byDesc := map[string]string{}
	for _, tx := range txns {
		byDesc[tx.Description] = tx.CategoryName
	}
	assert.Equal(t, "Food & Dining", byDesc["GOFOOD JKT"])
	assert.Equal(t, "Salary", byDesc["GAJI JULI"])
	assert.Equal(t, "Other Expense", byDesc["kios"])

	res, err := banks.Sync(e.ctx, e.userID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Fetched)
	assert.Zero(t, res.Imported)
	assert.Equal(t, 5, res.Skipped)
	assert.Equal(t, 3, e.countRows(t, `SELECT COUNT(*) FROM transactions`))
}

func TestBankRelinkUpdatesExistingAccount(t *testing.T) {
	e, banks, _ := newBankEnv(t)

	first := linkBank(t, e, banks)
	second := linkBank(t, e, banks)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, e.countRows(t, `SELECT COUNT(*) FROM banks`))

	var sealed string
	require.NoError(t, e.db.QueryRowContext(e.ctx, `SELECT access_token FROM banks WHERE id = ?`, first.ID).Scan(&sealed))
	assert.NotEqual(t, "tok-code-1", sealed, "token is stored encrypted")
	plain, err := utils.DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "tok-code-1", plain)
}

func TestBankListRefreshesBalance(t *testing.T) {
	e, banks, fake := newBankEnv(t)
	linkBank(t, e, banks)

	list, err := banks.List(e.ctx, e.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].BalanceLive)
	assert.Empty(t, list[0].AccessToken)
	assert.True(t, list[0].AvailableBalance.Equal(dec("5000000")))

	fake.balanceErr = errors.New("provider down")
	list, err = banks.List(e.ctx, e.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].BalanceLive)
	assert.True(t, list[0].Balance.Equal(dec("5250000.13")), "cached balance is kept")

	others, err := banks.List(e.ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestBankCallbackRejectsBadState(t *testing.T) {
	e, banks, _ := newBankEnv(t)

	_, err := banks.Callback(e.ctx, "fake", "not-a-state", "code-1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	state, err := utils.GenerateStateToken(testSecret, utils.StateClaims{UserID: e.userID, Provider: models.ProviderBrick})
	require.NoError(t, err)
	_, err = banks.Callback(e.ctx, "fake", state, "code-1")
	assert.ErrorIs(t, err, ErrUnauthorized, "state issued for another provider")

	conn, err := banks.Connect(e.ctx, e.userID, "fake", models.ConnectBankRequest{InstitutionID: "bca"})
	require.NoError(t, err)
	_, err = banks.Callback(e.ctx, "fake", conn.State, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = banks.Connect(e.ctx, e.userID, "plaid", models.ConnectBankRequest{InstitutionID: "bca"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = banks.Connect(e.ctx, e.userID, "fake", models.ConnectBankRequest{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBankDeleteRemovesImportedTransactions(t *testing.T) {
	e, banks, fake := newBankEnv(t)
	today := freeze(t, "2024-07-20")
	fake.txns = []ProviderTransaction{
		{ExternalID: "t1", Amount: dec("45000"), Type: models.TypeExpense, Description: "Indomaret", Date: today},
	}
	b := linkBank(t, e, banks)
	e.addTransaction(t, "Food & Dining", "expense", "10000", "2024-07-19")

	assert.ErrorIs(t, banks.Delete(e.ctx, "someone-else", b.ID), ErrNotFound)
	require.NoError(t, banks.Delete(e.ctx, e.userID, b.ID))
	assert.Equal(t, 1, e.countRows(t, `SELECT COUNT(*) FROM transactions`), "manual entries stay")
	assert.Zero(t, e.countRows(t, `SELECT COUNT(*) FROM banks`))

	_, err := banks.Sync(e.ctx, e.userID, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBrickClientParsesTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transaction/list":
			assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
			assert.Equal(t, "2024-07-01", r.URL.Query().Get("from"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": 200,
				"data": []map[string]any{
					{"id": 991, "amount": -45000, "description": "GOFOOD", "date": "2024-07-02", "direction": "out",
						"category": map[string]any{"category_name": "Food"}},
					{"reference_id": "ref-2", "amount": 9000000, "reference": "GAJI", "dateTimestamp": 1720051200, "direction": "in",
						"category": "Income"},
					{"id": "bad", "amount": 1, "date": "yesterday"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewBrickClient(config.BrickConfig{BaseURL: srv.URL + "/"})
	txns, err := c.Transactions(context.Background(), "user-token", "acc", date(t, "2024-07-01"), date(t, "2024-07-31"))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, "991", txns[0].ExternalID)
	assert.True(t, txns[0].Amount.Equal(dec("45000")))
	assert.Equal(t, models.TypeExpense, txns[0].Type)
	assert.Equal(t, "Food", txns[0].Category)
	assert.Equal(t, "2024-07-02", txns[0].Date.String())

	assert.Equal(t, "ref-2", txns[1].ExternalID)
	assert.Equal(t, models.TypeIncome, txns[1].Type)
	assert.Equal(t, "GAJI", txns[1].Description)
	assert.Equal(t, "2024-07-04", txns[1].Date.String())

	_, err = c.Accounts(context.Background(), "user-token")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestFinverseClientParsesAmounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts/acc-1/balance":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"current":   map[string]any{"value": 1500000.5, "currency": "IDR"},
				"available": 1400000,
			})
		case "/transactions":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"transactions": []map[string]any{
					{"transaction_id": "f1", "amount": map[string]any{"value": -20000, "currency": "IDR"},
						"description": "NETFLIX", "category": []string{"Entertainment"}, "posted_date": "2024-07-03T10:00:00Z"},
					{"transaction_id": "f2", "amount": 50000, "description": "BUNGA", "date": "2024-07-04"},
					{"transaction_id": "f3", "amount": 1},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewFinverseClient(config.FinverseConfig{BaseURL: srv.URL})
	ctx := context.Background()

	bal, err := c.Balance(ctx, "login-token", "acc-1")
	require.NoError(t, err)
	assert.True(t, bal.Current.Equal(dec("1500000.5")))
	assert.True(t, bal.Available.Equal(dec("1400000")))
	assert.Equal(t, "IDR", bal.Currency)

	txns, err := c.Transactions(ctx, "login-token", "acc-1", date(t, "2024-07-01"), date(t, "2024-07-31"))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, models.TypeExpense, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(dec("20000")))
	assert.Equal(t, "Entertainment", txns[0].Category)
	assert.Equal(t, "2024-07-03", txns[0].Date.String())
	assert.Equal(t, models.TypeIncome, txns[1].Type)
}

func TestCategorizer(t *testing.T) {
	c := NewCategorizer()
	tests := []struct {
		typ    string
		labels []string
		want   string
	}{
		{models.TypeExpense, []string{"", "GRABFOOD*RESTO"}, "Food & Dining"},
		{models.TypeExpense, []string{"GRAB*RIDE"}, "Transportation"},
		{models.TypeExpense, []string{"Belanja", "TOKOPEDIA*SELLER"}, "Shopping"},
		{models.TypeExpense, []string{"PLN PREPAID"}, "Bills & Utilities"},
		{models.TypeIncome, []string{"Gaji Juli"}, "Salary"},
		{models.TypeIncome, []string{"TRANSFER DARI ANDI"}, "Other Income"},
		{models.TypeExpense, []string{"TRF KE ANDI"}, "Transfer"},
		{models.TypeIncome, []string{"netflix refund"}, "Other Income"},
		{models.TypeExpense, nil, "Other Expense"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Category(tt.typ, tt.labels...), "%s %v", tt.typ, tt.labels)
	}
}
