package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/managenow/api/config"
	"github.com/managenow/api/database/databasetest"
)

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newClient(t *testing.T) *client {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		FrontendURL:     "http://localhost:3000",
		GinMode:         gin.TestMode,
		JWTSecret:       "routes-test-secret",
		BillHorizonDays: 30,
	}
	svc := NewServices(databasetest.New(t), cfg, nil)
	return &client{t: t, router: SetupRouter(cfg, svc, nil, nil)}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (c *client) signUp(email string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/v1/auth/sign-up", gin.H{
		"email": email, "password": "correct-horse", "first_name": "Budi", "last_name": "Santoso",
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	c.token = decode(c.t, w)["token"].(string)
	require.NotEmpty(c.t, c.token)
}

func (c *client) categoryID(name string) int64 {
	c.t.Helper()
	w := c.do(http.MethodGet, "/api/v1/categories?type=expense", nil)
	require.Equal(c.t, http.StatusOK, w.Code)
	for _, raw := range decode(c.t, w)["categories"].([]any) {
		cat := raw.(map[string]any)
		if cat["name"] == name {
			return int64(cat["id"].(float64))
		}
	}
	c.t.Fatalf("category %q not found", name)
	return 0
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	w := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	c := newClient(t)
	for _, path := range []string{"/api/v1/transactions", "/api/v1/user", "/api/v1/banks", "/api/v1/analytics/dashboard"} {
		w := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, false, decode(t, w)["success"])
	}
}

func TestLedgerFlow(t *testing.T) {
	c := newClient(t)
	c.signUp("budi@example.com")

	w := c.do(http.MethodGet, "/api/v1/user", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "budi@example.com", decode(t, w)["user"].(map[string]any)["email"])

	food := c.categoryID("Food & Dining")
	w = c.do(http.MethodPost, "/api/v1/transactions", gin.H{
		"category_id": food, "amount": "45000", "type": "expense",
		"description": "Nasi goreng", "transaction_date": "2024-03-02",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	txn := decode(t, w)["transaction"].(map[string]any)
	assert.Equal(t, "2024-03", txn["month_year"])
	id := strconv.FormatInt(int64(txn["id"].(float64)), 10)

	w = c.do(http.MethodPost, "/api/v1/transactions", gin.H{
		"category_id": food, "amount": "-1", "type": "expense", "transaction_date": "2024-03-02",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodGet, "/api/v1/transactions?month=2024-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["transactions"], 1)

	w = c.do(http.MethodGet, "/api/v1/transactions/export.csv?from=2024-03-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Body.String(), "2024-03-02,Food & Dining,expense,45000.00,Nasi goreng,")

	w = c.do(http.MethodGet, "/api/v1/transactions/export.csv?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodDelete, "/api/v1/transactions/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do(http.MethodDelete, "/api/v1/transactions/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = c.do(http.MethodDelete, "/api/v1/transactions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDuplicateSignUpConflicts(t *testing.T) {
	c := newClient(t)
	c.signUp("siti@example.com")

	c.token = ""
	w := c.do(http.MethodPost, "/api/v1/auth/sign-up", gin.H{
		"email": "siti@example.com", "password": "correct-horse", "first_name": "Siti", "last_name": "A",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do(http.MethodPost, "/api/v1/auth/sign-up", gin.H{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignOutInvalidatesToken(t *testing.T) {
	c := newClient(t)
	c.signUp("rina@example.com")

	w := c.do(http.MethodPost, "/api/v1/auth/sign-out", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/api/v1/user", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBankingWithoutProviders(t *testing.T) {
	c := newClient(t)
	c.signUp("agus@example.com")

	w := c.do(http.MethodPost, "/api/v1/providers/brick/connect", gin.H{"institution_id": "2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodGet, "/api/v1/banks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/api/v1/providers/brick/callback?state=forged&code=abc", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "http://localhost:3000/my-banks?error="))
}

func TestBudgetsAndGoalsRoutes(t *testing.T) {
	c := newClient(t)
	c.signUp("dewi@example.com")

	w := c.do(http.MethodPost, "/api/v1/budgets", gin.H{
		"category_id": c.categoryID("Groceries"), "month_year": "2024-05", "allocated_amount": "1500000",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/api/v1/budgets?month=2024-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["budgets"], 1)

	w = c.do(http.MethodPost, "/api/v1/goals", gin.H{"name": "Laptop", "target_amount": "15000000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	goalID := strconv.FormatInt(int64(decode(t, w)["goal"].(map[string]any)["id"].(float64)), 10)

	w = c.do(http.MethodPost, "/api/v1/goals/"+goalID+"/contributions", gin.H{"amount": "500000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/api/v1/goals/"+goalID+"/contributions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["contributions"], 1)
}

func TestMarkPaidAcceptsEmptyChunkedBody(t *testing.T) {
	c := newClient(t)
	c.signUp("rina@example.com")

	w := c.do(http.MethodPost, "/api/v1/bills", gin.H{
		"category_id": c.categoryID("Bills & Utilities"), "name": "Internet", "amount": "350000",
		"type": "expense", "frequency": "monthly", "due_day": 15, "start_date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodGet, "/api/v1/bills/upcoming", nil)
	require.Equal(t, http.StatusOK, w.Code)
	upcoming := decode(t, w)["bills"].([]any)
	require.NotEmpty(t, upcoming)
	paymentID := strconv.FormatInt(int64(upcoming[0].(map[string]any)["payment_id"].(float64)), 10)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills/payments/"+paymentID+"/pay", strings.NewReader(""))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	w = httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["already_paid"])

	w = c.do(http.MethodPost, "/api/v1/bills/payments/"+paymentID+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["already_paid"])

	w = c.do(http.MethodPost, "/api/v1/bills/payments/"+paymentID+"/pay", gin.H{"paid_date": 12})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
