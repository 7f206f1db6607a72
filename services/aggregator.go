package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/models"
)

// Aggregator is an open-banking provider that can link a bank account and
// read its balance and transactions.
type Aggregator interface {
	Provider() string
	Institutions(ctx context.Context) ([]models.Institution, error)
	// LinkURL returns where the user is sent to log in to their bank. The
	// provider redirects back to the callback with state preserved.
	LinkURL(ctx context.Context, userID, institutionID, state string) (string, error)
	// Exchange trades the callback code or public token for account access.
	Exchange(ctx context.Context, code string) (*LinkedAccess, error)
	Accounts(ctx context.Context, accessToken string) ([]ProviderAccount, error)
	Balance(ctx context.Context, accessToken, accountID string) (*ProviderBalance, error)
	Transactions(ctx context.Context, accessToken, accountID string, from, to models.Date) ([]ProviderTransaction, error)
	// SyncWindow is how far back a sync reads.
	SyncWindow() int
}

type LinkedAccess struct {
	AccessToken string
	ItemID      string
}

type ProviderAccount struct {
	ID     string
	Number string
	Name   string
	Type   string
}

type ProviderBalance struct {
	Current   decimal.Decimal
	Available decimal.Decimal
	Currency  string
}

// ProviderTransaction is a normalised bank movement. Amount is always
// positive; Type says which way the money went.
type ProviderTransaction struct {
	ExternalID  string
	Amount      decimal.Decimal
	Type        string
	Description string
	Category    string
	Date        models.Date
}

type httpClient struct {
	BaseURL string
	Client  *http.Client
}

func newHTTPClient(baseURL string) httpClient {
	return httpClient{BaseURL: baseURL, Client: &http.Client{Timeout: 30 * time.Second}}
}

// do sends body as JSON and decodes a 2xx JSON reply into out. Other
// statuses surface as ErrProvider with the response body attached.
func (c httpClient) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, ErrProvider)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %v: %w", method, path, err, ErrProvider)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s: %w", method, path, resp.StatusCode, truncate(string(respBody), 200), ErrProvider)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: decode: %v: %w", method, path, err, ErrProvider)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// parseProviderDate accepts a plain date, an RFC 3339 timestamp or a unix
// timestamp in seconds or milliseconds.
func parseProviderDate(raw json.RawMessage) (models.Date, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n > 1e12 {
			return models.DateOf(time.UnixMilli(n).UTC()), nil
		}
		return models.DateOf(time.Unix(n, 0).UTC()), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Date{}, fmt.Errorf("unsupported date %s", string(raw))
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return models.DateOf(t.UTC()), nil
	}
	return models.ParseDate(s)
}
