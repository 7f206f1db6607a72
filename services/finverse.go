package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/config"
	"github.com/managenow/api/models"
)

// FinverseClient talks to the Finverse data API. Institution listing and
// link creation use a customer token; account reads use the per-login
// access token obtained at exchange.
type FinverseClient struct {
	http          httpClient
	linkURL       string
	customerAppID string
	clientID      string
	clientSecret  string
	redirectURL   string
}

func NewFinverseClient(cfg config.FinverseConfig) *FinverseClient {
	return &FinverseClient{
		http:          newHTTPClient(strings.TrimRight(cfg.BaseURL, "/")),
		linkURL:       strings.TrimRight(cfg.LinkURL, "/"),
		customerAppID: cfg.CustomerAppID,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		redirectURL:   cfg.RedirectURL,
	}
}

func (f *FinverseClient) Provider() string { return models.ProviderFinverse }

func (f *FinverseClient) SyncWindow() int { return 90 }

func (f *FinverseClient) customerToken(ctx context.Context) (string, error) {
	var resp struct {
		AccessToken   string `json:"access_token"`
		CustomerToken string `json:"customer_token"`
	}
	err := f.http.do(ctx, http.MethodPost, "/auth/customer/token", "", map[string]string{
		"customer_app_id": f.customerAppID,
		"client_id":       f.clientID,
		"client_secret":   f.clientSecret,
		"grant_type":      "client_credentials",
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken != "" {
		return resp.AccessToken, nil
	}
	return resp.CustomerToken, nil
}

func (f *FinverseClient) Institutions(ctx context.Context) ([]models.Institution, error) {
	token, err := f.customerToken(ctx)
	if err != nil {
		return nil, err
	}

	type institution struct {
		InstitutionID   string   `json:"institution_id"`
		InstitutionName string   `json:"institution_name"`
		Countries       []string `json:"countries"`
		LogoURL         string   `json:"logo_url"`
	}
	var raw json.RawMessage
	if err := f.http.do(ctx, http.MethodGet, "/institutions?country=ID", token, nil, &raw); err != nil {
		return nil, err
	}

	// Replies come either bare or wrapped in {"institutions": [...]}.
	var list []institution
	if err := json.Unmarshal(raw, &list); err != nil {
		var wrapped struct {
			Institutions []institution `json:"institutions"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, err
		}
		list = wrapped.Institutions
	}

	institutions := make([]models.Institution, 0, len(list))
	for _, in := range list {
		country := "ID"
		if len(in.Countries) > 0 {
			country = in.Countries[0]
		}
		institutions = append(institutions, models.Institution{
			ID:      in.InstitutionID,
			Name:    in.InstitutionName,
			Country: country,
			Logo:    in.LogoURL,
		})
	}
	return institutions, nil
}

// LinkURL creates a link token and returns the hosted link page for it.
// Finverse echoes state back on the redirect.
func (f *FinverseClient) LinkURL(ctx context.Context, userID, institutionID, state string) (string, error) {
	token, err := f.customerToken(ctx)
	if err != nil {
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		LinkURL     string `json:"link_url"`
	}
	err = f.http.do(ctx, http.MethodPost, "/link/token", token, map[string]string{
		"client_id":        f.clientID,
		"user_id":          userID,
		"redirect_uri":     f.redirectURL,
		"state":            state,
		"institution_id":   institutionID,
		"response_mode":    "query",
		"response_type":    "code",
		"grant_type":       "client_credentials",
		"external_user_id": userID,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.LinkURL != "" {
		return resp.LinkURL, nil
	}
	return f.linkURL + "/?token=" + url.QueryEscape(resp.AccessToken), nil
}

func (f *FinverseClient) Exchange(ctx context.Context, code string) (*LinkedAccess, error) {
	var resp struct {
		AccessToken     string `json:"access_token"`
		LoginIdentityID string `json:"login_identity_id"`
	}
	err := f.http.do(ctx, http.MethodPost, "/auth/token", "", map[string]string{
		"code":          code,
		"client_id":     f.clientID,
		"client_secret": f.clientSecret,
		"grant_type":    "authorization_code",
		"redirect_uri":  f.redirectURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &LinkedAccess{AccessToken: resp.AccessToken, ItemID: resp.LoginIdentityID}, nil
}

func (f *FinverseClient) Accounts(ctx context.Context, accessToken string) ([]ProviderAccount, error) {
	var resp struct {
		Accounts []struct {
			AccountID     string `json:"account_id"`
			AccountNumber string `json:"account_number"`
			Mask          string `json:"mask"`
			AccountName   string `json:"account_name"`
			Name          string `json:"name"`
			AccountType   struct {
				Type string `json:"type"`
			} `json:"account_type"`
		} `json:"accounts"`
	}
	if err := f.http.do(ctx, http.MethodGet, "/accounts", accessToken, nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]ProviderAccount, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		number := a.AccountNumber
		if number == "" {
			number = a.Mask
		}
		name := a.AccountName
		if name == "" {
			name = a.Name
		}
		accounts = append(accounts, ProviderAccount{
			ID:     a.AccountID,
			Number: number,
			Name:   name,
			Type:   strings.ToLower(a.AccountType.Type),
		})
	}
	return accounts, nil
}

// finverseAmount is either a bare number or {"value": n, "currency": "IDR"}.
type finverseAmount struct {
	Value    decimal.Decimal
	Currency string
}

func (a *finverseAmount) UnmarshalJSON(data []byte) error {
	if err := a.Value.UnmarshalJSON(data); err == nil {
		return nil
	}
	var obj struct {
		Value    decimal.Decimal `json:"value"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	a.Value, a.Currency = obj.Value, obj.Currency
	return nil
}

func (f *FinverseClient) Balance(ctx context.Context, accessToken, accountID string) (*ProviderBalance, error) {
	var resp struct {
		Current   finverseAmount `json:"current"`
		Available finverseAmount `json:"available"`
	}
	if err := f.http.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID)+"/balance", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return &ProviderBalance{
		Current:   resp.Current.Value,
		Available: resp.Available.Value,
		Currency:  resp.Current.Currency,
	}, nil
}

func (f *FinverseClient) Transactions(ctx context.Context, accessToken, accountID string, from, to models.Date) ([]ProviderTransaction, error) {
	q := url.Values{}
	q.Set("account_id", accountID)
	q.Set("start_date", from.String())
	q.Set("end_date", to.String())

	var resp struct {
		Transactions []struct {
			TransactionID   string          `json:"transaction_id"`
			Amount          finverseAmount  `json:"amount"`
			Description     string          `json:"description"`
			Category        []string        `json:"category"`
			Date            json.RawMessage `json:"date"`
			TransactionDate json.RawMessage `json:"transaction_date"`
			PostedDate      json.RawMessage `json:"posted_date"`
		} `json:"transactions"`
	}
	if err := f.http.do(ctx, http.MethodGet, "/transactions?"+q.Encode(), accessToken, nil, &resp); err != nil {
		return nil, err
	}

	txns := make([]ProviderTransaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		var date models.Date
		var err error
		for _, raw := range []json.RawMessage{t.Date, t.TransactionDate, t.PostedDate} {
			if len(raw) == 0 || string(raw) == "null" {
				continue
			}
			if date, err = parseProviderDate(raw); err == nil {
				break
			}
		}
		if date.IsZero() {
			continue
		}

		// Debits are negative.
		typ := models.TypeIncome
		if t.Amount.Value.IsNegative() {
			typ = models.TypeExpense
		}
		category := ""
		if len(t.Category) > 0 {
			category = t.Category[0]
		}

		txns = append(txns, ProviderTransaction{
			ExternalID:  t.TransactionID,
			Amount:      t.Amount.Value.Abs(),
			Type:        typ,
			Description: t.Description,
			Category:    category,
			Date:        date,
		})
	}
	return txns, nil
}
