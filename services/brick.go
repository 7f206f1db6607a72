package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/config"
	"github.com/managenow/api/models"
)

// BrickClient talks to the Brick open-banking API. Every call first obtains
// an application token from the client credentials.
type BrickClient struct {
	http         httpClient
	clientID     string
	clientSecret string
	redirectURL  string
}

func NewBrickClient(cfg config.BrickConfig) *BrickClient {
	return &BrickClient{
		http:         newHTTPClient(strings.TrimRight(cfg.BaseURL, "/")),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
	}
}

func (b *BrickClient) Provider() string { return models.ProviderBrick }

func (b *BrickClient) SyncWindow() int { return 30 }

type brickEnvelope[T any] struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (b *BrickClient) appToken(ctx context.Context) (string, error) {
	var resp brickEnvelope[struct {
		AccessToken string `json:"accessToken"`
	}]
	err := b.http.do(ctx, http.MethodPost, "/auth/token", "", map[string]string{
		"clientId":     b.clientID,
		"clientSecret": b.clientSecret,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Data.AccessToken, nil
}

func (b *BrickClient) Institutions(ctx context.Context) ([]models.Institution, error) {
	token, err := b.appToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp brickEnvelope[[]struct {
		ID              json.RawMessage `json:"id"`
		BankName        string          `json:"bankName"`
		BankCode        string          `json:"bankCode"`
		InstitutionName string          `json:"institutionName"`
		Logo            string          `json:"logo"`
	}]
	if err := b.http.do(ctx, http.MethodGet, "/institution/list", token, nil, &resp); err != nil {
		return nil, err
	}

	institutions := make([]models.Institution, 0, len(resp.Data))
	for _, in := range resp.Data {
		name := in.BankName
		if name == "" {
			name = in.InstitutionName
		}
		institutions = append(institutions, models.Institution{
			ID:      rawID(in.ID),
			Name:    name,
			Country: "ID",
			Logo:    in.Logo,
		})
	}
	return institutions, nil
}

// LinkURL asks Brick for a widget URL. The redirect carries state so the
// callback can tell who connected.
func (b *BrickClient) LinkURL(ctx context.Context, userID, institutionID, state string) (string, error) {
	token, err := b.appToken(ctx)
	if err != nil {
		return "", err
	}

	redirect, err := withQuery(b.redirectURL, "state", state)
	if err != nil {
		return "", err
	}

	var institution any = institutionID
	if n, err := strconv.Atoi(institutionID); err == nil {
		institution = n
	}

	var resp brickEnvelope[struct {
		AuthURL string `json:"authUrl"`
	}]
	err = b.http.do(ctx, http.MethodPost, "/auth/link", token, map[string]any{
		"institutionId": institution,
		"userId":        userID,
		"redirectUrl":   redirect,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Data.AuthURL, nil
}

func (b *BrickClient) Exchange(ctx context.Context, publicToken string) (*LinkedAccess, error) {
	token, err := b.appToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp brickEnvelope[struct {
		AccessToken string `json:"accessToken"`
		AccountID   string `json:"accountId"`
	}]
	err = b.http.do(ctx, http.MethodPost, "/auth/exchange-token", token, map[string]string{
		"publicToken": publicToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &LinkedAccess{AccessToken: resp.Data.AccessToken, ItemID: resp.Data.AccountID}, nil
}

func (b *BrickClient) Accounts(ctx context.Context, accessToken string) ([]ProviderAccount, error) {
	var resp brickEnvelope[[]struct {
		AccountID     string `json:"accountId"`
		AccountNumber string `json:"accountNumber"`
		AccountHolder string `json:"accountHolder"`
		Type          string `json:"type"`
	}]
	if err := b.http.do(ctx, http.MethodGet, "/account/list", accessToken, nil, &resp); err != nil {
		return nil, err
	}

	accounts := make([]ProviderAccount, 0, len(resp.Data))
	for _, a := range resp.Data {
		accounts = append(accounts, ProviderAccount{
			ID:     a.AccountID,
			Number: a.AccountNumber,
			Name:   a.AccountHolder,
			Type:   a.Type,
		})
	}
	return accounts, nil
}

func (b *BrickClient) Balance(ctx context.Context, accessToken, accountID string) (*ProviderBalance, error) {
	var resp brickEnvelope[struct {
		Available decimal.Decimal `json:"available"`
		Current   decimal.Decimal `json:"current"`
		Currency  string          `json:"currency"`
	}]
	if err := b.http.do(ctx, http.MethodGet, "/account/"+url.PathEscape(accountID)+"/balance", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return &ProviderBalance{Current: resp.Data.Current, Available: resp.Data.Available, Currency: resp.Data.Currency}, nil
}

func (b *BrickClient) Transactions(ctx context.Context, accessToken, accountID string, from, to models.Date) ([]ProviderTransaction, error) {
	q := url.Values{}
	q.Set("accountId", accountID)
	q.Set("from", from.String())
	q.Set("to", to.String())

	var resp brickEnvelope[[]struct {
		ID            json.RawMessage `json:"id"`
		ReferenceID   string          `json:"reference_id"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Reference     string          `json:"reference"`
		Category      json.RawMessage `json:"category"`
		Date          json.RawMessage `json:"date"`
		DateTimestamp json.RawMessage `json:"dateTimestamp"`
		Direction     string          `json:"direction"`
	}]
	if err := b.http.do(ctx, http.MethodGet, "/transaction/list?"+q.Encode(), accessToken, nil, &resp); err != nil {
		return nil, err
	}

	txns := make([]ProviderTransaction, 0, len(resp.Data))
	for _, t := range resp.Data {
		raw := t.DateTimestamp
		if len(raw) == 0 || string(raw) == "null" {
			raw = t.Date
		}
		date, err := parseProviderDate(raw)
		if err != nil {
			continue
		}

		id := rawID(t.ID)
		if id == "" {
			id = t.ReferenceID
		}
		desc := t.Description
		if desc == "" {
			desc = t.Reference
		}
		typ := models.TypeExpense
		if strings.EqualFold(t.Direction, "in") {
			typ = models.TypeIncome
		}

		txns = append(txns, ProviderTransaction{
			ExternalID:  id,
			Amount:      t.Amount.Abs(),
			Type:        typ,
			Description: desc,
			Category:    brickCategory(t.Category),
			Date:        date,
		})
	}
	return txns, nil
}

// brickCategory reads either a plain string or an object with a name.
func brickCategory(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		CategoryName string `json:"category_name"`
		Name         string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.CategoryName != "" {
			return obj.CategoryName
		}
		return obj.Name
	}
	return ""
}

// rawID reads an identifier sent either as a JSON string or a number.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func withQuery(rawURL, key, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
