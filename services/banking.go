package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

const balanceRefreshTimeout = 10 * time.Second

// BankService links bank accounts through the configured aggregators and
// imports their transactions into the ledger.
type BankService struct {
	db          *database.DB
	categories  *CategoryService
	categorizer *Categorizer
	notifier    Notifier
	jwtSecret   string
	providers   map[string]Aggregator
}

func NewBankService(db *database.DB, categories *CategoryService, notifier Notifier, jwtSecret string, aggregators ...Aggregator) *BankService {
	providers := make(map[string]Aggregator, len(aggregators))
	for _, a := range aggregators {
		providers[a.Provider()] = a
	}
	return &BankService{
		db:          db,
		categories:  categories,
		categorizer: NewCategorizer(),
		notifier:    orNoop(notifier),
		jwtSecret:   jwtSecret,
		providers:   providers,
	}
}

func (s *BankService) aggregator(provider string) (Aggregator, error) {
	a, ok := s.providers[provider]
	if !ok {
		return nil, invalid("bank provider %q is not available", provider)
	}
	return a, nil
}

func (s *BankService) Institutions(ctx context.Context, provider string) ([]models.Institution, error) {
	a, err := s.aggregator(provider)
	if err != nil {
		return nil, err
	}
	return a.Institutions(ctx)
}

// Connect starts a bank link. The returned state token identifies the user
// when the provider redirects back to the callback.
func (s *BankService) Connect(ctx context.Context, userID, provider string, req models.ConnectBankRequest) (*models.ConnectBankResponse, error) {
	a, err := s.aggregator(provider)
	if err != nil {
		return nil, err
	}
	if req.InstitutionID == "" {
		return nil, invalid("institution_id is required")
	}

	state, err := utils.GenerateStateToken(s.jwtSecret, utils.StateClaims{
		UserID:          userID,
		Provider:        provider,
		InstitutionID:   req.InstitutionID,
		InstitutionName: req.InstitutionName,
	})
	if err != nil {
		return nil, err
	}

	authURL, err := a.LinkURL(ctx, userID, req.InstitutionID, state)
	if err != nil {
		return nil, err
	}
	utils.LogBankingAction("connect-start", req.InstitutionID, userID)
	return &models.ConnectBankResponse{AuthURL: authURL, State: state}, nil
}

// Callback completes a link: it checks state, exchanges the code, stores the
// first account with its balance and runs an initial sync.
func (s *BankService) Callback(ctx context.Context, provider, state, code string) (*models.Bank, error) {
	claims, err := utils.ParseStateToken(s.jwtSecret, state)
	if err != nil {
		return nil, fmt.Errorf("invalid state: %w", ErrUnauthorized)
	}
	if claims.Provider != provider {
		return nil, fmt.Errorf("state was issued for %s: %w", claims.Provider, ErrUnauthorized)
	}
	if code == "" {
		return nil, invalid("missing authorization code")
	}

	a, err := s.aggregator(provider)
	if err != nil {
		return nil, err
	}

	access, err := a.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	accounts, err := a.Accounts(ctx, access.AccessToken)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts returned: %w", ErrProvider)
	}
	acct := accounts[0]

	bank := &models.Bank{
		UserID:           claims.UserID,
		Provider:         provider,
		InstitutionID:    claims.InstitutionID,
		InstitutionName:  claims.InstitutionName,
		AccountID:        acct.ID,
		ItemID:           access.ItemID,
		AccountNumber:    acct.Number,
		AccountName:      acct.Name,
		AccountType:      acct.Type,
		Balance:          decimal.Zero,
		AvailableBalance: decimal.Zero,
		Currency:         "IDR",
	}
	if bank.InstitutionName == "" {
		bank.InstitutionName = "Indonesian Bank"
	}
	if bank.AccountType == "" {
		bank.AccountType = "depository"
	}
	if bal, err := a.Balance(ctx, access.AccessToken, acct.ID); err == nil {
		bank.Balance = bal.Current.Round(2)
		bank.AvailableBalance = bal.Available.Round(2)
		if bal.Currency != "" {
			bank.Currency = bal.Currency
		}
		bank.BalanceLive = true
	} else {
		utils.SafeWarn("⚠️ Initial balance for %s failed: %v", provider, err)
	}

	sealed, err := utils.EncryptString(access.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, bank, sealed); err != nil {
		return nil, err
	}
	bank.Mask = mask(bank.AccountNumber)

	utils.LogBankingAction("connected", bank.ID, bank.UserID)
	s.notifier.Notify(bank.UserID, EventBankChanged, bank)

	if _, err := s.Sync(ctx, bank.UserID, bank.ID); err != nil {
		utils.SafeWarn("⚠️ Initial sync of bank %s failed: %v", utils.MaskID(bank.ID), err)
	}
	return bank, nil
}

// save inserts the bank, or refreshes the token and balance when the same
// account was linked before.
func (s *BankService) save(ctx context.Context, b *models.Bank, sealedToken string) error {
	ts := timestamp()
	return database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM banks WHERE user_id = ? AND provider = ? AND account_id = ?`,
			b.UserID, b.Provider, b.AccountID).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			b.ID = uuid.NewString()
			b.CreatedAt, b.UpdatedAt = ts, ts
			_, err = tx.ExecContext(ctx, `
				INSERT INTO banks (
					id, user_id, provider, institution_id, institution_name, account_id, access_token, item_id,
					account_number, account_name, account_type, balance, available_balance, currency,
					created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, b.ID, b.UserID, b.Provider, b.InstitutionID, b.InstitutionName, b.AccountID, sealedToken, b.ItemID,
				b.AccountNumber, b.AccountName, b.AccountType, b.Balance, b.AvailableBalance, b.Currency, ts, ts)
			return err
		case err != nil:
			return err
		}

		b.ID = existing
		b.UpdatedAt = ts
		_, err = tx.ExecContext(ctx, `
			UPDATE banks
			SET access_token = ?, item_id = ?, institution_id = ?, institution_name = ?,
			    balance = ?, available_balance = ?, currency = ?, updated_at = ?
			WHERE id = ?
		`, sealedToken, b.ItemID, b.InstitutionID, b.InstitutionName,
			b.Balance, b.AvailableBalance, b.Currency, ts, existing)
		return err
	})
}

const bankColumns = `id, user_id, provider, institution_id, institution_name, account_id, access_token, item_id,
	account_number, account_name, account_type, balance, available_balance, currency, created_at, updated_at`

func scanBank(r rowScanner) (models.Bank, error) {
	var b models.Bank
	err := r.Scan(&b.ID, &b.UserID, &b.Provider, &b.InstitutionID, &b.InstitutionName, &b.AccountID, &b.AccessToken,
		&b.ItemID, &b.AccountNumber, &b.AccountName, &b.AccountType, &b.Balance, &b.AvailableBalance, &b.Currency,
		&b.CreatedAt, &b.UpdatedAt)
	b.Balance = b.Balance.Round(2)
	b.AvailableBalance = b.AvailableBalance.Round(2)
	b.Mask = mask(b.AccountNumber)
	return b, err
}

func (s *BankService) get(ctx context.Context, userID, id string) (*models.Bank, error) {
	b, err := scanBank(s.db.QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("bank")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns the user's banks with balances refreshed from the provider.
// A bank whose provider fails keeps its last stored balance.
func (s *BankService) List(ctx context.Context, userID string) ([]models.Bank, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	var banks []models.Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		banks = append(banks, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Bank, 0, len(banks))
	for i := range banks {
		s.refreshBalance(ctx, &banks[i])
		banks[i].AccessToken = ""
		out = append(out, banks[i])
	}
	return out, nil
}

func (s *BankService) refreshBalance(ctx context.Context, b *models.Bank) {
	a, ok := s.providers[b.Provider]
	if !ok {
		return
	}
	token, err := utils.DecryptString(b.AccessToken)
	if err != nil {
		utils.SafeWarn("⚠️ Cannot decrypt token of bank %s: %v", utils.MaskID(b.ID), err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, balanceRefreshTimeout)
	defer cancel()
	bal, err := a.Balance(ctx, token, b.AccountID)
	if err != nil {
		utils.SafeWarn("⚠️ Live balance for bank %s unavailable, using cached: %v", utils.MaskID(b.ID), err)
		return
	}

	b.Balance = bal.Current.Round(2)
	b.AvailableBalance = bal.Available.Round(2)
	b.BalanceLive = true
	b.UpdatedAt = timestamp()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE banks SET balance = ?, available_balance = ?, updated_at = ? WHERE id = ?`,
		b.Balance, b.AvailableBalance, b.UpdatedAt, b.ID); err != nil {
		utils.SafeWarn("⚠️ Failed to cache balance of bank %s: %v", utils.MaskID(b.ID), err)
	}
}

// Sync imports the provider's recent transactions for one bank. Rows already
// imported are skipped, so repeated syncs do not duplicate the ledger.
func (s *BankService) Sync(ctx context.Context, userID, bankID string) (*models.SyncResult, error) {
	b, err := s.get(ctx, userID, bankID)
	if err != nil {
		return nil, err
	}
	a, err := s.aggregator(b.Provider)
	if err != nil {
		return nil, err
	}
	token, err := utils.DecryptString(b.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt bank token: %w", err)
	}

	to := models.DateOf(now())
	from := to.AddDays(-a.SyncWindow())
	txns, err := a.Transactions(ctx, token, b.AccountID, from, to)
	if err != nil {
		return nil, err
	}

	result := &models.SyncResult{BankID: b.ID, Fetched: len(txns)}
	categoryIDs := map[string]int64{}
	for _, pt := range txns {
		if pt.ExternalID == "" || !pt.Amount.IsPositive() {
			result.Skipped++
			continue
		}

		name := s.categorizer.Category(pt.Type, pt.Category, pt.Description)
		catID, ok := categoryIDs[name]
		if !ok {
			if catID, err = s.categories.DefaultByName(ctx, s.db, name); err != nil {
				return nil, err
			}
			categoryIDs[name] = catID
		}

		bankID, externalID := b.ID, pt.ExternalID
		t := &models.Transaction{
			UserID:                userID,
			CategoryID:            catID,
			BankID:                &bankID,
			ExternalTransactionID: &externalID,
			Amount:                pt.Amount.Round(2),
			Type:                  pt.Type,
			Description:           pt.Description,
			TransactionDate:       pt.Date,
		}
		err := insertTransaction(ctx, s.db, t)
		if database.IsUniqueViolation(err) {
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Imported++
	}

	s.refreshBalance(ctx, b)
	utils.LogBankingAction(fmt.Sprintf("synced %d/%d", result.Imported, result.Fetched), b.ID, userID)
	if result.Imported > 0 {
		s.notifier.Notify(userID, EventBankSynced, result)
	}
	return result, nil
}

// Delete removes the bank and the transactions imported from it.
func (s *BankService) Delete(ctx context.Context, userID, bankID string) error {
	err := database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE bank_id = ? AND user_id = ?`, bankID, userID)
		if err != nil {
			return err
		}
		removed, _ := res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM banks WHERE id = ? AND user_id = ?`, bankID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("bank")
		}
		utils.SafeInfo("🗑️ Removed %d imported transactions with bank %s", removed, utils.MaskID(bankID))
		return nil
	})
	if err != nil {
		return err
	}

	utils.LogBankingAction("deleted", bankID, userID)
	s.notifier.Notify(userID, EventBankChanged, map[string]string{"deleted": bankID})
	return nil
}

func mask(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}
