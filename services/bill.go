package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

const (
	defaultReminderDays = 3
	upcomingLimit       = 10
)

type BillService struct {
	db          *database.DB
	categories  *CategoryService
	notifier    Notifier
	horizonDays int
}

func NewBillService(db *database.DB, categories *CategoryService, notifier Notifier, horizonDays int) *BillService {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &BillService{db: db, categories: categories, notifier: orNoop(notifier), horizonDays: horizonDays}
}

func (s *BillService) horizon() models.Date {
	return models.DateOf(now()).AddDays(s.horizonDays)
}

func (s *BillService) validate(ctx context.Context, userID string, req models.BillRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name is required")
	}
	if !req.Amount.IsPositive() {
		return invalid("amount must be greater than zero")
	}
	if !models.ValidType(req.Type) {
		return invalid("type must be income or expense")
	}
	if !validFrequency(req.Frequency) {
		return invalid("frequency must be one of daily, weekly, biweekly, monthly, quarterly, yearly")
	}
	switch {
	case dayStep(req.Frequency) == 7 || dayStep(req.Frequency) == 14:
		if req.DueDay < 1 || req.DueDay > 7 {
			return invalid("due_day must be a weekday between 1 (Monday) and 7 (Sunday)")
		}
	case monthStep(req.Frequency) > 0:
		if req.DueDay < 1 || req.DueDay > 31 {
			return invalid("due_day must be between 1 and 31")
		}
	}
	if req.StartDate.IsZero() {
		return invalid("start_date is required")
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return invalid("end_date cannot be before start_date")
	}
	if req.ReminderDays != nil && *req.ReminderDays < 0 {
		return invalid("reminder_days cannot be negative")
	}

	cat, err := s.categories.Visible(ctx, s.db, userID, req.CategoryID)
	if err != nil {
		return err
	}
	if cat.Type != req.Type {
		return invalid("category %q is for %s, not %s", cat.Name, cat.Type, req.Type)
	}
	return nil
}

func billFromRequest(userID string, req models.BillRequest) models.Bill {
	b := models.Bill{
		UserID:                userID,
		CategoryID:            req.CategoryID,
		Name:                  strings.TrimSpace(req.Name),
		Amount:                req.Amount.Round(2),
		Type:                  req.Type,
		Frequency:             req.Frequency,
		DueDay:                req.DueDay,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		ReminderDays:          defaultReminderDays,
		AutoCreateTransaction: req.AutoCreateTransaction,
		Notes:                 req.Notes,
		IsActive:              true,
	}
	if req.Frequency == models.FrequencyDaily {
		b.DueDay = 0
	}
	if req.ReminderDays != nil {
		b.ReminderDays = *req.ReminderDays
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	return b
}

// Create stores the bill and materialises its payments up to the horizon.
func (s *BillService) Create(ctx context.Context, userID string, req models.BillRequest) (*models.Bill, error) {
	if err := s.validate(ctx, userID, req); err != nil {
		return nil, err
	}

	b := billFromRequest(userID, req)
	b.CreatedAt = timestamp()
	b.UpdatedAt = b.CreatedAt

	err := database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO bills (
				user_id, category_id, name, amount, type, frequency, due_day, start_date, end_date,
				reminder_days, auto_create_transaction, notes, is_active, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`, b.UserID, b.CategoryID, b.Name, b.Amount, b.Type, b.Frequency, b.DueDay, b.StartDate, b.EndDate,
			b.ReminderDays, b.AutoCreateTransaction, b.Notes, b.IsActive, b.CreatedAt, b.UpdatedAt,
		).Scan(&b.ID)
		if err != nil {
			return err
		}
		if !b.IsActive {
			return nil
		}
		_, err = generateForBill(ctx, tx, &b, models.Date{}, s.horizon())
		return err
	})
	if err != nil {
		return nil, err
	}

	created, err := s.Get(ctx, userID, b.ID)
	if err != nil {
		return nil, err
	}
	utils.LogLedgerAction("create", "bill", b.ID, userID)
	s.notifier.Notify(userID, EventBillChanged, created)
	return created, nil
}

const billSelect = `
	SELECT b.id, b.user_id, b.category_id, b.name, b.amount, b.type, b.frequency, b.due_day,
	       b.start_date, b.end_date, b.reminder_days, b.auto_create_transaction, b.notes, b.is_active,
	       b.created_at, b.updated_at,
	       c.name, c.icon, c.color,
	       (SELECT MIN(p.due_date) FROM bill_payments p WHERE p.bill_id = b.id AND p.status = 'pending') AS next_pending,
	       (SELECT MAX(p.due_date) FROM bill_payments p WHERE p.bill_id = b.id) AS last_due
	FROM bills b
	JOIN categories c ON c.id = b.category_id
`

func scanBill(r rowScanner) (models.Bill, error) {
	var (
		b                    models.Bill
		nextPending, lastDue *models.Date
	)
	err := r.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Name, &b.Amount, &b.Type, &b.Frequency, &b.DueDay,
		&b.StartDate, &b.EndDate, &b.ReminderDays, &b.AutoCreateTransaction, &b.Notes, &b.IsActive,
		&b.CreatedAt, &b.UpdatedAt,
		&b.CategoryName, &b.CategoryIcon, &b.CategoryColor,
		&nextPending, &lastDue)
	if err != nil {
		return b, err
	}
	b.Amount = b.Amount.Round(2)

	if nextPending != nil {
		b.NextDueDate = nextPending
	} else if next, ok := NextDueDate(&b, lastDue); ok {
		b.NextDueDate = &next
	}
	return b, nil
}

func (s *BillService) Get(ctx context.Context, userID string, id int64) (*models.Bill, error) {
	b, err := scanBill(s.db.QueryRowContext(ctx, billSelect+` WHERE b.id = ? AND b.user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("bill")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns the user's active (or inactive) bills ordered by due day.
func (s *BillService) List(ctx context.Context, userID string, active bool) ([]models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		billSelect+` WHERE b.user_id = ? AND b.is_active = ? ORDER BY b.due_day ASC, b.name ASC`,
		userID, active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := []models.Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// Update replaces the bill. Pending payments from today on are dropped and
// regenerated from the new schedule; paid and overdue ones are kept.
func (s *BillService) Update(ctx context.Context, userID string, id int64, req models.BillRequest) (*models.Bill, error) {
	if err := s.validate(ctx, userID, req); err != nil {
		return nil, err
	}

	b := billFromRequest(userID, req)
	b.ID = id
	b.UpdatedAt = timestamp()
	today := models.DateOf(now())

	err := database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE bills
			SET category_id = ?, name = ?, amount = ?, type = ?, frequency = ?, due_day = ?,
			    start_date = ?, end_date = ?, reminder_days = ?, auto_create_transaction = ?,
			    notes = ?, is_active = ?, updated_at = ?
			WHERE id = ? AND user_id = ?
		`, b.CategoryID, b.Name, b.Amount, b.Type, b.Frequency, b.DueDay,
			b.StartDate, b.EndDate, b.ReminderDays, b.AutoCreateTransaction,
			b.Notes, b.IsActive, b.UpdatedAt, id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("bill")
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bill_payments WHERE bill_id = ? AND status = 'pending' AND due_date >= ?`,
			id, today); err != nil {
			return err
		}
		if !b.IsActive {
			return nil
		}
		_, err = generateForBill(ctx, tx, &b, today, s.horizon())
		return err
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	utils.LogLedgerAction("update", "bill", id, userID)
	s.notifier.Notify(userID, EventBillChanged, updated)
	return updated, nil
}

// Delete removes the bill and its payment history. Ledger transactions
// created from paid bills stay in place.
func (s *BillService) Delete(ctx context.Context, userID string, id int64) error {
	err := database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM bills WHERE id = ? AND user_id = ?)`, id, userID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("bill")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bill_payments WHERE bill_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM bills WHERE id = ? AND user_id = ?`, id, userID)
		return err
	})
	if err != nil {
		return err
	}
	utils.LogLedgerAction("delete", "bill", id, userID)
	s.notifier.Notify(userID, EventBillChanged, map[string]int64{"deleted": id})
	return nil
}

// generateForBill inserts the pending payments due up to through, continuing
// after the latest existing payment but never before notBefore. A bill
// without payments starts at the later of its start date and today. Existing
// rows are left untouched.
func generateForBill(ctx context.Context, q database.Queryer, b *models.Bill, notBefore, through models.Date) (int, error) {
	var lastDue *models.Date
	if err := q.QueryRowContext(ctx,
		`SELECT MAX(due_date) FROM bill_payments WHERE bill_id = ?`, b.ID).Scan(&lastDue); err != nil {
		return 0, err
	}

	var from models.Date
	if lastDue != nil {
		from = lastDue.AddDays(1)
	} else {
		from = b.StartDate
		if today := models.DateOf(now()); from.Before(today) {
			from = today
		}
	}
	if from.Before(notBefore) {
		from = notBefore
	}

	ts := timestamp()
	inserted := 0
	for _, due := range DueDatesBetween(b, from, through) {
		res, err := q.ExecContext(ctx, `
			INSERT INTO bill_payments (bill_id, due_date, amount, status, created_at, updated_at)
			VALUES (?, ?, ?, 'pending', ?, ?)
			ON CONFLICT (bill_id, due_date) DO NOTHING
		`, b.ID, due, b.Amount, ts, ts)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (s *BillService) activeBills(ctx context.Context, userID string) ([]models.Bill, error) {
	query := `
		SELECT id, user_id, category_id, name, amount, type, frequency, due_day, start_date, end_date,
		       reminder_days, auto_create_transaction, notes, is_active, created_at, updated_at
		FROM bills
		WHERE is_active = TRUE`
	var args []any
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		var b models.Bill
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Name, &b.Amount, &b.Type, &b.Frequency,
			&b.DueDay, &b.StartDate, &b.EndDate, &b.ReminderDays, &b.AutoCreateTransaction, &b.Notes,
			&b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// GeneratePayments materialises pending payments for the user's active bills
// up to the horizon. It is idempotent. An empty userID covers every user.
func (s *BillService) GeneratePayments(ctx context.Context, userID string) (int, error) {
	bills, err := s.activeBills(ctx, userID)
	if err != nil {
		return 0, err
	}

	through := s.horizon()
	total := 0
	for i := range bills {
		n, err := generateForBill(ctx, s.db, &bills[i], models.Date{}, through)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Upcoming lists pending payments due within the horizon, overdue ones
// included, soonest first.
func (s *BillService) Upcoming(ctx context.Context, userID string) ([]models.UpcomingBill, error) {
	if _, err := s.GeneratePayments(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, b.id, b.user_id, b.name, b.type, p.amount, p.due_date, p.status, b.reminder_days,
		       c.name, c.icon
		FROM bill_payments p
		JOIN bills b ON b.id = p.bill_id
		JOIN categories c ON c.id = b.category_id
		WHERE b.user_id = ? AND b.is_active = TRUE AND p.status = 'pending' AND p.due_date <= ?
		ORDER BY p.due_date ASC, b.name ASC
		LIMIT ?
	`, userID, s.horizon(), upcomingLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	today := models.DateOf(now())
	upcoming := []models.UpcomingBill{}
	for rows.Next() {
		var u models.UpcomingBill
		if err := rows.Scan(&u.PaymentID, &u.BillID, &u.UserID, &u.Name, &u.Type, &u.Amount, &u.DueDate,
			&u.Status, &u.ReminderDays, &u.CategoryName, &u.CategoryIcon); err != nil {
			return nil, err
		}
		u.Amount = u.Amount.Round(2)
		u.DaysUntilDue = daysBetween(today, u.DueDate)
		u.IsOverdue = u.DueDate.Before(today)
		upcoming = append(upcoming, u)
	}
	return upcoming, rows.Err()
}

// PendingTotals counts and sums every pending payment due within the horizon,
// overdue ones included.
func (s *BillService) PendingTotals(ctx context.Context, userID string) (int, decimal.Decimal, error) {
	if _, err := s.GeneratePayments(ctx, userID); err != nil {
		return 0, decimal.Zero, err
	}

	var (
		count int
		total decimal.Decimal
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(p.amount), 0)
		FROM bill_payments p
		JOIN bills b ON b.id = p.bill_id
		WHERE b.user_id = ? AND b.is_active = TRUE AND p.status = 'pending' AND p.due_date <= ?
	`, userID, s.horizon()).Scan(&count, &total)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return count, total.Round(2), nil
}

// MarkPaid flips a pending payment to paid. Calling it again for a paid
// payment succeeds without writing anything, so a double submit never
// records a second payment or a second ledger transaction.
func (s *BillService) MarkPaid(ctx context.Context, userID string, paymentID int64, paidDate *models.Date) (*models.MarkPaidResult, error) {
	paid := models.DateOf(now())
	if paidDate != nil && !paidDate.IsZero() {
		paid = *paidDate
	}

	result := &models.MarkPaidResult{}
	err := database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		var (
			p models.BillPayment
			b models.Bill
		)
		err := tx.QueryRowContext(ctx, `
			SELECT p.id, p.bill_id, p.due_date, p.amount, p.status, p.paid_date, p.transaction_id,
			       p.created_at, p.updated_at,
			       b.user_id, b.category_id, b.name, b.amount, b.type, b.frequency, b.due_day, b.start_date, b.end_date,
			       b.auto_create_transaction, b.is_active
			FROM bill_payments p
			JOIN bills b ON b.id = p.bill_id
			WHERE p.id = ? AND b.user_id = ?
		`, paymentID, userID).Scan(&p.ID, &p.BillID, &p.DueDate, &p.Amount, &p.Status, &p.PaidDate, &p.TransactionID,
			&p.CreatedAt, &p.UpdatedAt,
			&b.UserID, &b.CategoryID, &b.Name, &b.Amount, &b.Type, &b.Frequency, &b.DueDay, &b.StartDate, &b.EndDate,
			&b.AutoCreateTransaction, &b.IsActive)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("bill payment")
		}
		if err != nil {
			return err
		}
		b.ID = p.BillID

		if p.Status == models.PaymentPaid {
			result.AlreadyPaid = true
			result.Payment = p
			result.TransactionID = p.TransactionID
			return nil
		}

		updatedAt := timestamp()
		res, err := tx.ExecContext(ctx, `
			UPDATE bill_payments
			SET status = 'paid', paid_date = ?, updated_at = ?
			WHERE id = ? AND status <> 'paid'
			  AND EXISTS (SELECT 1 FROM bills b WHERE b.id = bill_payments.bill_id AND b.user_id = ?)
		`, paid, updatedAt, paymentID, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.AlreadyPaid = true
			result.Payment = p
			return nil
		}

		p.Status = models.PaymentPaid
		p.PaidDate = &paid
		p.UpdatedAt = updatedAt

		if b.AutoCreateTransaction {
			t := &models.Transaction{
				UserID:          userID,
				CategoryID:      b.CategoryID,
				Amount:          p.Amount.Round(2),
				Type:            b.Type,
				Description:     b.Name,
				TransactionDate: paid,
				Notes:           "Bill payment due " + p.DueDate.String(),
				IsRecurring:     true,
			}
			if err := insertTransaction(ctx, tx, t); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE bill_payments SET transaction_id = ? WHERE id = ?`, t.ID, p.ID); err != nil {
				return err
			}
			p.TransactionID = &t.ID
			result.TransactionID = &t.ID
		}
		result.Payment = p

		if b.IsActive {
			if _, err := generateForBill(ctx, tx, &b, models.Date{}, s.horizon()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyPaid {
		utils.LogLedgerAction("mark-paid", "bill_payment", paymentID, userID)
		s.notifier.Notify(userID, EventBillPaid, result)
		if result.TransactionID != nil {
			s.notifier.Notify(userID, EventTransactionCreated, map[string]int64{"id": *result.TransactionID})
		}
	}
	return result, nil
}

// DueReminders returns, per user, the pending payments whose reminder falls
// today: due in exactly reminder_days days. Users who turned notifications
// off are left out.
func (s *BillService) DueReminders(ctx context.Context) ([]models.BillReminder, error) {
	if _, err := s.GeneratePayments(ctx, ""); err != nil {
		return nil, err
	}

	today := models.DateOf(now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, b.id, b.user_id, b.name, b.type, p.amount, p.due_date, p.status, b.reminder_days,
		       c.name, c.icon, u.email, u.first_name,
		       COALESCE(up.currency, 'IDR'), COALESCE(up.language, 'id'), COALESCE(up.notifications_enabled, TRUE)
		FROM bill_payments p
		JOIN bills b ON b.id = p.bill_id
		JOIN categories c ON c.id = b.category_id
		JOIN users u ON u.id = b.user_id
		LEFT JOIN user_preferences up ON up.user_id = b.user_id
		WHERE b.is_active = TRUE AND p.status = 'pending' AND p.due_date >= ? AND p.due_date <= ?
		ORDER BY b.user_id ASC, p.due_date ASC, b.name ASC
	`, today, s.horizon())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []models.BillReminder
	for rows.Next() {
		var (
			u       models.UpcomingBill
			r       models.BillReminder
			enabled bool
		)
		if err := rows.Scan(&u.PaymentID, &u.BillID, &u.UserID, &u.Name, &u.Type, &u.Amount, &u.DueDate,
			&u.Status, &u.ReminderDays, &u.CategoryName, &u.CategoryIcon, &r.Email, &r.FirstName,
			&r.Currency, &r.Language, &enabled); err != nil {
			return nil, err
		}
		u.Amount = u.Amount.Round(2)
		u.DaysUntilDue = daysBetween(today, u.DueDate)
		if !enabled || u.DaysUntilDue != u.ReminderDays {
			continue
		}

		if n := len(reminders); n > 0 && reminders[n-1].UserID == u.UserID {
			reminders[n-1].Bills = append(reminders[n-1].Bills, u)
			continue
		}
		r.UserID = u.UserID
		r.Bills = []models.UpcomingBill{u}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
