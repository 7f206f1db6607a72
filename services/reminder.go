package services

import (
	"context"

	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

// ReminderMailer delivers a bill reminder to the user's inbox.
type ReminderMailer interface {
	SendBillReminder(ctx context.Context, r models.BillReminder) error
}

// ReminderService pushes the day's bill reminders to connected clients and,
// when a mailer is configured, by email.
type ReminderService struct {
	bills    *BillService
	mailer   ReminderMailer
	notifier Notifier
}

// NewReminderService accepts a nil mailer, in which case reminders are only
// pushed in realtime.
func NewReminderService(bills *BillService, mailer ReminderMailer, notifier Notifier) *ReminderService {
	return &ReminderService{bills: bills, mailer: mailer, notifier: orNoop(notifier)}
}

// SendDue sends today's reminders and returns how many users were reminded.
// A failed email is logged and does not stop the others.
func (s *ReminderService) SendDue(ctx context.Context) (int, error) {
	reminders, err := s.bills.DueReminders(ctx)
	if err != nil {
		return 0, err
	}

	for _, r := range reminders {
		s.notifier.Notify(r.UserID, EventBillReminder, r)
		if s.mailer == nil {
			continue
		}
		if err := s.mailer.SendBillReminder(ctx, r); err != nil {
			utils.SafeWarn("⚠️ Bill reminder email to %s failed: %v", utils.MaskEmail(r.Email), err)
		}
	}
	return len(reminders), nil
}
