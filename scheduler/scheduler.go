// Package scheduler runs the periodic jobs: bill payment generation, bill
// reminders and expired session cleanup.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/managenow/api/utils"
)

const jobTimeout = 2 * time.Minute

type BillGenerator interface {
	GeneratePayments(ctx context.Context, userID string) (int, error)
}

type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

type ReminderSender interface {
	SendDue(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron      *cron.Cron
	bills     BillGenerator
	sessions  SessionPurger
	reminders ReminderSender
}

func New(bills BillGenerator, sessions SessionPurger, reminders ReminderSender) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		bills:     bills,
		sessions:  sessions,
		reminders: reminders,
	}
}

// Start registers the jobs, runs the bill generation once immediately and
// starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@daily", s.GenerateBillPayments); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.PurgeSessions); err != nil {
		return err
	}
	// 08:00 WIB
	if _, err := s.cron.AddFunc("0 1 * * *", s.SendReminders); err != nil {
		return err
	}

	go s.GenerateBillPayments()
	s.cron.Start()
	utils.LogJob("scheduler", "started with %d jobs", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) GenerateBillPayments() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.bills.GeneratePayments(ctx, "")
	if err != nil {
		utils.SafeError("❌ Bill payment generation failed: %v", err)
		return
	}
	utils.LogJob("bill-payments", "generated %d pending payments", n)
}

func (s *Scheduler) PurgeSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.sessions.PurgeExpiredSessions(ctx)
	if err != nil {
		utils.SafeError("❌ Session cleanup failed: %v", err)
		return
	}
	if n > 0 {
		utils.LogJob("sessions", "🧹 removed %d expired sessions", n)
	}
}

func (s *Scheduler) SendReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.reminders.SendDue(ctx)
	if err != nil {
		utils.SafeError("❌ Bill reminders failed: %v", err)
		return
	}
	utils.LogJob("bill-reminders", "reminded %d users", n)
}
