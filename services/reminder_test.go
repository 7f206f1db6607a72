package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/managenow/api/config"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

type recordingMailer struct {
	sent []models.BillReminder
	err  error
}

func (m *recordingMailer) SendBillReminder(_ context.Context, r models.BillReminder) error {
	m.sent = append(m.sent, r)
	return m.err
}

func TestDueRemindersMatchReminderDays(t *testing.T) {
	e := newTestEnv(t)
	freeze(t, "2024-03-12")

	_, err := e.bills.Create(e.ctx, e.userID, electricityBill(t, e, 15, false))
	require.NoError(t, err)
	later := electricityBill(t, e, 20, false)
	later.Name = "Internet"
	_, err = e.bills.Create(e.ctx, e.userID, later)
	require.NoError(t, err)

	reminders, err := e.bills.DueReminders(e.ctx)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	r := reminders[0]
	assert.Equal(t, e.userID, r.UserID)
	assert.Equal(t, "ani@example.com", r.Email)
	assert.Equal(t, "IDR", r.Currency)
	require.Len(t, r.Bills, 1)
	assert.Equal(t, "Electricity", r.Bills[0].Name)
	assert.Equal(t, 3, r.Bills[0].DaysUntilDue)

	off := false
	_, err = NewPreferencesService(e.db).Update(e.ctx, e.userID, models.UpdatePreferencesRequest{NotificationsEnabled: &off})
	require.NoError(t, err)
	reminders, err = e.bills.DueReminders(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestReminderServiceSendsAndNotifies(t *testing.T) {
	e := newTestEnv(t)
	freeze(t, "2024-03-12")
	_, err := e.bills.Create(e.ctx, e.userID, electricityBill(t, e, 15, false))
	require.NoError(t, err)

	mailer := &recordingMailer{err: errors.New("smtp down")}
	n, err := NewReminderService(e.bills, mailer, e.notifier).SendDue(e.ctx)
	require.NoError(t, err, "a failed email does not fail the run")
	assert.Equal(t, 1, n)
	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, 1, e.notifier.count(EventBillReminder))

	n, err = NewReminderService(e.bills, nil, nil).SendDue(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmailServiceSendBillReminder(t *testing.T) {
	var got utils.EmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	mail := NewEmailService(config.EmailConfig{BaseURL: srv.URL, APIKey: "re_test", From: "ManageNow <noreply@managenow.app>"}, "http://localhost:3000")
	err := mail.SendBillReminder(context.Background(), models.BillReminder{
		Email: "ani@example.com", FirstName: "Ani", Currency: "IDR", Language: "id",
		Bills: []models.UpcomingBill{{Name: "Electricity", Amount: dec("450000"), DueDate: date(t, "2024-03-15"), DaysUntilDue: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ani@example.com"}, got.To)
	assert.Equal(t, "1 tagihan akan jatuh tempo", got.Subject)
	assert.Contains(t, got.HTML, "Halo Ani")
	assert.Contains(t, got.HTML, "Rp 450.000")
	assert.Contains(t, got.HTML, "jatuh tempo dalam 3 hari")
	assert.Contains(t, got.HTML, "http://localhost:3000/bills")
}

func TestEmailServiceReportsProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	mail := NewEmailService(config.EmailConfig{BaseURL: srv.URL, APIKey: "re_test"}, "")
	assert.ErrorIs(t, mail.Send(context.Background(), "ani@example.com", "hi", "<p>hi</p>"), ErrProvider)

	unconfigured := NewEmailService(config.EmailConfig{BaseURL: srv.URL}, "")
	assert.Error(t, unconfigured.Send(context.Background(), "ani@example.com", "hi", "<p>hi</p>"))
}
