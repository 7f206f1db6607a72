package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBills struct {
	calls  atomic.Int32
	userID atomic.Value
	err    error
}

func (f *fakeBills) GeneratePayments(_ context.Context, userID string) (int, error) {
	f.userID.Store(userID)
	f.calls.Add(1)
	return 3, f.err
}

type fakeSessions struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSessions) PurgeExpiredSessions(context.Context) (int64, error) {
	f.calls.Add(1)
	return 2, f.err
}

type fakeReminders struct {
	calls atomic.Int32
	err   error
}

func (f *fakeReminders) SendDue(context.Context) (int, error) {
	f.calls.Add(1)
	return 1, f.err
}

func TestStartRunsBillGenerationImmediately(t *testing.T) {
	bills, sessions := &fakeBills{}, &fakeSessions{}
	s := New(bills, sessions, &fakeReminders{})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 3)
	assert.Eventually(t, func() bool { return bills.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, "", bills.userID.Load(), "generation covers every user")
	assert.Zero(t, sessions.calls.Load())
}

func TestJobsSurviveErrors(t *testing.T) {
	bills := &fakeBills{err: errors.New("db down")}
	sessions := &fakeSessions{err: errors.New("db down")}
	reminders := &fakeReminders{err: errors.New("db down")}
	s := New(bills, sessions, reminders)

	assert.NotPanics(t, s.GenerateBillPayments)
	assert.NotPanics(t, s.PurgeSessions)
	assert.NotPanics(t, s.SendReminders)
	assert.Equal(t, int32(1), reminders.calls.Load())
	assert.Equal(t, int32(1), bills.calls.Load())
	assert.Equal(t, int32(1), sessions.calls.Load())
}
