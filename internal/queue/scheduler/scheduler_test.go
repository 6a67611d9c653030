package scheduler

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hhi-dashboard/api/internal/services"
	"github.com/hhi-dashboard/api/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockNotifications struct {
	mock.Mock
	services.NotificationService
}

func (m *mockNotifications) EnqueueDueReminders(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockOneDrive struct {
	mock.Mock
	services.OneDriveService
}

func (m *mockOneDrive) RenewExpiring(ctx context.Context, window time.Duration) (int, error) {
	args := m.Called(ctx, window)
	return args.Int(0), args.Error(1)
}

func TestNewRegistersJobs(t *testing.T) {
	s, err := New(&mockNotifications{}, &mockOneDrive{}, Options{ReminderSpec: "0 8 * * *", RenewalSpec: "0 */6 * * *"})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s, err = New(&mockNotifications{}, nil, Options{ReminderSpec: "0 8 * * *", RenewalSpec: "0 */6 * * *"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(&mockNotifications{}, nil, Options{ReminderSpec: "every morning"})
	assert.Error(t, err)
}

func TestRunReminders(t *testing.T) {
	n := &mockNotifications{}
	n.On("EnqueueDueReminders", mock.Anything).Return(3, nil).Once()
	n.On("EnqueueDueReminders", mock.Anything).Return(0, errors.New("db down")).Once()
	s, err := New(n, nil, Options{ReminderSpec: "@daily"})
	require.NoError(t, err)

	assert.NoError(t, s.RunReminders(context.Background()))
	assert.Error(t, s.RunReminders(context.Background()))
}

func TestRenewSubscriptionsUsesWindow(t *testing.T) {
	d := &mockOneDrive{}
	d.On("RenewExpiring", mock.Anything, RenewalWindow).Return(2, nil)
	s, err := New(&mockNotifications{}, d, Options{ReminderSpec: "@daily", RenewalSpec: "@every 6h"})
	require.NoError(t, err)

	require.NoError(t, s.RenewSubscriptions(context.Background()))
	d.AssertExpectations(t)
}

func TestStartStop(t *testing.T) {
	s, err := New(&mockNotifications{}, nil, Options{ReminderSpec: "@daily"})
	require.NoError(t, err)
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
