package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) ExpireStalePending(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockJobs) CompleteFinished(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestJobTypeString(t *testing.T) {
	assert.Equal(t, "expire_pending", JobTypeExpirePending.String())
	assert.Equal(t, "complete_stays", JobTypeCompleteStays.String())
	assert.Equal(t, "unknown", JobType(42).String())
}

func TestNewSchedulerRejectsBadSpecs(t *testing.T) {
	_, err := NewScheduler(&mockJobs{}, Specs{ExpirePending: "not a schedule", CompleteStays: "@hourly"}, logrus.New())
	assert.Error(t, err)

	_, err = NewScheduler(&mockJobs{}, Specs{ExpirePending: "@hourly", CompleteStays: "61 * * * *"}, logrus.New())
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("ExpireStalePending", mock.Anything).Return(3, nil).Once()
	jobs.On("CompleteFinished", mock.Anything).Return(0, errors.New("database is locked")).Once()

	s, err := NewScheduler(jobs, Specs{ExpirePending: "@every 10m", CompleteStays: "@hourly"}, logrus.New())
	require.NoError(t, err)

	n, err := s.RunNow(context.Background(), JobTypeExpirePending)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.RunNow(context.Background(), JobTypeCompleteStays)
	assert.Error(t, err)

	_, err = s.RunNow(context.Background(), JobType(9))
	assert.Error(t, err)

	jobs.AssertExpectations(t)
}

func TestStartRunsStartupJobs(t *testing.T) {
	jobs := &mockJobs{}
	expired := make(chan struct{}, 1)
	completed := make(chan struct{}, 1)
	jobs.On("ExpireStalePending", mock.Anything).Return(0, nil).Run(func(mock.Arguments) { expired <- struct{}{} })
	jobs.On("CompleteFinished", mock.Anything).Return(1, nil).Run(func(mock.Arguments) { completed <- struct{}{} })

	s, err := NewScheduler(jobs, Specs{ExpirePending: "@every 1h", CompleteStays: "@every 1h"}, logrus.New())
	require.NoError(t, err)

	s.Start()
	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("expire job did not run at startup")
	}
	select {
	case <-completed:
	case <-time.After(time.Second):
		t.Fatal("complete job did not run at startup")
	}
	s.Stop()
}
