// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package bulkjob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/domain"
	bulkErrors "github.com/bulkctl/bulkctl/internal/errors"
	"github.com/bulkctl/bulkctl/internal/progress"
)

// MockBulkJobAPI for testing the job client
type MockBulkJobAPI struct {
	mock.Mock
}

func (m *MockBulkJobAPI) StartBulkJob(ctx context.Context, action domain.Action, scope domain.Scope) (*domain.JobHandle, error) {
	args := m.Called(ctx, action, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JobHandle), args.Error(1)
}

func (m *MockBulkJobAPI) GetBulkJob(ctx context.Context, jobID string) (*domain.BulkJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BulkJob), args.Error(1)
}

func (m *MockBulkJobAPI) SubscribeBulkJob(ctx context.Context, jobID string) (domain.JobSubscription, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.JobSubscription), args.Error(1)
}

func (m *MockBulkJobAPI) CancelBulkJob(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func newClient(api domain.BulkJobAPI) *Client {
	follower := progress.NewFollower(api, progress.Config{
		ConnectTimeout: 10 * time.Millisecond,
		PollInterval:   time.Millisecond,
	}, nil)
	return New(api, follower, nil)
}

func TestStart(t *testing.T) {
	scope := domain.Scope{IDs: []string{"a", "b", "c"}}

	tests := []struct {
		name            string
		handle          *domain.JobHandle
		err             error
		wantUnsupported bool
		wantErr         bool
	}{
		{name: "accepted", handle: &domain.JobHandle{JobID: "job-1", Total: 3}},
		{name: "404 is unsupported", err: &bulkErrors.APIError{StatusCode: 404}, wantUnsupported: true, wantErr: true},
		{name: "405 is unsupported", err: &bulkErrors.APIError{StatusCode: 405}, wantUnsupported: true, wantErr: true},
		{name: "501 is unsupported", err: &bulkErrors.APIError{StatusCode: 501}, wantUnsupported: true, wantErr: true},
		{name: "500 aborts", err: &bulkErrors.APIError{StatusCode: 500}, wantErr: true},
		{name: "auth aborts", err: &bulkErrors.AuthError{Message: "bad key"}, wantErr: true},
		{name: "empty job id", handle: &domain.JobHandle{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockBulkJobAPI)
			if tt.handle != nil {
				api.On("StartBulkJob", mock.Anything, domain.ActionDelete, scope).Return(tt.handle, nil)
			} else {
				api.On("StartBulkJob", mock.Anything, domain.ActionDelete, scope).Return(nil, tt.err)
			}

			handle, err := newClient(api).Start(context.Background(), scope, domain.ActionDelete)

			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, handle)
				assert.Equal(t, tt.wantUnsupported, errors.Is(err, bulkErrors.ErrUnsupported))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.handle, handle)
			}
			api.AssertExpectations(t)
		})
	}
}

func TestRun_PollsToCompletion(t *testing.T) {
	api := new(MockBulkJobAPI)
	api.On("SubscribeBulkJob", mock.Anything, "job-1").Return(nil, errors.New("no stream"))
	api.On("GetBulkJob", mock.Anything, "job-1").
		Return(&domain.BulkJob{JobID: "job-1", Total: 3, Done: 1, Status: domain.JobRunning}, nil).Once()
	api.On("GetBulkJob", mock.Anything, "job-1").
		Return(&domain.BulkJob{JobID: "job-1", Total: 3, Done: 3, Status: domain.JobCompleted}, nil).Once()

	var ticks []domain.BulkJob
	final, err := newClient(api).Run(context.Background(), domain.JobHandle{JobID: "job-1", Total: 3}, nil,
		func(job domain.BulkJob) { ticks = append(ticks, job) })

	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, final.Status)
	assert.Len(t, ticks, 2)
	api.AssertExpectations(t)
}

func TestCancel_SwallowsFailure(t *testing.T) {
	api := new(MockBulkJobAPI)
	api.On("CancelBulkJob", mock.Anything, "job-1").Return(&bulkErrors.APIError{StatusCode: 500})

	assert.NotPanics(t, func() {
		newClient(api).Cancel(context.Background(), "job-1")
	})
	api.AssertExpectations(t)
}

func TestCancel_IgnoresCancelledParent(t *testing.T) {
	api := new(MockBulkJobAPI)
	api.On("CancelBulkJob", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), "job-1").Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newClient(api).Cancel(ctx, "job-1")

	api.AssertExpectations(t)
}

func TestCancel_EmptyJobID(t *testing.T) {
	api := new(MockBulkJobAPI)
	newClient(api).Cancel(context.Background(), "")
	api.AssertNotCalled(t, "CancelBulkJob", mock.Anything, mock.Anything)
}
