// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package mock

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/api"
	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/errors"
)

func newClient(t *testing.T, items []domain.Item) (*Server, *api.Client) {
	t.Helper()
	srv := NewServer(items)
	t.Cleanup(srv.Close)
	return srv, api.NewClient("test-key", srv.URL, nil)
}

func TestGenerateItems_Deterministic(t *testing.T) {
	a := GenerateItems(20, 7)
	b := GenerateItems(20, 7)
	assert.Equal(t, a, b)
	assert.Equal(t, "item-0001", a[0].ID)
	assert.Equal(t, "item-0020", a[19].ID)
}

func TestServer_ListFiltersAndPages(t *testing.T) {
	items := append(UniformItems(5, domain.ItemStatusActive, domain.ItemSourceManual),
		domain.Item{ID: "other-1", Name: "nightly backup", Status: domain.ItemStatusPaused, Source: domain.ItemSourceAPI})
	_, client := newClient(t, items)
	ctx := context.Background()

	page, err := client.ListItems(ctx, domain.Filter{}, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, []string{"item-0005", "other-1"}, page.IDs())

	page, err = client.ListItems(ctx, domain.Filter{Status: domain.ItemStatusPaused}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = client.ListItems(ctx, domain.Filter{Search: "NIGHTLY"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"other-1"}, page.IDs())
}

func TestServer_Mutate(t *testing.T) {
	srv, client := newClient(t, UniformItems(3, domain.ItemStatusActive, domain.ItemSourceManual))
	srv.FailOn("item-0002")
	ctx := context.Background()

	require.NoError(t, client.MutateItem(ctx, "item-0001", domain.ActionPause))
	require.NoError(t, client.MutateItem(ctx, "item-0003", domain.ActionDelete))
	assert.Error(t, client.MutateItem(ctx, "item-0002", domain.ActionPause))
	assert.Error(t, client.MutateItem(ctx, "missing", domain.ActionPause))

	items := srv.Items()
	require.Len(t, items, 2)
	assert.Equal(t, domain.ItemStatusPaused, items[0].Status)
	assert.Equal(t, 4, srv.Requests("mutate"))
}

func TestServer_BulkJobRunsToCompletion(t *testing.T) {
	srv, client := newClient(t, UniformItems(10, domain.ItemStatusActive, domain.ItemSourceManual))
	srv.FailOn("item-0004")
	ctx := context.Background()

	handle, err := client.StartBulkJob(ctx, domain.ActionDelete, domain.Scope{
		Filter:   &domain.Filter{Status: domain.ItemStatusActive},
		Excluded: []string{"item-0010"},
	})
	require.NoError(t, err)
	assert.Equal(t, 9, handle.Total)

	sub, err := client.SubscribeBulkJob(ctx, handle.JobID)
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	var last *domain.BulkJob
	var sawEnd bool
	timeout := time.After(5 * time.Second)
	for !sawEnd {
		select {
		case ev, ok := <-sub.Events():
			require.True(t, ok, "stream closed before end")
			if ev.Kind == domain.JobEventEnd {
				sawEnd = true
			} else {
				last = ev.Job
			}
		case <-timeout:
			t.Fatal("job did not settle")
		}
	}

	require.NotNil(t, last)
	assert.Equal(t, domain.JobCompleted, last.Status)
	assert.Equal(t, 8, last.Done)
	assert.Equal(t, 1, last.Fail)

	job, err := client.GetBulkJob(ctx, handle.JobID)
	require.NoError(t, err)
	assert.Equal(t, *last, *job)
	assert.Len(t, srv.Items(), 2, "item-0004 and item-0010 survive")
}

func TestServer_BulkJobCancel(t *testing.T) {
	srv, client := newClient(t, UniformItems(50, domain.ItemStatusActive, domain.ItemSourceManual))
	srv.SetStepInterval(20 * time.Millisecond)
	ctx := context.Background()

	handle, err := client.StartBulkJob(ctx, domain.ActionPause, domain.Scope{IDs: []string{"item-0001", "item-0002", "item-0003"}})
	require.NoError(t, err)
	require.NoError(t, client.CancelBulkJob(ctx, handle.JobID))

	require.Eventually(t, func() bool {
		job, err := client.GetBulkJob(ctx, handle.JobID)
		return err == nil && job.Status == domain.JobCancelled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Toggles(t *testing.T) {
	srv, client := newClient(t, UniformItems(2, domain.ItemStatusActive, domain.ItemSourceManual))
	ctx := context.Background()

	srv.SetBulkStatus(http.StatusNotFound)
	_, err := client.StartBulkJob(ctx, domain.ActionDelete, domain.Scope{IDs: []string{"item-0001"}})
	assert.True(t, errors.IsUnsupported(err))

	srv.SetBulkStatus(0)
	srv.DisablePush()
	handle, err := client.StartBulkJob(ctx, domain.ActionDelete, domain.Scope{IDs: []string{"item-0001"}})
	require.NoError(t, err)
	sub, err := client.SubscribeBulkJob(ctx, handle.JobID)
	require.NoError(t, err)
	_, open := <-sub.Events()
	assert.False(t, open, "a rejected stream closes without events")
	select {
	case <-sub.Connected():
		t.Fatal("rejected stream reported connected")
	default:
	}
	_ = sub.Close()

	srv.RequireAPIKey("other-key")
	_, err = client.ListItems(ctx, domain.Filter{}, 1, 10)
	assert.True(t, errors.IsAuthError(err))
}
