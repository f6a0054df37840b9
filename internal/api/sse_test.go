// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulkctl/bulkctl/internal/domain"
)

func collectEvents(t *testing.T, sub domain.JobSubscription) []domain.JobEvent {
	t.Helper()
	var events []domain.JobEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("event stream did not close")
			return events
		}
	}
}

func TestClient_SubscribeBulkJob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/items/bulk/job-1/events", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)

		frames := []string{
			": keep-alive\n\n",
			"event: progress\ndata: {\"jobId\":\"job-1\",\"total\":3,\"done\":1,\"fail\":0,\"status\":\"running\"}\n\n",
			"event: progress\ndata: not-json\n\n",
			"event: heartbeat\ndata: {}\n\n",
			"event: progress\ndata: {\"jobId\":\"job-1\",\"total\":3,\"done\":2,\"status\":\"exploded\"}\n\n",
			"event: progress\ndata: {\"jobId\":\"job-1\",\"total\":3,\n",
			"data: \"done\":2,\"fail\":1,\"status\":\"running\"}\n\n",
			"event: end\n\n",
		}
		for _, frame := range frames {
			_, _ = fmt.Fprint(w, frame)
			flusher.Flush()
		}
	})

	sub, err := client.SubscribeBulkJob(context.Background(), "job-1")
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	select {
	case <-sub.Connected():
	case <-time.After(2 * time.Second):
		t.Fatal("stream never connected")
	}

	events := collectEvents(t, sub)
	require.Len(t, events, 3)

	assert.Equal(t, domain.JobEventProgress, events[0].Kind)
	assert.Equal(t, &domain.BulkJob{JobID: "job-1", Total: 3, Done: 1, Status: domain.JobRunning}, events[0].Job)
	assert.Equal(t, &domain.BulkJob{JobID: "job-1", Total: 3, Done: 2, Fail: 1, Status: domain.JobRunning}, events[1].Job)
	assert.Equal(t, domain.JobEvent{Kind: domain.JobEventEnd}, events[2])
}

func TestClient_SubscribeBulkJob_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	sub, err := client.SubscribeBulkJob(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Empty(t, collectEvents(t, sub))
	select {
	case <-sub.Connected():
		t.Fatal("a rejected stream must never report connected")
	default:
	}
	assert.NoError(t, sub.Close())
}

func TestClient_SubscribeBulkJob_CloseWhileStreaming(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	sub, err := client.SubscribeBulkJob(context.Background(), "job-1")
	require.NoError(t, err)

	<-sub.Connected()

	closed := make(chan struct{})
	go func() {
		_ = sub.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not tear down the stream")
	}
	_, open := <-sub.Events()
	assert.False(t, open)
	assert.NoError(t, sub.Close(), "Close is idempotent")
}
