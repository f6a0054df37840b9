package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/bulkctl/bulkctl/internal/api/dto"
	"github.com/bulkctl/bulkctl/internal/domain"
)

// jobSubscription is a text/event-stream subscription to one job. Connected closes
// once the server answers 200; Events closes when the stream ends for any reason.
type jobSubscription struct {
	connected chan struct{}
	events    chan domain.JobEvent
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *jobSubscription) Connected() <-chan struct{} {
	return s.connected
}

func (s *jobSubscription) Events() <-chan domain.JobEvent {
	return s.events
}

// Close tears down the stream and waits for the reader to exit
func (s *jobSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// SubscribeBulkJob opens the job's event stream. The connection is made in the
// background; callers race Connected against their own timeout.
func (c *Client) SubscribeBulkJob(ctx context.Context, jobID string) (domain.JobSubscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := c.newRequest(ctx, http.MethodGet, BulkJobEventsURL(jobID), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	sub := &jobSubscription{
		connected: make(chan struct{}),
		events:    make(chan domain.JobEvent, 16),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.events)

		resp, err := c.do(c.streamClient, req)
		if err != nil {
			c.logger.Debug("job event stream connect failed", "job_id", jobID, "error", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if err := ValidateResponseOK(resp); err != nil {
			c.logger.Debug("job event stream rejected", "job_id", jobID, "error", err)
			return
		}
		close(sub.connected)

		c.readEvents(ctx, resp.Body, sub.events)
	}()

	return sub, nil
}

// readEvents parses SSE frames: "event:" names the kind, "data:" lines are joined,
// and a blank line dispatches the frame.
func (c *Client) readEvents(ctx context.Context, body io.Reader, out chan<- domain.JobEvent) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var kind string
	var dataLines []string

	dispatch := func() bool {
		defer func() {
			kind = ""
			dataLines = dataLines[:0]
		}()
		if kind == "" && len(dataLines) == 0 {
			return true
		}
		ev, ok := c.parseEvent(kind, strings.Join(dataLines, "\n"))
		if !ok {
			return true
		}
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if !dispatch() {
				return
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
	}
	// a final frame without its trailing blank line still counts
	dispatch()

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.logger.Debug("job event stream read error", "error", err)
	}
}

func (c *Client) parseEvent(kind, data string) (domain.JobEvent, bool) {
	switch domain.JobEventKind(kind) {
	case domain.JobEventEnd:
		return domain.JobEvent{Kind: domain.JobEventEnd}, true
	case domain.JobEventProgress, "":
		var job dto.BulkJobResponse
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			c.logger.Debug("dropping malformed job event", "kind", kind, "error", err)
			return domain.JobEvent{}, false
		}
		parsed, err := job.ToDomain()
		if err != nil {
			c.logger.Warn("dropping job event", "kind", kind, "error", err)
			return domain.JobEvent{}, false
		}
		return domain.JobEvent{Kind: domain.JobEventProgress, Job: parsed}, true
	default:
		c.logger.Debug("ignoring unknown job event", "kind", kind)
		return domain.JobEvent{}, false
	}
}
