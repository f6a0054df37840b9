// Copyright (C) 2025 Ariel Frischer
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package progress delivers job status for a server bulk job over one of two
// transports: a push subscription, or a poll loop when push cannot connect in time.
package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/bulkctl/bulkctl/internal/domain"
)

const (
	DefaultConnectTimeout = 1000 * time.Millisecond
	DefaultPollInterval   = 700 * time.Millisecond
)

type Transport string

const (
	TransportPush Transport = "push"
	TransportPoll Transport = "poll"
)

type Config struct {
	ConnectTimeout time.Duration
	PollInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		PollInterval:   DefaultPollInterval,
	}
}

// Channel drives onUpdate to a terminal BulkJob exactly once and then stops.
// Implementations are single-use.
type Channel interface {
	Transport() Transport
	Run(ctx context.Context, onUpdate domain.ProgressCallback) (domain.BulkJob, error)
	Close() error
}

// StopFunc reports whether cooperative cancellation was requested
type StopFunc func() bool

// Follower opens progress channels against a BulkJobAPI
type Follower struct {
	api    domain.BulkJobAPI
	config Config
	logger *slog.Logger
}

func NewFollower(api domain.BulkJobAPI, config Config, logger *slog.Logger) *Follower {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Follower{api: api, config: config, logger: logger}
}

// Open picks the transport for one job. A push subscription wins if it connects
// within the connect timeout; otherwise, or as soon as the stream fails, any
// partial subscription is closed and a poll channel is returned. The choice is
// never revisited.
func (f *Follower) Open(ctx context.Context, handle domain.JobHandle, shouldStop StopFunc) Channel {
	initial := domain.BulkJob{JobID: handle.JobID, Total: handle.Total, Status: domain.JobRunning}
	if shouldStop == nil {
		shouldStop = func() bool { return false }
	}

	sub, err := f.api.SubscribeBulkJob(ctx, handle.JobID)
	if err != nil {
		f.logger.Debug("job event subscription failed, polling instead", "job_id", handle.JobID, "error", err)
		return f.newPoll(initial, shouldStop)
	}

	timer := time.NewTimer(f.config.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-sub.Connected():
		f.logger.Debug("job event stream connected", "job_id", handle.JobID)
		return &pushChannel{api: f.api, sub: sub, last: initial, logger: f.logger}
	case ev, ok := <-sub.Events():
		if ok {
			// events only flow once the stream is connected
			f.logger.Debug("job event stream connected", "job_id", handle.JobID)
			return &pushChannel{api: f.api, sub: sub, last: initial, logger: f.logger, pending: &ev}
		}
		f.logger.Debug("job event stream ended before connecting, polling instead", "job_id", handle.JobID)
	case <-timer.C:
		f.logger.Debug("job event stream did not connect in time, polling instead",
			"job_id", handle.JobID,
			"timeout", f.config.ConnectTimeout)
	case <-ctx.Done():
	}

	if err := sub.Close(); err != nil {
		f.logger.Debug("closing unconnected subscription", "job_id", handle.JobID, "error", err)
	}
	return f.newPoll(initial, shouldStop)
}

// Follow opens a channel for the job and runs it to a terminal status
func (f *Follower) Follow(ctx context.Context, handle domain.JobHandle, shouldStop StopFunc, onUpdate domain.ProgressCallback) (domain.BulkJob, error) {
	ch := f.Open(ctx, handle, shouldStop)
	defer func() { _ = ch.Close() }()

	f.logger.Debug("following bulk job", "job_id", handle.JobID, "transport", ch.Transport())
	return ch.Run(ctx, onUpdate)
}

func (f *Follower) newPoll(initial domain.BulkJob, shouldStop StopFunc) *pollChannel {
	return &pollChannel{
		api:        f.api,
		interval:   f.config.PollInterval,
		shouldStop: shouldStop,
		last:       initial,
		logger:     f.logger,
	}
}
