package remote

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrPollTimeout is returned when a job reaches the poll attempt bound
// without a terminal status. The job may still complete remotely but is
// no longer tracked.
var ErrPollTimeout = errors.New("job polling timed out")

// StatusGetter is the slice of the client the poller needs.
type StatusGetter interface {
	GetStatus(ctx context.Context, jobID string) (*JobStatus, error)
}

// ProgressFunc receives the latest status on every poll, whether or not
// anything changed.
type ProgressFunc func(JobStatus)

// Poller drives a single job from submission to a terminal state via
// bounded polling.
type Poller struct {
	client      StatusGetter
	interval    time.Duration
	maxAttempts int
}

// NewPoller creates a poller. interval defaults to 2s and maxAttempts to
// 900 (about 30 minutes), sized for large-codebase analysis latency.
func NewPoller(client StatusGetter, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 900
	}
	return &Poller{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Wait polls until the job reaches a terminal state and returns the final
// status. A Failed job is returned as a status, not an error; the caller
// decides how to surface it. Poll call failures are transient hiccups:
// the loop continues, each failure consuming an attempt. When the attempt
// bound is exhausted, ErrPollTimeout is returned.
func (p *Poller) Wait(ctx context.Context, jobID string, onProgress ProgressFunc) (*JobStatus, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status, err := p.client.GetStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Debug("status poll failed, continuing",
				slog.String("job_id", jobID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		} else {
			if onProgress != nil {
				onProgress(*status)
			}
			if status.State.Terminal() {
				return status, nil
			}
		}

		// Don't sleep after the final attempt
		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return nil, ErrPollTimeout
}
