package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/shared/constants"
	"go.uber.org/zap"
)

// FetchFunc reads the current state of a job.
type FetchFunc func(ctx context.Context) (job.Progress, *job.Result, error)

// Outcome is the final state observed by a poll.
type Outcome struct {
	Progress job.Progress
	Result   *job.Result
	// Err is set when polling stopped before a terminal status was seen.
	Err error
}

// Poller polls one job at a time at a fixed interval.
type Poller struct {
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPoller returns a poller. A zero interval selects the default.
func NewPoller(interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = constants.PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{interval: interval, logger: logger}
}

// Start polls fetch immediately and then once per interval until a terminal
// status is reported or ctx ends. onUpdate, when set, sees every successful
// poll. Starting a new poll cancels the previous one. The returned channel
// delivers exactly one Outcome.
func (p *Poller) Start(ctx context.Context, fetch FetchFunc, onUpdate func(job.Progress, *job.Result)) <-chan Outcome {
	ctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.mu.Unlock()

	out := make(chan Outcome, 1)
	go func() {
		defer cancel()
		out <- p.run(ctx, fetch, onUpdate)
		close(out)
	}()
	return out
}

// Stop cancels the active poll, if any.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) run(ctx context.Context, fetch FetchFunc, onUpdate func(job.Progress, *job.Result)) Outcome {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		progress, result, err := fetch(ctx)
		switch {
		case ctx.Err() != nil:
			return Outcome{Err: ctx.Err()}
		case err != nil && fatalPollError(err):
			return Outcome{Err: err}
		case err != nil:
			p.logger.Warn("transient poll error", zap.Error(err))
		default:
			if onUpdate != nil {
				onUpdate(progress, result)
			}
			if progress.Status.IsTerminal() {
				return Outcome{Progress: progress, Result: result}
			}
		}

		select {
		case <-ctx.Done():
			return Outcome{Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

// fatalPollError reports errors that no later poll can recover from.
func fatalPollError(err error) bool {
	if errors.Is(err, ErrLoginRequired) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusUnauthorized
	}
	return false
}
