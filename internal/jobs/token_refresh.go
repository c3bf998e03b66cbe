package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TokenSource is a client holding a bearer token that expires
type TokenSource interface {
	RefreshToken(ctx context.Context) error
	TokenExpiry() time.Time
}

// TokenRefreshJob keeps the partner backend token warm so conversation turns
// rarely pay for a login
type TokenRefreshJob struct {
	source   TokenSource
	interval time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewTokenRefreshJob creates the refresh scheduler
func NewTokenRefreshJob(source TokenSource, interval time.Duration) *TokenRefreshJob {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &TokenRefreshJob{
		source:   source,
		interval: interval,
		timeout:  15 * time.Second,
	}
}

// Start logs in once right away and then refreshes on every tick
func (j *TokenRefreshJob) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		slog.Info("token refresh job already running")
		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	j.isRunning = true

	go j.run(ctx)
	slog.Info("token refresh job started", "interval", j.interval)
}

// Stop halts the job and waits for an in-flight refresh to finish
func (j *TokenRefreshJob) Stop() {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = false
	cancel, done := j.cancel, j.done
	j.mu.Unlock()

	cancel()
	<-done
	slog.Info("token refresh job stopped")
}

func (j *TokenRefreshJob) run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

// refresh failures only log: the client logs in again on demand
func (j *TokenRefreshJob) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.source.RefreshToken(ctx); err != nil {
		if ctx.Err() == nil {
			slog.Warn("scheduled partner token refresh failed", "error", err)
		}
		return
	}
	slog.Debug("partner token refreshed on schedule", "expires_at", j.source.TokenExpiry())
}
