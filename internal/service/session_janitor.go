package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/support-space-backend/internal/observability"
)

const janitorRunTimeout = time.Minute

// SessionJanitor deletes expired session rows on a cron schedule. Failures
// are logged and the next tick tries again.
type SessionJanitor struct {
	sessions *SessionService
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewSessionJanitor(sessions *SessionService, schedule string, logger *slog.Logger) (*SessionJanitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &SessionJanitor{
		sessions: sessions,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse session cleanup schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *SessionJanitor) Start() {
	j.cron.Start()
	j.logger.Info("session janitor started", "entries", len(j.cron.Entries()))
}

// Stop halts scheduling and waits for a running cleanup or ctx, whichever
// comes first.
func (j *SessionJanitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (j *SessionJanitor) RunOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, janitorRunTimeout)
	defer cancel()
	n, err := j.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "scheduled session cleanup failed", "error", err)
		return 0
	}
	observability.RecordSessionCleanup(ctx, "schedule", n)
	if n > 0 {
		j.logger.InfoContext(ctx, "expired sessions removed", "deleted", n)
	}
	return n
}
