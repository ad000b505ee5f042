// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"habitpal/internal/middleware"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 5 * time.Minute

// NotificationPurger deletes read notifications older than a retention window.
type NotificationPurger interface {
	PurgeReadNotifications(ctx context.Context, retention time.Duration) (int64, error)
}

// Scheduler wraps a cron runner whose jobs are bound to a base context.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New returns a Scheduler. Jobs started by it stop when ctx is cancelled.
func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{}))),
		ctx:  ctx,
	}
}

// AddNotificationRetention schedules the purge of read notifications. A
// non-positive retention leaves the job disabled.
func (s *Scheduler) AddNotificationRetention(spec string, retention time.Duration, purger NotificationPurger) error {
	if retention <= 0 {
		middleware.Logger.Info("notification retention disabled")
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		runRetention(s.ctx, retention, purger)
	})
	if err != nil {
		return fmt.Errorf("schedule notification retention %q: %w", spec, err)
	}
	middleware.Logger.Info("notification retention scheduled",
		slog.String("schedule", spec),
		slog.Duration("retention", retention),
	)
	return nil
}

func runRetention(ctx context.Context, retention time.Duration, purger NotificationPurger) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := purger.PurgeReadNotifications(ctx, retention)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "notification retention failed", slog.String("error", err.Error()))
		return
	}
	middleware.Logger.InfoContext(ctx, "notification retention completed", slog.Int64("purged", n))
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts cron's logger interface to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	middleware.Logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	middleware.Logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
