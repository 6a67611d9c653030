// Package scheduler runs the periodic jobs of the worker: the stage reminder
// scan and OneDrive subscription renewal.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/services"
	"github.com/hhi-dashboard/api/pkg/logger"
)

// RenewalWindow is how far ahead of expiry subscriptions are renewed.
const RenewalWindow = 3 * 24 * time.Hour

type Options struct {
	ReminderSpec string
	RenewalSpec  string
	// JobTimeout bounds a single run of any job.
	JobTimeout time.Duration
	Location   *time.Location
}

type Scheduler struct {
	cron          *cron.Cron
	notifications services.NotificationService
	onedrive      services.OneDriveService
	timeout       time.Duration
}

func New(notifications services.NotificationService, onedrive services.OneDriveService, opts Options) (*Scheduler, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := opts.JobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	cronLog := cron.PrintfLogger(zap.NewStdLog(logger.L().Named("cron")))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		notifications: notifications,
		onedrive:      onedrive,
		timeout:       timeout,
	}

	if _, err := s.cron.AddFunc(opts.ReminderSpec, s.run("stage_reminders", s.RunReminders)); err != nil {
		return nil, err
	}
	if onedrive != nil && opts.RenewalSpec != "" {
		if _, err := s.cron.AddFunc(opts.RenewalSpec, s.run("subscription_renewal", s.RenewSubscriptions)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			logger.L().Error("scheduled job failed", zap.String("job", name), zap.Duration("duration", time.Since(start)), zap.Error(err))
			return
		}
		logger.L().Info("scheduled job finished", zap.String("job", name), zap.Duration("duration", time.Since(start)))
	}
}

// RunReminders enqueues reminders for projects idling in a stage.
func (s *Scheduler) RunReminders(ctx context.Context) error {
	n, err := s.notifications.EnqueueDueReminders(ctx)
	if err != nil {
		return err
	}
	logger.L().Info("stage reminders queued", zap.Int("count", n))
	return nil
}

func (s *Scheduler) RenewSubscriptions(ctx context.Context) error {
	n, err := s.onedrive.RenewExpiring(ctx, RenewalWindow)
	if err != nil {
		return err
	}
	logger.L().Info("onedrive subscriptions renewed", zap.Int("count", n))
	return nil
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.L().Warn("scheduler stop timed out with jobs still running")
	}
}
