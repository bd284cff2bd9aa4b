// Package scheduler runs the reconciliation jobs on cron schedules inside
// the server process. It is optional: deployments with an external
// scheduler call the job endpoints instead.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/lalith-99/territorydesk/internal/reconcile"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler triggers runner jobs on cron specs. A job whose previous run
// is still going is skipped, not queued.
type Scheduler struct {
	cron   *cron.Cron
	runner *reconcile.Runner
	logger *zap.Logger
	ctx    context.Context
}

func New(runner *reconcile.Runner, logger *zap.Logger) *Scheduler {
	l := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		runner: runner,
		logger: logger,
		ctx:    context.Background(),
	}
}

// Add schedules job on spec (standard 5-field cron or a descriptor such as
// "@hourly"). An empty spec leaves the job unscheduled.
func (s *Scheduler) Add(spec, job string) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.runner.Run(s.ctx, job); err != nil {
			// The runner has already logged and counted the failure.
			s.logger.Debug("scheduled job failed", zap.String("job", job), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", job, spec, err)
	}
	s.logger.Info("job scheduled", zap.String("job", job), zap.String("spec", spec))
	return nil
}

// Len reports how many jobs are scheduled.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start begins firing jobs. Runs inherit ctx, so cancelling it aborts
// in-flight jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

var _ cron.Logger = cronLogger{}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
