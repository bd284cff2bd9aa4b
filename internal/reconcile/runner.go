package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lalith-99/territorydesk/internal/apperr"
	"github.com/lalith-99/territorydesk/internal/lock"
	"github.com/lalith-99/territorydesk/internal/observ"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single job run.
const DefaultTimeout = 2 * time.Minute

// Report describes one job run.
type Report struct {
	Job       string           `json:"job"`
	Skipped   bool             `json:"skipped"`
	Rows      int64            `json:"rows"`
	Details   map[string]int64 `json:"details,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	Duration  string           `json:"duration"`
}

// Runner executes jobs one at a time per name across all replicas sharing
// the locker. Failures are logged and returned, never escalated further.
type Runner struct {
	jobs    map[string]Job
	locker  lock.Locker
	metrics observ.JobMetrics
	logger  *zap.Logger
	now     func() time.Time
	timeout time.Duration
}

type RunnerOption func(*Runner)

func WithLocker(l lock.Locker) RunnerOption {
	return func(r *Runner) { r.locker = l }
}

func WithMetrics(m observ.JobMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithTimeout sets the per-run deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(jobs map[string]Job, logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		jobs:    jobs,
		locker:  lock.NopLocker{},
		metrics: observ.NopJobMetrics{},
		logger:  logger,
		now:     time.Now,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names lists the registered jobs in name order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run executes the named job. A run already in progress elsewhere yields a
// skipped report and no error.
func (r *Runner) Run(ctx context.Context, name string) (*Report, error) {
	job, ok := r.jobs[name]
	if !ok {
		return nil, apperr.NotFound("unknown job %q", name)
	}

	log := r.logger.With(zap.String("job", name))
	startedAt := r.now()
	report := &Report{Job: name, StartedAt: startedAt}

	// The lock outlives the run deadline slightly so a slow final write
	// cannot overlap the next holder.
	release, err := r.locker.Acquire(ctx, name, r.timeout+10*time.Second)
	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		log.Info("job already running elsewhere, skipping")
		report.Skipped = true
		report.Duration = "0s"
		r.metrics.ObserveRun(name, observ.ResultSkipped, 0, 0)
		return report, nil
	case err != nil:
		log.Warn("run lock unavailable, running unlocked", zap.Error(err))
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("release run lock", zap.Error(err))
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	begin := time.Now()
	res, err := job.Run(runCtx, startedAt)
	took := time.Since(begin)

	report.Rows = res.Rows
	report.Details = res.Details
	report.Duration = took.String()

	if err != nil {
		log.Error("job failed",
			zap.Int64("rows", res.Rows),
			zap.Duration("took", took),
			zap.Error(err),
		)
		r.metrics.ObserveRun(name, observ.ResultFailure, res.Rows, took)
		return report, fmt.Errorf("run %s: %w", name, err)
	}

	log.Info("job finished",
		zap.Int64("rows", res.Rows),
		zap.Any("details", res.Details),
		zap.Duration("took", took),
	)
	r.metrics.ObserveRun(name, observ.ResultSuccess, res.Rows, took)
	return report, nil
}
