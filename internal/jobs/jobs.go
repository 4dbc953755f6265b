// Package jobs runs periodic ledger maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/alignperks/loyalty-portal/internal/config"
	"github.com/alignperks/loyalty-portal/internal/model"
)

const jobTimeout = 2 * time.Minute

// IntentSweeper removes redemption intents that can no longer be completed.
type IntentSweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// DriftFinder compares cached balances against the accrual and redemption history.
type DriftFinder interface {
	FindDrift(ctx context.Context) ([]model.BalanceDrift, error)
}

// Reporter receives job results for metrics.
type Reporter interface {
	BalanceDrift(enrollments int)
	IntentsSwept(n int64)
}

// Runner holds the job bodies. They can be called directly or through a Scheduler.
type Runner struct {
	intents     IntentSweeper
	enrollments DriftFinder
	reporter    Reporter
	ttl         time.Duration
	now         func() time.Time
}

// NewRunner creates a Runner. ttl is the redemption intent lifetime.
func NewRunner(intents IntentSweeper, enrollments DriftFinder, reporter Reporter, ttl time.Duration) *Runner {
	return &Runner{
		intents:     intents,
		enrollments: enrollments,
		reporter:    reporter,
		ttl:         ttl,
		now:         time.Now,
	}
}

// SweepExpiredIntents deletes unconsumed intents that expired more than one TTL ago.
// The grace period lets staff still see "expired" rather than "unknown" for a while.
func (r *Runner) SweepExpiredIntents(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.ttl)
	n, err := r.intents.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep expired intents: %w", err)
	}
	if r.reporter != nil {
		r.reporter.IntentsSwept(n)
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("expired redemption intents swept")
	}
	return n, nil
}

// ReconcileBalances logs every enrollment whose cached balance has drifted from its history.
// It only reports; balances are never corrected automatically.
func (r *Runner) ReconcileBalances(ctx context.Context) (int, error) {
	drift, err := r.enrollments.FindDrift(ctx)
	if err != nil {
		return 0, fmt.Errorf("reconcile balances: %w", err)
	}
	for _, d := range drift {
		log.Error().
			Str("enrollment_id", d.EnrollmentID).
			Int("cached_points", d.CachedPoints).
			Int("ledger_points", d.LedgerPoints).
			Msg("balance drift detected")
	}
	if r.reporter != nil {
		r.reporter.BalanceDrift(len(drift))
	}
	return len(drift), nil
}

// Scheduler runs the Runner's jobs on fixed intervals.
type Scheduler struct {
	sched gocron.Scheduler
}

// NewScheduler registers the sweep and reconciliation jobs. Jobs run once at start,
// then on their interval, and never overlap with themselves.
func NewScheduler(runner *Runner, cfg config.JobsConfig) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(ctx context.Context) error
	}{
		{
			name:     "sweep-expired-intents",
			interval: cfg.SweepInterval,
			run: func(ctx context.Context) error {
				_, err := runner.SweepExpiredIntents(ctx)
				return err
			},
		},
		{
			name:     "reconcile-balances",
			interval: cfg.ReconcileInterval,
			run: func(ctx context.Context) error {
				_, err := runner.ReconcileBalances(ctx)
				return err
			},
		},
	}

	for _, j := range jobs {
		if j.interval <= 0 {
			log.Warn().Str("job", j.name).Msg("job disabled: interval is not positive")
			continue
		}
		_, err := sched.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(task(j.name, j.run)),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("register job %s: %w", j.name, err)
		}
	}

	return &Scheduler{sched: sched}, nil
}

func task(name string, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := run(ctx); err != nil {
			log.Error().Err(err).Str("job", name).Msg("job failed")
		}
	}
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
