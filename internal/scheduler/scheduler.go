// Package scheduler implements the poll loop that claims due jobs, dispatches
// their webhooks, and advances or terminates their schedules. Any number of
// instances may run against one shared store; the job lease (Claim/Release)
// is the only coordination between them.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/edvin/webhook-scheduler/internal/dispatch"
	"github.com/edvin/webhook-scheduler/internal/model"
	"github.com/edvin/webhook-scheduler/internal/platform"
)

// JobStore is the subset of the job service the scheduler depends on.
type JobStore interface {
	FindDue(ctx context.Context, now time.Time) ([]model.Job, error)
	Claim(ctx context.Context, id string, lease time.Duration) (bool, error)
	Release(ctx context.Context, id string) error
	UpdateSchedule(ctx context.Context, id string, nextRunAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
}

// ExecutionRecorder persists dispatch outcomes.
type ExecutionRecorder interface {
	Create(ctx context.Context, exec *model.JobExecution) error
	PurgeOlderThan(ctx context.Context, horizon time.Duration) (int64, error)
}

// Dispatcher performs the outbound call for one claimed job.
type Dispatcher interface {
	Dispatch(ctx context.Context, target model.Target, jobID, intervalExpr, executionID string) dispatch.Result
}

type Config struct {
	// PollInterval is the period between due-job scans.
	PollInterval time.Duration
	// LeaseDuration must exceed the dispatch timeout so a live dispatch never
	// outlasts its lease.
	LeaseDuration time.Duration
	// MaxInFlight caps concurrent dispatches per instance.
	MaxInFlight int64
	// ExecutionRetention is the horizon past which execution records are purged.
	ExecutionRetention time.Duration
	// PurgeInterval is the period between retention sweeps.
	PurgeInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = time.Minute
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 32
	}
	if c.ExecutionRetention <= 0 {
		c.ExecutionRetention = 90 * 24 * time.Hour
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = time.Hour
	}
}

type Scheduler struct {
	store      JobStore
	recorder   ExecutionRecorder
	dispatcher Dispatcher
	cfg        Config
	logger     zerolog.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup
	now func() time.Time
}

func New(store JobStore, recorder ExecutionRecorder, dispatcher Dispatcher, cfg Config, logger zerolog.Logger) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		store:      store,
		recorder:   recorder,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		sem:        semaphore.NewWeighted(cfg.MaxInFlight),
		now:        time.Now,
	}
}

// Run polls until ctx is cancelled, then waits for in-flight dispatches to
// drain before returning.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Dur("lease_duration", s.cfg.LeaseDuration).
		Int64("max_in_flight", s.cfg.MaxInFlight).
		Msg("scheduler started")

	poll := time.NewTicker(s.cfg.PollInterval)
	defer poll.Stop()
	purge := time.NewTicker(s.cfg.PurgeInterval)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopping, draining in-flight dispatches")
			s.wg.Wait()
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-poll.C:
			s.tick(ctx)
		case <-purge.C:
			s.purge(ctx)
		}
	}
}

// tick scans for due jobs and starts a dispatch for each claim it wins. A
// store failure skips the tick; the next poll retries.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()

	due, err := s.store.FindDue(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("due-job scan failed, skipping tick")
		return
	}

	for _, job := range due {
		if !s.sem.TryAcquire(1) {
			s.logger.Warn().Int64("max_in_flight", s.cfg.MaxInFlight).Msg("dispatch pool full, deferring remaining due jobs")
			return
		}

		won, err := s.store.Claim(ctx, job.ID, s.cfg.LeaseDuration)
		if err != nil {
			s.sem.Release(1)
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("claim failed")
			continue
		}
		if !won {
			// Another instance got there first.
			s.sem.Release(1)
			claimConflictsTotal.Inc()
			continue
		}

		s.wg.Add(1)
		// Detached from the poll context so shutdown lets in-flight
		// dispatches finish and record their outcome.
		go s.execute(context.WithoutCancel(ctx), job)
	}
}

// execute runs one dispatch attempt. The outcome is recorded and the lease
// released on every exit path, panics included.
func (s *Scheduler) execute(ctx context.Context, job model.Job) {
	executionID := platform.NewID()
	logger := s.logger.With().Str("job_id", job.ID).Str("execution_id", executionID).Logger()

	defer s.wg.Done()
	defer s.sem.Release(1)
	defer func() {
		if err := s.store.Release(ctx, job.ID); err != nil {
			logger.Error().Err(err).Msg("lease release failed, will expire naturally")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			// The Dispatcher contract is to fold failures into the Result, so
			// this path should be unreachable. The attempt still gets an audit
			// entry; the job stays due and the next tick picks it up again.
			logger.Error().Any("panic", r).Msg("dispatch panicked")
			s.record(ctx, executionID, job.ID, dispatch.Result{
				FailureReason: fmt.Sprintf("panic: %v", r),
			}, logger)
		}
	}()

	inFlightDispatches.Inc()
	result := func() dispatch.Result {
		defer inFlightDispatches.Dec()
		return s.dispatcher.Dispatch(ctx, job.Target, job.ID, job.IntervalString(), executionID)
	}()

	if result.Success {
		logger.Info().Str("url", job.Target.URL).Msg("dispatch succeeded")
	} else {
		logger.Warn().Str("url", job.Target.URL).Str("reason", result.FailureReason).Msg("dispatch failed")
	}
	s.record(ctx, executionID, job.ID, result, logger)

	s.advance(ctx, job, logger)
}

// record writes the execution audit entry for one dispatch attempt.
func (s *Scheduler) record(ctx context.Context, executionID, jobID string, result dispatch.Result, logger zerolog.Logger) {
	exec := &model.JobExecution{
		ID:        executionID,
		JobID:     jobID,
		CreatedAt: s.now(),
		Success:   result.Success,
	}
	if result.Success {
		dispatchesTotal.WithLabelValues("success").Inc()
	} else {
		reason := result.FailureReason
		exec.FailureReason = &reason
		dispatchesTotal.WithLabelValues("failure").Inc()
	}

	if err := s.recorder.Create(ctx, exec); err != nil {
		logger.Error().Err(err).Msg("recording execution failed")
	}
}

// advance reschedules an every job or terminates a once job. Dispatch failure
// does not change the outcome: an every job runs again at its next due time.
func (s *Scheduler) advance(ctx context.Context, job model.Job, logger zerolog.Logger) {
	switch sched := job.Schedule.(type) {
	case model.EverySchedule:
		// Advance from the previous scheduled time, not from now, so latency
		// never accumulates into drift. If the job was overdue by more than
		// one interval, missed cycles are skipped rather than replayed.
		next := sched.Interval.Next(job.NextRunAt)
		now := s.now()
		for !next.After(now) {
			next = sched.Interval.Next(next)
		}
		if err := s.store.UpdateSchedule(ctx, job.ID, next); err != nil {
			logger.Error().Err(err).Msg("rescheduling failed")
			return
		}
		logger.Debug().Time("next_run_at", next).Msg("rescheduled")
	case model.OnceSchedule:
		if err := s.store.DeleteByID(ctx, job.ID); err != nil {
			logger.Error().Err(err).Msg("deleting completed job failed")
			return
		}
		logger.Debug().Msg("one-shot job completed")
	}
}

// purge enforces the execution retention horizon.
func (s *Scheduler) purge(ctx context.Context) {
	n, err := s.recorder.PurgeOlderThan(ctx, s.cfg.ExecutionRetention)
	if err != nil {
		s.logger.Error().Err(err).Msg("retention purge failed")
		return
	}
	if n > 0 {
		purgedExecutionsTotal.Add(float64(n))
		s.logger.Info().Int64("purged", n).Msg("purged expired execution records")
	}
}
