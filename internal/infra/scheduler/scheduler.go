// Package scheduler runs periodic maintenance jobs on a gocron scheduler.
// Every job runs in singleton mode: a run that overlaps the previous one is
// rescheduled, never stacked.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Job is a named periodic task. Run receives a context that is canceled on
// Shutdown and bounded by Timeout when set.
type Job struct {
	Name     string
	Every    time.Duration
	Timeout  time.Duration
	RunFirst bool
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	s      gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	stopOnce sync.Once
	stopped  chan error
}

func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler(gocron.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{s: s, ctx: ctx, cancel: cancel, logger: logger, stopped: make(chan error, 1)}, nil
}

// Add registers j. Jobs with a non-positive interval are skipped, which is
// how a job gets disabled through configuration.
func (s *Scheduler) Add(j Job) error {
	if j.Run == nil {
		return errors.New("scheduler: job without Run")
	}
	if j.Every <= 0 {
		s.logger.Info("job disabled", "job", j.Name)
		return nil
	}

	opts := []gocron.JobOption{
		gocron.WithName(j.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if j.RunFirst {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.s.NewJob(gocron.DurationJob(j.Every), gocron.NewTask(s.run, j), opts...)
	if err != nil {
		return fmt.Errorf("add job %s: %w", j.Name, err)
	}

	return nil
}

func (s *Scheduler) run(j Job) {
	ctx := s.ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()

	err := j.Run(ctx)
	if err != nil {
		s.logger.Error("job failed", "job", j.Name, "error", err)
		return
	}

	s.logger.Debug("job done", "job", j.Name, "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.s.Start()
}

// Shutdown cancels running jobs and stops the scheduler. Only the first call
// stops anything. The signature fits shutdownqueue.Task.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	first := false
	s.stopOnce.Do(func() {
		first = true
		s.cancel()
		go func() { s.stopped <- s.s.Shutdown() }()
	})
	if !first {
		return nil
	}

	select {
	case err := <-s.stopped:
		if err != nil {
			return fmt.Errorf("scheduler shutdown: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
