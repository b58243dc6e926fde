package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

type job struct {
	name string
	spec string
	run  Job
	id   cron.EntryID
}

// Scheduler runs named jobs on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	jobs    []*job
	running bool
	startup sync.WaitGroup
}

// New creates an idle scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: slog.Default().With("component", "scheduler"),
	}
}

// Add registers job under name. spec uses standard cron syntax or a
// descriptor such as "@every 1m". Jobs must be added before Start.
func (s *Scheduler) Add(name, spec string, run Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("job %s: scheduler already started", name)
	}
	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("job %s already registered", name)
		}
	}
	s.jobs = append(s.jobs, &job{name: name, spec: spec, run: run})
	return nil
}

// Start schedules every job and runs each once in the background. Jobs
// receive ctx; the scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	for _, j := range s.jobs {
		j := j
		id, err := s.cron.AddFunc(j.spec, func() { s.runJob(ctx, j) })
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", j.name, err)
		}
		j.id = id
	}

	s.cron.Start()
	s.running = true

	for _, j := range s.jobs {
		s.startup.Add(1)
		go func(j *job) {
			defer s.startup.Done()
			s.runJob(ctx, j)
		}(j)
		s.logger.Info("job scheduled", "job", j.name, "schedule", j.spec)
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := j.run(ctx); err != nil {
		s.logger.Warn("job failed", "job", j.name, "error", err)
		return
	}
	s.logger.Debug("job completed", "job", j.name, "duration_ms", time.Since(start).Milliseconds())
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.startup.Wait()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled time of the named job, or nil when
// the job is unknown or the scheduler is not running.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	for _, j := range s.jobs {
		if j.name == name {
			next := s.cron.Entry(j.id).Next
			return &next
		}
	}
	return nil
}
