// Package scheduler runs a job on a fixed interval and remembers how the last run went.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/jonboulle/clockwork"
)

// Job is one unit of scheduled work. The returned summary is kept for status reports.
type Job func(ctx context.Context) (summary string, err error)

// ErrSkipped may be returned by a Job that declined to run; it is not recorded as a failure
var ErrSkipped = errors.New("scheduler: run skipped")

// Status is a snapshot of a scheduler's history
type Status struct {
	Name         string    `json:"name"`
	Interval     string    `json:"interval"`
	Runs         int       `json:"runs"`
	Failures     int       `json:"failures"`
	Running      bool      `json:"running"`
	LastRunAt    time.Time `json:"lastRunAt,omitempty"`
	LastDuration string    `json:"lastDuration,omitempty"`
	LastSummary  string    `json:"lastSummary,omitempty"`
	LastError    string    `json:"lastError,omitempty"`
	NextRunAt    time.Time `json:"nextRunAt,omitempty"`
}

// Scheduler re-arms a timer after each run, so a slow run delays the next one
// instead of queueing ticks behind it.
type Scheduler struct {
	name      string
	interval  time.Duration
	job       Job
	immediate bool
	clock     clockwork.Clock
	logger    logging.Logger

	mu     sync.RWMutex
	status Status
}

// New creates a scheduler that runs job every interval
func New(name string, interval time.Duration, job Job, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		job:      job,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		status:   Status{Name: name, Interval: interval.String()},
	}
}

// WithClock replaces the clock, for tests
func (s *Scheduler) WithClock(clock clockwork.Clock) *Scheduler {
	s.clock = clock
	return s
}

// RunImmediately makes Start run the job once before waiting for the first interval
func (s *Scheduler) RunImmediately() *Scheduler {
	s.immediate = true
	return s
}

// Name returns the scheduler's name
func (s *Scheduler) Name() string {
	return s.name
}

// Start runs the loop until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Scheduler started",
		logging.F("job", s.name),
		logging.F("interval", s.interval.String()),
	)
	if s.immediate {
		s.RunOnce(ctx)
	}

	s.setNext(s.clock.Now().Add(s.interval))
	timer := s.clock.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped", logging.F("job", s.name))
			return
		case <-timer.Chan():
			s.RunOnce(ctx)
			s.setNext(s.clock.Now().Add(s.interval))
			timer.Reset(s.interval)
		}
	}
}

// RunOnce runs the job now and records the outcome
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := s.clock.Now()
	s.mu.Lock()
	s.status.Running = true
	s.mu.Unlock()

	summary, err := s.job(ctx)
	elapsed := s.clock.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	if errors.Is(err, ErrSkipped) {
		s.logger.Debug("Scheduled run skipped", logging.F("job", s.name))
		return
	}

	s.status.Runs++
	s.status.LastRunAt = start
	s.status.LastDuration = elapsed.String()
	s.status.LastSummary = summary
	s.status.LastError = ""
	if err != nil {
		s.status.Failures++
		s.status.LastError = err.Error()
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("Scheduled run failed",
				logging.F("job", s.name),
				logging.F("error", err.Error()),
			)
		}
		return
	}
	s.logger.Info(summary,
		logging.F("job", s.name),
		logging.F("duration", elapsed.String()),
	)
}

func (s *Scheduler) setNext(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.NextRunAt = t
}

// Status returns a copy of the current status
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
