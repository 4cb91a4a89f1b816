// Package jobs runs bulk work in the background, detached from the request
// that scheduled it, and keeps a short-lived status record per job.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue full")

	// ErrRunnerClosed is returned by Submit after Close.
	ErrRunnerClosed = errors.New("job runner closed")
)

// Func is the body of a job. It must stop when ctx is done; work already
// committed stays committed.
type Func func(ctx context.Context) (Report, error)

// Report counts the items a job handled.
type Report struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// State is the lifecycle position of a job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is a snapshot of one job.
type Status struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	State       State      `json:"state"`
	Report      Report     `json:"report"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

func (s Status) finished() bool {
	return s.State == StateSucceeded || s.State == StateFailed
}

// Options configures a Runner.
type Options struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// Retention is how long a finished status stays queryable. Zero keeps
	// statuses for the life of the runner.
	Retention time.Duration `mapstructure:"status_retention"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Workers: 2, QueueSize: 64, Retention: time.Hour}
}

// Validate checks if the options are usable.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Workers, validation.Required, validation.Min(1)),
		validation.Field(&o.QueueSize, validation.Min(0)),
		validation.Field(&o.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&o.Retention, validation.Min(time.Duration(0))),
	)
}

type job struct {
	id   string
	name string
	fn   Func
}

// Runner executes submitted jobs on a fixed pool of workers.
type Runner struct {
	opts     Options
	logger   zerolog.Logger
	queue    chan job
	statuses *xsync.MapOf[string, Status]
	now      func() time.Time

	// ctx is the parent of every job context. It is only cancelled when
	// Close runs out of time.
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRunner starts the workers.
func NewRunner(opts Options, logger zerolog.Logger) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("job runner options: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		opts:     opts,
		logger:   logger.With().Str("component", "jobs").Logger(),
		queue:    make(chan job, opts.QueueSize),
		statuses: xsync.NewMapOf[string, Status](),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < opts.Workers; i++ {
		r.wg.Go(r.work)
	}
	return r, nil
}

// Submit queues fn and returns its job id without waiting for it to run.
func (r *Runner) Submit(name string, fn Func) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", ErrRunnerClosed
	}
	r.prune()

	j := job{id: uuid.NewString(), name: name, fn: fn}
	r.statuses.Store(j.id, Status{ID: j.id, Name: name, State: StateQueued, SubmittedAt: r.now().UTC()})

	select {
	case r.queue <- j:
	default:
		r.statuses.Delete(j.id)
		return "", ErrQueueFull
	}

	r.logger.Debug().Str("job_id", j.id).Str("job", name).Msg("job queued")
	return j.id, nil
}

// Status returns the latest snapshot of the job with id.
func (r *Runner) Status(id string) (Status, bool) {
	return r.statuses.Load(id)
}

// Close stops accepting jobs and waits for queued and running ones. When ctx
// ends first, running jobs are cancelled and Close returns ctx.Err() once
// they have returned.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *Runner) work() {
	for j := range r.queue {
		r.run(j)
	}
}

func (r *Runner) run(j job) {
	ctx, cancel := r.jobContext()
	defer cancel()

	log := r.logger.With().Str("job_id", j.id).Str("job", j.name).Logger()
	started := r.now().UTC()
	r.statuses.Compute(j.id, func(s Status, loaded bool) (Status, bool) {
		s.State = StateRunning
		s.StartedAt = &started
		return s, false
	})
	log.Info().Msg("job started")

	var (
		report Report
		err    error
		pc     panics.Catcher
	)
	pc.Try(func() { report, err = j.fn(ctx) })
	if recovered := pc.Recovered(); recovered != nil {
		err = fmt.Errorf("job panicked: %v", recovered.Value)
	}

	finished := r.now().UTC()
	r.statuses.Compute(j.id, func(s Status, loaded bool) (Status, bool) {
		s.Report = report
		s.FinishedAt = &finished
		s.State = StateSucceeded
		if err != nil {
			s.State = StateFailed
			s.Error = err.Error()
		}
		return s, false
	})

	elapsed := finished.Sub(started)
	if err != nil {
		log.Error().Err(err).
			Int("processed", report.Processed).
			Int("skipped", report.Skipped).
			Dur("duration", elapsed).
			Msg("job failed")
		return
	}
	log.Info().
		Int("processed", report.Processed).
		Int("skipped", report.Skipped).
		Dur("duration", elapsed).
		Msg("job finished")
}

func (r *Runner) jobContext() (context.Context, context.CancelFunc) {
	if r.opts.Timeout > 0 {
		return context.WithTimeout(r.ctx, r.opts.Timeout)
	}
	return context.WithCancel(r.ctx)
}

// prune drops finished statuses older than the retention window.
func (r *Runner) prune() {
	if r.opts.Retention <= 0 {
		return
	}
	cutoff := r.now().Add(-r.opts.Retention)
	r.statuses.Range(func(id string, s Status) bool {
		if s.finished() && s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			r.statuses.Delete(id)
		}
		return true
	})
}
