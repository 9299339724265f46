// Package scheduler triggers engine jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/repute/pkg/logger"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// Scheduler runs registered jobs on seconds-precision cron expressions.
// A tick is skipped while the previous run of the same job is still going.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	log     logger.Logger
	onStart []string

	mu     sync.Mutex
	jobs   map[string]JobFunc
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		loc:  time.UTC,
		log:  logger.Named("scheduler"),
		jobs: make(map[string]JobFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s
}

// Add registers fn under name on spec. An empty spec disables the job.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	s.jobs[name] = fn
	if spec == "" {
		s.log.Info(context.Background(), "job has no schedule", logger.String("job", name))
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.fire(name) }); err != nil {
		delete(s.jobs, name)
		return fmt.Errorf("scheduler: job %q spec %q: %w", name, spec, err)
	}
	return nil
}

// RunOnStart marks a registered job to run once when Start is called.
func (s *Scheduler) RunOnStart(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = append(s.onStart, name)
}

// Start begins firing jobs. Jobs receive a context derived from ctx that is
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	pending := s.onStart
	s.mu.Unlock()

	s.cron.Start()
	for _, name := range pending {
		go s.fire(name)
	}
	s.log.Info(ctx, "scheduler started", logger.Int("entries", len(s.cron.Entries())))
}

// Stop halts scheduling, cancels running jobs and waits for them to return
// or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled time of every job with a schedule.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

func (s *Scheduler) fire(name string) {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	ctx := s.ctx
	s.mu.Unlock()
	if !ok || ctx == nil {
		return
	}
	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error(ctx, "scheduled job failed", logger.String("job", name), logger.Error(err))
	}
}

// cronLogger adapts the engine logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(context.Background(), msg, append(fields(keysAndValues), logger.Error(err))...)
}

func fields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
