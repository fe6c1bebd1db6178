// Package scheduler runs the periodic drivers (billing, retries, sweeps,
// settlement, outbox delivery) on cron schedules. Every run takes a named
// lock first so only one replica executes a given tick.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"moa/internal/platform/logger"
	"moa/internal/platform/metrics"
	dErrors "moa/pkg/domain-errors"
	"moa/pkg/platform/batch"
)

// Job is one periodic driver. Run processes every due item with failure
// isolation and reports the tally.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context, now time.Time) (batch.Result, error)
}

// Locker hands out exclusive leases. internal/platform/redis.Locker
// satisfies it across replicas; LocalLocker within one process.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

const defaultLockTTL = 10 * time.Minute

type Scheduler struct {
	mu       sync.RWMutex
	jobs     map[string]Job
	locker   Locker
	lockTTL  time.Duration
	location *time.Location
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

// WithLockTTL bounds how long a crashed replica can hold a job.
func WithLockTTL(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// WithLocation sets the zone cron specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]Job),
		locker:   NewLocalLocker(),
		lockTTL:  defaultLockTTL,
		location: time.UTC,
		logger:   logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds job. Names are unique and specs use the standard five-field
// cron syntax or a descriptor such as @hourly.
func (s *Scheduler) Register(jobs ...Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range jobs {
		if job.Name == "" || job.Run == nil {
			return fmt.Errorf("job %q: name and run func are required", job.Name)
		}
		if _, exists := s.jobs[job.Name]; exists {
			return fmt.Errorf("job %q registered twice", job.Name)
		}
		if _, err := cron.ParseStandard(job.Spec); err != nil {
			return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Spec, err)
		}
		s.jobs[job.Name] = job
	}
	return nil
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs the cron loop until ctx is cancelled, then waits for running
// jobs to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	cronLog := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	s.mu.RLock()
	for _, job := range s.jobs {
		if _, err := c.AddFunc(job.Spec, func() { s.tick(ctx, job) }); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}
	count := len(s.jobs)
	s.mu.RUnlock()

	c.Start()
	s.logger.Info("scheduler started", "jobs", count, "timezone", s.location.String())
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Trigger runs the named job now, outside its schedule. It honors the same
// lock as scheduled runs.
func (s *Scheduler) Trigger(ctx context.Context, name string) (batch.Result, error) {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return batch.Result{}, dErrors.Newf(dErrors.CodeNotFound, "unknown job %q", name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.run(ctx, job); err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
		s.logger.ErrorContext(ctx, "job failed", "job", job.Name, "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) (res batch.Result, err error) {
	release, ok, err := s.locker.TryLock(ctx, "job:"+job.Name, s.lockTTL)
	if err != nil {
		return batch.Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to acquire job lock")
	}
	if !ok {
		s.logger.DebugContext(ctx, "job held by another runner", "job", job.Name)
		return batch.Result{}, dErrors.Newf(dErrors.CodeConflict, "job %q is already running", job.Name)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			s.logger.WarnContext(ctx, "failed to release job lock", "job", job.Name, "error", rerr)
		}
	}()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		s.metrics.ObserveJob(job.Name, start, err)
		for i := 0; i < res.Failed; i++ {
			s.metrics.IncJobItemFailure(job.Name)
		}
	}()

	res, err = job.Run(ctx, s.now())
	level := slog.LevelInfo
	if res.Total == 0 && err == nil {
		level = slog.LevelDebug
	}
	s.logger.Log(ctx, level, "job finished",
		"job", job.Name,
		"total", res.Total,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration", time.Since(start),
	)
	return res, err
}

// LocalLocker is a Locker for a single process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// TryLock ignores ttl; the lease lasts until released.
func (l *LocalLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[name]; busy {
		return nil, false, nil
	}
	l.held[name] = struct{}{}
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, name)
		return nil
	}, true, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
