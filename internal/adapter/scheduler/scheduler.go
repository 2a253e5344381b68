package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// CronJobID identifies a cron job.
type CronJobID = cron.EntryID

// TickerJobID identifies a ticker job.
type TickerJobID int

// OverlapPolicy decides what happens when a job fires while its previous run
// is still going.
type OverlapPolicy int

const (
	// AllowOverlap runs concurrently (default).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning drops the new run.
	SkipIfRunning
	// DelayIfRunning waits for the previous run to finish.
	DelayIfRunning
)

func (p OverlapPolicy) String() string {
	switch p {
	case SkipIfRunning:
		return "skip"
	case DelayIfRunning:
		return "delay"
	default:
		return "allow"
	}
}

// JobOptions configures a job.
type JobOptions struct {
	Name          string
	Timeout       time.Duration
	OverlapPolicy OverlapPolicy
}

type jobWrapper struct {
	job     JobFunc
	options JobOptions
	running sync.Mutex
}

type tickerJob struct {
	cancel  context.CancelFunc
	wrapper *jobWrapper
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}

// JobHooks are optional observability callbacks.
type JobHooks struct {
	OnJobStart  func(jobName string)
	OnJobFinish func(jobName string, duration time.Duration, err error)
}

// Config holds scheduler settings.
type Config struct {
	Logger   *slog.Logger
	JobHooks JobHooks
}

// Scheduler runs cron and fixed-interval jobs until stopped or until its
// parent context is cancelled.
type Scheduler struct {
	cron         *cron.Cron
	logger       *slog.Logger
	hooks        JobHooks
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	tickerJobs   map[TickerJobID]*tickerJob
	nextTickerID TickerJobID
	startOnce    sync.Once
	stopOnce     sync.Once
}

// New returns a scheduler bound to parent. Schedules use the six-field cron
// format with seconds, or descriptors such as "@daily" and "@every 5m".
func New(parent context.Context, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(parent)

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "scheduler"))

	return &Scheduler{
		cron:         cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{logger: logger})),
		logger:       logger,
		hooks:        cfg.JobHooks,
		ctx:          ctx,
		cancel:       cancel,
		tickerJobs:   make(map[TickerJobID]*tickerJob),
		nextTickerID: 1,
	}
}

// AddCronJob schedules job on a cron expression.
func (s *Scheduler) AddCronJob(schedule string, job JobFunc, opts JobOptions) (CronJobID, error) {
	wrapper := &jobWrapper{job: job, options: opts}

	id, err := s.cron.AddFunc(schedule, func() { s.run(wrapper) })
	if err != nil {
		return 0, fmt.Errorf("schedule %q for job %q: %w", schedule, opts.Name, err)
	}

	s.logger.Info("cron job added", slog.String("name", opts.Name), slog.String("schedule", schedule),
		slog.String("overlap", opts.OverlapPolicy.String()), slog.Int("id", int(id)))
	return id, nil
}

// AddTickerJob runs job every interval. The first run happens after one
// interval.
func (s *Scheduler) AddTickerJob(interval time.Duration, job JobFunc, opts JobOptions) TickerJobID {
	wrapper := &jobWrapper{job: job, options: opts}
	ctx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	id := s.nextTickerID
	s.nextTickerID++
	s.tickerJobs[id] = &tickerJob{cancel: cancel, wrapper: wrapper}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.run(wrapper)
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("ticker job added", slog.String("name", opts.Name), slog.Duration("interval", interval),
		slog.String("overlap", opts.OverlapPolicy.String()), slog.Int("id", int(id)))
	return id
}

// Start starts cron jobs. It is idempotent.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.cron.Start()
		go func() {
			<-s.ctx.Done()
			s.stopOnce.Do(s.stop)
		}()
		s.logger.Info("scheduler started")
	})
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.stopOnce.Do(s.stop)
}

// StopContext is Stop bounded by ctx. When ctx expires first it still waits
// for shutdown but returns ctx.Err().
func (s *Scheduler) StopContext(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded")
		<-done
		return ctx.Err()
	}
}

func (s *Scheduler) running() bool {
	return s.ctx.Err() == nil
}

func (s *Scheduler) stop() {
	<-s.cron.Stop().Done()

	s.mu.Lock()
	for _, job := range s.tickerJobs {
		job.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(w *jobWrapper) {
	name := w.options.Name
	if name == "" {
		name = "unnamed"
	}

	switch w.options.OverlapPolicy {
	case SkipIfRunning:
		if !w.running.TryLock() {
			s.logger.Info("job still running, skipped", slog.String("name", name))
			return
		}
		defer w.running.Unlock()
	case DelayIfRunning:
		w.running.Lock()
		defer w.running.Unlock()
	}

	if s.ctx.Err() != nil {
		return
	}
	if s.hooks.OnJobStart != nil {
		s.hooks.OnJobStart(name)
	}

	ctx := s.ctx
	if w.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.options.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.call(ctx, w.job)
	dur := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(name, dur, err)
	}
	if err != nil {
		s.logger.Error("job failed", slog.String("name", name), slog.Duration("dur", dur), slog.Any("error", err))
		return
	}
	s.logger.Debug("job finished", slog.String("name", name), slog.Duration("dur", dur))
}

func (s *Scheduler) call(ctx context.Context, job JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}
