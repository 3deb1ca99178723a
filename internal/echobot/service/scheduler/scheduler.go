// Package scheduler runs named background jobs: one-shot delays, fixed
// intervals and cron expressions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiosk404/echobot/pkg/logger"
	"github.com/robfig/cron/v3"
)

// ErrJobNotFound is returned by Cancel for unknown ids.
var ErrJobNotFound = errors.New("scheduler: job not found")

// ErrStopped is returned when scheduling on a stopped scheduler.
var ErrStopped = errors.New("scheduler: stopped")

// JobFunc is the body of a job. Its context is cancelled on Shutdown.
type JobFunc func(ctx context.Context) error

// Kind tells how a job is triggered.
type Kind string

const (
	KindOnce  Kind = "once"
	KindEvery Kind = "every"
	KindCron  Kind = "cron"
)

// Job describes a scheduled job.
type Job struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Kind Kind      `json:"kind"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Runs int64     `json:"runs"`
}

type entry struct {
	job     Job
	fn      JobFunc
	cronID  cron.EntryID
	timer   *time.Timer
	removed bool
}

// Parser accepts standard five-field expressions, an optional leading
// seconds field, and descriptors such as @hourly.
var Parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler owns a cron runner plus one-shot timers.
type Scheduler struct {
	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	jobs    map[string]*entry
	stopped bool
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithParser(Parser), cron.WithLogger(cronLogger{})),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*entry),
	}
}

// Start begins running interval and cron jobs. One-shot jobs fire
// whether or not the scheduler was started.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("[Scheduler] started")
}

// Once runs fn after delay.
func (s *Scheduler) Once(name string, delay time.Duration, fn JobFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return "", ErrStopped
	}
	e := &entry{
		job: Job{ID: uuid.NewString(), Name: name, Kind: KindOnce, Spec: delay.String(), Next: time.Now().Add(delay)},
		fn:  fn,
	}
	s.wg.Add(1)
	e.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		s.mu.Lock()
		removed := e.removed
		delete(s.jobs, e.job.ID)
		s.mu.Unlock()
		if !removed {
			s.run(e)
		}
	})
	s.jobs[e.job.ID] = e
	return e.job.ID, nil
}

// Every runs fn at a fixed interval, rounded down to whole seconds.
func (s *Scheduler) Every(name string, interval time.Duration, fn JobFunc) (string, error) {
	if interval < time.Second {
		return "", fmt.Errorf("scheduler: interval %s is below one second", interval)
	}
	return s.add(name, KindEvery, interval.String(), cron.Every(interval), fn)
}

// Cron runs fn on the schedule given by spec.
func (s *Scheduler) Cron(name, spec string, fn JobFunc) (string, error) {
	sched, err := Parser.Parse(spec)
	if err != nil {
		return "", fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	return s.add(name, KindCron, spec, sched, fn)
}

func (s *Scheduler) add(name string, kind Kind, spec string, sched cron.Schedule, fn JobFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return "", ErrStopped
	}
	e := &entry{job: Job{ID: uuid.NewString(), Name: name, Kind: kind, Spec: spec}, fn: fn}
	e.cronID = s.cron.Schedule(sched, cron.FuncJob(func() { s.run(e) }))
	s.jobs[e.job.ID] = e
	logger.Debug("[Scheduler] registered %s job %q (%s)", kind, name, spec)
	return e.job.ID, nil
}

func (s *Scheduler) run(e *entry) {
	s.mu.Lock()
	e.job.Runs++
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Scheduler] job %q panicked: %v", e.job.Name, r)
		}
	}()
	if err := e.fn(s.ctx); err != nil {
		logger.Warn("[Scheduler] job %q failed: %v", e.job.Name, err)
	}
}

// Cancel removes a job. A running invocation is not interrupted.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	delete(s.jobs, id)
	e.removed = true
	if e.timer != nil {
		if e.timer.Stop() {
			s.wg.Done()
		}
	} else {
		s.cron.Remove(e.cronID)
	}
	return nil
}

// Jobs lists the registered jobs ordered by name then id.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	out := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		job := e.job
		if e.timer == nil {
			job.Next = s.cron.Entry(e.cronID).Next
		}
		out = append(out, job)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Shutdown stops scheduling, cancels job contexts and waits for running
// jobs until ctx is done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	for id, e := range s.jobs {
		if e.timer != nil && e.timer.Stop() {
			s.wg.Done()
		}
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	s.cancel()
	cronDone := s.cron.Stop().Done()
	waited := make(chan struct{})
	go func() {
		<-cronDone
		s.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		logger.Info("[Scheduler] stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: jobs still running: %w", ctx.Err())
	}
}

// cronLogger routes the cron runner's own messages to the logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("[Scheduler] %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("[Scheduler] %s: %v %v", msg, err, keysAndValues)
}
