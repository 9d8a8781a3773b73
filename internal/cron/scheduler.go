// Package cron provides the weekly poll scheduler. Cron expressions are
// parsed and evaluated with robfig/cron/v3; a cooperative ticker checks which
// jobs are due in the current wall-clock minute and fires each of them at
// most once. Minutes missed while the process was down are never caught up.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/robfig/cron/v3"
)

// DefaultTickInterval is how often due jobs are evaluated.
const DefaultTickInterval = 10 * time.Second

var (
	// ErrDuplicateJob is returned when a job with the same key is registered.
	ErrDuplicateJob = errors.New("job already scheduled")
	// ErrInvalidJob is returned for jobs that cannot be turned into a cron spec.
	ErrInvalidJob = errors.New("invalid job")
	// ErrNoTrigger is returned by RebuildAll before a Trigger is set.
	ErrNoTrigger = errors.New("scheduler has no trigger")
)

type entry struct {
	id        string
	key       CorrelationKey
	spec      string
	schedule  cron.Schedule
	run       cron.Job
	lastFired time.Time
}

// Options configures a Scheduler.
type Options struct {
	Location     *time.Location
	TickInterval time.Duration
	Trigger      Trigger
	Observer     FiringObserver
	Now          func() time.Time
}

// Scheduler fires registered weekly jobs.
type Scheduler struct {
	logger   *logger.Logger
	parser   cron.Parser
	chain    cron.Chain
	location *time.Location
	interval time.Duration
	trigger  Trigger
	observer FiringObserver
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewScheduler creates a stopped scheduler with no jobs.
func NewScheduler(log *logger.Logger, opts Options) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		logger:   log,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		chain:    cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		location: opts.Location,
		interval: opts.TickInterval,
		trigger:  opts.Trigger,
		observer: opts.Observer,
		now:      opts.Now,
		entries:  make(map[string]*entry),
		ctx:      context.Background(),
	}
}

// SetTrigger sets the receiver of firings produced by RebuildAll.
func (s *Scheduler) SetTrigger(t Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trigger = t
}

// Location returns the default location for schedules without a timezone.
func (s *Scheduler) Location() *time.Location {
	return s.location
}

// Schedule registers a job and returns its ID.
func (s *Scheduler) Schedule(job Job) (string, error) {
	e, err := s.newEntry(job)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[e.id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateJob, e.id)
	}
	s.entries[e.id] = e
	s.logger.Info("cron job added",
		logger.Field{Key: "job_id", Value: e.id},
		logger.Field{Key: "spec", Value: e.spec})
	return e.id, nil
}

// Remove unregisters a job. Unknown IDs are ignored.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// RebuildAll replaces every job with one start job and one end job per
// schedule. The new job set is swapped in at once. A schedule whose jobs
// cannot be built or collide with an earlier one is skipped and logged;
// the others are still registered and the skipped ones are returned as a
// joined error.
func (s *Scheduler) RebuildAll(schedules []schedule.Schedule) error {
	s.mu.Lock()
	trigger := s.trigger
	s.mu.Unlock()
	if trigger == nil {
		return ErrNoTrigger
	}

	next := make(map[string]*entry, len(schedules)*2)
	var skipped []error
	for _, sc := range schedules {
		sc := sc
		loc := sc.Location(s.location)
		jobs := []Job{
			{
				Key:      CorrelationKey{ChatID: sc.ChatID, ScheduleID: sc.ID, Phase: PhaseStart},
				Weekday:  sc.StartDay,
				Time:     sc.StartTime,
				Location: loc,
				Callback: func(ctx context.Context) { trigger.OpenPoll(ctx, sc) },
			},
			{
				Key:      CorrelationKey{ChatID: sc.ChatID, ScheduleID: sc.ID, Phase: PhaseEnd},
				Weekday:  sc.EndDay,
				Time:     sc.EndTime,
				Location: loc,
				Callback: func(ctx context.Context) { trigger.ClosePoll(ctx, sc) },
			},
		}
		entries, err := s.entriesFor(next, jobs)
		if err != nil {
			s.logger.Error("skipping schedule", err,
				logger.Field{Key: "chat_id", Value: sc.ChatID},
				logger.Field{Key: "schedule_id", Value: sc.ID})
			skipped = append(skipped, err)
			continue
		}
		for _, e := range entries {
			next[e.id] = e
		}
	}

	s.mu.Lock()
	for id, e := range next {
		if old, ok := s.entries[id]; ok && old.spec == e.spec {
			e.lastFired = old.lastFired
		}
	}
	s.entries = next
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.JobsRegistered(len(next))
	}
	s.logger.Info("cron jobs rebuilt",
		logger.Field{Key: "schedules", Value: len(schedules)},
		logger.Field{Key: "skipped", Value: len(skipped)},
		logger.Field{Key: "jobs", Value: len(next)})
	return errors.Join(skipped...)
}

// entriesFor builds the entries of one schedule's jobs. Either all of them
// are returned or none.
func (s *Scheduler) entriesFor(registered map[string]*entry, jobs []Job) ([]*entry, error) {
	entries := make([]*entry, 0, len(jobs))
	for _, job := range jobs {
		e, err := s.newEntry(job)
		if err != nil {
			return nil, err
		}
		if _, exists := registered[e.id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateJob, e.id)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Scheduler) newEntry(job Job) (*entry, error) {
	if job.Callback == nil {
		return nil, fmt.Errorf("%w: %s has no callback", ErrInvalidJob, job.Key)
	}
	if !job.Weekday.Valid() || !job.Time.Valid() {
		return nil, fmt.Errorf("%w: %s at %s %s", ErrInvalidJob, job.Key, job.Weekday, job.Time)
	}

	expr := spec(job)
	parsed, err := s.parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidJob, expr, err)
	}

	e := &entry{
		id:       job.Key.String(),
		key:      job.Key,
		spec:     expr,
		schedule: parsed,
	}
	callback := job.Callback
	e.run = s.chain.Then(cron.FuncJob(func() {
		callback(s.runContext())
	}))
	return e, nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Tick fires every job due in the minute containing now and waits for
// them to finish. It returns how many jobs fired.
func (s *Scheduler) Tick(now time.Time) int {
	minute := now.Truncate(time.Minute)

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if e.lastFired.Equal(minute) {
			continue
		}
		if !e.schedule.Next(minute.Add(-time.Second)).Equal(minute) {
			continue
		}
		e.lastFired = minute
		due = append(due, e)
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })

	var wg sync.WaitGroup
	for _, e := range due {
		s.logger.Info("cron job fired",
			logger.Field{Key: "job_id", Value: e.id},
			logger.Field{Key: "minute", Value: minute})
		if s.observer != nil {
			s.observer.JobFired(string(e.key.Phase))
		}
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			e.run.Run()
		}(e)
	}
	wg.Wait()
	return len(due)
}

// Jobs lists registered jobs with their next firing time, ordered by ID.
func (s *Scheduler) Jobs() []JobInfo {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, JobInfo{ID: e.id, Spec: e.spec, Next: e.schedule.Next(now)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.started = true

	go s.loop(s.ctx, s.done)

	s.logger.Info("cron scheduler started",
		logger.Field{Key: "location", Value: s.location.String()},
		logger.Field{Key: "tick", Value: s.interval.String()})
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(s.now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cron scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}

// Stop cancels the tick loop and waits for running jobs to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.cancel()
	s.started = false
	done := s.done
	s.mu.Unlock()

	<-done
	return nil
}

// IsStarted reports whether the tick loop is running.
func (s *Scheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
