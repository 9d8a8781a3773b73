// Package admin implements the administrative operations on schedules and
// polls. Every schedule mutation is persisted and followed by a full
// rebuild of the scheduler jobs, so jobs never outlive the configuration
// they were built from.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aatumaykin/pollbot/internal/cron"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/aatumaykin/pollbot/internal/version"
)

// Scheduler is the part of cron.Scheduler the service drives.
type Scheduler interface {
	RebuildAll(schedules []schedule.Schedule) error
	Jobs() []cron.JobInfo
	IsStarted() bool
}

// Gauges receives the schedule count after every mutation.
type Gauges interface {
	SetSchedules(n int)
}

// Config holds Service dependencies.
type Config struct {
	Store     *schedule.Store
	Scheduler Scheduler
	Polls     *poll.Manager
	Logger    *logger.Logger
	Gauges    Gauges
}

// Service serializes schedule mutations and exposes manual poll control.
type Service struct {
	store     *schedule.Store
	scheduler Scheduler
	polls     *poll.Manager
	logger    *logger.Logger
	gauges    Gauges

	mu sync.Mutex
}

// ScheduleStatus is a schedule with its list position and poll state.
type ScheduleStatus struct {
	Position int               `json:"position"`
	Schedule schedule.Schedule `json:"schedule"`
	Open     bool              `json:"open"`
}

// DebugInfo describes the bot state as seen from one chat.
type DebugInfo struct {
	ChatID           int64
	ChatSchedules    int
	TotalSchedules   int
	Jobs             []cron.JobInfo
	SchedulerRunning bool
	Health           poll.HealthStatus
	Active           []poll.View
	Version          string
}

// State is the global bot state.
type State struct {
	Schedules        []schedule.Schedule `json:"schedules"`
	Active           []poll.View         `json:"active_polls"`
	Jobs             []cron.JobInfo      `json:"jobs"`
	SchedulerRunning bool                `json:"scheduler_running"`
	Health           poll.HealthStatus   `json:"health"`
	Version          string              `json:"version"`
}

// New creates a Service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		polls:     cfg.Polls,
		logger:    log.Component("admin"),
		gauges:    cfg.Gauges,
	}
}

// Init loads the schedule file and registers the jobs. A broken file is
// logged and the bot starts with no schedules; a schedule the scheduler
// cannot register is logged and left without jobs. Only a scheduler with no
// trigger fails Init.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Load(); err != nil {
		s.logger.WarnCtx(ctx, "schedule file could not be loaded, starting empty",
			logger.Field{Key: "error", Value: err.Error()})
	}
	if err := s.rebuildLocked(ctx); err != nil {
		if errors.Is(err, cron.ErrNoTrigger) {
			return err
		}
		s.logger.WarnCtx(ctx, "some schedules have no jobs",
			logger.Field{Key: "error", Value: err.Error()})
	}
	return nil
}

// ListSchedules returns the chat's schedules with positions and poll state.
func (s *Service) ListSchedules(chatID int64) []ScheduleStatus {
	list := s.store.List(chatID)
	out := make([]ScheduleStatus, len(list))
	for i, sc := range list {
		out[i] = ScheduleStatus{
			Position: i + 1,
			Schedule: sc,
			Open:     s.polls.IsOpen(chatID, sc.ID),
		}
	}
	return out
}

// AddSchedule validates and stores a new schedule. A persistence failure is
// returned wrapped in schedule.ErrPersistence while the schedule stays
// active in memory.
func (s *Service) AddSchedule(ctx context.Context, chatID int64, sc schedule.Schedule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	position, err := s.store.Add(chatID, sc)
	if err != nil {
		return 0, err
	}
	return position, s.commitLocked(ctx)
}

// DeleteSchedule removes the schedule at a 1-based position. An open poll
// of that schedule is closed and its summary published.
func (s *Service) DeleteSchedule(ctx context.Context, chatID int64, position int) (schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.Remove(chatID, position)
	if err != nil {
		return schedule.Schedule{}, err
	}
	commitErr := s.commitLocked(ctx)
	s.closeOrphan(ctx, removed)
	return removed, commitErr
}

// DeleteAll removes every schedule of the chat and closes their open polls.
func (s *Service) DeleteAll(ctx context.Context, chatID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.store.List(chatID)
	n := s.store.RemoveAll(chatID)
	if n == 0 {
		return 0, nil
	}
	commitErr := s.commitLocked(ctx)
	for _, sc := range removed {
		s.closeOrphan(ctx, sc)
	}
	return n, commitErr
}

// StartPoll opens the poll of the schedule at a position right away.
func (s *Service) StartPoll(ctx context.Context, chatID int64, position int) (schedule.Schedule, poll.View, error) {
	sc, err := s.store.Get(chatID, position)
	if err != nil {
		return schedule.Schedule{}, poll.View{}, err
	}
	view, err := s.polls.Start(ctx, sc)
	return sc, view, err
}

// ClosePoll closes the open poll of the schedule at a position right away.
func (s *Service) ClosePoll(ctx context.Context, chatID int64, position int) (schedule.Schedule, poll.Summary, error) {
	sc, err := s.store.Get(chatID, position)
	if err != nil {
		return schedule.Schedule{}, poll.Summary{}, err
	}
	summary, err := s.polls.Close(ctx, chatID, sc.ID)
	return sc, summary, err
}

// ClosePollByID closes an open poll by its ID.
func (s *Service) ClosePollByID(ctx context.Context, pollID string) (poll.Summary, error) {
	return s.polls.ClosePoll(ctx, pollID)
}

// Debug returns diagnostic information for a chat.
func (s *Service) Debug(chatID int64) DebugInfo {
	return DebugInfo{
		ChatID:           chatID,
		ChatSchedules:    len(s.store.List(chatID)),
		TotalSchedules:   s.store.Count(),
		Jobs:             s.scheduler.Jobs(),
		SchedulerRunning: s.scheduler.IsStarted(),
		Health:           s.polls.Health().Status(),
		Active:           s.polls.Active(),
		Version:          version.Version,
	}
}

// State returns the global state.
func (s *Service) State() State {
	return State{
		Schedules:        s.store.All(),
		Active:           s.polls.Active(),
		Jobs:             s.scheduler.Jobs(),
		SchedulerRunning: s.scheduler.IsStarted(),
		Health:           s.polls.Health().Status(),
		Version:          version.Version,
	}
}

// commitLocked persists the store and rebuilds the jobs. The rebuild runs
// even when persisting fails.
func (s *Service) commitLocked(ctx context.Context) error {
	persistErr := s.store.Persist()
	if err := s.rebuildLocked(ctx); err != nil {
		return errors.Join(err, persistErr)
	}
	if persistErr != nil {
		return fmt.Errorf("changes are active but not saved: %w", persistErr)
	}
	return nil
}

func (s *Service) rebuildLocked(ctx context.Context) error {
	all := s.store.All()
	if s.gauges != nil {
		s.gauges.SetSchedules(len(all))
	}
	if err := s.scheduler.RebuildAll(all); err != nil {
		s.logger.ErrorCtx(ctx, "failed to rebuild scheduler jobs", err)
		return fmt.Errorf("rebuild jobs: %w", err)
	}
	return nil
}

func (s *Service) closeOrphan(ctx context.Context, sc schedule.Schedule) {
	if !s.polls.IsOpen(sc.ChatID, sc.ID) && !s.polls.IsOpening(sc.ChatID, sc.ID) {
		return
	}
	s.logger.InfoCtx(ctx, "closing poll of deleted schedule",
		logger.Field{Key: "chat_id", Value: sc.ChatID},
		logger.Field{Key: "schedule_id", Value: sc.ID})
	if _, err := s.polls.Close(ctx, sc.ChatID, sc.ID); err != nil && !errors.Is(err, poll.ErrCloseDeferred) {
		s.logger.ErrorCtx(ctx, "failed to close poll of deleted schedule", err,
			logger.Field{Key: "schedule_id", Value: sc.ID})
	}
}
