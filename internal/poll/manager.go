// Package poll implements the attendance poll lifecycle: every (chat,
// schedule) pair moves Idle -> Open -> Idle, votes are kept in a Tally that
// allows one choice per voter, and every change is rendered through a
// Gateway.
package poll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/google/uuid"
)

// Gateway operation names used in logs, metrics and health.
const (
	OpSend  = "send"
	OpEdit  = "edit"
	OpStrip = "strip"
)

// ActivePoll is an open poll. It lives only in memory. mu serializes every
// operation on the poll, gateway calls included, so renders never overtake
// each other or the close.
type ActivePoll struct {
	ID         string
	ChatID     int64
	Schedule   schedule.Schedule
	MessageRef MessageRef
	OpenedAt   time.Time

	mu     sync.Mutex
	tally  *Tally
	closed bool
}

func (p *ActivePoll) view() View {
	return View{
		ID:         p.ID,
		ChatID:     p.ChatID,
		Schedule:   p.Schedule,
		MessageRef: p.MessageRef,
		OpenedAt:   p.OpenedAt,
		Results:    p.tally.Snapshot(),
	}
}

// View is a read-only copy of an open poll.
type View struct {
	ID         string            `json:"id"`
	ChatID     int64             `json:"chat_id"`
	Schedule   schedule.Schedule `json:"schedule"`
	MessageRef MessageRef        `json:"message_ref"`
	OpenedAt   time.Time         `json:"opened_at"`
	Results    Snapshot          `json:"results"`
}

// Summary is the final result of a closed poll.
type Summary struct {
	View
	ClosedAt time.Time `json:"closed_at"`
}

type pollKey struct {
	chatID     int64
	scheduleID string
}

// Config holds Manager dependencies. Gateway and Renderer are required.
type Config struct {
	Gateway  Gateway
	Renderer Renderer
	Logger   *logger.Logger
	Observer Observer
	Health   *Health
	Now      func() time.Time
}

// Manager owns all open polls.
type Manager struct {
	gateway  Gateway
	renderer Renderer
	logger   *logger.Logger
	observer Observer
	health   *Health
	now      func() time.Time

	mu    sync.Mutex
	byID  map[string]*ActivePoll
	byKey map[pollKey]*ActivePoll

	// opening holds schedules whose poll is being published. The value is
	// set when a Close arrived meanwhile.
	opening map[pollKey]bool
}

// NewManager creates a manager with no open polls.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		gateway:  cfg.Gateway,
		renderer: cfg.Renderer,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		health:   cfg.Health,
		now:      cfg.Now,
		byID:     make(map[string]*ActivePoll),
		byKey:    make(map[pollKey]*ActivePoll),
		opening:  make(map[pollKey]bool),
	}
	if m.logger == nil {
		m.logger = logger.Nop()
	}
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	if m.health == nil {
		m.health = NewHealth(3)
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Health returns the gateway health tracker.
func (m *Manager) Health() *Health {
	return m.health
}

// Start opens a poll for s. It fails with ErrAlreadyOpen unless the
// schedule's poll is Idle. The poll becomes Open only after the initial
// message is published; a publish failure leaves it Idle and is not retried.
// A Close received while publishing is applied right after the poll opens.
func (m *Manager) Start(ctx context.Context, s schedule.Schedule) (View, error) {
	key := pollKey{chatID: s.ChatID, scheduleID: s.ID}
	log := m.logger.With(
		logger.Field{Key: "chat_id", Value: s.ChatID},
		logger.Field{Key: "schedule_id", Value: s.ID})

	m.mu.Lock()
	if existing, ok := m.byKey[key]; ok {
		m.mu.Unlock()
		log.WarnCtx(ctx, "poll already open", logger.Field{Key: "poll_id", Value: existing.ID})
		return View{}, fmt.Errorf("%w: %s", ErrAlreadyOpen, existing.ID)
	}
	if _, ok := m.opening[key]; ok {
		m.mu.Unlock()
		log.WarnCtx(ctx, "poll is being opened")
		return View{}, fmt.Errorf("%w: publish in progress", ErrAlreadyOpen)
	}
	m.opening[key] = false
	m.mu.Unlock()

	p := &ActivePoll{
		ID:       uuid.NewString(),
		ChatID:   s.ChatID,
		Schedule: s,
		OpenedAt: m.now(),
		tally:    NewTally(),
	}

	ref, err := m.gateway.SendContent(ctx, p.ChatID, m.renderer.RenderPoll(p.view()))

	m.mu.Lock()
	closePending := m.opening[key]
	delete(m.opening, key)
	if err != nil {
		m.mu.Unlock()
		m.gatewayFailed(ctx, log, OpSend, err)
		log.ErrorCtx(ctx, "failed to publish poll", err)
		return View{}, fmt.Errorf("%w: publish poll: %w", ErrTransport, err)
	}
	p.MessageRef = ref
	m.byKey[key] = p
	m.byID[p.ID] = p
	active := len(m.byID)
	m.mu.Unlock()

	m.health.RecordSuccess()
	m.observer.PollOpened(p.ChatID)
	m.observer.ActivePolls(active)
	log.InfoCtx(ctx, "poll opened",
		logger.Field{Key: "poll_id", Value: p.ID},
		logger.Field{Key: "message_id", Value: ref.MessageID})

	p.mu.Lock()
	view := p.view()
	p.mu.Unlock()

	if closePending {
		log.InfoCtx(ctx, "closing poll requested during publish",
			logger.Field{Key: "poll_id", Value: p.ID})
		if _, err := m.Close(ctx, p.ChatID, s.ID); err != nil {
			log.ErrorCtx(ctx, "deferred poll close had failures", err,
				logger.Field{Key: "poll_id", Value: p.ID})
		}
	}
	return view, nil
}

// RecordVote sets voter's choice in the poll and re-renders it when the
// tally changed. A render failure is returned wrapped in ErrTransport; the
// vote is kept.
func (m *Manager) RecordVote(ctx context.Context, pollID string, voter Voter, option Option) error {
	if !option.Valid() {
		return fmt.Errorf("%w: option %d", ErrMalformedInteraction, int(option))
	}

	p, err := m.lookup(pollID)
	if err != nil {
		m.logger.InfoCtx(ctx, "vote for unknown poll",
			logger.Field{Key: "poll_id", Value: pollID},
			logger.Field{Key: "voter_id", Value: voter.ID})
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("%w: %s", ErrPollNotFound, pollID)
	}
	if !p.tally.CastVote(voter, option) {
		return nil
	}
	m.observer.VoteRecorded(option)
	m.logger.DebugCtx(ctx, "vote recorded",
		logger.Field{Key: "poll_id", Value: p.ID},
		logger.Field{Key: "voter_id", Value: voter.ID},
		logger.Field{Key: "option", Value: option.String()})

	return m.renderLocked(ctx, p)
}

// ResetVote removes voter's choice. It returns ErrNoActiveVote when the voter
// had none; nothing is rendered in that case.
func (m *Manager) ResetVote(ctx context.Context, pollID string, voter Voter) error {
	p, err := m.lookup(pollID)
	if err != nil {
		m.logger.InfoCtx(ctx, "reset for unknown poll",
			logger.Field{Key: "poll_id", Value: pollID},
			logger.Field{Key: "voter_id", Value: voter.ID})
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("%w: %s", ErrPollNotFound, pollID)
	}
	if !p.tally.ClearVote(voter.ID) {
		return ErrNoActiveVote
	}
	m.observer.VoteReset()

	return m.renderLocked(ctx, p)
}

// Handle dispatches a decoded button press.
func (m *Manager) Handle(ctx context.Context, in Interaction, voter Voter) error {
	switch in.Kind {
	case KindVote:
		return m.RecordVote(ctx, in.PollID, voter, in.Option)
	case KindReset:
		return m.ResetVote(ctx, in.PollID, voter)
	default:
		return fmt.Errorf("%w: kind %q", ErrMalformedInteraction, in.Kind)
	}
}

// Close ends the schedule's open poll: it leaves the Open state at once,
// then publishes the summary and strips the buttons from the poll message.
// Gateway failures are logged and returned, but the poll stays closed.
// When the poll is still being published, Close returns ErrCloseDeferred
// and Start closes it once the message is out.
func (m *Manager) Close(ctx context.Context, chatID int64, scheduleID string) (Summary, error) {
	key := pollKey{chatID: chatID, scheduleID: scheduleID}

	m.mu.Lock()
	p, ok := m.byKey[key]
	if ok {
		delete(m.byKey, key)
		delete(m.byID, p.ID)
	}
	_, opening := m.opening[key]
	if !ok && opening {
		m.opening[key] = true
	}
	active := len(m.byID)
	m.mu.Unlock()

	if !ok && opening {
		m.logger.InfoCtx(ctx, "poll is being published, close deferred",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "schedule_id", Value: scheduleID})
		return Summary{}, fmt.Errorf("%w: chat %d schedule %s", ErrCloseDeferred, chatID, scheduleID)
	}
	if !ok {
		m.logger.WarnCtx(ctx, "no open poll to close",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "schedule_id", Value: scheduleID})
		return Summary{}, fmt.Errorf("%w: chat %d schedule %s", ErrPollNotFound, chatID, scheduleID)
	}

	m.observer.PollClosed(chatID)
	m.observer.ActivePolls(active)
	return m.finish(ctx, p)
}

// ClosePoll closes an open poll by its ID.
func (m *Manager) ClosePoll(ctx context.Context, pollID string) (Summary, error) {
	p, err := m.lookup(pollID)
	if err != nil {
		return Summary{}, err
	}
	return m.Close(ctx, p.ChatID, p.Schedule.ID)
}

func (m *Manager) finish(ctx context.Context, p *ActivePoll) (Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	summary := Summary{View: p.view(), ClosedAt: m.now()}
	log := m.logger.With(
		logger.Field{Key: "chat_id", Value: p.ChatID},
		logger.Field{Key: "poll_id", Value: p.ID})

	var errs []error
	if _, err := m.gateway.SendContent(ctx, p.ChatID, m.renderer.RenderSummary(summary)); err != nil {
		m.gatewayFailed(ctx, log, OpSend, err)
		log.ErrorCtx(ctx, "failed to publish poll summary", err)
		errs = append(errs, fmt.Errorf("publish summary: %w", err))
	} else {
		m.health.RecordSuccess()
	}

	if err := m.gateway.StripControls(ctx, p.ChatID, p.MessageRef); err != nil {
		m.gatewayFailed(ctx, log, OpStrip, err)
		log.ErrorCtx(ctx, "failed to strip poll controls", err)
		errs = append(errs, fmt.Errorf("strip controls: %w", err))
	} else {
		m.health.RecordSuccess()
	}

	log.InfoCtx(ctx, "poll closed",
		logger.Field{Key: "yes", Value: summary.Results.Count(OptionYes)},
		logger.Field{Key: "no", Value: summary.Results.Count(OptionNo)},
		logger.Field{Key: "maybe", Value: summary.Results.Count(OptionMaybe)})

	if len(errs) > 0 {
		return summary, fmt.Errorf("%w: %w", ErrTransport, errors.Join(errs...))
	}
	return summary, nil
}

// Get returns a copy of an open poll.
func (m *Manager) Get(pollID string) (View, error) {
	p, err := m.lookup(pollID)
	if err != nil {
		return View{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view(), nil
}

// IsOpen reports whether the schedule has an open poll.
func (m *Manager) IsOpen(chatID int64, scheduleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byKey[pollKey{chatID: chatID, scheduleID: scheduleID}]
	return ok
}

// IsOpening reports whether the schedule's poll is being published.
func (m *Manager) IsOpening(chatID int64, scheduleID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.opening[pollKey{chatID: chatID, scheduleID: scheduleID}]
	return ok
}

// Active returns copies of all open polls ordered by opening time.
func (m *Manager) Active() []View {
	m.mu.Lock()
	polls := make([]*ActivePoll, 0, len(m.byID))
	for _, p := range m.byID {
		polls = append(polls, p)
	}
	m.mu.Unlock()

	views := make([]View, 0, len(polls))
	for _, p := range polls {
		p.mu.Lock()
		views = append(views, p.view())
		p.mu.Unlock()
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].OpenedAt.Equal(views[j].OpenedAt) {
			return views[i].ID < views[j].ID
		}
		return views[i].OpenedAt.Before(views[j].OpenedAt)
	})
	return views
}

func (m *Manager) lookup(pollID string) (*ActivePoll, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[pollID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPollNotFound, pollID)
	}
	return p, nil
}

// renderLocked re-renders p. The caller holds p.mu.
func (m *Manager) renderLocked(ctx context.Context, p *ActivePoll) error {
	err := m.gateway.EditContent(ctx, p.ChatID, p.MessageRef, m.renderer.RenderPoll(p.view()))
	if err != nil {
		log := m.logger.With(
			logger.Field{Key: "chat_id", Value: p.ChatID},
			logger.Field{Key: "poll_id", Value: p.ID})
		m.gatewayFailed(ctx, log, OpEdit, err)
		log.ErrorCtx(ctx, "failed to render poll", err)
		return fmt.Errorf("%w: render poll: %w", ErrTransport, err)
	}
	m.health.RecordSuccess()
	return nil
}

func (m *Manager) gatewayFailed(ctx context.Context, log *logger.Logger, op string, err error) {
	m.observer.GatewayFailure(op)
	if m.health.RecordFailure(op, err) {
		log.ErrorCtx(ctx, "messaging gateway is unhealthy", err,
			logger.Field{Key: "op", Value: op},
			logger.Field{Key: "consecutive_failures", Value: m.health.ConsecutiveFailures()})
	}
}
