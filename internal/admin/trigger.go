package admin

import (
	"context"
	"errors"

	"github.com/aatumaykin/pollbot/internal/cron"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
)

// Trigger turns scheduler firings into poll lifecycle calls.
type Trigger struct {
	polls  *poll.Manager
	logger *logger.Logger
}

var _ cron.Trigger = (*Trigger)(nil)

// NewTrigger creates a Trigger for m.
func NewTrigger(m *poll.Manager, log *logger.Logger) *Trigger {
	if log == nil {
		log = logger.Nop()
	}
	return &Trigger{polls: m, logger: log.Component("trigger")}
}

// OpenPoll starts the schedule's poll. Failures are logged; the next firing
// is a week later.
func (t *Trigger) OpenPoll(ctx context.Context, s schedule.Schedule) {
	if _, err := t.polls.Start(ctx, s); err != nil {
		fields := []logger.Field{
			{Key: "chat_id", Value: s.ChatID},
			{Key: "schedule_id", Value: s.ID},
		}
		if errors.Is(err, poll.ErrAlreadyOpen) {
			t.logger.WarnCtx(ctx, "scheduled poll is already open", fields...)
			return
		}
		t.logger.ErrorCtx(ctx, "scheduled poll start failed", err, fields...)
	}
}

// ClosePoll closes the schedule's poll. A missing or still publishing poll
// is logged by the manager and ignored here.
func (t *Trigger) ClosePoll(ctx context.Context, s schedule.Schedule) {
	_, err := t.polls.Close(ctx, s.ChatID, s.ID)
	if err != nil && !errors.Is(err, poll.ErrPollNotFound) && !errors.Is(err, poll.ErrCloseDeferred) {
		t.logger.ErrorCtx(ctx, "scheduled poll close had failures", err,
			logger.Field{Key: "chat_id", Value: s.ChatID},
			logger.Field{Key: "schedule_id", Value: s.ID})
	}
}
