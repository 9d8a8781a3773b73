// Package wizard implements the multi-step /add_schedule dialog. A dialog
// belongs to one user in one chat and collects the name, the opening day and
// time, and the closing day and time. Invalid input repeats the question.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/messages"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
)

// ButtonPrefix marks callback data that belongs to the wizard.
const ButtonPrefix = "wiz:"

const dayButtonPrefix = ButtonPrefix + "day:"

// Step is the question a dialog is waiting for.
type Step int

const (
	StepName Step = iota
	StepStartDay
	StepStartTime
	StepEndDay
	StepEndTime
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepStartDay:
		return "start_day"
	case StepStartTime:
		return "start_time"
	case StepEndDay:
		return "end_day"
	case StepEndTime:
		return "end_time"
	default:
		return "Step(" + strconv.Itoa(int(s)) + ")"
	}
}

// Key identifies a dialog.
type Key struct {
	ChatID int64
	UserID int64
}

// Reply is what the bot answers to one dialog turn.
type Reply struct {
	Text     string
	Keyboard poll.Keyboard
	// Done is set when the dialog has ended, successfully or not.
	Done bool
}

// Adder stores a completed schedule.
type Adder interface {
	AddSchedule(ctx context.Context, chatID int64, s schedule.Schedule) (int, error)
}

type session struct {
	step    Step
	draft   schedule.Schedule
	expires time.Time
}

// Wizard tracks open dialogs.
type Wizard struct {
	adder  Adder
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger

	mu       sync.Mutex
	sessions map[Key]*session
}

// Options configures a Wizard.
type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *logger.Logger
}

// New creates a Wizard that stores finished schedules through adder.
func New(adder Adder, opts Options) *Wizard {
	if opts.TTL <= 0 {
		opts.TTL = time.Duration(constants.DefaultWizardTTLMinutes) * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Wizard{
		adder:    adder,
		ttl:      opts.TTL,
		now:      opts.Now,
		logger:   opts.Logger.Component("wizard"),
		sessions: make(map[Key]*session),
	}
}

// Begin starts a dialog, replacing any unfinished one of the same user.
func (w *Wizard) Begin(key Key) Reply {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.sessions[key] = &session{
		step:    StepName,
		draft:   schedule.Schedule{ChatID: key.ChatID},
		expires: w.now().Add(w.ttl),
	}
	return Reply{Text: constants.MsgWizardAskName}
}

// Active reports whether key has an unexpired dialog.
func (w *Wizard) Active(key Key) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[key]
	return ok && w.now().Before(s.expires)
}

// Cancel ends the dialog of key.
func (w *Wizard) Cancel(key Key) Reply {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.sessions[key]; !ok {
		return Reply{Text: constants.MsgWizardNotActive, Done: true}
	}
	delete(w.sessions, key)
	return Reply{Text: constants.MsgWizardCancelled, Done: true}
}

// Input feeds a text message into the dialog of key. handled is false when
// the user has no dialog, so the message is not meant for the wizard.
func (w *Wizard) Input(ctx context.Context, key Key, text string) (reply Reply, handled bool) {
	return w.advance(ctx, key, text, false)
}

// Button feeds a wizard button press into the dialog of key.
func (w *Wizard) Button(ctx context.Context, key Key, data string) (Reply, bool) {
	value, ok := strings.CutPrefix(data, dayButtonPrefix)
	if !ok {
		return Reply{}, false
	}
	return w.advance(ctx, key, value, true)
}

// Expire drops dialogs whose time is up and returns how many were dropped.
func (w *Wizard) Expire() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	n := 0
	for k, s := range w.sessions {
		if !now.Before(s.expires) {
			delete(w.sessions, k)
			n++
		}
	}
	return n
}

func (w *Wizard) advance(ctx context.Context, key Key, input string, button bool) (Reply, bool) {
	w.mu.Lock()
	s, ok := w.sessions[key]
	if !ok {
		w.mu.Unlock()
		return Reply{}, false
	}
	if !w.now().Before(s.expires) {
		delete(w.sessions, key)
		w.mu.Unlock()
		return Reply{Text: constants.MsgWizardExpired, Done: true}, true
	}
	if button && s.step != StepStartDay && s.step != StepEndDay {
		w.mu.Unlock()
		return prompt(s.step), true
	}

	if err := s.apply(input); err != nil {
		step := s.step
		w.mu.Unlock()
		return reprompt(step, err), true
	}
	s.expires = w.now().Add(w.ttl)

	if s.step < StepEndTime {
		s.step++
		step := s.step
		w.mu.Unlock()
		return prompt(step), true
	}

	draft := s.draft
	delete(w.sessions, key)
	w.mu.Unlock()

	return w.finish(ctx, key, draft), true
}

func (s *session) apply(input string) error {
	var err error
	switch s.step {
	case StepName:
		name := strings.TrimSpace(input)
		if name == "" || len([]rune(name)) > schedule.MaxNameLength {
			return &schedule.ValidationError{Field: "name", Value: input, Reason: "name must be 1-64 characters"}
		}
		s.draft.Name = name
	case StepStartDay:
		s.draft.StartDay, err = schedule.ParseWeekday("start_day", input)
	case StepStartTime:
		s.draft.StartTime, err = schedule.ParseTimeOfDay("start_time", input)
	case StepEndDay:
		s.draft.EndDay, err = schedule.ParseWeekday("end_day", input)
	case StepEndTime:
		s.draft.EndTime, err = schedule.ParseTimeOfDay("end_time", input)
		if err == nil {
			err = s.draft.Validate()
		}
	}
	return err
}

// finish stores the draft. A validation failure at this point means the
// whole draft is unusable and the user has to start over.
func (w *Wizard) finish(ctx context.Context, key Key, draft schedule.Schedule) Reply {
	position, err := w.adder.AddSchedule(ctx, key.ChatID, draft)
	name := html.EscapeString(draft.Name)

	switch {
	case err == nil:
		w.logger.InfoCtx(ctx, "schedule added",
			logger.Field{Key: "chat_id", Value: key.ChatID},
			logger.Field{Key: "user_id", Value: key.UserID},
			logger.Field{Key: "position", Value: position})
		return Reply{Text: fmt.Sprintf(constants.MsgScheduleAdded, name, position), Done: true}
	case errors.Is(err, schedule.ErrPersistence):
		w.logger.WarnCtx(ctx, "schedule added but not saved",
			logger.Field{Key: "chat_id", Value: key.ChatID},
			logger.Field{Key: "error", Value: err.Error()})
		text := fmt.Sprintf(constants.MsgScheduleAdded, name, position) + "\n" +
			fmt.Sprintf(constants.MsgPersistFailed, html.EscapeString(err.Error()))
		return Reply{Text: text, Done: true}
	default:
		w.logger.ErrorCtx(ctx, "failed to add schedule", err,
			logger.Field{Key: "chat_id", Value: key.ChatID})
		return Reply{Text: messages.FormatInputError(err), Done: true}
	}
}

func prompt(step Step) Reply {
	switch step {
	case StepStartDay:
		return Reply{Text: constants.MsgWizardAskStartDay, Keyboard: DayKeyboard()}
	case StepStartTime:
		return Reply{Text: constants.MsgWizardAskStartTime}
	case StepEndDay:
		return Reply{Text: constants.MsgWizardAskEndDay, Keyboard: DayKeyboard()}
	case StepEndTime:
		return Reply{Text: constants.MsgWizardAskEndTime}
	default:
		return Reply{Text: constants.MsgWizardAskName}
	}
}

func reprompt(step Step, err error) Reply {
	r := prompt(step)
	r.Text = messages.FormatInputError(err) + "\n\n" + r.Text
	return r
}

// DayKeyboard returns the weekday buttons, four in the first row and three
// in the second.
func DayKeyboard() poll.Keyboard {
	kb := poll.Keyboard{{}, {}}
	for _, d := range schedule.Weekdays {
		row := 0
		if d >= schedule.Friday {
			row = 1
		}
		kb[row] = append(kb[row], poll.Button{
			Text: messages.DayShortName(d),
			Data: dayButtonPrefix + strconv.Itoa(int(d)),
		})
	}
	return kb
}
