package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/wizard"
	"github.com/mymmrac/telego"
)

// Interaction results reported to metrics.
const (
	resultOK        = "ok"
	resultNoVote    = "no_vote"
	resultClosed    = "closed"
	resultRender    = "render_failed"
	resultMalformed = "malformed"
	resultError     = "error"
)

// handleCallback processes a button press. Every query is answered so the
// client stops its loading animation.
func (c *Connector) handleCallback(ctx context.Context, q *telego.CallbackQuery) {
	var chat telego.Chat
	if q.Message != nil {
		chat = q.Message.GetChat()
	}

	if chat.ID != 0 && !c.isAllowedChat(chat.ID) {
		c.logger.WarnCtx(ctx, "callback from chat outside whitelist ignored",
			logger.Field{Key: "chat_id", Value: chat.ID},
			logger.Field{Key: "user_id", Value: q.From.ID})
		c.answerCallback(ctx, q.ID, "")
		return
	}

	switch {
	case strings.HasPrefix(q.Data, wizard.ButtonPrefix):
		c.handleWizardButton(ctx, q, chat)
	case poll.IsInteraction(q.Data):
		c.handleInteraction(ctx, q)
	default:
		c.logger.WarnCtx(ctx, "unknown callback data",
			logger.Field{Key: "callback_data", Value: q.Data},
			logger.Field{Key: "user_id", Value: q.From.ID})
		c.answerCallback(ctx, q.ID, constants.MsgUnknownButton)
	}
}

func (c *Connector) handleWizardButton(ctx context.Context, q *telego.CallbackQuery, chat telego.Chat) {
	reply, ok := c.wizard.Button(ctx, wizard.Key{ChatID: chat.ID, UserID: q.From.ID}, q.Data)
	if !ok {
		c.answerCallback(ctx, q.ID, constants.MsgWizardNotActive)
		return
	}
	c.answerCallback(ctx, q.ID, "")
	c.sendWizardReply(ctx, chat, 0, reply)
}

func (c *Connector) handleInteraction(ctx context.Context, q *telego.CallbackQuery) {
	in, err := poll.DecodeInteraction(q.Data)
	if err != nil {
		c.logger.WarnCtx(ctx, "malformed poll button",
			logger.Field{Key: "callback_data", Value: q.Data},
			logger.Field{Key: "error", Value: err.Error()})
		c.observeInteraction("unknown", resultMalformed)
		c.answerCallback(ctx, q.ID, constants.MsgUnknownButton)
		return
	}

	err = c.polls.Handle(ctx, in, voterFrom(q.From))
	result, text := interactionOutcome(in, err)
	if result == resultError {
		c.logger.ErrorCtx(ctx, "poll interaction failed", err,
			logger.Field{Key: "poll_id", Value: in.PollID},
			logger.Field{Key: "user_id", Value: q.From.ID})
	}
	c.observeInteraction(string(in.Kind), result)
	c.answerCallback(ctx, q.ID, text)
}

func interactionOutcome(in poll.Interaction, err error) (result, text string) {
	switch {
	case err == nil && in.Kind == poll.KindReset:
		return resultOK, constants.MsgVoteReset
	case err == nil:
		return resultOK, constants.MsgVoteAccepted
	case errors.Is(err, poll.ErrNoActiveVote):
		return resultNoVote, constants.MsgNoVoteToReset
	case errors.Is(err, poll.ErrPollNotFound):
		return resultClosed, constants.MsgPollClosed
	case errors.Is(err, poll.ErrTransport):
		return resultRender, constants.MsgVoteFailed
	case errors.Is(err, poll.ErrMalformedInteraction):
		return resultMalformed, constants.MsgUnknownButton
	default:
		return resultError, constants.MsgUnknownButton
	}
}

func (c *Connector) observeInteraction(kind, result string) {
	if c.metrics != nil {
		c.metrics.Interaction(kind, result)
	}
}

// voterFrom builds the display name shown in poll results.
func voterFrom(u telego.User) poll.Voter {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	if name == "" {
		name = "id" + strconv.FormatInt(u.ID, 10)
	}
	return poll.Voter{ID: u.ID, Name: name}
}
