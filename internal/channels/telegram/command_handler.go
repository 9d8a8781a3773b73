package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/messages"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/aatumaykin/pollbot/internal/wizard"
	"github.com/mymmrac/telego"
)

// adminCommands change schedules or polls and need admin rights.
var adminCommands = map[string]bool{
	constants.CommandAddSchedule:    true,
	constants.CommandDeleteSchedule: true,
	constants.CommandDeleteAll:      true,
	constants.CommandPollStart:      true,
	constants.CommandPollClose:      true,
	constants.CommandDebug:          true,
}

// parseCommand splits "/cmd@bot arg1 arg2" into "cmd" and its arguments.
func parseCommand(text string) (string, []string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name, _, _ := strings.Cut(fields[0][1:], "@")
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

// commandMention returns the bot username a command is addressed to, if any.
func commandMention(text string) string {
	first, _, _ := strings.Cut(text, " ")
	_, mention, _ := strings.Cut(first, "@")
	return strings.TrimSpace(mention)
}

// handleCommand processes a bot command
func (c *Connector) handleCommand(ctx context.Context, msg *telego.Message, command string, args []string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if adminCommands[command] && !c.isAdmin(ctx, msg.Chat, userID) {
		c.logger.WarnCtx(ctx, "command blocked - user is not an admin",
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "user_id", Value: userID},
			logger.Field{Key: "command", Value: "/" + command})
		c.reply(ctx, chatID, constants.MsgAdminsOnly, nil, msg.MessageID)
		return
	}

	c.logger.DebugCtx(ctx, "command received",
		logger.Field{Key: "chat_id", Value: chatID},
		logger.Field{Key: "user_id", Value: userID},
		logger.Field{Key: "command", Value: command})

	switch command {
	case constants.CommandStart:
		text := constants.MsgStartGroup
		if msg.Chat.Type == telego.ChatTypePrivate {
			text = constants.MsgStartPrivate
		}
		c.reply(ctx, chatID, text, nil, 0)
	case constants.CommandHelp:
		c.reply(ctx, chatID, helpText(), nil, 0)
	case constants.CommandGetChatID:
		c.reply(ctx, chatID, fmt.Sprintf(constants.MsgChatID, chatID), nil, msg.MessageID)
	case constants.CommandSchedules:
		c.reply(ctx, chatID, messages.FormatScheduleList(c.scheduleItems(chatID)), nil, 0)
	case constants.CommandCancel:
		r := c.wizard.Cancel(wizard.Key{ChatID: chatID, UserID: userID})
		c.reply(ctx, chatID, r.Text, nil, msg.MessageID)
	case constants.CommandAddSchedule:
		r := c.wizard.Begin(wizard.Key{ChatID: chatID, UserID: userID})
		c.sendWizardReply(ctx, msg.Chat, msg.MessageID, r)
	case constants.CommandDeleteSchedule:
		c.deleteSchedule(ctx, msg, args)
	case constants.CommandDeleteAll:
		c.deleteAll(ctx, msg)
	case constants.CommandPollStart:
		c.startPoll(ctx, msg, args)
	case constants.CommandPollClose:
		c.closePoll(ctx, msg, args)
	case constants.CommandDebug:
		c.reply(ctx, chatID, messages.FormatDebug(c.admin.Debug(chatID)), nil, 0)
	default:
		c.logger.DebugCtx(ctx, "unknown command ignored",
			logger.Field{Key: "command", Value: command})
	}
}

func helpText() string {
	var b strings.Builder
	b.WriteString(constants.MsgHelpHeader)
	for _, cmd := range constants.CommandDescriptions {
		fmt.Fprintf(&b, constants.MsgHelpLine, cmd.Name, html.EscapeString(cmd.Description))
	}
	return b.String()
}

func (c *Connector) scheduleItems(chatID int64) []messages.ScheduleItem {
	list := c.admin.ListSchedules(chatID)
	items := make([]messages.ScheduleItem, len(list))
	for i, s := range list {
		items[i] = messages.ScheduleItem{Position: s.Position, Schedule: s.Schedule, Open: s.Open}
	}
	return items
}

// position parses the 1-based schedule number argument. On failure the
// usage hint is sent and ok is false.
func (c *Connector) position(ctx context.Context, msg *telego.Message, command string, args []string) (int, bool) {
	if len(args) == 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			return n, true
		}
	}
	c.reply(ctx, msg.Chat.ID, fmt.Sprintf(constants.MsgUsagePosition, command), nil, msg.MessageID)
	return 0, false
}

func (c *Connector) deleteSchedule(ctx context.Context, msg *telego.Message, args []string) {
	pos, ok := c.position(ctx, msg, constants.CommandDeleteSchedule, args)
	if !ok {
		return
	}

	removed, err := c.admin.DeleteSchedule(ctx, msg.Chat.ID, pos)
	if errors.Is(err, schedule.ErrOutOfRange) {
		c.reply(ctx, msg.Chat.ID, fmt.Sprintf(constants.MsgBadPosition, pos), nil, msg.MessageID)
		return
	}

	text := fmt.Sprintf(constants.MsgScheduleDeleted, html.EscapeString(removed.Name))
	c.reply(ctx, msg.Chat.ID, withFailure(text, err), nil, 0)
}

func (c *Connector) deleteAll(ctx context.Context, msg *telego.Message) {
	n, err := c.admin.DeleteAll(ctx, msg.Chat.ID)
	if n == 0 && err == nil {
		c.reply(ctx, msg.Chat.ID, constants.MsgNothingToClear, nil, 0)
		return
	}
	c.reply(ctx, msg.Chat.ID, withFailure(fmt.Sprintf(constants.MsgSchedulesCleared, n), err), nil, 0)
}

func (c *Connector) startPoll(ctx context.Context, msg *telego.Message, args []string) {
	pos, ok := c.position(ctx, msg, constants.CommandPollStart, args)
	if !ok {
		return
	}

	sc, _, err := c.admin.StartPoll(ctx, msg.Chat.ID, pos)
	name := html.EscapeString(sc.Name)
	switch {
	case err == nil:
		c.logger.InfoCtx(ctx, "poll started manually",
			logger.Field{Key: "chat_id", Value: msg.Chat.ID},
			logger.Field{Key: "schedule_id", Value: sc.ID})
	case errors.Is(err, schedule.ErrOutOfRange):
		c.reply(ctx, msg.Chat.ID, fmt.Sprintf(constants.MsgBadPosition, pos), nil, msg.MessageID)
	case errors.Is(err, poll.ErrAlreadyOpen):
		c.reply(ctx, msg.Chat.ID, fmt.Sprintf(constants.MsgPollAlreadyOpen, name), nil, msg.MessageID)
	default:
		c.reply(ctx, msg.Chat.ID, withFailure(fmt.Sprintf(constants.MsgPollStarted, name), err), nil, msg.MessageID)
	}
}

func (c *Connector) closePoll(ctx context.Context, msg *telego.Message, args []string) {
	pos, ok := c.position(ctx, msg, constants.CommandPollClose, args)
	if !ok {
		return
	}

	sc, _, err := c.admin.ClosePoll(ctx, msg.Chat.ID, pos)
	name := html.EscapeString(sc.Name)
	switch {
	case err == nil:
		c.logger.InfoCtx(ctx, "poll closed manually",
			logger.Field{Key: "chat_id", Value: msg.Chat.ID},
			logger.Field{Key: "schedule_id", Value: sc.ID})
	case errors.Is(err, schedule.ErrOutOfRange):
		c.reply(ctx, msg.Chat.ID, fmt.Sprintf(constants.MsgBadPosition, pos), nil, msg.MessageID)
	case errors.Is(err, poll.ErrPollNotFound):
		c.reply(ctx, msg.Chat.ID, fmt.Sprintf(constants.MsgPollNotOpen, name), nil, msg.MessageID)
	case errors.Is(err, poll.ErrCloseDeferred):
		c.reply(ctx, msg.Chat.ID, fmt.Sprintf(constants.MsgPollClosing, name), nil, msg.MessageID)
	default:
		c.reply(ctx, msg.Chat.ID, withFailure(fmt.Sprintf(constants.MsgPollCloseDone, name), err), nil, msg.MessageID)
	}
}

// withFailure appends the reason a partly successful operation did not
// fully complete.
func withFailure(text string, err error) string {
	switch {
	case err == nil:
		return text
	case errors.Is(err, schedule.ErrPersistence):
		return text + "\n" + fmt.Sprintf(constants.MsgPersistFailed, html.EscapeString(err.Error()))
	case errors.Is(err, poll.ErrTransport):
		return fmt.Sprintf(constants.MsgTransportFailed, html.EscapeString(err.Error()))
	default:
		return fmt.Sprintf(constants.MsgGenericError, html.EscapeString(err.Error()))
	}
}
