// Package telegram provides Telegram Bot integration using the Telego library.
// It publishes polls through the Bot API and routes incoming commands,
// wizard answers and button presses to the poll and admin services.
//
// Features:
//   - Long polling for receiving updates
//   - Admin checks through the config list and chat member status
//   - Optional chat whitelist
//   - Graceful shutdown handling
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aatumaykin/pollbot/internal/admin"
	"github.com/aatumaykin/pollbot/internal/config"
	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/wizard"
	"github.com/mymmrac/telego"
)

// Metrics counts handled button presses.
type Metrics interface {
	Interaction(kind, result string)
}

// Handlers are the services the connector routes updates to.
type Handlers struct {
	Admin  *admin.Service
	Polls  *poll.Manager
	Wizard *wizard.Wizard
}

// Connector represents the Telegram bot connector
type Connector struct {
	cfg     config.TelegramConfig
	logger  *logger.Logger
	bot     BotInterface
	admin   *admin.Service
	polls   *poll.Manager
	wizard  *wizard.Wizard
	metrics Metrics

	admins   map[int64]bool
	allowed  map[int64]bool
	username string

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	done     chan struct{}
}

// New creates a new Telegram connector
func New(cfg config.TelegramConfig, log *logger.Logger, bot BotInterface, h Handlers, metrics Metrics) *Connector {
	if log == nil {
		log = logger.Nop()
	}
	c := &Connector{
		cfg:     cfg,
		logger:  log.Component("telegram"),
		bot:     bot,
		admin:   h.Admin,
		polls:   h.Polls,
		wizard:  h.Wizard,
		metrics: metrics,
		admins:  make(map[int64]bool),
		allowed: make(map[int64]bool),
		ctx:     context.Background(),
	}
	for _, id := range cfg.AdminIDs() {
		c.admins[id] = true
	}
	for _, id := range cfg.AllowedChatIDs() {
		c.allowed[id] = true
	}
	return c
}

// Start checks the token, registers the command menu and starts long
// polling. It returns once polling is running.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("starting telegram connector")

	c.ctx, c.cancel = context.WithCancel(ctx)

	botUser, err := c.bot.GetMe(c.ctx)
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	c.username = botUser.Username

	c.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	if err := c.registerCommands(); err != nil {
		c.logger.ErrorCtx(c.ctx, "failed to register bot commands", err)
	}

	updates, err := c.bot.UpdatesViaLongPolling(c.ctx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.done = make(chan struct{})
	go c.poll(updates)

	return nil
}

// Stop gracefully stops the Telegram connector and waits for updates in
// progress.
func (c *Connector) Stop() error {
	c.logger.Info("stopping telegram connector")

	if c.cancel != nil {
		c.cancel()
	}
	if c.done != nil {
		<-c.done
	}
	c.inflight.Wait()

	c.logger.Info("telegram connector stopped gracefully")
	return nil
}

func (c *Connector) poll(updates <-chan telego.Update) {
	defer close(c.done)
	c.logger.Info("starting long polling for telegram updates")

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("long polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return
			}
			c.inflight.Add(1)
			go func() {
				defer c.inflight.Done()
				c.handleUpdate(c.ctx, update)
			}()
		}
	}
}

// registerCommands registers bot commands with Telegram
func (c *Connector) registerCommands() error {
	commands := make([]telego.BotCommand, 0, len(constants.CommandDescriptions))
	for _, cmd := range constants.CommandDescriptions {
		commands = append(commands, telego.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}

	if err := c.bot.SetMyCommands(c.ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	c.logger.Info("bot commands registered successfully",
		logger.Field{Key: "count", Value: len(commands)})
	return nil
}

func (c *Connector) handleUpdate(ctx context.Context, update telego.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorCtx(ctx, "panic while handling update", fmt.Errorf("%v", r),
				logger.Field{Key: "update_id", Value: update.UpdateID})
		}
	}()

	switch {
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	}
}

func (c *Connector) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}
	if !c.isAllowedChat(msg.Chat.ID) {
		c.logger.WarnCtx(ctx, "message from chat outside whitelist ignored",
			logger.Field{Key: "chat_id", Value: msg.Chat.ID},
			logger.Field{Key: "user_id", Value: msg.From.ID})
		return
	}

	if cmd, args, ok := parseCommand(msg.Text); ok {
		if mention := commandMention(msg.Text); mention != "" && c.username != "" && !strings.EqualFold(mention, c.username) {
			return
		}
		c.handleCommand(ctx, msg, cmd, args)
		return
	}

	key := wizard.Key{ChatID: msg.Chat.ID, UserID: msg.From.ID}
	if reply, ok := c.wizard.Input(ctx, key, msg.Text); ok {
		c.sendWizardReply(ctx, msg.Chat, msg.MessageID, reply)
	}
}

// isAllowedChat checks the chat against the whitelist. An empty whitelist
// allows every chat.
func (c *Connector) isAllowedChat(chatID int64) bool {
	if len(c.allowed) == 0 {
		return true
	}
	return c.allowed[chatID]
}

// isAdmin reports whether a user may manage schedules in chat: configured
// admins everywhere, anybody in a private chat, and chat owners and
// administrators in groups.
func (c *Connector) isAdmin(ctx context.Context, chat telego.Chat, userID int64) bool {
	if c.admins[userID] {
		return true
	}
	if chat.Type == telego.ChatTypePrivate {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout())
	defer cancel()

	member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: chat.ID},
		UserID: userID,
	})
	if err != nil {
		c.logger.ErrorCtx(ctx, "failed to get chat member", err,
			logger.Field{Key: "chat_id", Value: chat.ID},
			logger.Field{Key: "user_id", Value: userID})
		return false
	}

	switch member.MemberStatus() {
	case telego.MemberStatusCreator, telego.MemberStatusAdministrator:
		return true
	default:
		return false
	}
}

// reply sends an HTML message. replyTo is the message to answer, or 0.
func (c *Connector) reply(ctx context.Context, chatID int64, text string, markup telego.ReplyMarkup, replyTo int) {
	params := &telego.SendMessageParams{
		ChatID:             telego.ChatID{ID: chatID},
		Text:               text,
		ParseMode:          telego.ModeHTML,
		ReplyMarkup:        markup,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	}
	if replyTo != 0 {
		params.ReplyParameters = &telego.ReplyParameters{MessageID: replyTo, AllowSendingWithoutReply: true}
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout())
	defer cancel()

	if _, err := c.bot.SendMessage(sendCtx, params); err != nil {
		c.logger.ErrorCtx(ctx, "failed to send reply", err,
			logger.Field{Key: "chat_id", Value: chatID})
	}
}

// sendWizardReply sends a wizard question. Questions without buttons force
// a reply, so the answer reaches the bot in groups with privacy mode on.
func (c *Connector) sendWizardReply(ctx context.Context, chat telego.Chat, replyTo int, r wizard.Reply) {
	var markup telego.ReplyMarkup
	switch {
	case len(r.Keyboard) > 0:
		markup = buildInlineKeyboard(r.Keyboard)
	case !r.Done && chat.Type != telego.ChatTypePrivate:
		markup = &telego.ForceReply{ForceReply: true, Selective: replyTo != 0}
	}
	c.reply(ctx, chat.ID, r.Text, markup, replyTo)
}

func (c *Connector) answerCallback(ctx context.Context, id, text string) {
	timeout := time.Duration(c.cfg.AnswerCallbackTimeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
	}); err != nil {
		c.logger.ErrorCtx(ctx, "failed to answer callback query", err,
			logger.Field{Key: "callback_query_id", Value: id})
	}
}
