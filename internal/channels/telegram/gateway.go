package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/aatumaykin/pollbot/internal/channels"
	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/retry"
	"github.com/mymmrac/telego"
)

// GatewayMetrics observes every Telegram request made for a poll.
type GatewayMetrics interface {
	ObserveGateway(op string, ok bool, d time.Duration)
}

// Gateway publishes poll messages through the Bot API. Every request gets
// its own timeout derived from the caller's context.
type Gateway struct {
	bot     BotInterface
	timeout time.Duration
	retry   retry.Config
	quiet   bool
	logger  *logger.Logger
	metrics GatewayMetrics
}

var _ poll.Gateway = (*Gateway)(nil)

// GatewayConfig holds Gateway settings.
type GatewayConfig struct {
	Timeout   time.Duration
	QuietMode bool
	Logger    *logger.Logger
	Metrics   GatewayMetrics

	// Attempts is the number of tries for a rate-limited or failed
	// request. Zero means a single try.
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NewGateway creates a Gateway for bot.
func NewGateway(bot BotInterface, cfg GatewayConfig) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	g := &Gateway{
		bot:     bot,
		timeout: cfg.Timeout,
		quiet:   cfg.QuietMode,
		logger:  cfg.Logger.Component("telegram_gateway"),
		metrics: cfg.Metrics,
	}
	g.retry = retry.Config{
		MaxAttempts:    cfg.Attempts,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
	}
	return g
}

// SendContent posts a new HTML message.
func (g *Gateway) SendContent(ctx context.Context, chatID int64, content poll.Content) (poll.MessageRef, error) {
	params := &telego.SendMessageParams{
		ChatID:              telego.ChatID{ID: chatID},
		Text:                content.Text,
		ParseMode:           telego.ModeHTML,
		DisableNotification: g.quiet,
		LinkPreviewOptions:  &telego.LinkPreviewOptions{IsDisabled: true},
	}
	if markup := buildInlineKeyboard(content.Keyboard); markup != nil {
		params.ReplyMarkup = markup
	}

	var msg *telego.Message
	err := g.do(ctx, poll.OpSend, chatID, func(ctx context.Context) error {
		var err error
		msg, err = g.bot.SendMessage(ctx, params)
		return err
	})
	if err != nil {
		return poll.MessageRef{}, err
	}
	return poll.MessageRef{MessageID: msg.MessageID}, nil
}

// EditContent replaces the text and keyboard of a message. An edit that
// changes nothing is not an error.
func (g *Gateway) EditContent(ctx context.Context, chatID int64, ref poll.MessageRef, content poll.Content) error {
	params := &telego.EditMessageTextParams{
		ChatID:             telego.ChatID{ID: chatID},
		MessageID:          ref.MessageID,
		Text:               content.Text,
		ParseMode:          telego.ModeHTML,
		ReplyMarkup:        buildInlineKeyboard(content.Keyboard),
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	}
	return g.do(ctx, poll.OpEdit, chatID, func(ctx context.Context) error {
		_, err := g.bot.EditMessageText(ctx, params)
		return err
	})
}

// StripControls removes the inline keyboard of a message.
func (g *Gateway) StripControls(ctx context.Context, chatID int64, ref poll.MessageRef) error {
	params := &telego.EditMessageReplyMarkupParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: ref.MessageID,
	}
	return g.do(ctx, poll.OpStrip, chatID, func(ctx context.Context) error {
		_, err := g.bot.EditMessageReplyMarkup(ctx, params)
		return err
	})
}

func (g *Gateway) do(ctx context.Context, op string, chatID int64, call func(ctx context.Context) error) error {
	cfg := g.retry
	cfg.Retryable = func(err error) bool { return shouldRetry(op, err) }
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		g.logger.WarnCtx(ctx, "retrying telegram request",
			logger.Field{Key: "op", Value: op},
			logger.Field{Key: "chat_id", Value: chatID},
			logger.Field{Key: "attempt", Value: attempt},
			logger.Field{Key: "wait", Value: wait.String()},
			logger.Field{Key: "error", Value: err.Error()})
	}

	start := time.Now()
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		err := call(ctx)
		if err == nil {
			return nil
		}
		terr := channels.NewTransportError(op, chatID, err)
		if terr.IsNotModified() {
			return nil
		}
		return terr
	})
	if err != nil {
		fields := []logger.Field{{Key: "op", Value: op}, {Key: "chat_id", Value: chatID}}
		var terr *channels.TransportError
		if errors.As(err, &terr) {
			fields = terr.LogFields()
		}
		g.logger.ErrorCtx(ctx, "telegram request failed", err, fields...)
	}
	if g.metrics != nil {
		g.metrics.ObserveGateway(op, err == nil, time.Since(start))
	}
	return err
}

// shouldRetry retries rate limits and server errors for every operation.
// A request that got no response may still have been delivered, so it is
// retried only for edits.
func shouldRetry(op string, err error) bool {
	var terr *channels.TransportError
	if !errors.As(err, &terr) || !terr.IsRetryable() {
		return false
	}
	if terr.ErrorCode == 0 {
		return op != poll.OpSend && !errors.Is(err, context.Canceled)
	}
	return true
}

// buildInlineKeyboard converts a poll.Keyboard to Telegram's InlineKeyboardMarkup format
func buildInlineKeyboard(keyboard poll.Keyboard) *telego.InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}

	markup := &telego.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telego.InlineKeyboardButton, 0, len(keyboard)),
	}

	for _, row := range keyboard {
		if len(row) == 0 {
			continue
		}
		buttons := make([]telego.InlineKeyboardButton, len(row))
		for j, button := range row {
			buttons[j] = telego.InlineKeyboardButton{
				Text:         button.Text,
				CallbackData: button.Data,
				URL:          button.URL,
			}
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}

	return markup
}
