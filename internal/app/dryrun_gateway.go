package app

import (
	"context"
	"sync/atomic"

	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
)

// dryRunGateway logs poll messages instead of sending them. It is used when
// the Telegram connector is disabled.
type dryRunGateway struct {
	logger *logger.Logger
	nextID atomic.Int64
}

var _ poll.Gateway = (*dryRunGateway)(nil)

func newDryRunGateway(log *logger.Logger) *dryRunGateway {
	return &dryRunGateway{logger: log.Component("dry_run_gateway")}
}

func (g *dryRunGateway) SendContent(ctx context.Context, chatID int64, content poll.Content) (poll.MessageRef, error) {
	ref := poll.MessageRef{MessageID: int(g.nextID.Add(1))}
	g.logger.InfoCtx(ctx, "message sent",
		logger.Field{Key: "chat_id", Value: chatID},
		logger.Field{Key: "message_id", Value: ref.MessageID},
		logger.Field{Key: "buttons", Value: countButtons(content.Keyboard)},
		logger.Field{Key: "text", Value: content.Text})
	return ref, nil
}

func (g *dryRunGateway) EditContent(ctx context.Context, chatID int64, ref poll.MessageRef, content poll.Content) error {
	g.logger.InfoCtx(ctx, "message edited",
		logger.Field{Key: "chat_id", Value: chatID},
		logger.Field{Key: "message_id", Value: ref.MessageID},
		logger.Field{Key: "text", Value: content.Text})
	return nil
}

func (g *dryRunGateway) StripControls(ctx context.Context, chatID int64, ref poll.MessageRef) error {
	g.logger.InfoCtx(ctx, "message buttons removed",
		logger.Field{Key: "chat_id", Value: chatID},
		logger.Field{Key: "message_id", Value: ref.MessageID})
	return nil
}

func countButtons(kb poll.Keyboard) int {
	n := 0
	for _, row := range kb {
		n += len(row)
	}
	return n
}
