package poll

import "context"

// MessageRef identifies a published message inside a chat.
type MessageRef struct {
	MessageID int
}

// Button is an inline control. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is a grid of buttons, row by row.
type Keyboard [][]Button

// Content is a rendered message.
type Content struct {
	Text     string
	Keyboard Keyboard
}

// Gateway publishes poll messages to the chat platform.
type Gateway interface {
	SendContent(ctx context.Context, chatID int64, content Content) (MessageRef, error)
	EditContent(ctx context.Context, chatID int64, ref MessageRef, content Content) error
	StripControls(ctx context.Context, chatID int64, ref MessageRef) error
}

// Renderer turns poll state into message content.
type Renderer interface {
	RenderPoll(view View) Content
	RenderSummary(summary Summary) Content
}

// Observer receives lifecycle events, typically for metrics.
type Observer interface {
	PollOpened(chatID int64)
	PollClosed(chatID int64)
	VoteRecorded(option Option)
	VoteReset()
	GatewayFailure(op string)
	ActivePolls(n int)
}

type nopObserver struct{}

func (nopObserver) PollOpened(int64)      {}
func (nopObserver) PollClosed(int64)      {}
func (nopObserver) VoteRecorded(Option)   {}
func (nopObserver) VoteReset()            {}
func (nopObserver) GatewayFailure(string) {}
func (nopObserver) ActivePolls(int)       {}
