package telegram

import (
	"context"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/mock"
)

// MockBot is a mock implementation of BotInterface for testing.
// It uses testify/mock to record and verify method calls.
type MockBot struct {
	mock.Mock
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.User), args.Error(1)
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if fn, ok := args.Get(0).(func(context.Context, *telego.SendMessageParams) *telego.Message); ok {
		return fn(ctx, params), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

func (m *MockBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

func (m *MockBot) EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*telego.Message), args.Error(1)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(telego.ChatMember), args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, opts ...telego.LongPollingOption) (<-chan telego.Update, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(chan telego.Update), args.Error(1)
}

// NewMockBotSuccess returns a MockBot on which every request succeeds.
// Sent messages get increasing IDs starting at 1000.
func NewMockBotSuccess() *MockBot {
	m := &MockBot{}
	next := 1000
	m.On("SendMessage", mock.Anything, mock.Anything).Return(func(_ context.Context, _ *telego.SendMessageParams) *telego.Message {
		next++
		return &telego.Message{MessageID: next}
	}, nil).Maybe()
	m.On("EditMessageText", mock.Anything, mock.Anything).Return(&telego.Message{}, nil).Maybe()
	m.On("EditMessageReplyMarkup", mock.Anything, mock.Anything).Return(&telego.Message{}, nil).Maybe()
	m.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SetMyCommands", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// sentTexts returns the text of every SendMessage call in order.
func (m *MockBot) sentTexts() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "SendMessage" {
			out = append(out, call.Arguments.Get(1).(*telego.SendMessageParams).Text)
		}
	}
	return out
}

// lastSent returns the parameters of the latest SendMessage call.
func (m *MockBot) lastSent() *telego.SendMessageParams {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "SendMessage" {
			return m.Calls[i].Arguments.Get(1).(*telego.SendMessageParams)
		}
	}
	return nil
}

// answers returns the text of every AnswerCallbackQuery call in order.
func (m *MockBot) answers() []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == "AnswerCallbackQuery" {
			out = append(out, call.Arguments.Get(1).(*telego.AnswerCallbackQueryParams).Text)
		}
	}
	return out
}
