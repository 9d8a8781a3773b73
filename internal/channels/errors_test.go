package channels

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aatumaykin/pollbot/internal/poll"
	telegoapi "github.com/mymmrac/telego/telegoapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransportError_TelegramError(t *testing.T) {
	apiErr := &telegoapi.Error{
		ErrorCode:   429,
		Description: "Too Many Requests: retry after 7",
		Parameters:  &telegoapi.ResponseParameters{RetryAfter: 7},
	}
	err := NewTransportError("send", -100, fmt.Errorf("telego: sendMessage: %w", apiErr))

	assert.Equal(t, 429, err.ErrorCode)
	assert.Equal(t, 7, err.RetryAfterSec)
	assert.True(t, err.IsRetryable())
	assert.Equal(t, 7*time.Second, err.RetryAfter())
	assert.ErrorIs(t, err, poll.ErrTransport)
	assert.Contains(t, err.Error(), "telegram 429")

	var target *telegoapi.Error
	require.ErrorAs(t, err, &target)
	assert.Equal(t, apiErr, target)
}

func TestNewTransportError_Classification(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		desc        string
		retryable   bool
		retryAfter  time.Duration
		notModified bool
	}{
		{"forbidden", 403, "Forbidden: bot was kicked", false, 0, false},
		{"server error", 502, "Bad Gateway", true, 0, false},
		{"rate limited", 429, "Too Many Requests", true, 0, false},
		{"not modified", 400, "Bad Request: message is not modified: specified new message content", false, 0, true},
		{"bad request", 400, "Bad Request: chat not found", false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTransportError("edit", 1, &telegoapi.Error{ErrorCode: tt.code, Description: tt.desc})
			assert.Equal(t, tt.retryable, err.IsRetryable())
			assert.Equal(t, tt.retryAfter, err.RetryAfter())
			assert.Equal(t, tt.notModified, err.IsNotModified())
		})
	}
}

func TestNewTransportError_NetworkError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewTransportError("send", 5, cause)

	assert.Equal(t, 0, err.ErrorCode)
	assert.True(t, err.IsRetryable())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "send chat 5: dial tcp: connection refused", err.Error())
	assert.Len(t, err.LogFields(), 5)
}
