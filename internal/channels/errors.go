// Package channels holds transport-neutral pieces shared by chat connectors.
package channels

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	telegoapi "github.com/mymmrac/telego/telegoapi"
)

// TransportError - детализация ошибки обращения к API мессенджера.
// Оборачивает poll.ErrTransport, поэтому errors.Is(err, poll.ErrTransport)
// срабатывает для любой ошибки канала.
type TransportError struct {
	Op            string // Операция шлюза (send, edit, strip)
	ChatID        int64  // ID чата
	ErrorCode     int    // Код ошибки (400, 429, 403 и т.д.), 0 если ответа не было
	Description   string // Описание ошибки от API
	RetryAfterSec int    // Задержка в секундах (для rate limiting)
	Timestamp     time.Time
	Err           error
}

// NewTransportError классифицирует ошибку запроса к Telegram
func NewTransportError(op string, chatID int64, err error) *TransportError {
	te := &TransportError{
		Op:        op,
		ChatID:    chatID,
		Timestamp: time.Now(),
		Err:       err,
	}

	var telErr *telegoapi.Error
	if errors.As(err, &telErr) {
		te.ErrorCode = telErr.ErrorCode
		te.Description = telErr.Description
		if telErr.Parameters != nil {
			te.RetryAfterSec = telErr.Parameters.RetryAfter
		}
	} else if err != nil {
		te.Description = err.Error()
	}

	return te
}

// Error возвращает текстовое описание ошибки
func (e *TransportError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("%s chat %d: telegram %d: %s", e.Op, e.ChatID, e.ErrorCode, e.Description)
	}
	return fmt.Sprintf("%s chat %d: %s", e.Op, e.ChatID, e.Description)
}

// Unwrap exposes both poll.ErrTransport and the underlying error.
func (e *TransportError) Unwrap() []error {
	return []error{poll.ErrTransport, e.Err}
}

// IsRetryable проверяет, можно ли повторить запрос
func (e *TransportError) IsRetryable() bool {
	// Rate limiting (429), временные ошибки и сетевые сбои можно повторить
	return e.ErrorCode == 0 || e.ErrorCode == 429 || (e.ErrorCode >= 500 && e.ErrorCode < 600)
}

// RetryAfter возвращает задержку, которую потребовал Telegram, или 0
func (e *TransportError) RetryAfter() time.Duration {
	if e.RetryAfterSec > 0 {
		return time.Duration(e.RetryAfterSec) * time.Second
	}
	return 0
}

// IsNotModified reports Telegram's refusal to apply an edit that changes
// nothing.
func (e *TransportError) IsNotModified() bool {
	return e.ErrorCode == 400 && strings.Contains(strings.ToLower(e.Description), "message is not modified")
}

// LogFields возвращает поля для структурированного логирования
func (e *TransportError) LogFields() []logger.Field {
	return []logger.Field{
		{Key: "op", Value: e.Op},
		{Key: "chat_id", Value: e.ChatID},
		{Key: "error_code", Value: e.ErrorCode},
		{Key: "error_description", Value: e.Description},
		{Key: "retry_after", Value: e.RetryAfterSec},
	}
}
