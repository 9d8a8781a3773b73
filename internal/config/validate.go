package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errors []error

	if c.Storage.SchedulesPath == "" {
		errors = append(errors, fmt.Errorf("storage.schedules_path is required"))
	} else if err := validatePath(c.Storage.SchedulesPath, "storage.schedules_path"); err != nil {
		errors = append(errors, err)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("invalid scheduler.timezone: %s", c.Scheduler.Timezone))
	}
	if c.Scheduler.TickSeconds < 1 || c.Scheduler.TickSeconds > 60 {
		errors = append(errors, fmt.Errorf("scheduler.tick_seconds must be between 1 and 60, got %d", c.Scheduler.TickSeconds))
	}

	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
	}
	for _, id := range c.Telegram.Admins {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			errors = append(errors, fmt.Errorf("telegram.admins contains invalid user ID: %q", id))
		}
	}
	for _, id := range c.Telegram.AllowedChats {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			errors = append(errors, fmt.Errorf("telegram.allowed_chats contains invalid chat ID: %q", id))
		}
	}
	if c.Telegram.SendTimeoutSeconds < 1 {
		errors = append(errors, fmt.Errorf("telegram.send_timeout_seconds must be positive"))
	}
	if c.Telegram.SendAttempts < 1 || c.Telegram.SendAttempts > 10 {
		errors = append(errors, fmt.Errorf("telegram.send_attempts must be between 1 and 10, got %d", c.Telegram.SendAttempts))
	}
	if c.Telegram.AnswerCallbackTimeout < 1 {
		errors = append(errors, fmt.Errorf("telegram.answer_callback_timeout must be positive"))
	}

	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	if c.HTTP.Enabled {
		if _, _, err := net.SplitHostPort(c.HTTP.Listen); err != nil {
			errors = append(errors, fmt.Errorf("invalid http.listen: %s", c.HTTP.Listen))
		}
	}

	if c.Health.FailureThreshold < 1 {
		errors = append(errors, fmt.Errorf("health.failure_threshold must be positive"))
	}

	return errors
}

// AdminIDs возвращает ID глобальных администраторов
func (c TelegramConfig) AdminIDs() []int64 {
	return parseIDs(c.Admins)
}

// AllowedChatIDs возвращает ID разрешённых чатов
func (c TelegramConfig) AllowedChatIDs() []int64 {
	return parseIDs(c.AllowedChats)
}

func parseIDs(values []string) []int64 {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func validateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram token cannot be empty")
	}

	botID, botToken, ok := strings.Cut(token, ":")
	if !ok || strings.Contains(botToken, ":") {
		return formatValidationError("telegram.token", "invalid format (expected format: <bot_id>:<token>)", token)
	}

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}

	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}
