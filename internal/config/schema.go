// Package config provides configuration loading and validation for pollbot.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [storage]: schedule file location
//   - [scheduler]: default timezone and tick interval
//   - [telegram]: bot token, admins and request timeouts
//   - [logging]: logging level, format, and output
//   - [http]: health, metrics and admin HTTP server
//   - [health]: gateway failure threshold
//   - [metrics]: Prometheus namespace
//
// Environment variables:
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: token = "${TELEGRAM_BOT_TOKEN}"
package config

import "time"

// Config represents the main application configuration.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Telegram  TelegramConfig  `toml:"telegram"`
	Logging   LoggingConfig   `toml:"logging"`
	HTTP      HTTPConfig      `toml:"http"`
	Health    HealthConfig    `toml:"health"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// StorageConfig представляет конфигурацию хранилища расписаний
type StorageConfig struct {
	SchedulesPath string `toml:"schedules_path"`
}

// SchedulerConfig представляет конфигурацию планировщика
type SchedulerConfig struct {
	Timezone    string `toml:"timezone"`
	TickSeconds int    `toml:"tick_seconds"`
}

// Location возвращает часовой пояс планировщика
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// TickInterval возвращает интервал проверки задач
func (c SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// TelegramConfig представляет конфигурацию Telegram канала
type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	// Admins may manage schedules in any chat. Chat administrators may
	// always manage their own chat.
	Admins []string `toml:"admins"`
	// AllowedChats limits the chats the bot serves. Empty means all.
	AllowedChats          []string `toml:"allowed_chats"`
	SendTimeoutSeconds    int      `toml:"send_timeout_seconds"`
	SendAttempts          int      `toml:"send_attempts"`
	AnswerCallbackTimeout int      `toml:"answer_callback_timeout"`
	QuietMode             bool     `toml:"quiet_mode"`
	WizardTTLMinutes      int      `toml:"wizard_ttl_minutes"`
}

// SendTimeout возвращает таймаут одного запроса к Telegram
func (c TelegramConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// HTTPConfig представляет конфигурацию HTTP сервера
type HTTPConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// HealthConfig представляет конфигурацию проверки здоровья
type HealthConfig struct {
	FailureThreshold int `toml:"failure_threshold"`
}

// MetricsConfig представляет конфигурацию метрик
type MetricsConfig struct {
	Namespace string `toml:"namespace"`
}
