package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aatumaykin/pollbot/internal/constants"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse разбирает конфигурацию из TOML, применяет значения по умолчанию
// и раскрывает переменные окружения
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandEnvVars(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults устанавливает значения по умолчанию
func applyDefaults(c *Config) {
	if c.Storage.SchedulesPath == "" {
		c.Storage.SchedulesPath = constants.DefaultSchedulesPath
	}

	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = constants.DefaultTimezone
	}
	if c.Scheduler.TickSeconds == 0 {
		c.Scheduler.TickSeconds = constants.DefaultTickSeconds
	}

	if c.Telegram.SendTimeoutSeconds == 0 {
		c.Telegram.SendTimeoutSeconds = constants.DefaultSendTimeoutSeconds
	}
	if c.Telegram.SendAttempts == 0 {
		c.Telegram.SendAttempts = constants.DefaultSendAttempts
	}
	if c.Telegram.AnswerCallbackTimeout == 0 {
		c.Telegram.AnswerCallbackTimeout = constants.DefaultAnswerCallbackTimeout
	}
	if c.Telegram.WizardTTLMinutes == 0 {
		c.Telegram.WizardTTLMinutes = constants.DefaultWizardTTLMinutes
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = constants.DefaultHTTPListen
	}

	if c.Health.FailureThreshold == 0 {
		c.Health.FailureThreshold = constants.DefaultFailureThreshold
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = constants.DefaultMetricsNamespace
	}

	c.Storage.SchedulesPath = expandHome(c.Storage.SchedulesPath)
}

// expandEnvVars раскрывает ${VAR} и ${VAR:default} в строковых полях
func expandEnvVars(c *Config) {
	c.Storage.SchedulesPath = expandEnv(c.Storage.SchedulesPath)
	c.Scheduler.Timezone = expandEnv(c.Scheduler.Timezone)
	c.Telegram.Token = expandEnv(c.Telegram.Token)
	c.Logging.Level = expandEnv(c.Logging.Level)
	c.Logging.Output = expandEnv(c.Logging.Output)
	c.HTTP.Listen = expandEnv(c.HTTP.Listen)

	for i, v := range c.Telegram.Admins {
		c.Telegram.Admins[i] = expandEnv(v)
	}
	for i, v := range c.Telegram.AllowedChats {
		c.Telegram.AllowedChats[i] = expandEnv(v)
	}
}

func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(content)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
