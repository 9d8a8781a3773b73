package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aatumaykin/pollbot/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Storage.SchedulesPath = "/var/lib/pollbot/schedules.yaml"
	cfg.Telegram.Enabled = true
	cfg.Telegram.Token = "123456789:ABCdefGHIjklMNOpqrSTUvwxYZ"
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	tests := []struct {
		name string
		want any
		got  any
	}{
		{"scheduler timezone", constants.DefaultTimezone, cfg.Scheduler.Timezone},
		{"scheduler tick", constants.DefaultTickSeconds, cfg.Scheduler.TickSeconds},
		{"send timeout", constants.DefaultSendTimeoutSeconds, cfg.Telegram.SendTimeoutSeconds},
		{"send attempts", constants.DefaultSendAttempts, cfg.Telegram.SendAttempts},
		{"callback timeout", constants.DefaultAnswerCallbackTimeout, cfg.Telegram.AnswerCallbackTimeout},
		{"wizard ttl", constants.DefaultWizardTTLMinutes, cfg.Telegram.WizardTTLMinutes},
		{"logging level", "info", cfg.Logging.Level},
		{"logging format", "json", cfg.Logging.Format},
		{"logging output", "stdout", cfg.Logging.Output},
		{"http listen", constants.DefaultHTTPListen, cfg.HTTP.Listen},
		{"failure threshold", constants.DefaultFailureThreshold, cfg.Health.FailureThreshold},
		{"metrics namespace", constants.DefaultMetricsNamespace, cfg.Metrics.Namespace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.False(t, strings.HasPrefix(cfg.Storage.SchedulesPath, "~"), "home directory is expanded")
	assert.True(t, strings.HasSuffix(cfg.Storage.SchedulesPath, filepath.Join(".pollbot", "schedules.yaml")))
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:   "telegram disabled without token",
			mutate: func(c *Config) { c.Telegram.Enabled = false; c.Telegram.Token = "" },
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Telegram.Token = "" },
			wantErr: "telegram.token is required",
		},
		{
			name:    "malformed token",
			mutate:  func(c *Config) { c.Telegram.Token = "not-a-token-at-all" },
			wantErr: "invalid format",
		},
		{
			name:    "bot id with letters",
			mutate:  func(c *Config) { c.Telegram.Token = "12a456:ABCdefGHIjklMNOpqr" },
			wantErr: "digits only",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" },
			wantErr: "scheduler.timezone",
		},
		{
			name:    "tick too long",
			mutate:  func(c *Config) { c.Scheduler.TickSeconds = 120 },
			wantErr: "tick_seconds",
		},
		{
			name:    "no send attempts",
			mutate:  func(c *Config) { c.Telegram.SendAttempts = -1 },
			wantErr: "send_attempts",
		},
		{
			name:    "admin not a number",
			mutate:  func(c *Config) { c.Telegram.Admins = []string{"alice"} },
			wantErr: "telegram.admins",
		},
		{
			name:    "chat not a number",
			mutate:  func(c *Config) { c.Telegram.AllowedChats = []string{"-100x"} },
			wantErr: "telegram.allowed_chats",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "path traversal",
			mutate:  func(c *Config) { c.Storage.SchedulesPath = "/data/../etc/passwd" },
			wantErr: "path traversal",
		},
		{
			name:    "bad listen address",
			mutate:  func(c *Config) { c.HTTP.Enabled = true; c.HTTP.Listen = "localhost" },
			wantErr: "http.listen",
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.Health.FailureThreshold = 0 },
			wantErr: "failure_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "expected an error containing %q, got %v", tt.wantErr, errs)
		})
	}
}

func TestValidateTokenMasksSecret(t *testing.T) {
	err := validateTelegramToken("verysecrettokenvalue")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "verysecrettokenvalue")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "telegram.token", verr.Field)
}

func TestLoad(t *testing.T) {
	t.Setenv("POLLBOT_TEST_TOKEN", "123456789:ABCdefGHIjklMNOpqrSTUvwxYZ")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[storage]
schedules_path = "/tmp/pollbot/schedules.yaml"

[scheduler]
timezone = "${POLLBOT_TEST_TZ:Asia/Tokyo}"

[telegram]
enabled = true
token = "${POLLBOT_TEST_TOKEN}"
admins = ["42"]
allowed_chats = ["-1001", "-1002"]

[http]
enabled = true
listen = "0.0.0.0:8080"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pollbot/schedules.yaml", cfg.Storage.SchedulesPath)
	assert.Equal(t, "Asia/Tokyo", cfg.Scheduler.Timezone)
	assert.Equal(t, "123456789:ABCdefGHIjklMNOpqrSTUvwxYZ", cfg.Telegram.Token)
	assert.Equal(t, []int64{42}, cfg.Telegram.AdminIDs())
	assert.Equal(t, []int64{-1001, -1002}, cfg.Telegram.AllowedChatIDs())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Listen)
	assert.Equal(t, constants.DefaultTickSeconds, cfg.Scheduler.TickSeconds)
	assert.Empty(t, cfg.Validate())

	loc, err := cfg.Scheduler.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Parse([]byte("[storage\nbroken"))
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("POLLBOT_SET", "value")

	assert.Equal(t, "value", expandEnv("${POLLBOT_SET}"))
	assert.Equal(t, "value", expandEnv("${POLLBOT_SET:fallback}"))
	assert.Equal(t, "fallback", expandEnv("${POLLBOT_UNSET_VAR:fallback}"))
	assert.Equal(t, "", expandEnv("${POLLBOT_UNSET_VAR}"))
	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "${BROKEN", expandEnv("${BROKEN"))
}

func TestMaskTelegramToken(t *testing.T) {
	assert.Equal(t, "", MaskTelegramToken(""))
	assert.True(t, strings.HasPrefix(MaskTelegramToken("123456789:ABCdefGHIjklMNOpqrSTUvWxYZ"), "123456789:ABCd*"))
	assert.NotContains(t, MaskTelegramToken("123456789:ABCdefGHIjklMNOpqrSTUvWxYZ"), "GHIjkl")
	assert.Equal(t, "***", MaskTelegramToken("short"))
}
