package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout. Package flag
// variables and "changed" marks are reset first because cobra keeps them
// between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	scheduleConfigPath, scheduleFilePath, scheduleChatID = "", "", 0
	addName, addStartDay, addStartTime, addEndDay, addEndTime, addTimezone = "", "", "", "", "", ""
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestCommandStructure(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "version", "config", "schedule"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	sub := map[string]bool{}
	for _, c := range scheduleCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.Equal(t, map[string]bool{"list": true, "add": true, "delete": true, "clear": true}, sub)
}

func TestServeFlags(t *testing.T) {
	serveConfigPath, serveLogLevel = "", ""
	require.NoError(t, serveCmd.ParseFlags([]string{"-c", "test.toml", "--log-level", "debug"}))
	assert.Equal(t, "test.toml", serveConfigPath)
	assert.Equal(t, "debug", serveLogLevel)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: ")
	assert.Contains(t, out, "Go Version: go")
}

func TestScheduleAddListDeleteClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")

	out, err := execute(t, "schedule", "add", "-f", path, "--chat", "-100",
		"--name", "Training", "--start-day", "вт", "--start-time", "12:00",
		"--end-day", "wednesday", "--end-time", "18:00")
	require.NoError(t, err)
	assert.Contains(t, out, `"Training" added to chat -100 as #1`)

	_, err = execute(t, "schedule", "add", "-f", path, "--chat", "-200",
		"--name", "Games", "--start-day", "4", "--start-time", "9:30",
		"--end-day", "5", "--end-time", "10:00", "--timezone", "Asia/Tokyo")
	require.NoError(t, err)

	out, err = execute(t, "schedule", "list", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Chat -200:")
	assert.Contains(t, out, "Chat -100:")
	assert.Contains(t, out, "open:  Tuesday 12:00")
	assert.Contains(t, out, "close: Saturday 10:00")
	assert.Contains(t, out, "timezone: Asia/Tokyo")

	out, err = execute(t, "schedule", "list", "-f", path, "--chat", "-100")
	require.NoError(t, err)
	assert.Contains(t, out, "Training")
	assert.NotContains(t, out, "Games")

	stored, err := schedule.NewFile(path, logger.Nop()).Read()
	require.NoError(t, err)
	require.Len(t, stored[-100], 1)
	assert.NotEmpty(t, stored[-100][0].ID)

	out, err = execute(t, "schedule", "delete", "-f", path, "--chat", "-100", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"Training" removed`)

	_, err = execute(t, "schedule", "delete", "-f", path, "--chat", "-100", "1")
	assert.ErrorIs(t, err, schedule.ErrOutOfRange)

	out, err = execute(t, "schedule", "clear", "-f", path, "--chat", "-200")
	require.NoError(t, err)
	assert.Contains(t, out, "1 schedule(s) removed")

	out, err = execute(t, "schedule", "list", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No schedules in")
}

func TestScheduleAddRejectsInvalidInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")

	_, err := execute(t, "schedule", "add", "-f", path, "--chat", "1",
		"--name", "x", "--start-day", "someday", "--start-time", "12:00",
		"--end-day", "wed", "--end-time", "18:00")
	require.Error(t, err)

	_, err = execute(t, "schedule", "add", "-f", path, "--chat", "1",
		"--name", "x", "--start-day", "tue", "--start-time", "12:00",
		"--end-day", "tue", "--end-time", "12:00")
	require.Error(t, err)

	_, err = execute(t, "schedule", "add", "-f", path, "--chat", "1", "--name", "x")
	require.Error(t, err, "required flags")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written")
}

func TestScheduleRefusesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	_, err := execute(t, "schedule", "clear", "-f", path, "--chat", "1")
	require.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "{not yaml", string(data))
}

func TestScheduleUsesConfigStoragePath(t *testing.T) {
	dir := t.TempDir()
	schedules := filepath.Join(dir, "from-config.yaml")
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[storage]\nschedules_path = \""+schedules+"\"\n"), 0o600))

	_, err := execute(t, "schedule", "add", "-c", cfgPath, "--chat", "5",
		"--name", "Run", "--start-day", "mon", "--start-time", "07:00",
		"--end-day", "mon", "--end-time", "09:00")
	require.NoError(t, err)

	_, err = os.Stat(schedules)
	assert.NoError(t, err)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.toml")
	require.NoError(t, os.WriteFile(valid, []byte(`
[storage]
schedules_path = "`+filepath.Join(dir, "s.yaml")+`"

[telegram]
enabled = false
`), 0o600))

	out, err := execute(t, "config", "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration loaded")

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte(`
[scheduler]
timezone = "Nowhere/City"
`), 0o600))

	_, err = execute(t, "config", "validate", invalid)
	assert.Error(t, err)

	_, err = execute(t, "config", "validate", filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
