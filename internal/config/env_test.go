package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `
# Comment line
POLLBOT_ENV_KEY1=value1
POLLBOT_ENV_KEY2="value with spaces"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Cleanup(func() {
		os.Unsetenv("POLLBOT_ENV_KEY1")
		os.Unsetenv("POLLBOT_ENV_KEY2")
	})

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "value1", os.Getenv("POLLBOT_ENV_KEY1"))
	assert.Equal(t, "value with spaces", os.Getenv("POLLBOT_ENV_KEY2"))
}

func TestLoadEnvKeepsExisting(t *testing.T) {
	t.Setenv("POLLBOT_ENV_EXISTING", "from-process")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("POLLBOT_ENV_EXISTING=from-file\n"), 0644))

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-process", os.Getenv("POLLBOT_ENV_EXISTING"))
}

func TestLoadEnvOptional(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, LoadEnvOptional(filepath.Join(dir, "missing.env")))
	assert.Error(t, LoadEnv(filepath.Join(dir, "missing.env")))
}
