package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644)
	require.NoError(t, err)
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	tempDir := t.TempDir()

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
	assert.Empty(t, loaded.Validate())
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
apiBaseURL: https://payroll.example.com/api/v1
refreshTimeout: 5s
storage:
  backend: redis
  watch: false
  redis:
    addr: redis.internal:6380
logging:
  level: debug
`)

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "https://payroll.example.com/api/v1", loaded.APIBaseURL)
	assert.Equal(t, 5*time.Second, loaded.RefreshTimeout)
	assert.Equal(t, DefaultRequestTimeout, loaded.RequestTimeout)
	assert.Equal(t, DefaultExpiryMargin, loaded.ExpiryMargin)
	assert.Equal(t, StorageBackendRedis, loaded.Storage.Backend)
	assert.False(t, loaded.Storage.Watch)
	assert.Equal(t, "redis.internal:6380", loaded.Storage.Redis.Addr)
	assert.Equal(t, "payrollctl:", loaded.Storage.Redis.KeyPrefix, "unset nested keys keep their defaults")
	assert.Equal(t, "debug", loaded.Logging.Level)
	assert.Equal(t, "text", loaded.Logging.Format)
}

func TestLoadConfig_Malformed(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, "apiBaseURL: http://x\nrequestTimeout: [1, 2]\n")

	_, err := LoadConfig(tempDir)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KindParse, cfgErr.Kind)
	assert.Equal(t, 2, cfgErr.Line)
	assert.True(t, strings.HasPrefix(err.Error(), filepath.Join(tempDir, "config.yaml")+":2: malformed YAML"), err.Error())
	assert.Contains(t, err.Error(), "hint: Durations take a unit")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tempDir := t.TempDir()
	writeConfig(t, tempDir, `
apiBaseURL: payroll.example.com
storage:
  backend: sqlite
logging:
  format: xml
`)

	_, err := LoadConfig(tempDir)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KindInvalid, cfgErr.Kind)
	assert.Zero(t, cfgErr.Line)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"apiBaseURL", "storage.backend", "logging.format"}, fields)
	assert.Len(t, cfgErr.Hints, 2)
	assert.Contains(t, err.Error(), "hint: Use file for a workstation")
}

func TestLoadConfig_Unreadable(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, configFileName), 0755))

	_, err := LoadConfig(tempDir)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, KindRead, cfgErr.Kind)
	assert.Contains(t, err.Error(), "cannot read configuration")
	assert.NotContains(t, err.Error(), "hint:")
}

func TestConfig_SessionDir(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Equal(t, filepath.Join("/cfg", "session"), cfg.SessionDir("/cfg"))

	cfg.Storage.Dir = "/elsewhere"
	assert.Equal(t, "/elsewhere", cfg.SessionDir("/cfg"))
}
