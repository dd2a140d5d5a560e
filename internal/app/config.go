package app

import (
	"io"

	"payrollctl/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Custom configuration directory (optional, default ~/.config/payrollctl)
	ConfigPath string

	// APIBaseURL overrides apiBaseURL from config.yaml when set.
	APIBaseURL string

	// LogLevel overrides logging.level from config.yaml when set.
	LogLevel string

	// Ephemeral keeps the credential in memory only, for one-shot runs.
	Ephemeral bool

	// LogOutput receives log lines; nil means stderr.
	LogOutput io.Writer

	// Loaded configuration, set by NewApplication.
	PayrollConfig *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(configPath, apiBaseURL, logLevel string, ephemeral bool) *Config {
	return &Config{
		ConfigPath: configPath,
		APIBaseURL: apiBaseURL,
		LogLevel:   logLevel,
		Ephemeral:  ephemeral,
	}
}

func (c *Config) configDir() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	return config.GetDefaultConfigPathOrPanic()
}
