package config

import (
	"time"

	"payrollctl/internal/credstore"
)

const (
	// DefaultAPIBaseURL is the payroll API of a local development stack.
	DefaultAPIBaseURL = "http://localhost:8000/api/v1"

	DefaultRequestTimeout = 30 * time.Second
	DefaultRefreshTimeout = 30 * time.Second
	DefaultExpiryMargin   = 30 * time.Second

	DefaultRedisAddr = "localhost:6379"
)

// GetDefaultConfig returns the configuration used when config.yaml is absent.
func GetDefaultConfig() Config {
	return Config{
		APIBaseURL:     DefaultAPIBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		RefreshTimeout: DefaultRefreshTimeout,
		ExpiryMargin:   DefaultExpiryMargin,
		Storage: StorageConfig{
			Backend: StorageBackendFile,
			Watch:   true,
			Redis: RedisConfig{
				Addr:      DefaultRedisAddr,
				KeyPrefix: credstore.DefaultRedisKeyPrefix,
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}
