package config

import "time"

// StorageBackend selects where the session credential is persisted.
type StorageBackend string

const (
	StorageBackendFile   StorageBackend = "file"
	StorageBackendRedis  StorageBackend = "redis"
	StorageBackendMemory StorageBackend = "memory"
)

// Config is the top-level configuration structure for payrollctl.
type Config struct {
	APIBaseURL     string        `yaml:"apiBaseURL"`               // Base URL of the payroll API, including /api/v1
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"` // Per-attempt HTTP timeout (default: 30s)
	RefreshTimeout time.Duration `yaml:"refreshTimeout,omitempty"` // Bound on one refresh episode (default: 30s)
	ExpiryMargin   time.Duration `yaml:"expiryMargin"`             // Refresh before sending when the token expires this soon; 0 disables (default: 30s)

	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures credential persistence.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend"`
	// Dir is the file backend's directory. Empty means <config dir>/session.
	Dir   string      `yaml:"dir,omitempty"`
	Watch bool        `yaml:"watch"`
	Redis RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis storage backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db,omitempty"`
	Password  string `yaml:"password,omitempty"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
