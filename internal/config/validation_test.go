package config

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults", func(*Config) {}, ""},
		{"relative url", func(c *Config) { c.APIBaseURL = "/api/v1" }, "apiBaseURL"},
		{"ftp url", func(c *Config) { c.APIBaseURL = "ftp://host/api" }, "apiBaseURL"},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, "requestTimeout"},
		{"negative refresh timeout", func(c *Config) { c.RefreshTimeout = -time.Second }, "refreshTimeout"},
		{"negative expiry margin", func(c *Config) { c.ExpiryMargin = -time.Second }, "expiryMargin"},
		{"expiry check disabled", func(c *Config) { c.ExpiryMargin = 0 }, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "etcd" }, "storage.backend"},
		{"redis without addr", func(c *Config) {
			c.Storage.Backend = StorageBackendRedis
			c.Storage.Redis.Addr = " "
		}, "storage.redis.addr"},
		{"memory without addr", func(c *Config) {
			c.Storage.Backend = StorageBackendMemory
			c.Storage.Redis.Addr = ""
		}, ""},
		{"negative db", func(c *Config) { c.Storage.Redis.DB = -1 }, "storage.redis.db"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()

			if tt.field == "" {
				if errs.HasErrors() {
					t.Errorf("Validate() = %v, want no errors", errs)
				}
				return
			}
			if len(errs) != 1 || errs[0].Field != tt.field {
				t.Errorf("Validate() = %v, want one error on %s", errs, tt.field)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	if got := errs.Error(); got != "no validation errors" {
		t.Errorf("empty Error() = %q", got)
	}

	errs.Add("a", "is wrong")
	if got := errs.Error(); got != "field 'a': is wrong" {
		t.Errorf("single Error() = %q", got)
	}

	errs.Add("b", "is worse")
	if got := errs.Error(); got != "validation failed: field 'a': is wrong; field 'b': is worse" {
		t.Errorf("multi Error() = %q", got)
	}
}
