package config

import (
	"fmt"
	"net/url"
	"strings"

	"payrollctl/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// Validate checks the whole configuration and reports every problem at once.
func (c Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs.Add("apiBaseURL", "must be an absolute http(s) URL", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		errs.Add("requestTimeout", "must be positive", c.RequestTimeout)
	}
	if c.RefreshTimeout <= 0 {
		errs.Add("refreshTimeout", "must be positive", c.RefreshTimeout)
	}
	if c.ExpiryMargin < 0 {
		errs.Add("expiryMargin", "must not be negative", c.ExpiryMargin)
	}

	backends := []string{string(StorageBackendFile), string(StorageBackendRedis), string(StorageBackendMemory)}
	if err := ValidateOneOf("storage.backend", string(c.Storage.Backend), backends); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.Storage.Backend == StorageBackendRedis && strings.TrimSpace(c.Storage.Redis.Addr) == "" {
		errs.Add("storage.redis.addr", "is required for the redis backend")
	}
	if c.Storage.Redis.DB < 0 {
		errs.Add("storage.redis.db", "must not be negative", c.Storage.Redis.DB)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), c.Logging.Level)
	}
	if err := ValidateOneOf("logging.format", c.Logging.Format, []string{logging.FormatText, logging.FormatJSON}); err != nil {
		errs = append(errs, err.(ValidationError))
	}

	return errs
}
