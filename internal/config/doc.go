// Package config loads payrollctl's configuration.
//
// Configuration lives in a single directory, ~/.config/payrollctl by default
// (override with --config-dir). The directory holds config.yaml and, for the
// file storage backend, the session/ subdirectory with the persisted
// credential.
//
// # Configuration File
//
// Defaults are applied first; config.yaml only needs the keys it changes:
//
//	apiBaseURL: https://payroll.example.com/api/v1
//	requestTimeout: 30s
//	refreshTimeout: 30s
//	expiryMargin: 30s      # refresh ahead of expiry; 0 waits for the 401
//	storage:
//	  backend: file        # file, redis or memory
//	  dir: ""              # default <config dir>/session
//	  watch: true          # follow logins/logouts of other processes
//	  redis:
//	    addr: localhost:6379
//	    db: 0
//	    keyPrefix: "payrollctl:"
//	logging:
//	  level: warn
//	  format: text
//
// A missing config.yaml is not an error. A malformed or invalid one is
// reported as a ConfigurationError carrying the file, the line where known,
// and suggestions for fixing it.
package config
