// Package logging provides subsystem-tagged structured logging for payrollctl.
//
// It is a thin layer over log/slog. Every entry carries a "subsystem"
// attribute so output from the dispatcher, the refresh coordinator and the
// credential store can be told apart:
//
//	logging.Init(logging.LevelInfo, logging.FormatText, os.Stderr)
//
//	logging.Info("Bootstrap", "Loaded configuration from %s", path)
//	logging.Debug("Dispatcher", "GET /employees -> 200")
//	logging.Error("Refresh", err, "Refresh episode failed")
//
// # Audit Logging
//
// Credential writes and clears are recorded with Audit. Audit lines carry a
// SECURITY_AUDIT prefix and an "event" attribute; token values are never
// part of an audit event:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "credential_stored",
//	    Outcome: "success",
//	    Subject: "jane@example.com",
//	    Backend: "file",
//	})
//
// Logging is best-effort. Nothing in this package returns an error, and no
// caller should make control-flow decisions based on it.
package logging
