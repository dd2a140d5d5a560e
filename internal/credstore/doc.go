// Package credstore holds the process-wide session credential.
//
// The Store keeps the current credential behind an atomic pointer so that any
// number of request goroutines can read it without locking, while writers
// (login, refresh, logout) are serialized. Every write goes through a
// Persister so the session survives process restarts:
//
//   - FilePersister writes one JSON file per key into a private directory
//   - RedisPersister writes the same keys to Redis in one MULTI/EXEC
//   - MemoryPersister keeps nothing beyond the process
//
// The persisted keys are payroll_token, payroll_refresh_token and
// payroll_user. The token and refresh records share a generation ID so a
// reader can tell a torn pair (written by a process that crashed half-way)
// from a consistent one.
//
// A Watcher observes the file persister's directory and calls back when
// another process changes the stored session, so the caller can Reload.
package credstore
