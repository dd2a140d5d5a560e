// Package app wires payrollctl's components into a running application.
//
// NewApplication performs the bootstrap sequence:
//
//  1. Logging is initialised from the command-line level, then re-initialised
//     from config.yaml when no level was given on the command line
//  2. config.yaml is loaded from the configuration directory
//  3. InitializeServices builds the credential pipeline:
//     persister, credential store, session machine, event bus, logout
//     cascade, refresh coordinator, dispatcher and the API clients
//  4. A persisted credential is restored and the session machine
//     bootstrapped from it
//  5. For the file backend, a watcher follows logins and logouts made by
//     other payrollctl processes sharing the same session directory
//
// The CLI calls the Application's session operations (Login, Logout,
// Status, Whoami, ForceRefresh) and reads resources through Payroll.
// Close stops the watcher and releases the event bus and Redis connection.
package app
