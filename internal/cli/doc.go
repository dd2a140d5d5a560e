// Package cli provides the output and error presentation used by the
// payrollctl commands.
//
// # Output
//
// Command results are rendered in one of three formats selected with
// --output: a table (go-pretty, the default), JSON or YAML. Lists of
// records use a borderless kubectl-style table so the output pipes cleanly
// into grep and awk; single objects and the session status use a two-column
// key/value table.
//
// # Errors
//
// The typed errors in this package carry actionable guidance for the user
// and determine the process exit code: AuthRequiredError and
// AuthExpiredError exit with 2, AuthFailedError with 3. ConnectionError
// classifies a request that got no response (server down, timeout, DNS,
// untrusted certificate) and points at the config setting to check.
//
// # Progress
//
// StartSpinner shows a spinner on a terminal while a slow operation such as
// login is in flight.
package cli
