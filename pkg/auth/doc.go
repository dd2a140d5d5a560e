// Package auth holds the credential and identity types shared by every part
// of the request pipeline, plus small helpers for reading them: unverified
// JWT claim extraction, WWW-Authenticate parsing and token redaction.
package auth
