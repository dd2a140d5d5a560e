// Package mock provides test doubles for payrollctl components.
//
// Backend is an in-process fake of the payroll API served by httptest. It
// issues real HS256-signed JWT access tokens, rotates refresh tokens the way
// the real backend does, and lets a test expire tokens, hold the refresh
// endpoint on a gate, or make refresh fail, while counting every call.
//
// Clock abstracts time for expiry tests.
package mock
