// Package dispatcher sends authenticated requests to the payroll API.
//
// Every outbound request is cloned, stamped with an X-Request-ID and, when
// a credential is held, an Authorization: Bearer header. A 401 answer sends
// the request through exactly one refresh-and-retry cycle:
//
//	send ──401──> refresh coordinator ──ok──> resend once ──> result
//	                     │
//	                   failed ──> *AuthError (session already ended)
//
// A 401 on the retried request is terminal. 403 and transport failures are
// reported with their own error types and never trigger a refresh.
package dispatcher
