// Package authapi is the wire client for the backend's /auth endpoints.
//
// TokenClient talks to /auth/login and /auth/refresh over a plain HTTP
// client: those calls establish credentials and must never go through the
// refreshing dispatcher. AccountClient talks to /auth/me and /auth/logout
// through any Doer, normally the dispatcher, so they are authenticated and
// refreshed like every other request.
package authapi
