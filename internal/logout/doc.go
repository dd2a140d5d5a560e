// Package logout implements the logout cascade: the one place that ends a
// session, whether the user asked for it or a refresh failed.
package logout
