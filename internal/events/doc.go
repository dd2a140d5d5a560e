// Package events publishes session lifecycle events.
//
// Events travel over an in-process watermill gochannel pub/sub on the
// payroll.session topic. A Bus can additionally forward every event to
// another watermill publisher, such as a Redis stream, so that processes
// sharing a Redis-backed session can observe each other's logins and
// logouts.
package events
