// Package refresh coordinates credential refresh across concurrent requests.
//
// When several requests are rejected with 401 at the same time, exactly one
// of them performs the network call to the refresh endpoint. Every other
// request that discovers expiry while that call is in flight waits for the
// same outcome. Together they form one refresh episode. On success the new
// token pair is written to the credential store in a single write and the
// session returns to Authenticated. On failure the logout cascade runs and
// every waiter receives the same *RefreshError.
//
// The network call is detached from the context of the request that started
// it: a caller that gives up only stops waiting, it does not cancel the
// episode for everybody else.
package refresh
