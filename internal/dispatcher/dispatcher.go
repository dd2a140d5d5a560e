package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"payrollctl/pkg/auth"
	"payrollctl/pkg/logging"
)

// HeaderRequestID carries the per-call correlation ID.
const HeaderRequestID = "X-Request-ID"

const maxErrorBody = 64 << 10

// CredentialSource returns the current credential, if any.
type CredentialSource interface {
	Get() (auth.Credential, bool)
}

// Refresher obtains a credential that supersedes a rejected access token.
type Refresher interface {
	Refresh(ctx context.Context, rejectedAccessToken string) (auth.Credential, error)
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	creds     CredentialSource
	refresher Refresher
	transport http.RoundTripper
	timeout   time.Duration

	// expiryMargin > 0 enables refreshing before sending when the access
	// token expires within the margin.
	expiryMargin time.Duration
	now          func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTransport sets the underlying transport. Defaults to http.DefaultTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(d *Dispatcher) {
		d.transport = rt
	}
}

// WithTimeout sets the timeout of clients returned by Client.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// WithExpiryMargin refreshes the credential before sending when its access
// token expires within margin, saving the round trip of a certain 401.
// Credentials with unknown expiry are sent as they are.
func WithExpiryMargin(margin time.Duration) Option {
	return func(d *Dispatcher) {
		d.expiryMargin = margin
	}
}

// WithClock overrides the time source for the expiry check.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New returns a dispatcher reading credentials from creds and refreshing
// through refresher.
func New(creds CredentialSource, refresher Refresher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		creds:     creds,
		refresher: refresher,
		transport: http.DefaultTransport,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Transport returns d as an http.RoundTripper.
func (d *Dispatcher) Transport() http.RoundTripper {
	return roundTripper{d}
}

// Client returns an *http.Client that sends through d.
func (d *Dispatcher) Client() *http.Client {
	return &http.Client{Transport: d.Transport(), Timeout: d.timeout}
}

type roundTripper struct{ d *Dispatcher }

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt.d.Do(req)
}

// Do sends req with the current credential and handles expiry.
//
// A response is returned for every status except 401 and 403, which are
// reported as *AuthError and *ForbiddenError with the body consumed. A
// failure to reach the server is a *TransportError. Headers of req are never
// modified; a body without GetBody is buffered and replaced by an
// equivalent reader.
func (d *Dispatcher) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: redactURL(req), Err: err}
	}

	requestID := req.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	cred, hasCred := d.creds.Get()
	if hasCred && d.expiryMargin > 0 && cred.ExpiredAt(d.now(), d.expiryMargin) {
		logging.Debug("Dispatcher", "Access token expires at %s, refreshing before %s %s [%s]", cred.ExpiresAt.Format(time.RFC3339), req.Method, req.URL.Path, requestID)
		cred, err = d.refresh(ctx, req, cred.AccessToken, nil)
		if err != nil {
			return nil, err
		}
	}

	resp, err := d.send(ctx, req, getBody, requestID, cred, hasCred, 1)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
	case http.StatusForbidden:
		return nil, forbidden(req, resp)
	default:
		return resp, nil
	}

	// Expired or rejected: one refresh, one retry.
	challenge := auth.ChallengeFromResponse(resp)
	drain(resp)

	rejected := ""
	if hasCred {
		rejected = cred.AccessToken
	}
	logging.Debug("Dispatcher", "%s %s rejected (%s), refreshing credential [%s]", req.Method, req.URL.Path, challenge, requestID)

	refreshed, err := d.refresh(ctx, req, rejected, challenge)
	if err != nil {
		return nil, err
	}

	resp, err = d.send(ctx, req, getBody, requestID, refreshed, true, 2)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		challenge = auth.ChallengeFromResponse(resp)
		drain(resp)
		return nil, &AuthError{Method: req.Method, URL: redactURL(req), Retried: true, Challenge: challenge}
	case http.StatusForbidden:
		return nil, forbidden(req, resp)
	default:
		return resp, nil
	}
}

// refresh waits for a credential superseding rejected.
func (d *Dispatcher) refresh(ctx context.Context, req *http.Request, rejected string, challenge *auth.Challenge) (auth.Credential, error) {
	cred, err := d.refresher.Refresh(ctx, rejected)
	if err != nil {
		if ctx.Err() != nil {
			return auth.Credential{}, &TransportError{Method: req.Method, URL: redactURL(req), Err: ctx.Err()}
		}
		return auth.Credential{}, &AuthError{Method: req.Method, URL: redactURL(req), Challenge: challenge, Cause: err}
	}
	return cred, nil
}

// send transmits one attempt on a clone of req.
func (d *Dispatcher) send(ctx context.Context, req *http.Request, getBody func() (io.ReadCloser, error), requestID string, cred auth.Credential, hasCred bool, attempt int) (*http.Response, error) {
	out := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, &TransportError{Method: req.Method, URL: redactURL(req), Err: fmt.Errorf("failed to rewind request body: %w", err)}
		}
		out.Body = body
		out.GetBody = getBody
	}

	out.Header.Set(HeaderRequestID, requestID)
	if hasCred {
		cred.OAuth2Token().SetAuthHeader(out)
	} else {
		out.Header.Del("Authorization")
	}

	start := time.Now()
	resp, err := d.transport.RoundTrip(out)
	elapsed := time.Since(start)

	if err != nil {
		logging.Debug("Dispatcher", "%s %s failed after %s (attempt %d) [%s]: %v", req.Method, req.URL.Path, elapsed, attempt, requestID, err)
		return nil, &TransportError{Method: req.Method, URL: redactURL(req), Err: err}
	}
	logging.Debug("Dispatcher", "%s %s -> %d in %s (attempt %d) [%s]", req.Method, req.URL.Path, resp.StatusCode, elapsed, attempt, requestID)
	return resp, nil
}

// replayableBody returns a function yielding a fresh copy of req's body, or
// nil for a bodiless request. Bodies without GetBody are buffered once.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		return req.GetBody, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func forbidden(req *http.Request, resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &eb)
	return &ForbiddenError{Method: req.Method, URL: redactURL(req), Detail: eb.Detail}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

// redactURL drops the query string and userinfo.
func redactURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
