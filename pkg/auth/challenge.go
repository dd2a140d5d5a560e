package auth

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Challenge is a parsed WWW-Authenticate header from a 401 response.
type Challenge struct {
	Scheme           string
	Realm            string
	Scope            string
	Error            string
	ErrorDescription string
}

var authParamRegex = regexp.MustCompile(`(\w+)="([^"]*)"`)

// ParseChallenge parses a WWW-Authenticate header value such as
//
//	Bearer realm="payroll", error="invalid_token", error_description="The access token expired"
func ParseChallenge(header string) (*Challenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	parts := strings.SplitN(header, " ", 2)
	challenge := &Challenge{Scheme: parts[0]}
	if len(parts) == 1 {
		return challenge, nil
	}

	for _, match := range authParamRegex.FindAllStringSubmatch(parts[1], -1) {
		switch strings.ToLower(match[1]) {
		case "realm":
			challenge.Realm = match[2]
		case "scope":
			challenge.Scope = match[2]
		case "error":
			challenge.Error = match[2]
		case "error_description":
			challenge.ErrorDescription = match[2]
		}
	}

	return challenge, nil
}

// ChallengeFromResponse extracts the challenge of a 401 response.
// Returns nil if the response is not a 401 or carries no parsable header.
func ChallengeFromResponse(resp *http.Response) *Challenge {
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil
	}
	challenge, err := ParseChallenge(resp.Header.Get("WWW-Authenticate"))
	if err != nil {
		return nil
	}
	return challenge
}

// InvalidToken reports whether the server flagged the token itself as the
// problem (RFC 6750 "invalid_token"), as opposed to a missing token.
func (c *Challenge) InvalidToken() bool {
	return c != nil && c.Error == "invalid_token"
}

// String renders the challenge for error messages.
func (c *Challenge) String() string {
	if c == nil {
		return ""
	}
	if c.ErrorDescription != "" {
		return c.Error + ": " + c.ErrorDescription
	}
	return c.Error
}
