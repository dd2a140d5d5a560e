package auth

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Role is the authorization role of a console user.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleHRManager         Role = "hr_manager"
	RolePayrollSpecialist Role = "payroll_specialist"
	RoleManager           Role = "manager"
	RoleEmployee          Role = "employee"
)

// Profile is the identity of the logged-in user as returned by the backend
// alongside every token pair and by GET /auth/me.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       Role   `json:"role"`
	EmployeeID string `json:"employee_id,omitempty"`
	IsActive   bool   `json:"is_active"`
}

// IsZero reports whether the profile carries no identity at all.
func (p Profile) IsZero() bool {
	return p.ID == "" && p.Email == ""
}

// DisplayName returns "First Last", falling back to the email address.
func (p Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

// Credential is the session's token pair together with the identity it
// belongs to. It is a value: holders replace whole credentials and never
// patch individual fields in place.
//
// AccessToken and RefreshToken are either both set or both empty.
type Credential struct {
	// AccessToken is the short-lived bearer token sent on every request.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged at /auth/refresh for a new pair.
	RefreshToken string `json:"refresh_token"`

	// TokenType is what the backend reported, typically "bearer".
	TokenType string `json:"token_type,omitempty"`

	// IssuedAt is the access token's iat claim, or the receipt time.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is when the access token stops being accepted. Zero means unknown.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Identity is the user profile that came with the token pair.
	Identity Profile `json:"user"`
}

// Complete reports whether both halves of the token pair are present.
func (c Credential) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// Empty reports whether neither token is present.
func (c Credential) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// SameTokens reports whether both credentials carry the same token pair.
func (c Credential) SameTokens(other Credential) bool {
	return c.AccessToken == other.AccessToken && c.RefreshToken == other.RefreshToken
}

// ExpiredAt reports whether the access token is expired at now, treating
// tokens that expire within margin as already expired. Unknown expiry is
// never considered expired; the server's 401 is authoritative then.
func (c Credential) ExpiredAt(now time.Time, margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(c.ExpiresAt)
}

// OAuth2Token converts the credential for use with golang.org/x/oauth2,
// chiefly so callers can use (*oauth2.Token).SetAuthHeader. The token type
// is always Bearer: the backend accepts nothing else.
func (c Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}

// String never includes token values.
func (c Credential) String() string {
	if c.Empty() {
		return "Credential{empty}"
	}
	return "Credential{subject=" + c.Identity.Email + ", access=[REDACTED], refresh=[REDACTED]}"
}

// LogValue implements slog.LogValuer so a Credential passed to a logger
// never leaks token material.
func (c Credential) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("subject", c.Identity.Email),
		slog.Bool("has_access_token", c.AccessToken != ""),
		slog.Bool("has_refresh_token", c.RefreshToken != ""),
	}
	if !c.ExpiresAt.IsZero() {
		attrs = append(attrs, slog.Time("expires_at", c.ExpiresAt))
	}
	return slog.GroupValue(attrs...)
}
