package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity and timing claims read from an access token.
type Claims struct {
	Subject   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// ParseClaims reads the claims of a JWT access token WITHOUT verifying its
// signature. The client never trusts these values for authorization; they
// only feed display and expiry bookkeeping. The server remains the
// authority and answers 401 when the token is not acceptable.
func ParseClaims(token string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	var claims accessTokenClaims
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token claims: %w", err)
	}

	out := &Claims{
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// NewCredential assembles a Credential from a token endpoint response.
//
// IssuedAt is taken from the access token's iat claim when the token is a
// JWT, else from now. ExpiresAt prefers expiresIn (seconds) from the
// response body, then the exp claim; it stays zero when neither is known.
func NewCredential(accessToken, refreshToken, tokenType string, expiresIn int, identity Profile, now time.Time) Credential {
	cred := Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		IssuedAt:     now,
		Identity:     identity,
	}

	claims, err := ParseClaims(accessToken)
	if err == nil {
		if !claims.IssuedAt.IsZero() {
			cred.IssuedAt = claims.IssuedAt
		}
		if !claims.ExpiresAt.IsZero() {
			cred.ExpiresAt = claims.ExpiresAt
		}
		if cred.Identity.Email == "" {
			cred.Identity.Email = claims.Email
		}
		if cred.Identity.ID == "" {
			cred.Identity.ID = claims.Subject
		}
	}

	if expiresIn > 0 {
		cred.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	}

	return cred
}
