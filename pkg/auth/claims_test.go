package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, sub, email string, iat, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"iat":   iat.Unix(),
		"exp":   exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseClaims(t *testing.T) {
	iat := time.Unix(1_700_000_000, 0)
	exp := iat.Add(15 * time.Minute)
	token := signTestToken(t, "user-1", "jane@example.com", iat, exp)

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.True(t, claims.IssuedAt.Equal(iat))
	assert.True(t, claims.ExpiresAt.Equal(exp))
}

func TestParseClaims_ExpiredTokenStillParses(t *testing.T) {
	iat := time.Now().Add(-2 * time.Hour)
	token := signTestToken(t, "user-1", "", iat, iat.Add(time.Minute))

	claims, err := ParseClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestParseClaims_Opaque(t *testing.T) {
	_, err := ParseClaims("opaque-token")
	assert.Error(t, err)
}

func TestNewCredential(t *testing.T) {
	now := time.Unix(1_700_000_100, 0)

	t.Run("opaque token uses receipt time and expires_in", func(t *testing.T) {
		cred := NewCredential("A1", "R1", "bearer", 900, Profile{Email: "jane@example.com"}, now)
		assert.True(t, cred.Complete())
		assert.True(t, cred.IssuedAt.Equal(now))
		assert.True(t, cred.ExpiresAt.Equal(now.Add(900*time.Second)))
	})

	t.Run("jwt claims fill issued_at, expiry and identity", func(t *testing.T) {
		iat := time.Unix(1_700_000_000, 0)
		exp := iat.Add(30 * time.Minute)
		token := signTestToken(t, "user-7", "sam@example.com", iat, exp)

		cred := NewCredential(token, "R1", "bearer", 0, Profile{}, now)
		assert.True(t, cred.IssuedAt.Equal(iat))
		assert.True(t, cred.ExpiresAt.Equal(exp))
		assert.Equal(t, "user-7", cred.Identity.ID)
		assert.Equal(t, "sam@example.com", cred.Identity.Email)
	})

	t.Run("no expiry information leaves expiry unknown", func(t *testing.T) {
		cred := NewCredential("A1", "R1", "", 0, Profile{}, now)
		assert.True(t, cred.ExpiresAt.IsZero())
		assert.False(t, cred.ExpiredAt(now.Add(24*time.Hour), 0))
	})
}
