package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"payrollctl/pkg/auth"
)

// Persisted key names.
const (
	KeyAccessToken  = "payroll_token"
	KeyRefreshToken = "payroll_refresh_token"
	KeyUser         = "payroll_user"
)

// Keys lists every persisted key in write order. The access token is
// written last so a reader that sees it also sees its refresh token.
var Keys = []string{KeyUser, KeyRefreshToken, KeyAccessToken}

var (
	// ErrNotFound is returned by Persister.Load when no complete credential is stored.
	ErrNotFound = errors.New("no stored credential")

	// ErrTornRecords is returned by Persister.Load when the token records
	// belong to different writes, typically because the read overlapped
	// another process's save. Reading again later may succeed.
	ErrTornRecords = errors.New("token records belong to different writes")
)

// Persister is durable storage for the session credential.
type Persister interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Load returns the stored credential, ErrNotFound or ErrTornRecords.
	Load(ctx context.Context) (auth.Credential, error)

	// Save stores cred, replacing whatever was stored before.
	Save(ctx context.Context, cred auth.Credential) error

	// Delete removes the stored credential. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}

type accessRecord struct {
	Generation  string    `json:"generation"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

type refreshRecord struct {
	Generation   string `json:"generation"`
	RefreshToken string `json:"refresh_token"`
}

// encodeRecords splits cred into the three persisted values keyed by name.
func encodeRecords(cred auth.Credential) (map[string][]byte, error) {
	gen := uuid.NewString()

	access, err := json.Marshal(accessRecord{
		Generation:  gen,
		AccessToken: cred.AccessToken,
		TokenType:   cred.TokenType,
		IssuedAt:    cred.IssuedAt,
		ExpiresAt:   cred.ExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", KeyAccessToken, err)
	}
	refresh, err := json.Marshal(refreshRecord{Generation: gen, RefreshToken: cred.RefreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", KeyRefreshToken, err)
	}
	user, err := json.Marshal(cred.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", KeyUser, err)
	}

	return map[string][]byte{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
		KeyUser:         user,
	}, nil
}

// decodeRecords reassembles a credential. Missing token records or an
// incomplete pair yield ErrNotFound, a generation mismatch ErrTornRecords.
// A missing user record is tolerated.
func decodeRecords(access, refresh, user []byte) (auth.Credential, error) {
	if len(access) == 0 || len(refresh) == 0 {
		return auth.Credential{}, ErrNotFound
	}

	var a accessRecord
	if err := json.Unmarshal(access, &a); err != nil {
		return auth.Credential{}, fmt.Errorf("failed to unmarshal %s: %w", KeyAccessToken, err)
	}
	var r refreshRecord
	if err := json.Unmarshal(refresh, &r); err != nil {
		return auth.Credential{}, fmt.Errorf("failed to unmarshal %s: %w", KeyRefreshToken, err)
	}
	if a.Generation != r.Generation {
		return auth.Credential{}, ErrTornRecords
	}

	cred := auth.Credential{
		AccessToken:  a.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    a.TokenType,
		IssuedAt:     a.IssuedAt,
		ExpiresAt:    a.ExpiresAt,
	}
	if len(user) > 0 {
		if err := json.Unmarshal(user, &cred.Identity); err != nil {
			return auth.Credential{}, fmt.Errorf("failed to unmarshal %s: %w", KeyUser, err)
		}
	}
	if !cred.Complete() {
		return auth.Credential{}, ErrNotFound
	}
	return cred, nil
}
