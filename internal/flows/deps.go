package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/sellerhub/jwt"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Issue    IssueDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
	Logout   LogoutDeps
	Identity IdentityDeps
}

// TokenMinter signs new token pairs.
type TokenMinter interface {
	IssueAccess(subjectID string) (string, time.Time, error)
	IssueRefresh(subjectID string) (string, time.Time, error)
	RefreshTTL() time.Duration
}

// AccessVerifier checks access tokens.
type AccessVerifier interface {
	VerifyAccess(token string) (*jwt.Claims, error)
}

// RefreshVerifier checks refresh tokens against the refresh secret.
type RefreshVerifier interface {
	VerifyRefresh(token string) (*jwt.Claims, error)
}

// IssueSessionStore persists the refresh token of a newly issued pair.
type IssueSessionStore interface {
	Put(ctx context.Context, subjectID, refreshToken string, ttl time.Duration) error
	Swap(ctx context.Context, subjectID, expected, next string, ttl time.Duration) error
}

// IssuedPair is the flow-level view of a token pair.
type IssuedPair struct {
	SubjectID        string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
