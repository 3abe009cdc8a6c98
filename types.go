package sellerhub

import (
	"context"
	"time"
)

// Subject is a seller account as stored in the document store.
type Subject struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Picture        string    `json:"picture,omitempty"`
	CredentialHash string    `json:"-"`
	Verified       bool      `json:"isVerified"`
	Suspended      bool      `json:"isSuspended"`
	CreatedAt      time.Time `json:"createdAt"`
	LastLoginAt    time.Time `json:"lastLogin"`
}

// Profile is the set of claims an OAuth provider returns about a seller.
type Profile struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Picture string `json:"picture" validate:"omitempty,url,max=2048"`
}

// NewSubject is the record handed to [SubjectStore.Create].
type NewSubject struct {
	Name           string
	Email          string
	Picture        string
	CredentialHash string
	CreatedAt      time.Time
}

// SubjectStore is the document-store contract the Identity Resolver depends on.
//
// FindByEmail and FindByID return [ErrSubjectNotFound] for missing records.
// Create returns [ErrEmailTaken] when the unique email index rejects the write.
// Other errors are treated as persistence failures.
type SubjectStore interface {
	FindByEmail(ctx context.Context, email string) (*Subject, error)
	FindByID(ctx context.Context, id string) (*Subject, error)
	Create(ctx context.Context, s NewSubject) (*Subject, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// TokenPair is a freshly issued access and refresh token for one subject.
type TokenPair struct {
	SubjectID        string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthResult is what the Access Guard attaches to an authenticated request.
type AuthResult struct {
	SubjectID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Resolution is the outcome of the Identity Resolver.
type Resolution struct {
	SubjectID string
	Created   bool
}

// SignInResult is a resolved identity plus the session issued for it.
type SignInResult struct {
	Resolution
	Pair *TokenPair
}

// HealthStatus is a point-in-time view of the session cache.
type HealthStatus struct {
	RedisAvailable bool
	RedisLatency   time.Duration
}
