package flows

import (
	"context"
	"strings"
	"time"
)

// IdentityFailureKind classifies Identity Resolver failures.
type IdentityFailureKind int

const (
	IdentityFailureNone IdentityFailureKind = iota
	IdentityFailureValidation
	IdentityFailureSuspended
	IdentityFailureLookup
	IdentityFailureCredential
	IdentityFailureCreate
)

// IdentityInput is the normalized OAuth profile.
type IdentityInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Picture string `json:"picture" validate:"omitempty,url,max=2048"`
}

// Normalize trims every field and lower-cases the email.
func (in IdentityInput) Normalize() IdentityInput {
	return IdentityInput{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Picture: strings.TrimSpace(in.Picture),
	}
}

// KnownSubject is the part of a stored subject the resolver needs.
type KnownSubject struct {
	ID        string
	Suspended bool
}

// IdentityDeps captures resolver dependencies. Store-level sentinels are
// recognized through IsNotFound and IsDuplicate so this package stays free
// of document-store types.
type IdentityDeps struct {
	Validate       func(any) error
	FindByEmail    func(ctx context.Context, email string) (KnownSubject, error)
	Create         func(ctx context.Context, in IdentityInput, credentialHash string, at time.Time) (string, error)
	TouchLastLogin func(ctx context.Context, id string, at time.Time) error
	NewSecret      func() (string, error)
	HashSecret     func(string) (string, error)
	IsNotFound     func(error) bool
	IsDuplicate    func(error) bool
	Now            func() time.Time
	Warn           func(string, ...any)
}

// IdentityResult carries the resolved subject id or failure metadata.
type IdentityResult struct {
	Failure   IdentityFailureKind
	Err       error
	SubjectID string
	Created   bool
}

// RunResolveIdentity returns the subject registered under the profile's
// email, creating it on first sight with a hashed random placeholder
// credential. A create that loses a race on the unique email index
// resolves to the winner's record, so one email never yields two subjects.
func RunResolveIdentity(ctx context.Context, raw IdentityInput, deps IdentityDeps) IdentityResult {
	in := raw.Normalize()
	if err := deps.Validate(in); err != nil {
		return IdentityResult{Failure: IdentityFailureValidation, Err: err}
	}

	now := deps.Now()

	found, err := deps.FindByEmail(ctx, in.Email)
	if err == nil {
		return existing(ctx, found, now, deps)
	}
	if !deps.IsNotFound(err) {
		return IdentityResult{Failure: IdentityFailureLookup, Err: err}
	}

	secret, err := deps.NewSecret()
	if err != nil {
		return IdentityResult{Failure: IdentityFailureCredential, Err: err}
	}
	hash, err := deps.HashSecret(secret)
	if err != nil {
		return IdentityResult{Failure: IdentityFailureCredential, Err: err}
	}

	id, err := deps.Create(ctx, in, hash, now)
	if err != nil {
		if !deps.IsDuplicate(err) {
			return IdentityResult{Failure: IdentityFailureCreate, Err: err}
		}
		found, findErr := deps.FindByEmail(ctx, in.Email)
		if findErr != nil {
			return IdentityResult{Failure: IdentityFailureLookup, Err: findErr}
		}
		return existing(ctx, found, now, deps)
	}

	return IdentityResult{SubjectID: id, Created: true}
}

func existing(ctx context.Context, found KnownSubject, now time.Time, deps IdentityDeps) IdentityResult {
	if found.Suspended {
		return IdentityResult{Failure: IdentityFailureSuspended, SubjectID: found.ID}
	}
	if deps.TouchLastLogin != nil {
		if err := deps.TouchLastLogin(ctx, found.ID, now); err != nil && deps.Warn != nil {
			deps.Warn("last login update failed", "subject_id", found.ID, "error", err)
		}
	}
	return IdentityResult{SubjectID: found.ID}
}
