package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/sellerhub/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureLookup
	RefreshFailureMismatch
	RefreshFailureMint
	RefreshFailureRotate
)

// RefreshRateLimiter throttles refreshes per subject.
type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, subjectID string) error
}

// RefreshSessionStore reads and rotates the cached refresh token.
type RefreshSessionStore interface {
	IssueSessionStore
	Get(ctx context.Context, subjectID string) (string, error)
	TrackMismatch(ctx context.Context, subjectID string, ttl time.Duration) (int64, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Verifier        RefreshVerifier
	Tokens          TokenMinter
	RateLimiter     RefreshRateLimiter
	SessionStore    RefreshSessionStore
	TrackMismatches bool
	Warn            func(string, ...any)
}

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure    RefreshFailureKind
	Err        error
	SubjectID  string
	Mismatches int64
	Pair       IssuedPair
}

// RunRefresh exchanges a refresh token for a new pair. The token must verify
// against the refresh secret and equal the cached entry byte for byte before
// the per-subject throttle is consulted. The
// cache is then rotated with a compare-and-swap, so a concurrent refresh with
// the same token observes a mismatch instead of a second pair.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}

	claims, err := deps.Verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}
	subjectID := claims.SubjectID

	cached, err := deps.SessionStore.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, session.ErrEntryNotFound) {
			return mismatch(ctx, subjectID, err, deps)
		}
		return RefreshResult{Failure: RefreshFailureLookup, Err: err, SubjectID: subjectID}
	}
	if subtle.ConstantTimeCompare([]byte(cached), []byte(refreshToken)) != 1 {
		return mismatch(ctx, subjectID, session.ErrEntryMismatch, deps)
	}

	// Only attempts holding the current token count against the budget, so
	// replaying a stale token cannot lock out the live session.
	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, subjectID); err != nil {
			return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, SubjectID: subjectID}
		}
	}

	issued := RunIssue(ctx, subjectID, refreshToken, IssueDeps{
		Tokens:       deps.Tokens,
		SessionStore: deps.SessionStore,
	})
	switch issued.Failure {
	case IssueFailureNone:
	case IssueFailureReplaced:
		return mismatch(ctx, subjectID, issued.Err, deps)
	case IssueFailureMint:
		return RefreshResult{Failure: RefreshFailureMint, Err: issued.Err, SubjectID: subjectID}
	default:
		return RefreshResult{Failure: RefreshFailureRotate, Err: issued.Err, SubjectID: subjectID}
	}

	return RefreshResult{SubjectID: subjectID, Pair: issued.Pair}
}

func mismatch(ctx context.Context, subjectID string, cause error, deps RefreshDeps) RefreshResult {
	res := RefreshResult{Failure: RefreshFailureMismatch, Err: cause, SubjectID: subjectID}
	if !deps.TrackMismatches {
		return res
	}

	count, err := deps.SessionStore.TrackMismatch(ctx, subjectID, deps.Tokens.RefreshTTL())
	if err != nil && deps.Warn != nil {
		deps.Warn("refresh mismatch tracking failed", "subject_id", subjectID, "error", err)
	}
	res.Mismatches = count
	return res
}
