package flows

import "context"

// LogoutSessionStore revokes a cached refresh token.
type LogoutSessionStore interface {
	DeleteIf(ctx context.Context, subjectID, expected string) (bool, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Verifier     RefreshVerifier
	SessionStore LogoutSessionStore
}

// LogoutResult reports whether a cache entry was revoked.
type LogoutResult struct {
	SubjectID string
	Revoked   bool
	Err       error
}

// RunLogout revokes the cache entry that belongs to refreshToken. Missing,
// unverifiable or already-rotated tokens revoke nothing and are not errors;
// only a cache failure is.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if refreshToken == "" {
		return LogoutResult{}
	}

	claims, err := deps.Verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return LogoutResult{}
	}

	revoked, err := deps.SessionStore.DeleteIf(ctx, claims.SubjectID, refreshToken)
	return LogoutResult{
		SubjectID: claims.SubjectID,
		Revoked:   revoked,
		Err:       err,
	}
}
