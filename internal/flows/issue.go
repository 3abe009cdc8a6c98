package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/sellerhub/session"
)

// IssueFailureKind classifies issuance failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureMint
	IssueFailureStore
	// IssueFailureReplaced means a conditional write found a different
	// entry than expected: another rotation or sign-in got there first.
	IssueFailureReplaced
)

// IssueDeps captures issuance dependencies.
type IssueDeps struct {
	Tokens       TokenMinter
	SessionStore IssueSessionStore
}

// IssueResult carries the new pair or failure metadata.
type IssueResult struct {
	Failure IssueFailureKind
	Err     error
	Pair    IssuedPair
}

// RunIssue mints an access and refresh token for subjectID and records the
// refresh token in the session cache. With previous empty the write is
// unconditional; otherwise the cache entry must still equal previous.
// The pair is returned only once the cache write succeeded.
func RunIssue(ctx context.Context, subjectID, previous string, deps IssueDeps) IssueResult {
	access, accessExp, err := deps.Tokens.IssueAccess(subjectID)
	if err != nil {
		return IssueResult{Failure: IssueFailureMint, Err: err}
	}
	refresh, refreshExp, err := deps.Tokens.IssueRefresh(subjectID)
	if err != nil {
		return IssueResult{Failure: IssueFailureMint, Err: err}
	}

	ttl := deps.Tokens.RefreshTTL()
	if previous == "" {
		err = deps.SessionStore.Put(ctx, subjectID, refresh, ttl)
	} else {
		err = deps.SessionStore.Swap(ctx, subjectID, previous, refresh, ttl)
	}
	if err != nil {
		if errors.Is(err, session.ErrEntryNotFound) || errors.Is(err, session.ErrEntryMismatch) {
			return IssueResult{Failure: IssueFailureReplaced, Err: err}
		}
		return IssueResult{Failure: IssueFailureStore, Err: err}
	}

	return IssueResult{
		Pair: IssuedPair{
			SubjectID:        subjectID,
			AccessToken:      access,
			RefreshToken:     refresh,
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: refreshExp,
		},
	}
}
