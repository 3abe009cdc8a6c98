package sellerhub

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sellerhub/session"
)

// ErrSessionNotFound is returned when a subject has no live refresh session.
var ErrSessionNotFound = &Error{Kind: KindNotFound, Message: "session not found"}

// SessionInfo is the safe introspection view of a subject's session.
// It never carries token material.
type SessionInfo struct {
	SubjectID string
	ExpiresIn time.Duration
}

// GetSessionInfo reports whether subjectID has a live refresh session and
// how long it has left.
func (e *Engine) GetSessionInfo(ctx context.Context, subjectID string) (*SessionInfo, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	if subjectID == "" {
		return nil, ErrSessionNotFound
	}

	ttl, err := e.sessionStore.TTL(ctx, subjectID)
	if err != nil {
		if errors.Is(err, session.ErrEntryNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, ErrSessionStore.Wrap(err)
	}

	return &SessionInfo{SubjectID: subjectID, ExpiresIn: ttl}, nil
}

// ActiveSessionEstimate counts live refresh sessions. It scans the key space,
// so it is for operators, not request paths.
func (e *Engine) ActiveSessionEstimate(ctx context.Context) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.sessionStore.Count(ctx)
	if err != nil {
		return 0, ErrSessionStore.Wrap(err)
	}
	return n, nil
}
