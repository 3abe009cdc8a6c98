package sellerhub

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSignIn          = "sign_in"
	auditEventSubjectCreated  = "subject_created"
	auditEventSessionIssued   = "session_issued"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshInvalid  = "refresh_invalid"
	auditEventRefreshMismatch = "refresh_mismatch"
	auditEventLogout          = "logout"
	auditEventRateLimited     = "rate_limit_triggered"
)

// AuditErrorCode is the stable, client-independent reason attached to failed audit events.
type AuditErrorCode string

const (
	auditErrTokenMissing  AuditErrorCode = "token_missing"
	auditErrInvalidToken  AuditErrorCode = "invalid_token"
	auditErrRefreshReplay AuditErrorCode = "refresh_mismatch"
	auditErrRateLimited   AuditErrorCode = "rate_limited"
	auditErrSuspended     AuditErrorCode = "account_suspended"
	auditErrNotFound      AuditErrorCode = "not_found"
	auditErrDuplicate     AuditErrorCode = "duplicate"
	auditErrValidation    AuditErrorCode = "validation"
	auditErrPersistence   AuditErrorCode = "persistence"
	auditErrSessionStore  AuditErrorCode = "session_store"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope, subjectID string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimited, false, subjectID, nil, func() map[string]string {
		return map[string]string{"scope": scope}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenMissing), errors.Is(err, ErrRefreshMissing):
		return auditErrTokenMissing
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRefreshMismatch):
		return auditErrRefreshReplay
	case errors.Is(err, ErrRefreshRateLimited), errors.Is(err, ErrSignInRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountSuspended):
		return auditErrSuspended
	case errors.Is(err, ErrSubjectNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrEmailTaken):
		return auditErrDuplicate
	}

	if e, ok := AsError(err); ok {
		switch e.Kind {
		case KindValidation:
			return auditErrValidation
		case KindPersistence:
			return auditErrPersistence
		case KindSessionStore:
			return auditErrSessionStore
		}
	}
	return auditErrInternal
}
