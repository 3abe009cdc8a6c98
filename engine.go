package sellerhub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/sellerhub/internal/flows"
	"github.com/MrEthical07/sellerhub/internal/rate"
	"github.com/MrEthical07/sellerhub/jwt"
	"github.com/MrEthical07/sellerhub/password"
	"github.com/MrEthical07/sellerhub/session"
)

// Engine owns the auth session lifecycle: it resolves OAuth identities to
// subjects, issues and rotates token pairs, validates access tokens and
// revokes sessions.
//
// Engine is safe for concurrent use after [Builder.Build] returns.
type Engine struct {
	config       Config
	logger       *slog.Logger
	jwtManager   *jwt.Manager
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	subjects     SubjectStore
	hasher       *password.Hasher
	flows        flows.Service
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes queued audit events. The Redis client and subject store are
// owned by the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
		if n := e.audit.Dropped(); n > 0 {
			e.warn("audit events dropped", "dropped", n, "by_event", e.audit.DroppedByEvent())
		}
	}
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// CookieConfig returns the cookie settings together with the token lifetimes
// the cookie max-ages are derived from.
func (e *Engine) CookieConfig() (CookieConfig, time.Duration, time.Duration) {
	return e.config.Cookie, e.config.JWT.AccessTTL, e.config.JWT.RefreshTTL
}

// AuditDropped returns how many audit events were dropped due to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByEvent returns the dropped audit events per event type, so a
// lost refresh_mismatch can be told apart from a lost session_issued.
func (e *Engine) AuditDroppedByEvent() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByEvent()
}

// MetricsSnapshot returns a point-in-time copy of in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Warn(msg, args...)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

/*
====================================
SESSION ISSUER
====================================
*/

// IssueSession mints a new token pair for subjectID and makes its refresh
// token the subject's only valid one. The pair is returned only after the
// session cache accepted the write.
func (e *Engine) IssueSession(ctx context.Context, subjectID string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Issue(ctx, subjectID)
	if res.Failure != flows.IssueFailureNone {
		e.metricInc(MetricSessionIssueFailure)
		var err error
		switch res.Failure {
		case flows.IssueFailureMint:
			err = fmt.Errorf("mint token pair: %w", res.Err)
		default:
			err = ErrSessionStore.Wrap(res.Err)
		}
		e.emitAudit(ctx, auditEventSessionIssued, false, subjectID, err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionIssued)
	e.emitAudit(ctx, auditEventSessionIssued, true, subjectID, nil, nil)

	return toTokenPair(res.Pair), nil
}

/*
====================================
REFRESH FLOW
====================================
*/

// Refresh exchanges a refresh token for a new pair.
//
// The token must verify against the refresh secret and match the cached entry
// exactly. A missing token yields [ErrRefreshMissing], an unverifiable one
// [ErrTokenInvalid], and a verified token that is not the cached one
// [ErrRefreshMismatch]. Concurrent refreshes with the same token produce one
// new pair; the others get [ErrRefreshMismatch].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Refresh(ctx, refreshToken)
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.SubjectID, nil, nil)
		return toTokenPair(res.Pair), nil

	case flows.RefreshFailureMissing:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrRefreshMissing, nil)
		return nil, ErrRefreshMissing

	case flows.RefreshFailureDecode:
		err := ErrTokenInvalid.Wrap(res.Err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", err, nil)
		return nil, err

	case flows.RefreshFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRateLimited) {
			e.metricInc(MetricRefreshRateLimited)
			e.emitRateLimit(ctx, "refresh", res.SubjectID)
			return nil, ErrRefreshRateLimited
		}
		e.metricInc(MetricRefreshFailure)
		return nil, ErrSessionStore.Wrap(res.Err)

	case flows.RefreshFailureMismatch:
		e.metricInc(MetricRefreshMismatch)
		e.metricInc(MetricRefreshFailure)
		mismatches := res.Mismatches
		e.emitAudit(ctx, auditEventRefreshMismatch, false, res.SubjectID, ErrRefreshMismatch, func() map[string]string {
			if mismatches == 0 {
				return nil
			}
			return map[string]string{"mismatch_count": fmt.Sprint(mismatches)}
		})
		return nil, ErrRefreshMismatch.Wrap(res.Err)

	case flows.RefreshFailureMint:
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("mint token pair: %w", res.Err)

	default:
		err := ErrSessionStore.Wrap(res.Err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, res.SubjectID, err, nil)
		return nil, err
	}
}

/*
====================================
ACCESS GUARD
====================================
*/

// Validate verifies an access token by signature and expiry only. It never
// consults the session cache, so an access token stays usable until it
// expires even after logout.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}()

	res := e.flows.Validate(accessToken)
	switch res.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureMissing:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenMissing
	default:
		e.metricInc(MetricValidateFailure)
		return nil, ErrTokenInvalid.Wrap(res.Err)
	}

	e.metricInc(MetricValidateSuccess)

	result := &AuthResult{
		SubjectID: res.Claims.SubjectID,
		TokenID:   res.Claims.ID,
	}
	if res.Claims.IssuedAt != nil {
		result.IssuedAt = res.Claims.IssuedAt.Time
	}
	if res.Claims.ExpiresAt != nil {
		result.ExpiresAt = res.Claims.ExpiresAt.Time
	}
	return result, nil
}

// Logout revokes the session that refreshToken belongs to. Missing,
// unverifiable or already-rotated tokens revoke nothing and return nil.
// Only a session cache failure is reported.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flows.Logout(ctx, refreshToken)
	if res.Err != nil {
		err := ErrSessionStore.Wrap(res.Err)
		e.emitAudit(ctx, auditEventLogout, false, res.SubjectID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	if res.Revoked {
		e.metricInc(MetricSessionRevoked)
	}
	revoked := res.Revoked
	e.emitAudit(ctx, auditEventLogout, true, res.SubjectID, nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprint(revoked)}
	})
	return nil
}

/*
====================================
IDENTITY RESOLVER
====================================
*/

// ResolveOrCreate maps an OAuth profile to a subject id, creating the subject
// on first sign-in. The email is trimmed and lower-cased first; the same email
// always resolves to the same subject.
func (e *Engine) ResolveOrCreate(ctx context.Context, profile Profile) (*Resolution, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	if err := e.rateLimiter.CheckSignIn(ctx, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricSignInRateLimited)
			e.emitRateLimit(ctx, "sign_in", "")
			return nil, ErrSignInRateLimited
		}
		return nil, ErrSessionStore.Wrap(err)
	}

	res := e.flows.ResolveIdentity(ctx, flows.IdentityInput{
		Name:    profile.Name,
		Email:   profile.Email,
		Picture: profile.Picture,
	})

	var err error
	switch res.Failure {
	case flows.IdentityFailureNone:
	case flows.IdentityFailureValidation:
		err = NewValidationError(res.Err)
	case flows.IdentityFailureSuspended:
		err = ErrAccountSuspended
	case flows.IdentityFailureLookup, flows.IdentityFailureCreate:
		if ae, ok := AsError(res.Err); ok {
			err = ae
		} else {
			err = ErrPersistence.Wrap(res.Err)
		}
	default:
		err = fmt.Errorf("placeholder credential: %w", res.Err)
	}
	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, auditEventSignIn, false, res.SubjectID, err, nil)
		return nil, err
	}

	if res.Created {
		e.metricInc(MetricSubjectCreated)
		e.emitAudit(ctx, auditEventSubjectCreated, true, res.SubjectID, nil, nil)
	}

	return &Resolution{SubjectID: res.SubjectID, Created: res.Created}, nil
}

// SignIn resolves the profile and issues a session for the resulting subject.
func (e *Engine) SignIn(ctx context.Context, profile Profile) (*SignInResult, error) {
	resolution, err := e.ResolveOrCreate(ctx, profile)
	if err != nil {
		return nil, err
	}

	pair, err := e.IssueSession(ctx, resolution.SubjectID)
	if err != nil {
		e.metricInc(MetricSignInFailure)
		return nil, err
	}

	e.metricInc(MetricSignInSuccess)
	created := resolution.Created
	e.emitAudit(ctx, auditEventSignIn, true, resolution.SubjectID, nil, func() map[string]string {
		return map[string]string{"created": fmt.Sprint(created)}
	})

	return &SignInResult{Resolution: *resolution, Pair: pair}, nil
}

// Subject loads the subject record for an authenticated request.
func (e *Engine) Subject(ctx context.Context, subjectID string) (*Subject, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	s, err := e.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if IsOperational(err) {
			return nil, err
		}
		return nil, ErrPersistence.Wrap(err)
	}
	return s, nil
}

// Health returns a point-in-time view of session cache reachability.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.sessionStore == nil {
		return HealthStatus{}
	}
	ok, latency := flows.RunHealth(ctx, e.sessionStore)
	return HealthStatus{
		RedisAvailable: ok,
		RedisLatency:   latency,
	}
}

func toTokenPair(p flows.IssuedPair) *TokenPair {
	return &TokenPair{
		SubjectID:        p.SubjectID,
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
