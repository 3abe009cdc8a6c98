package sellerhub

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/sellerhub/validation"
)

// Kind classifies operational failures. Each kind maps to one HTTP status.
type Kind uint8

const (
	// KindInternal marks failures that are not part of the taxonomy.
	KindInternal Kind = iota
	// KindUnauthorized means the caller is not authenticated.
	KindUnauthorized
	// KindForbidden means the caller is authenticated but refused.
	KindForbidden
	// KindNotFound means the addressed resource does not exist for the caller.
	KindNotFound
	// KindConflict means a uniqueness constraint was violated.
	KindConflict
	// KindValidation means the input failed the validation pass.
	KindValidation
	// KindTooManyRequests means a throttle window is exhausted.
	KindTooManyRequests
	// KindPersistence means the document store failed.
	KindPersistence
	// KindSessionStore means the session cache failed.
	KindSessionStore
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindPersistence:
		return "persistence"
	case KindSessionStore:
		return "session_store"
	default:
		return "internal"
	}
}

// HTTPStatus returns the status code that represents k.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is an operational failure: something the caller caused or the
// environment produced, as opposed to a programming error. Message is safe
// to show to clients; Err carries the internal cause.
type Error struct {
	Kind    Kind
	Message string
	Fields  validation.Errors
	Err     error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return e.Fields.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind and message, so wrapped copies of
// a sentinel still satisfy errors.Is against that sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	out := *e
	out.Err = cause
	return &out
}

// WithFields returns a copy of e carrying field-level violations.
func (e *Error) WithFields(fields validation.Errors) *Error {
	out := *e
	out.Fields = fields
	return &out
}

var (
	// ErrTokenMissing is returned when no access token was presented.
	ErrTokenMissing = &Error{Kind: KindUnauthorized, Message: "token missing"}
	// ErrTokenInvalid covers bad signatures, malformed tokens and expired tokens.
	ErrTokenInvalid = &Error{Kind: KindUnauthorized, Message: "invalid token"}
	// ErrRefreshMissing is returned when no refresh token was presented.
	ErrRefreshMissing = &Error{Kind: KindUnauthorized, Message: "refresh token not found"}
	// ErrRefreshMismatch is returned when a verified refresh token is not the cached one.
	ErrRefreshMismatch = &Error{Kind: KindForbidden, Message: "refresh token mismatch or expired"}
	// ErrRefreshRateLimited is returned when a subject refreshes too often.
	ErrRefreshRateLimited = &Error{Kind: KindTooManyRequests, Message: "too many refresh attempts"}
	// ErrSignInRateLimited is returned when one client signs in too often.
	ErrSignInRateLimited = &Error{Kind: KindTooManyRequests, Message: "too many sign-in attempts"}
	// ErrAccountSuspended is returned for subjects flagged as suspended.
	ErrAccountSuspended = &Error{Kind: KindForbidden, Message: "account suspended"}
	// ErrSubjectNotFound is returned when a token names a subject that no longer exists.
	ErrSubjectNotFound = &Error{Kind: KindNotFound, Message: "user not found"}
	// ErrProductNotFound is returned for products that are absent or owned by another seller.
	ErrProductNotFound = &Error{Kind: KindNotFound, Message: "product not found"}
	// ErrEmailTaken is returned when the unique email index rejects a write.
	ErrEmailTaken = &Error{Kind: KindConflict, Message: "Duplicate field value: email"}
	// ErrValidation carries field errors from the validation pass.
	ErrValidation = &Error{Kind: KindValidation, Message: "invalid input data"}
	// ErrPersistence wraps document store failures.
	ErrPersistence = &Error{Kind: KindPersistence, Message: "persistence failure"}
	// ErrSessionStore wraps session cache failures.
	ErrSessionStore = &Error{Kind: KindSessionStore, Message: "session store unavailable"}

	// ErrEngineNotReady is a programming error: an Engine method was called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// AsError returns the *Error in err's chain, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps err to a status code. Errors outside the taxonomy map to 500.
func HTTPStatus(err error) int {
	if e, ok := AsError(err); ok {
		return e.Kind.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsOperational reports whether err belongs to the taxonomy.
func IsOperational(err error) bool {
	_, ok := AsError(err)
	return ok
}

// NewValidationError wraps a validation result into a [KindValidation] error.
// Any other error passed in is returned unchanged.
func NewValidationError(err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return ErrValidation.WithFields(verrs)
	}
	return err
}
