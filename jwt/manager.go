package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid is returned for malformed tokens, bad signatures,
	// unexpected algorithms and tokens without a subject.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when a well-formed, correctly signed token
	// is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Config defines the signing material and lifetimes used by [Manager].
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration

	// Now overrides the clock used for issuing and verifying. Nil means time.Now.
	Now func() time.Time
}

// Manager issues and verifies HS256 access and refresh tokens.
//
// Manager is safe for concurrent use after construction.
type Manager struct {
	config Config
}

// Claims is the payload carried by both token kinds.
type Claims struct {
	SubjectID string `json:"userId"`
	jwt.RegisteredClaims
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager returns an error when secrets are missing or shared between the
// two token kinds, or when TTL and leeway values are out of range.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cfg.AccessSecret = bytes.Clone(cfg.AccessSecret)
	cfg.RefreshSecret = bytes.Clone(cfg.RefreshSecret)

	return &Manager{config: cfg}, nil
}

// IssueAccess signs a short-lived access token for subjectID.
func (j *Manager) IssueAccess(subjectID string) (string, time.Time, error) {
	return j.issue(subjectID, j.config.AccessSecret, j.config.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token for subjectID.
func (j *Manager) IssueRefresh(subjectID string) (string, time.Time, error) {
	return j.issue(subjectID, j.config.RefreshSecret, j.config.RefreshTTL)
}

// VerifyAccess checks an access token against the access secret.
func (j *Manager) VerifyAccess(token string) (*Claims, error) {
	return j.Verify(token, j.config.AccessSecret)
}

// VerifyRefresh checks a refresh token against the refresh secret.
func (j *Manager) VerifyRefresh(token string) (*Claims, error) {
	return j.Verify(token, j.config.RefreshSecret)
}

// AccessTTL returns the configured access token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// Verify describes the verify operation and its observable behavior.
//
// Verify returns [ErrTokenExpired] for correctly signed tokens past their
// expiry and [ErrTokenInvalid] for every other failure. The underlying parser
// error is wrapped so callers can still inspect it.
func (j *Manager) Verify(tokenStr string, secret []byte) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.config.Now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		// Signature is checked before claims, so an expired error implies a valid signature.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.SubjectID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}

func (j *Manager) issue(subjectID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, errors.New("subject id required")
	}

	now := j.config.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		SubjectID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}
