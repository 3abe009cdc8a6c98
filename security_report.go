package sellerhub

import (
	"log/slog"
	"net/http"
	"time"
)

// SecurityReport summarizes the security posture of a built engine. It holds
// no secret material and is meant to be logged once at startup.
type SecurityReport struct {
	ProductionMode        bool
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	SeparateSecrets       bool
	SecureCookies         bool
	SameSite              string
	Argon2                PasswordConfigReport
	RefreshThrottleActive bool
	SignInThrottleActive  bool
	MismatchTracking      bool
	AuditEnabled          bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: "HS256",
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		SeparateSecrets:  string(e.config.JWT.AccessSecret) != string(e.config.JWT.RefreshSecret),
		SecureCookies:    e.config.Cookie.Secure,
		SameSite:         sameSiteName(e.config.Cookie.SameSite),
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		RefreshThrottleActive: e.config.Security.EnableRefreshThrottle,
		SignInThrottleActive:  e.config.Security.EnableSignInThrottle,
		MismatchTracking:      e.config.Session.TrackMismatches,
		AuditEnabled:          e.config.Audit.Enabled,
	}
}

// LogValue lets the report be passed straight to slog.
func (r SecurityReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("production", r.ProductionMode),
		slog.String("alg", r.SigningAlgorithm),
		slog.Duration("access_ttl", r.AccessTTL),
		slog.Duration("refresh_ttl", r.RefreshTTL),
		slog.Bool("separate_secrets", r.SeparateSecrets),
		slog.Bool("secure_cookies", r.SecureCookies),
		slog.String("samesite", r.SameSite),
		slog.Any("argon2_memory_kb", r.Argon2.Memory),
		slog.Any("argon2_time", r.Argon2.Time),
		slog.Bool("refresh_throttle", r.RefreshThrottleActive),
		slog.Bool("signin_throttle", r.SignInThrottleActive),
		slog.Bool("mismatch_tracking", r.MismatchTracking),
		slog.Bool("audit", r.AuditEnabled),
	)
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
