package sellerhub

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/sellerhub/internal"
	"github.com/MrEthical07/sellerhub/internal/flows"
	"github.com/MrEthical07/sellerhub/internal/rate"
	"github.com/MrEthical07/sellerhub/jwt"
	"github.com/MrEthical07/sellerhub/password"
	"github.com/MrEthical07/sellerhub/session"
	"github.com/MrEthical07/sellerhub/validation"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be used for one Build only.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	subjects SubjectStore

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the process-wide Redis client used by the session cache and
// the throttles. The Engine never closes it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSubjectStore sets the document store backing the Identity Resolver.
func (b *Builder) WithSubjectStore(store SubjectStore) *Builder {
	b.subjects = store
	return b
}

// WithAuditSink sets where audit events go when Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger for warnings. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the clock used to stamp tokens and records.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, requires a Redis client and a subject
// store, and wires the flow dependencies. It performs no I/O.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.subjects == nil {
		return nil, errors.New("subject store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Params{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- SESSION CACHE --------
	store := session.NewStore(b.redis, cfg.Session.RedisPrefix)

	limiter := rate.New(b.redis, rate.Config{
		EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
		MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
		RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		EnableSignInThrottle:    cfg.Security.EnableSignInThrottle,
		MaxSignInAttempts:       cfg.Security.MaxSignInAttempts,
		SignInCooldownDuration:  cfg.Security.SignInCooldownDuration,
	})

	engine := &Engine{
		config:       cloneConfig(cfg),
		logger:       logger,
		jwtManager:   jm,
		sessionStore: store,
		rateLimiter:  limiter,
		subjects:     b.subjects,
		hasher:       hasher,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}

	subjects := b.subjects
	engine.flows = flows.New(flows.Deps{
		Issue: flows.IssueDeps{
			Tokens:       jm,
			SessionStore: store,
		},
		Refresh: flows.RefreshDeps{
			Verifier:        jm,
			Tokens:          jm,
			RateLimiter:     limiter,
			SessionStore:    store,
			TrackMismatches: cfg.Session.TrackMismatches,
			Warn:            engine.warn,
		},
		Validate: flows.ValidateDeps{
			Verifier: jm,
		},
		Logout: flows.LogoutDeps{
			Verifier:     jm,
			SessionStore: store,
		},
		Identity: flows.IdentityDeps{
			Validate: validation.Struct,
			FindByEmail: func(ctx context.Context, email string) (flows.KnownSubject, error) {
				s, err := subjects.FindByEmail(ctx, email)
				if err != nil {
					return flows.KnownSubject{}, err
				}
				return flows.KnownSubject{ID: s.ID, Suspended: s.Suspended}, nil
			},
			Create: func(ctx context.Context, in flows.IdentityInput, credentialHash string, at time.Time) (string, error) {
				s, err := subjects.Create(ctx, NewSubject{
					Name:           in.Name,
					Email:          in.Email,
					Picture:        in.Picture,
					CredentialHash: credentialHash,
					CreatedAt:      at,
				})
				if err != nil {
					return "", err
				}
				return s.ID, nil
			},
			TouchLastLogin: subjects.TouchLastLogin,
			NewSecret:      internal.NewPlaceholderSecret,
			HashSecret:     hasher.Hash,
			IsNotFound: func(err error) bool {
				return errors.Is(err, ErrSubjectNotFound)
			},
			IsDuplicate: func(err error) bool {
				return errors.Is(err, ErrEmailTaken)
			},
			Now: func() time.Time {
				return now().UTC()
			},
			Warn: engine.warn,
		},
	})

	b.built = true

	return engine, nil
}
