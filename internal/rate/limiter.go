package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration

	EnableSignInThrottle   bool
	MaxSignInAttempts      int
	SignInCooldownDuration time.Duration
}

// Limiter enforces per-subject refresh limits and per-IP sign-in limits
// using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckRefresh counts a refresh attempt for subjectID and returns
// [ErrRateLimited] once the window budget is spent.
func (l *Limiter) CheckRefresh(ctx context.Context, subjectID string) error {
	if l == nil || !l.config.EnableRefreshThrottle {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, refreshKey(subjectID), l.config.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}

	return nil
}

// CheckSignIn counts a sign-in attempt from ip. An empty ip is never throttled.
func (l *Limiter) CheckSignIn(ctx context.Context, ip string) error {
	if l == nil || !l.config.EnableSignInThrottle || ip == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, signInKey(ip), l.config.SignInCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSignInAttempts) {
		return ErrRateLimited
	}

	return nil
}

// RefreshAttempts returns the current refresh counter for a subject.
// Missing keys return zero.
func (l *Limiter) RefreshAttempts(ctx context.Context, subjectID string) (int, error) {
	count, err := l.redis.Get(ctx, refreshKey(subjectID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func refreshKey(subjectID string) string {
	return "rl:r:" + subjectID
}

func signInKey(ip string) string {
	return "rl:s:" + ip
}
