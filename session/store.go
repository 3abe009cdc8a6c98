package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport-level Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrEntryNotFound is returned when a subject has no live refresh entry.
var ErrEntryNotFound = errors.New("session entry not found")

// ErrEntryMismatch is returned when the stored refresh token differs from the expected one.
var ErrEntryMismatch = errors.New("session entry mismatch")

const (
	swapStatusNotFound int64 = 0
	swapStatusMismatch int64 = 1
	swapStatusSwapped  int64 = 2
)

const swapRefreshScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var swapRefreshLua = redis.NewScript(swapRefreshScript)

const deleteIfScript = `
local current = redis.call("GET", KEYS[1])
if current and current == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

var deleteIfLua = redis.NewScript(deleteIfScript)

// Store is the Redis-backed map from subject id to its current refresh token.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] on top of the process-wide Redis client.
// prefix sets the key namespace; entries live at "<prefix>:<subjectID>".
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "rt"
	}
	return &Store{
		redis:  redis,
		prefix: prefix,
	}
}

func (s *Store) key(subjectID string) string {
	return s.prefix + ":" + subjectID
}

func (s *Store) mismatchKey(subjectID string) string {
	return s.prefix + ":mm:" + subjectID
}

// Put stores refreshToken as the subject's current entry, replacing any
// previous value. Last write wins.
//
//	Performance: 1 Redis SET.
func (s *Store) Put(ctx context.Context, subjectID, refreshToken string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(subjectID), refreshToken, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the subject's current refresh token, or [ErrEntryNotFound]
// when the entry is absent or expired.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, subjectID string) (string, error) {
	value, err := s.redis.Get(ctx, s.key(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEntryNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return value, nil
}

// Swap replaces the subject's entry with next only when it currently equals
// expected. Exactly one of several concurrent callers presenting the same
// expected value succeeds; the others get [ErrEntryMismatch].
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
func (s *Store) Swap(ctx context.Context, subjectID, expected, next string, ttl time.Duration) error {
	code, err := swapRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.key(subjectID)},
		expected,
		next,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case swapStatusNotFound:
		return ErrEntryNotFound
	case swapStatusMismatch:
		return ErrEntryMismatch
	case swapStatusSwapped:
		return nil
	default:
		return fmt.Errorf("%w: unknown swap script status %d", ErrRedisUnavailable, code)
	}
}

// DeleteIf removes the subject's entry only when it still equals expected.
// It reports whether an entry was removed.
func (s *Store) DeleteIf(ctx context.Context, subjectID, expected string) (bool, error) {
	removed, err := deleteIfLua.Run(ctx, s.redis, []string{s.key(subjectID)}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return removed == 1, nil
}

// Delete removes the subject's entry unconditionally. Deleting a missing
// entry is not an error.
func (s *Store) Delete(ctx context.Context, subjectID string) error {
	if err := s.redis.Del(ctx, s.key(subjectID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// TTL returns the remaining lifetime of the subject's entry, or
// [ErrEntryNotFound] when there is none.
func (s *Store) TTL(ctx context.Context, subjectID string) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, s.key(subjectID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// go-redis passes PTTL's -2 (missing) and -1 (no expiry) through unscaled.
	if ttl == -2 {
		return 0, ErrEntryNotFound
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Count scans the namespace and returns the number of live entries.
// Mismatch counters are not included.
//
//	Performance: O(N) SCAN over the prefix.
func (s *Store) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	mmPrefix := s.prefix + ":mm:"
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, s.prefix+":*", 500).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, k := range keys {
			if !strings.HasPrefix(k, mmPrefix) {
				count++
			}
		}
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

// TrackMismatch increments the rejected-refresh counter for a subject and
// returns the new count. The counter expires ttl after its first increment.
func (s *Store) TrackMismatch(ctx context.Context, subjectID string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	key := s.mismatchKey(subjectID)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
