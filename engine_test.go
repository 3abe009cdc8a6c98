package sellerhub_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/internal/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type harness struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	subjects *memstore.Subjects
	engine   *sellerhub.Engine
}

func testConfig() sellerhub.Config {
	cfg := sellerhub.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("engine-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("engine-refresh-secret-0123456789abcde")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newHarness(t *testing.T, mutate func(*sellerhub.Config), opts ...func(*sellerhub.Builder)) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	subjects := memstore.NewSubjects()
	b := sellerhub.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSubjectStore(subjects).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &harness{mr: mr, rdb: rdb, subjects: subjects, engine: engine}
}

func TestBuildRequiresDependencies(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	if _, err := sellerhub.New().WithConfig(testConfig()).WithSubjectStore(memstore.NewSubjects()).Build(); err == nil {
		t.Fatalf("expected error without redis")
	}
	if _, err := sellerhub.New().WithConfig(testConfig()).WithRedis(rdb).Build(); err == nil {
		t.Fatalf("expected error without subject store")
	}
	if _, err := sellerhub.New().WithRedis(rdb).WithSubjectStore(memstore.NewSubjects()).Build(); err == nil {
		t.Fatalf("expected error without secrets")
	}

	b := sellerhub.New().WithConfig(testConfig()).WithRedis(rdb).WithSubjectStore(memstore.NewSubjects())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected builder reuse to fail")
	}
}

func TestNilEngineIsNotReady(t *testing.T) {
	var engine *sellerhub.Engine
	if _, err := engine.Validate(context.Background(), "x"); !errors.Is(err, sellerhub.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := engine.Refresh(context.Background(), "x"); !errors.Is(err, sellerhub.ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if engine.Health(context.Background()).RedisAvailable {
		t.Fatalf("nil engine must not report healthy")
	}
}

func TestIssueSessionCachesRefreshToken(t *testing.T) {
	h := newHarness(t, nil)

	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.AccessToken == pair.RefreshToken {
		t.Fatalf("unexpected pair: %+v", pair)
	}

	cached, err := h.mr.Get("rt:s1")
	if err != nil || cached != pair.RefreshToken {
		t.Fatalf("cache does not hold refresh token: %v", err)
	}
	if ttl := h.mr.TTL("rt:s1"); ttl != 30*24*time.Hour {
		t.Fatalf("expected 30 day ttl, got %v", ttl)
	}

	again, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if again.RefreshToken == pair.RefreshToken {
		t.Fatalf("tokens issued for the same subject must differ")
	}
	if cached, _ := h.mr.Get("rt:s1"); cached != again.RefreshToken {
		t.Fatalf("last issuance must win")
	}
	if _, err := h.engine.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, sellerhub.ErrRefreshMismatch) {
		t.Fatalf("superseded refresh token must be rejected, got %v", err)
	}
}

func TestIssueSessionCacheFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.mr.Close()

	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if pair != nil {
		t.Fatalf("no pair may be returned when the cache write fails")
	}
	if !errors.Is(err, sellerhub.ErrSessionStore) || sellerhub.HTTPStatus(err) != 500 {
		t.Fatalf("expected session store error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	h := newHarness(t, nil)
	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	res, err := h.engine.Validate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.SubjectID != "s1" || res.TokenID == "" || !res.ExpiresAt.After(res.IssuedAt) {
		t.Fatalf("unexpected auth result: %+v", res)
	}

	if _, err := h.engine.Validate(context.Background(), ""); !errors.Is(err, sellerhub.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if _, err := h.engine.Validate(context.Background(), pair.RefreshToken); !errors.Is(err, sellerhub.ErrTokenInvalid) {
		t.Fatalf("refresh token must not pass as access token, got %v", err)
	}

	// Validation never reads the cache.
	h.mr.Close()
	if _, err := h.engine.Validate(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("validate must not depend on redis: %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	h := newHarness(t, nil, func(b *sellerhub.Builder) { b.WithClock(func() time.Time { return clock() }) })

	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = func() time.Time { return now.Add(73 * time.Hour) }
	if _, err := h.engine.Validate(context.Background(), pair.AccessToken); !errors.Is(err, sellerhub.ErrTokenInvalid) {
		t.Fatalf("expected expired token to be invalid, got %v", err)
	}

	// The refresh token outlives the access token.
	if _, err := h.engine.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh after access expiry: %v", err)
	}
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	h := newHarness(t, nil)
	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	next, err := h.engine.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.SubjectID != "s1" || next.RefreshToken == pair.RefreshToken {
		t.Fatalf("unexpected rotated pair: %+v", next)
	}
	if cached, _ := h.mr.Get("rt:s1"); cached != next.RefreshToken {
		t.Fatalf("cache not rotated")
	}

	_, err = h.engine.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, sellerhub.ErrRefreshMismatch) || sellerhub.HTTPStatus(err) != 403 {
		t.Fatalf("expected 403 mismatch on replay, got %v", err)
	}
	if cached, _ := h.mr.Get("rt:s1"); cached != next.RefreshToken {
		t.Fatalf("replay must not change the cache")
	}
}

func TestRefreshFailures(t *testing.T) {
	h := newHarness(t, nil)

	if _, err := h.engine.Refresh(context.Background(), ""); !errors.Is(err, sellerhub.ErrRefreshMissing) {
		t.Fatalf("expected ErrRefreshMissing, got %v", err)
	}
	if _, err := h.engine.Refresh(context.Background(), "garbage"); !errors.Is(err, sellerhub.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := h.engine.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, sellerhub.ErrTokenInvalid) {
		t.Fatalf("access token must not verify with the refresh secret, got %v", err)
	}

	h.mr.Del("rt:s1")
	if _, err := h.engine.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, sellerhub.ErrRefreshMismatch) {
		t.Fatalf("expected mismatch for absent entry, got %v", err)
	}
}

func TestRefreshCacheUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	h.mr.Close()
	_, err = h.engine.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, sellerhub.ErrSessionStore) {
		t.Fatalf("expected session store error, got %v", err)
	}
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	h := newHarness(t, nil)
	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const workers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*sellerhub.TokenPair
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := h.engine.Refresh(context.Background(), pair.RefreshToken)
			if err != nil {
				if !errors.Is(err, sellerhub.ErrRefreshMismatch) {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			mu.Lock()
			winners = append(winners, next)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected one winner, got %d", len(winners))
	}
	if cached, _ := h.mr.Get("rt:s1"); cached != winners[0].RefreshToken {
		t.Fatalf("cache must hold the winner's token")
	}
}

func TestRefreshThrottle(t *testing.T) {
	h := newHarness(t, func(c *sellerhub.Config) {
		c.Security.EnableRefreshThrottle = true
		c.Security.MaxRefreshAttempts = 2
	})

	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for i := 0; i < 2; i++ {
		pair, err = h.engine.Refresh(context.Background(), pair.RefreshToken)
		if err != nil {
			t.Fatalf("refresh %d: %v", i, err)
		}
	}

	_, err = h.engine.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, sellerhub.ErrRefreshRateLimited) || sellerhub.HTTPStatus(err) != 429 {
		t.Fatalf("expected 429, got %v", err)
	}
}

func TestRefreshThrottleIgnoresStaleTokens(t *testing.T) {
	h := newHarness(t, func(c *sellerhub.Config) {
		c.Security.EnableRefreshThrottle = true
		c.Security.MaxRefreshAttempts = 2
	})
	ctx := context.Background()

	stale, err := h.engine.IssueSession(ctx, "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	live, err := h.engine.Refresh(ctx, stale.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := h.engine.Refresh(ctx, stale.RefreshToken); !errors.Is(err, sellerhub.ErrRefreshMismatch) {
			t.Fatalf("replay %d: expected mismatch, got %v", i, err)
		}
	}

	if _, err := h.engine.Refresh(ctx, live.RefreshToken); err != nil {
		t.Fatalf("live session locked out by replays: %v", err)
	}
}

func TestLogoutRevokes(t *testing.T) {
	h := newHarness(t, nil)
	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := h.engine.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if h.mr.Exists("rt:s1") {
		t.Fatalf("entry must be removed")
	}
	if _, err := h.engine.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, sellerhub.ErrRefreshMismatch) {
		t.Fatalf("expected mismatch after logout, got %v", err)
	}
	if _, err := h.engine.Validate(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("access token stays valid until expiry: %v", err)
	}

	if err := h.engine.Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout without token: %v", err)
	}
	if err := h.engine.Logout(context.Background(), "garbage"); err != nil {
		t.Fatalf("logout with garbage token: %v", err)
	}
}

func TestLogoutStaleTokenKeepsCurrentSession(t *testing.T) {
	h := newHarness(t, nil)
	old, _ := h.engine.IssueSession(context.Background(), "s1")
	current, err := h.engine.Refresh(context.Background(), old.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := h.engine.Logout(context.Background(), old.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if cached, _ := h.mr.Get("rt:s1"); cached != current.RefreshToken {
		t.Fatalf("a stale token must not revoke the current session")
	}
}

func TestResolveOrCreate(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first, err := h.engine.ResolveOrCreate(ctx, sellerhub.Profile{Name: "Ana", Email: "  ANA@x.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !first.Created {
		t.Fatalf("first sign-in must create the subject")
	}

	second, err := h.engine.ResolveOrCreate(ctx, sellerhub.Profile{Name: "Ana B", Email: "ana@x.com"})
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if second.Created || second.SubjectID != first.SubjectID {
		t.Fatalf("expected same subject, got %+v", second)
	}
	if h.subjects.Len() != 1 {
		t.Fatalf("expected one record, got %d", h.subjects.Len())
	}

	s, err := h.engine.Subject(ctx, first.SubjectID)
	if err != nil {
		t.Fatalf("subject: %v", err)
	}
	if s.Email != "ana@x.com" || s.CredentialHash == "" || s.LastLoginAt.IsZero() {
		t.Fatalf("unexpected stored subject: %+v", s)
	}
}

func TestResolveOrCreateConcurrentSameEmail(t *testing.T) {
	h := newHarness(t, nil)

	const workers = 8
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.engine.ResolveOrCreate(context.Background(), sellerhub.Profile{Name: "Ana", Email: "ana@x.com"})
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			ids <- res.SubjectID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("one email resolved to two subjects: %s and %s", first, id)
		}
	}
	if h.subjects.Len() != 1 {
		t.Fatalf("expected one record, got %d", h.subjects.Len())
	}
}

func TestResolveOrCreateFailures(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.engine.ResolveOrCreate(ctx, sellerhub.Profile{Name: "", Email: "not-an-email"})
	e, ok := sellerhub.AsError(err)
	if !ok || e.Kind != sellerhub.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := e.Fields.Map()
	if fields["email"] == "" || fields["name"] == "" {
		t.Fatalf("expected email and name field errors, got %v", fields)
	}

	h.subjects.Put(sellerhub.Subject{ID: "banned", Email: "banned@x.com", Suspended: true})
	if _, err := h.engine.SignIn(ctx, sellerhub.Profile{Name: "B", Email: "banned@x.com"}); !errors.Is(err, sellerhub.ErrAccountSuspended) {
		t.Fatalf("expected suspended, got %v", err)
	}
	if h.mr.Exists("rt:banned") {
		t.Fatalf("no session may be issued for a suspended subject")
	}

	h.subjects.FailWith(errors.New("connection reset"))
	_, err = h.engine.ResolveOrCreate(ctx, sellerhub.Profile{Name: "C", Email: "c@x.com"})
	if !errors.Is(err, sellerhub.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestSignInThrottle(t *testing.T) {
	h := newHarness(t, func(c *sellerhub.Config) {
		c.Security.EnableSignInThrottle = true
		c.Security.MaxSignInAttempts = 1
	})
	ctx := sellerhub.WithClientIP(context.Background(), "203.0.113.7")

	if _, err := h.engine.SignIn(ctx, sellerhub.Profile{Name: "Ana", Email: "ana@x.com"}); err != nil {
		t.Fatalf("first sign-in: %v", err)
	}
	_, err := h.engine.SignIn(ctx, sellerhub.Profile{Name: "Ana", Email: "ana@x.com"})
	if !errors.Is(err, sellerhub.ErrSignInRateLimited) {
		t.Fatalf("expected sign-in throttle, got %v", err)
	}

	// Another client is unaffected.
	other := sellerhub.WithClientIP(context.Background(), "203.0.113.8")
	if _, err := h.engine.SignIn(other, sellerhub.Profile{Name: "Ana", Email: "ana@x.com"}); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestSignInIssuesSession(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.engine.SignIn(context.Background(), sellerhub.Profile{Name: "Ana", Email: "ana@x.com"})
	if err != nil {
		t.Fatalf("sign-in: %v", err)
	}
	if !res.Created || res.Pair == nil || res.Pair.SubjectID != res.SubjectID {
		t.Fatalf("unexpected result: %+v", res)
	}
	if cached, _ := h.mr.Get("rt:" + res.SubjectID); cached != res.Pair.RefreshToken {
		t.Fatalf("sign-in must cache the refresh token")
	}

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[sellerhub.MetricSignInSuccess] != 1 || snap.Counters[sellerhub.MetricSubjectCreated] != 1 {
		t.Fatalf("unexpected counters: %v", snap.Counters)
	}
}

func TestAuditEvents(t *testing.T) {
	sink := sellerhub.NewChannelSink(32)
	h := newHarness(t, func(c *sellerhub.Config) {
		c.Audit.Enabled = true
	}, func(b *sellerhub.Builder) { b.WithAuditSink(sink) })

	pair, err := h.engine.IssueSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := h.engine.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := h.engine.Refresh(context.Background(), pair.RefreshToken); err == nil {
		t.Fatalf("expected replay to fail")
	}
	h.engine.Close()

	var types []string
	var mismatch sellerhub.AuditEvent
	for len(sink.Events()) > 0 {
		ev := <-sink.Events()
		types = append(types, ev.EventType)
		if ev.EventType == "refresh_mismatch" {
			mismatch = ev
		}
	}

	want := []string{"session_issued", "refresh_success", "refresh_mismatch"}
	if len(types) != len(want) {
		t.Fatalf("expected events %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, types)
		}
	}
	if mismatch.Success || mismatch.Error != "refresh_mismatch" || mismatch.Metadata["mismatch_count"] != "1" {
		t.Fatalf("unexpected mismatch event: %+v", mismatch)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)

	if !h.engine.Health(context.Background()).RedisAvailable {
		t.Fatalf("expected healthy")
	}
	h.mr.Close()
	if h.engine.Health(context.Background()).RedisAvailable {
		t.Fatalf("expected unhealthy after redis shutdown")
	}
}

func TestSessionIntrospection(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if _, err := h.engine.GetSessionInfo(ctx, "s1"); !errors.Is(err, sellerhub.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	pair, err := h.engine.IssueSession(ctx, "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := h.engine.IssueSession(ctx, "s2"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	info, err := h.engine.GetSessionInfo(ctx, "s1")
	if err != nil {
		t.Fatalf("session info: %v", err)
	}
	if info.ExpiresIn <= 0 || info.ExpiresIn > 720*time.Hour {
		t.Fatalf("unexpected remaining lifetime %v", info.ExpiresIn)
	}

	n, err := h.engine.ActiveSessionEstimate(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 sessions, got %d (%v)", n, err)
	}

	if err := h.engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if n, _ := h.engine.ActiveSessionEstimate(ctx); n != 1 {
		t.Fatalf("expected 1 session after logout, got %d", n)
	}
}

func TestSecurityReport(t *testing.T) {
	h := newHarness(t, func(c *sellerhub.Config) {
		c.Security.EnableSignInThrottle = true
	})

	r := h.engine.SecurityReport()
	if r.SigningAlgorithm != "HS256" || !r.SeparateSecrets || r.SameSite != "lax" {
		t.Fatalf("unexpected report: %+v", r)
	}
	if !r.SignInThrottleActive || r.RefreshThrottleActive {
		t.Fatalf("throttle flags wrong: %+v", r)
	}
	if r.AccessTTL != 72*time.Hour || r.RefreshTTL != 720*time.Hour {
		t.Fatalf("ttl mismatch: %+v", r)
	}
}
