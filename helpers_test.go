package goSession

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testSubject  = "user-1"
	testEmail    = "alice@example.com"
	testPassword = "correct-horse-battery"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_750_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("root-test-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("root-test-refresh-secret-0123456789abcdef")
	cfg.Password = PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Store.Timeout = time.Second
	cfg.Metrics.Enabled = true
	return cfg
}

type harness struct {
	engine *Engine
	store  session.Store
	clock  *testClock
}

func hashTestPassword(t testing.TB, cfg Config) string {
	t.Helper()
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("argon2: %v", err)
	}
	hash, err := ph.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func testUser(t testing.TB, cfg Config) session.UserRecord {
	return session.UserRecord{
		SubjectID:    testSubject,
		Email:        testEmail,
		DisplayName:  "Alice",
		PasswordHash: hashTestPassword(t, cfg),
	}
}

func buildHarness(t testing.TB, cfg Config, store session.Store, mutate ...func(*Builder)) *harness {
	t.Helper()
	clock := newTestClock()
	b := New().WithConfig(cfg).WithStore(store).WithClock(clock.Now)
	for _, m := range mutate {
		m(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	return &harness{engine: engine, store: store, clock: clock}
}

// newHarness builds an engine over an in-memory store seeded with one user.
func newHarness(t testing.TB, cfg Config, mutate ...func(*Builder)) *harness {
	t.Helper()
	store := session.NewMemoryStore()
	if err := store.Put(testUser(t, cfg)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return buildHarness(t, cfg, store, mutate...)
}

// newRedisHarness builds an engine over miniredis seeded with one user.
func newRedisHarness(t testing.TB, cfg Config) (*harness, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := session.NewRedisStore(rdb, "gs-test", cfg.JWT.RefreshTTL)
	if err := store.PutUser(context.Background(), testUser(t, cfg)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return buildHarness(t, cfg, store), mr
}

// session cookies as a client would hold them
type jar struct {
	access, refresh, csrf string
}

func (h *harness) login(t testing.TB) jar {
	t.Helper()
	rec := httptest.NewRecorder()
	res, err := h.engine.Login(context.Background(), rec, testEmail, testPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	c := responseCookies(rec)
	j := jar{
		access:  c[cookie.NameAccess].Value,
		refresh: c[cookie.NameRefresh].Value,
		csrf:    c[cookie.NameCSRF].Value,
	}
	if j.csrf != res.CSRFToken {
		t.Fatalf("csrf cookie %q differs from result %q", j.csrf, res.CSRFToken)
	}
	return j
}

func (j jar) request(method string, withHeader bool) *http.Request {
	r := httptest.NewRequest(method, "/resource", nil)
	if j.access != "" {
		r.AddCookie(&http.Cookie{Name: cookie.NameAccess, Value: j.access})
	}
	if j.refresh != "" {
		r.AddCookie(&http.Cookie{Name: cookie.NameRefresh, Value: j.refresh})
	}
	if j.csrf != "" {
		r.AddCookie(&http.Cookie{Name: cookie.NameCSRF, Value: j.csrf})
	}
	if withHeader {
		r.Header.Set("X-CSRF-Token", j.csrf)
	}
	return r
}

func (h *harness) authenticate(r *http.Request) (*Identity, *httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	id, err := h.engine.Authenticate(rec, r)
	return id, rec, err
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func requireCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	c := responseCookies(rec)
	for _, name := range []string{cookie.NameAccess, cookie.NameRefresh, cookie.NameCSRF} {
		got, ok := c[name]
		if !ok {
			t.Fatalf("cookie %s not cleared", name)
		}
		if got.Value != "" || got.MaxAge >= 0 {
			t.Fatalf("cookie %s not expired: value=%q maxAge=%d", name, got.Value, got.MaxAge)
		}
	}
}

func storedFingerprint(t *testing.T, store session.Store) string {
	t.Helper()
	rec, err := store.FindByID(context.Background(), testSubject)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	return rec.RefreshTokenHash
}
