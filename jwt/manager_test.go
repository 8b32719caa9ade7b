package jwt

import (
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var (
	testAccessSecret  = []byte("access-secret-access-secret-0123456789")
	testRefreshSecret = []byte("refresh-secret-refresh-secret-0123456789")
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Issuer:        "gosession-test",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func testIdentity() Identity {
	return Identity{SubjectID: "user-1", Email: "alice@example.com", DisplayName: "Alice"}
}

func TestNewManagerRejectsWeakConfig(t *testing.T) {
	base := Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
	}

	cases := map[string]func(c *Config){
		"zero access ttl":  func(c *Config) { c.AccessTTL = 0 },
		"zero refresh ttl": func(c *Config) { c.RefreshTTL = 0 },
		"short access":     func(c *Config) { c.AccessSecret = []byte("short") },
		"short refresh":    func(c *Config) { c.RefreshSecret = []byte("short") },
		"shared secret":    func(c *Config) { c.RefreshSecret = c.AccessSecret },
		"negative leeway":  func(c *Config) { c.Leeway = -time.Second },
		"huge leeway":      func(c *Config) { c.Leeway = time.Hour },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected config rejection", name)
		}
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	for _, kind := range []Kind{KindAccess, KindRefresh} {
		token, err := m.Issue(kind, testIdentity())
		if err != nil {
			t.Fatalf("issue %s: %v", kind, err)
		}

		res := m.Verify(kind, token)
		if res.Status != StatusValid {
			t.Fatalf("verify %s: expected valid, got %s (%v)", kind, res.Status, res.Err)
		}
		if got := res.Claims.Identity(); got != testIdentity() {
			t.Fatalf("verify %s: identity mismatch: %+v", kind, got)
		}
		if got := res.Claims.IssuedAt.Unix(); got != clock.now.Unix() {
			t.Fatalf("verify %s: unexpected iat %d", kind, got)
		}
		if got := res.Claims.ExpiresAt.Time.Sub(res.Claims.IssuedAt.Time); got != m.TTL(kind) {
			t.Fatalf("verify %s: expiry not derived from kind ttl: %s", kind, got)
		}
	}
}

func TestIssueProducesDistinctTokensWithinOneSecond(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	a, err := m.Issue(KindRefresh, testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, err := m.Issue(KindRefresh, testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct refresh tokens for identical claims")
	}
}

func TestVerifyExpiredKeepsClaims(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	token, err := m.Issue(KindAccess, testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = clock.now.Add(15 * time.Minute)
	if res := m.Verify(KindAccess, token); res.Status != StatusValid {
		t.Fatalf("expected token valid at exact expiry second, got %s", res.Status)
	}

	clock.now = clock.now.Add(time.Second)
	res := m.Verify(KindAccess, token)
	if res.Status != StatusExpired {
		t.Fatalf("expected expired, got %s (%v)", res.Status, res.Err)
	}
	if res.Claims == nil || res.Claims.Subject != "user-1" {
		t.Fatal("expected claims on expired result")
	}
}

func TestVerifyLeewayExtendsExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Leeway:        5 * time.Second,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _ := m.Issue(KindAccess, testIdentity())

	clock.now = clock.now.Add(time.Minute + 4*time.Second)
	if res := m.Verify(KindAccess, token); res.Status != StatusValid {
		t.Fatalf("expected valid within leeway, got %s", res.Status)
	}
	clock.now = clock.now.Add(2 * time.Second)
	if res := m.Verify(KindAccess, token); res.Status != StatusExpired {
		t.Fatalf("expected expired past leeway, got %s", res.Status)
	}
}

func TestVerifyRejectsFutureIssuedAt(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: start}
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		Leeway:        5 * time.Second,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	issueAt := func(d time.Duration) string {
		clock.now = start.Add(d)
		token, err := m.Issue(KindAccess, testIdentity())
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		clock.now = start
		return token
	}

	if res := m.Verify(KindAccess, issueAt(5*time.Second)); res.Status != StatusValid {
		t.Fatalf("expected iat within leeway accepted, got %s (%v)", res.Status, res.Err)
	}
	if res := m.Verify(KindAccess, issueAt(6*time.Second)); res.Status != StatusInvalid {
		t.Fatalf("expected iat past leeway rejected, got %s", res.Status)
	}

	strict := newTestManager(t, clock)
	clock.now = start.Add(time.Second)
	token, _ := strict.Issue(KindAccess, testIdentity())
	clock.now = start
	if res := strict.Verify(KindAccess, token); res.Status != StatusInvalid {
		t.Fatalf("expected future iat rejected without leeway, got %s", res.Status)
	}
}

func TestVerifyRejectsCrossKind(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	access, _ := m.Issue(KindAccess, testIdentity())
	refresh, _ := m.Issue(KindRefresh, testIdentity())

	if res := m.Verify(KindRefresh, access); res.Status != StatusInvalid {
		t.Fatalf("access token accepted as refresh: %s", res.Status)
	}
	if res := m.Verify(KindAccess, refresh); res.Status != StatusInvalid {
		t.Fatalf("refresh token accepted as access: %s", res.Status)
	}
}

func TestVerifyRejectsRotatedSecret(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	old := newTestManager(t, clock)
	token, _ := old.Issue(KindAccess, testIdentity())

	rotated, err := NewManager(Config{
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		AccessSecret:  []byte("rotated-access-secret-rotated-0123456789"),
		RefreshSecret: testRefreshSecret,
		Issuer:        "gosession-test",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	res := rotated.Verify(KindAccess, token)
	if res.Status != StatusInvalid {
		t.Fatalf("expected invalid for old secret, got %s", res.Status)
	}

	// Still invalid once expired: expiry is only reported for verified signatures.
	clock.now = clock.now.Add(time.Hour)
	if res := rotated.Verify(KindAccess, token); res.Status != StatusInvalid {
		t.Fatalf("expected invalid for expired token with old secret, got %s", res.Status)
	}
}

func TestVerifyRejectsEveryTamperedByte(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)
	token, _ := m.Issue(KindAccess, testIdentity())

	for i := 0; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]
		if res := m.Verify(KindAccess, tampered); res.Status != StatusInvalid {
			t.Fatalf("tampered byte %d accepted with status %s", i, res.Status)
		}
	}
}

func TestVerifyRejectsForeignAlgorithmAndIssuer(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "gosession-test",
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}

	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if res := m.Verify(KindAccess, none); res.Status != StatusInvalid {
		t.Fatalf("alg none accepted: %s", res.Status)
	}

	hs512, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString(testAccessSecret)
	if res := m.Verify(KindAccess, hs512); res.Status != StatusInvalid {
		t.Fatalf("hs512 accepted: %s", res.Status)
	}

	claims.Issuer = "someone-else"
	foreign, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testAccessSecret)
	if res := m.Verify(KindAccess, foreign); res.Status != StatusInvalid {
		t.Fatalf("foreign issuer accepted: %s", res.Status)
	}
}

func TestVerifyRejectsMissingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, clock)

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:  "user-1",
		Issuer:   "gosession-test",
		IssuedAt: gjwt.NewNumericDate(clock.now),
	}}
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testAccessSecret)
	if res := m.Verify(KindAccess, token); res.Status != StatusInvalid {
		t.Fatalf("token without exp accepted: %s", res.Status)
	}
}

func TestKeyIDMustMatch(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		KeyID:         "k1",
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, _ := m.Issue(KindAccess, testIdentity())
	if res := m.Verify(KindAccess, token); res.Status != StatusValid {
		t.Fatalf("expected valid with matching kid, got %s", res.Status)
	}

	plain := newTestManager(t, clock)
	other, _ := plain.Issue(KindAccess, testIdentity())
	if res := m.Verify(KindAccess, other); res.Status != StatusInvalid {
		t.Fatalf("expected token without kid to be rejected, got %s", res.Status)
	}
}

func TestVerifyEmptyAndGarbage(t *testing.T) {
	m := newTestManager(t, &fakeClock{now: time.Unix(1_700_000_000, 0)})
	for _, in := range []string{"", "abc", "a.b.c", strings.Repeat(".", 10)} {
		if res := m.Verify(KindAccess, in); res.Status != StatusInvalid {
			t.Fatalf("input %q accepted: %s", in, res.Status)
		}
	}
}
