package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(store string) settings {
	return settings{
		Store:         store,
		RedisPrefix:   "gs-test",
		SQLiteDSN:     "file::memory:",
		AccessSecret:  "sessiond-access-secret-0123456789abcdef",
		RefreshSecret: "sessiond-refresh-secret-0123456789abcdef",
		AccessTTL:     goSession.DefaultConfig().JWT.AccessTTL,
		RefreshTTL:    goSession.DefaultConfig().JWT.RefreshTTL,
		DemoEmail:     "demo@example.com",
		DemoPassword:  "demo-password-123",
	}
}

func newTestRouter(t *testing.T, s settings) http.Handler {
	t.Helper()
	be, err := openBackend(s)
	require.NoError(t, err)
	t.Cleanup(be.close)

	cfg, err := engineConfig(s)
	require.NoError(t, err)
	cfg.Password = goSession.PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	require.NoError(t, seedDemoUser(be, cfg, s))

	engine, err := goSession.New().WithConfig(cfg).WithStore(be.store).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return newRouter(engine, be, s)
}

func do(h http.Handler, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDemoFlow(t *testing.T) {
	for _, store := range []string{"memory", "redis", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			h := newTestRouter(t, testSettings(store))

			body, _ := json.Marshal(loginRequest{Email: "demo@example.com", Password: "demo-password-123"})
			rec := do(h, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)), nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

			var login identityResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))
			assert.Equal(t, "demo-user", login.SubjectID)
			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 3)

			rec = do(h, httptest.NewRequest(http.MethodGet, "/me", nil), cookies)
			require.Equal(t, http.StatusOK, rec.Code)

			// logout without the header is a CSRF rejection
			rec = do(h, httptest.NewRequest(http.MethodPost, "/logout", nil), cookies)
			assert.Equal(t, http.StatusForbidden, rec.Code)

			req := httptest.NewRequest(http.MethodPost, "/logout", nil)
			req.Header.Set("X-CSRF-Token", login.CSRFToken)
			rec = do(h, req, cookies)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			for _, c := range rec.Result().Cookies() {
				assert.Contains(t, []string{cookie.NameAccess, cookie.NameRefresh, cookie.NameCSRF}, c.Name)
				assert.Less(t, c.MaxAge, 0)
			}

			rec = do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil), nil)
			assert.Contains(t, rec.Body.String(), "gosession_logout_total 1\n")
		})
	}
}

func TestLoginRejectsBadBody(t *testing.T) {
	h := newTestRouter(t, testSettings("memory"))
	rec := do(h, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte("{"))), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ := json.Marshal(loginRequest{Email: "demo@example.com", Password: "wrong-password"})
	rec = do(h, httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body)), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, testSettings("memory"))
	rec := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownStore(t *testing.T) {
	_, err := openBackend(settings{Store: "etcd"})
	assert.Error(t, err)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SESSIOND_TEST_VAR", "")
	assert.Equal(t, "fallback", GetEnv("SESSIOND_TEST_VAR", "fallback"))
	t.Setenv("SESSIOND_TEST_VAR", "set")
	assert.Equal(t, "set", GetEnv("SESSIOND_TEST_VAR", "fallback"))
}
