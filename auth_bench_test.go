package goSession

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/goSession/cookie"
)

func BenchmarkAuthenticateJWTOnly(b *testing.B) {
	h := newHarness(b, testConfig())
	j := h.login(b)
	r := j.request(http.MethodGet, false)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.engine.Authenticate(httptest.NewRecorder(), r); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateStrictRedis(b *testing.B) {
	cfg := testConfig()
	cfg.ValidationMode = ModeStrict
	h, _ := newRedisHarness(b, cfg)
	j := h.login(b)
	r := j.request(http.MethodGet, false)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.engine.Authenticate(httptest.NewRecorder(), r); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateRotate(b *testing.B) {
	h := newHarness(b, testConfig())
	j := h.login(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// renewal path every iteration
		j.access = ""
		rec := httptest.NewRecorder()
		if _, err := h.engine.Authenticate(rec, j.request(http.MethodGet, false)); err != nil {
			b.Fatalf("rotate failed: %v", err)
		}
		j.refresh = responseCookies(rec)[cookie.NameRefresh].Value
	}
}

func BenchmarkCSRFCheck(b *testing.B) {
	h := newHarness(b, testConfig())
	j := h.login(b)
	r := j.request(http.MethodPost, true)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.engine.Authenticate(httptest.NewRecorder(), r); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricAuthenticateSuccess)
		}
	})
}

func BenchmarkLoginLogout(b *testing.B) {
	h := newHarness(b, testConfig())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res, err := h.engine.Login(ctx, httptest.NewRecorder(), testEmail, testPassword)
		if err != nil {
			b.Fatalf("login failed: %v", err)
		}
		if err := h.engine.Logout(ctx, httptest.NewRecorder(), res.Identity.SubjectID); err != nil {
			b.Fatalf("logout failed: %v", err)
		}
	}
}
