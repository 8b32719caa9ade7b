// Command sessiond is a demo HTTP server for goSession.
//
// Configuration comes from the environment (and .env when present):
//
//	SESSIOND_ADDR          listen address, default :8080
//	SESSIOND_STORE         memory | redis | sqlite, default redis
//	REDIS_ADDR             redis address; empty starts an embedded miniredis
//	SQLITE_DSN             sqlite database for SESSIOND_STORE=sqlite
//	ACCESS_TOKEN_SECRET    >= 32 bytes; random per process when empty
//	REFRESH_TOKEN_SECRET   >= 32 bytes; random per process when empty
//	COOKIE_SECURE          default true; set false for plain-http localhost
//	SESSIOND_STRICT        confirm every access token against the store
//
// Endpoints:
//
//	POST /login     {"email":"...","password":"..."}
//	GET  /me        current identity; renews the session when the access cookie expired
//	POST /logout    requires the X-CSRF-Token header
//	GET  /healthz   store ping
//	GET  /metrics   Prometheus text format
//
// Example:
//
//	COOKIE_SECURE=false go run ./cmd/sessiond
//	curl -i -c jar.txt -X POST localhost:8080/login \
//	  -d '{"email":"alice@example.com","password":"correct-horse-battery"}'
//	curl -i -b jar.txt -c jar.txt localhost:8080/me
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	s := loadSettings()

	zerolog.SetGlobalLevel(parseLevel(s.LogLevel))
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sessiond").Logger()
	log.Logger = logger

	be, err := openBackend(s)
	if err != nil {
		logger.Fatal().Err(err).Msg("store init failed")
	}
	defer be.close()

	cfg, err := engineConfig(s)
	if err != nil {
		logger.Fatal().Err(err).Msg("config failed")
	}

	if err := seedDemoUser(be, cfg, s); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}

	b := goSession.New().
		WithConfig(cfg).
		WithStore(be.store).
		WithLogger(logger)
	if s.AuditLog {
		b = b.WithAuditSink(goSession.NewLogSink(logger.With().Str("component", "audit").Logger()))
	}
	engine, err := b.Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("engine build failed")
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           newRouter(engine, be, s),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.Addr).Str("store", s.Store).Msg("listening")
		serverErr <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case got := <-sig:
		logger.Info().Str("signal", got.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}
}

func newRouter(engine *goSession.Engine, be *backend, s settings) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.ClientIP(s.TrustProxy))
	r.Use(requestLogger(engine.Logger()))

	guard := middleware.Guard(engine, goSession.ModeInherit)

	r.HandleFunc("/login", loginHandler(engine)).Methods(http.MethodPost)
	r.Handle("/logout", guard(logoutHandler(engine))).Methods(http.MethodPost)
	r.Handle("/me", guard(http.HandlerFunc(meHandler))).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler(be.ping)).Methods(http.MethodGet)
	r.Handle("/metrics", prometheus.NewExporter(engine).Handler()).Methods(http.MethodGet)

	return r
}

func engineConfig(s settings) (goSession.Config, error) {
	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessTTL = s.AccessTTL
	cfg.JWT.RefreshTTL = s.RefreshTTL
	cfg.Cookie.Secure = s.SecureCookies
	cfg.Cookie.Domain = s.CookieDomain
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Audit = goSession.AuditConfig{Enabled: s.AuditLog, BufferSize: 1024, DropIfFull: true}
	if s.Strict {
		cfg.ValidationMode = goSession.ModeStrict
	}

	var err error
	if cfg.JWT.AccessSecret, err = secretOrRandom("ACCESS_TOKEN_SECRET", s.AccessSecret); err != nil {
		return cfg, err
	}
	if cfg.JWT.RefreshSecret, err = secretOrRandom("REFRESH_TOKEN_SECRET", s.RefreshSecret); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func secretOrRandom(name, value string) ([]byte, error) {
	if value != "" {
		return []byte(value), nil
	}
	generated, err := internal.RandomString(32)
	if err != nil {
		return nil, err
	}
	log.Warn().Str("var", name).Msg("secret unset, generated a per-process secret; sessions will not survive a restart")
	return []byte(generated), nil
}

func seedDemoUser(be *backend, cfg goSession.Config, s settings) error {
	if s.DemoEmail == "" {
		return nil
	}
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return err
	}
	hash, err := ph.Hash(s.DemoPassword)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return be.seed(ctx, session.UserRecord{
		SubjectID:    "demo-user",
		Email:        s.DemoEmail,
		DisplayName:  "Demo User",
		PasswordHash: hash,
	})
}
