package goSession

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/csrf"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/rs/zerolog"
)

// Builder assembles an [Engine]. A Builder is single-use: Build may
// succeed only once.
type Builder struct {
	config Config
	store  session.Store
	logger zerolog.Logger
	now    func() time.Time

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the session store. Required.
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithLogger sets the structured logger. Defaults to zerolog.Nop.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the token clock. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithAuditSink sets the destination for audit events. It has no effect
// unless Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("session store required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := b.logger.With().Str("component", "goSession").Logger()

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           b.now,
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}

	// -------- COOKIES --------
	ct, err := cookie.New(cookie.Config{
		Secure:        cfg.Cookie.Secure,
		Domain:        cfg.Cookie.Domain,
		AccessMaxAge:  cfg.Cookie.AccessMaxAge,
		RefreshMaxAge: cfg.Cookie.RefreshMaxAge,
		CSRFMaxAge:    cfg.Cookie.CSRFMaxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("cookie: %w", err)
	}
	if !cfg.Cookie.Secure {
		log.Warn().Msg("session cookies are not marked Secure")
	}

	// -------- PASSWORDS --------
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}

	engine := &Engine{
		config:       cfg,
		store:        b.store,
		jwtManager:   jm,
		cookies:      ct,
		csrf:         csrf.New(cfg.CSRF.HeaderName),
		passwordHash: ph,
		log:          log,
		metrics:      NewMetrics(cfg.Metrics),
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, log, b.now)

	issueAccess := func(id jwt.Identity) (string, error) { return jm.Issue(jwt.KindAccess, id) }
	issueRefresh := func(id jwt.Identity) (string, error) { return jm.Issue(jwt.KindRefresh, id) }

	engine.flows = flows.New(flows.Deps{
		Authenticate: flows.AuthDeps{
			VerifyAccess:  func(s string) jwt.Result { return jm.Verify(jwt.KindAccess, s) },
			VerifyRefresh: func(s string) jwt.Result { return jm.Verify(jwt.KindRefresh, s) },
			IssueAccess:   issueAccess,
			IssueRefresh:  issueRefresh,
			Fingerprint:   internal.Fingerprint,
			StoreTimeout:  cfg.Store.Timeout,
			Warn:          engine.warn,
			SessionStore:  b.store,
		},
		Login: flows.LoginDeps{
			VerifyPassword: ph.Verify,
			DummyVerify:    ph.DummyVerify,
			IssueAccess:    issueAccess,
			IssueRefresh:   issueRefresh,
			Fingerprint:    internal.Fingerprint,
			NewCSRFSecret:  csrf.NewSecret,
			StoreTimeout:   cfg.Store.Timeout,
			SessionStore:   b.store,
		},
		Logout: flows.LogoutDeps{
			StoreTimeout: cfg.Store.Timeout,
			SessionStore: b.store,
		},
	})

	b.built = true

	log.Debug().
		Str("mode", cfg.ValidationMode.String()).
		Dur("access_ttl", cfg.JWT.AccessTTL).
		Dur("refresh_ttl", cfg.JWT.RefreshTTL).
		Msg("engine built")

	return engine, nil
}
