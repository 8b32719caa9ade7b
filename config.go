package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/csrf"
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT            JWTConfig
	Cookie         CookieConfig
	CSRF           CSRFConfig
	Store          StoreConfig
	Password       PasswordConfig
	Audit          AuditConfig
	Metrics        MetricsConfig
	ValidationMode ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goSession APIs.
//
// AccessSecret and RefreshSecret must each be at least 32 bytes and must differ.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the attributes of the three session cookies.
// Secure must be true in production; the demo server turns it off for
// plain-HTTP development only.
type CookieConfig struct {
	Secure        bool
	Domain        string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	CSRFMaxAge    time.Duration
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig defines a public type used by goSession APIs.
type CSRFConfig struct {
	HeaderName string
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds every session store call made on the request path.
type StoreConfig struct {
	Timeout time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by goSession APIs.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// AuditConfig defines a public type used by goSession APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goSession APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// ValidationMode selects how a valid access token is confirmed.
type ValidationMode int

const (
	// ModeInherit is only meaningful as a per-route override and defers to Config.ValidationMode.
	ModeInherit ValidationMode = -1

	// ModeJWTOnly trusts a valid access token without touching the store.
	ModeJWTOnly ValidationMode = iota
	// ModeStrict also confirms the subject still exists in the store.
	ModeStrict
)

func (m ValidationMode) String() string {
	switch m {
	case ModeInherit:
		return "inherit"
	case ModeJWTOnly:
		return "jwt_only"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			Issuer:     "goSession",
			Leeway:     0,
		},
		Cookie: CookieConfig{
			Secure:        true,
			AccessMaxAge:  7 * 24 * time.Hour,
			RefreshMaxAge: 30 * 24 * time.Hour,
			CSRFMaxAge:    7 * 24 * time.Hour,
		},
		CSRF: CSRFConfig{
			HeaderName: csrf.DefaultHeaderName,
		},
		Store: StoreConfig{
			Timeout: 2 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		ValidationMode: ModeJWTOnly,
	}
}

// DefaultConfig returns the baseline configuration. Secrets are left empty
// and must be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return errors.New("JWT AccessSecret must be at least 32 bytes")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		return errors.New("JWT RefreshSecret must be at least 32 bytes")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > time.Minute {
		return errors.New("JWT Leeway must be between 0 and 1m")
	}

	// Cookie
	if c.Cookie.AccessMaxAge < 0 || c.Cookie.RefreshMaxAge < 0 || c.Cookie.CSRFMaxAge < 0 {
		return errors.New("Cookie max ages must be >= 0")
	}

	// CSRF
	if c.CSRF.HeaderName == "" {
		return errors.New("CSRF HeaderName must be set")
	}

	// Store
	if c.Store.Timeout < 0 {
		return errors.New("Store Timeout must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Mode
	if c.ValidationMode != ModeJWTOnly && c.ValidationMode != ModeStrict {
		return errors.New("ValidationMode must be ModeJWTOnly or ModeStrict")
	}

	return nil
}
