package cookie

import (
	"errors"
	"net/http"
	"time"
)

// Kind identifies one of the three session cookies.
type Kind uint8

const (
	// KindAccess carries the access token.
	KindAccess Kind = iota
	// KindRefresh carries the refresh token.
	KindRefresh
	// KindCSRF carries the script-readable double-submit secret.
	KindCSRF
	kindCount
)

// Cookie names shared with clients.
const (
	NameAccess  = "token"
	NameRefresh = "refreshToken"
	NameCSRF    = "csrfToken"
)

// Spec is the per-kind part of the attribute table.
type Spec struct {
	Name     string
	HttpOnly bool
	MaxAge   time.Duration
}

// Config holds the attributes shared by every session cookie plus per-kind
// storage lifetimes. A zero MaxAge falls back to the default for that kind.
type Config struct {
	Secure        bool
	Domain        string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	CSRFMaxAge    time.Duration
}

// Default storage lifetimes. MaxAge bounds how long the browser keeps a
// cookie; the token's own expiry bounds how long it is trusted.
const (
	DefaultAccessMaxAge  = 7 * 24 * time.Hour
	DefaultRefreshMaxAge = 30 * 24 * time.Hour
	DefaultCSRFMaxAge    = 7 * 24 * time.Hour
)

// Values are the raw cookie values found on a request. Absent cookies are
// empty strings.
type Values struct {
	Access  string
	Refresh string
	CSRF    string
}

// Transport maps tokens to and from cookies. It is immutable after
// construction and safe for concurrent use.
type Transport struct {
	secure   bool
	domain   string
	sameSite http.SameSite
	path     string
	specs    [kindCount]Spec
}

// New builds a Transport from cfg.
func New(cfg Config) (*Transport, error) {
	if cfg.AccessMaxAge < 0 || cfg.RefreshMaxAge < 0 || cfg.CSRFMaxAge < 0 {
		return nil, errors.New("cookie max-age must not be negative")
	}

	t := &Transport{
		secure:   cfg.Secure,
		domain:   cfg.Domain,
		sameSite: http.SameSiteLaxMode,
		path:     "/",
	}
	t.specs[KindAccess] = Spec{Name: NameAccess, HttpOnly: true, MaxAge: orDefault(cfg.AccessMaxAge, DefaultAccessMaxAge)}
	t.specs[KindRefresh] = Spec{Name: NameRefresh, HttpOnly: true, MaxAge: orDefault(cfg.RefreshMaxAge, DefaultRefreshMaxAge)}
	t.specs[KindCSRF] = Spec{Name: NameCSRF, HttpOnly: false, MaxAge: orDefault(cfg.CSRFMaxAge, DefaultCSRFMaxAge)}

	return t, nil
}

// Spec returns the attribute table entry for kind.
func (t *Transport) Spec(kind Kind) Spec {
	return t.specs[kind]
}

// WriteAccess sets the access token cookie.
func (t *Transport) WriteAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, t.build(KindAccess, token, false))
}

// WriteRefresh sets the refresh token cookie.
func (t *Transport) WriteRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, t.build(KindRefresh, token, false))
}

// WriteCSRF sets the CSRF secret cookie. It is never HttpOnly.
func (t *Transport) WriteCSRF(w http.ResponseWriter, secret string) {
	http.SetCookie(w, t.build(KindCSRF, secret, false))
}

// Read extracts the raw session cookie values from r.
func (t *Transport) Read(r *http.Request) Values {
	return Values{
		Access:  value(r, t.specs[KindAccess].Name),
		Refresh: value(r, t.specs[KindRefresh].Name),
		CSRF:    value(r, t.specs[KindCSRF].Name),
	}
}

// ClearAll expires all three cookies using the attributes they were written
// with. Browsers ignore a clear whose Path, Domain, Secure or SameSite differs
// from the original cookie.
func (t *Transport) ClearAll(w http.ResponseWriter) {
	for kind := Kind(0); kind < kindCount; kind++ {
		http.SetCookie(w, t.build(kind, "", true))
	}
}

func (t *Transport) build(kind Kind, val string, expire bool) *http.Cookie {
	spec := t.specs[kind]
	c := &http.Cookie{
		Name:     spec.Name,
		Value:    val,
		Path:     t.path,
		Domain:   t.domain,
		Secure:   t.secure,
		HttpOnly: spec.HttpOnly,
		SameSite: t.sameSite,
		MaxAge:   int(spec.MaxAge / time.Second),
	}
	if expire {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	return c
}

func value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}
