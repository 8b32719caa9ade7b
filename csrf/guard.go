package csrf

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/internal"
)

// DefaultHeaderName is the request header that must echo the CSRF cookie.
const DefaultHeaderName = "X-CSRF-Token"

const secretBytes = 32

var (
	// ErrMissing is returned when the cookie or the header value is absent.
	ErrMissing = errors.New("csrf token missing")
	// ErrMismatch is returned when cookie and header values differ.
	ErrMismatch = errors.New("csrf token mismatch")
)

// Guard validates double-submit CSRF tokens.
type Guard struct {
	HeaderName string
}

// New returns a Guard reading headerName, or DefaultHeaderName when empty.
func New(headerName string) Guard {
	if headerName == "" {
		headerName = DefaultHeaderName
	}
	return Guard{HeaderName: headerName}
}

// Header returns the header value of r the guard compares against.
func (g Guard) Header(r *http.Request) string {
	name := g.HeaderName
	if name == "" {
		name = DefaultHeaderName
	}
	return r.Header.Get(name)
}

// Check passes safe methods unconditionally. For any other method the cookie
// and header values must both be present and byte-identical.
func (g Guard) Check(method, cookieVal, headerVal string) error {
	if IsSafeMethod(method) {
		return nil
	}
	if cookieVal == "" || headerVal == "" {
		return ErrMissing
	}
	if len(cookieVal) != len(headerVal) {
		return ErrMismatch
	}
	if subtle.ConstantTimeCompare([]byte(cookieVal), []byte(headerVal)) != 1 {
		return ErrMismatch
	}
	return nil
}

// IsSafeMethod reports whether method is exempt from CSRF checks.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// NewSecret returns 32 random bytes encoded as unpadded base64url.
func NewSecret() (string, error) {
	return internal.RandomString(secretBytes)
}
