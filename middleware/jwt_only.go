package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireJWTOnly returns middleware that overrides the validation mode to
// [goSession.ModeJWTOnly] for the wrapped handler. A valid access token is
// accepted without a store read; renewal still consults the store.
func RequireJWTOnly(engine *goSession.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goSession.ModeJWTOnly)
}
