package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// RequireStrict returns middleware that confirms every access token subject
// against the session store.
func RequireStrict(engine *goSession.Engine) func(http.Handler) http.Handler {
	return Guard(engine, goSession.ModeStrict)
}
