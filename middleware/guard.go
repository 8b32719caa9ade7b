package middleware

import (
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Guard returns middleware that authenticates every request with routeMode
// and rejects failures before next runs. Pass goSession.ModeInherit to use
// the engine's configured mode.
func Guard(engine *goSession.Engine, routeMode goSession.RouteMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, goSession.ErrEngineNotReady)
				return
			}

			id, err := engine.AuthenticateMode(w, r, routeMode)
			if err != nil {
				log := engine.Logger()
				log.Debug().
					Str("path", r.URL.Path).
					Str("code", string(goSession.CodeOf(err))).
					Msg("request rejected")
				WriteError(w, err)
				return
			}

			ctx := goSession.WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP attaches the caller address to the request context so audit
// events carry it. Forwarding headers are honored only when trustProxy is
// set.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := goSession.WithClientIP(r.Context(), clientIP(r, trustProxy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
