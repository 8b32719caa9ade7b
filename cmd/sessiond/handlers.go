package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type identityResponse struct {
	SubjectID   string `json:"subject_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	Rotated     bool   `json:"rotated,omitempty"`
	CSRFToken   string `json:"csrf_token,omitempty"`
}

func loginHandler(engine *goSession.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
			middleware.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]string{"code": "bad_request", "message": "invalid json body"},
			})
			return
		}

		res, err := engine.Login(r.Context(), w, body.Email, body.Password)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}

		middleware.WriteJSON(w, http.StatusOK, identityResponse{
			SubjectID:   res.Identity.SubjectID,
			Email:       res.Identity.Email,
			DisplayName: res.Identity.DisplayName,
			CSRFToken:   res.CSRFToken,
		})
	}
}

// logoutHandler runs behind a guard, so the session and CSRF header are
// already verified.
func logoutHandler(engine *goSession.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := goSession.IdentityFromContext(r.Context())
		subject := ""
		if id != nil {
			subject = id.SubjectID
		}
		if err := engine.Logout(r.Context(), w, subject); err != nil {
			middleware.WriteError(w, err)
			return
		}
		middleware.NoCache(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := goSession.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, goSession.ErrNoTokenProvided)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, identityResponse{
		SubjectID:   id.SubjectID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Rotated:     id.Rotated,
	})
}

func healthHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// requestLogger tags every request with a ULID request id and logs its
// outcome.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-Id")
			if reqID == "" {
				reqID = ulid.Make().String()
			}
			w.Header().Set("X-Request-Id", reqID)

			rl := logger.With().
				Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(rl.WithContext(r.Context())))

			rl.Info().
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Str("client_ip", goSession.ClientIPFromContext(r.Context())).
				Msg("request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
