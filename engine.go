package goSession

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/cookie"
	"github.com/MrEthical07/goSession/csrf"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/rs/zerolog"
)

// Engine is the cookie session orchestrator. It is safe for concurrent use
// after [Builder.Build].
type Engine struct {
	config       Config
	store        session.Store
	jwtManager   *jwt.Manager
	cookies      *cookie.Transport
	csrf         csrf.Guard
	passwordHash *password.Argon2
	flows        flows.Service
	audit        *auditDispatcher
	metrics      *Metrics
	log          zerolog.Logger
}

// Close flushes pending audit events. The store is owned by the caller and
// is not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full or the emitting request was cancelled first.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CSRFHeaderName returns the header the engine reads the CSRF token from.
func (e *Engine) CSRFHeaderName() string {
	return e.csrf.HeaderName
}

// Logger returns the engine's component logger.
func (e *Engine) Logger() zerolog.Logger {
	if e == nil {
		return zerolog.Nop()
	}
	return e.log
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// warn adapts the structured logger to the flows' key/value warn hook.
func (e *Engine) warn(msg string, kv ...any) {
	ev := e.log.Warn()
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if err, ok := kv[i+1].(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

// Authenticate runs the request through the session state machine using the
// configured validation mode. See [Engine.AuthenticateMode].
func (e *Engine) Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, error) {
	return e.AuthenticateMode(w, r, ModeInherit)
}

// AuthenticateMode authenticates r and enforces the CSRF check.
//
// A valid access token is accepted directly. An expired or absent access
// token with a refresh cookie triggers a rotation; on success the new access
// and refresh cookies are written to w before the CSRF check runs, since the
// store has already committed the new fingerprint. Replay of a rotated-away
// refresh token revokes the session, clears all cookies and returns
// [ErrRefreshReuseDetected]. Every error is an *Error; use [StatusCode] to
// map it to HTTP.
func (e *Engine) AuthenticateMode(w http.ResponseWriter, r *http.Request, mode RouteMode) (*Identity, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()
	}

	strict, err := e.resolveRouteMode(mode)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	vals := e.cookies.Read(r)

	res := e.flows.Authenticate(ctx, flows.AuthInput{
		AccessToken:  vals.Access,
		RefreshToken: vals.Refresh,
	}, strict)

	if res.Failure != flows.AuthFailureNone {
		authErr := e.authFailure(res)
		if res.ClearCookies {
			e.cookies.ClearAll(w)
		}
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventForFailure(res.Failure),
			UserID:    res.Identity.SubjectID,
			Method:    r.Method,
			Reason:    res.Reason,
		}, authErr)
		return nil, authErr
	}

	if res.Rotated {
		e.cookies.WriteAccess(w, res.AccessToken)
		e.cookies.WriteRefresh(w, res.RefreshToken)
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventRefreshSuccess,
			UserID:    res.Identity.SubjectID,
			Method:    r.Method,
			Success:   true,
		}, nil)
	}

	if err := e.csrf.Check(r.Method, vals.CSRF, e.csrf.Header(r)); err != nil {
		e.metricInc(MetricCSRFRejected)
		csrfErr := ErrCSRFMismatch
		if errors.Is(err, csrf.ErrMissing) {
			csrfErr = ErrCSRFMissing
		}
		e.log.Debug().
			Str("subject_id", res.Identity.SubjectID).
			Str("method", r.Method).
			Str("code", string(csrfErr.Code)).
			Msg("csrf check rejected request")
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventCSRFRejected,
			UserID:    res.Identity.SubjectID,
			Method:    r.Method,
			Reason:    string(csrfErr.Code),
		}, csrfErr)
		return nil, csrfErr
	}

	e.metricInc(MetricAuthenticateSuccess)
	return identityFrom(res.Identity, res.Rotated), nil
}

// authFailure maps a flow failure to its typed error and counts it.
func (e *Engine) authFailure(res flows.AuthResult) *Error {
	if strings.HasPrefix(res.Reason, "store_") {
		e.metricInc(MetricStoreFailure)
	}

	switch res.Failure {
	case flows.AuthFailureNoToken:
		e.metricInc(MetricAuthenticateNoToken)
		return ErrNoTokenProvided
	case flows.AuthFailureTokenInvalid:
		e.metricInc(MetricAuthenticateTokenInvalid)
		return ErrTokenInvalid.withCause(res.Err)
	case flows.AuthFailureSessionExpired:
		e.metricInc(MetricAuthenticateSessionExpired)
		return ErrSessionExpired.withCause(res.Err)
	case flows.AuthFailureInvalidSession:
		e.metricInc(MetricAuthenticateInvalidSession)
		if res.Reason != "user_not_found" {
			e.log.Warn().
				Str("subject_id", res.Identity.SubjectID).
				Str("reason", res.Reason).
				AnErr("error", res.Err).
				Msg("session store check failed closed")
		}
		return ErrInvalidSession.withCause(res.Err)
	case flows.AuthFailureReuseDetected:
		e.metricInc(MetricRefreshReuseDetected)
		e.log.Warn().
			Str("subject_id", res.Identity.SubjectID).
			Msg("refresh token reuse detected, session revoked")
		return ErrRefreshReuseDetected
	default:
		e.log.Error().AnErr("error", res.Err).Str("reason", res.Reason).Msg("token issue failed")
		return ErrInternal.withCause(res.Err)
	}
}

func auditEventForFailure(kind flows.AuthFailureKind) string {
	if kind == flows.AuthFailureReuseDetected {
		return auditEventRefreshReuseDetected
	}
	return auditEventAuthenticateFailure
}

// resolveRouteMode reports whether the effective mode is strict.
func (e *Engine) resolveRouteMode(mode RouteMode) (bool, error) {
	if mode == ModeInherit {
		mode = e.config.ValidationMode
	}
	switch mode {
	case ModeJWTOnly:
		return false, nil
	case ModeStrict:
		return true, nil
	default:
		return false, ErrInvalidRouteMode
	}
}
