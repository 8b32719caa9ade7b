package goSession

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goSession/internal/flows"
)

// Login checks email and password, issues a fresh token pair and CSRF
// secret, and writes all three cookies to w. Unknown users and wrong
// passwords both return [ErrInvalidCredentials]. Any previously issued
// refresh token for the user stops working.
func (e *Engine) Login(ctx context.Context, w http.ResponseWriter, email, password string) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Login(ctx, email, password)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventLoginFailure, UserID: res.Identity.SubjectID, Reason: res.Reason}, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	case flows.LoginFailureStore:
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricStoreFailure)
		e.log.Warn().
			Str("subject_id", res.Identity.SubjectID).
			Str("reason", res.Reason).
			AnErr("error", res.Err).
			Msg("login store call failed")
		err := ErrInternal.withCause(res.Err)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventLoginFailure, UserID: res.Identity.SubjectID, Reason: res.Reason}, err)
		return nil, err
	default:
		e.metricInc(MetricLoginFailure)
		e.log.Error().AnErr("error", res.Err).Str("reason", res.Reason).Msg("login token issue failed")
		err := ErrInternal.withCause(res.Err)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventLoginFailure, UserID: res.Identity.SubjectID, Reason: res.Reason}, err)
		return nil, err
	}

	e.cookies.WriteAccess(w, res.AccessToken)
	e.cookies.WriteRefresh(w, res.RefreshToken)
	e.cookies.WriteCSRF(w, res.CSRFToken)

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{EventType: auditEventLoginSuccess, UserID: res.Identity.SubjectID, Success: true}, nil)

	return &LoginResult{
		Identity:  *identityFrom(res.Identity, false),
		CSRFToken: res.CSRFToken,
	}, nil
}
