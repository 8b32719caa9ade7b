package goSession

import (
	"context"
	"errors"
)

const (
	auditEventAuthenticateFailure  = "authenticate_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventCSRFRejected         = "csrf_rejected"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLogout               = "logout"
)

// AuditErrorCode is the error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrNoToken            AuditErrorCode = "no_token"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionExpired     AuditErrorCode = "session_expired"
	auditErrInvalidSession     AuditErrorCode = "invalid_session"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrCSRF               AuditErrorCode = "csrf"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit fills the request-derived fields of event and queues it.
func (e *Engine) emitAudit(ctx context.Context, event AuditEvent, err error) {
	if e == nil || e.audit == nil {
		return
	}
	if event.IP == "" {
		event.IP = ClientIPFromContext(ctx)
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}
	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNoTokenProvided):
		return auditErrNoToken
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrInvalidSession):
		return auditErrInvalidSession
	case errors.Is(err, ErrRefreshReuseDetected):
		return auditErrRefreshReuse
	case errors.Is(err, ErrCSRFMissing),
		errors.Is(err, ErrCSRFMismatch):
		return auditErrCSRF
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	default:
		return auditErrInternal
	}
}
