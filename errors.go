package goSession

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable machine-readable identifier of an authentication
// failure. It is safe to expose to clients.
type ErrorCode string

const (
	CodeNoTokenProvided      ErrorCode = "no_token_provided"
	CodeTokenExpired         ErrorCode = "token_expired"
	CodeInvalidToken         ErrorCode = "invalid_token"
	CodeSessionExpired       ErrorCode = "session_expired"
	CodeInvalidSession       ErrorCode = "invalid_session"
	CodeRefreshReuseDetected ErrorCode = "refresh_reuse_detected"
	CodeCSRFMissing          ErrorCode = "csrf_missing"
	CodeCSRFMismatch         ErrorCode = "csrf_mismatch"
	CodeInvalidCredentials   ErrorCode = "invalid_credentials"
	CodeInternal             ErrorCode = "internal_error"
)

// Error is the typed rejection returned by Engine operations.
//
// Two Errors match under errors.Is when their codes are equal, so callers
// compare against the exported sentinels. The wrapped cause is reachable
// through errors.Unwrap but never appears in Message.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.cause)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// withCause returns a copy of e carrying cause.
func (e *Error) withCause(cause error) *Error {
	out := *e
	out.cause = cause
	return &out
}

var (
	// ErrNoTokenProvided means the request carried neither session cookie.
	ErrNoTokenProvided = &Error{Code: CodeNoTokenProvided, Status: http.StatusUnauthorized, Message: "no token provided"}
	// ErrTokenExpired means the access token expired and could not be renewed.
	ErrTokenExpired = &Error{Code: CodeTokenExpired, Status: http.StatusUnauthorized, Message: "token expired"}
	// ErrTokenInvalid means the access token failed verification.
	ErrTokenInvalid = &Error{Code: CodeInvalidToken, Status: http.StatusUnauthorized, Message: "invalid token"}
	// ErrSessionExpired means renewal was impossible; the caller must log in again.
	ErrSessionExpired = &Error{Code: CodeSessionExpired, Status: http.StatusUnauthorized, Message: "session expired"}
	// ErrInvalidSession means the session could not be confirmed against the store.
	ErrInvalidSession = &Error{Code: CodeInvalidSession, Status: http.StatusUnauthorized, Message: "invalid session"}
	// ErrRefreshReuseDetected means a rotated-away refresh token was replayed.
	// The session has been revoked.
	ErrRefreshReuseDetected = &Error{Code: CodeRefreshReuseDetected, Status: http.StatusForbidden, Message: "refresh token reuse detected"}
	// ErrCSRFMissing means a state-changing request lacked the cookie or header.
	ErrCSRFMissing = &Error{Code: CodeCSRFMissing, Status: http.StatusForbidden, Message: "csrf token missing"}
	// ErrCSRFMismatch means the cookie and header values differ.
	ErrCSRFMismatch = &Error{Code: CodeCSRFMismatch, Status: http.StatusForbidden, Message: "csrf token mismatch"}
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"}
	// ErrInternal covers signing and backend failures outside the session state machine.
	ErrInternal = &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal error"}

	// ErrEngineNotReady is returned by operations on an Engine not produced by Build.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidRouteMode is returned for a RouteMode outside the declared constants.
	ErrInvalidRouteMode = errors.New("invalid route validation mode")
)

// StatusCode maps err to an HTTP status: 401 for token and session
// failures, 403 for CSRF and reuse, 500 for everything else.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the ErrorCode carried by err, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
