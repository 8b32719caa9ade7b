package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// AuthFailureKind classifies authenticate failures for root-level mapping.
type AuthFailureKind int

const (
	AuthFailureNone AuthFailureKind = iota
	AuthFailureNoToken
	AuthFailureTokenInvalid
	AuthFailureSessionExpired
	AuthFailureInvalidSession
	AuthFailureReuseDetected
	AuthFailureIssue
)

// AuthInput carries the raw cookie values of one request.
type AuthInput struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult carries either the authenticated identity or failure metadata.
// AccessToken and RefreshToken are set only when Rotated is true.
type AuthResult struct {
	Failure      AuthFailureKind
	Err          error
	Reason       string
	Identity     jwt.Identity
	Rotated      bool
	ClearCookies bool
	AccessToken  string
	RefreshToken string
}

type AuthSessionStore interface {
	FindByID(ctx context.Context, subjectID string) (session.UserRecord, error)
	CompareAndRotateRefresh(ctx context.Context, subjectID, expected, next string) error
	ClearRefresh(ctx context.Context, subjectID string) error
}

// AuthDeps captures authenticate flow dependencies.
type AuthDeps struct {
	VerifyAccess  func(string) jwt.Result
	VerifyRefresh func(string) jwt.Result
	IssueAccess   func(jwt.Identity) (string, error)
	IssueRefresh  func(jwt.Identity) (string, error)
	Fingerprint   func(string) string
	Strict        bool
	StoreTimeout  time.Duration
	Warn          func(string, ...any)
	SessionStore  AuthSessionStore
}

// RunAuthenticate drives one request through the access/refresh state machine.
//
// A valid access token is accepted without I/O unless Strict is set. An
// expired (or absent) access token with a refresh cookie enters renewal;
// an invalid access token never does.
func RunAuthenticate(ctx context.Context, in AuthInput, deps AuthDeps) AuthResult {
	if in.AccessToken == "" && in.RefreshToken == "" {
		return AuthResult{Failure: AuthFailureNoToken, Reason: "no_cookies"}
	}

	if in.AccessToken != "" {
		res := deps.VerifyAccess(in.AccessToken)
		switch res.Status {
		case jwt.StatusValid:
			return acceptAccess(ctx, res.Claims, deps)
		case jwt.StatusExpired:
			// fall through to renewal
		default:
			return AuthResult{Failure: AuthFailureTokenInvalid, Err: res.Err, Reason: "access_invalid"}
		}
	}

	return renew(ctx, in.RefreshToken, deps)
}

func acceptAccess(ctx context.Context, claims *jwt.Claims, deps AuthDeps) AuthResult {
	id := claims.Identity()
	if !deps.Strict {
		return AuthResult{Identity: id}
	}

	sctx, cancel := withStoreTimeout(ctx, deps.StoreTimeout)
	defer cancel()

	if _, err := deps.SessionStore.FindByID(sctx, id.SubjectID); err != nil {
		return AuthResult{
			Failure:  AuthFailureInvalidSession,
			Err:      err,
			Reason:   storeReason(sctx, err),
			Identity: id,
		}
	}
	return AuthResult{Identity: id}
}
