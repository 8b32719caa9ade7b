package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// renew verifies the refresh token and swaps its stored fingerprint for a
// freshly issued one. A fingerprint mismatch means the presented token was
// already rotated away and the session is killed.
func renew(ctx context.Context, refreshToken string, deps AuthDeps) AuthResult {
	if refreshToken == "" {
		return AuthResult{Failure: AuthFailureSessionExpired, Reason: "no_refresh"}
	}

	res := deps.VerifyRefresh(refreshToken)
	if res.Status != jwt.StatusValid {
		reason := "refresh_invalid"
		if res.Status == jwt.StatusExpired {
			reason = "refresh_expired"
		}
		return AuthResult{Failure: AuthFailureSessionExpired, Err: res.Err, Reason: reason}
	}
	subjectID := res.Claims.Subject

	sctx, cancel := withStoreTimeout(ctx, deps.StoreTimeout)
	defer cancel()

	rec, err := deps.SessionStore.FindByID(sctx, subjectID)
	if err != nil {
		return AuthResult{
			Failure:  AuthFailureInvalidSession,
			Err:      err,
			Reason:   storeReason(sctx, err),
			Identity: res.Claims.Identity(),
		}
	}

	id := jwt.Identity{
		SubjectID:   rec.SubjectID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
	}

	// Both tokens are signed before the swap so a committed rotation always
	// has cookies to deliver.
	nextRefresh, err := deps.IssueRefresh(id)
	if err != nil {
		return AuthResult{Failure: AuthFailureIssue, Err: err, Reason: "issue_refresh", Identity: id}
	}
	nextAccess, err := deps.IssueAccess(id)
	if err != nil {
		return AuthResult{Failure: AuthFailureIssue, Err: err, Reason: "issue_access", Identity: id}
	}

	err = deps.SessionStore.CompareAndRotateRefresh(
		sctx,
		subjectID,
		deps.Fingerprint(refreshToken),
		deps.Fingerprint(nextRefresh),
	)
	switch {
	case err == nil:
		return AuthResult{
			Identity:     id,
			Rotated:      true,
			AccessToken:  nextAccess,
			RefreshToken: nextRefresh,
		}
	case errors.Is(err, session.ErrRefreshMismatch):
		killSession(ctx, subjectID, deps)
		return AuthResult{
			Failure:      AuthFailureReuseDetected,
			Err:          err,
			Reason:       "refresh_reuse",
			Identity:     id,
			ClearCookies: true,
		}
	case errors.Is(err, session.ErrRefreshNotActive):
		return AuthResult{Failure: AuthFailureSessionExpired, Err: err, Reason: "refresh_not_active", Identity: id}
	default:
		return AuthResult{Failure: AuthFailureInvalidSession, Err: err, Reason: storeReason(sctx, err), Identity: id}
	}
}

// killSession clears the stored refresh fingerprint after reuse. It runs
// detached from request cancellation so a disconnecting client cannot skip it.
func killSession(ctx context.Context, subjectID string, deps AuthDeps) {
	cctx, cancel := withStoreTimeout(context.WithoutCancel(ctx), deps.StoreTimeout)
	defer cancel()

	if err := deps.SessionStore.ClearRefresh(cctx, subjectID); err != nil && deps.Warn != nil {
		deps.Warn("clear refresh after reuse failed", "subject_id", subjectID, "error", err)
	}
}
