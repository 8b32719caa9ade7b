package goSession

import (
	"context"
	"net/http"
)

// Logout revokes the stored refresh fingerprint for subjectID and clears
// all session cookies. Cookies are cleared even when the store call fails;
// the store error is returned wrapped in [ErrInternal].
func (e *Engine) Logout(ctx context.Context, w http.ResponseWriter, subjectID string) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}

	e.cookies.ClearAll(w)
	e.metricInc(MetricLogout)

	if err := e.flows.Logout(ctx, subjectID); err != nil {
		e.metricInc(MetricStoreFailure)
		e.log.Warn().Str("subject_id", subjectID).AnErr("error", err).Msg("logout store call failed")
		wrapped := ErrInternal.withCause(err)
		e.emitAudit(ctx, AuditEvent{EventType: auditEventLogout, UserID: subjectID, Reason: "store_unavailable"}, wrapped)
		return wrapped
	}

	e.emitAudit(ctx, AuditEvent{EventType: auditEventLogout, UserID: subjectID, Success: true}, nil)
	return nil
}
