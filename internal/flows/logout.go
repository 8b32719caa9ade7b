package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/session"
)

type LogoutSessionStore interface {
	ClearRefresh(ctx context.Context, subjectID string) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	StoreTimeout time.Duration
	SessionStore LogoutSessionStore
}

// RunLogout clears the stored refresh fingerprint for subjectID. A subject
// that no longer exists has nothing to revoke and is not an error.
func RunLogout(ctx context.Context, subjectID string, deps LogoutDeps) error {
	if subjectID == "" {
		return nil
	}

	sctx, cancel := withStoreTimeout(ctx, deps.StoreTimeout)
	defer cancel()

	err := deps.SessionStore.ClearRefresh(sctx, subjectID)
	if errors.Is(err, session.ErrUserNotFound) {
		return nil
	}
	return err
}
