package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/session"
)

func withStoreTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func storeReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, session.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "store_timeout"
	default:
		return "store_unavailable"
	}
}
