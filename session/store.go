package session

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUserNotFound is returned when no user record exists for the lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrRefreshMismatch is returned by CompareAndRotateRefresh when the stored
	// fingerprint differs from the expected one. The presented refresh token
	// was already rotated away.
	ErrRefreshMismatch = errors.New("refresh token mismatch")

	// ErrRefreshNotActive is returned by CompareAndRotateRefresh when the user
	// has no stored refresh fingerprint (logged out or killed).
	ErrRefreshNotActive = errors.New("refresh token not active")

	// ErrEmailTaken is returned when a write would point an email that
	// already belongs to one subject at another.
	ErrEmailTaken = errors.New("email already in use")

	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// UserRecord is the slice of a user the session core reads and writes.
// RefreshTokenHash is empty when the user has no live refresh token.
type UserRecord struct {
	SubjectID        string
	Email            string
	DisplayName      string
	PasswordHash     string
	RefreshTokenHash string
}

// Store is the user-record collaborator consumed by the engine.
//
// Refresh values are opaque fingerprints; implementations compare them as
// strings and never see raw tokens.
type Store interface {
	FindByID(ctx context.Context, subjectID string) (UserRecord, error)
	FindByEmail(ctx context.Context, email string) (UserRecord, error)

	// SetRefresh replaces the stored fingerprint unconditionally.
	SetRefresh(ctx context.Context, subjectID, hash string) error

	// CompareAndRotateRefresh replaces expected with next in a single atomic
	// step. It returns nil, ErrRefreshMismatch, ErrRefreshNotActive or
	// ErrUserNotFound; anything else is a backend failure.
	CompareAndRotateRefresh(ctx context.Context, subjectID, expected, next string) error

	ClearRefresh(ctx context.Context, subjectID string) error
}

// UserWriter is implemented by stores that can insert or replace a user
// record. Changing a user's email releases the old address. Claiming an
// address owned by another subject fails with ErrEmailTaken and leaves both
// records untouched.
type UserWriter interface {
	PutUser(ctx context.Context, rec UserRecord) error
}

// NormalizeEmail is the canonical form used for email lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
