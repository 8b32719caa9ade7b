package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureStore
	LoginFailureIssue
)

// LoginResult carries the issued credentials or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	Reason       string
	Identity     jwt.Identity
	AccessToken  string
	RefreshToken string
	CSRFToken    string
}

type LoginSessionStore interface {
	FindByEmail(ctx context.Context, email string) (session.UserRecord, error)
	SetRefresh(ctx context.Context, subjectID, hash string) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	VerifyPassword func(password, encodedHash string) (bool, error)
	// DummyVerify burns the same hashing cost for unknown users.
	DummyVerify   func(password string)
	IssueAccess   func(jwt.Identity) (string, error)
	IssueRefresh  func(jwt.Identity) (string, error)
	Fingerprint   func(string) string
	NewCSRFSecret func() (string, error)
	StoreTimeout  time.Duration
	SessionStore  LoginSessionStore
}

// RunLogin checks credentials, issues a token pair and records the refresh
// fingerprint. Unknown users and wrong passwords fail identically.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{Failure: LoginFailureInvalidCredentials, Reason: "empty_credentials"}
	}

	sctx, cancel := withStoreTimeout(ctx, deps.StoreTimeout)
	defer cancel()

	rec, err := deps.SessionStore.FindByEmail(sctx, email)
	if err != nil {
		if errors.Is(err, session.ErrUserNotFound) {
			if deps.DummyVerify != nil {
				deps.DummyVerify(password)
			}
			return LoginResult{Failure: LoginFailureInvalidCredentials, Reason: "user_not_found"}
		}
		return LoginResult{Failure: LoginFailureStore, Err: err, Reason: storeReason(sctx, err)}
	}

	id := jwt.Identity{
		SubjectID:   rec.SubjectID,
		Email:       rec.Email,
		DisplayName: rec.DisplayName,
	}

	ok, err := deps.VerifyPassword(password, rec.PasswordHash)
	if err != nil || !ok {
		return LoginResult{Failure: LoginFailureInvalidCredentials, Err: err, Reason: "password_mismatch", Identity: id}
	}

	refresh, err := deps.IssueRefresh(id)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Reason: "issue_refresh", Identity: id}
	}
	access, err := deps.IssueAccess(id)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Reason: "issue_access", Identity: id}
	}
	csrfToken, err := deps.NewCSRFSecret()
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Reason: "csrf_secret", Identity: id}
	}

	if err := deps.SessionStore.SetRefresh(sctx, rec.SubjectID, deps.Fingerprint(refresh)); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err, Reason: storeReason(sctx, err), Identity: id}
	}

	return LoginResult{
		Identity:     id,
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrfToken,
	}
}
