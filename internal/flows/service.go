package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.VerifyAccess != nil
}

// Authenticate runs the access/refresh state machine. strict overrides the
// wired validation mode for this call.
func (s Service) Authenticate(ctx context.Context, in AuthInput, strict bool) AuthResult {
	deps := s.deps.Authenticate
	deps.Strict = strict
	return RunAuthenticate(ctx, in, deps)
}

// Login runs the credential check and token issue.
func (s Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, email, password, s.deps.Login)
}

// Logout clears the stored refresh fingerprint.
func (s Service) Logout(ctx context.Context, subjectID string) error {
	return RunLogout(ctx, subjectID, s.deps.Logout)
}
