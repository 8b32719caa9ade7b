// Package goSession provides a cookie-based authentication session core:
// short-lived access tokens, rotating refresh tokens with reuse detection,
// and double-submit CSRF protection.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Request lifecycle
//
// [Engine.Authenticate] reads the token, refreshToken and csrfToken cookies.
// A valid access token yields an [Identity]. An expired (or absent) access
// token with a refresh cookie is renewed: the refresh token's fingerprint is
// swapped in the store with a single compare-and-set, and new cookies are
// written. Presenting a refresh token that was already rotated away revokes
// the session. State-changing methods must then echo the csrfToken cookie in
// the X-CSRF-Token header.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config]
// and value types. Flow orchestration lives in internal/flows; token,
// cookie, CSRF, password and store concerns live in their own packages.
//
// # What this package must NOT do
//
//   - Expose raw refresh tokens to the store; only fingerprints are persisted.
//   - Treat a store failure or timeout as an authenticated request.
//   - Fall back to the refresh flow when an access token fails verification
//     for any reason other than expiry.
//   - Import any sub-package that re-imports goSession (no import cycles).
//
// # Performance contract
//
// Authenticate with a valid access token performs no I/O in ModeJWTOnly and
// one store read in ModeStrict. Renewal is one read plus one compare-and-set;
// a detected reuse adds one clear. Logout is a single clear.
package goSession
