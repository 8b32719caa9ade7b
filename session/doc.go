// Package session defines the user-record store consumed by the session
// engine and ships in-memory and Redis implementations. A SQL implementation
// lives in session/sqlite.
//
// # Refresh fingerprints
//
// The engine never hands raw refresh tokens to a store. It passes a SHA-256
// fingerprint, and a store compares fingerprints as opaque strings. The one
// mutable cross-request value is that fingerprint, changed only through
// SetRefresh (login), CompareAndRotateRefresh (renewal) and ClearRefresh
// (logout or reuse).
//
// CompareAndRotateRefresh must be a single atomic compare-and-set in every
// implementation. Two concurrent renewals presenting the same token must see
// exactly one success and one ErrRefreshMismatch.
//
// # What this package must NOT do
//
//   - Import goSession, jwt or cookie (no upward imports).
//   - Store raw refresh tokens.
//   - Make authentication decisions; it only reports what it found.
package session
