// Package jwt issues and verifies the signed session tokens carried in cookies.
//
// Access and refresh tokens share one claim set but are signed with
// independent HS256 secrets, so a leaked access secret cannot mint refresh
// tokens and the reverse. Verification returns an explicit [Status]
// discriminant: callers branch on StatusExpired (recoverable through the
// refresh flow) versus StatusInvalid (terminal) instead of inspecting error
// types.
//
// # What this package must NOT do
//
//   - Perform I/O or consult a session store.
//   - Trust any expiry supplied by the caller; expiry is derived from Kind.
package jwt
