// Package middleware adapts goSession.Engine to net/http handler chains.
//
// # Guards
//
//   - [Guard] runs Engine.AuthenticateMode with an explicit route mode.
//   - [RequireJWTOnly] accepts a valid access token without a store read.
//   - [RequireStrict] also confirms the subject against the session store.
//
// Each guard reads the session cookies through the Engine, which may write
// rotated or cleared cookies on the response, and injects the identity into
// the request context with goSession.WithIdentity. Rejections are written as
// a JSON error body with the status from goSession.StatusCode.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly.
//   - Access the session store.
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
