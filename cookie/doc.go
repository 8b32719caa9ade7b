// Package cookie maps session tokens and the CSRF secret to and from HTTP
// cookies.
//
// One attribute table drives both writing and clearing, so a clear can never
// drift from the attributes a cookie was set with.
//
//	token         HttpOnly  SameSite=Lax  Path=/  MaxAge 7d
//	refreshToken  HttpOnly  SameSite=Lax  Path=/  MaxAge 30d
//	csrfToken               SameSite=Lax  Path=/  MaxAge 7d
//
// Secure is set from configuration and should be on in production.
//
// # What this package must NOT do
//
//   - Interpret cookie contents; a missing cookie is an empty value, not an error.
package cookie
