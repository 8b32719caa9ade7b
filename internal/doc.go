// Package internal contains helpers private to goSession: refresh token
// fingerprinting and random secret generation.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators behind Engine.Authenticate, Login and Logout
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API.
//   - Be imported by any package outside the goSession module.
package internal
