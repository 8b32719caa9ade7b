// Package flows contains pure-function orchestrators for the Engine operations.
//
// Each flow function (RunAuthenticate, RunLogin, RunLogout) accepts a typed
// dependency struct and returns a result carrying a failure kind. The root
// package maps failure kinds to typed errors, metrics, audit events and
// cookie writes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, the token manager and
// the password hasher. They do NOT own any of these resources; ownership
// stays with the Engine. Flows never touch http types: cookie reads and
// writes happen in the root package around a flow call.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
