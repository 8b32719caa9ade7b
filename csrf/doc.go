// Package csrf implements the double-submit cookie check.
//
// The secret lives in a script-readable cookie; trusted frontend code copies
// it into the X-CSRF-Token header on state-changing requests. A cross-origin
// page can make the browser send the cookie but cannot set the header.
package csrf
