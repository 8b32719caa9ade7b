// Package password hashes and verifies login passwords with argon2id.
//
// # Output format
//
// Hashes use the PHC string format with unpadded base64 fields:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Verify reads the cost parameters from the hash itself. NeedsUpgrade
// reports hashes produced under weaker settings than the current Config.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goSession package.
//   - Log plaintext passwords.
package password
