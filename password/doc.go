// Package password owns credential hashing, verification and policy.
//
// # Algorithms
//
// Stored hashes are tagged with a [domain.PasswordAlgorithm] id. [Argon2]
// (PHC encoded) is the default for new credentials; [Bcrypt] verifies and
// produces modular-crypt hashes for imported accounts.
//
// # Policy
//
// [Manager.Validate] enforces length and character-class minimums and, when a
// [domain.BreachChecker] is configured, rejects known-compromised passwords.
// [Manager.Change] additionally rejects reuse of the current credential.
//
// # What this package must NOT do
//
//   - Log plaintext passwords.
//   - Persist anything except through the PasswordCommitter it is handed.
package password
