// Package internal holds helpers private to the engine: secure random tokens
// and nonces, and the storage-key form of secret tokens.
//
// # Sub-packages
//
//   - flows: the authentication step machine and account status transitions
//   - notify: asynchronous, bounded email dispatch
//   - saga: ordered compensation lists for multi-step writes
//   - stores: Redis-backed transient session stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public authengine API.
package internal
