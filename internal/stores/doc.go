// Package stores provides the Redis-backed transient records of the
// authentication flow: on-going authentication sessions, failed-attempt
// counters, single-use token sessions (activation, forgot-password) and the
// per-account unlock session.
//
// # Design
//
// Records are JSON encoded with a TTL. On-going sessions are created with
// SET NX and updated through WATCH/MULTI compare-and-set on their version
// field, retrying on contention. Failed-attempt counters are bumped with
// HINCRBY, SADD and EXPIRE in one MULTI. Token sessions are keyed by the
// SHA-256 of the token and consumed with GETDEL so each token redeems once.
// An account's unlock session lives in one hash next to the digest of the
// unlock token id it accepts; a Lua script compares and deletes it, so a
// superseded token never redeems.
//
// Missing or expired records are reported as [domain.ErrNotFound]; Redis
// failures are wrapped in [ErrBackendUnavailable].
//
// # What this package must NOT do
//
//   - Import the root authengine package or internal/flows.
//   - Store plaintext tokens as keys.
package stores
