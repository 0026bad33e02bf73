// Package session owns issued sessions: the Redis [Store] of
// ActiveUserSession rows and the [Manager] that signs tokens, records access
// points and revokes sessions.
//
// # Architecture boundaries
//
// A session token is only valid while its ActiveUserSession row exists, so
// revocation is a row delete. Each row carries the id of the scheduled task
// that deletes it at expiry; revoking a row cancels that task, and a failed
// cancel is logged, never returned.
//
// # What this package must NOT do
//
//   - Decide whether an account may authenticate.
//   - Import the root authengine package.
package session
