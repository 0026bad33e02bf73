// Package flows implements the authentication state machine and account
// status transitions.
//
// An [Orchestrator] drives an [Attempt] through named steps, starting at
// DISPATCH, until a step finishes with a [Result]. Steps are plain structs
// carrying their dependencies; the engine builds the [Steps] table once.
// Authentication failures travel as outcomes through the ERROR step, which
// owns failure accounting, CAPTCHA escalation and lockout. Only
// infrastructure failures are returned as errors.
//
// # What this package must NOT do
//
//   - Import the root authengine package.
//   - Persist the on-going session; steps mutate Attempt.Session and the
//     engine writes it back.
package flows
