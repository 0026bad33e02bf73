// Package authengine decides whether a principal (username + device) may
// complete login, and owns the lifecycle of credentials, account status and
// issued sessions.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Per-attempt state lives in Redis, so several processes may
// serve the same user.
//
// # Authentication
//
// [Engine.Authenticate] resumes the on-going session of a (username, device)
// pair and drives it through a step machine: password, SMS one-time code,
// signed challenge, CAPTCHA gate. Failures are counted per username. From
// [AuthConfig.CaptchaThreshold] failures on, a valid recaptcha token is
// required; at [AuthConfig.LockoutThreshold] the account is disabled, its
// sessions revoked and an unlock link emailed. The account re-enables itself
// after [AccountConfig.EnableAfter].
//
// Soft errors ([IsSoftError]) leave the attempt resumable. Hard errors
// ([ErrAccountNotFound], [ErrAccountDisabled]) end it.
//
// # Account lifecycle
//
// [Engine.Register] creates a disabled account and emails an activation
// link; a failure after the account row exists undoes every completed step.
// Unactivated accounts are deleted by a scheduled task. Scheduled tasks run
// through [Engine.RunScheduledTasks].
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores or the step machine in its public API.
//   - Perform I/O outside of Engine methods (Build only validates and wires).
//   - Log credentials, tokens or codes.
package authengine
