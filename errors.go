package authengine

import (
	"errors"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/flows"
	"github.com/MrEthical07/authengine/password"
)

// Soft authentication errors. The attempt can be resumed.
var (
	ErrInvalidCredentials = flows.ErrInvalidCredentials
	ErrTOTPInvalid        = flows.ErrTOTPInvalid
	ErrChallengeInvalid   = flows.ErrChallengeInvalid
	ErrRecaptchaRequired  = flows.ErrRecaptchaRequired
	ErrMFAPending         = flows.ErrMFAPending
	// ErrConcurrentAttempt is returned when another request for the same
	// (username, device) updated the on-going session first.
	ErrConcurrentAttempt = errors.New("concurrent authentication attempt")
)

// Hard errors.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountDisabled = flows.ErrAccountDisabled
	// ErrAccountNotActivated is returned for accounts still awaiting
	// activation. It matches ErrAccountDisabled.
	ErrAccountNotActivated = flows.ErrAccountNotActivated
)

// Configuration errors. These indicate a broken engine, not a failed login.
var (
	ErrStepMisconfigured = flows.ErrStepMisconfigured
	ErrStepLoop          = flows.ErrStepLoop
	ErrInvalidConfig     = errors.New("invalid engine config")
)

var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrAccountExists          = errors.New("account already exists")
	ErrSessionNotFound        = errors.New("session not found")
	ErrUnlockTokenInvalid     = flows.ErrUnlockTokenInvalid
	ErrSideChannelUnavailable = errors.New("side channel unavailable")
	ErrSchedulerUnavailable   = errors.New("built-in scheduler not configured")
	ErrUnknownTask            = errors.New("unknown scheduled task")
	// ErrSessionRevocationFailed is returned when a password was changed but
	// the account's other sessions could not be revoked. The new password is
	// in effect; the caller must retry the revocation or force a logout.
	ErrSessionRevocationFailed = errors.New("session revocation failed")
)

// Password policy errors.
var (
	ErrPasswordTooShort = password.ErrTooShort
	ErrPasswordTooLong  = password.ErrTooLong
	ErrPasswordTooWeak  = password.ErrTooWeak
	ErrPasswordBreached = password.ErrBreached
	ErrPasswordReused   = password.ErrReused
)

// IsSoftError reports whether err leaves the authentication attempt
// resumable.
func IsSoftError(err error) bool {
	for _, soft := range []error{
		ErrInvalidCredentials,
		ErrTOTPInvalid,
		ErrChallengeInvalid,
		ErrRecaptchaRequired,
		ErrMFAPending,
		ErrConcurrentAttempt,
	} {
		if errors.Is(err, soft) {
			return true
		}
	}
	return false
}

func accountLookupErr(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}
