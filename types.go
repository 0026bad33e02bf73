package authengine

import (
	"github.com/MrEthical07/authengine/domain"
)

type (
	Account                     = domain.Account
	AuthRequest                 = domain.AuthRequest
	ChallengeResponse           = domain.ChallengeResponse
	Location                    = domain.Location
	ActiveUserSession           = domain.ActiveUserSession
	FailedAuthenticationAttempt = domain.FailedAuthenticationAttempt
)

// AuthStatus classifies the outcome of one Authenticate call.
type AuthStatus uint8

const (
	// AuthFailed: see the returned error. The attempt may be resumable.
	AuthFailed AuthStatus = iota
	// AuthSucceeded: Token holds the session token.
	AuthSucceeded
	// AuthMFAPending: a code was sent by SMS; call again with TOTP set.
	AuthMFAPending
	// AuthChallengeIssued: sign Challenge and call again with ChallengeResponse.
	AuthChallengeIssued
)

func (s AuthStatus) String() string {
	switch s {
	case AuthSucceeded:
		return "succeeded"
	case AuthMFAPending:
		return "mfa_pending"
	case AuthChallengeIssued:
		return "challenge_issued"
	default:
		return "failed"
	}
}

// AuthResult is returned by [Engine.Authenticate] alongside any soft error.
type AuthResult struct {
	Status AuthStatus
	Token  string
	// SessionID is the issuedAt id of the ActiveUserSession behind Token.
	SessionID int64
	Challenge string
	// RecaptchaRequired tells the client to attach a recaptcha token to the
	// next attempt.
	RecaptchaRequired bool
	FailedAttempts    int64
}

// RegisterRequest carries a new account.
type RegisterRequest struct {
	Username  string
	Password  string
	Email     string
	Telephone string
	Role      string
	// PubKey is an optional PEM public key for challenge-response login.
	PubKey string
}

// SideChannel selects where a forgot-password token is delivered.
type SideChannel uint8

const (
	SideChannelEmail SideChannel = iota + 1
	SideChannelSMS
)
