package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authengine/domain"
)

// Authentication outcomes. Soft errors leave the flow resumable; hard errors
// end it.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTOTPInvalid        = errors.New("invalid totp")
	ErrChallengeInvalid   = errors.New("challenge response invalid")
	ErrRecaptchaRequired  = errors.New("recaptcha required")
	ErrMFAPending         = errors.New("multi-factor authentication pending")
	ErrAccountDisabled    = errors.New("account disabled")

	// ErrAccountNotActivated matches ErrAccountDisabled.
	ErrAccountNotActivated = notActivatedError{}

	ErrStepMisconfigured = errors.New("authentication step misconfigured")
	ErrStepLoop          = errors.New("authentication step loop")
	ErrUnknownStep       = errors.New("unknown authentication step")
)

type notActivatedError struct{}

func (notActivatedError) Error() string { return "account not activated" }

func (notActivatedError) Is(target error) bool {
	return target == ErrAccountDisabled
}

// StepName identifies an authentication step. The set is closed.
type StepName uint8

const (
	StepNone StepName = iota
	StepDispatch
	StepPassword
	StepGenerateTOTP
	StepTOTP
	StepRecaptcha
	StepGenerateChallenge
	StepChallengeResponse
	StepError
	StepAuthenticated
)

func (s StepName) String() string {
	switch s {
	case StepDispatch:
		return "DISPATCH"
	case StepPassword:
		return "PASSWORD"
	case StepGenerateTOTP:
		return "GENERATE_TOTP"
	case StepTOTP:
		return "TOTP"
	case StepRecaptcha:
		return "RECAPTCHA"
	case StepGenerateChallenge:
		return "GENERATE_CHALLENGE"
	case StepChallengeResponse:
		return "CHALLENGE_RESPONSE"
	case StepError:
		return "ERROR"
	case StepAuthenticated:
		return "AUTHENTICATED"
	default:
		return "NONE"
	}
}

// Attempt is the state threaded through one authentication round-trip.
// Steps may mutate Session; the engine persists it afterwards.
type Attempt struct {
	Request  *domain.AuthRequest
	Account  *domain.Account
	Session  *domain.AuthSession
	Previous StepName
	// Failure is the soft error a failing step hands to the ERROR step.
	Failure error
}

// ResultKind classifies a terminal Result.
type ResultKind uint8

const (
	ResultAuthenticated ResultKind = iota + 1
	ResultMFAPending
	ResultChallengeIssued
	ResultFailed
)

// Result is the terminal output of a flow.
type Result struct {
	Kind  ResultKind
	Token string
	// SessionIssuedAt identifies the ActiveUserSession behind Token.
	SessionIssuedAt int64
	// Challenge is the nonce to sign when Kind is ResultChallengeIssued.
	Challenge         string
	RecaptchaRequired bool
	FailedAttempts    int64
	// Err is set for ResultFailed (soft or hard) and ResultMFAPending.
	Err error
}

// Outcome is what a step returns: a next step to run, or a terminal result.
// Exactly one of the two must be set.
type Outcome struct {
	Next     StepName
	Continue bool
	Done     *Result
}

// Goto continues the flow at name.
func Goto(name StepName) Outcome {
	return Outcome{Next: name, Continue: true}
}

// Finish ends the flow with r.
func Finish(r *Result) Outcome {
	return Outcome{Done: r}
}

// Step is one decision point. Returned errors are infrastructure failures
// and abort the flow; authentication failures are expressed as outcomes.
type Step interface {
	Process(ctx context.Context, a *Attempt) (Outcome, error)
}

// StepFunc adapts a function to Step.
type StepFunc func(ctx context.Context, a *Attempt) (Outcome, error)

func (f StepFunc) Process(ctx context.Context, a *Attempt) (Outcome, error) {
	return f(ctx, a)
}
