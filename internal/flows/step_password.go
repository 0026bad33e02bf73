package flows

import (
	"context"

	"github.com/MrEthical07/authengine/domain"
)

// PasswordVerifier checks a password against an account credential.
type PasswordVerifier interface {
	Verify(account *domain.Account, password string) (bool, error)
}

type PasswordStep struct {
	Passwords PasswordVerifier
	Observe   Observer
}

func (s *PasswordStep) Process(_ context.Context, a *Attempt) (Outcome, error) {
	ok, err := s.Passwords.Verify(a.Account, a.Request.Password)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		s.Observe.emit(EventPasswordMismatch)
		a.Failure = ErrInvalidCredentials
		return Goto(StepError), nil
	}
	if a.Account.UsingMFA {
		return Goto(StepGenerateTOTP), nil
	}
	return Goto(StepAuthenticated), nil
}
