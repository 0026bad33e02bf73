package flows

import (
	"context"

	"github.com/MrEthical07/authengine/internal"
)

const defaultNonceSize = 32

// GenerateChallengeStep binds a fresh nonce to the on-going session for the
// client to sign with its private key.
type GenerateChallengeStep struct {
	NonceSize int
	Observe   Observer
}

func (s *GenerateChallengeStep) Process(_ context.Context, a *Attempt) (Outcome, error) {
	if a.Account.PubKey == "" {
		return Finish(&Result{Kind: ResultFailed, Err: ErrChallengeInvalid, RecaptchaRequired: a.Session.RecaptchaRequired}), nil
	}
	size := s.NonceSize
	if size <= 0 {
		size = defaultNonceSize
	}
	nonce, err := internal.NewNonce(size)
	if err != nil {
		return Outcome{}, err
	}

	a.Session.ChallengeNonce = nonce
	s.Observe.emit(EventChallengeIssued)
	return Finish(&Result{Kind: ResultChallengeIssued, Challenge: nonce, RecaptchaRequired: a.Session.RecaptchaRequired}), nil
}

// ChallengeResponseStep verifies a signature over the bound nonce. The nonce
// is spent whatever the outcome.
type ChallengeResponseStep struct {
	Observe Observer
}

func (s *ChallengeResponseStep) Process(_ context.Context, a *Attempt) (Outcome, error) {
	nonce := a.Session.ChallengeNonce
	a.Session.ChallengeNonce = ""

	if nonce == "" || a.Account.PubKey == "" || VerifyChallenge(a.Account.PubKey, nonce, a.Request.ChallengeResponse) != nil {
		s.Observe.emit(EventChallengeFailure)
		a.Failure = ErrChallengeInvalid
		return Goto(StepError), nil
	}
	return Goto(StepAuthenticated), nil
}
