package flows

import (
	"context"

	"github.com/MrEthical07/authengine/domain"
)

// DispatchStep routes a request by what it carries. It reads nothing from
// storage.
type DispatchStep struct{}

func (DispatchStep) Process(_ context.Context, a *Attempt) (Outcome, error) {
	switch {
	case a.Request.GenerateChallenge:
		return Goto(StepGenerateChallenge), nil
	case a.Session.RecaptchaRequired && a.Previous != StepRecaptcha:
		return Goto(StepRecaptcha), nil
	default:
		return Goto(credentialStep(a.Request)), nil
	}
}

// credentialStep picks the step that verifies the credential req presents.
func credentialStep(req *domain.AuthRequest) StepName {
	switch {
	case req.ChallengeResponse != nil:
		return StepChallengeResponse
	case req.TOTP != "":
		return StepTOTP
	default:
		return StepPassword
	}
}
