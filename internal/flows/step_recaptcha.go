package flows

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authengine/domain"
)

// RecaptchaStep gates credential steps once the failure counter crossed the
// CAPTCHA threshold. Its own failures are not counted.
type RecaptchaStep struct {
	Validator domain.RecaptchaValidator
	Observe   Observer
}

func (s *RecaptchaStep) Process(ctx context.Context, a *Attempt) (Outcome, error) {
	if s.Validator == nil {
		return Outcome{}, fmt.Errorf("%w: no recaptcha validator", ErrStepMisconfigured)
	}
	if a.Request.Recaptcha == "" {
		s.Observe.emit(EventRecaptchaRequired)
		a.Failure = ErrRecaptchaRequired
		return Goto(StepError), nil
	}

	ok, err := s.Validator.Validate(ctx, a.Request.Recaptcha, a.Request.IP)
	if err != nil {
		return Outcome{}, fmt.Errorf("validate recaptcha: %w", err)
	}
	if !ok {
		s.Observe.emit(EventRecaptchaFailure)
		a.Failure = ErrRecaptchaRequired
		return Goto(StepError), nil
	}
	return Goto(credentialStep(a.Request)), nil
}
