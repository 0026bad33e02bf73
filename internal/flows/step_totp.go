package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/notify"
)

// GenerateTOTPStep issues a code over SMS after a correct password and parks
// the flow until the client returns with it.
type GenerateTOTPStep struct {
	TOTP    *TOTP
	SMS     domain.SmsSender
	Now     func() time.Time
	Observe Observer
}

func (s *GenerateTOTPStep) Process(ctx context.Context, a *Attempt) (Outcome, error) {
	if s.SMS == nil {
		return Outcome{}, fmt.Errorf("%w: no sms sender for multi-factor accounts", ErrStepMisconfigured)
	}
	code, err := s.TOTP.Generate(a.Account.ID, a.Request.DeviceID, now(s.Now))
	if err != nil {
		return Outcome{}, err
	}
	if err := s.SMS.SendSMS(ctx, notify.TOTPCode(a.Account, code)); err != nil {
		return Outcome{}, fmt.Errorf("send totp: %w", err)
	}

	a.Session.MFATokenHash = HashCode(code)
	s.Observe.emit(EventMFARequired)
	return Finish(&Result{Kind: ResultMFAPending, Err: ErrMFAPending}), nil
}

// TOTPStep verifies a returned code against the time window and the hash
// stored when it was issued.
type TOTPStep struct {
	TOTP     *TOTP
	Notifier Notifier
	Now      func() time.Time
	Observe  Observer
}

func (s *TOTPStep) Process(ctx context.Context, a *Attempt) (Outcome, error) {
	if !s.TOTP.Check(a.Request.TOTP, a.Session.MFATokenHash, a.Account.ID, a.Request.DeviceID, now(s.Now)) {
		s.Observe.emit(EventTOTPFailure)
		notifierOrNoop(s.Notifier).Notify(ctx, notify.SuspiciousMFA(a.Account, a.Request))
		a.Failure = ErrTOTPInvalid
		return Goto(StepError), nil
	}

	a.Session.MFATokenHash = ""
	s.Observe.emit(EventTOTPSuccess)
	return Goto(StepAuthenticated), nil
}

func now(f func() time.Time) time.Time {
	if f == nil {
		return time.Now()
	}
	return f()
}
