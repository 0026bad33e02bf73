package flows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authengine/domain"
)

// CauseTooManyFailedAttempts is the disable cause recorded on lockout.
const CauseTooManyFailedAttempts = "too many failed attempts"

// AccountDisabler disables an account with a cause.
type AccountDisabler interface {
	Disable(ctx context.Context, account *domain.Account, cause string) error
}

// ErrorStep accounts a failure and escalates: CAPTCHA from CaptchaThreshold,
// account lockout from LockoutThreshold.
type ErrorStep struct {
	Failures         domain.FailedAuthAttemptSessionEntity
	Audit            domain.FailedAuthenticationAttemptsEntity
	Status           AccountDisabler
	CaptchaThreshold int64
	LockoutThreshold int64
	FailureTTL       time.Duration
	Now              func() time.Time
	Logger           *slog.Logger
	Observe          Observer
}

func (s *ErrorStep) Process(ctx context.Context, a *Attempt) (Outcome, error) {
	failure := a.Failure
	if failure == nil {
		failure = ErrInvalidCredentials
	}

	// recaptcha failures gate but never count
	if a.Previous == StepRecaptcha {
		return Finish(&Result{Kind: ResultFailed, Err: failure, RecaptchaRequired: true}), nil
	}

	counter, err := s.Failures.Increment(ctx, a.Request.Username, a.Request.IP, s.FailureTTL)
	if err != nil {
		return Outcome{}, fmt.Errorf("count failed attempt: %w", err)
	}

	if counter.Counter >= s.LockoutThreshold {
		if err := s.lockout(ctx, a, counter); err != nil {
			return Outcome{}, err
		}
		return Finish(&Result{Kind: ResultFailed, Err: ErrAccountDisabled, FailedAttempts: counter.Counter}), nil
	}

	if counter.Counter >= s.CaptchaThreshold && !a.Session.RecaptchaRequired {
		a.Session.RecaptchaRequired = true
		s.Observe.emit(EventRecaptchaRequired)
	}
	return Finish(&Result{
		Kind:              ResultFailed,
		Err:               failure,
		RecaptchaRequired: a.Session.RecaptchaRequired,
		FailedAttempts:    counter.Counter,
	}), nil
}

func (s *ErrorStep) lockout(ctx context.Context, a *Attempt, counter *domain.FailedAuthAttemptSession) error {
	if err := s.Status.Disable(ctx, a.Account, CauseTooManyFailedAttempts); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	s.Observe.emit(EventLockout)

	logger := s.logger().With("account_id", a.Account.ID)
	record := &domain.FailedAuthenticationAttempt{
		ID:        uuid.NewString(),
		AccountID: a.Account.ID,
		Username:  a.Account.Username,
		Timestamp: now(s.Now),
		DeviceID:  a.Request.DeviceID,
		Location:  a.Request.Location,
		BannedIPs: counter.IPs,
		Counter:   counter.Counter,
	}
	if s.Audit != nil {
		if err := s.Audit.Create(ctx, record); err != nil {
			logger.ErrorContext(ctx, "failed attempt record not written", "error", err)
		}
	}
	if err := s.Failures.Delete(ctx, a.Request.Username); err != nil {
		logger.WarnContext(ctx, "failed attempt counter not cleared", "error", err)
	}
	return nil
}

func (s *ErrorStep) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
