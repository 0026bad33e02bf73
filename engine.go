package authengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/flows"
	"github.com/MrEthical07/authengine/internal/notify"
	"github.com/MrEthical07/authengine/jwt"
	"github.com/MrEthical07/authengine/password"
	"github.com/MrEthical07/authengine/scheduler"
	"github.com/MrEthical07/authengine/session"
)

// Engine is the authentication facade. It is the only component that talks
// to entities and the scheduler directly.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	accounts     domain.AccountEntity
	audit        domain.FailedAuthenticationAttemptsEntity
	authSessions domain.AuthSessionEntity
	failures     domain.FailedAuthAttemptSessionEntity
	activations  domain.ActivateAccountSessionEntity
	forgot       domain.ForgotPasswordSessionEntity
	scheduler    domain.Scheduler
	// taskRunner is set when the built-in scheduler is in use.
	taskRunner *scheduler.Scheduler

	email    domain.EmailSender
	sms      domain.SmsSender
	notifier *notify.Dispatcher

	tokens       *jwt.Manager
	passwords    *password.Manager
	sessions     *session.Manager
	status       *flows.AccountStatusManager
	orchestrator *flows.Orchestrator
	metrics      *Metrics
}

// Authenticate runs one round-trip of the login state machine for
// (req.Username, req.DeviceID).
//
// The returned result is non-nil whenever err is nil or a soft error
// ([IsSoftError]); it tells the client what to send next. Hard errors end
// the attempt and discard its on-going session.
func (e *Engine) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	if req == nil || req.Username == "" || req.DeviceID == "" {
		return nil, fmt.Errorf("%w: username and device id are required", ErrInvalidRequest)
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()

	account, err := e.accounts.ReadByUsername(ctx, req.Username)
	if err != nil {
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, accountLookupErr(err)
	}
	switch account.Status {
	case domain.AccountEnabled:
	case domain.AccountDisabledUntilActivation:
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, ErrAccountNotActivated
	default:
		e.metrics.Inc(MetricAuthenticateFailure)
		return nil, ErrAccountDisabled
	}

	sess, err := e.loadOnGoingSession(ctx, req.Username, req.DeviceID)
	if err != nil {
		return nil, err
	}

	res, err := e.orchestrator.Run(ctx, &flows.Attempt{Request: req, Account: account, Session: sess})
	if err != nil {
		if errors.Is(err, flows.ErrStepMisconfigured) || errors.Is(err, flows.ErrStepLoop) {
			e.logger.ErrorContext(ctx, "authentication step machine failed", "account_id", account.ID, "error", err)
		}
		return nil, err
	}

	if err := e.storeOnGoingSession(ctx, req, sess, res); err != nil {
		if errors.Is(err, ErrConcurrentAttempt) {
			return &AuthResult{Status: AuthFailed, RecaptchaRequired: sess.RecaptchaRequired}, err
		}
		return nil, err
	}

	out := &AuthResult{
		Token:             res.Token,
		SessionID:         res.SessionIssuedAt,
		Challenge:         res.Challenge,
		RecaptchaRequired: res.RecaptchaRequired,
		FailedAttempts:    res.FailedAttempts,
	}
	switch res.Kind {
	case flows.ResultAuthenticated:
		out.Status = AuthSucceeded
		e.metrics.Inc(MetricAuthenticateSuccess)
	case flows.ResultMFAPending:
		out.Status = AuthMFAPending
	case flows.ResultChallengeIssued:
		out.Status = AuthChallengeIssued
	default:
		out.Status = AuthFailed
		e.metrics.Inc(MetricAuthenticateFailure)
	}
	if res.Err != nil && !IsSoftError(res.Err) {
		return nil, res.Err
	}
	return out, res.Err
}

// loadOnGoingSession reads the session for the pair or creates it. A session
// without the CAPTCHA gate picks it up once the username crossed the
// threshold, whichever device the failures came from. The flag is persisted
// with the session on the next update.
func (e *Engine) loadOnGoingSession(ctx context.Context, username, deviceID string) (*domain.AuthSession, error) {
	sess, err := e.authSessions.Read(ctx, username, deviceID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		if sess, err = e.createOnGoingSession(ctx, username, deviceID); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if sess.RecaptchaRequired {
		return sess, nil
	}
	if sess.RecaptchaRequired, err = e.captchaThresholdCrossed(ctx, username); err != nil {
		return nil, err
	}
	return sess, nil
}

func (e *Engine) createOnGoingSession(ctx context.Context, username, deviceID string) (*domain.AuthSession, error) {
	sess := &domain.AuthSession{}
	created, err := e.authSessions.Create(ctx, username, deviceID, sess, e.cfg.Auth.OnGoingSessionTTL)
	if err != nil {
		return nil, err
	}
	if created {
		return sess, nil
	}
	// lost the race to a concurrent first attempt
	return e.authSessions.Read(ctx, username, deviceID)
}

func (e *Engine) captchaThresholdCrossed(ctx context.Context, username string) (bool, error) {
	counter, err := e.failures.Read(ctx, username)
	switch {
	case err == nil:
		return counter.Counter >= e.cfg.Auth.CaptchaThreshold, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (e *Engine) storeOnGoingSession(ctx context.Context, req *AuthRequest, sess *domain.AuthSession, res *flows.Result) error {
	terminal := res.Kind == flows.ResultAuthenticated || (res.Err != nil && !IsSoftError(res.Err))
	if terminal {
		if err := e.authSessions.Delete(ctx, req.Username, req.DeviceID); err != nil {
			e.logger.WarnContext(ctx, "on-going session not deleted", "error", err)
		}
		return nil
	}

	err := e.authSessions.Update(ctx, req.Username, req.DeviceID, sess, e.cfg.Auth.OnGoingSessionTTL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrConflict):
		e.metrics.Inc(MetricConcurrentAttempt)
		return ErrConcurrentAttempt
	case errors.Is(err, domain.ErrNotFound):
		// expired mid-attempt; the next request starts over
		return nil
	default:
		return err
	}
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// NotificationsDropped reports emails discarded because the queue was full.
func (e *Engine) NotificationsDropped() uint64 {
	return e.notifier.Dropped()
}

// NotificationsFailed reports emails the sender rejected.
func (e *Engine) NotificationsFailed() uint64 {
	return e.notifier.Failed()
}

// Close drains queued notifications. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.notifier.Close()
}
