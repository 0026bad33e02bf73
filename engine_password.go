package authengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal"
	"github.com/MrEthical07/authengine/internal/notify"
)

// ChangePassword replaces the password of the account behind sessionToken
// after checking oldPassword. Every other session of the account is revoked;
// the calling one survives.
func (e *Engine) ChangePassword(ctx context.Context, sessionToken, oldPassword, newPassword string) error {
	current, err := e.readSession(ctx, sessionToken)
	if err != nil {
		return err
	}
	account, err := e.accounts.ReadByID(ctx, current.AccountID)
	if err != nil {
		return accountLookupErr(err)
	}

	ok, err := e.passwords.Verify(account, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if err := e.passwords.Change(ctx, e.accounts, account, newPassword); err != nil {
		return err
	}

	err = e.revokeSessions(ctx, account.ID, func(ctx context.Context) error {
		_, err := e.sessions.DeleteAllButCurrent(ctx, account.ID, current.IssuedAt)
		return err
	})
	if err != nil {
		return err
	}
	e.notifier.Notify(ctx, notify.PasswordChanged(account))
	e.metrics.Inc(MetricPasswordChanged)
	return nil
}

// CreateForgotPasswordSession issues a single-use reset token for username
// and delivers it over channel. An unknown username is absorbed silently so
// callers cannot enumerate accounts; a disabled account is reported.
func (e *Engine) CreateForgotPasswordSession(ctx context.Context, username string, channel SideChannel) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidRequest)
	}
	if channel != SideChannelEmail && channel != SideChannelSMS {
		return fmt.Errorf("%w: unknown side channel", ErrInvalidRequest)
	}

	account, err := e.accounts.ReadByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if !account.Enabled() {
		return ErrAccountDisabled
	}
	if channel == SideChannelSMS && (e.sms == nil || account.Telephone == "") {
		return ErrSideChannelUnavailable
	}

	token, err := internal.NewToken()
	if err != nil {
		return err
	}
	err = e.forgot.Create(ctx, token, &domain.ForgotPasswordSession{
		AccountID:   account.ID,
		AccountRole: account.Role,
	}, e.cfg.Account.ForgotPasswordTTL)
	if err != nil {
		return err
	}

	if err := e.deliverResetToken(ctx, account, token, channel); err != nil {
		if delErr := e.forgot.Delete(context.WithoutCancel(ctx), token); delErr != nil {
			e.logger.WarnContext(ctx, "forgot password session not removed", "account_id", account.ID, "error", delErr)
		}
		return err
	}
	e.metrics.Inc(MetricForgotPasswordRequest)
	return nil
}

func (e *Engine) deliverResetToken(ctx context.Context, account *domain.Account, token string, channel SideChannel) error {
	if channel == SideChannelSMS {
		if err := e.sms.SendSMS(ctx, notify.ForgotPasswordSMS(account, token)); err != nil {
			return fmt.Errorf("send reset sms: %w", err)
		}
		return nil
	}
	if err := e.email.SendEmail(ctx, notify.ForgotPassword(account, token)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ChangeForgottenPassword redeems a reset token. The new password is checked
// against the policy before the token is spent. On success every session of
// the account is revoked and its failed attempt counter cleared.
func (e *Engine) ChangeForgottenPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrSessionNotFound
	}
	if err := e.passwords.Validate(ctx, newPassword); err != nil {
		return err
	}

	sess, err := e.forgot.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	account, err := e.accounts.ReadByID(ctx, sess.AccountID)
	if err != nil {
		return accountLookupErr(err)
	}
	if err := e.passwords.Change(ctx, e.accounts, account, newPassword); err != nil {
		return err
	}

	err = e.revokeSessions(ctx, account.ID, func(ctx context.Context) error {
		_, err := e.sessions.DeleteAll(ctx, account.ID)
		return err
	})
	if err != nil {
		return err
	}
	if err := e.failures.Delete(ctx, account.Username); err != nil {
		e.logger.WarnContext(ctx, "failed attempt counter not cleared", "account_id", account.ID, "error", err)
	}
	e.notifier.Notify(ctx, notify.PasswordChanged(account))
	e.metrics.Inc(MetricForgotPasswordCompleted)
	return nil
}

const revokeAttempts = 3

// revokeSessions runs revoke until it succeeds or revokeAttempts is spent.
func (e *Engine) revokeSessions(ctx context.Context, accountID string, revoke func(context.Context) error) error {
	var err error
	for i := 0; i < revokeAttempts; i++ {
		if err = revoke(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	e.logger.ErrorContext(ctx, "sessions not revoked after password change",
		"account_id", accountID, "attempts", revokeAttempts, "error", err)
	return fmt.Errorf("%w: %v", ErrSessionRevocationFailed, err)
}

// AreAccountCredentialsValid checks a username and password without touching
// failure accounting. Unknown usernames are reported as invalid.
func (e *Engine) AreAccountCredentialsValid(ctx context.Context, username, password string) (bool, error) {
	account, err := e.accounts.ReadByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.passwords.Verify(account, password)
}
