package authengine

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/jwt"
	"github.com/MrEthical07/authengine/session"
)

// ValidateSession verifies a session token and returns its live session.
// Revoked and expired sessions yield ErrSessionNotFound.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*ActiveUserSession, error) {
	return e.readSession(ctx, token)
}

func (e *Engine) readSession(ctx context.Context, token string) (*domain.ActiveUserSession, error) {
	sess, err := e.sessions.Read(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrSessionRevoked) || errors.Is(err, jwt.ErrInvalidToken) || errors.Is(err, jwt.ErrWrongKind) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Logout revokes the session behind token.
func (e *Engine) Logout(ctx context.Context, token string) error {
	sess, err := e.readSession(ctx, token)
	if err != nil {
		return err
	}
	if err := e.sessions.Delete(ctx, sess.AccountID, sess.IssuedAt); err != nil {
		return err
	}
	e.metrics.Inc(MetricLogout)
	return nil
}

// LogoutFromAllDevices revokes every session of the account and returns how
// many were revoked.
func (e *Engine) LogoutFromAllDevices(ctx context.Context, accountID string) (int, error) {
	n, err := e.sessions.DeleteAll(ctx, accountID)
	if err != nil {
		return 0, err
	}
	e.metrics.Inc(MetricLogoutAll)
	return n, nil
}

// LogoutFromAllDevicesExceptCurrent revokes every session of the token's
// account except the token's own.
func (e *Engine) LogoutFromAllDevicesExceptCurrent(ctx context.Context, token string) (int, error) {
	sess, err := e.readSession(ctx, token)
	if err != nil {
		return 0, err
	}
	n, err := e.sessions.DeleteAllButCurrent(ctx, sess.AccountID, sess.IssuedAt)
	if err != nil {
		return n, err
	}
	e.metrics.Inc(MetricLogoutAll)
	return n, nil
}

// GetActiveSessions lists the live sessions of an account, oldest first.
func (e *Engine) GetActiveSessions(ctx context.Context, accountID string) ([]ActiveUserSession, error) {
	return e.sessions.ReadAll(ctx, accountID)
}

// GetFailedAuthAttempts returns the lockout records of an account with
// from <= timestamp < to.
func (e *Engine) GetFailedAuthAttempts(ctx context.Context, accountID string, from, to time.Time) ([]FailedAuthenticationAttempt, error) {
	if !to.After(from) {
		return nil, ErrInvalidRequest
	}
	return e.audit.ReadRange(ctx, accountID, from, to)
}
