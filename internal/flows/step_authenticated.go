package flows

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/notify"
	"github.com/MrEthical07/authengine/session"
)

// SessionIssuer creates sessions for authenticated accounts.
type SessionIssuer interface {
	Create(ctx context.Context, account *domain.Account, req *domain.AuthRequest) (*session.Issued, error)
}

// AuthenticatedStep issues the session token and clears failure state.
type AuthenticatedStep struct {
	Sessions SessionIssuer
	Failures domain.FailedAuthAttemptSessionEntity
	Notifier Notifier
	Logger   *slog.Logger
	Observe  Observer
}

func (s *AuthenticatedStep) Process(ctx context.Context, a *Attempt) (Outcome, error) {
	issued, err := s.Sessions.Create(ctx, a.Account, a.Request)
	if err != nil {
		return Outcome{}, err
	}

	if err := s.Failures.Delete(ctx, a.Request.Username); err != nil && s.Logger != nil {
		s.Logger.WarnContext(ctx, "failed attempt counter not cleared", "account_id", a.Account.ID, "error", err)
	}
	if issued.NewDevice {
		s.Observe.emit(EventNewDevice)
		notifierOrNoop(s.Notifier).Notify(ctx, notify.NewDevice(a.Account, a.Request))
	}

	*a.Session = domain.AuthSession{Version: a.Session.Version}
	s.Observe.emit(EventAuthenticated)
	return Finish(&Result{
		Kind:            ResultAuthenticated,
		Token:           issued.Token,
		SessionIssuedAt: issued.Session.IssuedAt,
	}), nil
}
