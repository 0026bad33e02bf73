package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/notify"
	"github.com/MrEthical07/authengine/internal/saga"
	"github.com/MrEthical07/authengine/jwt"
)

var ErrUnlockTokenInvalid = errors.New("unlock token invalid")

// EnableOrigin records who re-enables an account.
type EnableOrigin uint8

const (
	OriginAdmin EnableOrigin = iota + 1
	OriginUnlockToken
	OriginScheduledTask
	OriginActivation
)

func (o EnableOrigin) String() string {
	switch o {
	case OriginAdmin:
		return "admin"
	case OriginUnlockToken:
		return "unlock_token"
	case OriginScheduledTask:
		return "scheduled_task"
	case OriginActivation:
		return "activation"
	default:
		return "unknown"
	}
}

// UnlockTokens signs and verifies unlock tokens.
type UnlockTokens interface {
	CreateUnlock(accountID string, now time.Time, ttl time.Duration) (token, id string, err error)
	ParseUnlock(token string) (*jwt.UnlockClaims, error)
}

// SessionRevoker revokes every session of an account.
type SessionRevoker interface {
	DeleteAll(ctx context.Context, accountID string) (int, error)
}

// AccountStatusDeps wires an AccountStatusManager.
type AccountStatusDeps struct {
	Accounts    domain.AccountEntity
	Sessions    SessionRevoker
	Scheduler   domain.Scheduler
	Unlocks     domain.UnlockSessionEntity
	Tokens      UnlockTokens
	Notifier    Notifier
	AdminEmail  string
	EnableAfter time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
	Observe     Observer
}

// AccountStatusManager moves accounts between ENABLED and DISABLED.
//
// Disable revokes sessions, flips the flag, then arms the automatic
// re-enable (signed unlock token, scheduled task, unlock session). If arming
// fails the flag is flipped back; if that fails too the account is left
// disabled without a way back and the error is logged for manual
// intervention.
//
// An account has at most one armed unlock. Enabling the account by any route
// retires it: the unlock token stops redeeming and the scheduled re-enable is
// cancelled.
type AccountStatusManager struct {
	deps AccountStatusDeps
}

func NewAccountStatusManager(deps AccountStatusDeps) (*AccountStatusManager, error) {
	if deps.Accounts == nil || deps.Sessions == nil || deps.Scheduler == nil || deps.Unlocks == nil || deps.Tokens == nil {
		return nil, fmt.Errorf("%w: account status manager dependencies missing", ErrStepMisconfigured)
	}
	if deps.EnableAfter <= 0 {
		deps.EnableAfter = 120 * time.Minute
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "account_status")
	deps.Notifier = notifierOrNoop(deps.Notifier)
	return &AccountStatusManager{deps: deps}, nil
}

// Disable only acts on enabled accounts. Of several concurrent calls for the
// same account exactly one arms the unlock and notifies.
func (m *AccountStatusManager) Disable(ctx context.Context, account *domain.Account, cause string) error {
	if account.Status != domain.AccountEnabled {
		return nil
	}
	d := m.deps
	logger := d.Logger.With("account_id", account.ID, "cause", cause)

	if _, err := d.Sessions.DeleteAll(ctx, account.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	changed, err := d.Accounts.Disable(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("disable account: %w", err)
	}
	account.Status = domain.AccountDisabled
	if !changed {
		logger.DebugContext(ctx, "account already disabled")
		return nil
	}

	rollback := saga.New("account_disable", logger)
	rollback.Defer("enable account", func(ctx context.Context) error {
		return d.Accounts.Enable(ctx, account.ID)
	})

	now := now(d.Now)
	unlockToken, err := m.armUnlock(ctx, account.ID, now, rollback)
	if err != nil {
		if rbErr := rollback.Rollback(ctx); rbErr != nil {
			logger.ErrorContext(ctx, "account disabled without unlock path",
				"manual_intervention", true, "error", err, "rollback_error", rbErr)
			return errors.Join(err, rbErr)
		}
		account.Status = domain.AccountEnabled
		return err
	}

	d.Notifier.Notify(ctx, notify.AccountDisabled(account, cause, unlockToken, now.Add(d.EnableAfter)))
	if d.AdminEmail != "" {
		d.Notifier.Notify(ctx, notify.AdminAccountDisabled(d.AdminEmail, account, cause))
	}
	d.Observe.emit(EventAccountDisabled)
	logger.InfoContext(ctx, "account disabled")
	return nil
}

func (m *AccountStatusManager) armUnlock(ctx context.Context, accountID string, now time.Time, rollback *saga.Saga) (string, error) {
	d := m.deps

	token, tokenID, err := d.Tokens.CreateUnlock(accountID, now, d.EnableAfter)
	if err != nil {
		return "", fmt.Errorf("sign unlock token: %w", err)
	}

	taskID, err := d.Scheduler.ScheduleAccountEnabling(ctx, accountID, now.Add(d.EnableAfter))
	if err != nil {
		return "", fmt.Errorf("schedule account enabling: %w", err)
	}
	rollback.DeferBestEffort("cancel account enabling", func(ctx context.Context) error {
		return d.Scheduler.CancelAccountEnabling(ctx, taskID)
	})

	err = d.Unlocks.Create(ctx, tokenID, &domain.UnlockSession{AccountID: accountID, EnableTaskID: taskID}, d.EnableAfter)
	if err != nil {
		return "", fmt.Errorf("persist unlock session: %w", err)
	}
	return token, nil
}

// Enable clears the disabled flag and retires the account's armed unlock.
// Enabling an enabled account is a no-op. Accounts awaiting activation are
// enabled only by activation; other origins get ErrAccountNotActivated.
func (m *AccountStatusManager) Enable(ctx context.Context, accountID string, origin EnableOrigin) error {
	d := m.deps
	account, err := d.Accounts.ReadByID(ctx, accountID)
	if err != nil {
		return err
	}
	switch {
	case account.Status == domain.AccountEnabled:
		return nil
	case account.Status == domain.AccountDisabledUntilActivation && origin != OriginActivation:
		return ErrAccountNotActivated
	}
	if err := d.Accounts.Enable(ctx, accountID); err != nil {
		return fmt.Errorf("enable account: %w", err)
	}
	if origin != OriginActivation && origin != OriginUnlockToken {
		m.retireUnlock(ctx, accountID)
	}
	d.Observe.emit(EventAccountEnabled)
	d.Logger.InfoContext(ctx, "account enabled", "account_id", accountID, "origin", origin.String())
	return nil
}

// EnableScheduled runs the automatic re-enable armed by Disable. A task that
// is not the one bound to the account's current unlock is stale and ignored.
func (m *AccountStatusManager) EnableScheduled(ctx context.Context, accountID string, taskID domain.TaskID) error {
	d := m.deps
	current, err := d.Unlocks.Read(ctx, accountID)
	switch {
	case err == nil && current.EnableTaskID != taskID:
		d.Logger.InfoContext(ctx, "stale account enabling ignored", "account_id", accountID, "task_id", string(taskID))
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return m.Enable(ctx, accountID, OriginScheduledTask)
}

// retireUnlock deletes the account's unlock session and cancels its scheduled
// re-enable. Failures are logged: a leftover session is superseded by the
// next Disable and a leftover task is ignored by EnableScheduled.
func (m *AccountStatusManager) retireUnlock(ctx context.Context, accountID string) {
	d := m.deps
	sess, err := d.Unlocks.Release(ctx, accountID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			d.Logger.WarnContext(ctx, "release unlock session failed", "account_id", accountID, "error", err)
		}
		return
	}
	m.cancelEnabling(ctx, sess)
}

func (m *AccountStatusManager) cancelEnabling(ctx context.Context, sess *domain.UnlockSession) {
	if sess.EnableTaskID == "" {
		return
	}
	if err := m.deps.Scheduler.CancelAccountEnabling(ctx, sess.EnableTaskID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.deps.Logger.WarnContext(ctx, "cancel account enabling failed", "account_id", sess.AccountID, "error", err)
	}
}

// Unlock redeems an unlock token: the unlock session is consumed, the pending
// automatic re-enable is cancelled and the account enabled. Only the token of
// the account's current unlock redeems. It returns the unlocked account id.
func (m *AccountStatusManager) Unlock(ctx context.Context, token string) (string, error) {
	d := m.deps
	claims, err := d.Tokens.ParseUnlock(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnlockTokenInvalid, err)
	}

	sess, err := d.Unlocks.Consume(ctx, claims.Subject, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrUnlockTokenInvalid
		}
		return "", err
	}
	if sess.AccountID != claims.Subject {
		return "", ErrUnlockTokenInvalid
	}

	m.cancelEnabling(ctx, sess)
	return sess.AccountID, m.Enable(ctx, sess.AccountID, OriginUnlockToken)
}
