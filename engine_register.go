package authengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal"
	"github.com/MrEthical07/authengine/internal/flows"
	"github.com/MrEthical07/authengine/internal/notify"
	"github.com/MrEthical07/authengine/internal/saga"
)

// Register creates an account awaiting activation and emails the activation
// link. It returns the new account id.
//
// Every step after the account insert registers its undo action; when a
// later step fails (including the activation email) they run in reverse and
// the original error is returned.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return "", fmt.Errorf("%w: username, password and email are required", ErrInvalidRequest)
	}
	if req.PubKey != "" {
		if err := flows.ValidatePublicKey(req.PubKey); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	_, err := e.accounts.ReadByUsername(ctx, req.Username)
	switch {
	case err == nil:
		return "", ErrAccountExists
	case !errors.Is(err, domain.ErrNotFound):
		return "", err
	}

	if err := e.passwords.Validate(ctx, req.Password); err != nil {
		return "", err
	}
	hash, err := e.passwords.Hash(req.Password)
	if err != nil {
		return "", err
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash.Value,
		PasswordAlg:  hash.Alg,
		Telephone:    req.Telephone,
		Email:        req.Email,
		Role:         req.Role,
		Status:       domain.AccountDisabledUntilActivation,
		PubKey:       req.PubKey,
		CreatedAt:    e.now(),
	}
	if err := e.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return "", ErrAccountExists
		}
		return "", err
	}

	logger := e.logger.With("operation", "register", "account_id", account.ID)
	rollback := saga.New("register", logger)
	rollback.Defer("delete account", func(ctx context.Context) error {
		return e.accounts.Delete(ctx, account.ID)
	})

	if err := e.armActivation(ctx, account, rollback); err != nil {
		e.metrics.Inc(MetricRegistrationRollback)
		if rbErr := rollback.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			logger.ErrorContext(ctx, "registration rollback incomplete", "error", err, "rollback_error", rbErr)
		}
		return "", err
	}

	e.metrics.Inc(MetricRegistrationSuccess)
	logger.InfoContext(ctx, "account registered")
	return account.ID, nil
}

func (e *Engine) armActivation(ctx context.Context, account *domain.Account, rollback *saga.Saga) error {
	token, err := internal.NewToken()
	if err != nil {
		return err
	}

	taskID, err := e.scheduler.ScheduleUnactivatedAccountDeletion(ctx, account.ID, e.now().Add(e.cfg.Account.ActivationTTL))
	if err != nil {
		return fmt.Errorf("schedule unactivated account deletion: %w", err)
	}
	rollback.DeferBestEffort("cancel unactivated account deletion", func(ctx context.Context) error {
		return e.scheduler.CancelUnactivatedAccountDeletion(ctx, taskID)
	})

	err = e.activations.Create(ctx, token, &domain.ActivateAccountSession{
		AccountID:      account.ID,
		DeletionTaskID: taskID,
	}, e.cfg.Account.ActivationTTL)
	if err != nil {
		return fmt.Errorf("persist activation session: %w", err)
	}
	rollback.Defer("delete activation session", func(ctx context.Context) error {
		return e.activations.Delete(ctx, token)
	})

	if err := e.email.SendEmail(ctx, notify.ActivateAccount(account, token)); err != nil {
		return fmt.Errorf("send activation email: %w", err)
	}
	return nil
}

// ActivateAccount redeems an activation token for accountID. An unknown,
// expired, already used or foreign token yields ErrSessionNotFound.
func (e *Engine) ActivateAccount(ctx context.Context, accountID, token string) error {
	if accountID == "" || token == "" {
		return ErrSessionNotFound
	}
	sess, err := e.activations.Read(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.AccountID != accountID {
		return ErrSessionNotFound
	}
	if sess, err = e.activations.Consume(ctx, token); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := e.scheduler.CancelUnactivatedAccountDeletion(ctx, sess.DeletionTaskID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		e.logger.WarnContext(ctx, "cancel unactivated account deletion failed", "account_id", accountID, "error", err)
	}
	if err := e.status.Enable(ctx, accountID, flows.OriginActivation); err != nil {
		return accountLookupErr(err)
	}
	e.metrics.Inc(MetricAccountActivated)
	return nil
}
