package authengine

import (
	"context"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/flows"
)

// EnableAccount re-enables a disabled account on an administrator's behalf.
// The unlock token emailed when it was disabled stops working. Accounts
// awaiting activation are refused with ErrAccountNotActivated.
func (e *Engine) EnableAccount(ctx context.Context, accountID string) error {
	return accountLookupErr(e.status.Enable(ctx, accountID, flows.OriginAdmin))
}

// DisableAccount revokes every session of the account, disables it and
// schedules its automatic re-enable. Disabling a disabled account is a no-op.
// Accounts awaiting activation are refused with ErrAccountNotActivated.
func (e *Engine) DisableAccount(ctx context.Context, accountID, cause string) error {
	account, err := e.accounts.ReadByID(ctx, accountID)
	if err != nil {
		return accountLookupErr(err)
	}
	if account.Status == domain.AccountDisabledUntilActivation {
		return ErrAccountNotActivated
	}
	if cause == "" {
		cause = "disabled by administrator"
	}
	return e.status.Disable(ctx, account, cause)
}

// UnlockAccount redeems the unlock token emailed when an account is
// disabled. It returns the unlocked account id.
func (e *Engine) UnlockAccount(ctx context.Context, token string) (string, error) {
	id, err := e.status.Unlock(ctx, token)
	if err != nil {
		return "", accountLookupErr(err)
	}
	return id, nil
}

// AccountStatus reports the status of an account.
func (e *Engine) AccountStatus(ctx context.Context, accountID string) (domain.AccountStatus, error) {
	account, err := e.accounts.ReadByID(ctx, accountID)
	if err != nil {
		return 0, accountLookupErr(err)
	}
	return account.Status, nil
}
