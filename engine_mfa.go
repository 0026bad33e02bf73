package authengine

import (
	"context"
)

// EnableMultiFactorAuthentication turns on SMS codes for the account. The
// account needs a telephone number and the engine an SMS sender.
func (e *Engine) EnableMultiFactorAuthentication(ctx context.Context, accountID string) error {
	account, err := e.accounts.ReadByID(ctx, accountID)
	if err != nil {
		return accountLookupErr(err)
	}
	if e.sms == nil || account.Telephone == "" {
		return ErrSideChannelUnavailable
	}
	if account.UsingMFA {
		return nil
	}
	return accountLookupErr(e.accounts.SetMFA(ctx, accountID, true))
}

func (e *Engine) DisableMultiFactorAuthentication(ctx context.Context, accountID string) error {
	account, err := e.accounts.ReadByID(ctx, accountID)
	if err != nil {
		return accountLookupErr(err)
	}
	if !account.UsingMFA {
		return nil
	}
	return accountLookupErr(e.accounts.SetMFA(ctx, accountID, false))
}
