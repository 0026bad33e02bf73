package notify

import (
	"fmt"
	"time"

	"github.com/MrEthical07/authengine/domain"
)

func ActivateAccount(account *domain.Account, token string) domain.EmailMessage {
	return domain.EmailMessage{
		To:      account.Email,
		Kind:    domain.EmailActivateAccount,
		Subject: "Activate your account",
		Body:    fmt.Sprintf("Hello %s, use this code to activate your account: %s", account.Username, token),
		Data:    map[string]string{"token": token, "account_id": account.ID},
	}
}

func ForgotPassword(account *domain.Account, token string) domain.EmailMessage {
	return domain.EmailMessage{
		To:      account.Email,
		Kind:    domain.EmailForgotPassword,
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Hello %s, use this code to choose a new password: %s", account.Username, token),
		Data:    map[string]string{"token": token, "account_id": account.ID},
	}
}

func ForgotPasswordSMS(account *domain.Account, token string) domain.SMSMessage {
	return domain.SMSMessage{
		To:   account.Telephone,
		Kind: domain.SMSForgotPassword,
		Body: "Password reset code: " + token,
		Data: map[string]string{"token": token},
	}
}

func TOTPCode(account *domain.Account, code string) domain.SMSMessage {
	return domain.SMSMessage{
		To:   account.Telephone,
		Kind: domain.SMSTotp,
		Body: "Your login code: " + code,
		Data: map[string]string{"code": code},
	}
}

func SuspiciousMFA(account *domain.Account, req *domain.AuthRequest) domain.EmailMessage {
	return domain.EmailMessage{
		To:      account.Email,
		Kind:    domain.EmailSuspiciousMFA,
		Subject: "Suspicious sign-in activity",
		Body: fmt.Sprintf("Someone entered your password but failed the second factor from %s (device %s).",
			req.IP, req.DeviceID),
		Data: map[string]string{"ip": req.IP, "device_id": req.DeviceID},
	}
}

func AccountDisabled(account *domain.Account, cause, unlockToken string, enableAt time.Time) domain.EmailMessage {
	return domain.EmailMessage{
		To:      account.Email,
		Kind:    domain.EmailAccountDisabled,
		Subject: "Your account was disabled",
		Body: fmt.Sprintf("Your account was disabled (%s). It will be enabled again at %s, or immediately with this unlock code: %s",
			cause, enableAt.UTC().Format(time.RFC3339), unlockToken),
		Data: map[string]string{"cause": cause, "unlock_token": unlockToken, "account_id": account.ID},
	}
}

func AdminAccountDisabled(adminEmail string, account *domain.Account, cause string) domain.EmailMessage {
	return domain.EmailMessage{
		To:      adminEmail,
		Kind:    domain.EmailAdminAccountDisabled,
		Subject: "Account disabled: " + account.Username,
		Body:    fmt.Sprintf("Account %s (%s) was disabled: %s", account.Username, account.ID, cause),
		Data:    map[string]string{"cause": cause, "account_id": account.ID},
	}
}

func NewDevice(account *domain.Account, req *domain.AuthRequest) domain.EmailMessage {
	where := req.IP
	if req.Location != nil && req.Location.CountryCode != "" {
		where = fmt.Sprintf("%s (%s)", req.IP, req.Location.CountryCode)
	}
	return domain.EmailMessage{
		To:      account.Email,
		Kind:    domain.EmailNewDevice,
		Subject: "New sign-in to your account",
		Body:    fmt.Sprintf("Your account was used from a new device %s at %s.", req.DeviceID, where),
		Data:    map[string]string{"ip": req.IP, "device_id": req.DeviceID},
	}
}

func PasswordChanged(account *domain.Account) domain.EmailMessage {
	return domain.EmailMessage{
		To:      account.Email,
		Kind:    domain.EmailPasswordChanged,
		Subject: "Your password was changed",
		Body:    "The password of your account was changed. If this was not you, contact support.",
		Data:    map[string]string{"account_id": account.ID},
	}
}
