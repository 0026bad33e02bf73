package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by entities when the addressed record does not exist or expired.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on a uniqueness violation.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict is returned when a compare-and-update lost a race.
	ErrConflict = errors.New("concurrent modification")
)

// AccountEntity persists accounts.
type AccountEntity interface {
	Create(ctx context.Context, account *Account) error
	ReadByID(ctx context.Context, id string) (*Account, error)
	ReadByUsername(ctx context.Context, username string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id string) error
	Enable(ctx context.Context, id string) error
	// Disable moves an enabled account to disabled. It reports false, without
	// error, when the account was not enabled.
	Disable(ctx context.Context, id string) (bool, error)
	ChangePassword(ctx context.Context, id string, hash string, alg PasswordAlgorithm) error
	SetMFA(ctx context.Context, id string, enabled bool) error
}

// AuthSessionEntity persists on-going authentication sessions keyed by (username, device).
type AuthSessionEntity interface {
	// Create stores s only when no session exists for the key.
	Create(ctx context.Context, username, deviceID string, s *AuthSession, ttl time.Duration) (bool, error)
	Read(ctx context.Context, username, deviceID string) (*AuthSession, error)
	// Update replaces the stored session when its version equals s.Version and
	// advances s.Version. A version mismatch yields ErrConflict.
	Update(ctx context.Context, username, deviceID string, s *AuthSession, ttl time.Duration) error
	Delete(ctx context.Context, username, deviceID string) error
}

// FailedAuthAttemptSessionEntity counts recent failures per username.
type FailedAuthAttemptSessionEntity interface {
	// Increment atomically bumps the counter, records ip and refreshes the TTL.
	Increment(ctx context.Context, username, ip string, ttl time.Duration) (*FailedAuthAttemptSession, error)
	Read(ctx context.Context, username string) (*FailedAuthAttemptSession, error)
	Delete(ctx context.Context, username string) error
}

// FailedAuthenticationAttemptsEntity is the append-only lockout audit log.
type FailedAuthenticationAttemptsEntity interface {
	Create(ctx context.Context, attempt *FailedAuthenticationAttempt) error
	ReadRange(ctx context.Context, accountID string, from, to time.Time) ([]FailedAuthenticationAttempt, error)
}

// ActivateAccountSessionEntity stores activation sessions by one-time token.
type ActivateAccountSessionEntity interface {
	Create(ctx context.Context, token string, s *ActivateAccountSession, ttl time.Duration) error
	Read(ctx context.Context, token string) (*ActivateAccountSession, error)
	// Consume reads and deletes in one step.
	Consume(ctx context.Context, token string) (*ActivateAccountSession, error)
	Delete(ctx context.Context, token string) error
}

// ForgotPasswordSessionEntity stores forgot-password sessions by one-time token.
type ForgotPasswordSessionEntity interface {
	Create(ctx context.Context, token string, s *ForgotPasswordSession, ttl time.Duration) error
	Read(ctx context.Context, token string) (*ForgotPasswordSession, error)
	Consume(ctx context.Context, token string) (*ForgotPasswordSession, error)
	Delete(ctx context.Context, token string) error
}

// UnlockSessionEntity stores the unlock session armed when an account is
// disabled. An account has at most one current unlock session, bound to the id
// of the unlock token that redeems it.
type UnlockSessionEntity interface {
	// Create makes s the current unlock session of s.AccountID, superseding
	// any earlier one.
	Create(ctx context.Context, tokenID string, s *UnlockSession, ttl time.Duration) error
	// Read returns the current unlock session of the account.
	Read(ctx context.Context, accountID string) (*UnlockSession, error)
	// Consume reads and deletes the current unlock session of the account
	// only while it is bound to tokenID.
	Consume(ctx context.Context, accountID, tokenID string) (*UnlockSession, error)
	// Release deletes the current unlock session of the account and returns it.
	Release(ctx context.Context, accountID string) (*UnlockSession, error)
}

// AuthenticationEntryPointEntity records the devices an account used.
type AuthenticationEntryPointEntity interface {
	Create(ctx context.Context, point *AccessPoint) error
	Exists(ctx context.Context, accountID, deviceID string) (bool, error)
	ReadAll(ctx context.Context, accountID string) ([]AccessPoint, error)
	DeleteAll(ctx context.Context, accountID string) error
}

// ActiveUserSessionEntity persists issued sessions.
type ActiveUserSessionEntity interface {
	Create(ctx context.Context, s *ActiveUserSession, ttl time.Duration) error
	Read(ctx context.Context, accountID string, issuedAt int64) (*ActiveUserSession, error)
	ReadAll(ctx context.Context, accountID string) ([]ActiveUserSession, error)
	Delete(ctx context.Context, accountID string, issuedAt int64) error
	// DeleteAll removes every session of the account and reports how many existed.
	DeleteAll(ctx context.Context, accountID string) (int, error)
}

// Scheduler runs deferred tasks.
type Scheduler interface {
	ScheduleAccountEnabling(ctx context.Context, accountID string, at time.Time) (TaskID, error)
	CancelAccountEnabling(ctx context.Context, id TaskID) error
	ScheduleUnactivatedAccountDeletion(ctx context.Context, accountID string, at time.Time) (TaskID, error)
	CancelUnactivatedAccountDeletion(ctx context.Context, id TaskID) error
	ScheduleActiveUserSessionDeletion(ctx context.Context, accountID string, issuedAt int64, at time.Time) (TaskID, error)
	CancelActiveUserSessionDeletion(ctx context.Context, id TaskID) error
}

// EmailKind classifies outgoing email.
type EmailKind string

const (
	EmailActivateAccount      EmailKind = "activate_account"
	EmailForgotPassword       EmailKind = "forgot_password"
	EmailSuspiciousMFA        EmailKind = "suspicious_mfa"
	EmailAccountDisabled      EmailKind = "account_disabled"
	EmailAdminAccountDisabled EmailKind = "admin_account_disabled"
	EmailNewDevice            EmailKind = "new_device"
	EmailPasswordChanged      EmailKind = "password_changed"
)

// EmailMessage is one email handed to the EmailSender.
type EmailMessage struct {
	To      string
	Kind    EmailKind
	Subject string
	Body    string
	// Data carries the machine-readable values (tokens, ips) rendered into Body.
	Data map[string]string
}

// EmailSender delivers email.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// SMSKind classifies outgoing SMS.
type SMSKind string

const (
	SMSTotp           SMSKind = "totp"
	SMSForgotPassword SMSKind = "forgot_password"
)

// SMSMessage is one text message handed to the SmsSender.
type SMSMessage struct {
	To   string
	Kind SMSKind
	Body string
	Data map[string]string
}

// SmsSender delivers text messages.
type SmsSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) error
}

// RecaptchaValidator checks a client recaptcha token.
type RecaptchaValidator interface {
	Validate(ctx context.Context, token, remoteIP string) (bool, error)
}

// BreachChecker reports whether a password appears in a known breach corpus.
type BreachChecker interface {
	IsBreached(ctx context.Context, password string) (bool, error)
}
