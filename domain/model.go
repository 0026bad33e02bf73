package domain

import "time"

// AccountStatus is the lifecycle state of an account.
type AccountStatus uint8

const (
	// AccountEnabled accounts may authenticate.
	AccountEnabled AccountStatus = iota + 1
	// AccountDisabled accounts were disabled by lockout or an administrator.
	AccountDisabled
	// AccountDisabledUntilActivation accounts were registered but never activated.
	AccountDisabledUntilActivation
)

func (s AccountStatus) String() string {
	switch s {
	case AccountEnabled:
		return "enabled"
	case AccountDisabled:
		return "disabled"
	case AccountDisabledUntilActivation:
		return "disabled_until_activation"
	default:
		return "unknown"
	}
}

// PasswordAlgorithm identifies the hashing scheme of a stored credential.
type PasswordAlgorithm uint8

const (
	PasswordArgon2id PasswordAlgorithm = iota + 1
	PasswordBcrypt
)

func (a PasswordAlgorithm) String() string {
	switch a {
	case PasswordArgon2id:
		return "argon2id"
	case PasswordBcrypt:
		return "bcrypt"
	default:
		return "unknown"
	}
}

// Account is the durable principal record.
//
// PasswordHash is a self-describing encoding (PHC for argon2id, modular crypt
// for bcrypt) that carries its own salt.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	PasswordAlg  PasswordAlgorithm
	Telephone    string
	Email        string
	Role         string
	Status       AccountStatus
	UsingMFA     bool
	PubKey       string
	CreatedAt    time.Time
}

// Enabled reports whether the account may authenticate.
func (a *Account) Enabled() bool {
	return a != nil && a.Status == AccountEnabled
}

// Location is the client location resolved by the caller.
type Location struct {
	CountryCode string  `json:"countryCode,omitempty"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"lat,omitempty"`
	Longitude   float64 `json:"lon,omitempty"`
}

// ChallengeResponse carries a signature over a previously issued nonce.
type ChallengeResponse struct {
	Signature     string
	SignAlgorithm string
	SignEncoding  string
}

// AuthRequest is one authentication round-trip.
type AuthRequest struct {
	Username          string
	Password          string
	DeviceID          string
	IP                string
	Location          *Location
	TOTP              string
	Recaptcha         string
	ChallengeResponse *ChallengeResponse
	GenerateChallenge bool
}

// AuthSession is the on-going authentication state for (username, device).
type AuthSession struct {
	RecaptchaRequired bool   `json:"recaptchaRequired"`
	MFATokenHash      string `json:"mfaTokenHash,omitempty"`
	ChallengeNonce    string `json:"challengeNonce,omitempty"`
	Version           int64  `json:"version"`
}

// FailedAuthAttemptSession counts recent failures for a username.
type FailedAuthAttemptSession struct {
	Counter int64
	IPs     []string
}

// FailedAuthenticationAttempt is the durable record written when lockout fires.
type FailedAuthenticationAttempt struct {
	ID        string
	AccountID string
	Username  string
	Timestamp time.Time
	DeviceID  string
	Location  *Location
	BannedIPs []string
	Counter   int64
}

// ForgotPasswordSession is bound to a single-use forgot-password token.
type ForgotPasswordSession struct {
	AccountID   string `json:"accountId"`
	AccountRole string `json:"accountRole"`
}

// ActivateAccountSession is bound to a single-use activation token.
type ActivateAccountSession struct {
	AccountID      string `json:"accountId"`
	DeletionTaskID TaskID `json:"deletionTaskId,omitempty"`
}

// UnlockSession is bound to the id of a signed unlock token.
type UnlockSession struct {
	AccountID    string `json:"accountId"`
	EnableTaskID TaskID `json:"enableTaskId,omitempty"`
}

// ActiveUserSession is one issued, currently valid session token.
// IssuedAt (unix nanoseconds) doubles as the session id within an account.
type ActiveUserSession struct {
	IssuedAt       int64     `json:"issuedAt"`
	AccountID      string    `json:"accountId"`
	Role           string    `json:"role,omitempty"`
	IP             string    `json:"ip,omitempty"`
	DeviceID       string    `json:"deviceId,omitempty"`
	Location       *Location `json:"location,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt"`
	DeletionTaskID TaskID    `json:"deletionTaskId,omitempty"`
}

// AccessPoint is a device an account has authenticated from.
type AccessPoint struct {
	AccountID string
	DeviceID  string
	IP        string
	Location  *Location
	FirstSeen time.Time
}

// TaskID identifies a deferred task held by a Scheduler.
type TaskID string
