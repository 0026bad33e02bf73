package authengine

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/jwt"
	"github.com/MrEthical07/authengine/password"
)

// EnvPrefix prefixes every variable read by LoadConfigFromEnv.
const EnvPrefix = "AUTHENGINE_"

// Config defines the engine configuration tree. Zero values are not usable;
// start from DefaultConfig or LoadConfigFromEnv.
type Config struct {
	Tokens        TokenConfig        `envPrefix:"TOKENS_"`
	Auth          AuthConfig         `envPrefix:"AUTH_"`
	TOTP          TOTPConfig         `envPrefix:"TOTP_"`
	Password      PasswordConfig     `envPrefix:"PASSWORD_"`
	Account       AccountConfig      `envPrefix:"ACCOUNT_"`
	Redis         RedisConfig        `envPrefix:"REDIS_"`
	Notifications NotificationConfig `envPrefix:"NOTIFY_"`
	Metrics       MetricsConfig      `envPrefix:"METRICS_"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig configures session and unlock token signing.
type TokenConfig struct {
	SigningMethod jwt.SigningMethod `env:"SIGNING_METHOD" envDefault:"ed25519"`
	// PrivateKey is a PEM ed25519 key, or the hs256 secret.
	PrivateKey string        `env:"PRIVATE_KEY"`
	PublicKey  string        `env:"PUBLIC_KEY"`
	Issuer     string        `env:"ISSUER" envDefault:"authengine"`
	Audience   string        `env:"AUDIENCE"`
	Leeway     time.Duration `env:"LEEWAY" envDefault:"30s"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

/*
====================================
AUTH CONFIG
====================================
*/

// AuthConfig tunes the authentication step machine and its escalation.
type AuthConfig struct {
	// OnGoingSessionTTL bounds how long a multi-step attempt stays resumable.
	OnGoingSessionTTL time.Duration `env:"ONGOING_SESSION_TTL" envDefault:"10m"`
	FailedAttemptTTL  time.Duration `env:"FAILED_ATTEMPT_TTL" envDefault:"10m"`
	CaptchaThreshold  int64         `env:"CAPTCHA_THRESHOLD" envDefault:"10"`
	LockoutThreshold  int64         `env:"LOCKOUT_THRESHOLD" envDefault:"20"`
	ChallengeSize     int           `env:"CHALLENGE_SIZE" envDefault:"32"`
	MaxSteps          int           `env:"MAX_STEPS" envDefault:"16"`
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig configures the SMS one-time codes.
type TOTPConfig struct {
	// Secret is the server key per-device code secrets are derived from.
	Secret string        `env:"SECRET"`
	Period time.Duration `env:"PERIOD" envDefault:"30s"`
	Skew   uint          `env:"SKEW" envDefault:"1"`
	Digits int           `env:"DIGITS" envDefault:"6"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing scheme for new credentials and the
// acceptance policy.
type PasswordConfig struct {
	// Algorithm is "argon2id" or "bcrypt". Both are always accepted for
	// verification.
	Algorithm  string                `env:"ALGORITHM" envDefault:"argon2id"`
	Argon2     password.Argon2Config `envPrefix:"ARGON2_"`
	BcryptCost int                   `env:"BCRYPT_COST" envDefault:"12"`
	Policy     password.Policy       `envPrefix:"POLICY_"`
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig bounds the account lifecycle tokens and lockout duration.
type AccountConfig struct {
	ActivationTTL     time.Duration `env:"ACTIVATION_TTL" envDefault:"24h"`
	ForgotPasswordTTL time.Duration `env:"FORGOT_PASSWORD_TTL" envDefault:"30m"`
	// EnableAfter is how long a locked account stays disabled.
	EnableAfter time.Duration `env:"ENABLE_AFTER" envDefault:"120m"`
	// AdminEmail receives a copy of every disable notice when set.
	AdminEmail string `env:"ADMIN_EMAIL"`
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig holds key prefixes. Addr is only read by the worker binary;
// library users pass their own client to the Builder.
type RedisConfig struct {
	Addr                string `env:"ADDR" envDefault:"localhost:6379"`
	Password            string `env:"PASSWORD"`
	DB                  int    `env:"DB" envDefault:"0"`
	AuthSessionPrefix   string `env:"AUTH_SESSION_PREFIX" envDefault:"aos"`
	FailedAttemptPrefix string `env:"FAILED_ATTEMPT_PREFIX" envDefault:"ffa"`
	SessionPrefix       string `env:"SESSION_PREFIX" envDefault:"aus"`
	SchedulerPrefix     string `env:"SCHEDULER_PREFIX" envDefault:"asq"`
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig controls the fire-and-forget email queue.
type NotificationConfig struct {
	BufferSize  int           `env:"BUFFER_SIZE" envDefault:"256"`
	DropIfFull  bool          `env:"DROP_IF_FULL" envDefault:"true"`
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED" envDefault:"true"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS" envDefault:"false"`
}

// DefaultConfig returns the production defaults. Tokens.PrivateKey and
// TOTP.Secret have no default and must be set.
func DefaultConfig() Config {
	return Config{
		Tokens: TokenConfig{
			SigningMethod: jwt.MethodEd25519,
			Issuer:        "authengine",
			Leeway:        30 * time.Second,
			SessionTTL:    24 * time.Hour,
		},
		Auth: AuthConfig{
			OnGoingSessionTTL: 10 * time.Minute,
			FailedAttemptTTL:  10 * time.Minute,
			CaptchaThreshold:  10,
			LockoutThreshold:  20,
			ChallengeSize:     32,
			MaxSteps:          16,
		},
		TOTP: TOTPConfig{
			Period: 30 * time.Second,
			Skew:   1,
			Digits: 6,
		},
		Password: PasswordConfig{
			Algorithm: "argon2id",
			Argon2: password.Argon2Config{
				Memory:      64 * 1024,
				Time:        3,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
			BcryptCost: 12,
			Policy:     password.Policy{MinLength: 10, MaxLength: 72, MinClasses: 2},
		},
		Account: AccountConfig{
			ActivationTTL:     24 * time.Hour,
			ForgotPasswordTTL: 30 * time.Minute,
			EnableAfter:       120 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:                "localhost:6379",
			AuthSessionPrefix:   "aos",
			FailedAttemptPrefix: "ffa",
			SessionPrefix:       "aus",
			SchedulerPrefix:     "asq",
		},
		Notifications: NotificationConfig{
			BufferSize:  256,
			DropIfFull:  true,
			SendTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// LoadConfigFromEnv reads the configuration from AUTHENGINE_* variables,
// falling back to the defaults, and validates it.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. Key material is checked when the
// token manager is built.
func (c *Config) Validate() error {
	switch {
	case c.Tokens.SessionTTL <= 0:
		return fmt.Errorf("%w: Tokens.SessionTTL must be > 0", ErrInvalidConfig)
	case c.Tokens.PrivateKey == "":
		return fmt.Errorf("%w: Tokens.PrivateKey must be set", ErrInvalidConfig)
	case c.Auth.OnGoingSessionTTL <= 0:
		return fmt.Errorf("%w: Auth.OnGoingSessionTTL must be > 0", ErrInvalidConfig)
	case c.Auth.FailedAttemptTTL <= 0:
		return fmt.Errorf("%w: Auth.FailedAttemptTTL must be > 0", ErrInvalidConfig)
	case c.Auth.CaptchaThreshold <= 0:
		return fmt.Errorf("%w: Auth.CaptchaThreshold must be > 0", ErrInvalidConfig)
	case c.Auth.LockoutThreshold <= c.Auth.CaptchaThreshold:
		return fmt.Errorf("%w: Auth.LockoutThreshold must exceed Auth.CaptchaThreshold", ErrInvalidConfig)
	case c.Auth.ChallengeSize < 16:
		return fmt.Errorf("%w: Auth.ChallengeSize must be >= 16", ErrInvalidConfig)
	case len(c.TOTP.Secret) < 16:
		return fmt.Errorf("%w: TOTP.Secret must be at least 16 bytes", ErrInvalidConfig)
	case c.TOTP.Digits != 6 && c.TOTP.Digits != 8:
		return fmt.Errorf("%w: TOTP.Digits must be 6 or 8", ErrInvalidConfig)
	case c.Password.Algorithm != "argon2id" && c.Password.Algorithm != "bcrypt":
		return fmt.Errorf("%w: Password.Algorithm must be argon2id or bcrypt", ErrInvalidConfig)
	case c.Account.ActivationTTL <= 0 || c.Account.ForgotPasswordTTL <= 0:
		return fmt.Errorf("%w: Account token TTLs must be > 0", ErrInvalidConfig)
	case c.Account.EnableAfter <= 0:
		return fmt.Errorf("%w: Account.EnableAfter must be > 0", ErrInvalidConfig)
	case c.Notifications.BufferSize <= 0:
		return fmt.Errorf("%w: Notifications.BufferSize must be > 0", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) passwordAlgorithm() domain.PasswordAlgorithm {
	if c.Password.Algorithm == "bcrypt" {
		return domain.PasswordBcrypt
	}
	return domain.PasswordArgon2id
}
