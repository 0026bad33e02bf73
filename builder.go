package authengine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/flows"
	"github.com/MrEthical07/authengine/internal/notify"
	"github.com/MrEthical07/authengine/internal/stores"
	"github.com/MrEthical07/authengine/jwt"
	"github.com/MrEthical07/authengine/password"
	"github.com/MrEthical07/authengine/scheduler"
	"github.com/MrEthical07/authengine/session"
	"github.com/MrEthical07/authengine/storage/memory"
)

// Builder collects engine dependencies. Builder instances are configured
// during initialization and used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts     domain.AccountEntity
	audit        domain.FailedAuthenticationAttemptsEntity
	accessPoints domain.AuthenticationEntryPointEntity
	scheduler    domain.Scheduler

	email     domain.EmailSender
	sms       domain.SmsSender
	recaptcha domain.RecaptchaValidator
	breach    domain.BreachChecker

	logger *slog.Logger
	now    func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client backing every transient store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAccounts(accounts domain.AccountEntity) *Builder {
	b.accounts = accounts
	return b
}

// WithFailedAttemptAudit sets the durable lockout log. Without it records
// are kept in process memory.
func (b *Builder) WithFailedAttemptAudit(audit domain.FailedAuthenticationAttemptsEntity) *Builder {
	b.audit = audit
	return b
}

// WithAccessPoints sets the device registry. Without it devices are tracked
// in process memory.
func (b *Builder) WithAccessPoints(points domain.AuthenticationEntryPointEntity) *Builder {
	b.accessPoints = points
	return b
}

// WithScheduler replaces the built-in Redis scheduler. The caller then
// delivers due tasks through Engine.HandleTask.
func (b *Builder) WithScheduler(s domain.Scheduler) *Builder {
	b.scheduler = s
	return b
}

func (b *Builder) WithEmailSender(s domain.EmailSender) *Builder {
	b.email = s
	return b
}

func (b *Builder) WithSmsSender(s domain.SmsSender) *Builder {
	b.sms = s
	return b
}

func (b *Builder) WithRecaptcha(v domain.RecaptchaValidator) *Builder {
	b.recaptcha = v
	return b
}

func (b *Builder) WithBreachChecker(c domain.BreachChecker) *Builder {
	b.breach = c
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock overrides time.Now. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (_ *Engine, err error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	cfg := b.config
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case b.redis == nil:
		return nil, errors.New("redis client required")
	case b.accounts == nil:
		return nil, errors.New("account entity required")
	case b.email == nil:
		return nil, errors.New("email sender required")
	case b.recaptcha == nil:
		return nil, errors.New("recaptcha validator required")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	audit := b.audit
	if audit == nil {
		logger.Warn("no failed attempt audit configured, records kept in memory")
		audit = memory.NewFailedAttempts()
	}
	points := b.accessPoints
	if points == nil {
		points = memory.NewAccessPoints()
	}

	e := &Engine{
		cfg:          cfg,
		logger:       logger.With("component", "authengine"),
		now:          now,
		accounts:     b.accounts,
		audit:        audit,
		authSessions: stores.NewAuthSessionStore(b.redis, cfg.Redis.AuthSessionPrefix),
		failures:     stores.NewFailedAttemptStore(b.redis, cfg.Redis.FailedAttemptPrefix),
		activations:  stores.NewActivateAccountSessionStore(b.redis),
		forgot:       stores.NewForgotPasswordSessionStore(b.redis),
		email:        b.email,
		sms:          b.sms,
		metrics:      NewMetrics(cfg.Metrics),
	}

	e.scheduler = b.scheduler
	if e.scheduler == nil {
		e.taskRunner = scheduler.New(b.redis, cfg.Redis.SchedulerPrefix, logger)
		e.scheduler = e.taskRunner
	}

	e.notifier = notify.NewDispatcher(notify.Config{
		BufferSize:  cfg.Notifications.BufferSize,
		DropIfFull:  cfg.Notifications.DropIfFull,
		SendTimeout: cfg.Notifications.SendTimeout,
	}, b.email, logger)
	defer func() {
		if err != nil {
			e.notifier.Close()
		}
	}()

	if e.passwords, err = buildPasswords(cfg.Password, cfg.passwordAlgorithm(), b.breach); err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		SigningMethod: cfg.Tokens.SigningMethod,
		PrivateKey:    []byte(cfg.Tokens.PrivateKey),
		PublicKey:     []byte(cfg.Tokens.PublicKey),
		Issuer:        cfg.Tokens.Issuer,
		Audience:      cfg.Tokens.Audience,
		Leeway:        cfg.Tokens.Leeway,
	})
	if err != nil {
		return nil, err
	}
	e.tokens = tokens

	e.sessions, err = session.NewManager(session.Config{
		Tokens:    tokens,
		Store:     session.NewStore(b.redis, cfg.Redis.SessionPrefix),
		Points:    points,
		Scheduler: e.scheduler,
		TTL:       cfg.Tokens.SessionTTL,
		Logger:    logger,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}

	observe := e.metrics.observer()
	e.status, err = flows.NewAccountStatusManager(flows.AccountStatusDeps{
		Accounts:    b.accounts,
		Sessions:    e.sessions,
		Scheduler:   e.scheduler,
		Unlocks:     stores.NewUnlockSessionStore(b.redis),
		Tokens:      tokens,
		Notifier:    e.notifier,
		AdminEmail:  cfg.Account.AdminEmail,
		EnableAfter: cfg.Account.EnableAfter,
		Now:         now,
		Logger:      logger,
		Observe:     observe,
	})
	if err != nil {
		return nil, err
	}

	totp, err := flows.NewTOTP([]byte(cfg.TOTP.Secret), cfg.TOTP.Period, cfg.TOTP.Skew, cfg.TOTP.Digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	e.orchestrator, err = flows.NewOrchestrator(flows.Steps{
		Dispatch:          flows.DispatchStep{},
		Password:          &flows.PasswordStep{Passwords: e.passwords, Observe: observe},
		GenerateTOTP:      &flows.GenerateTOTPStep{TOTP: totp, SMS: b.sms, Now: now, Observe: observe},
		TOTP:              &flows.TOTPStep{TOTP: totp, Notifier: e.notifier, Now: now, Observe: observe},
		Recaptcha:         &flows.RecaptchaStep{Validator: b.recaptcha, Observe: observe},
		GenerateChallenge: &flows.GenerateChallengeStep{NonceSize: cfg.Auth.ChallengeSize, Observe: observe},
		ChallengeResponse: &flows.ChallengeResponseStep{Observe: observe},
		Error: &flows.ErrorStep{
			Failures:         e.failures,
			Audit:            audit,
			Status:           e.status,
			CaptchaThreshold: cfg.Auth.CaptchaThreshold,
			LockoutThreshold: cfg.Auth.LockoutThreshold,
			FailureTTL:       cfg.Auth.FailedAttemptTTL,
			Now:              now,
			Logger:           logger,
			Observe:          observe,
		},
		Authenticated: &flows.AuthenticatedStep{
			Sessions: e.sessions,
			Failures: e.failures,
			Notifier: e.notifier,
			Logger:   logger,
			Observe:  observe,
		},
	}, cfg.Auth.MaxSteps)
	if err != nil {
		return nil, err
	}

	b.built = true
	return e, nil
}

func buildPasswords(cfg PasswordConfig, current domain.PasswordAlgorithm, breach domain.BreachChecker) (*password.Manager, error) {
	argon, err := password.NewArgon2(cfg.Argon2)
	if err != nil {
		return nil, err
	}
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	return password.NewManager(cfg.Policy, current, map[domain.PasswordAlgorithm]password.Hasher{
		domain.PasswordArgon2id: argon,
		domain.PasswordBcrypt:   bc,
	}, breach)
}
