// Command authengine-worker runs the deferred task loop of an authengine
// deployment: automatic re-enabling of locked accounts, removal of accounts
// that were never activated and expiry of issued sessions.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine"
	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/recaptcha"
	"github.com/MrEthical07/authengine/storage/postgres"
)

type workerConfig struct {
	DatabaseDSN     string        `env:"DATABASE_DSN,required"`
	RecaptchaSecret string        `env:"RECAPTCHA_SECRET,required"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	LogLevel        slog.Level    `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	var wcfg workerConfig
	if err := env.ParseWithOptions(&wcfg, env.Options{Prefix: authengine.EnvPrefix + "WORKER_"}); err != nil {
		log.Fatalf("failed to parse worker config: %v", err)
	}
	cfg, err := authengine.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to parse engine config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: wcfg.LogLevel}))

	db, err := postgres.NewConnection(ctx, wcfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to reach redis", "error", err, "addr", cfg.Redis.Addr)
		os.Exit(1)
	}

	verifier, err := recaptcha.NewVerifier(recaptcha.Config{Secret: wcfg.RecaptchaSecret})
	if err != nil {
		logger.Error("failed to create recaptcha verifier", "error", err)
		os.Exit(1)
	}

	engine, err := authengine.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccounts(postgres.NewAccountRepository(db)).
		WithFailedAttemptAudit(postgres.NewFailedAttemptRepository(db)).
		WithAccessPoints(postgres.NewAccessPointRepository(db)).
		WithEmailSender(logSender{logger: logger}).
		WithRecaptcha(verifier).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	logger.Info("scheduler loop started", "interval", wcfg.PollInterval)
	if err := engine.RunScheduler(ctx, wcfg.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler loop stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// logSender writes outgoing email to the log. Scheduled tasks do not send
// mail; it only satisfies the engine's delivery dependency.
type logSender struct {
	logger *slog.Logger
}

func (s logSender) SendEmail(_ context.Context, msg domain.EmailMessage) error {
	s.logger.Info("email not delivered by worker", "kind", msg.Kind, "to", msg.To)
	return nil
}
