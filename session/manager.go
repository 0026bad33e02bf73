package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/jwt"
)

// ErrSessionRevoked is returned for a well-formed token whose session row is gone.
var ErrSessionRevoked = errors.New("session revoked")

// Issued is the result of a successful Create.
type Issued struct {
	Token   string
	Session domain.ActiveUserSession
	// NewDevice is set when the account had authenticated before, but never
	// from this device.
	NewDevice bool
}

// Manager issues, reads and revokes session tokens.
type Manager struct {
	tokens    *jwt.Manager
	store     domain.ActiveUserSessionEntity
	points    domain.AuthenticationEntryPointEntity
	scheduler domain.Scheduler
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Config holds Manager dependencies. Points and Scheduler are optional.
type Config struct {
	Tokens    *jwt.Manager
	Store     domain.ActiveUserSessionEntity
	Points    domain.AuthenticationEntryPointEntity
	Scheduler domain.Scheduler
	TTL       time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Tokens == nil || cfg.Store == nil {
		return nil, errors.New("session manager requires tokens and store")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		tokens:    cfg.Tokens,
		store:     cfg.Store,
		points:    cfg.Points,
		scheduler: cfg.Scheduler,
		ttl:       cfg.TTL,
		logger:    cfg.Logger.With("component", "session"),
		now:       cfg.Now,
	}, nil
}

// Create signs a token for account, persists its ActiveUserSession, schedules
// the row's deletion at expiry and records the access point.
func (m *Manager) Create(ctx context.Context, account *domain.Account, req *domain.AuthRequest) (*Issued, error) {
	now := m.now()
	sess := domain.ActiveUserSession{
		IssuedAt:  now.UnixNano(),
		AccountID: account.ID,
		Role:      account.Role,
		IP:        req.IP,
		DeviceID:  req.DeviceID,
		Location:  req.Location,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := jwt.SessionClaims{
		AccountID: account.ID,
		Role:      account.Role,
		SessionID: sess.IssuedAt,
		DeviceID:  req.DeviceID,
		IP:        req.IP,
	}
	if req.Location != nil {
		claims.Country = req.Location.CountryCode
	}
	token, err := m.tokens.CreateSession(claims, now, m.ttl)
	if err != nil {
		return nil, err
	}

	if m.scheduler != nil {
		id, err := m.scheduler.ScheduleActiveUserSessionDeletion(ctx, account.ID, sess.IssuedAt, sess.ExpiresAt)
		if err != nil {
			m.logger.WarnContext(ctx, "schedule session deletion failed", "account_id", account.ID, "error", err)
		} else {
			sess.DeletionTaskID = id
		}
	}

	if err := m.store.Create(ctx, &sess, m.ttl); err != nil {
		m.cancelDeletion(ctx, sess)
		return nil, err
	}

	return &Issued{
		Token:     token,
		Session:   sess,
		NewDevice: m.recordAccessPoint(ctx, account.ID, req, now),
	}, nil
}

func (m *Manager) recordAccessPoint(ctx context.Context, accountID string, req *domain.AuthRequest, now time.Time) bool {
	if m.points == nil || req.DeviceID == "" {
		return false
	}
	seen, err := m.points.Exists(ctx, accountID, req.DeviceID)
	if err != nil {
		m.logger.WarnContext(ctx, "access point lookup failed", "account_id", accountID, "error", err)
		return false
	}
	if seen {
		return false
	}

	known, err := m.points.ReadAll(ctx, accountID)
	if err != nil {
		m.logger.WarnContext(ctx, "access point lookup failed", "account_id", accountID, "error", err)
	}
	if err := m.points.Create(ctx, &domain.AccessPoint{
		AccountID: accountID,
		DeviceID:  req.DeviceID,
		IP:        req.IP,
		Location:  req.Location,
		FirstSeen: now,
	}); err != nil {
		m.logger.WarnContext(ctx, "access point write failed", "account_id", accountID, "error", err)
	}
	return len(known) > 0
}

// Read verifies token and requires its ActiveUserSession to still exist.
func (m *Manager) Read(ctx context.Context, token string) (*domain.ActiveUserSession, error) {
	claims, err := m.tokens.ParseSession(token)
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Read(ctx, claims.AccountID, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	return sess, nil
}

// ReadAll lists the live sessions of an account.
func (m *Manager) ReadAll(ctx context.Context, accountID string) ([]domain.ActiveUserSession, error) {
	return m.store.ReadAll(ctx, accountID)
}

// Delete revokes one session. Deleting an unknown session is not an error.
func (m *Manager) Delete(ctx context.Context, accountID string, issuedAt int64) error {
	sess, err := m.store.Read(ctx, accountID, issuedAt)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := m.store.Delete(ctx, accountID, issuedAt); err != nil {
		return err
	}
	if sess != nil {
		m.cancelDeletion(ctx, *sess)
	}
	return nil
}

// DeleteAll revokes every session of the account and returns how many existed.
func (m *Manager) DeleteAll(ctx context.Context, accountID string) (int, error) {
	sessions, err := m.store.ReadAll(ctx, accountID)
	if err != nil {
		return 0, err
	}
	n, err := m.store.DeleteAll(ctx, accountID)
	if err != nil {
		return 0, err
	}
	for _, s := range sessions {
		m.cancelDeletion(ctx, s)
	}
	return n, nil
}

// DeleteAllButCurrent revokes every session except the one issued at current.
func (m *Manager) DeleteAllButCurrent(ctx context.Context, accountID string, current int64) (int, error) {
	sessions, err := m.store.ReadAll(ctx, accountID)
	if err != nil {
		return 0, err
	}

	var errs []error
	n := 0
	for _, s := range sessions {
		if s.IssuedAt == current {
			continue
		}
		if err := m.store.Delete(ctx, accountID, s.IssuedAt); err != nil {
			errs = append(errs, fmt.Errorf("delete session %d: %w", s.IssuedAt, err))
			continue
		}
		m.cancelDeletion(ctx, s)
		n++
	}
	return n, errors.Join(errs...)
}

func (m *Manager) cancelDeletion(ctx context.Context, s domain.ActiveUserSession) {
	if m.scheduler == nil || s.DeletionTaskID == "" {
		return
	}
	if err := m.scheduler.CancelActiveUserSessionDeletion(ctx, s.DeletionTaskID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.logger.WarnContext(ctx, "cancel session deletion failed",
			"account_id", s.AccountID, "task_id", s.DeletionTaskID, "error", err)
	}
}
