package flows

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/internal/stores"
	"github.com/MrEthical07/authengine/jwt"
	"github.com/MrEthical07/authengine/scheduler"
	"github.com/MrEthical07/authengine/storage/memory"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestTokens(t *testing.T) *jwt.Manager {
	t.Helper()
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	m, err := jwt.NewManager(jwt.Config{SigningMethod: jwt.MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("jwt.NewManager: %v", err)
	}
	return m
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []domain.EmailMessage
}

func (n *recordingNotifier) Notify(_ context.Context, msg domain.EmailMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) kinds() []domain.EmailKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.EmailKind, 0, len(n.msgs))
	for _, m := range n.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type recordingSMS struct {
	last domain.SMSMessage
	err  error
}

func (s *recordingSMS) SendSMS(_ context.Context, msg domain.SMSMessage) error {
	if s.err != nil {
		return s.err
	}
	s.last = msg
	return nil
}

type staticRecaptcha bool

func (v staticRecaptcha) Validate(context.Context, string, string) (bool, error) {
	return bool(v), nil
}

type countingRevoker struct {
	calls int
}

func (r *countingRevoker) DeleteAll(context.Context, string) (int, error) {
	r.calls++
	return 0, nil
}

type statusFixture struct {
	mr        *miniredis.Miniredis
	accounts  *memory.Accounts
	scheduler *scheduler.Scheduler
	unlocks   *stores.UnlockSessionStore
	tokens    *jwt.Manager
	revoker   *countingRevoker
	notifier  *recordingNotifier
	manager   *AccountStatusManager
	events    []Event
}

func newStatusFixture(t *testing.T) *statusFixture {
	t.Helper()
	mr, rdb := newTestRedis(t)
	f := &statusFixture{
		mr:        mr,
		accounts:  memory.NewAccounts(),
		scheduler: scheduler.New(rdb, "", nil),
		unlocks:   stores.NewUnlockSessionStore(rdb),
		tokens:    newTestTokens(t),
		revoker:   &countingRevoker{},
		notifier:  &recordingNotifier{},
	}
	m, err := NewAccountStatusManager(AccountStatusDeps{
		Accounts:    f.accounts,
		Sessions:    f.revoker,
		Scheduler:   f.scheduler,
		Unlocks:     f.unlocks,
		Tokens:      f.tokens,
		Notifier:    f.notifier,
		AdminEmail:  "admin@example.com",
		EnableAfter: time.Hour,
		Observe:     func(e Event) { f.events = append(f.events, e) },
	})
	if err != nil {
		t.Fatalf("NewAccountStatusManager: %v", err)
	}
	f.manager = m
	return f
}

func (f *statusFixture) account(t *testing.T, status domain.AccountStatus) *domain.Account {
	t.Helper()
	acc := &domain.Account{ID: "acc-1", Username: "alice", Email: "alice@example.com", Status: status}
	if err := f.accounts.Create(context.Background(), acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func memoryAudit() domain.FailedAuthenticationAttemptsEntity {
	return memory.NewFailedAttempts()
}
