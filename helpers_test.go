package authengine

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authengine/domain"
	"github.com/MrEthical07/authengine/password"
	"github.com/MrEthical07/authengine/storage/memory"
)

const testPassword = "Str0ngPass!23"

type recordingEmail struct {
	mu   sync.Mutex
	msgs []domain.EmailMessage
	fail error
}

func (s *recordingEmail) SendEmail(_ context.Context, msg domain.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingEmail) last(kind domain.EmailKind) (domain.EmailMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].Kind == kind {
			return s.msgs[i], true
		}
	}
	return domain.EmailMessage{}, false
}

// waitFor returns the n-th email of kind, waiting for the dispatcher to
// deliver it.
func (s *recordingEmail) waitFor(t *testing.T, kind domain.EmailKind, n int) domain.EmailMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		seen := 0
		for _, msg := range s.msgs {
			if msg.Kind != kind {
				continue
			}
			if seen++; seen == n {
				s.mu.Unlock()
				return msg
			}
		}
		s.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("email %s #%d not delivered, saw %d", kind, n, seen)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type recordingSMS struct {
	mu   sync.Mutex
	msgs []domain.SMSMessage
}

func (s *recordingSMS) SendSMS(_ context.Context, msg domain.SMSMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSMS) last() domain.SMSMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return domain.SMSMessage{}
	}
	return s.msgs[len(s.msgs)-1]
}

// tokenRecaptcha accepts exactly the token "human".
type tokenRecaptcha struct{}

func (tokenRecaptcha) Validate(_ context.Context, token, _ string) (bool, error) {
	return token == "human", nil
}

type testEngine struct {
	*Engine
	mr       *miniredis.Miniredis
	accounts *memory.Accounts
	email    *recordingEmail
	sms      *recordingSMS
}

func testConfig(t *testing.T) Config {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Tokens.PrivateKey = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	cfg.TOTP.Secret = "test-totp-secret-0123456789"
	cfg.Password.Argon2 = password.Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Password.BcryptCost = 4
	return cfg
}

func newTestEngine(t *testing.T, mutate ...func(*Config)) *testEngine {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig(t)
	for _, m := range mutate {
		m(&cfg)
	}

	te := &testEngine{
		mr:       mr,
		accounts: memory.NewAccounts(),
		email:    &recordingEmail{},
		sms:      &recordingSMS{},
	}
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccounts(te.accounts).
		WithFailedAttemptAudit(memory.NewFailedAttempts()).
		WithAccessPoints(memory.NewAccessPoints()).
		WithEmailSender(te.email).
		WithSmsSender(te.sms).
		WithRecaptcha(tokenRecaptcha{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	te.Engine = engine
	t.Cleanup(func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	})
	return te
}

// seedAccount inserts an enabled account with testPassword.
func (te *testEngine) seedAccount(t *testing.T, username string) *domain.Account {
	t.Helper()
	hash, err := te.passwords.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	acc := &domain.Account{
		ID:           "id-" + username,
		Username:     username,
		PasswordHash: hash.Value,
		PasswordAlg:  hash.Alg,
		Email:        username + "@example.com",
		Telephone:    "+15551234567",
		Role:         "USER",
		Status:       domain.AccountEnabled,
		CreatedAt:    time.Now(),
	}
	if err := te.accounts.Create(context.Background(), acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func (te *testEngine) login(t *testing.T, username, device string) *AuthResult {
	t.Helper()
	res, err := te.Authenticate(context.Background(), &AuthRequest{
		Username: username,
		Password: testPassword,
		DeviceID: device,
		IP:       "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Status != AuthSucceeded || res.Token == "" {
		t.Fatalf("expected success, got %+v", res)
	}
	return res
}

func (te *testEngine) failPassword(t *testing.T, username, device, recaptcha string) (*AuthResult, error) {
	t.Helper()
	return te.Authenticate(context.Background(), &AuthRequest{
		Username:  username,
		Password:  "wrong-password-1",
		DeviceID:  device,
		IP:        "10.0.0.9",
		Recaptcha: recaptcha,
	})
}

func requireErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
