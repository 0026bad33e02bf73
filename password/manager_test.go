package password

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/authengine/domain"
)

type recordingCommitter struct {
	id   string
	hash string
	alg  domain.PasswordAlgorithm
	err  error
}

func (c *recordingCommitter) ChangePassword(_ context.Context, id, hash string, alg domain.PasswordAlgorithm) error {
	if c.err != nil {
		return c.err
	}
	c.id, c.hash, c.alg = id, hash, alg
	return nil
}

func newTestManager(t *testing.T, breach domain.BreachChecker) *Manager {
	t.Helper()
	a, err := NewArgon2(fastArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	b, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	m, err := NewManager(Policy{MinLength: 10, MaxLength: 72, MinClasses: 2}, domain.PasswordArgon2id,
		map[domain.PasswordAlgorithm]Hasher{
			domain.PasswordArgon2id: a,
			domain.PasswordBcrypt:   b,
		}, breach)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestManagerVerifySelectsHasherByAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)

	b, _ := NewBcrypt(4)
	legacy, err := b.Hash("Legacy-pass-1")
	if err != nil {
		t.Fatalf("bcrypt hash: %v", err)
	}
	acc := &domain.Account{ID: "a1", PasswordHash: legacy, PasswordAlg: domain.PasswordBcrypt}

	ok, err := m.Verify(acc, "Legacy-pass-1")
	if err != nil || !ok {
		t.Fatalf("expected bcrypt verify success, ok=%v err=%v", ok, err)
	}

	h, err := m.Hash("Current-pass-1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h.Alg != domain.PasswordArgon2id {
		t.Fatalf("expected argon2id for new hashes, got %s", h.Alg)
	}
	acc = &domain.Account{ID: "a2", PasswordHash: h.Value, PasswordAlg: h.Alg}
	ok, err = m.Verify(acc, "wrong-pass-1")
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestManagerVerifyUnknownAlgorithm(t *testing.T) {
	m := newTestManager(t, nil)
	_, err := m.Verify(&domain.Account{PasswordHash: "x", PasswordAlg: 99}, "whatever-pass")
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestManagerValidatePolicy(t *testing.T) {
	m := newTestManager(t, NewDenylist("Password123!"))
	ctx := context.Background()

	cases := []struct {
		password string
		want     error
	}{
		{"short1!", ErrTooShort},
		{"alllowercaseletters", ErrTooWeak},
		{"password123!", ErrBreached},
		{"Str0ngPass!23", nil},
	}
	for _, tc := range cases {
		if err := m.Validate(ctx, tc.password); !errors.Is(err, tc.want) {
			t.Fatalf("Validate(%q) = %v, want %v", tc.password, err, tc.want)
		}
	}
}

func TestManagerChangeRejectsReuse(t *testing.T) {
	m := newTestManager(t, nil)
	h, _ := m.Hash("Str0ngPass!23")
	acc := &domain.Account{ID: "a1", PasswordHash: h.Value, PasswordAlg: h.Alg}
	store := &recordingCommitter{}

	if err := m.Change(context.Background(), store, acc, "Str0ngPass!23"); !errors.Is(err, ErrReused) {
		t.Fatalf("expected ErrReused, got %v", err)
	}
	if store.id != "" {
		t.Fatal("expected no commit on reuse")
	}
}

func TestManagerChangeCommits(t *testing.T) {
	m := newTestManager(t, nil)
	h, _ := m.Hash("Str0ngPass!23")
	acc := &domain.Account{ID: "a1", PasswordHash: h.Value, PasswordAlg: h.Alg}
	store := &recordingCommitter{}

	if err := m.Change(context.Background(), store, acc, "An0ther-Pass"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	if store.id != "a1" || store.hash == "" || store.alg != domain.PasswordArgon2id {
		t.Fatalf("unexpected commit: %+v", store)
	}
	ok, _ := m.Verify(acc, "An0ther-Pass")
	if !ok {
		t.Fatal("expected account to carry the new credential")
	}
}

func TestManagerChangePropagatesStoreError(t *testing.T) {
	m := newTestManager(t, nil)
	h, _ := m.Hash("Str0ngPass!23")
	acc := &domain.Account{ID: "a1", PasswordHash: h.Value, PasswordAlg: h.Alg}
	boom := errors.New("boom")

	if err := m.Change(context.Background(), &recordingCommitter{err: boom}, acc, "An0ther-Pass"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if acc.PasswordHash != h.Value {
		t.Fatal("account must keep its old credential when commit fails")
	}
}
