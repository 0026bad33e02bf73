package password

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"github.com/MrEthical07/authengine/domain"
)

var (
	ErrInvalidConfig        = errors.New("invalid password hasher config")
	ErrMalformedHash        = errors.New("malformed password hash")
	ErrUnsupportedAlgorithm = errors.New("unsupported password algorithm")
	ErrTooShort             = errors.New("password too short")
	ErrTooLong              = errors.New("password too long")
	ErrTooWeak              = errors.New("password too weak")
	ErrBreached             = errors.New("password found in breach corpus")
	ErrReused               = errors.New("new password must differ from the current one")
)

// Hasher is one password hashing scheme.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Policy bounds acceptable new passwords.
type Policy struct {
	MinLength int `env:"MIN_LENGTH" envDefault:"10"`
	MaxLength int `env:"MAX_LENGTH" envDefault:"72"`
	// MinClasses is the number of character classes (lower, upper, digit,
	// other) a password must mix.
	MinClasses int `env:"MIN_CLASSES" envDefault:"2"`
}

// Hash is a freshly produced credential.
type Hash struct {
	Value string
	Alg   domain.PasswordAlgorithm
}

// PasswordCommitter persists a changed credential.
type PasswordCommitter interface {
	ChangePassword(ctx context.Context, id string, hash string, alg domain.PasswordAlgorithm) error
}

// Manager hashes and verifies credentials, enforces Policy, and rejects
// reused or breached passwords.
type Manager struct {
	hashers map[domain.PasswordAlgorithm]Hasher
	current domain.PasswordAlgorithm
	policy  Policy
	breach  domain.BreachChecker
}

// NewManager builds a manager that hashes new passwords with current and
// verifies stored ones with whichever hasher matches their algorithm id.
func NewManager(policy Policy, current domain.PasswordAlgorithm, hashers map[domain.PasswordAlgorithm]Hasher, breach domain.BreachChecker) (*Manager, error) {
	if _, ok := hashers[current]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, current)
	}
	if policy.MinLength <= 0 {
		policy.MinLength = 10
	}
	if policy.MaxLength <= 0 {
		policy.MaxLength = 72
	}
	if policy.MaxLength < policy.MinLength {
		return nil, fmt.Errorf("%w: max length below min length", ErrInvalidConfig)
	}
	return &Manager{
		hashers: hashers,
		current: current,
		policy:  policy,
		breach:  breach,
	}, nil
}

// Hash validates nothing; callers run Validate first on user input.
func (m *Manager) Hash(password string) (Hash, error) {
	v, err := m.hashers[m.current].Hash(password)
	if err != nil {
		return Hash{}, err
	}
	return Hash{Value: v, Alg: m.current}, nil
}

// Verify checks password against the account's stored credential.
func (m *Manager) Verify(account *domain.Account, password string) (bool, error) {
	if account == nil || account.PasswordHash == "" {
		return false, nil
	}
	h, ok := m.hashers[account.PasswordAlg]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, account.PasswordAlg)
	}
	if len(password) > m.policy.MaxLength {
		return false, nil
	}
	return h.Verify(password, account.PasswordHash)
}

// Validate applies the length and composition policy, then the breach check.
// Breach checker failures are returned; the caller decides whether to
// proceed.
func (m *Manager) Validate(ctx context.Context, password string) error {
	if len(password) < m.policy.MinLength {
		return ErrTooShort
	}
	if len(password) > m.policy.MaxLength {
		return ErrTooLong
	}
	if characterClasses(password) < m.policy.MinClasses {
		return ErrTooWeak
	}
	if m.breach == nil {
		return nil
	}
	breached, err := m.breach.IsBreached(ctx, password)
	if err != nil {
		return fmt.Errorf("breach check: %w", err)
	}
	if breached {
		return ErrBreached
	}
	return nil
}

// Change validates newPassword, rejects reuse of the current credential,
// hashes it and commits it through store.
func (m *Manager) Change(ctx context.Context, store PasswordCommitter, account *domain.Account, newPassword string) error {
	if err := m.Validate(ctx, newPassword); err != nil {
		return err
	}

	same, err := m.Verify(account, newPassword)
	if err != nil {
		return err
	}
	if same {
		return ErrReused
	}

	h, err := m.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := store.ChangePassword(ctx, account.ID, h.Value, h.Alg); err != nil {
		return err
	}

	account.PasswordHash = h.Value
	account.PasswordAlg = h.Alg
	return nil
}

func characterClasses(s string) int {
	var lower, upper, digit, other bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}

	n := 0
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			n++
		}
	}
	return n
}
