package memory

import (
	"context"
	"sync"

	"github.com/MrEthical07/authengine/domain"
)

// Accounts is an in-memory domain.AccountEntity. Reads return copies.
type Accounts struct {
	mu         sync.RWMutex
	byID       map[string]*domain.Account
	byUsername map[string]string
}

func NewAccounts() *Accounts {
	return &Accounts{
		byID:       map[string]*domain.Account{},
		byUsername: map[string]string{},
	}
}

func (s *Accounts) Create(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[account.ID]; ok {
		return domain.ErrAlreadyExists
	}
	if _, ok := s.byUsername[account.Username]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *account
	s.byID[account.ID] = &cp
	s.byUsername[account.Username] = account.ID
	return nil
}

func (s *Accounts) ReadByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Accounts) ReadByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.ReadByID(ctx, id)
}

func (s *Accounts) Update(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.byID[account.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if old.Username != account.Username {
		if _, taken := s.byUsername[account.Username]; taken {
			return domain.ErrAlreadyExists
		}
		delete(s.byUsername, old.Username)
		s.byUsername[account.Username] = account.ID
	}
	cp := *account
	s.byID[account.ID] = &cp
	return nil
}

func (s *Accounts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byUsername, a.Username)
	delete(s.byID, id)
	return nil
}

func (s *Accounts) Enable(_ context.Context, id string) error {
	return s.mutate(id, func(a *domain.Account) { a.Status = domain.AccountEnabled })
}

// Disable moves an enabled account to disabled and reports whether it did.
func (s *Accounts) Disable(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.Status != domain.AccountEnabled {
		return false, nil
	}
	a.Status = domain.AccountDisabled
	return true, nil
}

func (s *Accounts) ChangePassword(_ context.Context, id, hash string, alg domain.PasswordAlgorithm) error {
	return s.mutate(id, func(a *domain.Account) {
		a.PasswordHash = hash
		a.PasswordAlg = alg
	})
}

func (s *Accounts) SetMFA(_ context.Context, id string, enabled bool) error {
	return s.mutate(id, func(a *domain.Account) { a.UsingMFA = enabled })
}

func (s *Accounts) mutate(id string, f func(*domain.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	f(a)
	return nil
}
