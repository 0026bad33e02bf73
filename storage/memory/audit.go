package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/authengine/domain"
)

// FailedAttempts is an in-memory lockout audit log.
type FailedAttempts struct {
	mu      sync.RWMutex
	records []domain.FailedAuthenticationAttempt
}

func NewFailedAttempts() *FailedAttempts {
	return &FailedAttempts{}
}

func (s *FailedAttempts) Create(_ context.Context, attempt *domain.FailedAuthenticationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *attempt
	rec.BannedIPs = append([]string(nil), attempt.BannedIPs...)
	s.records = append(s.records, rec)
	return nil
}

// ReadRange returns the account's records with from <= Timestamp < to in
// insertion order.
func (s *FailedAttempts) ReadRange(_ context.Context, accountID string, from, to time.Time) ([]domain.FailedAuthenticationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.FailedAuthenticationAttempt
	for _, r := range s.records {
		if r.AccountID != accountID || r.Timestamp.Before(from) || !r.Timestamp.Before(to) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
