package memory

import (
	"context"
	"sync"

	"github.com/MrEthical07/authengine/domain"
)

// AccessPoints is an in-memory domain.AuthenticationEntryPointEntity. One
// entry is kept per (account, device).
type AccessPoints struct {
	mu     sync.RWMutex
	points map[string][]domain.AccessPoint
}

func NewAccessPoints() *AccessPoints {
	return &AccessPoints{points: map[string][]domain.AccessPoint{}}
}

func (s *AccessPoints) Create(_ context.Context, point *domain.AccessPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.points[point.AccountID] {
		if p.DeviceID == point.DeviceID {
			return nil
		}
	}
	s.points[point.AccountID] = append(s.points[point.AccountID], *point)
	return nil
}

func (s *AccessPoints) Exists(_ context.Context, accountID, deviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.points[accountID] {
		if p.DeviceID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (s *AccessPoints) ReadAll(_ context.Context, accountID string) ([]domain.AccessPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AccessPoint(nil), s.points[accountID]...), nil
}

func (s *AccessPoints) DeleteAll(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.points, accountID)
	return nil
}
