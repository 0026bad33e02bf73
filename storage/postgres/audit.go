package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MrEthical07/authengine/domain"
)

var _ domain.FailedAuthenticationAttemptsEntity = (*FailedAttemptRepository)(nil)

// FailedAttemptRepository is the append-only lockout audit log.
type FailedAttemptRepository struct {
	db *Connection
}

func NewFailedAttemptRepository(db *Connection) *FailedAttemptRepository {
	return &FailedAttemptRepository{db: db}
}

func (r *FailedAttemptRepository) Create(ctx context.Context, a *domain.FailedAuthenticationAttempt) error {
	location, err := encodeLocation(a.Location)
	if err != nil {
		return err
	}
	ips := a.BannedIPs
	if ips == nil {
		ips = []string{}
	}

	query := `INSERT INTO failed_authentication_attempts
			  (id, account_id, username, occurred_at, device_id, location, banned_ips, counter)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.Exec(ctx, query,
		a.ID, a.AccountID, a.Username, a.Timestamp, a.DeviceID, location, ips, a.Counter,
	)
	if err != nil {
		return mapWriteErr("create failed attempt", err)
	}
	return nil
}

// ReadRange returns records with from <= occurred_at < to, oldest first.
func (r *FailedAttemptRepository) ReadRange(ctx context.Context, accountID string, from, to time.Time) ([]domain.FailedAuthenticationAttempt, error) {
	query := `SELECT id, account_id, username, occurred_at, device_id, location, banned_ips, counter
			  FROM failed_authentication_attempts
			  WHERE account_id = $1 AND occurred_at >= $2 AND occurred_at < $3
			  ORDER BY occurred_at ASC`

	rows, err := r.db.Query(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.FailedAuthenticationAttempt
	for rows.Next() {
		var (
			a        domain.FailedAuthenticationAttempt
			location []byte
		)
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Username, &a.Timestamp, &a.DeviceID, &location, &a.BannedIPs, &a.Counter); err != nil {
			return nil, fmt.Errorf("failed to scan failed attempt: %w", err)
		}
		if a.Location, err = decodeLocation(location); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate failed attempts: %w", err)
	}
	return out, nil
}

func encodeLocation(l *domain.Location) ([]byte, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode location: %w", err)
	}
	return b, nil
}

func decodeLocation(b []byte) (*domain.Location, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var l domain.Location
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("failed to decode location: %w", err)
	}
	return &l, nil
}
