package postgres

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authengine/domain"
)

var _ domain.AuthenticationEntryPointEntity = (*AccessPointRepository)(nil)

type AccessPointRepository struct {
	db *Connection
}

func NewAccessPointRepository(db *Connection) *AccessPointRepository {
	return &AccessPointRepository{db: db}
}

// Create records the device once; later calls for the same device are no-ops.
func (r *AccessPointRepository) Create(ctx context.Context, p *domain.AccessPoint) error {
	location, err := encodeLocation(p.Location)
	if err != nil {
		return err
	}
	query := `INSERT INTO access_points (account_id, device_id, ip, location, first_seen)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (account_id, device_id) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, p.AccountID, p.DeviceID, p.IP, location, p.FirstSeen); err != nil {
		return fmt.Errorf("failed to create access point: %w", err)
	}
	return nil
}

func (r *AccessPointRepository) Exists(ctx context.Context, accountID, deviceID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM access_points WHERE account_id = $1 AND device_id = $2)`
	if err := r.db.QueryRow(ctx, query, accountID, deviceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check access point: %w", err)
	}
	return exists, nil
}

func (r *AccessPointRepository) ReadAll(ctx context.Context, accountID string) ([]domain.AccessPoint, error) {
	query := `SELECT account_id, device_id, ip, location, first_seen
			  FROM access_points WHERE account_id = $1 ORDER BY first_seen ASC`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query access points: %w", err)
	}
	defer rows.Close()

	var out []domain.AccessPoint
	for rows.Next() {
		var (
			p        domain.AccessPoint
			location []byte
		)
		if err := rows.Scan(&p.AccountID, &p.DeviceID, &p.IP, &location, &p.FirstSeen); err != nil {
			return nil, fmt.Errorf("failed to scan access point: %w", err)
		}
		if p.Location, err = decodeLocation(location); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate access points: %w", err)
	}
	return out, nil
}

func (r *AccessPointRepository) DeleteAll(ctx context.Context, accountID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM access_points WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("failed to delete access points: %w", err)
	}
	return nil
}
