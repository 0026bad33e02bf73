package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/authengine/domain"
)

var _ domain.AccountEntity = (*AccountRepository)(nil)

type AccountRepository struct {
	db *Connection
}

func NewAccountRepository(db *Connection) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, password_hash, password_alg, telephone, email, role, status, using_mfa, pub_key, created_at`

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, int16(a.PasswordAlg), a.Telephone, a.Email, a.Role,
		int16(a.Status), a.UsingMFA, a.PubKey, a.CreatedAt,
	)
	if err != nil {
		return mapWriteErr("create account", err)
	}
	return nil
}

func (r *AccountRepository) ReadByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.readOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) ReadByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.readOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (r *AccountRepository) readOne(ctx context.Context, query string, arg string) (*domain.Account, error) {
	var (
		a      domain.Account
		alg    int16
		status int16
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Username, &a.PasswordHash, &alg, &a.Telephone, &a.Email, &a.Role,
		&status, &a.UsingMFA, &a.PubKey, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read account: %w", err)
	}
	a.PasswordAlg = domain.PasswordAlgorithm(alg)
	a.Status = domain.AccountStatus(status)
	return &a, nil
}

func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	query := `UPDATE accounts SET username = $2, password_hash = $3, password_alg = $4, telephone = $5,
			  email = $6, role = $7, status = $8, using_mfa = $9, pub_key = $10
			  WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		a.ID, a.Username, a.PasswordHash, int16(a.PasswordAlg), a.Telephone, a.Email, a.Role,
		int16(a.Status), a.UsingMFA, a.PubKey,
	)
	if err != nil {
		return mapWriteErr("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete account", `DELETE FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) Enable(ctx context.Context, id string) error {
	return r.exec(ctx, "enable account", `UPDATE accounts SET status = $2 WHERE id = $1`, id, int16(domain.AccountEnabled))
}

// Disable moves an enabled account to disabled and reports whether it did.
// Only one of several concurrent callers observes true.
func (r *AccountRepository) Disable(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET status = $2 WHERE id = $1 AND status = $3`,
		id, int16(domain.AccountDisabled), int16(domain.AccountEnabled))
	if err != nil {
		return false, fmt.Errorf("failed to disable account: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to disable account: %w", err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

func (r *AccountRepository) ChangePassword(ctx context.Context, id, hash string, alg domain.PasswordAlgorithm) error {
	return r.exec(ctx, "change password",
		`UPDATE accounts SET password_hash = $2, password_alg = $3 WHERE id = $1`, id, hash, int16(alg))
}

func (r *AccountRepository) SetMFA(ctx context.Context, id string, enabled bool) error {
	return r.exec(ctx, "set mfa", `UPDATE accounts SET using_mfa = $2 WHERE id = $1`, id, enabled)
}

func (r *AccountRepository) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
