package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"users_sheet/internal/common"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const foreignKeyViolation = "23503"

type PgRoleRepository struct {
	db *sql.DB
}

func NewPgRoleRepository(db *sql.DB) *PgRoleRepository {
	return &PgRoleRepository{db: db}
}

func (r *PgRoleRepository) IsMember(ctx context.Context, accountID, roleName string) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM account_roles ar JOIN roles r ON r.id = ar.role_id
	              WHERE ar.account_id = $1 AND r.name = $2)`
	var member bool
	if err := r.db.QueryRowContext(ctx, query, accountID, roleName).Scan(&member); err != nil {
		return false, fmt.Errorf("roleRepository.IsMember: %w", err)
	}
	return member, nil
}

// AddMember grants roleName to the account. Granting a held role is a no-op.
func (r *PgRoleRepository) AddMember(ctx context.Context, accountID, roleName string) error {
	query := `INSERT INTO account_roles (account_id, role_id)
	          SELECT $1, r.id FROM roles r WHERE r.name = $2
	          ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, accountID, roleName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("account %s: %w", accountID, common.ErrNotFound)
		}
		return fmt.Errorf("roleRepository.AddMember: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("roleRepository.AddMember: %w", err)
	}
	if n == 0 {
		return r.roleMustExist(ctx, roleName)
	}
	return nil
}

// RemoveMember revokes roleName. Revoking a role the account lacks is a no-op.
func (r *PgRoleRepository) RemoveMember(ctx context.Context, accountID, roleName string) error {
	query := `DELETE FROM account_roles
	          WHERE account_id = $1 AND role_id IN (SELECT id FROM roles WHERE name = $2)`
	if _, err := r.db.ExecContext(ctx, query, accountID, roleName); err != nil {
		return fmt.Errorf("roleRepository.RemoveMember: %w", err)
	}
	return nil
}

// CreateRole is idempotent.
func (r *PgRoleRepository) CreateRole(ctx context.Context, name string) error {
	query := `INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), name); err != nil {
		return fmt.Errorf("roleRepository.CreateRole: %w", err)
	}
	return nil
}

func (r *PgRoleRepository) roleMustExist(ctx context.Context, name string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("roleRepository.AddMember: %w", err)
	}
	if !exists {
		return fmt.Errorf("role %q: %w", name, common.ErrNotFound)
	}
	return nil
}
