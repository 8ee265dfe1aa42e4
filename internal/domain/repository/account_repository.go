package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"users_sheet/internal/common"
	"users_sheet/internal/common/security"
	"users_sheet/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	usernameUniqueIndex = "accounts_username_lower_key"
	emailUniqueIndex    = "accounts_email_lower_key"
)

// accountColumns projects IsActive from role membership so it can never drift from it.
// The role name is always bound as $1.
const accountColumns = `a.id, a.username, a.email, a.registered_at, a.last_login_at,
	EXISTS (SELECT 1 FROM account_roles ar JOIN roles r ON r.id = ar.role_id
	        WHERE ar.account_id = a.id AND r.name = $1) AS is_active`

type PgAccountRepository struct {
	db *sql.DB
}

func NewPgAccountRepository(db *sql.DB) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.RegisteredAt, &a.LastLoginAt, &a.IsActive); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PgAccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + `
	          FROM accounts a WHERE lower(a.email) = lower($2)`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, model.ActiveRole, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("accountRepository.FindByEmail: %w", err)
	}
	return account, nil
}

func (r *PgAccountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + `
	          FROM accounts a WHERE lower(a.username) = lower($2)`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, model.ActiveRole, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("accountRepository.FindByUsername: %w", err)
	}
	return account, nil
}

// Create hashes password and inserts the account. Role membership is granted separately.
func (r *PgAccountRepository) Create(ctx context.Context, account *model.Account, password string) error {
	hash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("accountRepository.Create: hash password: %w", err)
	}

	query := `INSERT INTO accounts (id, username, email, password_hash, registered_at, last_login_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, query,
		account.ID, account.Username, account.Email, hash, account.RegisteredAt, account.LastLoginAt)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("accountRepository.Create: %w", err)
	}
	return nil
}

func (r *PgAccountRepository) VerifyPassword(ctx context.Context, account *model.Account, password string) (bool, error) {
	var hash string
	err := r.db.QueryRowContext(ctx, `SELECT password_hash FROM accounts WHERE id = $1`, account.ID).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrNotFound
		}
		return false, fmt.Errorf("accountRepository.VerifyPassword: %w", err)
	}
	ok, err := security.CheckPasswordHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("accountRepository.VerifyPassword: %w", err)
	}
	return ok, nil
}

// Update writes the mutable profile fields. IsActive is ignored; it follows role membership.
func (r *PgAccountRepository) Update(ctx context.Context, account *model.Account) error {
	query := `UPDATE accounts SET username = $2, email = $3, last_login_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, account.ID, account.Username, account.Email, account.LastLoginAt)
	if err != nil {
		if dup := duplicateError(err); dup != nil {
			return dup
		}
		return fmt.Errorf("accountRepository.Update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("accountRepository.Update: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes the account and, through the foreign key cascade, its memberships.
// Deleting an account that is already gone is not an error.
func (r *PgAccountRepository) Delete(ctx context.Context, account *model.Account) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID); err != nil {
		return fmt.Errorf("accountRepository.Delete: %w", err)
	}
	return nil
}

// ListAll returns every account oldest first.
func (r *PgAccountRepository) ListAll(ctx context.Context) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + `
	          FROM accounts a ORDER BY a.registered_at, a.username`
	rows, err := r.db.QueryContext(ctx, query, model.ActiveRole)
	if err != nil {
		return nil, fmt.Errorf("accountRepository.ListAll: %w", err)
	}
	defer rows.Close()

	accounts := make([]model.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("accountRepository.ListAll: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accountRepository.ListAll: %w", err)
	}
	return accounts, nil
}

// duplicateError maps a unique violation to the field it collided on, or returns nil.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != common.UniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameUniqueIndex:
		return common.ErrDuplicateUsername
	case emailUniqueIndex:
		return common.ErrDuplicateEmail
	default:
		return fmt.Errorf("account already exists: %w", common.ErrConflict)
	}
}
