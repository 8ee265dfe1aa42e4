package repository

import (
	"context"
	"testing"

	"users_sheet/internal/common"
	"users_sheet/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRepository_IsMember(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgRoleRepository(db)

	mock.ExpectQuery(`(?s)SELECT EXISTS .*account_roles.*r\.name = \$2`).
		WithArgs("id-1", model.ActiveRole).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsMember(context.Background(), "id-1", model.ActiveRole)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRoleRepository_AddMember(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgRoleRepository(db)

	mock.ExpectExec(`(?s)INSERT INTO account_roles .*ON CONFLICT DO NOTHING`).
		WithArgs("id-1", model.ActiveRole).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddMember(context.Background(), "id-1", model.ActiveRole))
}

func TestRoleRepository_AddMemberAlreadyHeld(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgRoleRepository(db)

	mock.ExpectExec(`INSERT INTO account_roles`).
		WithArgs("id-1", model.ActiveRole).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM roles WHERE name = \$1\)`).
		WithArgs(model.ActiveRole).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, repo.AddMember(context.Background(), "id-1", model.ActiveRole))
}

func TestRoleRepository_AddMemberUnknownRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgRoleRepository(db)

	mock.ExpectExec(`INSERT INTO account_roles`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM roles`).
		WithArgs("Admin").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.AddMember(context.Background(), "id-1", "Admin")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRoleRepository_AddMemberMissingAccount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgRoleRepository(db)

	mock.ExpectExec(`INSERT INTO account_roles`).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})

	err := repo.AddMember(context.Background(), "gone", model.ActiveRole)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRoleRepository_RemoveMember(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgRoleRepository(db)

	mock.ExpectExec(`(?s)DELETE FROM account_roles\s+WHERE account_id = \$1 AND role_id IN`).
		WithArgs("id-1", model.ActiveRole).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RemoveMember(context.Background(), "id-1", model.ActiveRole))
}

func TestRoleRepository_CreateRole(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgRoleRepository(db)

	mock.ExpectExec(`INSERT INTO roles \(id, name\) VALUES \(\$1, \$2\) ON CONFLICT \(name\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), model.ActiveRole).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateRole(context.Background(), model.ActiveRole))
}
