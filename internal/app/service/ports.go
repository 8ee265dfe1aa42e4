package service

import (
	"context"

	"users_sheet/internal/domain/model"
)

// CredentialStore persists accounts and owns their password hashes.
// Lookups compare username and email case-insensitively and return common.ErrNotFound on a miss.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account, password string) error
	VerifyPassword(ctx context.Context, account *model.Account, password string) (bool, error)
	Update(ctx context.Context, account *model.Account) error
	Delete(ctx context.Context, account *model.Account) error
	ListAll(ctx context.Context) ([]model.Account, error)
}

type RoleStore interface {
	IsMember(ctx context.Context, accountID, roleName string) (bool, error)
	AddMember(ctx context.Context, accountID, roleName string) error
	RemoveMember(ctx context.Context, accountID, roleName string) error
	CreateRole(ctx context.Context, name string) error
}

// SessionIssuer binds sessions to the browser context carried by ctx.
type SessionIssuer interface {
	Issue(ctx context.Context, account *model.Account) error
	RevokeCurrent(ctx context.Context) error
	CurrentUsername(ctx context.Context) (string, bool)
	CurrentSessionID(ctx context.Context) (string, bool)
}

// SelectionStore keeps the username snapshot of the last rendered list per session.
type SelectionStore interface {
	Save(ctx context.Context, sessionID string, usernames []string) error
	// Take returns the snapshot and forgets it. ok is false when none is stored.
	Take(ctx context.Context, sessionID string) (usernames []string, ok bool, err error)
}
