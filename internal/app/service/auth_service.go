package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"users_sheet/internal/common"
	"users_sheet/internal/domain/model"
	"users_sheet/internal/platform/metrics"

	"github.com/google/uuid"
)

// Paths are the redirect targets the authenticator hands back to the HTTP layer.
type Paths struct {
	Landing string
	SignIn  string
}

type AuthService struct {
	accounts CredentialStore
	roles    RoleStore
	sessions SessionIssuer
	paths    Paths
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAuthService(
	accounts CredentialStore,
	roles RoleStore,
	sessions SessionIssuer,
	paths Paths,
	logger *slog.Logger,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		roles:    roles,
		sessions: sessions,
		paths:    paths,
		logger:   logger.With(slog.String("component", "auth_service")),
		metrics:  m,
		now:      time.Now,
	}
}

type SignInRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	ReturnURL string `json:"return_url"`
}

type RegisterRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type AuthResult struct {
	Account  *model.Account `json:"account"`
	Redirect string         `json:"redirect"`
}

// SignIn checks, in order: the email exists, the account holds the Active role,
// the password verifies. Failures write nothing and issue no session.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, s.signInFailed(ctx, email, common.Required("email", "Email"))
	}
	if req.Password == "" {
		return nil, s.signInFailed(ctx, email, common.Required("password", "Password"))
	}

	account, found, err := s.accountByEmail(ctx, email)
	if err != nil {
		return nil, s.signInFailed(ctx, email, err)
	}
	if !found {
		return nil, s.signInFailed(ctx, email, common.ErrAccountNotFound)
	}

	active, err := s.roles.IsMember(ctx, account.ID, model.ActiveRole)
	if err != nil {
		return nil, s.signInFailed(ctx, email, fmt.Errorf("check active role: %w", err))
	}
	if !active {
		return nil, s.signInFailed(ctx, email, common.ErrBlocked)
	}

	ok, err := s.accounts.VerifyPassword(ctx, account, req.Password)
	if err != nil {
		return nil, s.signInFailed(ctx, email, fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return nil, s.signInFailed(ctx, email, common.ErrBadCredential)
	}

	previous := account.LastLoginAt
	account.LastLoginAt = s.nextLoginTime(previous)
	account.IsActive = true
	// Issue before Update: a failed issue must leave LastLoginAt as stored.
	if err := s.sessions.Issue(ctx, account); err != nil {
		account.LastLoginAt = previous
		return nil, s.signInFailed(ctx, email, fmt.Errorf("issue session: %w", err))
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		account.LastLoginAt = previous
		if rerr := s.sessions.RevokeCurrent(ctx); rerr != nil {
			err = errors.Join(err, fmt.Errorf("revoke session: %w", rerr))
		}
		return nil, s.signInFailed(ctx, email, fmt.Errorf("record last login: %w", err))
	}

	s.metrics.SignIns.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "sign-in succeeded",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
	)
	return &AuthResult{Account: account, Redirect: LocalRedirect(req.ReturnURL, s.paths.Landing)}, nil
}

// Register creates an active account and signs it in. Every check runs before the
// first write; the store's unique indexes still decide concurrent races.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	switch {
	case username == "":
		return nil, s.registerFailed(ctx, username, common.Required("username", "User name"))
	case email == "":
		return nil, s.registerFailed(ctx, username, common.Required("email", "Email"))
	case req.Password == "":
		return nil, s.registerFailed(ctx, username, common.Required("password", "Password"))
	case req.PasswordConfirmation == "":
		return nil, s.registerFailed(ctx, username, common.Required("password_confirmation", "Password confirmation"))
	}

	_, taken, err := s.accountByUsername(ctx, username)
	if err != nil {
		return nil, s.registerFailed(ctx, username, err)
	}
	if taken {
		return nil, s.registerFailed(ctx, username, common.ErrDuplicateUsername)
	}

	_, taken, err = s.accountByEmail(ctx, email)
	if err != nil {
		return nil, s.registerFailed(ctx, username, err)
	}
	if taken {
		return nil, s.registerFailed(ctx, username, common.ErrDuplicateEmail)
	}

	if req.Password != req.PasswordConfirmation {
		return nil, s.registerFailed(ctx, username, common.ErrPasswordMismatch)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	account := &model.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		RegisteredAt: now,
		LastLoginAt:  now,
		IsActive:     true,
	}

	if err := s.accounts.Create(ctx, account, req.Password); err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) || errors.Is(err, common.ErrDuplicateEmail) {
			return nil, s.registerFailed(ctx, username, err)
		}
		return nil, s.registerFailed(ctx, username, fmt.Errorf("create account: %w", err))
	}

	if err := s.roles.AddMember(ctx, account.ID, model.ActiveRole); err != nil {
		if delErr := s.accounts.Delete(ctx, account); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove account after role grant failure",
				slog.String("account_id", account.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, s.registerFailed(ctx, username, fmt.Errorf("grant active role: %w", err))
	}

	if err := s.sessions.Issue(ctx, account); err != nil {
		return nil, s.registerFailed(ctx, username, fmt.Errorf("issue session: %w", err))
	}

	s.metrics.Registrations.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "account registered",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
	)
	return &AuthResult{Account: account, Redirect: s.paths.Landing}, nil
}

// SignOut revokes the caller's session, whatever state it is in.
func (s *AuthService) SignOut(ctx context.Context) (string, error) {
	if err := s.sessions.RevokeCurrent(ctx); err != nil {
		return "", fmt.Errorf("revoke session: %w", err)
	}
	return s.paths.Landing, nil
}

// AccessDenied drops a session that no longer passes authorization and points back to sign-in.
func (s *AuthService) AccessDenied(ctx context.Context) (string, error) {
	if username, ok := s.sessions.CurrentUsername(ctx); ok {
		s.logger.WarnContext(ctx, "access denied, revoking session", slog.String("username", username))
	}
	if err := s.sessions.RevokeCurrent(ctx); err != nil {
		return "", fmt.Errorf("revoke session: %w", err)
	}
	return s.paths.SignIn, nil
}

// IsActive is the live Active-role check behind access gating.
func (s *AuthService) IsActive(ctx context.Context, accountID string) (bool, error) {
	return s.roles.IsMember(ctx, accountID, model.ActiveRole)
}

func (s *AuthService) accountByEmail(ctx context.Context, email string) (*model.Account, bool, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find account by email: %w", err)
	}
	return account, true, nil
}

func (s *AuthService) accountByUsername(ctx context.Context, username string) (*model.Account, bool, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find account by username: %w", err)
	}
	return account, true, nil
}

// nextLoginTime never returns a value at or before prev, so LastLoginAt only moves forward
// even on coarse clocks.
func (s *AuthService) nextLoginTime(prev time.Time) time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func (s *AuthService) signInFailed(ctx context.Context, email string, err error) error {
	outcome := outcomeOf(err)
	s.metrics.SignIns.WithLabelValues(outcome).Inc()
	if outcome == "error" {
		s.logger.ErrorContext(ctx, "sign-in failed", slog.String("error", err.Error()))
	} else {
		s.logger.InfoContext(ctx, "sign-in rejected", slog.String("email", email), slog.String("reason", outcome))
	}
	return err
}

func (s *AuthService) registerFailed(ctx context.Context, username string, err error) error {
	outcome := outcomeOf(err)
	s.metrics.Registrations.WithLabelValues(outcome).Inc()
	if outcome == "error" {
		s.logger.ErrorContext(ctx, "registration failed", slog.String("error", err.Error()))
	} else {
		s.logger.InfoContext(ctx, "registration rejected", slog.String("username", username), slog.String("reason", outcome))
	}
	return err
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, common.ErrValidation):
		return "invalid"
	case errors.Is(err, common.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, common.ErrBlocked):
		return "blocked"
	case errors.Is(err, common.ErrBadCredential):
		return "bad_credential"
	case errors.Is(err, common.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, common.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, common.ErrPasswordMismatch):
		return "password_mismatch"
	default:
		return "error"
	}
}

// LocalRedirect returns target when it is a same-origin relative path, fallback otherwise.
func LocalRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return fallback
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}
