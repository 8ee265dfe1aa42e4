package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"users_sheet/internal/common"
	"users_sheet/internal/domain/model"
	"users_sheet/internal/platform/metrics"
)

const (
	ActionBlock   = "block"
	ActionUnblock = "unblock"
	ActionDelete  = "delete"
)

type AdminService struct {
	accounts  CredentialStore
	roles     RoleStore
	sessions  SessionIssuer
	selection *SelectionService
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewAdminService(
	accounts CredentialStore,
	roles RoleStore,
	sessions SessionIssuer,
	selection *SelectionService,
	logger *slog.Logger,
	m *metrics.Metrics,
) *AdminService {
	return &AdminService{
		accounts:  accounts,
		roles:     roles,
		sessions:  sessions,
		selection: selection,
		logger:    logger.With(slog.String("component", "admin_service")),
		metrics:   m,
	}
}

// AccountRow is one line of the users sheet. Rows always render unchecked.
type AccountRow struct {
	model.Account
	Selected bool `json:"selected"`
}

// BulkReport describes a finished bulk action.
type BulkReport struct {
	Action        string   `json:"action"`
	Succeeded     []string `json:"succeeded"`
	SelfSignedOut bool     `json:"self_signed_out"`
}

// ListAccounts renders the sheet and records its row order for the next submit.
func (s *AdminService) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	accounts, err := s.selection.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]AccountRow, len(accounts))
	for i, a := range accounts {
		rows[i] = AccountRow{Account: a}
	}
	return rows, nil
}

// Resolve maps a submitted mask to live accounts. Names renamed or deleted since
// the list was rendered drop out silently.
func (s *AdminService) Resolve(ctx context.Context, flags []bool) ([]model.Account, error) {
	names, err := s.selection.Submit(ctx, flags)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	live, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	resolved := make([]model.Account, 0, len(names))
	for _, a := range live {
		if model.ContainsUsername(names, a.Username) {
			resolved = append(resolved, a)
		}
	}
	if dropped := len(names) - len(resolved); dropped > 0 {
		s.logger.InfoContext(ctx, "selected accounts no longer exist", slog.Int("dropped", dropped))
	}
	return resolved, nil
}

func (s *AdminService) Block(ctx context.Context, flags []bool) (*BulkReport, error) {
	selected, err := s.Resolve(ctx, flags)
	if err != nil {
		return nil, err
	}
	report := &BulkReport{Action: ActionBlock}
	if err := s.selfSignOut(ctx, selected, report); err != nil {
		return report, err
	}
	return report, s.apply(ctx, report, selected, func(a *model.Account) error {
		if err := s.roles.RemoveMember(ctx, a.ID, model.ActiveRole); err != nil {
			return err
		}
		a.IsActive = false
		return nil
	})
}

func (s *AdminService) Unblock(ctx context.Context, flags []bool) (*BulkReport, error) {
	selected, err := s.Resolve(ctx, flags)
	if err != nil {
		return nil, err
	}
	report := &BulkReport{Action: ActionUnblock}
	return report, s.apply(ctx, report, selected, func(a *model.Account) error {
		if err := s.roles.AddMember(ctx, a.ID, model.ActiveRole); err != nil {
			return err
		}
		a.IsActive = true
		return nil
	})
}

// Delete removes accounts for good. Role memberships go with them.
func (s *AdminService) Delete(ctx context.Context, flags []bool) (*BulkReport, error) {
	selected, err := s.Resolve(ctx, flags)
	if err != nil {
		return nil, err
	}
	report := &BulkReport{Action: ActionDelete}
	if err := s.selfSignOut(ctx, selected, report); err != nil {
		return report, err
	}
	return report, s.apply(ctx, report, selected, func(a *model.Account) error {
		return s.accounts.Delete(ctx, a)
	})
}

// selfSignOut revokes the caller's own session before their account is blocked or
// deleted. The caller is identified by the session, not by the selected rows.
func (s *AdminService) selfSignOut(ctx context.Context, selected []model.Account, report *BulkReport) error {
	current, ok := s.sessions.CurrentUsername(ctx)
	if !ok {
		return nil
	}
	for _, a := range selected {
		if strings.EqualFold(a.Username, current) {
			if err := s.sessions.RevokeCurrent(ctx); err != nil {
				return fmt.Errorf("self sign-out: %w", err)
			}
			report.SelfSignedOut = true
			s.logger.InfoContext(ctx, "operator signed out by own bulk action",
				slog.String("username", current),
				slog.String("action", report.Action),
			)
			return nil
		}
	}
	return nil
}

// apply runs change over selected in order and stops at the first failure.
// Accounts already changed stay changed.
func (s *AdminService) apply(ctx context.Context, report *BulkReport, selected []model.Account, change func(*model.Account) error) error {
	report.Succeeded = make([]string, 0, len(selected))
	for i := range selected {
		a := &selected[i]
		if err := change(a); err != nil {
			s.metrics.BulkActions.WithLabelValues(report.Action, "failed").Inc()
			skipped := make([]string, 0, len(selected)-i-1)
			for _, rest := range selected[i+1:] {
				skipped = append(skipped, rest.Username)
			}
			s.logger.ErrorContext(ctx, "bulk action stopped",
				slog.String("action", report.Action),
				slog.String("failed", a.Username),
				slog.Int("succeeded", len(report.Succeeded)),
				slog.Int("skipped", len(skipped)),
				slog.String("error", err.Error()),
			)
			return &common.PartialFailureError{
				Action:    report.Action,
				Succeeded: report.Succeeded,
				Failed:    a.Username,
				Skipped:   skipped,
				Err:       err,
			}
		}
		s.metrics.BulkActions.WithLabelValues(report.Action, "ok").Inc()
		report.Succeeded = append(report.Succeeded, a.Username)
	}

	if len(selected) > 0 {
		s.logger.InfoContext(ctx, "bulk action applied",
			slog.String("action", report.Action),
			slog.Int("accounts", len(selected)),
		)
	}
	return nil
}
