package service

import (
	"context"
	"fmt"
	"log/slog"

	"users_sheet/internal/domain/model"
)

// SelectionService carries the operator's checkbox mask across the list
// render and the bulk-action submit without per-row ids in the form.
type SelectionService struct {
	accounts CredentialStore
	sessions SessionIssuer
	store    SelectionStore
	logger   *slog.Logger
}

func NewSelectionService(accounts CredentialStore, sessions SessionIssuer, store SelectionStore, logger *slog.Logger) *SelectionService {
	return &SelectionService{
		accounts: accounts,
		sessions: sessions,
		store:    store,
		logger:   logger.With(slog.String("component", "selection_service")),
	}
}

// List loads every account in display order and remembers their usernames
// against the caller's session, replacing any earlier snapshot.
func (s *SelectionService) List(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	sessionID, ok := s.sessions.CurrentSessionID(ctx)
	if !ok {
		s.logger.WarnContext(ctx, "account list rendered without a session, selection will not resolve")
		return accounts, nil
	}

	usernames := make([]string, len(accounts))
	for i, a := range accounts {
		usernames[i] = a.Username
	}
	if err := s.store.Save(ctx, sessionID, usernames); err != nil {
		return nil, fmt.Errorf("save selection snapshot: %w", err)
	}
	return accounts, nil
}

// Submit consumes the snapshot and zips it with flags. A missing or expired
// snapshot, or a mask of the wrong length, selects nobody.
func (s *SelectionService) Submit(ctx context.Context, flags []bool) ([]string, error) {
	sessionID, ok := s.sessions.CurrentSessionID(ctx)
	if !ok {
		return nil, nil
	}

	usernames, ok, err := s.store.Take(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load selection snapshot: %w", err)
	}
	if !ok {
		s.logger.InfoContext(ctx, "no selection snapshot for session, nothing selected")
		return nil, nil
	}

	batch := model.SelectionBatch{Usernames: usernames, Flags: flags}
	if len(flags) != len(usernames) {
		s.logger.WarnContext(ctx, "selection mask does not match rendered list",
			slog.Int("rendered", len(usernames)),
			slog.Int("submitted", len(flags)),
		)
	}
	return batch.Selected(), nil
}
