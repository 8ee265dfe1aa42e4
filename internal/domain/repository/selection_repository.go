package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"users_sheet/internal/platform/kv"
)

const selectionKeyPrefix = "selection:"

// SelectionRepository keeps rendered username lists in the key/value store until
// the next submit or ttl, whichever comes first.
type SelectionRepository struct {
	store kv.Store
	ttl   time.Duration
}

func NewSelectionRepository(store kv.Store, ttl time.Duration) *SelectionRepository {
	return &SelectionRepository{store: store, ttl: ttl}
}

func (r *SelectionRepository) Save(ctx context.Context, sessionID string, usernames []string) error {
	if usernames == nil {
		usernames = []string{}
	}
	payload, err := json.Marshal(usernames)
	if err != nil {
		return fmt.Errorf("selectionRepository.Save: %w", err)
	}
	if err := r.store.Set(ctx, selectionKeyPrefix+sessionID, payload, r.ttl); err != nil {
		return fmt.Errorf("selectionRepository.Save: %w", err)
	}
	return nil
}

func (r *SelectionRepository) Take(ctx context.Context, sessionID string) ([]string, bool, error) {
	payload, ok, err := r.store.Take(ctx, selectionKeyPrefix+sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("selectionRepository.Take: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var usernames []string
	if err := json.Unmarshal(payload, &usernames); err != nil {
		return nil, false, fmt.Errorf("selectionRepository.Take: decode: %w", err)
	}
	return usernames, true, nil
}
