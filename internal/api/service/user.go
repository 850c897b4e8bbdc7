package service

import (
	"context"

	"github.com/lawdesk/lawdesk/internal/api/domain"
	"github.com/lawdesk/lawdesk/internal/api/store"
)

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// Deactivate disables an account and revokes its sessions. Accounts are
// never deleted; the audit trail keeps referring to them.
func (s *UserService) Deactivate(ctx context.Context, userID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().SetActive(ctx, userID, false); err != nil {
			return err
		}
		return tx.RefreshTokens().DeleteAllForUser(ctx, userID)
	})
}
