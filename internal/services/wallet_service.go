package services

import (
	"context"

	"github.com/planmoni/planmoni-backend/internal/models"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

// WalletService serves the read side of a user's money: wallet, history, notifications.
type WalletService struct {
	store repo.Store
}

func NewWalletService(store repo.Store) *WalletService { return &WalletService{store: store} }

func (s *WalletService) Wallet(ctx context.Context, userID string) (models.Wallet, error) {
	return s.store.Repos().Wallets.GetOrCreate(ctx, userID)
}

func (s *WalletService) Transactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.Repos().Transactions.ListByUser(ctx, userID, limit, offset)
}

func (s *WalletService) Events(ctx context.Context, userID string, limit, offset int) ([]models.Event, error) {
	limit, offset = clampPage(limit, offset)
	return s.store.Repos().Events.ListByUser(ctx, userID, limit, offset)
}

func (s *WalletService) MarkEventRead(ctx context.Context, userID, id string) error {
	return notFound(s.store.Repos().Events.MarkRead(ctx, userID, id), "event")
}
