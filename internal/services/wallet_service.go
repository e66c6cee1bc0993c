package services

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"modeh/internal/models/db_models"
	"modeh/internal/repositories"
	"modeh/pkg/events"
)

type WalletServiceInterface interface {
	GetWallet(ctx context.Context, ownerID uuid.UUID) (*db_models.Wallet, error)
	// Credit adds to the owner's pending bucket. Used by operator
	// remediation; the settlement pipeline credits through the
	// distributor instead so records and credits commit together.
	Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error)
	// SettlePending releases up to amount (all pending when nil) into
	// the withdrawable bucket, clamped at the pending balance.
	SettlePending(ctx context.Context, ownerID uuid.UUID, amount *decimal.Decimal) (*db_models.Wallet, error)
}

type WalletService struct {
	walletRepo repositories.WalletRepositoryInterface
	publisher  events.Publisher
}

func NewWalletService(walletRepo repositories.WalletRepositoryInterface, publisher events.Publisher) WalletServiceInterface {
	return &WalletService{walletRepo: walletRepo, publisher: publisher}
}

func (s *WalletService) GetWallet(ctx context.Context, ownerID uuid.UUID) (*db_models.Wallet, error) {
	return s.walletRepo.GetByOwnerID(ctx, ownerID)
}

func (s *WalletService) Credit(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal) (*db_models.Wallet, error) {
	wallet, err := s.walletRepo.Credit(ctx, ownerID, amount)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, wallet, "credit", amount)
	return wallet, nil
}

func (s *WalletService) SettlePending(ctx context.Context, ownerID uuid.UUID, amount *decimal.Decimal) (*db_models.Wallet, error) {
	wallet, moved, err := s.walletRepo.SettlePending(ctx, ownerID, amount)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, wallet, "settle", moved)
	return wallet, nil
}

// notify is fire-and-forget: a failed publish never rolls back the
// balance change.
func (s *WalletService) notify(ctx context.Context, wallet *db_models.Wallet, op string, amount decimal.Decimal) {
	err := s.publisher.Publish(ctx, events.EventWalletUpdated, map[string]interface{}{
		"owner_id":        wallet.OwnerID,
		"operation":       op,
		"amount":          amount,
		"pending":         wallet.Pending,
		"available":       wallet.Available,
		"lifetime_earned": wallet.LifetimeEarned,
	})
	if err != nil {
		log.Printf("wallet: publish wallet.updated failed for %s: %v", wallet.OwnerID, err)
	}
}
