package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modeh/internal/models/db_models"
	"modeh/internal/repositories"
	"modeh/pkg/utils"
)

var hundred = decimal.NewFromInt(100)

// ShareAllocation is one stakeholder's rounded cut of the pool.
type ShareAllocation struct {
	OwnerID uuid.UUID
	Share   decimal.Decimal
}

type DistributionServiceInterface interface {
	// Distribute computes the platform/stakeholder split for a
	// successful transaction and writes one settlement record per
	// stakeholder plus the wallet credits, all inside the caller's
	// transaction. Returns ErrSettlementAlreadyApplied when records
	// already exist for the checkout id.
	Distribute(tx *gorm.DB, txn *db_models.PaymentTransaction, info *repositories.SettleInfo, platformPct decimal.Decimal) ([]db_models.SettlementRecord, error)
	// ListSettlements returns the audit trail written for a checkout id.
	ListSettlements(ctx context.Context, checkoutID string) ([]db_models.SettlementRecord, error)
}

type DistributionService struct {
	billableRepo   repositories.BillableRepositoryInterface
	settlementRepo repositories.SettlementRepositoryInterface
	walletRepo     repositories.WalletRepositoryInterface
}

func NewDistributionService(
	billableRepo repositories.BillableRepositoryInterface,
	settlementRepo repositories.SettlementRepositoryInterface,
	walletRepo repositories.WalletRepositoryInterface,
) DistributionServiceInterface {
	return &DistributionService{
		billableRepo:   billableRepo,
		settlementRepo: settlementRepo,
		walletRepo:     walletRepo,
	}
}

func (s *DistributionService) Distribute(tx *gorm.DB, txn *db_models.PaymentTransaction, info *repositories.SettleInfo, platformPct decimal.Decimal) ([]db_models.SettlementRecord, error) {
	exists, err := s.settlementRepo.ExistsForCheckoutID(tx, txn.CheckoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("settlement existence check: %w", err)
	}
	if exists {
		return nil, utils.ErrSettlementAlreadyApplied
	}

	owners, err := s.billableRepo.OwnersForItem(tx, info.ItemType, info.ItemID)
	if err != nil {
		return nil, fmt.Errorf("resolve item owners: %w", err)
	}

	amount := txn.Amount
	// The stakeholder pool is rounded to ledger precision; the platform
	// side is derived by subtraction so the two always sum to amount.
	pool := amount.Mul(hundred.Sub(platformPct)).Div(hundred).Round(2)
	platformShare := amount.Sub(pool)

	var records []db_models.SettlementRecord

	if len(owners) == 0 {
		// No resolvable owner: the pool folds into the platform share
		// and a single platform-only record keeps the audit trail and
		// the idempotency guard uniform.
		records = append(records, db_models.SettlementRecord{
			CheckoutRequestID: txn.CheckoutRequestID,
			PayerID:           info.PayerID,
			StakeholderID:     nil,
			ItemType:          info.ItemType,
			ItemID:            info.ItemID,
			GrossAmount:       amount,
			StakeholderShare:  decimal.Zero,
			PlatformShare:     amount,
		})
	} else {
		shares := computeShares(pool, owners)
		for i, alloc := range shares {
			rec := db_models.SettlementRecord{
				CheckoutRequestID: txn.CheckoutRequestID,
				PayerID:           info.PayerID,
				ItemType:          info.ItemType,
				ItemID:            info.ItemID,
				GrossAmount:       amount,
				StakeholderShare:  alloc.Share,
			}
			ownerID := alloc.OwnerID
			rec.StakeholderID = &ownerID
			// The platform share is carried on the first record only;
			// the remaining records split stakeholder money.
			if i == 0 {
				rec.PlatformShare = platformShare
			} else {
				rec.PlatformShare = decimal.Zero
			}
			records = append(records, rec)
		}
	}

	if err := s.settlementRepo.CreateAll(tx, records); err != nil {
		return nil, fmt.Errorf("create settlement records: %w", err)
	}

	for _, rec := range records {
		if rec.StakeholderID == nil || rec.StakeholderShare.IsZero() {
			continue
		}
		if _, err := s.walletRepo.CreditPending(tx, *rec.StakeholderID, rec.StakeholderShare); err != nil {
			return nil, fmt.Errorf("credit wallet %s: %w", rec.StakeholderID, err)
		}
	}

	return records, nil
}

func (s *DistributionService) ListSettlements(ctx context.Context, checkoutID string) ([]db_models.SettlementRecord, error) {
	return s.settlementRepo.ListByCheckoutID(ctx, checkoutID)
}

// computeShares splits the pool across owners weighted by contributed
// units, rounds every share to 2 decimals, then applies the exact-sum
// correction: the rounding residue goes to the first owner in iteration
// order, so the rounded shares always sum to the pool exactly.
func computeShares(pool decimal.Decimal, owners []repositories.OwnerUnits) []ShareAllocation {
	totalUnits := 0
	for _, o := range owners {
		totalUnits += o.Units
	}
	if totalUnits == 0 {
		return nil
	}

	perUnit := pool.Div(decimal.NewFromInt(int64(totalUnits)))

	shares := make([]ShareAllocation, 0, len(owners))
	assigned := decimal.Zero
	for _, o := range owners {
		share := perUnit.Mul(decimal.NewFromInt(int64(o.Units))).Round(2)
		assigned = assigned.Add(share)
		shares = append(shares, ShareAllocation{OwnerID: o.OwnerID, Share: share})
	}

	if diff := pool.Sub(assigned); !diff.IsZero() {
		shares[0].Share = shares[0].Share.Add(diff)
	}
	return shares
}
