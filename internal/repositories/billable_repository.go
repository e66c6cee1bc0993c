package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modeh/internal/models/db_models"
	"modeh/pkg/utils"
)

// SettleInfo is what a settled billable hands to the revenue
// distributor: which item was bought and who paid.
type SettleInfo struct {
	ItemType db_models.ItemType
	ItemID   uuid.UUID
	PayerID  uuid.UUID
}

// Billable is any purchasable concept a successful payment settles.
// Settle must be idempotent: an already-settled billable is a no-op.
type Billable interface {
	ExpectedAmount() decimal.Decimal
	Settle(tx *gorm.DB, txn *db_models.PaymentTransaction) (*SettleInfo, error)
}

// OwnerUnits is one stakeholder's weight in an item: the number of
// content units (questions, or the whole item) the owner contributed.
type OwnerUnits struct {
	OwnerID uuid.UUID
	Units   int
}

type BillableRepositoryInterface interface {
	// Resolve maps the transaction's tagged billable ref to a concrete
	// billable, loaded inside the caller's transaction.
	Resolve(tx *gorm.DB, billableType db_models.BillableType, billableID uuid.UUID) (Billable, error)
	// OwnersForItem returns the stakeholder set of an item in a
	// deterministic order (first contribution first). Empty for items
	// with no resolvable owner.
	OwnersForItem(tx *gorm.DB, itemType db_models.ItemType, itemID uuid.UUID) ([]OwnerUnits, error)
}

func NewBillableRepository() BillableRepositoryInterface {
	return &BillableRepository{}
}

type BillableRepository struct{}

func (r *BillableRepository) Resolve(tx *gorm.DB, billableType db_models.BillableType, billableID uuid.UUID) (Billable, error) {
	switch billableType {
	case db_models.BillableSubscription:
		var sub db_models.Subscription
		err := tx.Preload("Plan").Where("id = ?", billableID).First(&sub).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.ErrBillableNotFound
			}
			return nil, err
		}
		return &subscriptionBillable{sub: sub}, nil

	case db_models.BillablePurchase:
		var purchase db_models.Purchase
		err := tx.Where("id = ?", billableID).First(&purchase).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.ErrBillableNotFound
			}
			return nil, err
		}
		return &purchaseBillable{purchase: purchase}, nil

	default:
		return nil, fmt.Errorf("%w: unknown billable type %q", utils.ErrBillableNotFound, billableType)
	}
}

func (r *BillableRepository) OwnersForItem(tx *gorm.DB, itemType db_models.ItemType, itemID uuid.UUID) ([]OwnerUnits, error) {
	switch itemType {
	case db_models.ItemQuiz:
		var quiz db_models.Quiz
		err := tx.Where("id = ?", itemID).First(&quiz).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []OwnerUnits{{OwnerID: quiz.AuthorID, Units: 1}}, nil

	case db_models.ItemBattle:
		var links []db_models.BattleQuestion
		err := tx.Preload("Question").
			Where("battle_id = ?", itemID).
			Order("created_at ASC").
			Find(&links).Error
		if err != nil {
			return nil, err
		}
		// Sum units per author in order of first appearance.
		var owners []OwnerUnits
		index := make(map[uuid.UUID]int)
		for _, link := range links {
			author := link.Question.AuthorID
			if author == uuid.Nil {
				continue
			}
			if i, seen := index[author]; seen {
				owners[i].Units++
				continue
			}
			index[author] = len(owners)
			owners = append(owners, OwnerUnits{OwnerID: author, Units: 1})
		}
		return owners, nil

	case db_models.ItemTournament:
		var tournament db_models.Tournament
		err := tx.Where("id = ?", itemID).First(&tournament).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []OwnerUnits{{OwnerID: tournament.OrganizerID, Units: 1}}, nil

	default:
		// Packages and subscriptions have no content owner; the pool
		// folds into the platform share.
		return nil, nil
	}
}

type subscriptionBillable struct {
	sub db_models.Subscription
}

func (b *subscriptionBillable) ExpectedAmount() decimal.Decimal {
	return b.sub.Plan.Price
}

func (b *subscriptionBillable) Settle(tx *gorm.DB, txn *db_models.PaymentTransaction) (*SettleInfo, error) {
	info := &SettleInfo{
		ItemType: db_models.ItemSubscription,
		ItemID:   b.sub.ID,
		PayerID:  b.sub.AccountID,
	}
	if b.sub.Status == db_models.SubStatusActive {
		return info, nil
	}

	now := time.Now()
	starts := now
	// Extend from the current window when this payment renews an
	// unexpired subscription.
	if b.sub.EndsAt > now.Unix() {
		starts = time.Unix(b.sub.EndsAt, 0)
	}

	var ends time.Time
	switch b.sub.Plan.Period {
	case db_models.PeriodYear:
		ends = starts.AddDate(1, 0, 0)
	default:
		ends = starts.AddDate(0, 1, 0)
	}

	err := tx.Model(&db_models.Subscription{}).
		Where("id = ?", b.sub.ID).
		Updates(map[string]interface{}{
			"status":    db_models.SubStatusActive,
			"starts_at": starts.Unix(),
			"ends_at":   ends.Unix(),
		}).Error
	if err != nil {
		return nil, err
	}
	return info, nil
}

type purchaseBillable struct {
	purchase db_models.Purchase
}

func (b *purchaseBillable) ExpectedAmount() decimal.Decimal {
	return b.purchase.Amount
}

func (b *purchaseBillable) Settle(tx *gorm.DB, txn *db_models.PaymentTransaction) (*SettleInfo, error) {
	info := &SettleInfo{
		ItemType: b.purchase.ItemType,
		ItemID:   b.purchase.ItemID,
		PayerID:  b.purchase.AccountID,
	}
	if b.purchase.Status == db_models.PurchaseStatusConfirmed {
		return info, nil
	}

	err := tx.Model(&db_models.Purchase{}).
		Where("id = ?", b.purchase.ID).
		Update("status", db_models.PurchaseStatusConfirmed).Error
	if err != nil {
		return nil, err
	}
	return info, nil
}
