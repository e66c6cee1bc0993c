package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modeh/internal/models/db_models"
	"modeh/internal/repositories"
	"modeh/pkg/gateway"
	"modeh/pkg/utils"
)

// Kenyan MSISDN in international format, e.g. 2547XXXXXXXX.
var phonePattern = regexp.MustCompile(`^254[17]\d{8}$`)

type PaymentServiceInterface interface {
	// InitiateSubscriptionPayment creates a pending subscription for the
	// plan and pushes an STK prompt to the payer's phone. The pending
	// transaction row is keyed by the gateway's checkout request id.
	InitiateSubscriptionPayment(ctx context.Context, accountID uuid.UUID, planCode, phone string) (*db_models.PaymentTransaction, error)
	// InitiatePurchasePayment does the same for a one-off item. The
	// price is decided upstream by the quiz domain and passed in.
	InitiatePurchasePayment(ctx context.Context, accountID uuid.UUID, itemType db_models.ItemType, itemID uuid.UUID, amount decimal.Decimal, phone string) (*db_models.PaymentTransaction, error)
	GetTransaction(ctx context.Context, checkoutID string) (*db_models.PaymentTransaction, error)
}

type PaymentService struct {
	db      *gorm.DB
	txnRepo repositories.TransactionRepositoryInterface
	gateway gateway.Client
}

func NewPaymentService(db *gorm.DB, txnRepo repositories.TransactionRepositoryInterface, gw gateway.Client) PaymentServiceInterface {
	return &PaymentService{db: db, txnRepo: txnRepo, gateway: gw}
}

func (s *PaymentService) InitiateSubscriptionPayment(ctx context.Context, accountID uuid.UUID, planCode, phone string) (*db_models.PaymentTransaction, error) {
	if !phonePattern.MatchString(phone) {
		return nil, utils.ErrInvalidPhone
	}

	var plan db_models.Plan
	if err := s.db.WithContext(ctx).
		Where("code = ? AND is_active = TRUE", planCode).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: plan %s", utils.ErrBillableNotFound, planCode)
		}
		return nil, err
	}
	if !plan.Price.IsPositive() {
		return nil, fmt.Errorf("plan %s is not billable (price=%s)", planCode, plan.Price)
	}

	sub := db_models.Subscription{
		AccountID: accountID,
		PlanID:    plan.ID,
		Status:    db_models.SubStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	return s.push(ctx, accountID, phone, plan.Price,
		fmt.Sprintf("SUB-%s", plan.Code),
		db_models.BillableSubscription, sub.ID)
}

func (s *PaymentService) InitiatePurchasePayment(ctx context.Context, accountID uuid.UUID, itemType db_models.ItemType, itemID uuid.UUID, amount decimal.Decimal, phone string) (*db_models.PaymentTransaction, error) {
	if !phonePattern.MatchString(phone) {
		return nil, utils.ErrInvalidPhone
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}

	purchase := db_models.Purchase{
		AccountID: accountID,
		ItemType:  itemType,
		ItemID:    itemID,
		Amount:    amount.Round(2),
		Status:    db_models.PurchaseStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&purchase).Error; err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	return s.push(ctx, accountID, phone, purchase.Amount,
		fmt.Sprintf("%s-%s", itemType, shortRef(itemID)),
		db_models.BillablePurchase, purchase.ID)
}

func (s *PaymentService) GetTransaction(ctx context.Context, checkoutID string) (*db_models.PaymentTransaction, error) {
	return s.txnRepo.FindByCheckoutID(ctx, checkoutID)
}

func (s *PaymentService) push(ctx context.Context, accountID uuid.UUID, phone string, amount decimal.Decimal, reference string, billableType db_models.BillableType, billableID uuid.UUID) (*db_models.PaymentTransaction, error) {
	res, err := s.gateway.InitiateSTKPush(ctx, phone, amount, reference)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", utils.ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	txn := &db_models.PaymentTransaction{
		AccountID:         accountID,
		CheckoutRequestID: res.CheckoutRequestID,
		MerchantRequestID: res.MerchantRequestID,
		Amount:            amount.Round(2),
		Phone:             phone,
		Status:            db_models.TxnStatusPending,
		BillableType:      billableType,
		BillableID:        billableID,
	}

	if err := s.txnRepo.Create(ctx, txn); err != nil {
		// The gateway retried our initiation with the same checkout id:
		// hand back the record that already exists.
		if errors.Is(err, utils.ErrDuplicateCorrelationID) {
			return s.txnRepo.FindByCheckoutID(ctx, res.CheckoutRequestID)
		}
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return txn, nil
}

func shortRef(id uuid.UUID) string {
	s := id.String()
	return s[:8]
}
