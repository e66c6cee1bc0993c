package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"modeh/internal/models/db_models"
	"modeh/internal/repositories"
	"modeh/pkg/events"
	"modeh/pkg/gateway"
	"modeh/pkg/utils"
)

// amountTolerance is the absolute deviation allowed between the
// gateway-reported amount and the billable's expected amount.
var amountTolerance = decimal.NewFromFloat(0.01)

const (
	retryBaseDelay = time.Minute
	retryMaxDelay  = 30 * time.Minute
	sweepBatchSize = 100
	gatewayTimeout = 20 * time.Second
)

// SettlementOutcome reports what happened in the post-success pipeline.
// A partial failure never reverts the confirmed payment; it is surfaced
// here for operator remediation and the pipeline is safe to re-run.
type SettlementOutcome string

const (
	SettlementApplied        SettlementOutcome = "applied"
	SettlementAlreadyApplied SettlementOutcome = "already_applied"
	SettlementNotApplicable  SettlementOutcome = "not_applicable"
	SettlementManualFix      SettlementOutcome = "manual_fix_required"
)

type ReconcileResult struct {
	Transaction   *db_models.PaymentTransaction
	Settlement    SettlementOutcome
	SettlementErr error
}

type ReconcileServiceInterface interface {
	// HandleCallback processes a normalized webhook payload. Terminal
	// transactions are acknowledged without reprocessing.
	HandleCallback(ctx context.Context, cb *gateway.CallbackResult) (*ReconcileResult, error)
	// Reconcile actively polls the gateway for the transaction's status
	// and converges on the same core logic as the webhook path. On a
	// transaction that is already successful it re-runs the settlement
	// pipeline idempotently, which repairs earlier partial failures.
	Reconcile(ctx context.Context, checkoutID string) (*ReconcileResult, error)
	// SweepDueRetries polls every pending transaction whose
	// next_retry_at has elapsed.
	SweepDueRetries(ctx context.Context)
}

type ReconcileService struct {
	db           *gorm.DB
	txnRepo      repositories.TransactionRepositoryInterface
	billableRepo repositories.BillableRepositoryInterface
	distributor  DistributionServiceInterface
	gateway      gateway.Client
	publisher    events.Publisher
	platformPct  decimal.Decimal
}

func NewReconcileService(
	db *gorm.DB,
	txnRepo repositories.TransactionRepositoryInterface,
	billableRepo repositories.BillableRepositoryInterface,
	distributor DistributionServiceInterface,
	gw gateway.Client,
	publisher events.Publisher,
	platformPct decimal.Decimal,
) ReconcileServiceInterface {
	return &ReconcileService{
		db:           db,
		txnRepo:      txnRepo,
		billableRepo: billableRepo,
		distributor:  distributor,
		gateway:      gw,
		publisher:    publisher,
		platformPct:  platformPct,
	}
}

// allowedTransition encodes the ledger's state machine: pending rows
// may finalize, terminal rows are immutable.
func allowedTransition(from, to db_models.TransactionStatus) bool {
	if from != db_models.TxnStatusPending {
		return false
	}
	switch to {
	case db_models.TxnStatusSuccess, db_models.TxnStatusFailed, db_models.TxnStatusCancelled:
		return true
	default:
		return false
	}
}

// nextRetryDelay doubles per attempt from one minute, capped at thirty.
func nextRetryDelay(retryCount int) time.Duration {
	delay := retryBaseDelay
	for i := 0; i < retryCount && delay < retryMaxDelay; i++ {
		delay *= 2
	}
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// reconcileDecision is the outcome of the pure decision step: either a
// terminal transition, a scheduled retry, or an idempotent no-op.
type reconcileDecision struct {
	alreadyTerminal   bool
	newStatus         db_models.TransactionStatus
	resultCode        string
	resultDescription string
	receiptID         string
	scheduleRetry     bool
	settle            bool
}

// decideOutcome applies the reconciliation rules to one gateway answer.
// receiptTaken reports whether the reported receipt already settles a
// different successful transaction.
func decideOutcome(txn *db_models.PaymentTransaction, res *gateway.QueryResult, expected decimal.Decimal, receiptTaken bool) reconcileDecision {
	if txn.Status.IsTerminal() {
		return reconcileDecision{alreadyTerminal: true}
	}

	// Amount guard before anything terminal: a reported amount off by
	// more than the tolerance always fails the transaction.
	if res.Amount != nil && res.Amount.Sub(expected).Abs().GreaterThan(amountTolerance) {
		return reconcileDecision{
			newStatus:         db_models.TxnStatusFailed,
			resultCode:        res.ResultCode,
			resultDescription: "Amount mismatch",
		}
	}

	switch res.Status {
	case gateway.StatusSuccess:
		if res.ReceiptID != "" && receiptTaken {
			// The gateway replayed a receipt across two correlation
			// ids; only the first one settles.
			return reconcileDecision{
				newStatus:         db_models.TxnStatusFailed,
				resultCode:        res.ResultCode,
				resultDescription: "Duplicate receipt",
			}
		}
		return reconcileDecision{
			newStatus:         db_models.TxnStatusSuccess,
			resultCode:        res.ResultCode,
			resultDescription: res.ResultDescription,
			receiptID:         res.ReceiptID,
			settle:            true,
		}

	case gateway.StatusFailed:
		return reconcileDecision{
			newStatus:         db_models.TxnStatusFailed,
			resultCode:        res.ResultCode,
			resultDescription: res.ResultDescription,
		}

	case gateway.StatusCancelled:
		return reconcileDecision{
			newStatus:         db_models.TxnStatusCancelled,
			resultCode:        res.ResultCode,
			resultDescription: res.ResultDescription,
		}

	default:
		// Pending or ambiguous answers never finalize a transaction.
		return reconcileDecision{scheduleRetry: true}
	}
}

func (s *ReconcileService) HandleCallback(ctx context.Context, cb *gateway.CallbackResult) (*ReconcileResult, error) {
	return s.processResult(ctx, cb.CheckoutRequestID, &cb.QueryResult, false)
}

func (s *ReconcileService) Reconcile(ctx context.Context, checkoutID string) (*ReconcileResult, error) {
	txn, err := s.txnRepo.FindByCheckoutID(ctx, checkoutID)
	if err != nil {
		return nil, err
	}

	// Already successful: skip the gateway round-trip and re-run the
	// settlement pipeline idempotently.
	if txn.Status == db_models.TxnStatusSuccess {
		result := &ReconcileResult{Transaction: txn}
		s.applySettlement(ctx, txn, result)
		return result, nil
	}
	if txn.Status.IsTerminal() {
		return &ReconcileResult{Transaction: txn, Settlement: SettlementNotApplicable}, nil
	}

	qctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	res, err := s.gateway.QueryStatus(qctx, checkoutID)
	if err != nil {
		// A stalled or erroring gateway is never grounds for a terminal
		// state; schedule a retry instead.
		log.Printf("reconcile: gateway query failed for %s: %v", checkoutID, err)
		if res == nil {
			res = &gateway.QueryResult{Status: gateway.StatusUnknown}
		}
		res.Status = gateway.StatusUnknown
	}

	return s.processResult(ctx, checkoutID, res, true)
}

func (s *ReconcileService) SweepDueRetries(ctx context.Context) {
	due, err := s.txnRepo.DueForRetry(ctx, time.Now().Unix(), sweepBatchSize)
	if err != nil {
		log.Printf("reconcile sweep: listing due transactions: %v", err)
		return
	}

	for _, txn := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Reconcile(ctx, txn.CheckoutRequestID); err != nil {
			log.Printf("reconcile sweep: %s: %v", txn.CheckoutRequestID, err)
		}
	}
}

// processResult is the convergence point of the webhook and poll paths.
// Steps 1-5 run inside one locked transaction; settlement follows the
// commit so a confirmed payment is never lost to a settlement failure.
func (s *ReconcileService) processResult(ctx context.Context, checkoutID string, res *gateway.QueryResult, repairSettled bool) (*ReconcileResult, error) {
	var (
		txn *db_models.PaymentTransaction
		dec reconcileDecision
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.txnRepo.LockByCheckoutID(tx, checkoutID)
		if err != nil {
			return err
		}
		txn = locked

		if txn.Status.IsTerminal() {
			dec = reconcileDecision{alreadyTerminal: true}
			return nil
		}

		billable, err := s.billableRepo.Resolve(tx, txn.BillableType, txn.BillableID)
		if err != nil {
			return fmt.Errorf("resolve billable for %s: %w", checkoutID, err)
		}

		receiptTaken := false
		if res.Status == gateway.StatusSuccess && res.ReceiptID != "" {
			receiptTaken, err = s.txnRepo.ReceiptInUse(tx, res.ReceiptID, txn.CheckoutRequestID)
			if err != nil {
				return fmt.Errorf("duplicate receipt check: %w", err)
			}
		}

		dec = decideOutcome(txn, res, billable.ExpectedAmount(), receiptTaken)
		return s.applyDecision(tx, txn, res, dec)
	})
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Transaction: txn, Settlement: SettlementNotApplicable}

	if dec.alreadyTerminal {
		if txn.Status == db_models.TxnStatusSuccess && repairSettled {
			s.applySettlement(ctx, txn, result)
		} else {
			result.Settlement = SettlementAlreadyApplied
		}
		return result, nil
	}

	if dec.settle {
		s.applySettlement(ctx, txn, result)
	} else if dec.newStatus == db_models.TxnStatusFailed || dec.newStatus == db_models.TxnStatusCancelled {
		s.publish(ctx, events.EventPaymentFailed, map[string]interface{}{
			"checkout_request_id": txn.CheckoutRequestID,
			"status":              txn.Status,
			"result_code":         txn.ResultCode,
			"result_description":  txn.ResultDescription,
		})
	}

	return result, nil
}

// applyDecision mutates the locked row. Terminal writes go through the
// transition guard; retry scheduling leaves the row pending.
func (s *ReconcileService) applyDecision(tx *gorm.DB, txn *db_models.PaymentTransaction, res *gateway.QueryResult, dec reconcileDecision) error {
	if dec.alreadyTerminal {
		return nil
	}

	if dec.scheduleRetry {
		retryAt := time.Now().Add(nextRetryDelay(txn.RetryCount)).Unix()
		txn.RetryCount++
		txn.NextRetryAt = &retryAt
		return tx.Model(txn).Updates(map[string]interface{}{
			"retry_count":   txn.RetryCount,
			"next_retry_at": retryAt,
		}).Error
	}

	if !allowedTransition(txn.Status, dec.newStatus) {
		return fmt.Errorf("%w: %s -> %s", utils.ErrInvalidStateTransition, txn.Status, dec.newStatus)
	}

	now := time.Now().Unix()
	fields := map[string]interface{}{
		"status":             dec.newStatus,
		"result_code":        dec.resultCode,
		"result_description": dec.resultDescription,
		"reconciled_at":      now,
		"next_retry_at":      nil,
	}
	if dec.newStatus == db_models.TxnStatusSuccess && dec.receiptID != "" {
		fields["receipt_id"] = dec.receiptID
		txn.ReceiptID = &dec.receiptID
	}
	if len(res.Raw) > 0 {
		fields["raw_callback"] = res.Raw
	}

	if err := tx.Model(txn).Updates(fields).Error; err != nil {
		return err
	}

	txn.Status = dec.newStatus
	txn.ResultCode = dec.resultCode
	txn.ResultDescription = dec.resultDescription
	txn.ReconciledAt = &now
	txn.NextRetryAt = nil
	return nil
}

// applySettlement runs step 6: settle the billable, distribute revenue,
// credit wallets. The transaction stays success whatever happens here;
// failures are logged and reported for manual remediation, and a re-run
// is idempotent end to end.
func (s *ReconcileService) applySettlement(ctx context.Context, txn *db_models.PaymentTransaction, result *ReconcileResult) {
	var records []db_models.SettlementRecord

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-lock the payment row so concurrent settlement re-runs
		// serialize on it.
		locked, lockErr := s.txnRepo.LockByCheckoutID(tx, txn.CheckoutRequestID)
		if lockErr != nil {
			return lockErr
		}
		if locked.Status != db_models.TxnStatusSuccess {
			return fmt.Errorf("%w: settlement on non-successful transaction", utils.ErrInvalidStateTransition)
		}

		billable, resolveErr := s.billableRepo.Resolve(tx, locked.BillableType, locked.BillableID)
		if resolveErr != nil {
			return resolveErr
		}

		info, settleErr := billable.Settle(tx, locked)
		if settleErr != nil {
			return fmt.Errorf("settle billable: %w", settleErr)
		}

		created, distErr := s.distributor.Distribute(tx, locked, info, s.platformPct)
		if distErr != nil {
			return distErr
		}
		records = created
		return nil
	})

	switch {
	case err == nil:
		result.Settlement = SettlementApplied
	case errors.Is(err, utils.ErrSettlementAlreadyApplied):
		result.Settlement = SettlementAlreadyApplied
		return
	default:
		log.Printf("reconcile: settlement failed for %s, manual remediation required: %v", txn.CheckoutRequestID, err)
		result.Settlement = SettlementManualFix
		result.SettlementErr = err
		return
	}

	s.publish(ctx, events.EventPaymentSettled, map[string]interface{}{
		"checkout_request_id": txn.CheckoutRequestID,
		"amount":              txn.Amount,
		"receipt_id":          txn.ReceiptID,
	})
	for _, rec := range records {
		if rec.StakeholderID == nil {
			continue
		}
		s.publish(ctx, events.EventWalletUpdated, map[string]interface{}{
			"owner_id":            rec.StakeholderID,
			"credited":            rec.StakeholderShare,
			"checkout_request_id": rec.CheckoutRequestID,
		})
	}
}

// publish is fire-and-forget: a dead broker never blocks reconciliation.
func (s *ReconcileService) publish(ctx context.Context, name string, payload map[string]interface{}) {
	if err := s.publisher.Publish(ctx, name, payload); err != nil {
		log.Printf("reconcile: publish %s failed: %v", name, err)
	}
}
