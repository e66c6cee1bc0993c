package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"modeh/internal/models/db_models"
	"modeh/internal/models/request_models"
	"modeh/internal/models/response_models"
	"modeh/internal/services"
	"modeh/pkg/gateway"
	"modeh/pkg/utils"
)

type PaymentController struct {
	paymentService      services.PaymentServiceInterface
	reconcileService    services.ReconcileServiceInterface
	distributionService services.DistributionServiceInterface
}

func NewPaymentController(
	paymentService services.PaymentServiceInterface,
	reconcileService services.ReconcileServiceInterface,
	distributionService services.DistributionServiceInterface) *PaymentController {
	return &PaymentController{
		paymentService:      paymentService,
		reconcileService:    reconcileService,
		distributionService: distributionService,
	}
}

// InitiateSubscription godoc
// @Summary Push an STK payment prompt for a subscription plan
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitiateSubscriptionPaymentRequest true "Subscription payment request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/subscriptions [post]
func (p *PaymentController) InitiateSubscription(c *gin.Context) {
	var request request_models.InitiateSubscriptionPaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	txn, err := p.paymentService.InitiateSubscriptionPayment(c.Request.Context(), accountID, request.PlanCode, request.Phone)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.ToTransactionResponse(txn), "Payment initiated, confirm on your phone")
}

// InitiatePurchase godoc
// @Summary Push an STK payment prompt for a one-off item
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitiatePurchasePaymentRequest true "Purchase payment request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/purchases [post]
func (p *PaymentController) InitiatePurchase(c *gin.Context) {
	var request request_models.InitiatePurchasePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	accountID, ok := requireAccountID(c)
	if !ok {
		return
	}

	txn, err := p.paymentService.InitiatePurchasePayment(
		c.Request.Context(), accountID,
		db_models.ItemType(request.ItemType), request.ItemID,
		request.Amount, request.Phone)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.ToTransactionResponse(txn), "Payment initiated, confirm on your phone")
}

// HandleCallback receives the gateway's asynchronous confirmation. The
// provider retries on non-2xx, so already-terminal and unknown
// transactions are acknowledged with 200 to stop retry storms.
func (p *PaymentController) HandleCallback(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	cb, err := gateway.ParseCallback(raw)
	if err != nil {
		log.Printf("webhook: malformed callback: %v", err)
		utils.RespondError(c, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	result, err := p.reconcileService.HandleCallback(c.Request.Context(), cb)
	if err != nil {
		if errors.Is(err, utils.ErrTransactionNotFound) {
			log.Printf("webhook: no transaction for checkout %s", cb.CheckoutRequestID)
			utils.RespondSuccess(c, nil, "Accepted")
			return
		}
		log.Printf("webhook: processing %s failed: %v", cb.CheckoutRequestID, err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to process callback")
		return
	}

	utils.RespondSuccess(c, toReconcileResponse(result), "Accepted")
}

// Reconcile godoc
// @Summary Actively reconcile a transaction against the gateway
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.ReconcileRequest true "Reconcile request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/reconcile [post]
func (p *PaymentController) Reconcile(c *gin.Context) {
	var request request_models.ReconcileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := p.reconcileService.Reconcile(c.Request.Context(), request.CheckoutRequestID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	message := "Reconciled"
	if result.Transaction.Status == db_models.TxnStatusPending {
		message = "Payment pending, retry scheduled"
	}
	utils.RespondSuccess(c, toReconcileResponse(result), message)
}

// GetTransaction godoc
// @Summary Fetch the normalized state of a payment transaction
// @Tags Payments
// @Produce json
// @Param checkoutId path string true "Checkout request id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/{checkoutId} [get]
func (p *PaymentController) GetTransaction(c *gin.Context) {
	checkoutID := c.Param("checkoutId")

	txn, err := p.paymentService.GetTransaction(c.Request.Context(), checkoutID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.ToTransactionResponse(txn), "")
}

// GetSettlements godoc
// @Summary List the settlement records written for a transaction
// @Tags Payments
// @Produce json
// @Param checkoutId path string true "Checkout request id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /payments/{checkoutId}/settlements [get]
func (p *PaymentController) GetSettlements(c *gin.Context) {
	checkoutID := c.Param("checkoutId")

	records, err := p.distributionService.ListSettlements(c.Request.Context(), checkoutID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.ToSettlementResponses(records), "")
}

func toReconcileResponse(result *services.ReconcileResult) response_models.ReconcileResponse {
	resp := response_models.ReconcileResponse{
		TransactionResponse: response_models.ToTransactionResponse(result.Transaction),
		Settlement:          string(result.Settlement),
	}
	if result.SettlementErr != nil {
		resp.SettlementError = result.SettlementErr.Error()
	}
	return resp
}

func requireAccountID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	if raw == "" {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "user_id is not a valid uuid")
		return uuid.Nil, false
	}
	return id, true
}
