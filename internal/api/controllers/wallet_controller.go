package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"modeh/internal/models/request_models"
	"modeh/internal/models/response_models"
	"modeh/internal/services"
	"modeh/pkg/utils"
)

type WalletController struct {
	walletService services.WalletServiceInterface
}

func NewWalletController(walletService services.WalletServiceInterface) *WalletController {
	return &WalletController{walletService: walletService}
}

// GetWallet godoc
// @Summary Fetch a stakeholder wallet
// @Tags Wallets
// @Produce json
// @Param ownerId path string true "Owner id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /wallets/{ownerId} [get]
func (w *WalletController) GetWallet(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "ownerId is not a valid uuid")
		return
	}

	wallet, err := w.walletService.GetWallet(c.Request.Context(), ownerID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if wallet == nil {
		utils.RespondError(c, http.StatusNotFound, "wallet not found")
		return
	}

	utils.RespondSuccess(c, response_models.ToWalletResponse(wallet), "")
}

// SettlePending godoc
// @Summary Release pending earnings into the withdrawable balance
// @Tags Wallets
// @Accept json
// @Produce json
// @Param ownerId path string true "Owner id"
// @Param request body request_models.SettlePendingRequest true "Settle request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /wallets/{ownerId}/settle [post]
func (w *WalletController) SettlePending(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "ownerId is not a valid uuid")
		return
	}

	var request request_models.SettlePendingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	wallet, err := w.walletService.SettlePending(c.Request.Context(), ownerID, request.Amount)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.ToWalletResponse(wallet), "Pending balance released")
}
