package response_models

import (
	"github.com/shopspring/decimal"

	"modeh/internal/models/db_models"
)

type WalletResponse struct {
	OwnerID        string          `json:"owner_id"`
	Pending        decimal.Decimal `json:"pending"`
	Available      decimal.Decimal `json:"available"`
	LifetimeEarned decimal.Decimal `json:"lifetime_earned"`
}

func ToWalletResponse(w *db_models.Wallet) WalletResponse {
	return WalletResponse{
		OwnerID:        w.OwnerID.String(),
		Pending:        w.Pending,
		Available:      w.Available,
		LifetimeEarned: w.LifetimeEarned,
	}
}
