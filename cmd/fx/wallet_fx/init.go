package wallet_fx

import (
	"go.uber.org/fx"

	"modeh/internal/api/controllers"
	"modeh/internal/repositories"
	"modeh/internal/services"
)

var Module = fx.Provide(
	repositories.NewWalletRepository,
	services.NewWalletService,
	controllers.NewWalletController,
)
