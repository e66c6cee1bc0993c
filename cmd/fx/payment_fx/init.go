package payment_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"modeh/internal/api/controllers"
	"modeh/internal/repositories"
	"modeh/internal/services"
	"modeh/pkg/gateway"
)

var Module = fx.Provide(
	repositories.NewTransactionRepository,
	repositories.NewSettlementRepository,
	repositories.NewBillableRepository,
	providePaymentService,
	services.NewDistributionService,
	providePaymentController,
)

func providePaymentService(db *gorm.DB, txnRepo repositories.TransactionRepositoryInterface, gw gateway.Client) services.PaymentServiceInterface {
	return services.NewPaymentService(db, txnRepo, gw)
}

func providePaymentController(
	paymentService services.PaymentServiceInterface,
	reconcileService services.ReconcileServiceInterface,
	distributionService services.DistributionServiceInterface) *controllers.PaymentController {
	return controllers.NewPaymentController(paymentService, reconcileService, distributionService)
}
