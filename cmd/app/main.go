package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"modeh/cmd/fx/db_fx"
	"modeh/cmd/fx/events_fx"
	"modeh/cmd/fx/gateway_fx"
	"modeh/cmd/fx/payment_fx"
	"modeh/cmd/fx/reconciler_fx"
	"modeh/cmd/fx/wallet_fx"
	"modeh/internal/api/controllers"
	"modeh/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	app := fx.New(
		db_fx.Module,
		gateway_fx.Module,
		events_fx.Module,
		payment_fx.Module,
		wallet_fx.Module,
		reconciler_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				log.Printf("Starting HTTP server at :%s", port)
				if err := engine.Run(":" + port); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

func ProvideRouter(
	paymentController *controllers.PaymentController,
	walletController *controllers.WalletController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, paymentController, walletController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	paymentController *controllers.PaymentController,
	walletController *controllers.WalletController) {

	// The gateway calls back without our auth.
	r.POST("/payments/callback", paymentController.HandleCallback)

	payments := r.Group("/payments")
	payments.Use(middleware.JWTAuthMiddleware())
	payments.POST("/subscriptions", paymentController.InitiateSubscription)
	payments.POST("/purchases", paymentController.InitiatePurchase)
	payments.POST("/reconcile", middleware.RoleMiddleware("operator"), paymentController.Reconcile)
	payments.GET("/:checkoutId", paymentController.GetTransaction)
	payments.GET("/:checkoutId/settlements", middleware.RoleMiddleware("operator"), paymentController.GetSettlements)

	wallets := r.Group("/wallets")
	wallets.Use(middleware.JWTAuthMiddleware())
	wallets.GET("/:ownerId", walletController.GetWallet)
	wallets.POST("/:ownerId/settle", middleware.RoleMiddleware("operator"), walletController.SettlePending)
}
