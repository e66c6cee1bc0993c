package reconciler_fx

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"modeh/internal/repositories"
	"modeh/internal/services"
	"modeh/pkg/events"
	"modeh/pkg/gateway"
)

const defaultSweepSchedule = "@every 1m"

var Module = fx.Options(
	fx.Provide(provideReconcileService),
	fx.Invoke(startSweep),
)

// platformSharePct loads the platform cut once at startup and passes it
// into the distributor per call, so distribution stays deterministic.
func platformSharePct() decimal.Decimal {
	raw := os.Getenv("PLATFORM_SHARE_PCT")
	if raw == "" {
		return decimal.NewFromInt(60)
	}
	pct, err := strconv.Atoi(raw)
	if err != nil || pct < 0 || pct > 100 {
		log.Fatalf("invalid PLATFORM_SHARE_PCT %q", raw)
	}
	return decimal.NewFromInt(int64(pct))
}

func provideReconcileService(
	db *gorm.DB,
	txnRepo repositories.TransactionRepositoryInterface,
	billableRepo repositories.BillableRepositoryInterface,
	distributor services.DistributionServiceInterface,
	gw gateway.Client,
	publisher events.Publisher,
) services.ReconcileServiceInterface {
	return services.NewReconcileService(db, txnRepo, billableRepo, distributor, gw, publisher, platformSharePct())
}

// startSweep schedules the periodic re-poll of transactions whose retry
// window has elapsed.
func startSweep(lc fx.Lifecycle, reconcileService services.ReconcileServiceInterface) {
	schedule := os.Getenv("RECONCILE_SWEEP_SCHEDULE")
	if schedule == "" {
		schedule = defaultSweepSchedule
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		reconcileService.SweepDueRetries(ctx)
	})
	if err != nil {
		log.Fatalf("failed to schedule reconciliation sweep: %v", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			log.Printf("reconciliation sweep scheduled (%s)", schedule)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}
