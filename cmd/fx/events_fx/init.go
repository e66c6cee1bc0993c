package events_fx

import (
	"context"
	"log"
	"os"

	"go.uber.org/fx"

	"modeh/pkg/events"
)

var Module = fx.Options(
	fx.Provide(providePublisher),
	fx.Invoke(registerClose),
)

// providePublisher connects to the broker when AMQP_URL is set and
// falls back to the noop sink otherwise. Events are fire-and-forget so
// a dead broker at startup degrades, never blocks.
func providePublisher() events.Publisher {
	amqpURL := os.Getenv("AMQP_URL")
	if amqpURL == "" {
		return events.NoopPublisher{}
	}

	exchange := os.Getenv("AMQP_EXCHANGE")
	if exchange == "" {
		exchange = "modeh.payments"
	}

	publisher, err := events.NewAMQPPublisher(amqpURL, exchange)
	if err != nil {
		log.Printf("events: AMQP connect failed, using noop publisher: %v", err)
		return events.NoopPublisher{}
	}
	return publisher
}

func registerClose(lc fx.Lifecycle, publisher events.Publisher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			publisher.Close()
			return nil
		},
	})
}
