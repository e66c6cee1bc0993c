package gateway_fx

import (
	"log"
	"os"
	"time"

	"go.uber.org/fx"

	"modeh/pkg/gateway"
)

var Module = fx.Provide(
	provideGatewayClient)

// provideGatewayClient picks the sandbox simulator or the real provider
// by GATEWAY_MODE. Simulation is a distinct implementation; the real
// client carries no sandbox branches.
func provideGatewayClient() gateway.Client {
	if os.Getenv("GATEWAY_MODE") == "sandbox" {
		log.Println("gateway: running with the sandbox client")
		return gateway.NewSandboxClient()
	}

	client, err := gateway.NewDarajaClient(gateway.DarajaConfig{
		ConsumerKey:    os.Getenv("DARAJA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("DARAJA_CONSUMER_SECRET"),
		ShortCode:      os.Getenv("DARAJA_SHORT_CODE"),
		Passkey:        os.Getenv("DARAJA_PASSKEY"),
		CallbackURL:    os.Getenv("DARAJA_CALLBACK_URL"),
		BaseURL:        os.Getenv("DARAJA_BASE_URL"),
		Timeout:        15 * time.Second,
	})
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}
	return client
}
