package stripeclient

import (
	"github.com/kindbridge/kindbridge/internal/config"
	paymentdomain "github.com/kindbridge/kindbridge/internal/payment/domain"
	"go.uber.org/fx"
)

func NewFromConfig(cfg config.Config) paymentdomain.Client {
	return New(cfg.StripeSecretKey)
}

var Module = fx.Module("payment.stripeclient",
	fx.Provide(NewFromConfig),
)
