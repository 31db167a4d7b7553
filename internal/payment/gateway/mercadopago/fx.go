package mercadopago

import (
	"go.uber.org/fx"

	"github.com/funnelbase/funnelbase/internal/config"
	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
)

var Module = fx.Module("payment.gateway.mercadopago",
	fx.Provide(func(cfg config.Config) paymentdomain.Gateway {
		return NewClient(cfg.MercadoPago)
	}),
)
