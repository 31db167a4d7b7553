package payment

import (
	"go.uber.org/fx"

	"github.com/funnelbase/funnelbase/internal/payment/gateway/mercadopago"
	"github.com/funnelbase/funnelbase/internal/payment/repository"
	paymentservice "github.com/funnelbase/funnelbase/internal/payment/service"
)

var Module = fx.Module("payment.service",
	mercadopago.Module,
	fx.Provide(repository.Provide),
	fx.Provide(paymentservice.NewService),
)
