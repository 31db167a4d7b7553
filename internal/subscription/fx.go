package subscription

import (
	"go.uber.org/fx"

	"github.com/funnelbase/funnelbase/internal/subscription/repository"
	"github.com/funnelbase/funnelbase/internal/subscription/service"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
