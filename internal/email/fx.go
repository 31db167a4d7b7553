package email

import (
	"go.uber.org/fx"

	"github.com/funnelbase/funnelbase/internal/email/repository"
	"github.com/funnelbase/funnelbase/internal/email/service"
)

var Module = fx.Module("email.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
