package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/checkout"
	checkoutdomain "github.com/funnelbase/funnelbase/internal/checkout/domain"
	"github.com/funnelbase/funnelbase/internal/config"
	"github.com/funnelbase/funnelbase/internal/email"
	emaildomain "github.com/funnelbase/funnelbase/internal/email/domain"
	"github.com/funnelbase/funnelbase/internal/payment"
	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
	"github.com/funnelbase/funnelbase/internal/plan"
	plandomain "github.com/funnelbase/funnelbase/internal/plan/domain"
	providersmail "github.com/funnelbase/funnelbase/internal/providers/email"
	"github.com/funnelbase/funnelbase/internal/ratelimit"
	"github.com/funnelbase/funnelbase/internal/scheduler"
	"github.com/funnelbase/funnelbase/internal/subscription"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	plan.Module,
	payment.Module,
	subscription.Module,
	checkout.Module,
	providersmail.Module,
	email.Module,
	ratelimit.Module,
	scheduler.Module,
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	checkoutSvc     checkoutdomain.Service
	paymentSvc      paymentdomain.Service
	emailSvc        emaildomain.Service
	planRepo        plandomain.Repository
	checkoutLimiter *ratelimit.CheckoutLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	CheckoutSvc     checkoutdomain.Service
	PaymentSvc      paymentdomain.Service
	EmailSvc        emaildomain.Service
	PlanRepo        plandomain.Repository
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("server"),
		checkoutSvc:     p.CheckoutSvc,
		paymentSvc:      p.PaymentSvc,
		emailSvc:        p.EmailSvc,
		planRepo:        p.PlanRepo,
		checkoutLimiter: p.CheckoutLimiter,
	}
}

func RegisterRoutes(s *Server) {
	api := s.engine.Group("/api")
	api.GET("/plans", s.HandleListPlans)
	api.POST("/checkout/orders", s.HandleCreateOrder)
	api.POST("/leads/sequences", s.HandleStartSequence)

	s.engine.POST("/webhooks/mercadopago", s.HandlePaymentWebhook)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
