package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/checkout/domain"
	"github.com/funnelbase/funnelbase/internal/clock"
	"github.com/funnelbase/funnelbase/internal/config"
	"github.com/funnelbase/funnelbase/internal/observability/metrics"
	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
	plandomain "github.com/funnelbase/funnelbase/internal/plan/domain"
)

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Gateway paymentdomain.Gateway
	Repo    paymentdomain.Repository
	Plans   plandomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	gateway paymentdomain.Gateway
	repo    paymentdomain.Repository
	plans   plandomain.Repository
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("checkout.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		gateway: p.Gateway,
		repo:    p.Repo,
		plans:   p.Plans,
		metrics: p.Metrics,
	}
}

// CreateOrder builds a gateway preference for the plan and records a pending
// transaction. The preference id doubles as order id until the webhook
// pipeline learns the real payment id.
func (s *service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	if !s.gateway.Configured() {
		return nil, paymentdomain.ErrGatewayNotConfigured
	}

	plan, err := s.plans.FindByID(ctx, s.db, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("find plan: %w", err)
	}
	if plan == nil || !plan.Active {
		return nil, plandomain.ErrPlanNotFound
	}

	amount := plan.Amount
	if req.Amount > 0 {
		amount = req.Amount
	}
	currency := plan.Currency
	if req.Currency != "" {
		currency = req.Currency
	}
	title := req.Description
	if title == "" {
		title = plan.Name
	}

	externalReference := uuid.NewString()
	prefReq := paymentdomain.PreferenceRequest{
		Items: []paymentdomain.PreferenceItem{{
			ID:         plan.ID,
			Title:      title,
			Quantity:   1,
			UnitPrice:  amount,
			CurrencyID: currency,
		}},
		Payer: paymentdomain.Payer{},
		BackURLs: paymentdomain.BackURLs{
			Success: s.cfg.BaseURL + "/checkout/success",
			Failure: s.cfg.BaseURL + "/checkout/failure",
			Pending: s.cfg.BaseURL + "/checkout/pending",
		},
		NotificationURL:   s.cfg.BaseURL + "/webhooks/mercadopago",
		ExternalReference: externalReference,
		PaymentMethods: paymentdomain.PaymentMethods{
			Installments:           12,
			ExcludedPaymentTypes:   []string{},
			ExcludedPaymentMethods: []string{},
		},
		Metadata: map[string]string{
			"user_id": req.UserID,
			"plan_id": req.PlanID,
		},
	}

	pref, err := s.gateway.CreatePreference(ctx, prefReq)
	if err != nil {
		s.metrics.RecordCheckoutOrder("failed")
		return nil, fmt.Errorf("create order: %w", err)
	}

	now := s.clock.Now()
	tx := &paymentdomain.Transaction{
		ID:                   s.genID.Generate(),
		UserID:               req.UserID,
		Gateway:              paymentdomain.GatewayMercadoPago,
		GatewayOrderID:       pref.ID,
		GatewayTransactionID: pref.ID,
		Amount:               amount,
		Currency:             currency,
		Status:               paymentdomain.StatusPending,
		Metadata: datatypes.JSONMap{
			"plan_id":            req.PlanID,
			"external_reference": externalReference,
			"preference_id":      pref.ID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertTransaction(ctx, s.db, tx); err != nil {
		// The preference already exists at the gateway, so the order still
		// goes out; the sweep job recreates the row from the task payload.
		s.log.Error("pending transaction insert failed, queueing reconciliation",
			zap.String("preference_id", pref.ID),
			zap.Error(err),
		)
		s.queueMissingTransaction(ctx, req, pref.ID, amount, currency, externalReference, now)
	}

	s.metrics.RecordCheckoutOrder("pending")
	s.log.Info("checkout order created",
		zap.String("user_id", req.UserID),
		zap.String("plan_id", req.PlanID),
		zap.String("preference_id", pref.ID),
	)

	return &domain.CreateOrderResponse{
		ID:           pref.ID,
		Status:       paymentdomain.StatusPending,
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
	}, nil
}

// orderTaskPayload carries everything needed to recreate the pending
// transaction row from the outbox.
type orderTaskPayload struct {
	UserID            string  `json:"user_id"`
	PlanID            string  `json:"plan_id"`
	PreferenceID      string  `json:"preference_id"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	ExternalReference string  `json:"external_reference"`
}

func (s *service) queueMissingTransaction(ctx context.Context, req domain.CreateOrderRequest, preferenceID string, amount float64, currency, externalReference string, now time.Time) {
	payload, err := json.Marshal(orderTaskPayload{
		UserID:            req.UserID,
		PlanID:            req.PlanID,
		PreferenceID:      preferenceID,
		Amount:            amount,
		Currency:          currency,
		ExternalReference: externalReference,
	})
	if err != nil {
		s.log.Error("encode reconciliation payload failed", zap.Error(err))
		return
	}
	task := &paymentdomain.ReconciliationTask{
		ID:        s.genID.Generate(),
		Kind:      paymentdomain.TaskKindMissingTransaction,
		Gateway:   paymentdomain.GatewayMercadoPago,
		PaymentID: preferenceID,
		Payload:   payload,
		Status:    paymentdomain.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertReconciliationTask(ctx, s.db, task); err != nil {
		s.log.Error("reconciliation task insert failed", zap.Error(err))
	}
}
