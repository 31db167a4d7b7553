package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/clock"
	"github.com/funnelbase/funnelbase/internal/observability/metrics"
	"github.com/funnelbase/funnelbase/internal/payment/domain"
	subscriptiondomain "github.com/funnelbase/funnelbase/internal/subscription/domain"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Gateway       domain.Gateway
	Repo          domain.Repository
	Subscriptions subscriptiondomain.Service
	Metrics       *metrics.Metrics `optional:"true"`
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	gateway domain.Gateway
	repo    domain.Repository
	subs    subscriptiondomain.Service
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("payment.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		gateway: p.Gateway,
		repo:    p.Repo,
		subs:    p.Subscriptions,
		metrics: p.Metrics,
	}
}

// IngestWebhook records the delivery, claims it through the unique
// (gateway, gateway_event_id) insert, and routes it by notification type.
// The insert's conflict result is the only already-seen signal; there is no
// separate lookup-then-insert window.
func (s *service) IngestWebhook(ctx context.Context, payload []byte, requestID string) error {
	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}

	var notification domain.Notification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return domain.ErrInvalidPayload
	}

	eventID := requestID
	if notification.ID != 0 {
		eventID = strconv.FormatInt(notification.ID, 10)
	}
	if eventID == "" || notification.Type == "" {
		return domain.ErrInvalidEvent
	}

	now := s.clock.Now()
	event := &domain.WebhookEvent{
		ID:             s.genID.Generate(),
		Gateway:        domain.GatewayMercadoPago,
		GatewayEventID: eventID,
		EventType:      notification.Type,
		Payload:        payload,
		ReceivedAt:     now,
	}

	first, err := s.repo.InsertWebhookEvent(ctx, s.db, event)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	if !first {
		existing, err := s.repo.FindWebhookEvent(ctx, s.db, event.Gateway, eventID)
		if err != nil {
			return fmt.Errorf("load webhook event: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("webhook event %s vanished after conflict", eventID)
		}
		if existing.Processed {
			return domain.ErrEventAlreadyProcessed
		}
		// A previous delivery claimed the row but never finished; this
		// delivery takes over.
		event = existing
	}

	s.metrics.RecordWebhookEvent(event.Gateway, event.EventType)

	var procErr error
	var deliveryErr error
	switch notification.Type {
	case domain.EventTypePayment:
		procErr = s.ProcessPaymentConfirmation(ctx, notification.Data.ID)
		if procErr != nil {
			deliveryErr = s.queueConfirmationRetry(ctx, notification.Data.ID, procErr)
		}
	case domain.EventTypeMerchantOrder:
		s.log.Info("merchant_order notification acknowledged without action",
			zap.String("event_id", eventID),
			zap.String("resource_id", notification.Data.ID),
		)
	case domain.EventTypeSubscriptionCharge:
		s.log.Info("subscription_authorized_payment notification acknowledged without action",
			zap.String("event_id", eventID),
			zap.String("resource_id", notification.Data.ID),
		)
	default:
		s.metrics.RecordUnhandledWebhook(notification.Type)
		s.log.Warn("unhandled webhook notification type",
			zap.String("event_id", eventID),
			zap.String("event_type", notification.Type),
		)
	}

	// The confirmation error is recorded on the event row even when the
	// delivery is acknowledged; the reconciliation task owns the retry.
	var errMsg *string
	if procErr != nil {
		msg := procErr.Error()
		errMsg = &msg
	}
	if err := s.repo.MarkWebhookProcessed(ctx, s.db, event.ID, s.clock.Now(), errMsg); err != nil {
		return fmt.Errorf("mark webhook processed: %w", err)
	}
	return deliveryErr
}

// queueConfirmationRetry converts a confirmation failure into a pending
// reconciliation task and reports the delivery as accepted. Only a failure to
// persist the task itself propagates, so the gateway re-delivers.
func (s *service) queueConfirmationRetry(ctx context.Context, paymentID string, cause error) error {
	kind := domain.TaskKindConfirmationMissed
	if errors.Is(cause, domain.ErrActivationMetadataMissing) {
		kind = domain.TaskKindActivationFailed
	}

	s.log.Error("payment confirmation failed, queueing reconciliation",
		zap.String("payment_id", paymentID),
		zap.String("kind", kind),
		zap.Error(cause),
	)

	msg := cause.Error()
	now := s.clock.Now()
	task := &domain.ReconciliationTask{
		ID:        s.genID.Generate(),
		Kind:      kind,
		Gateway:   domain.GatewayMercadoPago,
		PaymentID: paymentID,
		Status:    domain.TaskStatusPending,
		LastError: &msg,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if insertErr := s.repo.InsertReconciliationTask(ctx, s.db, task); insertErr != nil {
		return fmt.Errorf("queue reconciliation for payment %s: %v (confirmation: %w)", paymentID, insertErr, cause)
	}
	return nil
}

// ProcessPaymentConfirmation fetches the authoritative payment from the
// gateway and applies it locally. The transaction-row update and the
// subscription activation commit or roll back together.
func (s *service) ProcessPaymentConfirmation(ctx context.Context, paymentID string) error {
	if !s.gateway.Configured() {
		return domain.ErrGatewayNotConfigured
	}
	if paymentID == "" {
		return domain.ErrInvalidEvent
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("get payment %s: %w", paymentID, err)
	}

	// Prefer the provider's exact response body for the audit record; a
	// re-marshal of the typed struct is only a fallback for callers that
	// never saw the wire bytes.
	raw := payment.Raw
	if len(raw) == 0 {
		raw, err = json.Marshal(payment)
		if err != nil {
			return fmt.Errorf("encode payment %s: %w", paymentID, err)
		}
	}

	now := s.clock.Now()
	var metadataMissing bool
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateTransactionConfirmation(ctx, tx,
			domain.GatewayMercadoPago, paymentID, payment.Status, raw, now)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if rows == 0 {
			s.log.Warn("no transaction row for confirmed payment, queueing reconciliation",
				zap.String("payment_id", paymentID),
				zap.String("status", payment.Status),
			)
			task := &domain.ReconciliationTask{
				ID:        s.genID.Generate(),
				Kind:      domain.TaskKindMissingTransaction,
				Gateway:   domain.GatewayMercadoPago,
				PaymentID: paymentID,
				Payload:   raw,
				Status:    domain.TaskStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.InsertReconciliationTask(ctx, tx, task); err != nil {
				return fmt.Errorf("queue missing transaction task: %w", err)
			}
		}

		if payment.Status != domain.StatusApproved {
			s.log.Info("payment not approved, no activation",
				zap.String("payment_id", paymentID),
				zap.String("status", payment.Status),
				zap.String("status_detail", payment.StatusDetail),
			)
			return nil
		}

		userID := payment.Metadata["user_id"]
		planID := payment.Metadata["plan_id"]
		if userID == "" || planID == "" {
			// The status stamp still commits; activation is reported to the
			// caller so retry attempts are counted where the call came from
			// instead of respawning fresh tasks.
			s.log.Warn("approved payment missing activation metadata",
				zap.String("payment_id", paymentID),
			)
			metadataMissing = true
			return nil
		}

		if err := s.subs.Activate(ctx, tx, subscriptiondomain.ActivateRequest{
			UserID:           userID,
			PlanID:           planID,
			Gateway:          domain.GatewayMercadoPago,
			GatewayPaymentID: paymentID,
		}); err != nil {
			return fmt.Errorf("activate subscription: %w", err)
		}

		s.log.Info("payment approved and subscription activated",
			zap.String("payment_id", paymentID),
			zap.String("user_id", userID),
			zap.String("plan_id", planID),
		)
		return nil
	})
	if txErr != nil {
		return txErr
	}
	if metadataMissing {
		return fmt.Errorf("payment %s: %w", paymentID, domain.ErrActivationMetadataMissing)
	}
	return nil
}
