package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrGatewayNotConfigured  = errors.New("gateway_not_configured")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrTransactionNotFound   = errors.New("transaction_not_found")

	// ErrActivationMetadataMissing marks an approved payment whose metadata
	// names no user or plan. The condition does not heal by itself, so retry
	// loops must count these attempts instead of treating them as handled.
	ErrActivationMetadataMissing = errors.New("activation_metadata_missing")
)

// Service reconciles local transaction and subscription state with the
// gateway's view of a payment.
type Service interface {
	// IngestWebhook records, deduplicates and routes one inbound
	// notification. Dupes of an already processed event surface as
	// ErrEventAlreadyProcessed so the HTTP layer can answer 200.
	IngestWebhook(ctx context.Context, payload []byte, requestID string) error

	// ProcessPaymentConfirmation fetches the payment by id and applies it to
	// the local transaction row, activating the subscription on approval.
	ProcessPaymentConfirmation(ctx context.Context, paymentID string) error
}

type Repository interface {
	InsertTransaction(ctx context.Context, db *gorm.DB, tx *Transaction) error
	// UpdateTransactionConfirmation stamps status, raw response and
	// processed_at on the row matched by gateway_transaction_id, returning
	// the number of rows touched.
	UpdateTransactionConfirmation(ctx context.Context, db *gorm.DB, gateway, gatewayTransactionID, status string, raw []byte, processedAt time.Time) (int64, error)

	// InsertWebhookEvent inserts with ON CONFLICT DO NOTHING and reports
	// whether this delivery was the first.
	InsertWebhookEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) (bool, error)
	FindWebhookEvent(ctx context.Context, db *gorm.DB, gateway, gatewayEventID string) (*WebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time, errorMessage *string) error

	InsertReconciliationTask(ctx context.Context, db *gorm.DB, task *ReconciliationTask) error
	ListPendingReconciliationTasks(ctx context.Context, db *gorm.DB, limit int) ([]ReconciliationTask, error)
	UpdateReconciliationTask(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, attempts int, lastError *string, updatedAt time.Time) error
}
