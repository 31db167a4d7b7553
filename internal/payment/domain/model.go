// Package domain contains persistence models and canonical wire shapes for
// the payment pipeline.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const GatewayMercadoPago = "mercadopago"

// Transaction statuses mirror the gateway's payment status strings.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Webhook notification types routed by the receiver.
const (
	EventTypePayment            = "payment"
	EventTypeMerchantOrder      = "merchant_order"
	EventTypeSubscriptionCharge = "subscription_authorized_payment"
)

// Transaction is one attempt to collect payment for a plan purchase.
type Transaction struct {
	ID                   snowflake.ID      `json:"id" gorm:"primaryKey"`
	UserID               string            `json:"user_id" gorm:"type:text;not null;index"`
	Gateway              string            `json:"gateway" gorm:"type:text;not null"`
	GatewayOrderID       string            `json:"gateway_order_id" gorm:"type:text;not null"`
	GatewayTransactionID string            `json:"gateway_transaction_id" gorm:"type:text;not null"`
	Amount               float64           `json:"amount" gorm:"not null"`
	Currency             string            `json:"currency" gorm:"type:text;not null"`
	Status               string            `json:"status" gorm:"type:text;not null"`
	PaymentMethod        string            `json:"payment_method" gorm:"type:text"`
	Metadata             datatypes.JSONMap `json:"metadata" gorm:"type:jsonb"`
	RawResponse          datatypes.JSON    `json:"raw_response" gorm:"type:jsonb"`
	ProcessedAt          *time.Time        `json:"processed_at"`
	CreatedAt            time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time         `json:"updated_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "payment_transactions" }

// WebhookEvent is the append-only audit and dedup record for inbound
// gateway notifications. (gateway, gateway_event_id) is unique; the insert's
// conflict result is the authoritative already-seen signal.
type WebhookEvent struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	Gateway        string         `json:"gateway" gorm:"type:text;not null"`
	GatewayEventID string         `json:"gateway_event_id" gorm:"type:text;not null"`
	EventType      string         `json:"event_type" gorm:"type:text;not null"`
	Processed      bool           `json:"processed" gorm:"not null;default:false"`
	Payload        datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ErrorMessage   *string        `json:"error_message" gorm:"type:text"`
	ReceivedAt     time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt    *time.Time     `json:"processed_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// Reconciliation task kinds.
const (
	TaskKindMissingTransaction = "missing_transaction"
	TaskKindConfirmationMissed = "confirmation_missed"
	TaskKindActivationFailed   = "activation_failed"
)

const (
	TaskStatusPending = "pending"
	TaskStatusDone    = "done"
	TaskStatusFailed  = "failed"
)

// ReconciliationTask is the durable outbox entry written whenever a
// best-effort write misses, so a sweep job can retry instead of the failure
// surviving only as a log line.
type ReconciliationTask struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	Kind      string         `json:"kind" gorm:"type:text;not null"`
	Gateway   string         `json:"gateway" gorm:"type:text;not null"`
	PaymentID string         `json:"payment_id" gorm:"type:text;not null"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	Status    string         `json:"status" gorm:"type:text;not null"`
	Attempts  int            `json:"attempts" gorm:"not null;default:0"`
	LastError *string        `json:"last_error" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null"`
}

func (ReconciliationTask) TableName() string { return "reconciliation_tasks" }
