// Package domain holds the subscription model and service contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
)

var ErrPlanRequired = errors.New("plan_required")

// Subscription is the single current entitlement for a user. user_id is
// unique; a repurchase replaces the row via upsert rather than stacking
// subscriptions.
type Subscription struct {
	ID                    snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID                string       `json:"user_id" gorm:"type:text;not null;uniqueIndex"`
	PlanID                string       `json:"plan_id" gorm:"type:text;not null"`
	Status                string       `json:"status" gorm:"type:text;not null"`
	CurrentPeriodStart    time.Time    `json:"current_period_start" gorm:"not null"`
	CurrentPeriodEnd      time.Time    `json:"current_period_end" gorm:"not null"`
	Gateway               string       `json:"gateway" gorm:"type:text;not null"`
	GatewaySubscriptionID string       `json:"gateway_subscription_id" gorm:"type:text"`
	CreatedAt             time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time    `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

type ActivateRequest struct {
	UserID           string
	PlanID           string
	Gateway          string
	GatewayPaymentID string
}

// Service grants and looks up entitlements. Activate takes the caller's db
// handle so it can run inside the payment confirmation transaction.
type Service interface {
	Activate(ctx context.Context, db *gorm.DB, req ActivateRequest) error
	FindByUserID(ctx context.Context, userID string) (*Subscription, error)
}

type Repository interface {
	// Upsert inserts or, on a user_id conflict, replaces the plan, status,
	// period and gateway columns of the existing row.
	Upsert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*Subscription, error)
}
