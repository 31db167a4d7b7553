// Package domain contains the subscription plan catalog model.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// BillingCycle determines how far a newly activated subscription period extends.
type BillingCycle string

const (
	BillingCycleMonthly  BillingCycle = "monthly"
	BillingCycleYearly   BillingCycle = "yearly"
	BillingCycleLifetime BillingCycle = "lifetime"
)

// Plan is a purchasable entry in the pricing catalog.
type Plan struct {
	ID           string       `json:"id" gorm:"primaryKey;type:text"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	Amount       float64      `json:"amount" gorm:"not null"`
	Currency     string       `json:"currency" gorm:"type:text;not null"`
	BillingCycle BillingCycle `json:"billing_cycle" gorm:"type:text;not null"`
	Active       bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null"`
}

func (Plan) TableName() string { return "subscription_plans" }

// PeriodEnd computes the entitlement horizon from a period start. Lifetime
// plans use a hundred-year sentinel; unrecognized cycles fall back to monthly.
func (c BillingCycle) PeriodEnd(start time.Time) time.Time {
	switch c {
	case BillingCycleYearly:
		return start.AddDate(1, 0, 0)
	case BillingCycleLifetime:
		return start.AddDate(100, 0, 0)
	case BillingCycleMonthly:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 1, 0)
	}
}

var ErrPlanNotFound = errors.New("plan_not_found")

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Plan, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]Plan, error)
}
