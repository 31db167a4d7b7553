package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/subscription/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Upsert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO subscriptions
			(id, user_id, plan_id, status, current_period_start, current_period_end,
			 gateway, gateway_subscription_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = excluded.plan_id,
			status = excluded.status,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			gateway = excluded.gateway,
			gateway_subscription_id = excluded.gateway_subscription_id,
			updated_at = excluded.updated_at`,
		sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.Gateway, sub.GatewaySubscriptionID, sub.CreatedAt, sub.UpdatedAt,
	).Error
}

func (r *repository) FindByUserID(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Raw(`
		SELECT id, user_id, plan_id, status, current_period_start, current_period_end,
		       gateway, gateway_subscription_id, created_at, updated_at
		FROM subscriptions
		WHERE user_id = ?`,
		userID,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}
