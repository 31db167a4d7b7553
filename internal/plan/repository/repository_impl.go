package repository

import (
	"context"

	"github.com/funnelbase/funnelbase/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Plan, error) {
	var item domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, amount, currency, billing_cycle, active, created_at, updated_at
		 FROM subscription_plans
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]domain.Plan, error) {
	var items []domain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, amount, currency, billing_cycle, active, created_at, updated_at
		 FROM subscription_plans
		 WHERE active = TRUE
		 ORDER BY amount`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
