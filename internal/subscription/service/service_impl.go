package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/clock"
	plandomain "github.com/funnelbase/funnelbase/internal/plan/domain"
	"github.com/funnelbase/funnelbase/internal/subscription/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	PlanRepo plandomain.Repository
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	planRepo plandomain.Repository
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("subscription.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		planRepo: p.PlanRepo,
	}
}

func (s *service) Activate(ctx context.Context, db *gorm.DB, req domain.ActivateRequest) error {
	if req.UserID == "" || req.PlanID == "" {
		return domain.ErrPlanRequired
	}
	if db == nil {
		db = s.db
	}

	plan, err := s.planRepo.FindByID(ctx, db, req.PlanID)
	if err != nil {
		return fmt.Errorf("find plan: %w", err)
	}
	if plan == nil {
		return plandomain.ErrPlanNotFound
	}

	now := s.clock.Now()
	sub := &domain.Subscription{
		ID:                    s.genID.Generate(),
		UserID:                req.UserID,
		PlanID:                plan.ID,
		Status:                domain.StatusActive,
		CurrentPeriodStart:    now,
		CurrentPeriodEnd:      plan.BillingCycle.PeriodEnd(now),
		Gateway:               req.Gateway,
		GatewaySubscriptionID: req.GatewayPaymentID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Upsert(ctx, db, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	s.log.Info("subscription activated",
		zap.String("user_id", req.UserID),
		zap.String("plan_id", plan.ID),
		zap.Time("period_end", sub.CurrentPeriodEnd),
	)
	return nil
}

func (s *service) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	return s.repo.FindByUserID(ctx, s.db, userID)
}
