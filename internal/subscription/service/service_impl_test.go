package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/clock"
	plandomain "github.com/funnelbase/funnelbase/internal/plan/domain"
	planrepo "github.com/funnelbase/funnelbase/internal/plan/repository"
	"github.com/funnelbase/funnelbase/internal/subscription/domain"
	subscriptionrepo "github.com/funnelbase/funnelbase/internal/subscription/repository"
	subscriptionservice "github.com/funnelbase/funnelbase/internal/subscription/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE subscription_plans (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			amount REAL NOT NULL,
			currency TEXT NOT NULL,
			billing_cycle TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE subscriptions (
			id BIGINT PRIMARY KEY,
			user_id TEXT NOT NULL,
			plan_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_period_start TIMESTAMP NOT NULL,
			current_period_end TIMESTAMP NOT NULL,
			gateway TEXT NOT NULL,
			gateway_subscription_id TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_subscriptions_user_id ON subscriptions(user_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func seedPlan(t *testing.T, db *gorm.DB, id, cycle string) {
	t.Helper()

	now := time.Now().UTC()
	err := db.Exec(`
		INSERT INTO subscription_plans (id, name, amount, currency, billing_cycle, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, id, 297.0, "BRL", cycle, true, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed plan: %v", err)
	}
}

func newService(t *testing.T, db *gorm.DB, fakeClock *clock.FakeClock) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(20)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return subscriptionservice.NewService(subscriptionservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     subscriptionrepo.Provide(),
		PlanRepo: planrepo.Provide(),
	})
}

func TestActivatePeriodEnds(t *testing.T) {
	start := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		cycle string
		end   time.Time
	}{
		{"monthly", start.AddDate(0, 1, 0)},
		{"yearly", start.AddDate(1, 0, 0)},
		{"lifetime", start.AddDate(100, 0, 0)},
		{"weekly", start.AddDate(0, 1, 0)}, // unrecognized cycles behave as monthly
	}

	for _, tc := range cases {
		t.Run(tc.cycle, func(t *testing.T) {
			db := setupTestDB(t)
			seedPlan(t, db, "plan-"+tc.cycle, tc.cycle)
			svc := newService(t, db, clock.NewFakeClock(start))

			err := svc.Activate(context.Background(), nil, domain.ActivateRequest{
				UserID:           "u1",
				PlanID:           "plan-" + tc.cycle,
				Gateway:          "mercadopago",
				GatewayPaymentID: "123",
			})
			if err != nil {
				t.Fatalf("activate: %v", err)
			}

			sub, err := svc.FindByUserID(context.Background(), "u1")
			if err != nil {
				t.Fatalf("find subscription: %v", err)
			}
			if sub == nil {
				t.Fatalf("expected subscription row")
			}
			if !sub.CurrentPeriodEnd.Equal(tc.end) {
				t.Fatalf("expected period end %v, got %v", tc.end, sub.CurrentPeriodEnd)
			}
			if sub.Status != domain.StatusActive {
				t.Fatalf("expected active status, got %s", sub.Status)
			}
		})
	}
}

func TestActivateTwiceReplacesPlan(t *testing.T) {
	db := setupTestDB(t)
	seedPlan(t, db, "starter-monthly", "monthly")
	seedPlan(t, db, "pro-yearly", "yearly")

	fakeClock := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, fakeClock)
	ctx := context.Background()

	if err := svc.Activate(ctx, nil, domain.ActivateRequest{UserID: "u1", PlanID: "starter-monthly", Gateway: "mercadopago"}); err != nil {
		t.Fatalf("first activate: %v", err)
	}

	fakeClock.Advance(24 * time.Hour)
	if err := svc.Activate(ctx, nil, domain.ActivateRequest{UserID: "u1", PlanID: "pro-yearly", Gateway: "mercadopago"}); err != nil {
		t.Fatalf("second activate: %v", err)
	}

	var count int64
	if err := db.Raw(`SELECT COUNT(1) FROM subscriptions`).Scan(&count).Error; err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one subscription row, got %d", count)
	}

	sub, err := svc.FindByUserID(ctx, "u1")
	if err != nil {
		t.Fatalf("find subscription: %v", err)
	}
	if sub.PlanID != "pro-yearly" {
		t.Fatalf("expected plan pro-yearly, got %s", sub.PlanID)
	}
}

func TestActivateUnknownPlan(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()))

	err := svc.Activate(context.Background(), nil, domain.ActivateRequest{UserID: "u1", PlanID: "nope", Gateway: "mercadopago"})
	if !errors.Is(err, plandomain.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestActivateMissingIdentifiers(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()))

	if err := svc.Activate(context.Background(), nil, domain.ActivateRequest{PlanID: "p"}); !errors.Is(err, domain.ErrPlanRequired) {
		t.Fatalf("expected ErrPlanRequired, got %v", err)
	}
	if err := svc.Activate(context.Background(), nil, domain.ActivateRequest{UserID: "u"}); !errors.Is(err, domain.ErrPlanRequired) {
		t.Fatalf("expected ErrPlanRequired, got %v", err)
	}
}
