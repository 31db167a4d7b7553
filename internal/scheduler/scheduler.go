package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/clock"
	"github.com/funnelbase/funnelbase/internal/config"
	emaildomain "github.com/funnelbase/funnelbase/internal/email/domain"
	"github.com/funnelbase/funnelbase/internal/observability/metrics"
	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
	"github.com/funnelbase/funnelbase/internal/ratelimit"
	"github.com/funnelbase/funnelbase/pkg/db"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

const lockKey = "funnelbase:scheduler:lock"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Drip        *config.DripConfigHolder
	EmailSvc    emaildomain.Service
	PaymentSvc  paymentdomain.Service
	PaymentRepo paymentdomain.Repository
	Locker      *ratelimit.Locker `optional:"true"`
	Metrics     *metrics.Metrics  `optional:"true"`
	Config      Config            `optional:"true"`
}

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	drip        *config.DripConfigHolder
	emailSvc    emaildomain.Service
	paymentSvc  paymentdomain.Service
	paymentRepo paymentdomain.Repository
	locker      *ratelimit.Locker
	metrics     *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Drip == nil || p.EmailSvc == nil || p.PaymentSvc == nil || p.PaymentRepo == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       p.Clock,
		drip:        p.Drip,
		emailSvc:    p.EmailSvc,
		paymentSvc:  p.PaymentSvc,
		paymentRepo: p.PaymentRepo,
		locker:      p.Locker,
		metrics:     p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	s.metrics.IncJobRun(name)
	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// Deadline is a soft stop; the next tick picks up where this one left off.
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(parent, lockKey, s.cfg.RunInterval)
		if err != nil {
			s.log.Warn("scheduler lock unavailable, running anyway", zap.Error(err))
		} else if !ok {
			return nil
		} else {
			defer func() {
				if err := s.locker.Release(parent, lockKey, token); err != nil {
					s.log.Warn("scheduler lock release failed", zap.Error(err))
				}
			}()
		}
	}

	var errs []error
	if err := s.runJob(parent, "email_queue", s.cfg.JobTimeout, s.EmailQueueJob); err != nil {
		errs = append(errs, err)
	}
	if err := s.runJob(parent, "reconcile", s.cfg.JobTimeout, s.ReconcileJob); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// EmailQueueJob drains the due drip queue using the hot-reloaded batch size.
func (s *Scheduler) EmailQueueJob(ctx context.Context) error {
	batch := s.drip.Get().BatchSize
	report, err := s.emailSvc.SendPending(ctx, batch)
	if err != nil {
		return err
	}
	if report.Sent > 0 || report.Failed > 0 {
		s.log.Info("email queue job finished",
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed),
		)
	}
	return nil
}

// reconciliationPayload is the union of the two shapes written into
// missing_transaction tasks: the order snapshot from checkout and the raw
// gateway payment from confirmation.
type reconciliationPayload struct {
	UserID            string  `json:"user_id"`
	PlanID            string  `json:"plan_id"`
	PreferenceID      string  `json:"preference_id"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	ExternalReference string  `json:"external_reference"`

	PaymentID         int64             `json:"id"`
	Status            string            `json:"status"`
	TransactionAmount float64           `json:"transaction_amount"`
	CurrencyID        string            `json:"currency_id"`
	Metadata          map[string]string `json:"metadata"`
}

// ReconcileJob sweeps the pending task outbox. Every handler re-derives
// state idempotently, so a task that runs twice converges on the same rows.
func (s *Scheduler) ReconcileJob(ctx context.Context) error {
	tasks, err := s.paymentRepo.ListPendingReconciliationTasks(ctx, s.db, s.cfg.ReconcileBatchSize)
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	maxRuns := s.drip.Get().MaxReconcileRuns

	for i := range tasks {
		task := &tasks[i]
		attempts := task.Attempts + 1

		var runErr error
		switch task.Kind {
		case paymentdomain.TaskKindMissingTransaction:
			runErr = s.reconcileMissingTransaction(ctx, task)
		case paymentdomain.TaskKindConfirmationMissed, paymentdomain.TaskKindActivationFailed:
			runErr = s.paymentSvc.ProcessPaymentConfirmation(ctx, task.PaymentID)
		default:
			runErr = fmt.Errorf("unknown task kind %q", task.Kind)
		}

		status := paymentdomain.TaskStatusDone
		var lastErr *string
		if runErr != nil {
			msg := runErr.Error()
			lastErr = &msg
			status = paymentdomain.TaskStatusPending
			if attempts >= maxRuns {
				status = paymentdomain.TaskStatusFailed
				s.log.Error("reconciliation task exhausted",
					zap.String("kind", task.Kind),
					zap.String("payment_id", task.PaymentID),
					zap.Int("attempts", attempts),
					zap.Error(runErr),
				)
			}
		}

		if err := s.paymentRepo.UpdateReconciliationTask(ctx, s.db, task.ID, status, attempts, lastErr, s.clock.Now()); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
	}
	return nil
}

// reconcileMissingTransaction recreates the transaction row the original
// write missed, then re-runs confirmation when the payload names a real
// gateway payment.
func (s *Scheduler) reconcileMissingTransaction(ctx context.Context, task *paymentdomain.ReconciliationTask) error {
	var p reconciliationPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	now := s.clock.Now()
	switch {
	case p.PreferenceID != "":
		tx := &paymentdomain.Transaction{
			ID:                   s.genID.Generate(),
			UserID:               p.UserID,
			Gateway:              task.Gateway,
			GatewayOrderID:       p.PreferenceID,
			GatewayTransactionID: p.PreferenceID,
			Amount:               p.Amount,
			Currency:             p.Currency,
			Status:               paymentdomain.StatusPending,
			Metadata: datatypes.JSONMap{
				"plan_id":            p.PlanID,
				"external_reference": p.ExternalReference,
				"preference_id":      p.PreferenceID,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		// A rerun after a partial failure finds the row already recreated.
		if err := s.paymentRepo.InsertTransaction(ctx, s.db, tx); err != nil && !db.IsDuplicateKeyErr(err) {
			return err
		}
		return nil

	case p.PaymentID != 0:
		paymentID := strconv.FormatInt(p.PaymentID, 10)
		tx := &paymentdomain.Transaction{
			ID:                   s.genID.Generate(),
			UserID:               p.Metadata["user_id"],
			Gateway:              task.Gateway,
			GatewayOrderID:       paymentID,
			GatewayTransactionID: paymentID,
			Amount:               p.TransactionAmount,
			Currency:             p.CurrencyID,
			Status:               paymentdomain.StatusPending,
			Metadata: datatypes.JSONMap{
				"plan_id": p.Metadata["plan_id"],
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.paymentRepo.InsertTransaction(ctx, s.db, tx); err != nil && !db.IsDuplicateKeyErr(err) {
			return err
		}
		return s.paymentSvc.ProcessPaymentConfirmation(ctx, paymentID)

	default:
		return errors.New("payload names neither a preference nor a payment")
	}
}
