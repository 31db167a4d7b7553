package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/clock"
	"github.com/funnelbase/funnelbase/internal/email/domain"
	"github.com/funnelbase/funnelbase/internal/observability/metrics"
	provider "github.com/funnelbase/funnelbase/internal/providers/email"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Provider provider.Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	provider provider.Provider
	metrics  *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("email.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		provider: p.Provider,
		metrics:  p.Metrics,
	}
}

func validTier(tier string) bool {
	switch tier {
	case domain.TierHot, domain.TierWarm, domain.TierCold:
		return true
	}
	return false
}

// StartSequence enrolls the lead and schedules every campaign step up front.
// The sequence row and its queue entries commit together; the partial unique
// index on active sequences makes double enrollment a no-op conflict.
func (s *service) StartSequence(ctx context.Context, req domain.StartSequenceRequest) (*domain.EmailSequence, error) {
	if !validTier(req.Tier) {
		return nil, domain.ErrUnknownTier
	}

	templates, err := s.repo.ListTemplates(ctx, s.db, req.Tier)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, domain.ErrNoTemplates
	}

	now := s.clock.Now()
	seq := &domain.EmailSequence{
		ID:          s.genID.Generate(),
		LeadEmail:   req.LeadEmail,
		Tier:        req.Tier,
		CurrentStep: 0,
		TotalSteps:  len(templates),
		Status:      domain.SequenceStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	entries := make([]domain.EmailQueue, 0, len(templates))
	for _, tpl := range templates {
		entries = append(entries, domain.EmailQueue{
			ID:           s.genID.Generate(),
			SequenceID:   seq.ID,
			LeadEmail:    req.LeadEmail,
			Campaign:     tpl.Campaign,
			TemplateName: tpl.TemplateName,
			Subject:      tpl.Subject,
			HTMLBody:     tpl.HTMLBody,
			Status:       domain.QueueStatusPending,
			ScheduledAt:  now.Add(time.Duration(tpl.DelayHours) * time.Hour),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		first, err := s.repo.InsertSequence(ctx, tx, seq)
		if err != nil {
			return fmt.Errorf("insert sequence: %w", err)
		}
		if !first {
			return domain.ErrSequenceAlreadyActive
		}
		if err := s.repo.InsertQueueEntries(ctx, tx, entries); err != nil {
			return fmt.Errorf("insert queue entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("drip sequence started",
		zap.String("lead_email", req.LeadEmail),
		zap.String("tier", req.Tier),
		zap.Int("steps", seq.TotalSteps),
	)
	return seq, nil
}

// SendPending drains due entries oldest first. Each entry resolves to sent or
// failed before the next is attempted; failed rows stay failed and are not
// re-picked.
func (s *service) SendPending(ctx context.Context, limit int) (domain.SendReport, error) {
	var report domain.SendReport

	due, err := s.repo.ListDue(ctx, s.db, s.clock.Now(), limit)
	if err != nil {
		return report, fmt.Errorf("list due: %w", err)
	}

	for i := range due {
		entry := &due[i]
		messageID, sendErr := s.provider.Send(ctx, []string{entry.LeadEmail}, entry.Subject, entry.HTMLBody)
		now := s.clock.Now()
		if sendErr != nil {
			report.Failed++
			s.metrics.RecordEmailFailed()
			s.log.Warn("drip send failed",
				zap.String("lead_email", entry.LeadEmail),
				zap.String("template", entry.TemplateName),
				zap.Error(sendErr),
			)
			if err := s.repo.MarkFailed(ctx, s.db, entry.ID, sendErr.Error(), now); err != nil {
				return report, fmt.Errorf("mark failed: %w", err)
			}
			continue
		}

		report.Sent++
		s.metrics.RecordEmailSent()
		if err := s.repo.MarkSent(ctx, s.db, entry.ID, now, messageID); err != nil {
			return report, fmt.Errorf("mark sent: %w", err)
		}
		if err := s.repo.AdvanceSequence(ctx, s.db, entry.SequenceID, now); err != nil {
			return report, fmt.Errorf("advance sequence: %w", err)
		}
	}

	if report.Sent > 0 || report.Failed > 0 {
		s.log.Info("drip queue drained",
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}
