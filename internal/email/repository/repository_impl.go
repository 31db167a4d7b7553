package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/email/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) ListTemplates(ctx context.Context, db *gorm.DB, campaign string) ([]domain.EmailTemplate, error) {
	var items []domain.EmailTemplate
	err := db.WithContext(ctx).Raw(`
		SELECT id, campaign, template_name, subject, html_body, delay_hours, step_order
		FROM email_templates
		WHERE campaign = ?
		ORDER BY step_order`,
		campaign,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// InsertSequence relies on the partial unique index on lead_email for active
// rows; a conflict means the lead already has a running sequence.
func (r *repository) InsertSequence(ctx context.Context, db *gorm.DB, seq *domain.EmailSequence) (bool, error) {
	res := db.WithContext(ctx).Exec(`
		INSERT INTO email_sequences
			(id, lead_email, tier, current_step, total_steps, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		seq.ID, seq.LeadEmail, seq.Tier, seq.CurrentStep, seq.TotalSteps, seq.Status,
		seq.CreatedAt, seq.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindActiveSequence(ctx context.Context, db *gorm.DB, leadEmail string) (*domain.EmailSequence, error) {
	var seq domain.EmailSequence
	err := db.WithContext(ctx).Raw(`
		SELECT id, lead_email, tier, current_step, total_steps, status, created_at, updated_at
		FROM email_sequences
		WHERE lead_email = ? AND status = ?`,
		leadEmail, domain.SequenceStatusActive,
	).Scan(&seq).Error
	if err != nil {
		return nil, err
	}
	if seq.ID == 0 {
		return nil, nil
	}
	return &seq, nil
}

func (r *repository) AdvanceSequence(ctx context.Context, db *gorm.DB, id snowflake.ID, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE email_sequences
		SET current_step = current_step + 1,
		    status = CASE WHEN current_step + 1 >= total_steps THEN ? ELSE status END,
		    updated_at = ?
		WHERE id = ?`,
		domain.SequenceStatusCompleted, updatedAt, id,
	).Error
}

func (r *repository) InsertQueueEntries(ctx context.Context, db *gorm.DB, entries []domain.EmailQueue) error {
	for i := range entries {
		e := &entries[i]
		err := db.WithContext(ctx).Exec(`
			INSERT INTO email_queue
				(id, sequence_id, lead_email, campaign, template_name, subject, html_body,
				 status, scheduled_at, sent_at, provider_message_id, failed_reason,
				 created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.SequenceID, e.LeadEmail, e.Campaign, e.TemplateName, e.Subject, e.HTMLBody,
			e.Status, e.ScheduledAt, e.SentAt, e.ProviderMessageID, e.FailedReason,
			e.CreatedAt, e.UpdatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.EmailQueue, error) {
	var items []domain.EmailQueue
	err := db.WithContext(ctx).Raw(`
		SELECT id, sequence_id, lead_email, campaign, template_name, subject, html_body,
		       status, scheduled_at, sent_at, provider_message_id, failed_reason,
		       created_at, updated_at
		FROM email_queue
		WHERE status IN (?, ?) AND scheduled_at <= ?
		ORDER BY scheduled_at
		LIMIT ?`,
		domain.QueueStatusPending, domain.QueueStatusScheduled, now, limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time, providerMessageID string) error {
	return db.WithContext(ctx).Exec(`
		UPDATE email_queue
		SET status = ?, sent_at = ?, provider_message_id = ?, updated_at = ?
		WHERE id = ?`,
		domain.QueueStatusSent, sentAt, providerMessageID, sentAt, id,
	).Error
}

func (r *repository) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, failedAt time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE email_queue
		SET status = ?, failed_reason = ?, updated_at = ?
		WHERE id = ?`,
		domain.QueueStatusFailed, reason, failedAt, id,
	).Error
}
