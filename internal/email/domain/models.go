// Package domain holds the drip campaign models and service contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Lead tiers map to the campaign a new sequence is built from.
const (
	TierHot  = "hot"
	TierWarm = "warm"
	TierCold = "cold"
)

// Queue entry statuses.
const (
	QueueStatusPending   = "pending"
	QueueStatusScheduled = "scheduled"
	QueueStatusSent      = "sent"
	QueueStatusFailed    = "failed"
	QueueStatusBounced   = "bounced"
	QueueStatusOpened    = "opened"
	QueueStatusClicked   = "clicked"
)

// Sequence statuses.
const (
	SequenceStatusActive       = "active"
	SequenceStatusCompleted    = "completed"
	SequenceStatusPaused       = "paused"
	SequenceStatusUnsubscribed = "unsubscribed"
)

var (
	ErrUnknownTier           = errors.New("unknown_tier")
	ErrSequenceAlreadyActive = errors.New("sequence_already_active")
	ErrNoTemplates           = errors.New("no_templates")
)

// EmailTemplate is one step of a campaign. (campaign, template_name) is
// unique; step_order drives scheduling and delay_hours offsets each step
// from sequence start.
type EmailTemplate struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Campaign     string       `json:"campaign" gorm:"type:text;not null"`
	TemplateName string       `json:"template_name" gorm:"type:text;not null"`
	Subject      string       `json:"subject" gorm:"type:text;not null"`
	HTMLBody     string       `json:"html_body" gorm:"type:text;not null"`
	DelayHours   int          `json:"delay_hours" gorm:"not null"`
	StepOrder    int          `json:"step_order" gorm:"not null"`
}

func (EmailTemplate) TableName() string { return "email_templates" }

// EmailSequence tracks one lead's walk through a campaign. At most one
// active sequence per lead email.
type EmailSequence struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	LeadEmail   string       `json:"lead_email" gorm:"type:text;not null"`
	Tier        string       `json:"tier" gorm:"type:text;not null"`
	CurrentStep int          `json:"current_step" gorm:"not null"`
	TotalSteps  int          `json:"total_steps" gorm:"not null"`
	Status      string       `json:"status" gorm:"type:text;not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (EmailSequence) TableName() string { return "email_sequences" }

// EmailQueue is one scheduled delivery. Subject and body are frozen at
// enqueue time so later template edits do not rewrite in-flight sequences.
type EmailQueue struct {
	ID                snowflake.ID `json:"id" gorm:"primaryKey"`
	SequenceID        snowflake.ID `json:"sequence_id" gorm:"not null;index"`
	LeadEmail         string       `json:"lead_email" gorm:"type:text;not null"`
	Campaign          string       `json:"campaign" gorm:"type:text;not null"`
	TemplateName      string       `json:"template_name" gorm:"type:text;not null"`
	Subject           string       `json:"subject" gorm:"type:text;not null"`
	HTMLBody          string       `json:"html_body" gorm:"type:text;not null"`
	Status            string       `json:"status" gorm:"type:text;not null"`
	ScheduledAt       time.Time    `json:"scheduled_at" gorm:"not null"`
	SentAt            *time.Time   `json:"sent_at"`
	ProviderMessageID string       `json:"provider_message_id" gorm:"type:text"`
	FailedReason      *string      `json:"failed_reason" gorm:"type:text"`
	CreatedAt         time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"not null"`
}

func (EmailQueue) TableName() string { return "email_queue" }

// SendReport summarizes one drain pass over the due queue.
type SendReport struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type StartSequenceRequest struct {
	LeadEmail string `json:"lead_email" binding:"required,email"`
	Tier      string `json:"tier" binding:"required"`
}

type Service interface {
	// StartSequence enrolls a lead into the campaign for its tier and
	// schedules every step up front. A lead with an active sequence is not
	// enrolled twice.
	StartSequence(ctx context.Context, req StartSequenceRequest) (*EmailSequence, error)

	// SendPending drains due queue entries oldest first, up to limit.
	SendPending(ctx context.Context, limit int) (SendReport, error)
}

type Repository interface {
	ListTemplates(ctx context.Context, db *gorm.DB, campaign string) ([]EmailTemplate, error)
	InsertSequence(ctx context.Context, db *gorm.DB, seq *EmailSequence) (bool, error)
	FindActiveSequence(ctx context.Context, db *gorm.DB, leadEmail string) (*EmailSequence, error)
	// AdvanceSequence bumps the cursor one step and flips the sequence to
	// completed when the cursor reaches total_steps.
	AdvanceSequence(ctx context.Context, db *gorm.DB, id snowflake.ID, updatedAt time.Time) error

	InsertQueueEntries(ctx context.Context, db *gorm.DB, entries []EmailQueue) error
	ListDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]EmailQueue, error)
	MarkSent(ctx context.Context, db *gorm.DB, id snowflake.ID, sentAt time.Time, providerMessageID string) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, failedAt time.Time) error
}
