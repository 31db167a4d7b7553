package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/funnelbase/funnelbase/internal/payment/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO payment_transactions
			(id, user_id, gateway, gateway_order_id, gateway_transaction_id,
			 amount, currency, status, payment_method, metadata, raw_response,
			 processed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Gateway, tx.GatewayOrderID, tx.GatewayTransactionID,
		tx.Amount, tx.Currency, tx.Status, tx.PaymentMethod, tx.Metadata, tx.RawResponse,
		tx.ProcessedAt, tx.CreatedAt, tx.UpdatedAt,
	).Error
}

func (r *repository) UpdateTransactionConfirmation(ctx context.Context, db *gorm.DB, gateway, gatewayTransactionID, status string, raw []byte, processedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(`
		UPDATE payment_transactions
		SET status = ?, raw_response = ?, processed_at = ?, updated_at = ?
		WHERE gateway = ? AND gateway_transaction_id = ?`,
		status, raw, processedAt, processedAt,
		gateway, gatewayTransactionID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) InsertWebhookEvent(ctx context.Context, db *gorm.DB, event *domain.WebhookEvent) (bool, error) {
	res := db.WithContext(ctx).Exec(`
		INSERT INTO webhook_events
			(id, gateway, gateway_event_id, event_type, processed, payload,
			 error_message, received_at, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway, gateway_event_id) DO NOTHING`,
		event.ID, event.Gateway, event.GatewayEventID, event.EventType, event.Processed,
		event.Payload, event.ErrorMessage, event.ReceivedAt, event.ProcessedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindWebhookEvent(ctx context.Context, db *gorm.DB, gateway, gatewayEventID string) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	err := db.WithContext(ctx).Raw(`
		SELECT id, gateway, gateway_event_id, event_type, processed, payload,
		       error_message, received_at, processed_at
		FROM webhook_events
		WHERE gateway = ? AND gateway_event_id = ?`,
		gateway, gatewayEventID,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time, errorMessage *string) error {
	return db.WithContext(ctx).Exec(`
		UPDATE webhook_events
		SET processed = ?, processed_at = ?, error_message = ?
		WHERE id = ?`,
		true, processedAt, errorMessage, id,
	).Error
}

func (r *repository) InsertReconciliationTask(ctx context.Context, db *gorm.DB, task *domain.ReconciliationTask) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO reconciliation_tasks
			(id, kind, gateway, payment_id, payload, status, attempts,
			 last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Kind, task.Gateway, task.PaymentID, task.Payload, task.Status,
		task.Attempts, task.LastError, task.CreatedAt, task.UpdatedAt,
	).Error
}

func (r *repository) ListPendingReconciliationTasks(ctx context.Context, db *gorm.DB, limit int) ([]domain.ReconciliationTask, error) {
	var tasks []domain.ReconciliationTask
	err := db.WithContext(ctx).Raw(`
		SELECT id, kind, gateway, payment_id, payload, status, attempts,
		       last_error, created_at, updated_at
		FROM reconciliation_tasks
		WHERE status = ?
		ORDER BY id
		LIMIT ?`,
		domain.TaskStatusPending, limit,
	).Scan(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *repository) UpdateReconciliationTask(ctx context.Context, db *gorm.DB, id snowflake.ID, status string, attempts int, lastError *string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE reconciliation_tasks
		SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		status, attempts, lastError, updatedAt, id,
	).Error
}
