package repository

import (
	"context"
	"fmt"

	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// WebhookEventRepository хранит журнал обработанных событий провайдера.
type WebhookEventRepository interface {
	// MarkProcessed фиксирует событие как обработанное.
	// Возвращает false, если событие с таким ID уже было обработано.
	MarkProcessed(ctx context.Context, eventID, eventType string, payload []byte) (bool, error)

	// Unmark удаляет запись о событии, возвращая его в необработанные.
	// Вызывается при сбое обработки: повторная доставка того же события
	// не должна отбрасываться как дубликат.
	Unmark(ctx context.Context, eventID string) error
}

type postgresWebhookEventRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewWebhookEventRepository создает репозиторий событий для PostgreSQL.
func NewWebhookEventRepository(db *sqlx.DB, log *logger.Logger) WebhookEventRepository {
	return &postgresWebhookEventRepo{db: db, log: log}
}

func (r *postgresWebhookEventRepo) MarkProcessed(ctx context.Context, eventID, eventType string, payload []byte) (bool, error) {
	query := `
        INSERT INTO webhook_events (event_id, event_type, payload)
        VALUES ($1, $2, $3)
        ON CONFLICT (event_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, eventID, eventType, payload)
	if err != nil {
		r.log.Errorw("Failed to record webhook event", "error", err, "eventID", eventID)
		return false, fmt.Errorf("repository: failed to record webhook event: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("repository: failed to get rows affected: %w", err)
	}

	// 0 затронутых строк - дубликат доставки
	return affected > 0, nil
}

func (r *postgresWebhookEventRepo) Unmark(ctx context.Context, eventID string) error {
	query := `DELETE FROM webhook_events WHERE event_id = $1`

	if _, err := r.db.ExecContext(ctx, query, eventID); err != nil {
		r.log.Errorw("Failed to unmark webhook event", "error", err, "eventID", eventID)
		return fmt.Errorf("repository: failed to unmark webhook event: %w", err)
	}

	return nil
}
