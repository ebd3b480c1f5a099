package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// MembershipRepository определяет методы для работы с записями о членстве.
type MembershipRepository interface {
	// Create сохраняет новую запись о членстве.
	Create(ctx context.Context, membership *models.Membership) error

	// GetBySubscriptionID возвращает запись по внешнему ID подписки.
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Membership, error)

	// UpdateStatusBySubscriptionID переводит запись в указанный статус.
	// Для canceled дополнительно фиксируется время отмены.
	UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) error
}

type postgresMembershipRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewMembershipRepository создает репозиторий членств для PostgreSQL.
func NewMembershipRepository(db *sqlx.DB, log *logger.Logger) MembershipRepository {
	return &postgresMembershipRepo{db: db, log: log}
}

func (r *postgresMembershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	membership.CreatedAt = time.Now()

	query := `
        INSERT INTO memberships (
            id, user_id, lab_id, monthly_amount, stripe_subscription_id,
            status, created_at, canceled_at
        ) VALUES (
            :id, :user_id, :lab_id, :monthly_amount, :stripe_subscription_id,
            :status, :created_at, :canceled_at
        )`

	_, err := r.db.NamedExecContext(ctx, query, membership)
	if err != nil {
		r.log.Errorw("Failed to create membership in DB", "error", err, "userID", membership.UserID, "labID", membership.LabID)
		return fmt.Errorf("repository: failed to create membership: %w", err)
	}

	r.log.Debugw("Membership recorded", "membershipID", membership.ID, "subscriptionID", membership.StripeSubscriptionID)
	return nil
}

func (r *postgresMembershipRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Membership, error) {
	var membership models.Membership
	query := `
        SELECT id, user_id, lab_id, monthly_amount, stripe_subscription_id,
               status, created_at, canceled_at
        FROM memberships
        WHERE stripe_subscription_id = $1`

	err := r.db.GetContext(ctx, &membership, query, subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Errorw("Failed to get membership by subscription ID", "error", err, "subscriptionID", subscriptionID)
		return nil, fmt.Errorf("repository: failed to get membership: %w", err)
	}

	return &membership, nil
}

func (r *postgresMembershipRepo) UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) error {
	var canceledAt *time.Time
	if status == models.MembershipStatusCanceled {
		now := time.Now()
		canceledAt = &now
	}

	query := `
        UPDATE memberships
        SET status = $1, canceled_at = COALESCE($2, canceled_at)
        WHERE stripe_subscription_id = $3`

	result, err := r.db.ExecContext(ctx, query, status, canceledAt, subscriptionID)
	if err != nil {
		r.log.Errorw("Failed to update membership status", "error", err, "subscriptionID", subscriptionID)
		return fmt.Errorf("repository: failed to update membership status: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		r.log.Warnw("Membership status update affected 0 rows", "subscriptionID", subscriptionID)
		return domain.ErrNotFound
	}

	return nil
}
