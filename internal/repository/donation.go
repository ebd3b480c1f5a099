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

// DonationRepository определяет методы для работы с записями о пожертвованиях.
type DonationRepository interface {
	// Create сохраняет новую запись о пожертвовании.
	Create(ctx context.Context, donation *models.Donation) error

	// GetByPaymentIntentID возвращает запись по ID платежа провайдера.
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Donation, error)

	// UpdateStatusByPaymentIntentID переводит запись в указанный статус.
	UpdateStatusByPaymentIntentID(ctx context.Context, paymentIntentID, status string) error
}

type postgresDonationRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewDonationRepository создает репозиторий пожертвований для PostgreSQL.
func NewDonationRepository(db *sqlx.DB, log *logger.Logger) DonationRepository {
	return &postgresDonationRepo{db: db, log: log}
}

func (r *postgresDonationRepo) Create(ctx context.Context, donation *models.Donation) error {
	donation.CreatedAt = time.Now()

	query := `
        INSERT INTO donations (
            id, user_id, lab_id, goal_id, goal_name, amount, caption,
            payment_intent_id, status, created_at
        ) VALUES (
            :id, :user_id, :lab_id, :goal_id, :goal_name, :amount, :caption,
            :payment_intent_id, :status, :created_at
        )`

	_, err := r.db.NamedExecContext(ctx, query, donation)
	if err != nil {
		r.log.Errorw("Failed to create donation in DB", "error", err, "userID", donation.UserID, "labID", donation.LabID)
		return fmt.Errorf("repository: failed to create donation: %w", err)
	}

	r.log.Debugw("Donation recorded", "donationID", donation.ID, "paymentIntentID", donation.PaymentIntentID)
	return nil
}

func (r *postgresDonationRepo) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Donation, error) {
	var donation models.Donation
	query := `
        SELECT id, user_id, lab_id, goal_id, goal_name, amount, caption,
               payment_intent_id, status, created_at
        FROM donations
        WHERE payment_intent_id = $1`

	err := r.db.GetContext(ctx, &donation, query, paymentIntentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.log.Errorw("Failed to get donation by payment intent", "error", err, "paymentIntentID", paymentIntentID)
		return nil, fmt.Errorf("repository: failed to get donation: %w", err)
	}

	return &donation, nil
}

func (r *postgresDonationRepo) UpdateStatusByPaymentIntentID(ctx context.Context, paymentIntentID, status string) error {
	query := `
        UPDATE donations
        SET status = $1
        WHERE payment_intent_id = $2`

	result, err := r.db.ExecContext(ctx, query, status, paymentIntentID)
	if err != nil {
		r.log.Errorw("Failed to update donation status", "error", err, "paymentIntentID", paymentIntentID)
		return fmt.Errorf("repository: failed to update donation status: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		r.log.Warnw("Donation status update affected 0 rows", "paymentIntentID", paymentIntentID)
		return domain.ErrNotFound
	}

	return nil
}
