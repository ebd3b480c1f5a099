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

// ProfileRepository определяет методы для работы с профилями участников.
type ProfileRepository interface {
	// GetByUserID возвращает профиль по ID пользователя.
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)

	// GetByCustomerID возвращает профиль по ID платежного аккаунта Stripe.
	GetByCustomerID(ctx context.Context, customerID string) (*models.Profile, error)

	// SetStripeCustomer сохраняет ID платежного аккаунта и переводит профиль
	// в состояние customer_created.
	SetStripeCustomer(ctx context.Context, userID, customerID string) error

	// SetBillingState переводит платежный профиль в указанное состояние.
	SetBillingState(ctx context.Context, userID, state string) error

	// SetPayoutAccount сохраняет ID аккаунта выплат; nil очищает привязку.
	SetPayoutAccount(ctx context.Context, userID string, accountID *string) error
}

type postgresProfileRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewProfileRepository создает репозиторий профилей для PostgreSQL.
func NewProfileRepository(db *sqlx.DB, log *logger.Logger) ProfileRepository {
	return &postgresProfileRepo{db: db, log: log}
}

func (r *postgresProfileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	query := `
        SELECT user_id, email, stripe_customer_id, stripe_account_id, billing_state, created_at, updated_at
        FROM profiles
        WHERE user_id = $1`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnw("Profile not found", "userID", userID)
			return nil, domain.ErrNotFound
		}
		r.log.Errorw("Failed to get profile from DB", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: failed to get profile: %w", err)
	}

	return &profile, nil
}

func (r *postgresProfileRepo) GetByCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	var profile models.Profile
	query := `
        SELECT user_id, email, stripe_customer_id, stripe_account_id, billing_state, created_at, updated_at
        FROM profiles
        WHERE stripe_customer_id = $1`

	err := r.db.GetContext(ctx, &profile, query, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnw("Profile not found by customer ID", "customerID", customerID)
			return nil, domain.ErrNotFound
		}
		r.log.Errorw("Failed to get profile by customer ID", "error", err, "customerID", customerID)
		return nil, fmt.Errorf("repository: failed to get profile by customer: %w", err)
	}

	return &profile, nil
}

func (r *postgresProfileRepo) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	query := `
        UPDATE profiles
        SET stripe_customer_id = $1, billing_state = $2, updated_at = $3
        WHERE user_id = $4`

	result, err := r.db.ExecContext(ctx, query, customerID, models.BillingStateCustomerCreated, time.Now(), userID)
	if err != nil {
		r.log.Errorw("Failed to set stripe customer on profile", "error", err, "userID", userID)
		return fmt.Errorf("repository: failed to set stripe customer: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Debugw("Stripe customer linked to profile", "userID", userID, "customerID", customerID)
	return nil
}

func (r *postgresProfileRepo) SetBillingState(ctx context.Context, userID, state string) error {
	query := `
        UPDATE profiles
        SET billing_state = $1, updated_at = $2
        WHERE user_id = $3`

	result, err := r.db.ExecContext(ctx, query, state, time.Now(), userID)
	if err != nil {
		r.log.Errorw("Failed to update billing state", "error", err, "userID", userID, "state", state)
		return fmt.Errorf("repository: failed to update billing state: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Debugw("Billing state updated", "userID", userID, "state", state)
	return nil
}

func (r *postgresProfileRepo) SetPayoutAccount(ctx context.Context, userID string, accountID *string) error {
	query := `
        UPDATE profiles
        SET stripe_account_id = $1, updated_at = $2
        WHERE user_id = $3`

	result, err := r.db.ExecContext(ctx, query, accountID, time.Now(), userID)
	if err != nil {
		r.log.Errorw("Failed to set payout account on profile", "error", err, "userID", userID)
		return fmt.Errorf("repository: failed to set payout account: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
