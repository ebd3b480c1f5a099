package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/jmoiron/sqlx"
)

// LabRepository определяет методы для работы с лабораториями.
type LabRepository interface {
	// GetByID возвращает лабораторию по ее ID.
	GetByID(ctx context.Context, labID string) (*models.Lab, error)

	// SetPayoutAccount сохраняет ID аккаунта выплат лаборатории.
	SetPayoutAccount(ctx context.Context, labID, accountID string) error
}

// FundingGoalRepository определяет методы для работы с целями сбора средств.
type FundingGoalRepository interface {
	// GetByID возвращает цель по паре (lab_id, goal_id).
	GetByID(ctx context.Context, labID, goalID string) (*models.FundingGoal, error)

	// IncrementContributed атомарно изменяет собранную сумму цели.
	// Отрицательная дельта откатывает вклад (реконсиляция после отказа платежа).
	IncrementContributed(ctx context.Context, labID, goalID string, delta float64) error
}

type postgresLabRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewLabRepository создает репозиторий лабораторий для PostgreSQL.
func NewLabRepository(db *sqlx.DB, log *logger.Logger) LabRepository {
	return &postgresLabRepo{db: db, log: log}
}

func (r *postgresLabRepo) GetByID(ctx context.Context, labID string) (*models.Lab, error) {
	var lab models.Lab
	query := `
        SELECT lab_id, name, stripe_account_id, monthly_amount, created_at
        FROM labs
        WHERE lab_id = $1`

	err := r.db.GetContext(ctx, &lab, query, labID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnw("Lab not found", "labID", labID)
			return nil, domain.ErrNotFound
		}
		r.log.Errorw("Failed to get lab from DB", "error", err, "labID", labID)
		return nil, fmt.Errorf("repository: failed to get lab: %w", err)
	}

	return &lab, nil
}

func (r *postgresLabRepo) SetPayoutAccount(ctx context.Context, labID, accountID string) error {
	query := `
        UPDATE labs
        SET stripe_account_id = $1
        WHERE lab_id = $2`

	result, err := r.db.ExecContext(ctx, query, accountID, labID)
	if err != nil {
		r.log.Errorw("Failed to set payout account on lab", "error", err, "labID", labID)
		return fmt.Errorf("repository: failed to set lab payout account: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

type postgresFundingGoalRepo struct {
	db  *sqlx.DB
	log *logger.Logger
}

// NewFundingGoalRepository создает репозиторий целей для PostgreSQL.
func NewFundingGoalRepository(db *sqlx.DB, log *logger.Logger) FundingGoalRepository {
	return &postgresFundingGoalRepo{db: db, log: log}
}

func (r *postgresFundingGoalRepo) GetByID(ctx context.Context, labID, goalID string) (*models.FundingGoal, error) {
	var goal models.FundingGoal
	query := `
        SELECT goal_id, lab_id, name, contributed, created_at
        FROM funding_goals
        WHERE lab_id = $1 AND goal_id = $2`

	err := r.db.GetContext(ctx, &goal, query, labID, goalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnw("Funding goal not found", "labID", labID, "goalID", goalID)
			return nil, domain.ErrNotFound
		}
		r.log.Errorw("Failed to get funding goal from DB", "error", err, "labID", labID, "goalID", goalID)
		return nil, fmt.Errorf("repository: failed to get funding goal: %w", err)
	}

	return &goal, nil
}

// IncrementContributed выполняет инкремент на стороне БД одним UPDATE,
// без чтения-модификации-записи: конкурентные вклады не теряются.
func (r *postgresFundingGoalRepo) IncrementContributed(ctx context.Context, labID, goalID string, delta float64) error {
	query := `
        UPDATE funding_goals
        SET contributed = contributed + $1
        WHERE lab_id = $2 AND goal_id = $3`

	result, err := r.db.ExecContext(ctx, query, delta, labID, goalID)
	if err != nil {
		r.log.Errorw("Failed to increment funding goal", "error", err, "labID", labID, "goalID", goalID)
		return fmt.Errorf("repository: failed to increment funding goal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to get rows affected: %w", err)
	}
	if affected == 0 {
		r.log.Warnw("Funding goal increment affected 0 rows", "labID", labID, "goalID", goalID)
		return domain.ErrNotFound
	}

	r.log.Debugw("Funding goal incremented", "labID", labID, "goalID", goalID, "delta", delta)
	return nil
}
