package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/kafka"
	"github.com/heterodox-labs/funding-service/internal/metrics"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/internal/repository"
	"github.com/heterodox-labs/funding-service/internal/stripe"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/google/uuid"
)

// DonationInput параметры разового пожертвования.
type DonationInput struct {
	UserID      string
	LabID       string
	GoalID      string // Пустой для вклада без конкретной цели
	GoalName    string // Клиентское имя цели, перекрывается именем из БД
	AmountMinor int64  // В минимальных единицах валюты
	Caption     string
}

// DonationResult результат успешного списания.
type DonationResult struct {
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"` // В основных единицах валюты
	Fee             float64 `json:"fee"`
	GoalName        string  `json:"goal_name"`
}

// DonationService выполняет разовые пожертвования: проверка предусловий,
// немедленное off-session списание с комиссией платформы и запись результата.
// Списание не ретраится: повторная попытка создала бы второй платеж.
type DonationService struct {
	profileRepo  repository.ProfileRepository
	labRepo      repository.LabRepository
	goalRepo     repository.FundingGoalRepository
	donationRepo repository.DonationRepository
	stripeClient stripe.Client
	producer     kafka.Producer
	metrics      metrics.FundingMetrics
	feeRate      float64
	currency     string
	log          *logger.Logger
}

// NewDonationService конструктор сервиса пожертвований. Producer и metrics
// могут быть nil (событие/метрика тогда пропускаются).
func NewDonationService(
	profileRepo repository.ProfileRepository,
	labRepo repository.LabRepository,
	goalRepo repository.FundingGoalRepository,
	donationRepo repository.DonationRepository,
	stripeClient stripe.Client,
	producer kafka.Producer,
	m metrics.FundingMetrics,
	feeRate float64,
	currency string,
	log *logger.Logger,
) *DonationService {
	return &DonationService{
		profileRepo:  profileRepo,
		labRepo:      labRepo,
		goalRepo:     goalRepo,
		donationRepo: donationRepo,
		stripeClient: stripeClient,
		producer:     producer,
		metrics:      m,
		feeRate:      feeRate,
		currency:     currency,
		log:          log,
	}
}

// Charge проводит разовое пожертвование лаборатории. Порядок проверок
// фиксирован: сначала платежный профиль плательщика, затем аккаунт выплат
// лаборатории. Имя цели всегда перечитывается из БД, клиентское значение
// служит лишь запасным.
func (s *DonationService) Charge(ctx context.Context, input DonationInput) (*DonationResult, error) {
	if input.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if input.LabID == "" || input.AmountMinor <= 0 {
		return nil, domain.ErrInvalidInput
	}

	profile, err := s.profileRepo.GetByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !profile.HasBillingIdentity() {
		return nil, domain.ErrNoBillingIdentity
	}

	lab, err := s.labRepo.GetByID(ctx, input.LabID)
	if err != nil {
		return nil, err
	}
	if !lab.HasPayoutAccount() {
		return nil, domain.ErrNoPayoutAccount
	}

	goalName := input.GoalName
	if input.GoalID != "" {
		goal, err := s.goalRepo.GetByID(ctx, input.LabID, input.GoalID)
		switch {
		case err == nil:
			goalName = goal.Name
		case errors.Is(err, domain.ErrNotFound):
			s.log.Warnw("Funding goal not found, keeping client-supplied name",
				"labID", input.LabID, "goalID", input.GoalID)
		default:
			return nil, err
		}
	}

	paymentMethodID, err := s.stripeClient.ResolveDefaultCard(ctx, *profile.StripeCustomerID)
	if err != nil {
		return nil, err
	}

	feeMinor := int64(math.Round(float64(input.AmountMinor) * s.feeRate))

	paymentIntentID, err := s.stripeClient.CreateDonationIntent(ctx, stripe.DonationIntentInput{
		AmountMinor:     input.AmountMinor,
		FeeMinor:        feeMinor,
		Currency:        s.currency,
		CustomerID:      *profile.StripeCustomerID,
		PaymentMethodID: paymentMethodID,
		DestinationID:   *lab.StripeAccountID,
		UserID:          input.UserID,
		LabID:           input.LabID,
		GoalID:          input.GoalID,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncDonationFailed(input.LabID)
		}
		return nil, err
	}

	amountMajor := float64(input.AmountMinor) / 100
	feeMajor := float64(feeMinor) / 100

	donation := &models.Donation{
		ID:              uuid.New(),
		UserID:          input.UserID,
		LabID:           input.LabID,
		GoalName:        goalName,
		Amount:          amountMajor,
		PaymentIntentID: paymentIntentID,
		Status:          models.DonationStatusSucceeded,
	}
	if input.GoalID != "" {
		donation.GoalID = &input.GoalID
	}
	if input.Caption != "" {
		donation.Caption = &input.Caption
	}

	// Деньги уже переведены: отказ записи - критическая ошибка учета
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		s.log.Errorw("Charge succeeded but donation record failed",
			"error", err, "paymentIntentID", paymentIntentID, "userID", input.UserID, "labID", input.LabID)
		return nil, fmt.Errorf("%w: %s", domain.ErrDonationNotLogged, paymentIntentID)
	}

	if input.GoalID != "" {
		// Запись о пожертвовании - источник истины; собранная сумма цели
		// производна, ее отказ не отменяет успешное списание
		if err := s.goalRepo.IncrementContributed(ctx, input.LabID, input.GoalID, amountMajor); err != nil {
			s.log.Errorw("Failed to increment funding goal after donation",
				"error", err, "labID", input.LabID, "goalID", input.GoalID, "paymentIntentID", paymentIntentID)
		}
	}

	if s.metrics != nil {
		s.metrics.IncDonationSucceeded(input.LabID)
		s.metrics.ObserveDonationAmount(amountMajor)
	}
	s.publishDonationEvent(ctx, input, amountMajor, paymentIntentID)

	s.log.Infow("Donation charged",
		"userID", input.UserID, "labID", input.LabID, "goalID", input.GoalID,
		"amount", amountMajor, "fee", feeMajor, "paymentIntentID", paymentIntentID)

	return &DonationResult{
		PaymentIntentID: paymentIntentID,
		Amount:          amountMajor,
		Fee:             feeMajor,
		GoalName:        goalName,
	}, nil
}

// publishDonationEvent отправляет событие в Kafka асинхронно: публикация
// не должна задерживать ответ плательщику.
func (s *DonationService) publishDonationEvent(ctx context.Context, input DonationInput, amountMajor float64, paymentIntentID string) {
	if s.producer == nil {
		return
	}

	event := kafka.FundingEvent{
		UserID:     input.UserID,
		LabID:      input.LabID,
		GoalID:     input.GoalID,
		Amount:     amountMajor,
		ExternalID: paymentIntentID,
		OccurredAt: time.Now(),
	}

	go func() {
		publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		if err := s.producer.PublishFundingEvent(publishCtx, kafka.TopicDonationRecorded, event); err != nil {
			s.log.Errorw("Failed to publish donation event", "error", err, "paymentIntentID", paymentIntentID)
		}
	}()
}
