package service

import (
	"context"
	"errors"
	"math"
	"strings"
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

// MembershipInput параметры оформления членства.
type MembershipInput struct {
	UserID string
	LabID  string
	GoalID string // Пустой, если месячный взнос не привязан к цели
}

// MembershipResult результат оформления членства.
type MembershipResult struct {
	SubscriptionID string  `json:"subscription_id"`
	MonthlyAmount  float64 `json:"monthly_amount"` // В основных единицах валюты
	Status         string  `json:"status"`
}

// MembershipService оформляет и отменяет регулярные месячные подписки
// на лаборатории с комиссией платформы.
type MembershipService struct {
	profileRepo    repository.ProfileRepository
	labRepo        repository.LabRepository
	goalRepo       repository.FundingGoalRepository
	membershipRepo repository.MembershipRepository
	stripeClient   stripe.Client
	producer       kafka.Producer
	metrics        metrics.FundingMetrics
	feeRate        float64
	currency       string
	log            *logger.Logger
}

// NewMembershipService конструктор сервиса членств. Producer и metrics
// могут быть nil (событие/метрика тогда пропускаются).
func NewMembershipService(
	profileRepo repository.ProfileRepository,
	labRepo repository.LabRepository,
	goalRepo repository.FundingGoalRepository,
	membershipRepo repository.MembershipRepository,
	stripeClient stripe.Client,
	producer kafka.Producer,
	m metrics.FundingMetrics,
	feeRate float64,
	currency string,
	log *logger.Logger,
) *MembershipService {
	return &MembershipService{
		profileRepo:    profileRepo,
		labRepo:        labRepo,
		goalRepo:       goalRepo,
		membershipRepo: membershipRepo,
		stripeClient:   stripeClient,
		producer:       producer,
		metrics:        m,
		feeRate:        feeRate,
		currency:       currency,
		log:            log,
	}
}

// Create оформляет месячную подписку на лабораторию. Проверки: тариф
// членства у лаборатории, платежный профиль плательщика, аккаунт выплат
// лаборатории. Побочные эффекты идут строго по порядку: имя плательщика,
// карта по умолчанию, цена, подписка, запись, вклад в цель.
func (s *MembershipService) Create(ctx context.Context, input MembershipInput) (*MembershipResult, error) {
	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if input.LabID == "" {
		return nil, domain.ErrInvalidInput
	}

	lab, err := s.labRepo.GetByID(ctx, input.LabID)
	if err != nil {
		return nil, err
	}
	if !lab.HasMembershipPlan() {
		return nil, domain.ErrNoMembershipPlan
	}

	profile, err := s.profileRepo.GetByUserID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if !profile.HasBillingIdentity() {
		return nil, domain.ErrNoBillingIdentity
	}
	if !lab.HasPayoutAccount() {
		return nil, domain.ErrNoPayoutAccount
	}

	customerID := *profile.StripeCustomerID
	monthlyAmount := *lab.MonthlyAmount
	amountMinor := int64(math.Round(monthlyAmount * 100))

	// Имя плательщика видно лаборатории в выписках по подписке
	if err := s.stripeClient.UpdateCustomerName(ctx, customerID, input.UserID); err != nil {
		return nil, err
	}

	paymentMethodID, err := s.stripeClient.ResolveDefaultCard(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if err := s.stripeClient.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return nil, err
	}

	// Цена создается заново под каждую подписку, без переиспользования
	priceID, err := s.stripeClient.CreateMembershipPrice(ctx, lab.Name, amountMinor, s.currency)
	if err != nil {
		return nil, err
	}

	subscriptionID, err := s.stripeClient.CreateMembershipSubscription(ctx, stripe.MembershipSubscriptionInput{
		CustomerID:      customerID,
		PriceID:         priceID,
		PaymentMethodID: paymentMethodID,
		DestinationID:   *lab.StripeAccountID,
		FeePercent:      s.feeRate * 100,
		UserID:          input.UserID,
		LabID:           input.LabID,
		GoalID:          input.GoalID,
	})
	if err != nil {
		return nil, err
	}

	membership := &models.Membership{
		ID:                   uuid.New(),
		UserID:               input.UserID,
		LabID:                input.LabID,
		MonthlyAmount:        monthlyAmount,
		StripeSubscriptionID: subscriptionID,
		Status:               models.MembershipStatusIncomplete,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		s.log.Errorw("Subscription created but membership record failed",
			"error", err, "subscriptionID", subscriptionID, "userID", input.UserID, "labID", input.LabID)
		return nil, err
	}

	if input.GoalID != "" {
		if err := s.goalRepo.IncrementContributed(ctx, input.LabID, input.GoalID, monthlyAmount); err != nil {
			s.log.Errorw("Failed to increment funding goal after membership",
				"error", err, "labID", input.LabID, "goalID", input.GoalID, "subscriptionID", subscriptionID)
		}
	}

	if s.metrics != nil {
		s.metrics.IncMembershipCreated(input.LabID)
	}
	s.publishMembershipEvent(ctx, kafka.TopicMembershipCreated, input.UserID, input.LabID, input.GoalID, monthlyAmount, subscriptionID)

	s.log.Infow("Membership created",
		"userID", input.UserID, "labID", input.LabID, "goalID", input.GoalID,
		"monthlyAmount", monthlyAmount, "subscriptionID", subscriptionID)

	return &MembershipResult{
		SubscriptionID: subscriptionID,
		MonthlyAmount:  monthlyAmount,
		Status:         membership.Status,
	}, nil
}

// Cancel запрашивает отмену подписки в конце оплаченного периода и помечает
// локальную запись отмененной. Отсутствие локальной записи не считается
// ошибкой: отмена у провайдера уже состоялась.
func (s *MembershipService) Cancel(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return domain.ErrInvalidInput
	}

	if err := s.stripeClient.CancelSubscriptionAtPeriodEnd(ctx, subscriptionID); err != nil {
		return err
	}

	membership, err := s.membershipRepo.GetBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warnw("Membership record not found on cancel", "subscriptionID", subscriptionID)
			return nil
		}
		return err
	}

	if err := s.membershipRepo.UpdateStatusBySubscriptionID(ctx, subscriptionID, models.MembershipStatusCanceled); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncMembershipCanceled(membership.LabID)
	}
	s.publishMembershipEvent(ctx, kafka.TopicMembershipCanceled, membership.UserID, membership.LabID, "", membership.MonthlyAmount, subscriptionID)

	s.log.Infow("Membership canceled", "userID", membership.UserID, "labID", membership.LabID, "subscriptionID", subscriptionID)
	return nil
}

func (s *MembershipService) publishMembershipEvent(ctx context.Context, topic, userID, labID, goalID string, amount float64, subscriptionID string) {
	if s.producer == nil {
		return
	}

	event := kafka.FundingEvent{
		UserID:     userID,
		LabID:      labID,
		GoalID:     goalID,
		Amount:     amount,
		ExternalID: subscriptionID,
		OccurredAt: time.Now(),
	}

	go func() {
		publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		defer cancel()
		if err := s.producer.PublishFundingEvent(publishCtx, topic, event); err != nil {
			s.log.Errorw("Failed to publish membership event", "error", err, "topic", topic, "subscriptionID", subscriptionID)
		}
	}()
}
