package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/metrics"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/internal/repository"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	stripesdk "github.com/stripe/stripe-go/v78"
)

// WebhookService обрабатывает события Stripe: реконсиляция записей о
// пожертвованиях и членствах по асинхронным исходам платежей. События
// дедуплицируются по ID, повторная доставка игнорируется.
type WebhookService struct {
	donationRepo     repository.DonationRepository
	membershipRepo   repository.MembershipRepository
	goalRepo         repository.FundingGoalRepository
	webhookEventRepo repository.WebhookEventRepository
	metrics          metrics.FundingMetrics
	log              *logger.Logger
}

// NewWebhookService конструктор сервиса вебхуков.
func NewWebhookService(
	donationRepo repository.DonationRepository,
	membershipRepo repository.MembershipRepository,
	goalRepo repository.FundingGoalRepository,
	webhookEventRepo repository.WebhookEventRepository,
	m metrics.FundingMetrics,
	log *logger.Logger,
) *WebhookService {
	return &WebhookService{
		donationRepo:     donationRepo,
		membershipRepo:   membershipRepo,
		goalRepo:         goalRepo,
		webhookEventRepo: webhookEventRepo,
		metrics:          m,
		log:              log,
	}
}

// HandleEvent обрабатывает проверенное событие Stripe. Возвращаемая ошибка
// означает сбой на нашей стороне; незнакомые типы событий и отсутствующие
// записи подтверждаются без ошибки, чтобы провайдер не ретраил доставку.
// При сбое обработки отметка о событии снимается: повторная доставка
// обработает его заново, а не отбросит как дубликат.
func (s *WebhookService) HandleEvent(ctx context.Context, event stripesdk.Event) error {
	firstDelivery, err := s.webhookEventRepo.MarkProcessed(ctx, event.ID, string(event.Type), event.Data.Raw)
	if err != nil {
		return err
	}
	if !firstDelivery {
		s.log.Debugw("Duplicate webhook delivery ignored", "eventID", event.ID, "eventType", event.Type)
		return nil
	}

	if s.metrics != nil {
		s.metrics.IncWebhookEvent(string(event.Type))
	}

	if err := s.dispatch(ctx, event); err != nil {
		if unmarkErr := s.webhookEventRepo.Unmark(ctx, event.ID); unmarkErr != nil {
			s.log.Errorw("Failed to release webhook event after processing error",
				"error", unmarkErr, "eventID", event.ID, "eventType", event.Type)
		}
		return err
	}
	return nil
}

func (s *WebhookService) dispatch(ctx context.Context, event stripesdk.Event) error {
	switch event.Type {
	case "payment_intent.payment_failed":
		return s.handlePaymentFailed(ctx, event)
	case "payment_intent.succeeded":
		return s.handlePaymentSucceeded(ctx, event)
	case "charge.succeeded", "charge.failed":
		// Исходы списаний реконсилируются по событиям payment_intent.*,
		// charge.* дублируют их на уровне отдельного списания.
		s.log.Debugw("Charge event acknowledged", "eventID", event.ID, "eventType", event.Type)
		return nil
	case "customer.subscription.created":
		// Подписка создается нашим же запросом в статусе incomplete,
		// активация приходит через customer.subscription.updated.
		s.log.Debugw("Subscription creation acknowledged", "eventID", event.ID)
		return nil
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "account.updated":
		return s.handleAccountUpdated(ctx, event)
	default:
		s.log.Debugw("Unhandled webhook event type", "eventID", event.ID, "eventType", event.Type)
		return nil
	}
}

// handlePaymentFailed помечает запись о пожертвовании как failed и
// откатывает вклад в цель: сумма была зачтена оптимистично при списании.
func (s *WebhookService) handlePaymentFailed(ctx context.Context, event stripesdk.Event) error {
	var pi stripesdk.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("webhook: failed to parse payment intent: %w", err)
	}

	donation, err := s.donationRepo.GetByPaymentIntentID(ctx, pi.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warnw("Payment failed for unknown donation", "paymentIntentID", pi.ID)
			return nil
		}
		return err
	}

	if donation.Status == models.DonationStatusFailed {
		return nil
	}

	// Откат цели идет до смены статуса: если откат сорвется, запись
	// останется succeeded и повторная доставка события докатит его.
	if donation.GoalID != nil {
		if err := s.goalRepo.IncrementContributed(ctx, donation.LabID, *donation.GoalID, -donation.Amount); err != nil {
			s.log.Errorw("Failed to roll back funding goal after payment failure",
				"error", err, "labID", donation.LabID, "goalID", *donation.GoalID, "paymentIntentID", pi.ID)
			return err
		}
	}

	if err := s.donationRepo.UpdateStatusByPaymentIntentID(ctx, pi.ID, models.DonationStatusFailed); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncDonationFailed(donation.LabID)
	}

	s.log.Infow("Donation reconciled as failed",
		"paymentIntentID", pi.ID, "labID", donation.LabID, "amount", donation.Amount)
	return nil
}

// handlePaymentSucceeded подтверждает статус записи. Запись создается как
// succeeded сразу при списании, поэтому обычно это no-op.
func (s *WebhookService) handlePaymentSucceeded(ctx context.Context, event stripesdk.Event) error {
	var pi stripesdk.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return fmt.Errorf("webhook: failed to parse payment intent: %w", err)
	}

	err := s.donationRepo.UpdateStatusByPaymentIntentID(ctx, pi.ID, models.DonationStatusSucceeded)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// handleSubscriptionUpdated активирует членство, когда подписка переходит
// в active после первого успешного счета.
func (s *WebhookService) handleSubscriptionUpdated(ctx context.Context, event stripesdk.Event) error {
	var sub stripesdk.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("webhook: failed to parse subscription: %w", err)
	}

	if sub.Status != stripesdk.SubscriptionStatusActive {
		return nil
	}

	err := s.membershipRepo.UpdateStatusBySubscriptionID(ctx, sub.ID, models.MembershipStatusActive)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warnw("Subscription update for unknown membership", "subscriptionID", sub.ID)
			return nil
		}
		return err
	}

	s.log.Infow("Membership activated", "subscriptionID", sub.ID)
	return nil
}

func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, event stripesdk.Event) error {
	var sub stripesdk.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("webhook: failed to parse subscription: %w", err)
	}

	err := s.membershipRepo.UpdateStatusBySubscriptionID(ctx, sub.ID, models.MembershipStatusCanceled)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warnw("Subscription deletion for unknown membership", "subscriptionID", sub.ID)
			return nil
		}
		return err
	}

	if s.metrics != nil {
		if membership, err := s.membershipRepo.GetBySubscriptionID(ctx, sub.ID); err == nil {
			s.metrics.IncMembershipCanceled(membership.LabID)
		}
	}

	s.log.Infow("Membership reconciled as canceled", "subscriptionID", sub.ID)
	return nil
}

// handleAccountUpdated фиксирует изменения статуса аккаунта выплат.
// Онбординг завершается на стороне Stripe, нам достаточно видимости.
func (s *WebhookService) handleAccountUpdated(_ context.Context, event stripesdk.Event) error {
	var account stripesdk.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return fmt.Errorf("webhook: failed to parse account: %w", err)
	}

	s.log.Infow("Payout account updated",
		"accountID", account.ID,
		"chargesEnabled", account.ChargesEnabled,
		"payoutsEnabled", account.PayoutsEnabled,
		"detailsSubmitted", account.DetailsSubmitted,
	)
	return nil
}
