package service

import (
	"context"
	"errors"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/internal/repository"
	"github.com/heterodox-labs/funding-service/internal/stripe"
	"github.com/heterodox-labs/funding-service/pkg/logger"
)

// BillingService управляет платежным профилем плательщика: создание
// платежного аккаунта, привязка метода оплаты в два этапа, сводка и
// отвязка метода по умолчанию.
type BillingService struct {
	profileRepo  repository.ProfileRepository
	stripeClient stripe.Client
	cache        repository.PaymentInfoCache
	log          *logger.Logger
}

// NewBillingService конструктор сервиса платежного профиля. Кэш может
// быть nil, тогда сводки методов оплаты читаются напрямую из Stripe.
func NewBillingService(
	profileRepo repository.ProfileRepository,
	stripeClient stripe.Client,
	cache repository.PaymentInfoCache,
	log *logger.Logger,
) *BillingService {
	return &BillingService{
		profileRepo:  profileRepo,
		stripeClient: stripeClient,
		cache:        cache,
		log:          log,
	}
}

// SetupPaymentMethod начинает привязку метода оплаты: гарантирует наличие
// платежного аккаунта (создавая его лениво) и возвращает client secret
// нового SetupIntent для подтверждения на клиенте.
func (s *BillingService) SetupPaymentMethod(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID := ""
	if profile.HasBillingIdentity() {
		customerID = *profile.StripeCustomerID
	} else {
		customerID, err = s.stripeClient.CreateCustomer(ctx, userID, profile.Email)
		if err != nil {
			return "", err
		}

		// SetStripeCustomer переводит профиль в состояние customer_created
		if err := s.profileRepo.SetStripeCustomer(ctx, userID, customerID); err != nil {
			s.log.Errorw("Failed to persist customer on profile", "error", err, "userID", userID, "customerID", customerID)
			return "", err
		}
		s.log.Infow("Billing identity provisioned", "userID", userID, "customerID", customerID)
	}

	clientSecret, err := s.stripeClient.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return "", err
	}

	return clientSecret, nil
}

// FinalizeSetupIntent завершает привязку метода оплаты после подтверждения
// SetupIntent на клиенте: назначает собранный метод оплатой по умолчанию
// и переводит платежный профиль в состояние default_set.
func (s *BillingService) FinalizeSetupIntent(ctx context.Context, setupIntentID string) error {
	if setupIntentID == "" {
		return domain.ErrInvalidInput
	}

	customerID, paymentMethodID, err := s.stripeClient.RetrieveSetupIntent(ctx, setupIntentID)
	if err != nil {
		return err
	}
	if customerID == "" || paymentMethodID == "" {
		s.log.Warnw("SetupIntent has no customer or payment method",
			"setupIntentID", setupIntentID, "customerID", customerID, "paymentMethodID", paymentMethodID)
		return domain.ErrInvalidInput
	}

	if err := s.stripeClient.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return err
	}

	s.advanceBillingState(ctx, customerID)
	s.invalidateCacheByCustomer(ctx, customerID)

	s.log.Infow("Payment method finalized", "customerID", customerID, "paymentMethodID", paymentMethodID)
	return nil
}

// SetDefaultPaymentMethod явно назначает метод оплаты по умолчанию для
// уже известной пары customer/payment method.
func (s *BillingService) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	if customerID == "" || paymentMethodID == "" {
		return domain.ErrInvalidInput
	}

	if err := s.stripeClient.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID); err != nil {
		return err
	}

	s.advanceBillingState(ctx, customerID)
	s.invalidateCacheByCustomer(ctx, customerID)
	return nil
}

// GetPaymentInfo возвращает сводку метода оплаты по умолчанию, используя
// кэш Redis с коротким TTL. domain.ErrNotFound если платежного аккаунта
// или метода оплаты нет.
func (s *BillingService) GetPaymentInfo(ctx context.Context, userID string) (*models.PaymentMethodSummary, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !profile.HasBillingIdentity() {
		return nil, domain.ErrNotFound
	}

	if s.cache != nil {
		cached, err := s.cache.GetCachedPaymentInfo(ctx, userID)
		if err == nil {
			s.log.Debugw("Payment info served from cache", "userID", userID)
			return cached, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			// Деградация кэша не должна ломать чтение из Stripe
			s.log.Warnw("Payment info cache read failed", "error", err, "userID", userID)
		}
	}

	summary, err := s.stripeClient.GetDefaultPaymentMethodSummary(ctx, *profile.StripeCustomerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.CachePaymentInfo(ctx, userID, summary); err != nil {
			s.log.Warnw("Failed to cache payment info", "error", err, "userID", userID)
		}
	}

	return summary, nil
}

// RemovePaymentMethod отвязывает метод оплаты по умолчанию и возвращает
// платежный профиль в состояние customer_created.
func (s *BillingService) RemovePaymentMethod(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !profile.HasBillingIdentity() {
		return domain.ErrNotFound
	}

	if err := s.stripeClient.DetachDefaultPaymentMethod(ctx, *profile.StripeCustomerID); err != nil {
		return err
	}

	if err := s.profileRepo.SetBillingState(ctx, userID, models.BillingStateCustomerCreated); err != nil {
		s.log.Errorw("Failed to roll back billing state after detach", "error", err, "userID", userID)
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePaymentInfo(ctx, userID); err != nil {
			s.log.Warnw("Failed to invalidate payment info cache", "error", err, "userID", userID)
		}
	}

	s.log.Infow("Payment method removed", "userID", userID)
	return nil
}

// advanceBillingState переводит профиль в default_set по ID платежного
// аккаунта. Отсутствие профиля не считается фатальным: метод оплаты уже
// назначен в Stripe.
func (s *BillingService) advanceBillingState(ctx context.Context, customerID string) {
	profile, err := s.profileRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		s.log.Warnw("Cannot advance billing state, profile lookup failed", "error", err, "customerID", customerID)
		return
	}

	if err := s.profileRepo.SetBillingState(ctx, profile.UserID, models.BillingStateDefaultSet); err != nil {
		s.log.Warnw("Failed to advance billing state", "error", err, "userID", profile.UserID)
	}
}

func (s *BillingService) invalidateCacheByCustomer(ctx context.Context, customerID string) {
	if s.cache == nil {
		return
	}
	profile, err := s.profileRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return
	}
	if err := s.cache.InvalidatePaymentInfo(ctx, profile.UserID); err != nil {
		s.log.Warnw("Failed to invalidate payment info cache", "error", err, "userID", profile.UserID)
	}
}
