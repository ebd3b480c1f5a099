package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/internal/repository"
	"github.com/heterodox-labs/funding-service/internal/stripe"
	"github.com/heterodox-labs/funding-service/pkg/logger"
)

// FundingService управляет аккаунтами выплат: онбординг Connect,
// привязка/отвязка аккаунта выплат, сводка банковского счета.
type FundingService struct {
	profileRepo  repository.ProfileRepository
	stripeClient stripe.Client
	log          *logger.Logger
}

// NewFundingService конструктор сервиса аккаунтов выплат.
func NewFundingService(
	profileRepo repository.ProfileRepository,
	stripeClient stripe.Client,
	log *logger.Logger,
) *FundingService {
	return &FundingService{
		profileRepo:  profileRepo,
		stripeClient: stripeClient,
		log:          log,
	}
}

// CreateConnectLink гарантирует наличие аккаунта выплат у участника и
// возвращает свежую одноразовую ссылку онбординга. Refresh/return URL
// строятся от origin запроса.
func (s *FundingService) CreateConnectLink(ctx context.Context, userID, businessType, origin string) (string, error) {
	if userID == "" {
		return "", domain.ErrUnauthenticated
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.log.Errorw("Failed to load profile for connect onboarding", "error", err, "userID", userID)
		return "", fmt.Errorf("failed to load profile: %w", err)
	}

	accountID := ""
	if profile.HasPayoutAccount() {
		accountID = *profile.StripeAccountID
	} else {
		// Аккаунт выплат создается лениво, при первом онбординге
		accountID, err = s.stripeClient.CreateConnectAccount(ctx, profile.Email, businessType)
		if err != nil {
			return "", err
		}

		if err := s.profileRepo.SetPayoutAccount(ctx, userID, &accountID); err != nil {
			s.log.Errorw("Failed to persist payout account on profile", "error", err, "userID", userID, "accountID", accountID)
			return "", fmt.Errorf("failed to persist payout account: %w", err)
		}
		s.log.Infow("Payout account provisioned", "userID", userID, "accountID", accountID)
	}

	// Ссылка онбординга одноразовая, выдаем новую при каждом обращении
	origin = strings.TrimSuffix(origin, "/")
	refreshURL := origin + "/funding/onboarding/refresh"
	returnURL := origin + "/funding/onboarding/complete"

	url, err := s.stripeClient.CreateAccountLink(ctx, accountID, refreshURL, returnURL)
	if err != nil {
		return "", err
	}

	return url, nil
}

// GetFundingInfo возвращает сводку банковского счета аккаунта выплат.
func (s *FundingService) GetFundingInfo(ctx context.Context, fundingID string) (*models.BankAccountSummary, error) {
	if fundingID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.stripeClient.GetBankAccountSummary(ctx, fundingID)
}

// SaveFundingID привязывает существующий аккаунт выплат к профилю участника.
func (s *FundingService) SaveFundingID(ctx context.Context, userID, fundingID string) (*models.Profile, error) {
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if fundingID == "" {
		return nil, domain.ErrInvalidInput
	}

	if err := s.profileRepo.SetPayoutAccount(ctx, userID, &fundingID); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.log.Infow("Funding ID saved on profile", "userID", userID, "fundingID", fundingID)
	return profile, nil
}

// RemoveFundingID очищает привязку аккаунта выплат у профиля участника.
func (s *FundingService) RemoveFundingID(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated
	}

	if err := s.profileRepo.SetPayoutAccount(ctx, userID, nil); err != nil {
		return err
	}

	s.log.Infow("Funding ID removed from profile", "userID", userID)
	return nil
}
