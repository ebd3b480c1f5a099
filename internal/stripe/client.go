package stripe

import (
	"context"
	"errors"

	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/pkg/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const (
	// Ключ метаданных для связи Stripe Customer с UserID участника
	metadataUserIDKey = "user_id"
)

// Client определяет методы для взаимодействия со Stripe API.
type Client interface {
	// CreateConnectAccount создает Express-аккаунт выплат (card_payments + transfers).
	CreateConnectAccount(ctx context.Context, email, businessType string) (string, error)

	// CreateAccountLink выдает одноразовую ссылку онбординга для аккаунта выплат.
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)

	// GetBankAccountSummary возвращает сводку первого банковского счета аккаунта выплат.
	GetBankAccountSummary(ctx context.Context, accountID string) (*models.BankAccountSummary, error)

	// CreateCustomer создает платежный аккаунт плательщика и возвращает его Stripe ID.
	CreateCustomer(ctx context.Context, userID, email string) (string, error)

	// UpdateCustomerName выставляет отображаемое имя платежного аккаунта.
	UpdateCustomerName(ctx context.Context, customerID, name string) error

	// CreateSetupIntent создает SetupIntent для привязки карты или банковского счета.
	CreateSetupIntent(ctx context.Context, customerID string) (clientSecret string, err error)

	// RetrieveSetupIntent возвращает customer и payment method завершенного SetupIntent.
	RetrieveSetupIntent(ctx context.Context, setupIntentID string) (customerID, paymentMethodID string, err error)

	// SetDefaultPaymentMethod назначает метод оплаты по умолчанию для счетов.
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	// ResolveDefaultCard возвращает карту для списания: метод по умолчанию, если
	// это карта, иначе первую привязанную карту. domain.ErrNoCardOnFile если карт нет.
	ResolveDefaultCard(ctx context.Context, customerID string) (string, error)

	// GetDefaultPaymentMethodSummary возвращает сводку метода оплаты по умолчанию.
	GetDefaultPaymentMethodSummary(ctx context.Context, customerID string) (*models.PaymentMethodSummary, error)

	// DetachDefaultPaymentMethod отвязывает метод оплаты по умолчанию.
	DetachDefaultPaymentMethod(ctx context.Context, customerID string) error

	// CreateDonationIntent создает разовый off-session платеж с комиссией платформы
	// и переводом на аккаунт выплат лаборатории. Возвращает PaymentIntent ID.
	CreateDonationIntent(ctx context.Context, input DonationIntentInput) (string, error)

	// CreateMembershipPrice создает продукт и месячную цену под новую подписку.
	CreateMembershipPrice(ctx context.Context, labName string, amountMinor int64, currency string) (string, error)

	// CreateMembershipSubscription создает регулярную подписку с комиссией платформы.
	CreateMembershipSubscription(ctx context.Context, input MembershipSubscriptionInput) (string, error)

	// CancelSubscriptionAtPeriodEnd запрашивает отмену подписки в конце периода.
	CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) error
}

// DonationIntentInput параметры разового списания.
type DonationIntentInput struct {
	AmountMinor     int64 // В минимальных единицах валюты
	FeeMinor        int64 // Комиссия платформы, тоже в минимальных единицах
	Currency        string
	CustomerID      string
	PaymentMethodID string
	DestinationID   string // Аккаунт выплат лаборатории
	UserID          string
	LabID           string
	GoalID          string
}

// MembershipSubscriptionInput параметры регулярной подписки.
type MembershipSubscriptionInput struct {
	CustomerID      string
	PriceID         string
	PaymentMethodID string
	DestinationID   string
	FeePercent      float64
	UserID          string
	LabID           string
	GoalID          string
}

// stripeClient реализует интерфейс Client поверх официального SDK.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewStripeClient создает новый экземпляр клиента Stripe.
func NewStripeClient(apiKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &stripeClient{
		client: sc,
		log:    log,
	}
}

// logStripeError - вспомогательная функция для логирования деталей ошибки Stripe.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
