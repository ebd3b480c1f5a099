package domain

import "errors"

// Application errors
var (
	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput неверные входные данные
	ErrInvalidInput = errors.New("invalid input data")

	// ErrUnauthenticated пользователь не аутентифицирован
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNoBillingIdentity у плательщика нет платежного аккаунта Stripe
	ErrNoBillingIdentity = errors.New("no billing identity for payer")

	// ErrNoPayoutAccount у получателя нет аккаунта для выплат
	ErrNoPayoutAccount = errors.New("no payout account for recipient")

	// ErrNoCardOnFile у плательщика нет привязанной карты
	ErrNoCardOnFile = errors.New("no card payment method on file")

	// ErrNoMembershipPlan у лаборатории не настроена месячная сумма членства
	ErrNoMembershipPlan = errors.New("no membership plan configured")

	// ErrNoPaymentMethod у платежного аккаунта нет привязанного метода оплаты
	ErrNoPaymentMethod = errors.New("no payment method found")

	// ErrNoBankAccount у аккаунта выплат нет привязанного банковского счета
	ErrNoBankAccount = errors.New("no bank account found")

	// ErrStripeClient ошибка взаимодействия со Stripe
	ErrStripeClient = errors.New("stripe client error")

	// ErrDonationNotLogged платеж прошел, но запись о пожертвовании не сохранилась
	ErrDonationNotLogged = errors.New("failed to log donation")

	// ErrWebhookValidationFailed не удалось проверить подпись вебхука
	ErrWebhookValidationFailed = errors.New("webhook validation failed")
)
