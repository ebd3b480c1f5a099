package stripe

import (
	"context"
	"fmt"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"

	"github.com/stripe/stripe-go/v78"
)

// CreateCustomer создает платежный аккаунт плательщика,
// помечая его метаданными с ID участника.
func (sc *stripeClient) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserIDKey, userID)

	cus, err := sc.client.Customers.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID, "userID", userID)
	return cus.ID, nil
}

// UpdateCustomerName выставляет отображаемое имя платежного аккаунта
// (используется как человекочитаемая метка в дашборде провайдера).
func (sc *stripeClient) UpdateCustomerName(ctx context.Context, customerID, name string) error {
	params := &stripe.CustomerParams{
		Name: stripe.String(name),
	}
	params.Context = ctx

	if _, err := sc.client.Customers.Update(customerID, params); err != nil {
		logStripeError(sc.log, "UpdateCustomerName", err)
		return fmt.Errorf("stripe: failed to update customer name: %w", err)
	}

	return nil
}

// CreateSetupIntent создает SetupIntent для привязки карты или банковского счета.
func (sc *stripeClient) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card", "us_bank_account"}),
	}
	params.Context = ctx

	si, err := sc.client.SetupIntents.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateSetupIntent", err)
		return "", fmt.Errorf("stripe: failed to create setup intent: %w", err)
	}

	sc.log.Debugw("Stripe setup intent created", "setupIntentID", si.ID, "stripeCustomerID", customerID)
	return si.ClientSecret, nil
}

// RetrieveSetupIntent возвращает customer и payment method завершенного SetupIntent.
func (sc *stripeClient) RetrieveSetupIntent(ctx context.Context, setupIntentID string) (string, string, error) {
	params := &stripe.SetupIntentParams{}
	params.Context = ctx

	si, err := sc.client.SetupIntents.Get(setupIntentID, params)
	if err != nil {
		logStripeError(sc.log, "RetrieveSetupIntent", err)
		return "", "", fmt.Errorf("stripe: failed to retrieve setup intent: %w", err)
	}

	var customerID, paymentMethodID string
	if si.Customer != nil {
		customerID = si.Customer.ID
	}
	if si.PaymentMethod != nil {
		paymentMethodID = si.PaymentMethod.ID
	}

	return customerID, paymentMethodID, nil
}

// SetDefaultPaymentMethod назначает метод оплаты по умолчанию для счетов клиента.
func (sc *stripeClient) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx

	if _, err := sc.client.Customers.Update(customerID, params); err != nil {
		logStripeError(sc.log, "SetDefaultPaymentMethod", err)
		return fmt.Errorf("stripe: failed to set default payment method: %w", err)
	}

	sc.log.Infow("Default payment method set", "stripeCustomerID", customerID, "paymentMethodID", paymentMethodID)
	return nil
}

// ResolveDefaultCard возвращает карту для списания: метод по умолчанию, если это
// карта, иначе первую привязанную карту (limit 1). domain.ErrNoCardOnFile если карт нет.
func (sc *stripeClient) ResolveDefaultCard(ctx context.Context, customerID string) (string, error) {
	defaultPM, err := sc.getDefaultPaymentMethod(ctx, customerID)
	if err != nil {
		return "", err
	}
	if defaultPM != nil && defaultPM.Type == stripe.PaymentMethodTypeCard {
		return defaultPM.ID, nil
	}

	// Метод по умолчанию не карта или не задан - берем первую привязанную карту
	listParams := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := sc.client.PaymentMethods.List(listParams)
	if iter.Next() {
		return iter.PaymentMethod().ID, nil
	}
	if err := iter.Err(); err != nil {
		logStripeError(sc.log, "ResolveDefaultCard", err)
		return "", fmt.Errorf("stripe: failed to list payment methods: %w", err)
	}

	sc.log.Warnw("No card payment method on file", "stripeCustomerID", customerID)
	return "", domain.ErrNoCardOnFile
}

// GetDefaultPaymentMethodSummary возвращает сводку метода оплаты по умолчанию
// (или первого привязанного) или domain.ErrNoPaymentMethod.
func (sc *stripeClient) GetDefaultPaymentMethodSummary(ctx context.Context, customerID string) (*models.PaymentMethodSummary, error) {
	pm, err := sc.getDefaultPaymentMethod(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if pm == nil {
		pm, err = sc.firstAttachedPaymentMethod(ctx, customerID)
		if err != nil {
			return nil, err
		}
	}
	if pm == nil {
		return nil, domain.ErrNoPaymentMethod
	}

	summary := &models.PaymentMethodSummary{Type: string(pm.Type)}
	switch pm.Type {
	case stripe.PaymentMethodTypeCard:
		if pm.Card != nil {
			summary.Brand = string(pm.Card.Brand)
			summary.Last4 = pm.Card.Last4
			summary.ExpMonth = pm.Card.ExpMonth
			summary.ExpYear = pm.Card.ExpYear
		}
	case stripe.PaymentMethodTypeUSBankAccount:
		if pm.USBankAccount != nil {
			summary.BankName = pm.USBankAccount.BankName
			summary.Last4 = pm.USBankAccount.Last4
		}
	}

	return summary, nil
}

// DetachDefaultPaymentMethod отвязывает метод оплаты по умолчанию
// (или первый привязанный, если метод по умолчанию не задан).
func (sc *stripeClient) DetachDefaultPaymentMethod(ctx context.Context, customerID string) error {
	pm, err := sc.getDefaultPaymentMethod(ctx, customerID)
	if err != nil {
		return err
	}
	if pm == nil {
		pm, err = sc.firstAttachedPaymentMethod(ctx, customerID)
		if err != nil {
			return err
		}
	}
	if pm == nil {
		return domain.ErrNoPaymentMethod
	}

	detachParams := &stripe.PaymentMethodDetachParams{}
	detachParams.Context = ctx

	if _, err := sc.client.PaymentMethods.Detach(pm.ID, detachParams); err != nil {
		logStripeError(sc.log, "DetachDefaultPaymentMethod", err)
		return fmt.Errorf("stripe: failed to detach payment method: %w", err)
	}

	sc.log.Infow("Payment method detached", "stripeCustomerID", customerID, "paymentMethodID", pm.ID)
	return nil
}

// getDefaultPaymentMethod возвращает полный объект метода оплаты по умолчанию
// или nil, если он не назначен.
func (sc *stripeClient) getDefaultPaymentMethod(ctx context.Context, customerID string) (*stripe.PaymentMethod, error) {
	cusParams := &stripe.CustomerParams{}
	cusParams.Context = ctx

	cus, err := sc.client.Customers.Get(customerID, cusParams)
	if err != nil {
		logStripeError(sc.log, "GetCustomer", err)
		return nil, fmt.Errorf("stripe: failed to retrieve customer: %w", err)
	}

	if cus.InvoiceSettings == nil || cus.InvoiceSettings.DefaultPaymentMethod == nil {
		return nil, nil
	}

	pmParams := &stripe.PaymentMethodParams{}
	pmParams.Context = ctx

	pm, err := sc.client.PaymentMethods.Get(cus.InvoiceSettings.DefaultPaymentMethod.ID, pmParams)
	if err != nil {
		logStripeError(sc.log, "GetPaymentMethod", err)
		return nil, fmt.Errorf("stripe: failed to retrieve payment method: %w", err)
	}

	return pm, nil
}

// firstAttachedPaymentMethod возвращает первый привязанный к клиенту метод
// оплаты любого типа или nil.
func (sc *stripeClient) firstAttachedPaymentMethod(ctx context.Context, customerID string) (*stripe.PaymentMethod, error) {
	for _, pmType := range []string{"card", "us_bank_account"} {
		listParams := &stripe.PaymentMethodListParams{
			Customer: stripe.String(customerID),
			Type:     stripe.String(pmType),
		}
		listParams.Context = ctx
		listParams.Limit = stripe.Int64(1)

		iter := sc.client.PaymentMethods.List(listParams)
		if iter.Next() {
			return iter.PaymentMethod(), nil
		}
		if err := iter.Err(); err != nil {
			logStripeError(sc.log, "ListPaymentMethods", err)
			return nil, fmt.Errorf("stripe: failed to list payment methods: %w", err)
		}
	}
	return nil, nil
}
