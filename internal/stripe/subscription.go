package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v78"
)

// CreateMembershipPrice создает продукт и месячную цену под одну подписку.
// Продукты между подписками не переиспользуются: каждая подписка получает
// свою пару продукт+цена с актуальной на момент оформления суммой.
func (sc *stripeClient) CreateMembershipPrice(ctx context.Context, labName string, amountMinor int64, currency string) (string, error) {
	productParams := &stripe.ProductParams{
		Name: stripe.String(fmt.Sprintf("%s membership", labName)),
	}
	productParams.Context = ctx

	product, err := sc.client.Products.New(productParams)
	if err != nil {
		logStripeError(sc.log, "CreateMembershipProduct", err)
		return "", fmt.Errorf("stripe: failed to create product: %w", err)
	}

	priceParams := &stripe.PriceParams{
		Product:    stripe.String(product.ID),
		UnitAmount: stripe.Int64(amountMinor),
		Currency:   stripe.String(currency),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	}
	priceParams.Context = ctx

	price, err := sc.client.Prices.New(priceParams)
	if err != nil {
		logStripeError(sc.log, "CreateMembershipPrice", err)
		return "", fmt.Errorf("stripe: failed to create price: %w", err)
	}

	sc.log.Debugw("Membership price created", "productID", product.ID, "priceID", price.ID, "amountMinor", amountMinor)
	return price.ID, nil
}

// CreateMembershipSubscription создает регулярную подписку: комиссия платформы
// в процентах, перевод на аккаунт выплат лаборатории, payment_behavior =
// default_incomplete (подписка может начать жизнь в статусе incomplete).
func (sc *stripeClient) CreateMembershipSubscription(ctx context.Context, input MembershipSubscriptionInput) (string, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(input.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Price: stripe.String(input.PriceID),
			},
		},
		ApplicationFeePercent: stripe.Float64(input.FeePercent),
		TransferData: &stripe.SubscriptionTransferDataParams{
			Destination: stripe.String(input.DestinationID),
		},
		PaymentBehavior:      stripe.String("default_incomplete"),
		DefaultPaymentMethod: stripe.String(input.PaymentMethodID),
		OffSession:           stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserIDKey, input.UserID)
	params.AddMetadata("lab_id", input.LabID)
	if input.GoalID != "" {
		params.AddMetadata("goal_id", input.GoalID)
	}

	subscription, err := sc.client.Subscriptions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateMembershipSubscription", err)
		return "", fmt.Errorf("stripe: failed to create subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription created",
		"stripeSubscriptionID", subscription.ID,
		"status", string(subscription.Status),
		"destination", input.DestinationID,
	)
	return subscription.ID, nil
}

// CancelSubscriptionAtPeriodEnd запрашивает отмену подписки в конце
// оплаченного периода. Отмена уже отмененной подписки не ошибка.
func (sc *stripeClient) CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	_, err := sc.client.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			sc.log.Warnw("Attempted to cancel missing Stripe subscription", "stripeSubscriptionID", subscriptionID)
			return nil
		}
		logStripeError(sc.log, "CancelSubscriptionAtPeriodEnd", err)
		return fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	sc.log.Infow("Stripe subscription cancellation scheduled", "stripeSubscriptionID", subscriptionID)
	return nil
}
