package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78"
)

// CreateDonationIntent создает единственный off-session платеж с автоподтверждением:
// полная сумма списывается с плательщика, комиссия платформы удерживается через
// application_fee_amount, остаток уходит на аккаунт выплат лаборатории
// (on_behalf_of + transfer_data.destination).
func (sc *stripeClient) CreateDonationIntent(ctx context.Context, input DonationIntentInput) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(input.AmountMinor),
		Currency:             stripe.String(input.Currency),
		Customer:             stripe.String(input.CustomerID),
		PaymentMethod:        stripe.String(input.PaymentMethodID),
		PaymentMethodTypes:   stripe.StringSlice([]string{"card"}),
		Confirm:              stripe.Bool(true),
		OffSession:           stripe.Bool(true),
		ApplicationFeeAmount: stripe.Int64(input.FeeMinor),
		OnBehalfOf:           stripe.String(input.DestinationID),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(input.DestinationID),
		},
	}
	params.Context = ctx
	params.AddMetadata(metadataUserIDKey, input.UserID)
	params.AddMetadata("lab_id", input.LabID)
	if input.GoalID != "" {
		params.AddMetadata("goal_id", input.GoalID)
	}

	pi, err := sc.client.PaymentIntents.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateDonationIntent", err)
		return "", fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	sc.log.Infow("Stripe payment intent created",
		"paymentIntentID", pi.ID,
		"amount", input.AmountMinor,
		"fee", input.FeeMinor,
		"destination", input.DestinationID,
		"status", string(pi.Status),
	)
	return pi.ID, nil
}
