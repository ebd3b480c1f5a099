package stripe

import (
	"context"
	"fmt"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"

	"github.com/stripe/stripe-go/v78"
)

// CreateConnectAccount создает Express-аккаунт выплат с запрошенными
// возможностями card_payments и transfers. Тип бизнеса - individual или
// company; любое другое значение трактуется как individual.
func (sc *stripeClient) CreateConnectAccount(ctx context.Context, email, businessType string) (string, error) {
	if businessType != string(stripe.AccountBusinessTypeCompany) {
		businessType = string(stripe.AccountBusinessTypeIndividual)
	}

	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Email:        stripe.String(email),
		BusinessType: stripe.String(businessType),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{
				Requested: stripe.Bool(true),
			},
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	params.Context = ctx

	acct, err := sc.client.Accounts.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateConnectAccount", err)
		return "", fmt.Errorf("stripe: failed to create connect account: %w", err)
	}

	sc.log.Infow("Stripe connect account created", "accountID", acct.ID, "businessType", businessType)
	return acct.ID, nil
}

// CreateAccountLink выдает свежую одноразовую ссылку онбординга.
func (sc *stripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := sc.client.AccountLinks.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateAccountLink", err)
		return "", fmt.Errorf("stripe: failed to create account link: %w", err)
	}

	sc.log.Debugw("Stripe account link created", "accountID", accountID)
	return link.URL, nil
}

// GetBankAccountSummary возвращает сводку первого привязанного банковского
// счета аккаунта выплат или domain.ErrNoBankAccount.
func (sc *stripeClient) GetBankAccountSummary(ctx context.Context, accountID string) (*models.BankAccountSummary, error) {
	params := &stripe.BankAccountListParams{
		Account: stripe.String(accountID),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := sc.client.BankAccounts.List(params)
	if iter.Next() {
		ba := iter.BankAccount()
		return &models.BankAccountSummary{
			Last4:         ba.Last4,
			BankName:      ba.BankName,
			Status:        string(ba.Status),
			AccountHolder: ba.AccountHolderName,
		}, nil
	}

	if err := iter.Err(); err != nil {
		logStripeError(sc.log, "GetBankAccountSummary", err)
		return nil, fmt.Errorf("stripe: failed to list bank accounts: %w", err)
	}

	sc.log.Warnw("No bank account attached to payout account", "accountID", accountID)
	return nil, domain.ErrNoBankAccount
}
