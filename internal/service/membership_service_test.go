package service

import (
	"context"
	"testing"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/internal/stripe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func membershipLab() *models.Lab {
	return &models.Lab{
		LabID:           "lab-1",
		Name:            "Plasma Lab",
		StripeAccountID: strPtr("acct_123"),
		MonthlyAmount:   floatPtr(25),
	}
}

func newMembershipFixture() (*MembershipService, *mockProfileRepo, *mockLabRepo, *mockGoalRepo, *mockMembershipRepo, *mockStripeClient) {
	profileRepo := &mockProfileRepo{
		GetByUserIDFunc: func(_ context.Context, _ string) (*models.Profile, error) {
			return payerProfile(), nil
		},
	}
	labRepo := &mockLabRepo{
		GetByIDFunc: func(_ context.Context, _ string) (*models.Lab, error) {
			return membershipLab(), nil
		},
	}
	goalRepo := &mockGoalRepo{}
	membershipRepo := &mockMembershipRepo{}
	stripeClient := &mockStripeClient{
		UpdateCustomerNameFunc:      func(_ context.Context, _, _ string) error { return nil },
		ResolveDefaultCardFunc:      func(_ context.Context, _ string) (string, error) { return "pm_card", nil },
		SetDefaultPaymentMethodFunc: func(_ context.Context, _, _ string) error { return nil },
		CreateMembershipPriceFunc: func(_ context.Context, _ string, _ int64, _ string) (string, error) {
			return "price_123", nil
		},
		CreateMembershipSubFunc: func(_ context.Context, _ stripe.MembershipSubscriptionInput) (string, error) {
			return "sub_123", nil
		},
	}

	svc := NewMembershipService(
		profileRepo, labRepo, goalRepo, membershipRepo,
		stripeClient, nil, nil, 0.025, "usd", testLogger(),
	)
	return svc, profileRepo, labRepo, goalRepo, membershipRepo, stripeClient
}

func TestMembershipCreate_Success(t *testing.T) {
	svc, _, _, goalRepo, membershipRepo, stripeClient := newMembershipFixture()

	var priceAmount int64
	stripeClient.CreateMembershipPriceFunc = func(_ context.Context, labName string, amountMinor int64, currency string) (string, error) {
		assert.Equal(t, "Plasma Lab", labName)
		assert.Equal(t, "usd", currency)
		priceAmount = amountMinor
		return "price_123", nil
	}

	var subInput stripe.MembershipSubscriptionInput
	stripeClient.CreateMembershipSubFunc = func(_ context.Context, input stripe.MembershipSubscriptionInput) (string, error) {
		subInput = input
		return "sub_123", nil
	}

	result, err := svc.Create(context.Background(), MembershipInput{
		UserID: "user-1",
		LabID:  "lab-1",
		GoalID: "goal-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "sub_123", result.SubscriptionID)
	assert.Equal(t, float64(25), result.MonthlyAmount)
	assert.Equal(t, models.MembershipStatusIncomplete, result.Status)

	// Месячная сумма из тарифа лаборатории, в минимальных единицах
	assert.Equal(t, int64(2500), priceAmount)
	assert.Equal(t, "price_123", subInput.PriceID)
	assert.Equal(t, "acct_123", subInput.DestinationID)
	assert.InDelta(t, 2.5, subInput.FeePercent, 1e-9)

	require.Len(t, membershipRepo.Created, 1)
	assert.Equal(t, models.MembershipStatusIncomplete, membershipRepo.Created[0].Status)
	assert.Equal(t, "sub_123", membershipRepo.Created[0].StripeSubscriptionID)

	// Первый месячный взнос зачтен в цель
	require.Len(t, goalRepo.IncrementCalls, 1)
	assert.Equal(t, incrementCall{LabID: "lab-1", GoalID: "goal-1", Delta: 25}, goalRepo.IncrementCalls[0])
}

func TestMembershipCreate_SideEffectOrder(t *testing.T) {
	svc, _, _, _, _, stripeClient := newMembershipFixture()

	_, err := svc.Create(context.Background(), MembershipInput{UserID: "user-1", LabID: "lab-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"UpdateCustomerName",
		"ResolveDefaultCard",
		"SetDefaultPaymentMethod",
		"CreateMembershipPrice",
		"CreateMembershipSubscription",
	}, stripeClient.Calls)
}

func TestMembershipCreate_NoPlan(t *testing.T) {
	svc, _, labRepo, _, _, stripeClient := newMembershipFixture()
	labRepo.GetByIDFunc = func(_ context.Context, _ string) (*models.Lab, error) {
		return &models.Lab{LabID: "lab-1", Name: "Plasma Lab", StripeAccountID: strPtr("acct_123")}, nil
	}

	_, err := svc.Create(context.Background(), MembershipInput{UserID: "user-1", LabID: "lab-1"})
	assert.ErrorIs(t, err, domain.ErrNoMembershipPlan)
	assert.Empty(t, stripeClient.Calls)
}

func TestMembershipCreate_NoBillingIdentity(t *testing.T) {
	svc, profileRepo, _, _, _, stripeClient := newMembershipFixture()
	profileRepo.GetByUserIDFunc = func(_ context.Context, _ string) (*models.Profile, error) {
		return &models.Profile{UserID: "user-1"}, nil
	}

	_, err := svc.Create(context.Background(), MembershipInput{UserID: "user-1", LabID: "lab-1"})
	assert.ErrorIs(t, err, domain.ErrNoBillingIdentity)
	assert.Empty(t, stripeClient.Calls)
}

func TestMembershipCreate_NoPayoutAccount(t *testing.T) {
	svc, _, labRepo, _, _, _ := newMembershipFixture()
	labRepo.GetByIDFunc = func(_ context.Context, _ string) (*models.Lab, error) {
		return &models.Lab{LabID: "lab-1", Name: "Plasma Lab", MonthlyAmount: floatPtr(25)}, nil
	}

	_, err := svc.Create(context.Background(), MembershipInput{UserID: "user-1", LabID: "lab-1"})
	assert.ErrorIs(t, err, domain.ErrNoPayoutAccount)
}

func TestMembershipCreate_TrimsUserID(t *testing.T) {
	svc, profileRepo, _, _, _, _ := newMembershipFixture()

	var gotUserID string
	profileRepo.GetByUserIDFunc = func(_ context.Context, userID string) (*models.Profile, error) {
		gotUserID = userID
		return payerProfile(), nil
	}

	_, err := svc.Create(context.Background(), MembershipInput{UserID: "  user-1  ", LabID: "lab-1"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", gotUserID)
}

func TestMembershipCancel_Success(t *testing.T) {
	svc, _, _, _, membershipRepo, stripeClient := newMembershipFixture()
	stripeClient.CancelSubscriptionFunc = func(_ context.Context, subscriptionID string) error {
		assert.Equal(t, "sub_123", subscriptionID)
		return nil
	}
	membershipRepo.GetBySubFunc = func(_ context.Context, _ string) (*models.Membership, error) {
		return &models.Membership{UserID: "user-1", LabID: "lab-1", StripeSubscriptionID: "sub_123", MonthlyAmount: 25}, nil
	}

	err := svc.Cancel(context.Background(), "sub_123")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusCanceled, membershipRepo.UpdatedStatuses["sub_123"])
}

func TestMembershipCancel_UnknownRecordStillSucceeds(t *testing.T) {
	svc, _, _, _, membershipRepo, stripeClient := newMembershipFixture()
	stripeClient.CancelSubscriptionFunc = func(_ context.Context, _ string) error { return nil }
	membershipRepo.GetBySubFunc = func(_ context.Context, _ string) (*models.Membership, error) {
		return nil, domain.ErrNotFound
	}

	// Отмена у провайдера состоялась: отсутствие локальной записи не ошибка
	err := svc.Cancel(context.Background(), "sub_unknown")
	assert.NoError(t, err)
	assert.Empty(t, membershipRepo.UpdatedStatuses)
}

func TestMembershipCancel_EmptyID(t *testing.T) {
	svc, _, _, _, _, stripeClient := newMembershipFixture()

	err := svc.Cancel(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, stripeClient.Calls)
}
