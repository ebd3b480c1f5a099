package service

import (
	"context"
	"testing"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCache implements repository.PaymentInfoCache in memory.
type mockCache struct {
	entries     map[string]*models.PaymentMethodSummary
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string]*models.PaymentMethodSummary{}}
}

func (m *mockCache) CachePaymentInfo(_ context.Context, userID string, info *models.PaymentMethodSummary) error {
	m.entries[userID] = info
	return nil
}

func (m *mockCache) GetCachedPaymentInfo(_ context.Context, userID string) (*models.PaymentMethodSummary, error) {
	if info, ok := m.entries[userID]; ok {
		return info, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) InvalidatePaymentInfo(_ context.Context, userID string) error {
	delete(m.entries, userID)
	m.invalidated = append(m.invalidated, userID)
	return nil
}

func (m *mockCache) Close() error { return nil }

func newBillingFixture() (*BillingService, *mockProfileRepo, *mockStripeClient, *mockCache) {
	profileRepo := &mockProfileRepo{
		GetByUserIDFunc: func(_ context.Context, _ string) (*models.Profile, error) {
			return payerProfile(), nil
		},
		GetByCustomerIDFunc: func(_ context.Context, _ string) (*models.Profile, error) {
			return payerProfile(), nil
		},
	}
	stripeClient := &mockStripeClient{
		CreateSetupIntentFunc: func(_ context.Context, _ string) (string, error) {
			return "seti_secret", nil
		},
	}
	cache := newMockCache()
	svc := NewBillingService(profileRepo, stripeClient, cache, testLogger())
	return svc, profileRepo, stripeClient, cache
}

func TestSetupPaymentMethod_ExistingCustomer(t *testing.T) {
	svc, _, stripeClient, _ := newBillingFixture()

	secret, err := svc.SetupPaymentMethod(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "seti_secret", secret)
	assert.NotContains(t, stripeClient.Calls, "CreateCustomer")
}

func TestSetupPaymentMethod_CreatesCustomerLazily(t *testing.T) {
	svc, profileRepo, stripeClient, _ := newBillingFixture()
	profileRepo.GetByUserIDFunc = func(_ context.Context, _ string) (*models.Profile, error) {
		return &models.Profile{UserID: "user-1", Email: "payer@example.com", BillingState: models.BillingStateNone}, nil
	}
	stripeClient.CreateCustomerFunc = func(_ context.Context, userID, email string) (string, error) {
		assert.Equal(t, "user-1", userID)
		assert.Equal(t, "payer@example.com", email)
		return "cus_new", nil
	}

	var linkedCustomer string
	profileRepo.SetStripeCustomerFunc = func(_ context.Context, _, customerID string) error {
		linkedCustomer = customerID
		return nil
	}

	secret, err := svc.SetupPaymentMethod(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "seti_secret", secret)
	assert.Equal(t, "cus_new", linkedCustomer)
	assert.Equal(t, []string{"CreateCustomer", "CreateSetupIntent"}, stripeClient.Calls)
}

func TestFinalizeSetupIntent_Success(t *testing.T) {
	svc, profileRepo, stripeClient, _ := newBillingFixture()
	stripeClient.RetrieveSetupIntentFunc = func(_ context.Context, _ string) (string, string, error) {
		return "cus_123", "pm_new", nil
	}
	stripeClient.SetDefaultPaymentMethodFunc = func(_ context.Context, customerID, paymentMethodID string) error {
		assert.Equal(t, "cus_123", customerID)
		assert.Equal(t, "pm_new", paymentMethodID)
		return nil
	}

	var newState string
	profileRepo.SetBillingStateFunc = func(_ context.Context, _, state string) error {
		newState = state
		return nil
	}

	err := svc.FinalizeSetupIntent(context.Background(), "seti_123")
	require.NoError(t, err)
	assert.Equal(t, models.BillingStateDefaultSet, newState)
}

func TestFinalizeSetupIntent_MissingIDs(t *testing.T) {
	svc, _, stripeClient, _ := newBillingFixture()
	stripeClient.RetrieveSetupIntentFunc = func(_ context.Context, _ string) (string, string, error) {
		return "cus_123", "", nil
	}

	err := svc.FinalizeSetupIntent(context.Background(), "seti_123")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotContains(t, stripeClient.Calls, "SetDefaultPaymentMethod")

	err = svc.FinalizeSetupIntent(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetPaymentInfo_CacheMissThenHit(t *testing.T) {
	svc, _, stripeClient, cache := newBillingFixture()
	stripeClient.GetDefaultPaymentMethodSummaryFn = func(_ context.Context, _ string) (*models.PaymentMethodSummary, error) {
		return &models.PaymentMethodSummary{Type: "card", Brand: "visa", Last4: "4242"}, nil
	}

	info, err := svc.GetPaymentInfo(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "visa", info.Brand)
	assert.Contains(t, cache.entries, "user-1")

	// Второе чтение из кэша, без обращения к Stripe
	stripeClient.GetDefaultPaymentMethodSummaryFn = nil
	info, err = svc.GetPaymentInfo(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "4242", info.Last4)
}

func TestGetPaymentInfo_NoBillingIdentity(t *testing.T) {
	svc, profileRepo, _, _ := newBillingFixture()
	profileRepo.GetByUserIDFunc = func(_ context.Context, _ string) (*models.Profile, error) {
		return &models.Profile{UserID: "user-1"}, nil
	}

	_, err := svc.GetPaymentInfo(context.Background(), "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemovePaymentMethod_Success(t *testing.T) {
	svc, profileRepo, stripeClient, cache := newBillingFixture()
	cache.entries["user-1"] = &models.PaymentMethodSummary{Type: "card"}
	stripeClient.DetachDefaultPaymentMethodFunc = func(_ context.Context, customerID string) error {
		assert.Equal(t, "cus_123", customerID)
		return nil
	}

	var newState string
	profileRepo.SetBillingStateFunc = func(_ context.Context, _, state string) error {
		newState = state
		return nil
	}

	err := svc.RemovePaymentMethod(context.Background(), "user-1")
	require.NoError(t, err)

	// Состояние откатывается, кэш инвалидируется
	assert.Equal(t, models.BillingStateCustomerCreated, newState)
	assert.NotContains(t, cache.entries, "user-1")
}

func TestRemovePaymentMethod_NoPaymentMethod(t *testing.T) {
	svc, _, stripeClient, _ := newBillingFixture()
	stripeClient.DetachDefaultPaymentMethodFunc = func(_ context.Context, _ string) error {
		return domain.ErrNoPaymentMethod
	}

	err := svc.RemovePaymentMethod(context.Background(), "user-1")
	assert.ErrorIs(t, err, domain.ErrNoPaymentMethod)
}
