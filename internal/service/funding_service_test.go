package service

import (
	"context"
	"testing"

	"github.com/heterodox-labs/funding-service/internal/domain"
	"github.com/heterodox-labs/funding-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFundingFixture() (*FundingService, *mockProfileRepo, *mockStripeClient) {
	profileRepo := &mockProfileRepo{
		GetByUserIDFunc: func(_ context.Context, _ string) (*models.Profile, error) {
			return &models.Profile{UserID: "user-1", Email: "owner@example.com"}, nil
		},
	}
	stripeClient := &mockStripeClient{
		CreateConnectAccountFunc: func(_ context.Context, _, _ string) (string, error) {
			return "acct_new", nil
		},
		CreateAccountLinkFunc: func(_ context.Context, _, _, _ string) (string, error) {
			return "https://connect.stripe.com/setup/x", nil
		},
	}
	svc := NewFundingService(profileRepo, stripeClient, testLogger())
	return svc, profileRepo, stripeClient
}

func TestConnectLink_CreatesAccountOnFirstUse(t *testing.T) {
	svc, profileRepo, stripeClient := newFundingFixture()

	var savedAccount *string
	profileRepo.SetPayoutAccountFunc = func(_ context.Context, _ string, accountID *string) error {
		savedAccount = accountID
		return nil
	}

	var refreshURL, returnURL string
	stripeClient.CreateAccountLinkFunc = func(_ context.Context, accountID, refresh, ret string) (string, error) {
		assert.Equal(t, "acct_new", accountID)
		refreshURL, returnURL = refresh, ret
		return "https://connect.stripe.com/setup/x", nil
	}

	url, err := svc.CreateConnectLink(context.Background(), "user-1", "individual", "https://virtuallab.example")
	require.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.com/setup/x", url)
	require.NotNil(t, savedAccount)
	assert.Equal(t, "acct_new", *savedAccount)
	assert.Equal(t, "https://virtuallab.example/funding/onboarding/refresh", refreshURL)
	assert.Equal(t, "https://virtuallab.example/funding/onboarding/complete", returnURL)
}

func TestConnectLink_ReusesExistingAccount(t *testing.T) {
	svc, profileRepo, stripeClient := newFundingFixture()
	profileRepo.GetByUserIDFunc = func(_ context.Context, _ string) (*models.Profile, error) {
		return &models.Profile{UserID: "user-1", StripeAccountID: strPtr("acct_old")}, nil
	}

	_, err := svc.CreateConnectLink(context.Background(), "user-1", "", "https://virtuallab.example")
	require.NoError(t, err)
	assert.NotContains(t, stripeClient.Calls, "CreateConnectAccount")
	assert.Contains(t, stripeClient.Calls, "CreateAccountLink")
}

func TestGetFundingInfo_EmptyID(t *testing.T) {
	svc, _, _ := newFundingFixture()

	_, err := svc.GetFundingInfo(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSaveFundingID(t *testing.T) {
	svc, profileRepo, _ := newFundingFixture()

	var savedAccount *string
	profileRepo.SetPayoutAccountFunc = func(_ context.Context, _ string, accountID *string) error {
		savedAccount = accountID
		return nil
	}

	_, err := svc.SaveFundingID(context.Background(), "user-1", "acct_manual")
	require.NoError(t, err)
	require.NotNil(t, savedAccount)
	assert.Equal(t, "acct_manual", *savedAccount)

	_, err = svc.SaveFundingID(context.Background(), "user-1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRemoveFundingID(t *testing.T) {
	svc, profileRepo, _ := newFundingFixture()

	cleared := false
	profileRepo.SetPayoutAccountFunc = func(_ context.Context, _ string, accountID *string) error {
		cleared = accountID == nil
		return nil
	}

	require.NoError(t, svc.RemoveFundingID(context.Background(), "user-1"))
	assert.True(t, cleared)
}
