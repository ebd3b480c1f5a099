package service

import (
	"context"
	"errors"
	"sync"

	"github.com/heterodox-labs/funding-service/internal/kafka"
	"github.com/heterodox-labs/funding-service/internal/models"
	"github.com/heterodox-labs/funding-service/internal/stripe"
)

var errMockDB = errors.New("mock db error")

// mockProfileRepo implements repository.ProfileRepository for tests.
type mockProfileRepo struct {
	GetByUserIDFunc       func(ctx context.Context, userID string) (*models.Profile, error)
	GetByCustomerIDFunc   func(ctx context.Context, customerID string) (*models.Profile, error)
	SetStripeCustomerFunc func(ctx context.Context, userID, customerID string) error
	SetBillingStateFunc   func(ctx context.Context, userID, state string) error
	SetPayoutAccountFunc  func(ctx context.Context, userID string, accountID *string) error
}

func (m *mockProfileRepo) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	return m.GetByUserIDFunc(ctx, userID)
}

func (m *mockProfileRepo) GetByCustomerID(ctx context.Context, customerID string) (*models.Profile, error) {
	if m.GetByCustomerIDFunc != nil {
		return m.GetByCustomerIDFunc(ctx, customerID)
	}
	return nil, errMockDB
}

func (m *mockProfileRepo) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	if m.SetStripeCustomerFunc != nil {
		return m.SetStripeCustomerFunc(ctx, userID, customerID)
	}
	return nil
}

func (m *mockProfileRepo) SetBillingState(ctx context.Context, userID, state string) error {
	if m.SetBillingStateFunc != nil {
		return m.SetBillingStateFunc(ctx, userID, state)
	}
	return nil
}

func (m *mockProfileRepo) SetPayoutAccount(ctx context.Context, userID string, accountID *string) error {
	if m.SetPayoutAccountFunc != nil {
		return m.SetPayoutAccountFunc(ctx, userID, accountID)
	}
	return nil
}

// mockLabRepo implements repository.LabRepository for tests.
type mockLabRepo struct {
	GetByIDFunc          func(ctx context.Context, labID string) (*models.Lab, error)
	SetPayoutAccountFunc func(ctx context.Context, labID, accountID string) error
}

func (m *mockLabRepo) GetByID(ctx context.Context, labID string) (*models.Lab, error) {
	return m.GetByIDFunc(ctx, labID)
}

func (m *mockLabRepo) SetPayoutAccount(ctx context.Context, labID, accountID string) error {
	if m.SetPayoutAccountFunc != nil {
		return m.SetPayoutAccountFunc(ctx, labID, accountID)
	}
	return nil
}

// mockGoalRepo implements repository.FundingGoalRepository and records increments.
type mockGoalRepo struct {
	mu             sync.Mutex
	GetByIDFunc    func(ctx context.Context, labID, goalID string) (*models.FundingGoal, error)
	IncrementFunc  func(ctx context.Context, labID, goalID string, delta float64) error
	IncrementCalls []incrementCall
}

type incrementCall struct {
	LabID  string
	GoalID string
	Delta  float64
}

func (m *mockGoalRepo) GetByID(ctx context.Context, labID, goalID string) (*models.FundingGoal, error) {
	return m.GetByIDFunc(ctx, labID, goalID)
}

func (m *mockGoalRepo) IncrementContributed(ctx context.Context, labID, goalID string, delta float64) error {
	m.mu.Lock()
	m.IncrementCalls = append(m.IncrementCalls, incrementCall{LabID: labID, GoalID: goalID, Delta: delta})
	m.mu.Unlock()
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, labID, goalID, delta)
	}
	return nil
}

// mockDonationRepo implements repository.DonationRepository and keeps created rows.
type mockDonationRepo struct {
	CreateFunc       func(ctx context.Context, donation *models.Donation) error
	GetByIntentFunc  func(ctx context.Context, paymentIntentID string) (*models.Donation, error)
	UpdateStatusFunc func(ctx context.Context, paymentIntentID, status string) error
	Created          []*models.Donation
	UpdatedStatuses  map[string]string
}

func (m *mockDonationRepo) Create(ctx context.Context, donation *models.Donation) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, donation); err != nil {
			return err
		}
	}
	m.Created = append(m.Created, donation)
	return nil
}

func (m *mockDonationRepo) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Donation, error) {
	return m.GetByIntentFunc(ctx, paymentIntentID)
}

func (m *mockDonationRepo) UpdateStatusByPaymentIntentID(ctx context.Context, paymentIntentID, status string) error {
	if m.UpdatedStatuses == nil {
		m.UpdatedStatuses = map[string]string{}
	}
	m.UpdatedStatuses[paymentIntentID] = status
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, paymentIntentID, status)
	}
	return nil
}

// mockMembershipRepo implements repository.MembershipRepository.
type mockMembershipRepo struct {
	CreateFunc       func(ctx context.Context, membership *models.Membership) error
	GetBySubFunc     func(ctx context.Context, subscriptionID string) (*models.Membership, error)
	UpdateStatusFunc func(ctx context.Context, subscriptionID, status string) error
	Created          []*models.Membership
	UpdatedStatuses  map[string]string
}

func (m *mockMembershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, membership); err != nil {
			return err
		}
	}
	m.Created = append(m.Created, membership)
	return nil
}

func (m *mockMembershipRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Membership, error) {
	return m.GetBySubFunc(ctx, subscriptionID)
}

func (m *mockMembershipRepo) UpdateStatusBySubscriptionID(ctx context.Context, subscriptionID, status string) error {
	if m.UpdatedStatuses == nil {
		m.UpdatedStatuses = map[string]string{}
	}
	m.UpdatedStatuses[subscriptionID] = status
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, subscriptionID, status)
	}
	return nil
}

// mockWebhookEventRepo implements repository.WebhookEventRepository.
type mockWebhookEventRepo struct {
	mu        sync.Mutex
	processed map[string]bool
	failWith  error
}

func (m *mockWebhookEventRepo) MarkProcessed(_ context.Context, eventID, _ string, _ []byte) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed == nil {
		m.processed = map[string]bool{}
	}
	if m.processed[eventID] {
		return false, nil
	}
	m.processed[eventID] = true
	return true, nil
}

func (m *mockWebhookEventRepo) Unmark(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.processed, eventID)
	return nil
}

// mockStripeClient implements stripe.Client; unset funcs fail the call.
type mockStripeClient struct {
	Calls []string

	CreateConnectAccountFunc         func(ctx context.Context, email, businessType string) (string, error)
	CreateAccountLinkFunc            func(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetBankAccountSummaryFunc        func(ctx context.Context, accountID string) (*models.BankAccountSummary, error)
	CreateCustomerFunc               func(ctx context.Context, userID, email string) (string, error)
	UpdateCustomerNameFunc           func(ctx context.Context, customerID, name string) error
	CreateSetupIntentFunc            func(ctx context.Context, customerID string) (string, error)
	RetrieveSetupIntentFunc          func(ctx context.Context, setupIntentID string) (string, string, error)
	SetDefaultPaymentMethodFunc      func(ctx context.Context, customerID, paymentMethodID string) error
	ResolveDefaultCardFunc           func(ctx context.Context, customerID string) (string, error)
	GetDefaultPaymentMethodSummaryFn func(ctx context.Context, customerID string) (*models.PaymentMethodSummary, error)
	DetachDefaultPaymentMethodFunc   func(ctx context.Context, customerID string) error
	CreateDonationIntentFunc         func(ctx context.Context, input stripe.DonationIntentInput) (string, error)
	CreateMembershipPriceFunc        func(ctx context.Context, labName string, amountMinor int64, currency string) (string, error)
	CreateMembershipSubFunc          func(ctx context.Context, input stripe.MembershipSubscriptionInput) (string, error)
	CancelSubscriptionFunc           func(ctx context.Context, subscriptionID string) error
}

var errMockStripe = errors.New("mock stripe call not configured")

func (m *mockStripeClient) record(name string) {
	m.Calls = append(m.Calls, name)
}

func (m *mockStripeClient) CreateConnectAccount(ctx context.Context, email, businessType string) (string, error) {
	m.record("CreateConnectAccount")
	if m.CreateConnectAccountFunc == nil {
		return "", errMockStripe
	}
	return m.CreateConnectAccountFunc(ctx, email, businessType)
}

func (m *mockStripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	m.record("CreateAccountLink")
	if m.CreateAccountLinkFunc == nil {
		return "", errMockStripe
	}
	return m.CreateAccountLinkFunc(ctx, accountID, refreshURL, returnURL)
}

func (m *mockStripeClient) GetBankAccountSummary(ctx context.Context, accountID string) (*models.BankAccountSummary, error) {
	m.record("GetBankAccountSummary")
	if m.GetBankAccountSummaryFunc == nil {
		return nil, errMockStripe
	}
	return m.GetBankAccountSummaryFunc(ctx, accountID)
}

func (m *mockStripeClient) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	m.record("CreateCustomer")
	if m.CreateCustomerFunc == nil {
		return "", errMockStripe
	}
	return m.CreateCustomerFunc(ctx, userID, email)
}

func (m *mockStripeClient) UpdateCustomerName(ctx context.Context, customerID, name string) error {
	m.record("UpdateCustomerName")
	if m.UpdateCustomerNameFunc == nil {
		return errMockStripe
	}
	return m.UpdateCustomerNameFunc(ctx, customerID, name)
}

func (m *mockStripeClient) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	m.record("CreateSetupIntent")
	if m.CreateSetupIntentFunc == nil {
		return "", errMockStripe
	}
	return m.CreateSetupIntentFunc(ctx, customerID)
}

func (m *mockStripeClient) RetrieveSetupIntent(ctx context.Context, setupIntentID string) (string, string, error) {
	m.record("RetrieveSetupIntent")
	if m.RetrieveSetupIntentFunc == nil {
		return "", "", errMockStripe
	}
	return m.RetrieveSetupIntentFunc(ctx, setupIntentID)
}

func (m *mockStripeClient) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	m.record("SetDefaultPaymentMethod")
	if m.SetDefaultPaymentMethodFunc == nil {
		return errMockStripe
	}
	return m.SetDefaultPaymentMethodFunc(ctx, customerID, paymentMethodID)
}

func (m *mockStripeClient) ResolveDefaultCard(ctx context.Context, customerID string) (string, error) {
	m.record("ResolveDefaultCard")
	if m.ResolveDefaultCardFunc == nil {
		return "", errMockStripe
	}
	return m.ResolveDefaultCardFunc(ctx, customerID)
}

func (m *mockStripeClient) GetDefaultPaymentMethodSummary(ctx context.Context, customerID string) (*models.PaymentMethodSummary, error) {
	m.record("GetDefaultPaymentMethodSummary")
	if m.GetDefaultPaymentMethodSummaryFn == nil {
		return nil, errMockStripe
	}
	return m.GetDefaultPaymentMethodSummaryFn(ctx, customerID)
}

func (m *mockStripeClient) DetachDefaultPaymentMethod(ctx context.Context, customerID string) error {
	m.record("DetachDefaultPaymentMethod")
	if m.DetachDefaultPaymentMethodFunc == nil {
		return errMockStripe
	}
	return m.DetachDefaultPaymentMethodFunc(ctx, customerID)
}

func (m *mockStripeClient) CreateDonationIntent(ctx context.Context, input stripe.DonationIntentInput) (string, error) {
	m.record("CreateDonationIntent")
	if m.CreateDonationIntentFunc == nil {
		return "", errMockStripe
	}
	return m.CreateDonationIntentFunc(ctx, input)
}

func (m *mockStripeClient) CreateMembershipPrice(ctx context.Context, labName string, amountMinor int64, currency string) (string, error) {
	m.record("CreateMembershipPrice")
	if m.CreateMembershipPriceFunc == nil {
		return "", errMockStripe
	}
	return m.CreateMembershipPriceFunc(ctx, labName, amountMinor, currency)
}

func (m *mockStripeClient) CreateMembershipSubscription(ctx context.Context, input stripe.MembershipSubscriptionInput) (string, error) {
	m.record("CreateMembershipSubscription")
	if m.CreateMembershipSubFunc == nil {
		return "", errMockStripe
	}
	return m.CreateMembershipSubFunc(ctx, input)
}

func (m *mockStripeClient) CancelSubscriptionAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	m.record("CancelSubscriptionAtPeriodEnd")
	if m.CancelSubscriptionFunc == nil {
		return errMockStripe
	}
	return m.CancelSubscriptionFunc(ctx, subscriptionID)
}

// mockProducer implements kafka.Producer and collects published events.
type mockProducer struct {
	mu     sync.Mutex
	Events []publishedEvent
	wg     *sync.WaitGroup
}

type publishedEvent struct {
	Topic string
	Event kafka.FundingEvent
}

func (m *mockProducer) PublishFundingEvent(_ context.Context, topic string, event kafka.FundingEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, publishedEvent{Topic: topic, Event: event})
	m.mu.Unlock()
	if m.wg != nil {
		m.wg.Done()
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
