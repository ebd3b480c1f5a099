package models

import "time"

// Состояния платежного профиля плательщика. Переход none -> customer_created
// происходит при создании Stripe Customer, customer_created -> default_set -
// когда метод оплаты привязан и назначен по умолчанию. Списание и подписка
// допустимы только из default_set.
const (
	BillingStateNone            = "none"
	BillingStateCustomerCreated = "customer_created"
	BillingStateDefaultSet      = "default_set"
)

// Profile представляет профиль участника: плательщика и/или получателя средств.
type Profile struct {
	UserID           string    `db:"user_id" json:"user_id"`
	Email            string    `db:"email" json:"email"`
	StripeCustomerID *string   `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"` // Платежный аккаунт (nullable до первой настройки оплаты)
	StripeAccountID  *string   `db:"stripe_account_id" json:"stripe_account_id,omitempty"`   // Аккаунт выплат (nullable, если участник не получает средства)
	BillingState     string    `db:"billing_state" json:"billing_state"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// HasBillingIdentity сообщает, создан ли для профиля Stripe Customer.
func (p *Profile) HasBillingIdentity() bool {
	return p.StripeCustomerID != nil && *p.StripeCustomerID != ""
}

// HasPayoutAccount сообщает, привязан ли к профилю аккаунт выплат.
func (p *Profile) HasPayoutAccount() bool {
	return p.StripeAccountID != nil && *p.StripeAccountID != ""
}
